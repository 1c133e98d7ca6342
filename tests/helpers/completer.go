package helpers

import (
	"context"
	"sync"

	"github.com/rr-brian/rts-ai/internal/adapter/llm"
)

// StubCompleter records requests and answers with a fixed body or error.
type StubCompleter struct {
	mu       sync.Mutex
	Body     []byte
	Err      error
	Unset    []string
	Requests []*llm.ChatCompletionRequest
}

var _ llm.Completer = (*StubCompleter)(nil)

// CreateChatCompletion records req and returns the configured outcome.
func (s *StubCompleter) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Body, nil
}

// Missing returns Unset.
func (s *StubCompleter) Missing() []string { return s.Unset }

// Calls returns the number of requests received.
func (s *StubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
