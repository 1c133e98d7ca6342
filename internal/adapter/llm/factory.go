package llm

import (
	"strings"

	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/logger"
)

// ModeMock selects the local mock client.
const ModeMock = "mock"

// NewCompleter creates a completion client based on cfg.Mode.
// If the mode is "mock", returns a MockClient; otherwise returns a real Client.
func NewCompleter(cfg config.CompletionConfig) Completer {
	if strings.EqualFold(cfg.Mode, ModeMock) {
		logger.L.Info("completion mode mock, using local mock client")
		return NewMockClient()
	}
	return NewClient(cfg)
}
