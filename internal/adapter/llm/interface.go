// Package llm provides the outbound client for the hosted chat completion
// endpoint.
package llm

import "context"

// Completer sends chat completion requests and returns the raw response body.
type Completer interface {
	// CreateChatCompletion returns the upstream body of a 2xx response, or an
	// *APIError carrying the upstream status otherwise.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) ([]byte, error)

	// Missing lists required settings that are not configured. Requests must
	// not be sent while it is non-empty.
	Missing() []string
}

// Ensure Client implements Completer interface.
var _ Completer = (*Client)(nil)
