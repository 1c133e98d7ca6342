package domain

import "encoding/json"

// UpdateConversationRequest is the body of a conversation upsert. Messages is
// kept raw so its shape can be validated with a precise error.
type UpdateConversationRequest struct {
	ConversationID string          `json:"conversationId,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	UserEmail      string          `json:"userEmail,omitempty"`
	ChatType       string          `json:"chatType,omitempty"`
	Messages       json.RawMessage `json:"messages"`
	TotalTokens    int             `json:"totalTokens,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// UpdateConversationResponse carries the id the client must reuse.
type UpdateConversationResponse struct {
	ConversationID string `json:"conversationId"`
	Created        bool   `json:"-"`
}

// CompletionRequest is the browser's completion proxy body.
type CompletionRequest struct {
	Messages    json.RawMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// ErrorResponse is the JSON error body of every API failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Principal is the caller identity injected by the hosting platform.
type Principal struct {
	ID            string
	Name          string
	Roles         []string
	Authenticated bool
}

// PublicConfig is the sanitized configuration view served to the browser.
// It never carries secrets.
type PublicConfig struct {
	CompletionEndpointConfigured bool              `json:"completionEndpointConfigured"`
	CompletionDeploymentName     *string           `json:"completionDeploymentName"`
	APIVersion                   string            `json:"apiVersion"`
	HasAPIKey                    bool              `json:"hasApiKey"`
	AuthEnabled                  bool              `json:"authEnabled"`
	PersistenceEnabled           bool              `json:"persistenceEnabled"`
	Environment                  string            `json:"environment"`
	Capabilities                 map[string]string `json:"capabilities"`
}

// Health is the liveness response.
type Health struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Capabilities map[string]string `json:"capabilities,omitempty"`
}
