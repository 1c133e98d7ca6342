package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// MockClient answers locally without any outbound call.
type MockClient struct{}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements Completer interface.
var _ Completer = (*MockClient)(nil)

// Missing reports nothing; the mock needs no settings.
func (m *MockClient) Missing() []string { return nil }

// CreateChatCompletion returns a chat.completion body echoing the last user message.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) ([]byte, error) {
	var messages []openai.ChatCompletionMessage
	if err := json.Unmarshal(req.Messages, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	content := "Mock response: no user message received."
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.ChatMessageRoleUser {
			content = "Mock response to: " + messages[i].Content
			break
		}
	}

	prompt := 0
	for _, msg := range messages {
		prompt += (len(msg.Content) + 3) / 4
	}
	completion := (len(content) + 3) / 4

	resp := openai.ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "mock",
		Choices: []openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: content,
				},
				FinishReason: openai.FinishReasonStop,
			},
		},
		Usage: openai.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
	return json.Marshal(resp)
}
