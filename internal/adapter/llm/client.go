package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rr-brian/rts-ai/internal/config"
)

// Request defaults of the browser client.
const (
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
)

// ChatCompletionRequest is the outbound body. Messages are forwarded verbatim.
type ChatCompletionRequest struct {
	Messages         json.RawMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
	FrequencyPenalty float64         `json:"frequency_penalty"`
	PresencePenalty  float64         `json:"presence_penalty"`
	Stop             []string        `json:"stop"`
}

// NewChatCompletionRequest applies the fixed sampling parameters and the
// defaults for unset caller overrides.
func NewChatCompletionRequest(messages json.RawMessage, maxTokens *int, temperature *float64) *ChatCompletionRequest {
	req := &ChatCompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
	if maxTokens != nil {
		req.MaxTokens = *maxTokens
	}
	if temperature != nil {
		req.Temperature = *temperature
	}
	return req
}

// APIError is a non-2xx upstream response.
type APIError struct {
	StatusCode int
	// Message is the upstream error message when the body carries one,
	// otherwise the raw body.
	Message string
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API error [%d]: %s", e.StatusCode, e.Message)
}

// Client calls an Azure OpenAI chat completions deployment.
type Client struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a new completion client.
func NewClient(cfg config.CompletionConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	version := cfg.APIVersion
	if version == "" {
		version = config.DefaultAPIVersion
	}
	return &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: version,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Missing lists unset required settings.
func (c *Client) Missing() []string {
	return config.CompletionConfig{Endpoint: c.endpoint, APIKey: c.apiKey, Deployment: c.deployment}.Missing()
}

// URL returns the deployment's chat completions URL.
func (c *Client) URL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) ([]byte, error) {
	if missing := c.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("completion client not configured: missing %s", strings.Join(missing, ", "))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body), Message: string(body)}
	var errResp openai.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)
}
