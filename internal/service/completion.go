package service

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rr-brian/rts-ai/internal/adapter/llm"
	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/domain"
	"github.com/rr-brian/rts-ai/internal/logger"
)

// ProxyChatCompletion validates the browser request, forwards it to the
// completion deployment and returns the upstream body unchanged.
func (s *Service) ProxyChatCompletion(ctx context.Context, requestID string, req *domain.CompletionRequest) ([]byte, error) {
	if !isJSONArray(req.Messages) {
		return nil, apperr.ClientInput("messages must be an array")
	}
	if missing := s.completer.Missing(); len(missing) > 0 {
		logger.L.Error("completion proxy not configured", "request_id", requestID, "missing", missing)
		return nil, apperr.ServerConfiguration("Azure OpenAI configuration missing").
			WithDetails("missing settings: " + strings.Join(missing, ", "))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Completion.Timeout)
	defer cancel()

	startTime := time.Now()
	body, err := s.completer.CreateChatCompletion(ctx, llm.NewChatCompletionRequest(req.Messages, req.MaxTokens, req.Temperature))
	latencyMs := time.Since(startTime).Milliseconds()

	if err != nil {
		var apiErr *llm.APIError
		switch {
		case errors.As(err, &apiErr):
			logger.L.Warn("completion upstream error", "request_id", requestID, "status", apiErr.StatusCode, "latency_ms", latencyMs)
			return nil, apperr.Upstream(apiErr.StatusCode, apiErr.Message, err).WithDetails(apiErr.Body)
		case isTimeout(err) || isNetTimeout(err):
			logger.L.Warn("completion upstream timeout", "request_id", requestID, "latency_ms", latencyMs)
			return nil, apperr.Timeout("completion request timed out", err)
		default:
			logger.L.Error("completion upstream unreachable", "request_id", requestID, "error", err.Error(), "latency_ms", latencyMs)
			return nil, apperr.Upstream(0, "failed to reach completion service", err)
		}
	}

	logger.L.Info("completion proxied", "request_id", requestID, "latency_ms", latencyMs, "bytes", len(body))
	return body, nil
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
