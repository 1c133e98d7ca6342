package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/domain"
	"github.com/rr-brian/rts-ai/internal/logger"
	"github.com/rr-brian/rts-ai/internal/repository"
)

const (
	errInvalidMessages = "Invalid messages format"
	errUpdateFailed    = "Failed to update conversation"
	errNotFound        = "Conversation not found"
)

// UpdateConversation persists a full transcript snapshot. Without an id a new
// conversation is created; with one, that conversation is overwritten or
// created under the caller's id.
func (s *Service) UpdateConversation(ctx context.Context, p domain.Principal, req *domain.UpdateConversationRequest) (*domain.UpdateConversationResponse, error) {
	transcript, err := decodeTranscript(req.Messages)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(req.ChatType)
	if category == "" {
		category = domain.DefaultCategory
	}
	if err := s.authorize(ctx, p, category); err != nil {
		return nil, err
	}
	if err := s.authorizeExisting(ctx, p, strings.TrimSpace(req.ConversationID), category); err != nil {
		return nil, err
	}
	metadata, err := normalizeMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	conv := &domain.Conversation{
		ID:                   strings.TrimSpace(req.ConversationID),
		OwnerID:              s.ownerOf(p, req.UserID),
		OwnerContact:         req.UserEmail,
		Category:             category,
		Transcript:           transcript,
		MessageCount:         len(transcript),
		TokenEstimate:        max(s.estimateTokens(transcript), req.TotalTokens),
		StartedAt:            now,
		LastUpdatedAt:        now,
		LastUserMessage:      domain.LastContent(transcript, domain.RoleUser),
		LastAssistantMessage: domain.LastContent(transcript, domain.RoleAssistant),
		Metadata:             metadata,
	}

	resp := &domain.UpdateConversationResponse{}
	if conv.ID == "" {
		conv.ID = s.ids.NewID()
		resp.Created = true
		err = s.store.InsertConversation(ctx, conv)
	} else {
		err = s.store.UpsertConversation(ctx, conv)
	}
	if err != nil {
		logger.L.Error("conversation update failed", "conversation_id", conv.ID, "error", err.Error())
		return nil, persistenceError(errUpdateFailed, err)
	}

	logger.L.Info("conversation saved", "conversation_id", conv.ID, "created", resp.Created, "messages", conv.MessageCount)
	resp.ConversationID = conv.ID
	return resp, nil
}

// GetConversation returns the full record for id.
func (s *Service) GetConversation(ctx context.Context, p domain.Principal, id string) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(errNotFound)
	}
	if err != nil {
		logger.L.Error("conversation read failed", "conversation_id", id, "error", err.Error())
		return nil, persistenceError("Failed to retrieve conversation", err)
	}
	if err := s.authorize(ctx, p, conv.Category); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the owner's conversation summaries, newest first.
func (s *Service) ListConversations(ctx context.Context, p domain.Principal, ownerID string) ([]domain.ConversationSummary, error) {
	if err := s.authorize(ctx, p, ""); err != nil {
		return nil, err
	}
	list, err := s.store.ListConversationsByOwner(ctx, ownerID)
	if err != nil {
		logger.L.Error("conversation list failed", "owner", ownerID, "error", err.Error())
		return nil, persistenceError("Failed to retrieve conversations", err)
	}
	if list == nil {
		list = []domain.ConversationSummary{}
	}
	return list, nil
}

// authorizeExisting applies the policy of the stored category before an
// upsert overwrites it. ChatType is insert-only, so the request's category
// alone does not govern an existing row.
func (s *Service) authorizeExisting(ctx context.Context, p domain.Principal, id, requested string) error {
	if id == "" || !s.config.Auth.Enabled {
		return nil
	}
	existing, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.L.Error("conversation lookup failed", "conversation_id", id, "error", err.Error())
		return persistenceError(errUpdateFailed, err)
	}
	if existing.Category == requested {
		return nil
	}
	return s.authorize(ctx, p, existing.Category)
}

func (s *Service) ownerOf(p domain.Principal, requested string) string {
	if owner := strings.TrimSpace(requested); owner != "" {
		return owner
	}
	if s.config.Auth.Enabled && p.Authenticated {
		if p.Name != "" {
			return p.Name
		}
		if p.ID != "" {
			return p.ID
		}
	}
	return domain.DefaultOwner
}

func (s *Service) estimateTokens(transcript []domain.Message) int {
	total := 0
	for _, m := range transcript {
		total += s.tokens.Count(m.Content)
	}
	return total
}

// decodeTranscript requires a JSON array of {role, content} with known roles.
func decodeTranscript(raw json.RawMessage) ([]domain.Message, error) {
	if !isJSONArray(raw) {
		return nil, apperr.ClientInput(errInvalidMessages)
	}
	var transcript []domain.Message
	if err := json.Unmarshal(raw, &transcript); err != nil {
		return nil, apperr.ClientInput(errInvalidMessages).WithDetails(err.Error())
	}
	for i, m := range transcript {
		if !m.Role.Valid() {
			return nil, apperr.ClientInput(errInvalidMessages).WithDetails(fmt.Sprintf("message %d has unknown role %q", i, m.Role))
		}
	}
	if transcript == nil {
		transcript = []domain.Message{}
	}
	return transcript, nil
}

// normalizeMetadata accepts a JSON object; absent or null becomes {}.
func normalizeMetadata(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	var bag map[string]json.RawMessage
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &bag) != nil {
		return nil, apperr.ClientInput("Invalid metadata format").WithDetails("metadata must be a JSON object")
	}
	return json.RawMessage(trimmed), nil
}

func persistenceError(msg string, err error) error {
	if isTimeout(err) {
		return apperr.Timeout("database operation timed out", err)
	}
	return apperr.Persistence(msg, err).WithDetails(err.Error())
}
