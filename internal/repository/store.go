// Package repository persists conversations in a relational store.
package repository

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rr-brian/rts-ai/internal/domain"
)

// ErrNotFound is returned when a conversation id has no row.
var ErrNotFound = errors.New("conversation not found")

// Store defines the conversation persistence operations.
type Store interface {
	// InsertConversation writes a new row. The id must not exist yet.
	InsertConversation(ctx context.Context, c *domain.Conversation) error
	// UpsertConversation overwrites the mutable fields of the row keyed by
	// c.ID, inserting it when absent. StartTime, UserId, UserEmail and
	// ChatType are only written on insert.
	UpsertConversation(ctx context.Context, c *domain.Conversation) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	// ListConversationsByOwner returns summaries ordered by LastUpdated, newest first.
	ListConversationsByOwner(ctx context.Context, ownerID string) ([]domain.ConversationSummary, error)

	Migrate(ctx context.Context) error
	TableExists(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
	Dialect() string
	Close() error
}
