package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/rr-brian/rts-ai/internal/domain"
)

// Options bounds database work.
type Options struct {
	// Timeout applies to every operation, independent of the caller's context.
	Timeout time.Duration
	// MaxConcurrent caps in-flight operations.
	MaxConcurrent int64
}

// DefaultOptions matches the gateway's production limits.
var DefaultOptions = Options{Timeout: 30 * time.Second, MaxConcurrent: 10}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	sem     *semaphore.Weighted
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open handle.
func NewSQLStore(db *sql.DB, dialect Dialect, opts Options) *SQLStore {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultOptions.MaxConcurrent
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		timeout: opts.Timeout,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
	}
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the engine name.
func (s *SQLStore) Dialect() string {
	return s.dialect.Name
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// run executes fn detached from caller cancellation, under the store timeout
// and a concurrency slot.
func (s *SQLStore) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "failed to acquire database slot")
	}
	defer s.sem.Release(1)

	return fn(ctx)
}

// Ping verifies the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.run(ctx, func(ctx context.Context) error {
		return errors.Wrap(s.db.PingContext(ctx), "failed to ping database")
	})
}

// Migrate creates the Conversations table and its index when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.run(ctx, func(ctx context.Context) error {
		for _, stmt := range s.dialect.ddl {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "failed to migrate database")
			}
		}
		return nil
	})
}

// TableExists reports whether the Conversations table is present.
func (s *SQLStore) TableExists(ctx context.Context) (bool, error) {
	var n int
	err := s.run(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.dialect.tableExists).Scan(&n)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to inspect schema")
	}
	return n > 0, nil
}

// InsertConversation creates a new conversation row.
func (s *SQLStore) InsertConversation(ctx context.Context, c *domain.Conversation) error {
	args, err := insertArgs(c)
	if err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.dialect.insertQuery(), args...)
		return errors.Wrapf(err, "failed to insert conversation %s", c.ID)
	})
}

// UpsertConversation overwrites a conversation snapshot in one statement.
func (s *SQLStore) UpsertConversation(ctx context.Context, c *domain.Conversation) error {
	args, err := insertArgs(c)
	if err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.dialect.upsertQuery(), args...)
		return errors.Wrapf(err, "failed to upsert conversation %s", c.ID)
	})
}

// GetConversation retrieves a conversation by ID.
func (s *SQLStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var (
		c          domain.Conversation
		transcript string
		metadata   sql.NullString
	)
	err := s.run(ctx, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.dialect.selectQuery(), id).Scan(
			&c.ID, &c.OwnerID, &c.OwnerContact, &c.Category,
			&c.StartedAt, &c.LastUpdatedAt, &c.MessageCount, &c.TokenEstimate,
			&transcript, &c.LastUserMessage, &c.LastAssistantMessage, &metadata,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get conversation %s", id)
	}

	if err := json.Unmarshal([]byte(transcript), &c.Transcript); err != nil {
		return nil, errors.Wrapf(err, "failed to decode transcript of conversation %s", id)
	}
	if metadata.Valid && metadata.String != "" {
		c.Metadata = json.RawMessage(metadata.String)
	}
	c.StartedAt = c.StartedAt.UTC()
	c.LastUpdatedAt = c.LastUpdatedAt.UTC()
	return &c, nil
}

// ListConversationsByOwner retrieves summaries for an owner, newest first.
func (s *SQLStore) ListConversationsByOwner(ctx context.Context, ownerID string) ([]domain.ConversationSummary, error) {
	summaries := []domain.ConversationSummary{}
	err := s.run(ctx, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, s.dialect.listByOwnerQuery(), ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var cs domain.ConversationSummary
			if err := rows.Scan(
				&cs.ID, &cs.OwnerID, &cs.Category, &cs.StartedAt, &cs.LastUpdatedAt,
				&cs.MessageCount, &cs.TokenEstimate, &cs.LastUserMessage, &cs.LastAssistantMessage,
			); err != nil {
				return err
			}
			cs.StartedAt = cs.StartedAt.UTC()
			cs.LastUpdatedAt = cs.LastUpdatedAt.UTC()
			summaries = append(summaries, cs)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list conversations of %s", ownerID)
	}
	return summaries, nil
}

func insertArgs(c *domain.Conversation) ([]any, error) {
	transcript := c.Transcript
	if transcript == nil {
		transcript = []domain.Message{}
	}
	state, err := json.Marshal(transcript)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode transcript")
	}
	var metadata any
	if len(c.Metadata) > 0 {
		metadata = string(c.Metadata)
	}
	return []any{
		c.ID,
		c.OwnerID,
		c.OwnerContact,
		c.Category,
		c.StartedAt.UTC(),
		c.LastUpdatedAt.UTC(),
		c.MessageCount,
		c.TokenEstimate,
		string(state),
		c.LastUserMessage,
		c.LastAssistantMessage,
		metadata,
	}, nil
}
