package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/rr-brian/rts-ai/internal/config"
)

func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		return dsn
	}
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	var pg *postgres.PostgresContainer
	var err error
	func() {
		// testcontainers panics when no container provider is available.
		defer func() {
			if p := recover(); p != nil {
				t.Skipf("container provider unavailable: %v", p)
			}
		}()
		pg, err = postgres.Run(t.Context(),
			"postgres:16-alpine",
			postgres.WithDatabase("rts_test"),
			postgres.WithUsername("rts"),
			postgres.WithPassword("rts"),
			postgres.BasicWaitStrategies(),
		)
	}()
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := postgresDSN(t)
	ctx := context.Background()

	db, dialect, err := Open(ctx, config.DatabaseConfig{URL: dsn, Timeout: 30 * time.Second, MaxOpenConns: 5})
	require.NoError(t, err)
	store := NewSQLStore(db, dialect, DefaultOptions)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
	exists, err := store.TableExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertConversation(ctx, sampleConversation("pg-1", "u1", start)))

	next := sampleConversation("pg-1", "u1", start.Add(time.Minute))
	next.MessageCount = 5
	require.NoError(t, store.UpsertConversation(ctx, next))

	got, err := store.GetConversation(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.MessageCount)
	assert.True(t, got.StartedAt.Equal(start))
	assert.True(t, got.LastUpdatedAt.Equal(start.Add(time.Minute)))

	list, err := store.ListConversationsByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
