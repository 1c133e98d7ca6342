package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for _, name := range []string{DialectSQLServer, DialectPostgres, DialectSQLite, DialectNoop} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name)
	}
	_, err := DialectFor("mysql")
	assert.Error(t, err)
}

func TestPostgresPlaceholders(t *testing.T) {
	q := postgresDialect.insertQuery()
	assert.Contains(t, q, "$1")
	assert.Contains(t, q, "$12")
	assert.NotContains(t, q, "?")
	assert.Contains(t, postgresDialect.upsertQuery(), "ON CONFLICT (ConversationId) DO UPDATE SET")
	assert.Contains(t, postgresDialect.listByOwnerQuery(), "WHERE UserId = $1 ORDER BY LastUpdated DESC")
}

func TestSQLServerMerge(t *testing.T) {
	q := sqlServerDialect.upsertQuery()

	assert.True(t, strings.HasPrefix(q, "MERGE dbo.Conversations WITH (HOLDLOCK)"))
	assert.Contains(t, q, "LastUpdated = @p6")
	assert.Contains(t, q, "Metadata = @p12")
	assert.Contains(t, q, "VALUES (@p1, @p2")
	assert.True(t, strings.HasSuffix(q, ";"))
	// Insert-only columns are never part of the update branch.
	update := q[strings.Index(q, "UPDATE SET"):strings.Index(q, "WHEN NOT MATCHED")]
	for _, col := range []string{"StartTime", "UserId", "UserEmail", "ChatType"} {
		assert.NotContains(t, update, col)
	}
}

func TestSQLiteUpsertSkipsInsertOnlyColumns(t *testing.T) {
	q := sqliteDialect.upsertQuery()
	update := q[strings.Index(q, "DO UPDATE SET"):]
	for _, col := range []string{"StartTime", "UserId", "UserEmail", "ChatType"} {
		assert.NotContains(t, update, col)
	}
	for _, col := range mutableColumns {
		assert.Contains(t, update, col+" = excluded."+col)
	}
}
