package repository

import (
	"fmt"
	"strings"
)

// Table is the conversations table.
const Table = "Conversations"

// columns in insert order.
var columns = []string{
	"ConversationId",
	"UserId",
	"UserEmail",
	"ChatType",
	"StartTime",
	"LastUpdated",
	"MessageCount",
	"TotalTokens",
	"ConversationState",
	"LastUserMessage",
	"LastAssistantMessage",
	"Metadata",
}

// mutableColumns are rewritten on every upsert.
var mutableColumns = []string{
	"LastUpdated",
	"MessageCount",
	"TotalTokens",
	"ConversationState",
	"LastUserMessage",
	"LastAssistantMessage",
	"Metadata",
}

var summaryColumns = []string{
	"ConversationId",
	"UserId",
	"ChatType",
	"StartTime",
	"LastUpdated",
	"MessageCount",
	"TotalTokens",
	"LastUserMessage",
	"LastAssistantMessage",
}

// Dialect holds the SQL that differs between database engines.
type Dialect struct {
	Name        string
	placeholder func(n int) string
	ddl         []string
	tableExists string
	upsert      func(d Dialect) string
}

// Dialect names.
const (
	DialectSQLServer = "sqlserver"
	DialectPostgres  = "postgres"
	DialectSQLite    = "sqlite"
	DialectNoop      = "noop"
)

var (
	sqliteDialect = Dialect{
		Name:        DialectSQLite,
		placeholder: func(int) string { return "?" },
		ddl: []string{
			`CREATE TABLE IF NOT EXISTS Conversations (
				ConversationId TEXT PRIMARY KEY,
				UserId TEXT NOT NULL DEFAULT 'anonymous',
				UserEmail TEXT NOT NULL DEFAULT '',
				ChatType TEXT NOT NULL DEFAULT 'general',
				StartTime DATETIME NOT NULL,
				LastUpdated DATETIME NOT NULL,
				MessageCount INTEGER NOT NULL DEFAULT 0,
				TotalTokens INTEGER NOT NULL DEFAULT 0,
				ConversationState TEXT NOT NULL,
				LastUserMessage TEXT NOT NULL DEFAULT '',
				LastAssistantMessage TEXT NOT NULL DEFAULT '',
				Metadata TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS IX_Conversations_UserId ON Conversations(UserId, LastUpdated)`,
		},
		tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'Conversations'`,
		upsert:      onConflictUpsert,
	}

	postgresDialect = Dialect{
		Name:        DialectPostgres,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		ddl: []string{
			`CREATE TABLE IF NOT EXISTS Conversations (
				ConversationId TEXT PRIMARY KEY,
				UserId TEXT NOT NULL DEFAULT 'anonymous',
				UserEmail TEXT NOT NULL DEFAULT '',
				ChatType TEXT NOT NULL DEFAULT 'general',
				StartTime TIMESTAMPTZ NOT NULL,
				LastUpdated TIMESTAMPTZ NOT NULL,
				MessageCount INTEGER NOT NULL DEFAULT 0,
				TotalTokens INTEGER NOT NULL DEFAULT 0,
				ConversationState TEXT NOT NULL,
				LastUserMessage TEXT NOT NULL DEFAULT '',
				LastAssistantMessage TEXT NOT NULL DEFAULT '',
				Metadata TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS IX_Conversations_UserId ON Conversations(UserId, LastUpdated DESC)`,
		},
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'conversations'`,
		upsert:      onConflictUpsert,
	}

	sqlServerDialect = Dialect{
		Name:        DialectSQLServer,
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		ddl: []string{
			`IF OBJECT_ID(N'dbo.Conversations', N'U') IS NULL
			CREATE TABLE dbo.Conversations (
				ConversationId NVARCHAR(64) NOT NULL PRIMARY KEY,
				UserId NVARCHAR(256) NOT NULL DEFAULT 'anonymous',
				UserEmail NVARCHAR(256) NOT NULL DEFAULT '',
				ChatType NVARCHAR(64) NOT NULL DEFAULT 'general',
				StartTime DATETIME2 NOT NULL,
				LastUpdated DATETIME2 NOT NULL,
				MessageCount INT NOT NULL DEFAULT 0,
				TotalTokens INT NOT NULL DEFAULT 0,
				ConversationState NVARCHAR(MAX) NOT NULL,
				LastUserMessage NVARCHAR(MAX) NOT NULL DEFAULT '',
				LastAssistantMessage NVARCHAR(MAX) NOT NULL DEFAULT '',
				Metadata NVARCHAR(MAX) NULL
			)`,
			`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'IX_Conversations_UserId')
			CREATE INDEX IX_Conversations_UserId ON dbo.Conversations(UserId, LastUpdated DESC)`,
		},
		tableExists: `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = 'Conversations'`,
		upsert:      mergeUpsert,
	}

	// noopDialect speaks sqlite syntax; the no-op driver never parses it.
	noopDialect = Dialect{
		Name:        DialectNoop,
		placeholder: sqliteDialect.placeholder,
		ddl:         sqliteDialect.ddl,
		tableExists: sqliteDialect.tableExists,
		upsert:      onConflictUpsert,
	}
)

// DialectFor returns the dialect for a resolved driver name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case DialectSQLServer:
		return sqlServerDialect, nil
	case DialectPostgres:
		return postgresDialect, nil
	case DialectSQLite:
		return sqliteDialect, nil
	case DialectNoop:
		return noopDialect, nil
	}
	return Dialect{}, fmt.Errorf("unknown database driver %q", name)
}

func (d Dialect) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

func (d Dialect) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table, strings.Join(columns, ", "), d.placeholders(1, len(columns)))
}

func (d Dialect) upsertQuery() string {
	return d.upsert(d)
}

func (d Dialect) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE ConversationId = %s",
		strings.Join(columns, ", "), Table, d.placeholder(1))
}

func (d Dialect) listByOwnerQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE UserId = %s ORDER BY LastUpdated DESC",
		strings.Join(summaryColumns, ", "), Table, d.placeholder(1))
}

func onConflictUpsert(d Dialect) string {
	set := make([]string, len(mutableColumns))
	for i, col := range mutableColumns {
		set[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return d.insertQuery() + " ON CONFLICT (ConversationId) DO UPDATE SET " + strings.Join(set, ", ")
}

func mergeUpsert(d Dialect) string {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i + 1
	}
	set := make([]string, len(mutableColumns))
	for i, col := range mutableColumns {
		set[i] = fmt.Sprintf("%s = %s", col, d.placeholder(index[col]))
	}
	return fmt.Sprintf(
		"MERGE dbo.%s WITH (HOLDLOCK) AS t USING (SELECT %s AS ConversationId) AS s ON t.ConversationId = s.ConversationId "+
			"WHEN MATCHED THEN UPDATE SET %s "+
			"WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		Table, d.placeholder(1), strings.Join(set, ", "),
		strings.Join(columns, ", "), d.placeholders(1, len(columns)))
}
