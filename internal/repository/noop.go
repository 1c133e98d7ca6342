package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
)

// NoopDriverName is the database/sql name of the fallback driver.
const NoopDriverName = "rts-noop"

func init() {
	sql.Register(NoopDriverName, noopDriver{})
}

// noopDriver accepts every statement: queries yield no rows and execs affect
// none. It stands in for a database that could not be reached.
type noopDriver struct{}

func (noopDriver) Open(string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(string) (driver.Stmt, error) { return noopStmt{}, nil }
func (noopConn) Close() error                        { return nil }
func (noopConn) Begin() (driver.Tx, error)           { return noopTx{}, nil }
func (noopConn) Ping(context.Context) error          { return nil }

type noopStmt struct{}

func (noopStmt) Close() error  { return nil }
func (noopStmt) NumInput() int { return -1 }

func (noopStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}

func (noopStmt) Query([]driver.Value) (driver.Rows, error) {
	return noopRows{}, nil
}

type noopRows struct{}

func (noopRows) Columns() []string         { return nil }
func (noopRows) Close() error              { return nil }
func (noopRows) Next([]driver.Value) error { return io.EOF }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// NewNoopStore returns a store backed by the no-op driver.
func NewNoopStore() *SQLStore {
	// sql.Open only fails for unregistered drivers.
	db, _ := sql.Open(NoopDriverName, "")
	return NewSQLStore(db, noopDialect, DefaultOptions)
}
