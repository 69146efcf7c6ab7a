// Package db provides the database connections used by turso-sync.
//
// Three connection kinds are exposed through the Conn interface, all backed
// by database/sql:
//
//   - Local: embedded SQLite via ncruces/go-sqlite3. Used for working
//     copies, baseline snapshots, and dump materialization.
//   - Remote: a direct libSQL connection to a Turso database.
//   - Replica: an embedded replica file kept in sync with a remote Turso
//     database through the go-libsql connector. Replica connections also
//     implement Syncer.
//
// Connections are cheap wrappers around *sql.DB; callers own their lifetime
// and MUST call Close() when done. For handing connections across call
// boundaries as opaque handles, see Registry.
package db

import (
	"context"
	"database/sql"
)

// Conn is a SQL execution endpoint for the sync engine.
//
// Execute runs a single statement and returns the affected-row count, which
// is advisory only: remote endpoints may report zero for batched writes.
// ExecuteBatch runs a semicolon-joined script as one unit. Query streams
// rows for introspection (dumps, health checks).
type Conn interface {
	// Execute runs a single SQL statement and returns the number of
	// affected rows.
	Execute(ctx context.Context, stmt string) (int64, error)

	// ExecuteBatch runs a script of semicolon-separated statements.
	ExecuteBatch(ctx context.Context, script string) error

	// Query runs a SQL query and returns the resulting rows.
	// The caller must close the returned rows.
	Query(ctx context.Context, query string) (*sql.Rows, error)

	// Path returns the local database file path, or "" for purely
	// remote connections.
	Path() string

	// Close releases the connection and any underlying resources.
	Close() error
}

// Syncer is implemented by connections backed by an embedded replica.
// Sync replicates pending frames between the local file and the remote
// primary. The call is idempotent; syncing an up-to-date replica is a no-op.
type Syncer interface {
	Sync() error
}

// sqlConn is the shared database/sql-backed implementation of Conn.
type sqlConn struct {
	db   *sql.DB
	path string
}

func (c *sqlConn) Execute(ctx context.Context, stmt string) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Advisory count only; some drivers don't report it.
		return 0, nil
	}
	return affected, nil
}

func (c *sqlConn) ExecuteBatch(ctx context.Context, script string) error {
	_, err := c.db.ExecContext(ctx, script)
	return err
}

func (c *sqlConn) Query(ctx context.Context, query string) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query)
}

func (c *sqlConn) Path() string {
	return c.path
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
