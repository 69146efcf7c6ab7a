package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tursodatabase/go-libsql"
)

// ReplicaOptions configures an embedded replica connection.
type ReplicaOptions struct {
	// SyncInterval enables periodic background sync with the primary.
	// Zero disables automatic sync; callers invoke Sync() explicitly.
	SyncInterval time.Duration

	// ReadYourWrites enables read-your-writes consistency on the replica.
	ReadYourWrites bool
}

// replicaConn wraps an embedded replica: a local database file replicated
// from (and, with offline writes, back to) a remote Turso primary.
type replicaConn struct {
	sqlConn
	connector *libsql.Connector
}

// OpenReplica opens an embedded replica at path, replicating against the
// remote primary at primaryURL. The replica file is created on first sync.
//
// The returned Conn also implements Syncer. The caller MUST call Close()
// when done.
func OpenReplica(path, primaryURL, authToken string, opts ReplicaOptions) (Conn, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create replica directory: %w", err)
	}

	libsqlOpts := []libsql.Option{
		libsql.WithAuthToken(authToken),
	}
	if opts.SyncInterval > 0 {
		libsqlOpts = append(libsqlOpts, libsql.WithSyncInterval(opts.SyncInterval))
	}
	if opts.ReadYourWrites {
		libsqlOpts = append(libsqlOpts, libsql.WithReadYourWrites(true))
	}

	connector, err := libsql.NewEmbeddedReplicaConnector(path, primaryURL, libsqlOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded replica connector: %w", err)
	}

	conn := sql.OpenDB(connector)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		_ = connector.Close()
		return nil, fmt.Errorf("failed to ping replica database: %w", err)
	}

	return &replicaConn{
		sqlConn:   sqlConn{db: conn, path: path},
		connector: connector,
	}, nil
}

// Sync replicates pending frames between the replica file and the primary.
func (c *replicaConn) Sync() error {
	if _, err := c.connector.Sync(); err != nil {
		return fmt.Errorf("replica sync failed: %w", err)
	}
	return nil
}

// Close closes both the sql.DB pool and the underlying connector.
func (c *replicaConn) Close() error {
	dbErr := c.sqlConn.Close()
	connErr := c.connector.Close()
	if dbErr != nil {
		return dbErr
	}
	return connErr
}
