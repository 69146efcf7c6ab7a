package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// OpenRemote opens a direct connection to a remote Turso database over the
// libsql driver. No local replica file is created; every statement is a
// network round trip.
//
// The caller MUST call Close() when done.
func OpenRemote(dbURL, authToken string) (Conn, error) {
	dsn := dbURL
	if authToken != "" {
		sep := "?"
		if strings.Contains(dbURL, "?") {
			sep = "&"
		}
		dsn = dbURL + sep + "authToken=" + url.QueryEscape(authToken)
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database %s: %w", dbURL, err)
	}

	return &sqlConn{db: conn}, nil
}
