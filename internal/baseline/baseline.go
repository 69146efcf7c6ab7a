// Package baseline manages the baseline snapshot: a database file plus its
// textual dump, jointly representing the last successfully pushed remote
// state. The two halves are always regenerated together so they stay
// logically equal; the baseline database serves as the diff's "from" state
// and the dump as its on-disk audit form.
package baseline

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/steveyegge/turso-sync/internal/db"
	"github.com/steveyegge/turso-sync/internal/engine"
)

// Manager owns the baseline database file and its dump file.
type Manager struct {
	DBPath   string
	DumpPath string

	logger *log.Logger
}

// NewManager creates a Manager for the given baseline paths. If logger is
// nil, a default logger writing to stderr is used.
func NewManager(dbPath, dumpPath string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[baseline] ", log.LstdFlags)
	}
	return &Manager{DBPath: dbPath, DumpPath: dumpPath, logger: logger}
}

// Exists reports whether the baseline database file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.DBPath)
	return err == nil
}

// Refresh pulls a fresh dump from remote and regenerates both baseline
// halves: the dump file and the materialized database. Returns the dump.
func (m *Manager) Refresh(ctx context.Context, remote db.Conn) (string, error) {
	dump, err := Dump(ctx, remote)
	if err != nil {
		return "", fmt.Errorf("failed to dump remote database: %w", err)
	}

	if err := os.WriteFile(m.DumpPath, []byte(dump), 0644); err != nil {
		return "", fmt.Errorf("failed to write baseline dump: %w", err)
	}

	if err := Materialize(ctx, dump, m.DBPath); err != nil {
		return "", fmt.Errorf("failed to materialize baseline database: %w", err)
	}

	m.logger.Printf("Refreshed baseline: %s (%d bytes) and %s", m.DumpPath, len(dump), m.DBPath)
	return dump, nil
}

// Snapshot copies the baseline database file to dst, replacing any existing
// file there. The copy is a plain file copy; callers must not have the
// baseline open for writing concurrently.
func (m *Manager) Snapshot(dst string) error {
	if !m.Exists() {
		return fmt.Errorf("baseline database %s does not exist (run dump-init first)", m.DBPath)
	}
	data, err := os.ReadFile(m.DBPath)
	if err != nil {
		return fmt.Errorf("failed to read baseline database: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", dst, err)
	}
	return nil
}

// Dump produces a full schema+data textual dump of conn's database:
// idempotent CREATE statements for user tables in name-sorted order, one
// INSERT per row with values in canonical literal form, then CREATE
// statements for indexes. Two dumps of an unchanged database are textually
// identical.
func Dump(ctx context.Context, conn db.Conn) (string, error) {
	var dump strings.Builder

	tableSQL, err := queryStrings(ctx, conn,
		"SELECT sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL ORDER BY name")
	if err != nil {
		return "", fmt.Errorf("failed to query table schemas: %w", err)
	}
	for _, create := range tableSQL {
		dump.WriteString(engine.MakeIdempotent(create))
		dump.WriteString(";\n")
	}

	tables, err := queryStrings(ctx, conn,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return "", fmt.Errorf("failed to query table names: %w", err)
	}

	for _, table := range tables {
		if err := dumpTable(ctx, conn, table, &dump); err != nil {
			return "", fmt.Errorf("failed to dump table %s: %w", table, err)
		}
	}

	indexSQL, err := queryStrings(ctx, conn,
		"SELECT sql FROM sqlite_master WHERE type='index' AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL ORDER BY name")
	if err != nil {
		return "", fmt.Errorf("failed to query index schemas: %w", err)
	}
	for _, create := range indexSQL {
		dump.WriteString(engine.MakeIdempotent(create))
		dump.WriteString(";\n")
	}

	return dump.String(), nil
}

// Materialize rebuilds a database file from a dump: any existing file at
// dbPath is deleted, a fresh database is created, and the dump is replayed
// through a local connection.
func Materialize(ctx context.Context, dumpSQL, dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to remove existing database %s: %w", dbPath, err)
		}
	}

	conn, err := db.OpenLocal(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", dbPath, err)
	}
	defer conn.Close()

	if strings.TrimSpace(dumpSQL) == "" {
		return nil
	}

	if err := conn.ExecuteBatch(ctx, dumpSQL); err != nil {
		return fmt.Errorf("failed to replay dump into %s: %w", dbPath, err)
	}
	return nil
}

// dumpTable appends one INSERT per row of table to dump.
func dumpTable(ctx context.Context, conn db.Conn, table string, dump *strings.Builder) error {
	columns, err := queryColumns(ctx, conn, table)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}

	rows, err := conn.Query(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return err
	}
	defer rows.Close()

	insertPrefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES (", table, strings.Join(columns, ", "))

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return err
		}
		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = renderLiteral(v)
		}
		dump.WriteString(insertPrefix)
		dump.WriteString(strings.Join(literals, ", "))
		dump.WriteString(");\n")
	}
	return rows.Err()
}

// queryColumns returns table's column names via PRAGMA table_info.
func queryColumns(ctx context.Context, conn db.Conn, table string) ([]string, error) {
	rows, err := conn.Query(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// queryStrings returns the first column of every row as a string slice.
func queryStrings(ctx context.Context, conn db.Conn, query string) ([]string, error) {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out, rows.Err()
}

// renderLiteral renders a scanned value in canonical SQL literal form:
// NULL, numeric text form, quote-doubled text, or X'hex' blob literal.
func renderLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'"
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(val), "'", "''") + "'"
	}
}

// quoteIdent quotes a SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
