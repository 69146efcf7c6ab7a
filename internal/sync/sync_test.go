package sync

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/steveyegge/turso-sync/internal/db"
)

// newTestOrchestrator creates an orchestrator with file locations scoped to
// a temp directory.
func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DiffFile = filepath.Join(tmpDir, "diff.sql")
	cfg.BaselineDB = filepath.Join(tmpDir, "baseline.db")
	cfg.BaselineDump = filepath.Join(tmpDir, "original_dump.sql")
	cfg.Logger = log.New(io.Discard, "", 0)
	return New(cfg), tmpDir
}

// createLocalDB creates an empty local database file.
func createLocalDB(t *testing.T, path string) {
	t.Helper()

	conn, err := db.OpenLocal(path)
	if err != nil {
		t.Fatalf("failed to create database %s: %v", path, err)
	}
	// Force the file into existence.
	if _, err := conn.Execute(context.Background(), "PRAGMA user_version=0"); err != nil {
		t.Fatalf("failed to touch database: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("failed to close database: %v", err)
	}
}

func TestApplyDiff_LocalEndToEnd(t *testing.T) {
	orch, tmpDir := newTestOrchestrator(t)
	ctx := context.Background()

	dbPath := filepath.Join(tmpDir, "working.db")
	createLocalDB(t, dbPath)

	diffFile := filepath.Join(tmpDir, "apply.sql")
	diffSQL := "BEGIN TRANSACTION;\nCREATE TABLE t(a INTEGER PRIMARY KEY, b TEXT);\nINSERT INTO t VALUES(1,'one');\nINSERT INTO t VALUES(2,'two');\nCOMMIT;"
	if err := os.WriteFile(diffFile, []byte(diffSQL), 0644); err != nil {
		t.Fatalf("failed to write diff file: %v", err)
	}

	report, err := orch.ApplyDiff(ctx, dbPath, diffFile, true)
	if err != nil {
		t.Fatalf("ApplyDiff failed: %v", err)
	}
	if report.Statements != 3 {
		t.Errorf("report.Statements = %d, want 3", report.Statements)
	}

	conn, err := db.OpenLocal(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer conn.Close()

	rows, err := conn.Query(ctx, "SELECT COUNT(*) FROM t")
	if err != nil {
		t.Fatalf("applied table missing: %v", err)
	}
	defer rows.Close()

	var count int
	if !rows.Next() {
		t.Fatal("no count row")
	}
	if err := rows.Scan(&count); err != nil {
		t.Fatalf("failed to scan count: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
}

func TestApplyDiff_Reapply(t *testing.T) {
	// At-least-once semantics: re-applying a diff whose CREATE was made
	// idempotent must not fail on the schema statement.
	orch, tmpDir := newTestOrchestrator(t)
	ctx := context.Background()

	dbPath := filepath.Join(tmpDir, "working.db")
	createLocalDB(t, dbPath)

	diffFile := filepath.Join(tmpDir, "apply.sql")
	diffSQL := "CREATE TABLE t(id INTEGER PRIMARY KEY);\nDELETE FROM t WHERE id=1;\nINSERT INTO t VALUES(1);"
	if err := os.WriteFile(diffFile, []byte(diffSQL), 0644); err != nil {
		t.Fatalf("failed to write diff file: %v", err)
	}

	if _, err := orch.ApplyDiff(ctx, dbPath, diffFile, true); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := orch.ApplyDiff(ctx, dbPath, diffFile, true); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
}

func TestApplyDiff_EmptyDiff(t *testing.T) {
	orch, tmpDir := newTestOrchestrator(t)

	dbPath := filepath.Join(tmpDir, "working.db")
	createLocalDB(t, dbPath)

	diffFile := filepath.Join(tmpDir, "empty.sql")
	if err := os.WriteFile(diffFile, []byte("BEGIN TRANSACTION;\nCOMMIT;\n"), 0644); err != nil {
		t.Fatalf("failed to write diff file: %v", err)
	}

	report, err := orch.ApplyDiff(context.Background(), dbPath, diffFile, true)
	if err != nil {
		t.Fatalf("ApplyDiff failed on empty diff: %v", err)
	}
	if report.Statements != 0 || report.Batches != 0 {
		t.Errorf("empty diff executed work: %+v", report)
	}
}

func TestApplyDiff_Preconditions(t *testing.T) {
	orch, tmpDir := newTestOrchestrator(t)
	ctx := context.Background()

	dbPath := filepath.Join(tmpDir, "working.db")
	diffFile := filepath.Join(tmpDir, "apply.sql")

	// Missing database.
	if err := os.WriteFile(diffFile, []byte("INSERT INTO t VALUES(1);"), 0644); err != nil {
		t.Fatalf("failed to write diff file: %v", err)
	}
	if _, err := orch.ApplyDiff(ctx, dbPath, diffFile, true); err == nil {
		t.Error("expected error for missing database")
	}

	// Missing diff file.
	createLocalDB(t, dbPath)
	if _, err := orch.ApplyDiff(ctx, dbPath, filepath.Join(tmpDir, "nope.sql"), true); err == nil {
		t.Error("expected error for missing diff file")
	}
}

func TestCopyDatabase(t *testing.T) {
	orch, tmpDir := newTestOrchestrator(t)

	src := filepath.Join(tmpDir, "src.db")
	dst := filepath.Join(tmpDir, "dst.db")

	if err := orch.CopyDatabase(src, dst); err == nil {
		t.Error("expected error for missing source")
	}

	createLocalDB(t, src)
	if err := orch.CopyDatabase(src, dst); err != nil {
		t.Fatalf("CopyDatabase failed: %v", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat src: %v", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat dst: %v", err)
	}
	if srcInfo.Size() != dstInfo.Size() {
		t.Errorf("copy size mismatch: %d != %d", srcInfo.Size(), dstInfo.Size())
	}
}

func TestDumpPush_RequiresBaseline(t *testing.T) {
	orch, tmpDir := newTestOrchestrator(t)

	working := filepath.Join(tmpDir, "working.db")
	createLocalDB(t, working)

	if _, err := orch.DumpPush(context.Background(), working); err == nil {
		t.Error("expected error when baseline is missing")
	}
}
