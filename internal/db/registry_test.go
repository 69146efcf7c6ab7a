package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestConn(t *testing.T, dir, name string) Conn {
	t.Helper()

	conn, err := OpenLocal(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return conn
}

func TestRegistry_CreateLookupDispose(t *testing.T) {
	tmpDir := t.TempDir()
	reg := NewRegistry()

	conn := openTestConn(t, tmpDir, "a.db")
	handle := reg.Create(conn)
	if handle == "" {
		t.Fatal("empty handle")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	got, err := reg.Lookup(handle)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := got.Execute(context.Background(), "PRAGMA user_version=0"); err != nil {
		t.Errorf("looked-up connection unusable: %v", err)
	}

	if err := reg.Dispose(handle); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after dispose = %d, want 0", reg.Len())
	}
	if _, err := reg.Lookup(handle); err == nil {
		t.Error("Lookup of disposed handle should fail")
	}
	if err := reg.Dispose(handle); err == nil {
		t.Error("double Dispose should fail")
	}
}

func TestRegistry_UniqueHandles(t *testing.T) {
	tmpDir := t.TempDir()
	reg := NewRegistry()
	defer reg.Close()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		h := reg.Create(openTestConn(t, tmpDir, filepath.Base(t.Name())+string(rune('a'+i))+".db"))
		if seen[h] {
			t.Fatalf("duplicate handle %q", h)
		}
		seen[h] = true
	}
	if reg.Len() != 5 {
		t.Errorf("Len() = %d, want 5", reg.Len())
	}
}

func TestRegistry_Close(t *testing.T) {
	tmpDir := t.TempDir()
	reg := NewRegistry()

	h1 := reg.Create(openTestConn(t, tmpDir, "x.db"))
	h2 := reg.Create(openTestConn(t, tmpDir, "y.db"))

	if err := reg.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", reg.Len())
	}
	for _, h := range []string{h1, h2} {
		if _, err := reg.Lookup(h); err == nil {
			t.Errorf("handle %q survived Close", h)
		}
	}
}

func TestOpenLocal_CreatesFileAndExecutes(t *testing.T) {
	conn := openTestConn(t, t.TempDir(), "local.db")
	defer conn.Close()

	ctx := context.Background()
	if _, err := conn.Execute(ctx, "CREATE TABLE t(a)"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	affected, err := conn.Execute(ctx, "INSERT INTO t VALUES(1)")
	if err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	if err := conn.ExecuteBatch(ctx, "INSERT INTO t VALUES(2);\nINSERT INTO t VALUES(3);"); err != nil {
		t.Fatalf("ExecuteBatch failed: %v", err)
	}

	rows, err := conn.Query(ctx, "SELECT COUNT(*) FROM t")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	var count int
	if !rows.Next() {
		t.Fatal("no count row")
	}
	if err := rows.Scan(&count); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
