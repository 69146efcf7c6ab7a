package engine

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

// fakeConn records execution calls and fails a configurable number of times.
type fakeConn struct {
	executes          []string
	batches           []string
	failures          int
	batchOnlyFailures int
	failErr           error
	failCalls         int
}

func (f *fakeConn) Execute(ctx context.Context, stmt string) (int64, error) {
	if err := f.maybeFail(); err != nil {
		return 0, err
	}
	f.executes = append(f.executes, stmt)
	return 1, nil
}

func (f *fakeConn) ExecuteBatch(ctx context.Context, script string) error {
	if f.batchOnlyFailures > 0 {
		f.batchOnlyFailures--
		f.failCalls++
		return errors.New("batch boom")
	}
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.batches = append(f.batches, script)
	return nil
}

func (f *fakeConn) maybeFail() error {
	if f.failures > 0 {
		f.failures--
		f.failCalls++
		if f.failErr != nil {
			return f.failErr
		}
		return errors.New("boom")
	}
	return nil
}

func (f *fakeConn) Query(ctx context.Context, query string) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) Path() string { return "" }
func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) calls() int {
	return len(f.executes) + len(f.batches) + f.failCalls
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func quickPolicy() Policy {
	return Policy{MaxRetries: 1, AttemptTimeout: time.Second, RetryTimeout: time.Second}
}

func insertPlan(n, batchSize int) Plan {
	return PlanBatches(Buckets{Insert: makeBucket(CategoryInsert, n)}, BatchSizes{
		Create: 1, Delete: 1, Insert: batchSize, Other: 1,
	})
}

func TestSessionRun_Success(t *testing.T) {
	conn := &fakeConn{}
	session := NewSession(conn, testLogger())

	report, err := session.Run(context.Background(), insertPlan(5, 2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Statements != 5 || report.Batches != 3 {
		t.Errorf("report = %d statements / %d batches, want 5 / 3", report.Statements, report.Batches)
	}
	cr := report.Categories[CategoryInsert]
	if cr.Statements != 5 || cr.Batches != 3 {
		t.Errorf("INSERT category report = %+v", cr)
	}
	// Multi-statement batches use ExecuteBatch, the final single-statement
	// batch uses Execute.
	if len(conn.batches) != 2 || len(conn.executes) != 1 {
		t.Errorf("calls = %d batch / %d single, want 2 / 1", len(conn.batches), len(conn.executes))
	}
}

func TestSessionRun_RetrySucceeds(t *testing.T) {
	conn := &fakeConn{failures: 1}
	session := NewSession(conn, testLogger())
	session.SetPolicy(CategoryInsert, quickPolicy())

	report, err := session.Run(context.Background(), insertPlan(4, 2))
	if err != nil {
		t.Fatalf("Run failed despite retry budget: %v", err)
	}
	if report.Batches != 2 {
		t.Errorf("report.Batches = %d, want 2", report.Batches)
	}
}

func TestSessionRun_TerminalFailure(t *testing.T) {
	// Both the initial attempt and the single retry fail.
	conn := &fakeConn{failures: 2}
	session := NewSession(conn, testLogger())
	session.SetPolicy(CategoryInsert, quickPolicy())

	_, err := session.Run(context.Background(), insertPlan(4, 2))
	if err == nil {
		t.Fatal("expected terminal error")
	}

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("error is %T, want *TerminalError", err)
	}
	if terminal.Category != CategoryInsert {
		t.Errorf("terminal.Category = %s, want INSERT", terminal.Category)
	}
	if terminal.Batch != 1 {
		t.Errorf("terminal.Batch = %d, want 1", terminal.Batch)
	}
	if terminal.Attempts != 2 {
		t.Errorf("terminal.Attempts = %d, want 2", terminal.Attempts)
	}
	// No third attempt, and the second batch was never started.
	if conn.calls() != 2 {
		t.Errorf("connection saw %d calls, want 2", conn.calls())
	}
}

func TestSessionRun_TimeoutMarked(t *testing.T) {
	conn := &fakeConn{failures: 2, failErr: context.DeadlineExceeded}
	session := NewSession(conn, testLogger())
	session.SetPolicy(CategoryInsert, quickPolicy())

	_, err := session.Run(context.Background(), insertPlan(2, 2))

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("error is %T, want *TerminalError", err)
	}
	if !terminal.Timeout {
		t.Errorf("terminal.Timeout = false, want true")
	}
}

func TestSessionRun_EmptyPlanSkipsConnection(t *testing.T) {
	conn := &fakeConn{}
	session := NewSession(conn, testLogger())

	report, err := session.Run(context.Background(), Plan{})
	if err != nil {
		t.Fatalf("Run failed on empty plan: %v", err)
	}
	if report.Statements != 0 {
		t.Errorf("report.Statements = %d, want 0", report.Statements)
	}
	if conn.calls() != 0 {
		t.Errorf("empty plan touched the connection %d times", conn.calls())
	}
}

func TestSessionRun_EarlierCategoriesRemainApplied(t *testing.T) {
	// The CREATE (single-statement, Execute path) succeeds; the INSERT
	// batch (ExecuteBatch path) fails terminally. The applied CREATE stays
	// applied and is reported.
	conn := &fakeConn{batchOnlyFailures: 2}
	session := NewSession(conn, testLogger())
	session.SetPolicy(CategoryInsert, quickPolicy())

	buckets := Buckets{
		Create: []Statement{{SQL: "CREATE TABLE IF NOT EXISTS t(a)", Category: CategoryCreate}},
		Insert: makeBucket(CategoryInsert, 2),
	}
	plan := PlanBatches(buckets, BatchSizes{Create: 1, Delete: 1, Insert: 2, Other: 1})

	report, err := session.Run(context.Background(), plan)
	if err == nil {
		t.Fatal("expected INSERT failure")
	}

	var terminal *TerminalError
	if !errors.As(err, &terminal) || terminal.Category != CategoryInsert {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conn.executes) != 1 {
		t.Errorf("CREATE was not applied exactly once: %v", conn.executes)
	}
	if report.Statements != 1 {
		t.Errorf("applied statements = %d, want 1 (the CREATE)", report.Statements)
	}
	if report.Categories[CategoryCreate].Batches != 1 {
		t.Errorf("CREATE category report = %+v", report.Categories[CategoryCreate])
	}
}
