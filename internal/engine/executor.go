package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/steveyegge/turso-sync/internal/db"
)

// Policy bounds one batch attempt in time and retries.
type Policy struct {
	// MaxRetries is the number of re-attempts after the initial failure.
	MaxRetries int

	// AttemptTimeout bounds the initial attempt.
	AttemptTimeout time.Duration

	// RetryTimeout bounds each retry attempt; shorter than AttemptTimeout
	// so a persistently slow endpoint fails fast on the second try.
	RetryTimeout time.Duration

	// InterBatchDelay is an optional pause between batches to avoid
	// overwhelming the remote endpoint.
	InterBatchDelay time.Duration
}

// DefaultPolicy returns the retry policy for category c: one retry with a
// shorter timeout. DELETE and INSERT batches get longer windows and an
// inter-batch delay because their payloads are large.
func DefaultPolicy(c Category) Policy {
	switch c {
	case CategoryDelete:
		return Policy{MaxRetries: 1, AttemptTimeout: 15 * time.Second, RetryTimeout: 10 * time.Second, InterBatchDelay: 100 * time.Millisecond}
	case CategoryInsert:
		return Policy{MaxRetries: 1, AttemptTimeout: 20 * time.Second, RetryTimeout: 15 * time.Second, InterBatchDelay: 100 * time.Millisecond}
	default:
		return Policy{MaxRetries: 1, AttemptTimeout: 10 * time.Second, RetryTimeout: 10 * time.Second}
	}
}

// TerminalError reports a batch that failed after exhausting its retry
// budget. Batches applied in earlier categories remain applied; there is no
// cross-batch rollback.
type TerminalError struct {
	Category Category
	Batch    int // 1-based index within the category
	Attempts int
	Timeout  bool
	Err      error
}

func (e *TerminalError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	return fmt.Sprintf("%s batch %d %s after %d attempts: %v", e.Category, e.Batch, kind, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// CategoryReport counts one category's work within a session.
type CategoryReport struct {
	Statements int
	Batches    int
	Affected   int64
	Elapsed    time.Duration
}

// Report holds per-session execution counters. Affected counts are advisory:
// batched execution does not report affected rows on all endpoints.
type Report struct {
	Statements int
	Batches    int
	Affected   int64
	Elapsed    time.Duration
	Categories map[Category]CategoryReport
}

// Session executes one batch plan against a single connection. It holds the
// retry policy and per-category counters, is scoped to one push or apply
// operation, and is discarded after.
type Session struct {
	conn     db.Conn
	policies map[Category]Policy
	logger   *log.Logger
}

// NewSession creates a session over conn with the default per-category
// policies. If logger is nil, a default logger writing to stderr is used.
func NewSession(conn db.Conn, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	policies := make(map[Category]Policy, len(Categories))
	for _, c := range Categories {
		policies[c] = DefaultPolicy(c)
	}
	return &Session{
		conn:     conn,
		policies: policies,
		logger:   logger,
	}
}

// SetPolicy overrides the retry policy for category c.
func (s *Session) SetPolicy(c Category, p Policy) {
	s.policies[c] = p
}

// Run executes the plan's batches strictly in order. On the first batch that
// fails after its retry budget, Run stops and returns a *TerminalError;
// earlier batches remain applied. An empty plan completes without touching
// the connection.
func (s *Session) Run(ctx context.Context, plan Plan) (Report, error) {
	report := Report{Categories: make(map[Category]CategoryReport)}
	if plan.Empty() {
		return report, nil
	}

	start := time.Now()
	var current Category = -1
	var catStart time.Time

	finishCategory := func() {
		if current < 0 {
			return
		}
		cr := report.Categories[current]
		cr.Elapsed = time.Since(catStart)
		report.Categories[current] = cr
		if cr.Batches > 0 {
			s.logger.Printf("Completed %d %s statements in %d batches (%.2fs)",
				cr.Statements, current, cr.Batches, cr.Elapsed.Seconds())
		}
	}

	for _, batch := range plan.Batches {
		if batch.Category != current {
			finishCategory()
			current = batch.Category
			catStart = time.Now()
		}

		pol := s.policies[batch.Category]
		affected, err := s.runBatch(ctx, batch, pol)
		if err != nil {
			finishCategory()
			report.Elapsed = time.Since(start)
			return report, err
		}

		cr := report.Categories[batch.Category]
		cr.Statements += batch.Count
		cr.Batches++
		cr.Affected += affected
		report.Categories[batch.Category] = cr
		report.Statements += batch.Count
		report.Batches++
		report.Affected += affected

		s.logger.Printf("%s batch %d done (%d statements)", batch.Category, batch.Index, batch.Count)

		if pol.InterBatchDelay > 0 {
			select {
			case <-time.After(pol.InterBatchDelay):
			case <-ctx.Done():
				report.Elapsed = time.Since(start)
				return report, ctx.Err()
			}
		}
	}

	finishCategory()
	report.Elapsed = time.Since(start)
	s.logger.Printf("Applied %d statements in %d batches (%.2fs)",
		report.Statements, report.Batches, report.Elapsed.Seconds())
	return report, nil
}

// runBatch executes one batch with a bounded attempt window and the policy's
// retry budget. A timeout cancels only the waiting, not work the remote may
// already have accepted, so the outcome of a timed-out attempt is unknown.
func (s *Session) runBatch(ctx context.Context, batch Batch, pol Policy) (int64, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= pol.MaxRetries; attempt++ {
		timeout := pol.AttemptTimeout
		if attempt > 0 {
			timeout = pol.RetryTimeout
			s.logger.Printf("%s batch %d failed, retrying with %s timeout: %v",
				batch.Category, batch.Index, timeout, lastErr)
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		var affected int64
		var err error
		if batch.Count == 1 {
			affected, err = s.conn.Execute(attemptCtx, batch.SQL)
		} else {
			err = s.conn.ExecuteBatch(attemptCtx, batch.SQL)
		}
		if cancel != nil {
			cancel()
		}

		attempts++
		if err == nil {
			return affected, nil
		}
		lastErr = err

		// The enclosing operation was cancelled; don't burn retries on it.
		if ctx.Err() != nil {
			break
		}
	}

	return 0, &TerminalError{
		Category: batch.Category,
		Batch:    batch.Index,
		Attempts: attempts,
		Timeout:  errors.Is(lastErr, context.DeadlineExceeded),
		Err:      lastErr,
	}
}
