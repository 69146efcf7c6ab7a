package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/steveyegge/turso-sync/internal/baseline"
	"github.com/steveyegge/turso-sync/internal/db"
	"github.com/steveyegge/turso-sync/internal/diff"
	"github.com/steveyegge/turso-sync/internal/engine"
)

// Direction selects which way OfflineSync moves changes.
type Direction string

const (
	DirectionPull Direction = "pull"
	DirectionPush Direction = "push"
	DirectionBoth Direction = "both"
)

// Config holds the orchestrator's connection settings and file locations.
type Config struct {
	// URL and Token identify the remote Turso database.
	URL   string
	Token string

	// DiffFile is where the generated diff SQL is written, overwritten per
	// push and retained for audit.
	DiffFile string

	// BaselineDB and BaselineDump locate the baseline snapshot pair.
	BaselineDB   string
	BaselineDump string

	// Sizes bounds batch statement counts per category.
	Sizes engine.BatchSizes

	// PriorityTables restricts batched DELETE/INSERT execution to the named
	// tables; empty batches all tables.
	PriorityTables []string

	// Diff is the external diff collaborator.
	Diff *diff.Tool

	// Logger for workflow progress. Nil means stderr.
	Logger *log.Logger
}

// DefaultConfig returns a Config with the conventional file locations.
func DefaultConfig() *Config {
	return &Config{
		DiffFile:     "diff.sql",
		BaselineDB:   "baseline.db",
		BaselineDump: "original_dump.sql",
		Sizes:        engine.DefaultBatchSizes(),
		Diff:         diff.New(),
	}
}

// Orchestrator sequences the sync workflows. One Orchestrator may run many
// operations, but operations against the same baseline/working pair must not
// run concurrently.
type Orchestrator struct {
	cfg      *Config
	baseline *baseline.Manager
	logger   *log.Logger
}

// New creates an Orchestrator from cfg, filling in defaults for unset
// fields.
func New(cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if cfg.Diff == nil {
		cfg.Diff = diff.New()
	}
	if cfg.DiffFile == "" {
		cfg.DiffFile = "diff.sql"
	}
	if cfg.BaselineDB == "" {
		cfg.BaselineDB = "baseline.db"
	}
	if cfg.BaselineDump == "" {
		cfg.BaselineDump = "original_dump.sql"
	}
	if cfg.Sizes == (engine.BatchSizes{}) {
		cfg.Sizes = engine.DefaultBatchSizes()
	}
	return &Orchestrator{
		cfg:      cfg,
		baseline: baseline.NewManager(cfg.BaselineDB, cfg.BaselineDump, cfg.Logger),
		logger:   cfg.Logger,
	}
}

// Baseline exposes the baseline manager (for status reporting).
func (o *Orchestrator) Baseline() *baseline.Manager {
	return o.baseline
}

// ReplicaSync pulls the remote state into the embedded replica at
// replicaPath with a single Sync() call.
func (o *Orchestrator) ReplicaSync(ctx context.Context, replicaPath string) error {
	o.logger.Printf("Syncing remote into replica %s", replicaPath)

	conn, err := db.OpenReplica(replicaPath, o.cfg.URL, o.cfg.Token, db.ReplicaOptions{})
	if err != nil {
		return fmt.Errorf("failed to open embedded replica: %w", err)
	}
	defer conn.Close()

	if err := conn.(db.Syncer).Sync(); err != nil {
		return fmt.Errorf("failed to sync replica: %w", err)
	}

	o.logger.Printf("Replica %s synced", replicaPath)
	return nil
}

// CopyDatabase copies the database file at src to dst.
func (o *Orchestrator) CopyDatabase(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source database %s does not exist: %w", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	o.logger.Printf("Copied %s to %s (%d bytes)", src, dst, len(data))
	return nil
}

// Push diffs the local replica against the working copy and replays the
// result onto the remote via a temporary push replica, then refreshes the
// local replica. The temporary replica is removed on success and failure.
func (o *Orchestrator) Push(ctx context.Context, replicaPath, workingPath string) (engine.Report, error) {
	var report engine.Report

	for _, path := range []string{replicaPath, workingPath} {
		if _, err := os.Stat(path); err != nil {
			return report, fmt.Errorf("database %s does not exist: %w", path, err)
		}
	}

	diffSQL, err := o.cfg.Diff.Diff(ctx, replicaPath, workingPath)
	if err != nil {
		return report, err
	}
	if strings.TrimSpace(diffSQL) == "" {
		o.logger.Printf("No changes detected, databases are identical")
		return report, nil
	}

	if err := o.writeDiffFile(diffSQL); err != nil {
		return report, err
	}

	tempReplica := filepath.Join(filepath.Dir(workingPath), "temp_push_replica.db")
	defer os.Remove(tempReplica)

	conn, err := db.OpenReplica(tempReplica, o.cfg.URL, o.cfg.Token, db.ReplicaOptions{})
	if err != nil {
		return report, fmt.Errorf("failed to open push replica: %w", err)
	}
	defer conn.Close()

	// Pull the latest remote state before replaying the diff on top of it.
	if err := conn.(db.Syncer).Sync(); err != nil {
		return report, fmt.Errorf("failed to sync push replica: %w", err)
	}

	report, err = o.applyText(ctx, conn, diffSQL)
	if err != nil {
		return report, err
	}

	if err := conn.(db.Syncer).Sync(); err != nil {
		return report, fmt.Errorf("failed to sync changes to remote: %w", err)
	}

	// Bring the local replica up to the new remote state.
	if err := o.ReplicaSync(ctx, replicaPath); err != nil {
		return report, err
	}
	return report, nil
}

// DumpInit initializes the local databases from a full remote dump: the
// baseline pair is created and the baseline is copied to workingPath.
func (o *Orchestrator) DumpInit(ctx context.Context, workingPath string) error {
	o.logger.Printf("Initializing from remote dump")

	remote, err := db.OpenRemote(o.cfg.URL, o.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to remote database: %w", err)
	}
	defer remote.Close()

	if _, err := o.baseline.Refresh(ctx, remote); err != nil {
		return err
	}

	if err := o.baseline.Snapshot(workingPath); err != nil {
		return err
	}

	o.logger.Printf("Initialized baseline %s and working copy %s", o.cfg.BaselineDB, workingPath)
	return nil
}

// DumpPush pushes working-copy changes to the remote using the dump-based
// workflow: snapshot baseline, diff against the working copy, replay the
// diff onto the remote, and rebuild the baseline from a fresh remote dump.
// The temporary snapshot is removed on both success and failure paths.
func (o *Orchestrator) DumpPush(ctx context.Context, workingPath string) (engine.Report, error) {
	var report engine.Report

	if _, err := os.Stat(workingPath); err != nil {
		return report, fmt.Errorf("working database %s does not exist: %w", workingPath, err)
	}

	tempSnapshot := filepath.Join(filepath.Dir(o.cfg.BaselineDB), "temp_original.db")
	if err := o.baseline.Snapshot(tempSnapshot); err != nil {
		return report, err
	}
	defer os.Remove(tempSnapshot)

	diffSQL, err := o.cfg.Diff.Diff(ctx, tempSnapshot, workingPath)
	if err != nil {
		return report, err
	}
	if strings.TrimSpace(diffSQL) == "" {
		o.logger.Printf("No changes detected, databases are identical")
		return report, nil
	}

	if err := o.writeDiffFile(diffSQL); err != nil {
		return report, err
	}

	remote, err := db.OpenRemote(o.cfg.URL, o.cfg.Token)
	if err != nil {
		return report, fmt.Errorf("failed to connect to remote database: %w", err)
	}
	defer remote.Close()

	report, err = o.applyText(ctx, remote, diffSQL)
	if err != nil {
		return report, err
	}

	// The push landed; regenerate both baseline halves from the remote so
	// the next diff starts from the state we just produced.
	if _, err := o.baseline.Refresh(ctx, remote); err != nil {
		return report, err
	}
	return report, nil
}

// OfflineSync synchronizes dbPath with the remote through the replication
// primitive only. Both directions use the same idempotent Sync() call; with
// DirectionBoth a table-count health check runs between pull and push.
func (o *Orchestrator) OfflineSync(ctx context.Context, dbPath string, direction Direction) error {
	conn, err := db.OpenReplica(dbPath, o.cfg.URL, o.cfg.Token, db.ReplicaOptions{})
	if err != nil {
		return fmt.Errorf("failed to open synced database: %w", err)
	}
	defer conn.Close()

	syncer := conn.(db.Syncer)

	switch direction {
	case DirectionPull:
		o.logger.Printf("Pulling changes from remote")
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("failed to pull from remote: %w", err)
		}
	case DirectionPush:
		o.logger.Printf("Pushing changes to remote")
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("failed to push to remote: %w", err)
		}
	default:
		o.logger.Printf("Syncing bidirectionally")
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("failed to pull from remote: %w", err)
		}
		if count, err := o.tableCount(ctx, conn); err != nil {
			o.logger.Printf("WARNING: could not query database schema: %v", err)
		} else {
			o.logger.Printf("Local database contains %d tables", count)
		}
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("failed to push to remote: %w", err)
		}
	}

	o.logger.Printf("Offline sync complete for %s", dbPath)
	return nil
}

// ApplyDiff reads a diff file from disk and replays it against dbPath.
// With noSync the connection is local-only; otherwise an embedded replica
// connection is used and Sync() is called after a successful apply.
// An empty diff completes without opening the connection.
func (o *Orchestrator) ApplyDiff(ctx context.Context, dbPath, diffFile string, noSync bool) (engine.Report, error) {
	var report engine.Report

	if _, err := os.Stat(dbPath); err != nil {
		return report, fmt.Errorf("database %s does not exist: %w", dbPath, err)
	}
	data, err := os.ReadFile(diffFile)
	if err != nil {
		return report, fmt.Errorf("failed to read diff file %s: %w", diffFile, err)
	}

	if len(engine.Parse(string(data))) == 0 {
		o.logger.Printf("No changes detected, diff file is empty")
		return report, nil
	}
	o.logger.Printf("Read diff file %s (%d bytes)", diffFile, len(data))

	var conn db.Conn
	if noSync {
		conn, err = db.OpenLocal(dbPath)
	} else {
		conn, err = db.OpenReplica(dbPath, o.cfg.URL, o.cfg.Token, db.ReplicaOptions{})
	}
	if err != nil {
		return report, fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	report, err = o.applyText(ctx, conn, string(data))
	if err != nil {
		return report, err
	}

	if !noSync {
		o.logger.Printf("Syncing applied changes to remote")
		if err := conn.(db.Syncer).Sync(); err != nil {
			return report, fmt.Errorf("failed to sync to remote: %w", err)
		}
	}
	return report, nil
}

// applyText runs the full engine pipeline over diffSQL against conn:
// parse, classify, rewrite, plan, execute.
func (o *Orchestrator) applyText(ctx context.Context, conn db.Conn, diffSQL string) (engine.Report, error) {
	stmts := engine.Parse(diffSQL)
	if len(stmts) == 0 {
		return engine.Report{}, nil
	}

	buckets := engine.Classify(stmts, engine.ClassifyOptions{Tables: o.cfg.PriorityTables})
	engine.RewriteCreates(&buckets)

	o.logger.Printf("Classified %d statements: CREATE=%d DELETE=%d INSERT=%d OTHER=%d",
		buckets.Total(), len(buckets.Create), len(buckets.Delete), len(buckets.Insert), len(buckets.Other))

	plan := engine.PlanBatches(buckets, o.cfg.Sizes)
	session := engine.NewSession(conn, o.logger)
	return session.Run(ctx, plan)
}

// tableCount returns the number of user-visible tables, as a basic health
// check between sync directions.
func (o *Orchestrator) tableCount(ctx context.Context, conn db.Conn) (int, error) {
	rows, err := conn.Query(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table'")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int
	if !rows.Next() {
		return 0, rows.Err()
	}
	if err := rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, rows.Err()
}

// writeDiffFile persists diffSQL to the configured diff file for audit.
func (o *Orchestrator) writeDiffFile(diffSQL string) error {
	if err := os.WriteFile(o.cfg.DiffFile, []byte(diffSQL), 0644); err != nil {
		return fmt.Errorf("failed to write diff file %s: %w", o.cfg.DiffFile, err)
	}
	o.logger.Printf("Generated diff SQL (%d bytes), saved to %s", len(diffSQL), o.cfg.DiffFile)
	return nil
}
