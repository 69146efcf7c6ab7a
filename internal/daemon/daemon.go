// Package daemon provides the watch daemon that pushes working-copy changes
// automatically.
//
// The daemon:
// 1. Watches the working copy's directory for writes to the database file
// 2. Debounces bursts of writes (SQLite touches the journal repeatedly)
// 3. Triggers a dump-diff push once the file has settled
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/steveyegge/turso-sync/internal/engine"
)

// Pusher pushes working-copy changes to the remote.
type Pusher interface {
	DumpPush(ctx context.Context, workingPath string) (engine.Report, error)
}

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long the working copy must be quiet before a
	// push is triggered. This batches rapid writes together.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 2 * time.Second,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches a working-copy database and pushes changes when it settles.
type Daemon struct {
	pusher      Pusher
	workingPath string
	config      *Config

	watcher *fsnotify.Watcher

	mu          sync.Mutex
	dirty       bool
	lastChange  time.Time
	pushCount   int
	failCount   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance. Use Start() to begin watching.
func New(pusher Pusher, workingPath string) (*Daemon, error) {
	return NewWithConfig(pusher, workingPath, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(pusher Pusher, workingPath string, config *Config) (*Daemon, error) {
	if pusher == nil {
		return nil, fmt.Errorf("pusher cannot be nil")
	}
	if workingPath == "" {
		return nil, fmt.Errorf("workingPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		pusher:      pusher,
		workingPath: workingPath,
		config:      config,
		watcher:     watcher,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins watching the working copy. This blocks until ctx is cancelled
// or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	if _, err := os.Stat(d.workingPath); err != nil {
		return fmt.Errorf("working database %s does not exist: %w", d.workingPath, err)
	}

	// Watch the directory, not the file: SQLite replaces and renames journal
	// files next to the database, and watching the file directly misses
	// those.
	dir := filepath.Dir(d.workingPath)
	if err := d.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	d.config.Logger.Printf("Watching %s (debounce %v)", d.workingPath, d.config.DebounceInterval)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.pushLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Printf("Daemon stopped (%d pushes, %d failures)", d.PushCount(), d.failCount)
	return nil
}

// PushCount returns the number of successful pushes since Start.
func (d *Daemon) PushCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pushCount
}

// watchFileEvents monitors filesystem events and marks the working copy
// dirty.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !d.isWorkingCopyEvent(event.Name) {
				continue
			}

			d.mu.Lock()
			d.dirty = true
			d.lastChange = time.Now()
			d.mu.Unlock()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// isWorkingCopyEvent reports whether path is the working copy or one of its
// SQLite sidecar files (-wal, -shm, -journal).
func (d *Daemon) isWorkingCopyEvent(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	target, err := filepath.Abs(d.workingPath)
	if err != nil {
		return false
	}
	return abs == target || strings.HasPrefix(abs, target+"-")
}

// pushLoop triggers a push once the working copy has been quiet for the
// debounce interval.
func (d *Daemon) pushLoop() {
	defer d.wg.Done()

	tick := d.config.DebounceInterval / 4
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.mu.Lock()
			ready := d.dirty && time.Since(d.lastChange) >= d.config.DebounceInterval
			if ready {
				d.dirty = false
			}
			d.mu.Unlock()

			if !ready {
				continue
			}

			d.config.Logger.Printf("Working copy settled, pushing")
			report, err := d.pusher.DumpPush(d.ctx, d.workingPath)

			d.mu.Lock()
			if err != nil {
				d.failCount++
				// Mark dirty again so a later tick retries after a full
				// debounce interval.
				d.dirty = true
				d.lastChange = time.Now()
			} else {
				d.pushCount++
			}
			d.mu.Unlock()

			if err != nil {
				d.config.Logger.Printf("Push failed: %v", err)
				continue
			}
			d.config.Logger.Printf("Push complete: %d statements in %d batches", report.Statements, report.Batches)
		}
	}
}
