package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/turso-sync/internal/config"
	"github.com/steveyegge/turso-sync/internal/db"
	"github.com/steveyegge/turso-sync/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a background sync service over HTTP",
	Long: `Run an HTTP service that keeps an embedded replica synced with the
remote and exposes sync control endpoints.

Endpoints:
  GET  /health - health check (verifies the replica answers queries)
  POST /sync   - trigger an immediate sync
  GET  /info   - service info as JSON

The replica also auto-syncs on the --sync-interval.`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")
		port, _ := cmd.Flags().GetInt("port")
		interval, _ := cmd.Flags().GetDuration("sync-interval")

		settings := config.Load(flagURL, flagToken)
		if err := settings.Require(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		conn, err := db.OpenReplica(dbPath, settings.URL, settings.Token, db.ReplicaOptions{
			SyncInterval:   interval,
			ReadYourWrites: true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening replica: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()

		// Initial sync so the first request sees current data.
		if err := conn.(db.Syncer).Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during initial sync: %v\n", err)
			os.Exit(1)
		}

		svc := &syncService{conn: conn, dbPath: dbPath, started: time.Now()}

		mux := http.NewServeMux()
		mux.HandleFunc("/health", svc.healthHandler)
		mux.HandleFunc("/sync", svc.syncHandler)
		mux.HandleFunc("/info", svc.infoHandler)

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		fmt.Printf("%s Sync service running on port %d\n", ui.RenderAccent("🚀"), port)
		fmt.Printf("   Replica: %s\n", dbPath)
		fmt.Printf("   Auto-sync interval: %v\n", interval)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Service stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

// syncService serves the sync control endpoints over one replica connection.
type syncService struct {
	conn    db.Conn
	dbPath  string
	started time.Time
}

// healthHandler verifies the replica answers a trivial query.
func (s *syncService) healthHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.conn.Query(r.Context(), "SELECT COUNT(*) FROM sqlite_master")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Database unavailable: %v", err)
		return
	}
	rows.Close()

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// syncHandler triggers an immediate sync.
func (s *syncService) syncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprint(w, "Method not allowed, use POST")
		return
	}

	if err := s.conn.(db.Syncer).Sync(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Sync failed: %v", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "Sync completed successfully")
}

// infoHandler reports service metadata as JSON.
func (s *syncService) infoHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"db_path":        s.dbPath,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func init() {
	serveCmd.Flags().StringP("db-path", "d", "local_replica.db", "path to local replica database")
	serveCmd.Flags().Int("port", 9191, "HTTP listen port")
	serveCmd.Flags().Duration("sync-interval", 2*time.Minute, "auto-sync interval for the replica")

	rootCmd.AddCommand(serveCmd)
}
