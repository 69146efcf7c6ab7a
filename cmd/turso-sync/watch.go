package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/turso-sync/internal/daemon"
	"github.com/steveyegge/turso-sync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the working copy and push changes automatically",
	Long: `Run a foreground daemon that watches the working copy database and
pushes changes to the remote via the dump-based workflow.

Writes are debounced: a push triggers only after the file has been quiet
for the debounce interval, so bursts of local changes land as one diff.
Requires a baseline created by dump-init.`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if !orch.Baseline().Exists() {
			fmt.Fprintf(os.Stderr, "Error: baseline not found, run 'turso-sync dump-init' first\n")
			os.Exit(1)
		}

		cfg := daemon.DefaultConfig()
		cfg.DebounceInterval = debounce

		d, err := daemon.NewWithConfig(orch, dbPath, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Watching %s (debounce %v)\n", ui.RenderAccent("👁"), dbPath, debounce)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Stopped after %d pushes\n", ui.RenderPass("✓"), d.PushCount())
	},
}

func init() {
	watchCmd.Flags().StringP("db-path", "d", "working_copy.db", "path to local working database")
	watchCmd.Flags().Duration("debounce", 2*time.Second, "quiet period before a push triggers")

	rootCmd.AddCommand(watchCmd)
}
