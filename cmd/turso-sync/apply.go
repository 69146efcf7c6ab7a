package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tsync "github.com/steveyegge/turso-sync/internal/sync"
	"github.com/steveyegge/turso-sync/internal/ui"
)

var applyDiffCmd = &cobra.Command{
	Use:   "apply-diff",
	Short: "Apply a diff file to a local database",
	Long: `Read a diff SQL file from disk and replay it against a local
database through the batching engine.

By default the database is opened as an embedded replica and a sync to
the remote follows a successful apply. With --no-sync the database is
opened local-only and no remote credentials are needed.`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")
		noSync, _ := cmd.Flags().GetBool("no-sync")
		diffFile := flagDiffFile

		orch, err := newOrchestrator(!noSync)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		report, err := orch.ApplyDiff(context.Background(), dbPath, diffFile, noSync)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s Apply failed: %v\n", ui.RenderFail("✗"), err)
			printReport(report)
			os.Exit(1)
		}

		if report.Statements == 0 {
			fmt.Printf("%s Diff file is empty, nothing to apply\n", ui.RenderPass("✓"))
			return
		}

		fmt.Printf("%s Applied %s to %s\n", ui.RenderPass("✓"), diffFile, dbPath)
		printReport(report)
	},
}

var offlineSyncCmd = &cobra.Command{
	Use:   "offline-sync",
	Short: "Sync a database bidirectionally using offline sync",
	Long: `Synchronize a local database with the remote using the replication
primitive only; no diffing is involved.

Direction 'pull' fetches remote changes, 'push' sends local changes, and
'both' (the default) does both with a table-count health check between.`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")
		direction, _ := cmd.Flags().GetString("direction")

		switch tsync.Direction(direction) {
		case tsync.DirectionPull, tsync.DirectionPush, tsync.DirectionBoth:
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid direction %q (want pull, push, or both)\n", direction)
			os.Exit(1)
		}

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Offline sync (%s) for %s...\n", ui.RenderAccent("→"), direction, dbPath)

		if err := orch.OfflineSync(context.Background(), dbPath, tsync.Direction(direction)); err != nil {
			fmt.Fprintf(os.Stderr, "Error during offline sync: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Offline sync complete\n", ui.RenderPass("✓"))
	},
}

func init() {
	applyDiffCmd.Flags().StringP("db-path", "d", "local_replica.db", "path to local database")
	applyDiffCmd.Flags().Bool("no-sync", false, "skip the sync to remote after applying")

	offlineSyncCmd.Flags().StringP("db-path", "d", "working_copy.db", "path to local database")
	offlineSyncCmd.Flags().String("direction", "both", "sync direction: pull, push, or both")

	rootCmd.AddCommand(applyDiffCmd)
	rootCmd.AddCommand(offlineSyncCmd)
}
