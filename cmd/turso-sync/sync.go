package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/turso-sync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync from Turso to local replica",
	Long: `Pull the remote database state into a local embedded replica.

This performs a single replication sync call; no diffing is involved.
The replica file is created if it does not exist.`,
	Run: func(cmd *cobra.Command, args []string) {
		replicaPath, _ := cmd.Flags().GetString("replica-path")

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Syncing remote into %s...\n", ui.RenderAccent("→"), replicaPath)
		start := time.Now()

		if err := orch.ReplicaSync(context.Background(), replicaPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing replica: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy replica to working copy",
	Long: `Copy the local replica database file to the working copy path.

The working copy is where you make local changes; push compares it back
against the replica.`,
	Run: func(cmd *cobra.Command, args []string) {
		source, _ := cmd.Flags().GetString("source")
		dest, _ := cmd.Flags().GetString("dest")

		orch, err := newOrchestrator(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := orch.CopyDatabase(source, dest); err != nil {
			fmt.Fprintf(os.Stderr, "Error copying database: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Copied %s to %s\n", ui.RenderPass("✓"), source, dest)
	},
}

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Full workflow: sync, then copy to working copy",
	Long: `Run the full setup workflow:
  1. Sync the remote into the local replica
  2. Copy the replica to the working copy

After this, edit the working copy locally and run 'turso-sync push' to
send the changes back.`,
	Run: func(cmd *cobra.Command, args []string) {
		replicaPath, _ := cmd.Flags().GetString("replica-path")
		workingPath, _ := cmd.Flags().GetString("working-path")

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Syncing remote into %s...\n", ui.RenderAccent("→"), replicaPath)
		if err := orch.ReplicaSync(context.Background(), replicaPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing replica: %v\n", err)
			os.Exit(1)
		}

		if err := orch.CopyDatabase(replicaPath, workingPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error copying to working copy: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Workflow complete\n", ui.RenderPass("✓"))
		fmt.Printf("   Replica: %s\n", replicaPath)
		fmt.Printf("   Working copy: %s\n", workingPath)
		fmt.Printf("\nEdit %s, then run 'turso-sync push' to publish changes\n", workingPath)
	},
}

func init() {
	syncCmd.Flags().StringP("replica-path", "r", "local_replica.db", "path to local replica database")

	copyCmd.Flags().StringP("source", "s", "local_replica.db", "path to source database")
	copyCmd.Flags().StringP("dest", "d", "working_copy.db", "path to destination database")

	workflowCmd.Flags().StringP("replica-path", "r", "local_replica.db", "path to local replica database")
	workflowCmd.Flags().StringP("working-path", "w", "working_copy.db", "path to working copy database")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(workflowCmd)
}
