package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/turso-sync/internal/engine"
	"github.com/steveyegge/turso-sync/internal/ui"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Generate diff and apply to Turso",
	Long: `Diff the working copy against the local replica and replay the
changes onto the remote.

The diff is computed with sqldiff, CREATE statements are rewritten to be
idempotent, and DELETE/INSERT statements are executed in size-bounded
batches with per-batch timeouts and one retry. The generated diff SQL is
saved to the --diff-file path for audit.`,
	Run: func(cmd *cobra.Command, args []string) {
		replicaPath, _ := cmd.Flags().GetString("replica-path")
		workingPath, _ := cmd.Flags().GetString("working-path")

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Pushing %s to remote...\n", ui.RenderAccent("→"), workingPath)
		start := time.Now()

		report, err := orch.Push(context.Background(), replicaPath, workingPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s Push failed: %v\n", ui.RenderFail("✗"), err)
			printReport(report)
			os.Exit(1)
		}

		if report.Statements == 0 {
			fmt.Printf("%s No changes to push\n", ui.RenderPass("✓"))
			return
		}

		fmt.Printf("%s Push complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		printReport(report)
	},
}

// printReport writes per-category execution counts for a non-empty report.
func printReport(report engine.Report) {
	if report.Batches == 0 {
		return
	}
	fmt.Printf("   Statements: %d in %d batches\n", report.Statements, report.Batches)
	for _, c := range engine.Categories {
		cr, ok := report.Categories[c]
		if !ok || cr.Batches == 0 {
			continue
		}
		fmt.Printf("   %-6s %5d statements, %3d batches (%.2fs)\n", c, cr.Statements, cr.Batches, cr.Elapsed.Seconds())
	}
}

func init() {
	pushCmd.Flags().StringP("replica-path", "r", "local_replica.db", "path to local replica database")
	pushCmd.Flags().StringP("working-path", "w", "working_copy.db", "path to working copy database")

	rootCmd.AddCommand(pushCmd)
}
