package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/turso-sync/internal/ui"
)

var dumpInitCmd = &cobra.Command{
	Use:   "dump-init",
	Short: "Initialize local databases from a remote dump",
	Long: `Build the baseline snapshot from a full remote dump and copy it to
the working copy path.

This creates three files: the baseline database (--baseline-db), the
baseline dump (--baseline-dump), and the working copy. The baseline pair
records the last pushed remote state and is the "from" side of every
dump-push diff. No embedded replica is involved.`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Initializing from remote dump...\n", ui.RenderAccent("→"))
		start := time.Now()

		if err := orch.DumpInit(context.Background(), dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing from dump: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Initialized in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Baseline: %s\n", flagBaselineDB)
		fmt.Printf("   Dump: %s\n", flagBaselineDump)
		fmt.Printf("   Working copy: %s\n", dbPath)
	},
}

var dumpPushCmd = &cobra.Command{
	Use:   "dump-push",
	Short: "Push working-copy changes using the dump-based workflow",
	Long: `Diff the working copy against the baseline snapshot and replay the
changes onto the remote in batches.

On full success the baseline pair is rebuilt from a fresh remote dump so
the next push starts from the state just produced. Requires a baseline
created by dump-init.`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")

		orch, err := newOrchestrator(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Pushing %s via dump workflow...\n", ui.RenderAccent("→"), dbPath)
		start := time.Now()

		report, err := orch.DumpPush(context.Background(), dbPath)
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

func init() {
	dumpInitCmd.Flags().StringP("db-path", "d", "working_copy.db", "path to local working database")
	dumpPushCmd.Flags().StringP("db-path", "d", "working_copy.db", "path to local working database")

	rootCmd.AddCommand(dumpInitCmd)
	rootCmd.AddCommand(dumpPushCmd)
}
