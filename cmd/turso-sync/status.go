package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/turso-sync/internal/db"
	"github.com/steveyegge/turso-sync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local sync state",
	Long: `Display the state of the local sync files.

Shows:
  - Working copy location, size and table count
  - Baseline snapshot and dump presence
  - Last generated diff file (if any)`,
	Run: func(cmd *cobra.Command, args []string) {
		dbPath, _ := cmd.Flags().GetString("db-path")

		fmt.Printf("\n%s Sync Status\n\n", ui.RenderAccent("📊"))

		info, err := os.Stat(dbPath)
		if os.IsNotExist(err) {
			fmt.Printf("%s Working copy %s not found\n", ui.RenderWarn("⚠"), dbPath)
			fmt.Printf("   Run 'turso-sync dump-init' or 'turso-sync workflow' to create it\n\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking working copy: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Working copy: %s\n", dbPath)
		fmt.Printf("Size: %s\n", formatSize(info.Size()))
		fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

		if count, err := countTables(dbPath); err == nil {
			fmt.Printf("Tables: %d\n", count)
		}

		fmt.Println()
		printFileLine("Baseline", flagBaselineDB)
		printFileLine("Baseline dump", flagBaselineDump)
		printFileLine("Diff file", flagDiffFile)
		fmt.Println()
	},
}

// countTables opens the database read-only and counts user tables.
func countTables(path string) (int, error) {
	conn, err := db.OpenLocal(path)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	rows, err := conn.Query(context.Background(), "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
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

// printFileLine prints one artifact's presence and size.
func printFileLine(label, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("%s: %s (missing)\n", label, path)
		return
	}
	fmt.Printf("%s: %s (%s)\n", label, path, formatSize(info.Size()))
}

// formatSize renders a byte count in human-readable units.
func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

func init() {
	statusCmd.Flags().StringP("db-path", "d", "working_copy.db", "path to local working database")

	rootCmd.AddCommand(statusCmd)
}
