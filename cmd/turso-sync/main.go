// Command turso-sync reconciles a local SQLite working copy with a remote
// Turso database.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/turso-sync/internal/config"
	tsync "github.com/steveyegge/turso-sync/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "turso-sync",
	Short: "Sync SQLite databases with Turso",
	Long: `turso-sync keeps a local SQLite working copy and a remote Turso
database reconciled.

Two workflows are supported:

  Embedded replica: sync / copy / push / workflow keep a local replica of
  the remote and diff your working copy against it.

  Dump-based: dump-init / dump-push maintain a baseline snapshot built from
  a full remote dump and push working-copy changes as batched diff SQL.

The remote is identified by --url and --token, or by the
TURSO_DATABASE_URL and TURSO_AUTH_TOKEN environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagURL          string
	flagToken        string
	flagDiffFile     string
	flagBaselineDB   string
	flagBaselineDump string
	flagTables       []string
	flagLogFile      string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagURL, "url", "", "Turso database URL (or TURSO_DATABASE_URL)")
	pf.StringVar(&flagToken, "token", "", "Turso auth token (or TURSO_AUTH_TOKEN)")
	pf.StringVar(&flagDiffFile, "diff-file", "diff.sql", "path to store the generated diff SQL")
	pf.StringVar(&flagBaselineDB, "baseline-db", "baseline.db", "path to the baseline snapshot database")
	pf.StringVar(&flagBaselineDump, "baseline-dump", "original_dump.sql", "path to the baseline dump file")
	pf.StringSliceVar(&flagTables, "tables", nil, "restrict batched DELETE/INSERT execution to these tables")
	pf.StringVar(&flagLogFile, "log-file", "", "write workflow logs to this rotating file instead of stderr")
}

// newLogger routes workflow logs to stderr, or to a rotating file when
// --log-file is set.
func newLogger() *log.Logger {
	var w io.Writer = os.Stderr
	if flagLogFile != "" {
		w = &lumberjack.Logger{
			Filename:   flagLogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return log.New(w, "[sync] ", log.LstdFlags)
}

// newOrchestrator builds an orchestrator from the global flags. With
// requireRemote the URL and token must resolve, prompting for a missing
// token on a terminal.
func newOrchestrator(requireRemote bool) (*tsync.Orchestrator, error) {
	settings := config.Load(flagURL, flagToken)
	if requireRemote {
		if err := settings.Require(); err != nil {
			return nil, err
		}
	}

	cfg := tsync.DefaultConfig()
	cfg.URL = settings.URL
	cfg.Token = settings.Token
	cfg.DiffFile = flagDiffFile
	cfg.BaselineDB = flagBaselineDB
	cfg.BaselineDump = flagBaselineDump
	cfg.PriorityTables = flagTables
	cfg.Logger = newLogger()
	return tsync.New(cfg), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
