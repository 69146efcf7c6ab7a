// Package diff computes the textual SQL diff between two SQLite database
// files by invoking the external sqldiff tool. The diff transforms the
// first database's content into the second's; its statement order already
// respects intra-category constraints.
package diff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Tool wraps the sqldiff binary.
type Tool struct {
	// Path is the sqldiff executable; defaults to "sqldiff" on PATH.
	Path string
}

// New returns a Tool using sqldiff from PATH.
func New() *Tool {
	return &Tool{Path: "sqldiff"}
}

// Diff returns the SQL text transforming fromPath's database into toPath's.
// The output is wrapped in a BEGIN TRANSACTION / COMMIT pair (sqldiff
// --transaction); the engine's parser strips the wrapper. An empty result
// means the databases are identical.
//
// Both database files must exist; a missing file is reported before the
// tool runs. A non-zero tool exit is returned with its captured stderr.
func (t *Tool) Diff(ctx context.Context, fromPath, toPath string) (string, error) {
	for _, path := range []string{fromPath, toPath} {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("database %s does not exist: %w", path, err)
		}
	}

	bin := t.Path
	if bin == "" {
		bin = "sqldiff"
	}

	cmd := exec.CommandContext(ctx, bin, "--transaction", fromPath, toPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("sqldiff failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("sqldiff failed (is sqldiff installed and in PATH?): %w", err)
	}

	return stdout.String(), nil
}
