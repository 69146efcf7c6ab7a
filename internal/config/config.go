// Package config resolves remote connection settings from flags and the
// environment.
//
// Resolution order per setting: explicit flag value, then environment
// variable (TURSO_DATABASE_URL / TURSO_AUTH_TOKEN). A missing token can be
// collected interactively when stdin is a terminal.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Settings holds the resolved remote connection parameters.
type Settings struct {
	URL   string
	Token string
}

// Load resolves settings, preferring non-empty flag values over the
// environment.
func Load(flagURL, flagToken string) *Settings {
	v := viper.New()
	v.BindEnv("url", "TURSO_DATABASE_URL")
	v.BindEnv("token", "TURSO_AUTH_TOKEN")

	if flagURL != "" {
		v.Set("url", flagURL)
	}
	if flagToken != "" {
		v.Set("token", flagToken)
	}

	return &Settings{
		URL:   v.GetString("url"),
		Token: v.GetString("token"),
	}
}

// Require validates that both URL and token are present, prompting for the
// token on a terminal when only it is missing.
func (s *Settings) Require() error {
	if s.URL == "" {
		return fmt.Errorf("database URL required: pass --url or set TURSO_DATABASE_URL")
	}
	if s.Token == "" {
		token, err := promptToken()
		if err != nil {
			return err
		}
		s.Token = token
	}
	return nil
}

// promptToken reads the auth token from the terminal without echo.
func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("auth token required: pass --token or set TURSO_AUTH_TOKEN")
	}

	fmt.Fprint(os.Stderr, "Turso auth token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("auth token required: pass --token or set TURSO_AUTH_TOKEN")
	}
	return token, nil
}
