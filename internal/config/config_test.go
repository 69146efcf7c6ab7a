package config

import "testing"

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("TURSO_DATABASE_URL", "libsql://env.turso.io")
	t.Setenv("TURSO_AUTH_TOKEN", "env-token")

	s := Load("", "")
	if s.URL != "libsql://env.turso.io" {
		t.Errorf("URL = %q, want env value", s.URL)
	}
	if s.Token != "env-token" {
		t.Errorf("Token = %q, want env value", s.Token)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TURSO_DATABASE_URL", "libsql://env.turso.io")
	t.Setenv("TURSO_AUTH_TOKEN", "env-token")

	s := Load("libsql://flag.turso.io", "flag-token")
	if s.URL != "libsql://flag.turso.io" {
		t.Errorf("URL = %q, want flag value", s.URL)
	}
	if s.Token != "flag-token" {
		t.Errorf("Token = %q, want flag value", s.Token)
	}
}

func TestLoad_Empty(t *testing.T) {
	t.Setenv("TURSO_DATABASE_URL", "")
	t.Setenv("TURSO_AUTH_TOKEN", "")

	s := Load("", "")
	if s.URL != "" || s.Token != "" {
		t.Errorf("expected empty settings, got %+v", s)
	}
}

func TestRequire_MissingURL(t *testing.T) {
	t.Setenv("TURSO_DATABASE_URL", "")
	t.Setenv("TURSO_AUTH_TOKEN", "")

	s := Load("", "token")
	if err := s.Require(); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestRequire_Complete(t *testing.T) {
	s := Load("libsql://flag.turso.io", "flag-token")
	if err := s.Require(); err != nil {
		t.Errorf("Require failed on complete settings: %v", err)
	}
}
