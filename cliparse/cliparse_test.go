// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func parse(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("quickly-poll", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return fs
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(parse(t), envMap(nil))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatabaseURL != DefaultDatabaseURL {
		t.Errorf("expected database %s, got %s", DefaultDatabaseURL, cfg.DatabaseURL)
	}
	if cfg.DatabaseType != db.SQLite {
		t.Errorf("expected sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.DisplacedState != models.StateClosed {
		t.Errorf("expected displaced state closed, got %s", cfg.DisplacedState)
	}
	if cfg.MaxRetries != store.DefaultMaxRetries {
		t.Errorf("expected %d retries, got %d", store.DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.ActivateOnCreate || cfg.LockOnSubmit {
		t.Error("expected activate-on-create and lock-on-submit to be off")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %s", cfg.LogLevel)
	}
	if !cfg.Admins.Open() {
		t.Error("expected open admin set without ADMIN_IDS")
	}
}

func TestResolve_EnvVars(t *testing.T) {
	env := envMap(map[string]string{
		"DATABASE_URL":            "postgres://test",
		"DATABASE_TYPE":           "postgres",
		"ADMIN_IDS":               "7,8",
		"POLL_ACTIVATE_ON_CREATE": "true",
		"POLL_DISPLACED_STATE":    "draft",
		"POLL_LOCK_ON_SUBMIT":     "1",
		"STORE_MAX_RETRIES":       "5",
		"METRICS_FILE":            "/tmp/poll.prom",
		"EXPORT_DIR":              "/tmp/exports",
		"LOG_LEVEL":               "debug",
	})

	cfg, err := Resolve(parse(t, "--user", "7"), env)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatabaseURL != "postgres://test" || cfg.DatabaseType != db.Postgres {
		t.Errorf("unexpected database config: %s %s", cfg.DatabaseType, cfg.DatabaseURL)
	}
	if !cfg.ActivateOnCreate {
		t.Error("expected activate-on-create from env")
	}
	if cfg.DisplacedState != models.StateDraft {
		t.Errorf("expected displaced state draft, got %s", cfg.DisplacedState)
	}
	if !cfg.LockOnSubmit {
		t.Error("expected lock-on-submit from env")
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.MaxRetries)
	}
	if cfg.MetricsFile != "/tmp/poll.prom" || cfg.ExportDir != "/tmp/exports" {
		t.Errorf("unexpected output config: %s %s", cfg.MetricsFile, cfg.ExportDir)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
	if !cfg.Privileged() {
		t.Error("expected user 7 to be privileged")
	}
}

func TestResolve_CLIOverridesEnv(t *testing.T) {
	env := envMap(map[string]string{
		"DATABASE_URL":            "from-env.db",
		"POLL_ACTIVATE_ON_CREATE": "true",
		"LOG_LEVEL":               "debug",
		"ADMIN_IDS":               "1",
	})

	cfg, err := Resolve(parse(t,
		"--db", "from-flag.db",
		"--activate-on-create=false",
		"--log-level", "warn",
		"--user", "2",
		"--name", "bob",
	), env)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatabaseURL != "from-flag.db" {
		t.Errorf("CLI should override env: expected from-flag.db, got %s", cfg.DatabaseURL)
	}
	if cfg.ActivateOnCreate {
		t.Error("CLI should override env for activate-on-create")
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("expected warn level, got %s", cfg.LogLevel)
	}
	if cfg.Privileged() {
		t.Error("expected user 2 not to be privileged")
	}
	if v := cfg.Voter(); v.UserID != 2 || v.Name != "bob" {
		t.Errorf("unexpected voter %+v", v)
	}
}

func TestResolve_ZeroRetries(t *testing.T) {
	cfg, err := Resolve(parse(t), envMap(map[string]string{"STORE_MAX_RETRIES": "0"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxRetries >= 0 {
		t.Errorf("expected retries disabled (negative), got %d", cfg.MaxRetries)
	}
}

func TestResolve_InvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad database type", map[string]string{"DATABASE_TYPE": "mysql"}, nil},
		{"bad admin ids", map[string]string{"ADMIN_IDS": "1,x"}, nil},
		{"bad activate flag", map[string]string{"POLL_ACTIVATE_ON_CREATE": "maybe"}, nil},
		{"active displaced state", map[string]string{"POLL_DISPLACED_STATE": "active"}, nil},
		{"unknown displaced state", map[string]string{"POLL_DISPLACED_STATE": "archived"}, nil},
		{"bad lock flag", map[string]string{"POLL_LOCK_ON_SUBMIT": "sometimes"}, nil},
		{"negative retries", map[string]string{"STORE_MAX_RETRIES": "-1"}, nil},
		{"bad log level", nil, []string{"--log-level", "loud"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Resolve(parse(t, tc.args...), envMap(tc.env)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("QUICKLY_POLL_TEST_VAR=from-file\nQUICKLY_POLL_TEST_SET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("QUICKLY_POLL_TEST_SET", "already-set")
	t.Setenv("QUICKLY_POLL_TEST_VAR", "")
	os.Unsetenv("QUICKLY_POLL_TEST_VAR")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}

	if got := os.Getenv("QUICKLY_POLL_TEST_VAR"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if got := os.Getenv("QUICKLY_POLL_TEST_SET"); got != "already-set" {
		t.Errorf("existing variables must win, got %q", got)
	}
}
