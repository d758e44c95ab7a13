// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/danielhkuo/quickly-poll/auth"
	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

// Defaults
const (
	DefaultDatabaseURL = "quickly-poll.db"
	DefaultExportDir   = "."
)

// Flag names
const (
	FlagDB               = "db"
	FlagDBType           = "db-type"
	FlagUser             = "user"
	FlagName             = "name"
	FlagActivateOnCreate = "activate-on-create"
	FlagMetricsFile      = "metrics-file"
	FlagLogLevel         = "log-level"
)

type Config struct {
	DatabaseURL  string
	DatabaseType db.Dialect

	// Acting user for vote and management commands
	UserID   int64
	UserName string
	Admins   auth.Admins

	ActivateOnCreate bool
	DisplacedState   models.PollState
	LockOnSubmit     bool
	MaxRetries       int

	MetricsFile string
	ExportDir   string
	LogLevel    slog.Level
}

// Privileged reports whether the configured user may manage polls
func (c Config) Privileged() bool {
	return c.Admins.IsAdmin(c.UserID)
}

// Voter returns the configured user as a voter
func (c Config) Voter() models.Voter {
	return models.Voter{UserID: c.UserID, Name: c.UserName}
}

// RegisterFlags adds the configuration flags to flags. Defaults are left empty
// so that Resolve can tell a flag that was not given from one set to its default.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagDB, "", "Database URL or SQLite file path (env DATABASE_URL)")
	flags.String(FlagDBType, "", "Database type: sqlite or postgres (env DATABASE_TYPE)")
	flags.Int64(FlagUser, 0, "Acting user id")
	flags.String(FlagName, "", "Acting user display name")
	flags.Bool(FlagActivateOnCreate, false, "Activate new polls immediately (env POLL_ACTIVATE_ON_CREATE)")
	flags.String(FlagMetricsFile, "", "Write Prometheus metrics to this file on exit (env METRICS_FILE)")
	flags.String(FlagLogLevel, "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
}

// LoadEnvFiles loads .env style files into the process environment.
// Variables already set are not overwritten; missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		slog.Debug("loaded env file", "path", path)
	}
	return nil
}

// Resolve builds a Config. Each value comes from its flag when the flag was
// given, otherwise from the environment, otherwise from the default.
func Resolve(flags *pflag.FlagSet, getenv func(string) string) (Config, error) {
	cfg := Config{
		DatabaseURL:    DefaultDatabaseURL,
		DatabaseType:   db.SQLite,
		DisplacedState: models.StateClosed,
		MaxRetries:     store.DefaultMaxRetries,
		ExportDir:      DefaultExportDir,
		LogLevel:       slog.LevelInfo,
	}

	str := func(flag, env string) (string, error) {
		if flags != nil && flags.Changed(flag) {
			return flags.GetString(flag)
		}
		return getenv(env), nil
	}

	// Database
	url, err := str(FlagDB, "DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	if url != "" {
		cfg.DatabaseURL = url
	}

	dbType, err := str(FlagDBType, "DATABASE_TYPE")
	if err != nil {
		return Config{}, err
	}
	if dbType != "" {
		if cfg.DatabaseType, err = db.ParseDialect(dbType); err != nil {
			return Config{}, err
		}
	}

	// Acting user
	if flags != nil && flags.Changed(FlagUser) {
		if cfg.UserID, err = flags.GetInt64(FlagUser); err != nil {
			return Config{}, err
		}
	}
	if flags != nil && flags.Changed(FlagName) {
		if cfg.UserName, err = flags.GetString(FlagName); err != nil {
			return Config{}, err
		}
	}

	if cfg.Admins, err = auth.ParseAdmins(getenv("ADMIN_IDS")); err != nil {
		return Config{}, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}

	// Poll behavior
	if flags != nil && flags.Changed(FlagActivateOnCreate) {
		if cfg.ActivateOnCreate, err = flags.GetBool(FlagActivateOnCreate); err != nil {
			return Config{}, err
		}
	} else if v := getenv("POLL_ACTIVATE_ON_CREATE"); v != "" {
		if cfg.ActivateOnCreate, err = strconv.ParseBool(v); err != nil {
			return Config{}, errors.New("invalid POLL_ACTIVATE_ON_CREATE env variable")
		}
	}

	if v := getenv("POLL_DISPLACED_STATE"); v != "" {
		state, err := models.ParsePollState(strings.ToLower(v))
		if err != nil || state == models.StateActive {
			return Config{}, errors.New("POLL_DISPLACED_STATE must be draft or closed")
		}
		cfg.DisplacedState = state
	}

	if v := getenv("POLL_LOCK_ON_SUBMIT"); v != "" {
		if cfg.LockOnSubmit, err = strconv.ParseBool(v); err != nil {
			return Config{}, errors.New("invalid POLL_LOCK_ON_SUBMIT env variable")
		}
	}

	if v := getenv("STORE_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, errors.New("invalid STORE_MAX_RETRIES env variable")
		}
		// Zero would mean "use the default" to the store
		cfg.MaxRetries = n
		if n == 0 {
			cfg.MaxRetries = -1
		}
	}

	// Output
	if cfg.MetricsFile, err = str(FlagMetricsFile, "METRICS_FILE"); err != nil {
		return Config{}, err
	}
	if v := getenv("EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}

	level, err := str(FlagLogLevel, "LOG_LEVEL")
	if err != nil {
		return Config{}, err
	}
	if level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return Config{}, fmt.Errorf("invalid log level %q", level)
		}
	}

	return cfg, nil
}
