// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/quickly-poll/cliparse"
	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/engine"
	"github.com/danielhkuo/quickly-poll/metrics"
	"github.com/danielhkuo/quickly-poll/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	a.close()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", exitMessage(err))
		os.Exit(1)
	}
}

// app holds what every command needs once configuration is resolved
type app struct {
	cfg      cliparse.Config
	logger   *slog.Logger
	conn     *sql.DB
	engine   *engine.Engine
	registry *prometheus.Registry
}

// setup resolves configuration, opens the database and builds the engine
func (a *app) setup(ctx context.Context, cfg cliparse.Config, logOut io.Writer) error {
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(a.logger)

	if cfg.Admins.Open() {
		a.logger.Debug("ADMIN_IDS not set, every user may manage polls")
	}

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.conn = conn

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		return err
	}
	a.logger.Debug("database schema ready", "type", string(cfg.DatabaseType))

	var m *metrics.Metrics
	m, a.registry = metrics.NewWithRegistry()

	s := store.New(conn, cfg.DatabaseType, store.Config{
		MaxRetries: cfg.MaxRetries,
		Logger:     a.logger,
		Metrics:    m,
	})

	a.engine, err = engine.New(s, engine.Config{
		DisplacedState: cfg.DisplacedState,
		LockOnSubmit:   cfg.LockOnSubmit,
		Logger:         a.logger,
		Metrics:        m,
	})
	return err
}

// close writes the metrics textfile, if configured, and closes the database
func (a *app) close() {
	if a.registry != nil && a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile, a.registry); err != nil {
			a.logger.Error("failed to write metrics", "path", a.cfg.MetricsFile, "error", err)
		}
	}
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}
