// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/metrics"
	"github.com/danielhkuo/quickly-poll/models"
)

// DefaultMaxRetries is how many times a failed unit is re-run before giving up
const DefaultMaxRetries = 3

type Config struct {
	// MaxRetries bounds immediate re-runs after a transient failure or key
	// conflict. Zero means DefaultMaxRetries; negative disables retries.
	MaxRetries int
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db         *sql.DB
	dialect    db.Dialect
	maxRetries int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(conn *sql.DB, dialect db.Dialect, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	return &Store{
		db:         conn,
		dialect:    dialect,
		maxRetries: maxRetries,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Dialect reports which database the store talks to
func (s *Store) Dialect() db.Dialect {
	return s.dialect
}

// Atomic runs fn inside one transaction and commits it.
//
// SQLite transactions begin IMMEDIATE, Postgres ones are SERIALIZABLE, so the
// reads fn makes are still true when its writes commit. If the transaction
// fails with a transient error or a key conflict the whole unit is re-run,
// up to MaxRetries times. Errors from the models taxonomy are returned as-is
// after the first attempt.
func (s *Store) Atomic(ctx context.Context, op string, fn func(tx *Tx) error) error {
	return s.retry(ctx, op, func() error {
		return s.runTx(ctx, fn)
	})
}

func (s *Store) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, s.txOptions())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx, store: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) txOptions() *sql.TxOptions {
	if s.dialect == db.Postgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	// modernc only accepts the default level; _txlock=immediate does the work
	return nil
}

// retry runs fn until it succeeds, fails permanently, or the budget is spent
func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	defer func() {
		s.metrics.StoreTx(op, time.Since(start))
	}()

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if models.IsDomainError(err) {
			return err
		}
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
		if attempt < s.maxRetries {
			s.metrics.StoreRetry(op)
			s.logger.Warn("retrying store operation",
				"op", op,
				"attempt", attempt+1,
				"error", err,
			)
		}
	}

	return s.storageError(op, err)
}

// storageError logs err and wraps it as ErrStorage
func (s *Store) storageError(op string, err error) error {
	s.logger.Error("store operation failed",
		"event", "store_"+op+"_failed",
		"op", op,
		"dialect", string(s.dialect),
		"error", err,
	)
	if errors.Is(err, models.ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorage, err)
}
