// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/models"
)

// TestDBURLEnv names the variable holding a Postgres URL for the optional Postgres tests
const TestDBURLEnv = "TEST_DATABASE_URL"

// SetupTestDB creates a fresh SQLite database file with the full schema.
// The connection is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "polls.db")
	conn, err := db.Open(context.Background(), db.SQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// SetupPostgresDB recreates the schema in the database named by TEST_DATABASE_URL.
// The test is skipped when the variable is unset.
func SetupPostgresDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv(TestDBURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping Postgres test", TestDBURLEnv)
	}

	conn, err := db.Open(context.Background(), db.Postgres, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Clean up tables before each test
	if err := db.DropSchema(conn); err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}
	if err := db.CreateSchema(conn, db.Postgres); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestPoll inserts a poll with options directly, bypassing the store.
// It returns the poll ID and the option IDs in insertion order.
func CreateTestPoll(t *testing.T, conn *sql.DB, question string, state models.PollState, options ...string) (int64, []int64) {
	t.Helper()

	var seq int64
	if state == models.StateActive {
		if err := conn.QueryRow(`SELECT COALESCE(MAX(activation_seq), 0) + 1 FROM poll`).Scan(&seq); err != nil {
			t.Fatalf("Failed to read activation sequence: %v", err)
		}
	}

	var pollID int64
	err := conn.QueryRow(`
		INSERT INTO poll (question, state, activation_seq)
		VALUES ($1, $2, $3)
		RETURNING id
	`, question, string(state), seq).Scan(&pollID)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	optionIDs := make([]int64, 0, len(options))
	for i, text := range options {
		optionIDs = append(optionIDs, AddTestOption(t, conn, pollID, text, i))
	}

	return pollID, optionIDs
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, conn *sql.DB, pollID int64, text string, position int) int64 {
	t.Helper()

	var optionID int64
	err := conn.QueryRow(`
		INSERT INTO option (poll_id, text, position)
		VALUES ($1, $2, $3)
		RETURNING id
	`, pollID, text, position).Scan(&optionID)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// AddTestVote inserts a vote row directly
func AddTestVote(t *testing.T, conn *sql.DB, userID int64, name string, pollID, optionID int64) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO vote (user_id, poll_id, option_id, voter_name)
		VALUES ($1, $2, $3, $4)
	`, userID, pollID, optionID, name)
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
}

// PollState reads a poll's stored state
func PollState(t *testing.T, conn *sql.DB, pollID int64) models.PollState {
	t.Helper()

	var state string
	if err := conn.QueryRow("SELECT state FROM poll WHERE id = $1", pollID).Scan(&state); err != nil {
		t.Fatalf("Failed to query poll state: %v", err)
	}
	return models.PollState(state)
}

// CountRows runs a COUNT query and returns the result
func CountRows(t *testing.T, conn *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
