// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect Dialect) error {
	schema, err := schemaFor(dialect)
	if err != nil {
		return err
	}

	_, err = db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// DropSchema removes every table. Only tests call this.
func DropSchema(db *sql.DB) error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS ballot_submission;
		DROP TABLE IF EXISTS vote;
		DROP TABLE IF EXISTS option;
		DROP TABLE IF EXISTS poll;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

func schemaFor(dialect Dialect) (string, error) {
	switch dialect {
	case SQLite:
		return sqliteSchema, nil
	case Postgres:
		return postgresSchema, nil
	}
	return "", fmt.Errorf("no schema for database type %q", dialect)
}

// The partial unique index on poll(state) is what makes "at most one active
// poll" hold even if two activations race. vote references option through
// (option_id, poll_id) so a vote can never point at another poll's option.

const sqliteSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question TEXT NOT NULL CHECK (length(trim(question)) > 0),
    state TEXT NOT NULL DEFAULT 'draft' CHECK (state IN ('draft', 'active', 'closed')),
    activation_seq INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_poll_single_active ON poll(state) WHERE state = 'active';

-- Options
CREATE TABLE IF NOT EXISTS option (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    poll_id INTEGER NOT NULL REFERENCES poll(id),
    text TEXT NOT NULL CHECK (length(trim(text)) > 0),
    position INTEGER NOT NULL,
    UNIQUE (id, poll_id),
    UNIQUE (poll_id, position)
);

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    user_id INTEGER NOT NULL,
    poll_id INTEGER NOT NULL REFERENCES poll(id),
    option_id INTEGER NOT NULL,
    voter_name TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, poll_id, option_id),
    FOREIGN KEY (option_id, poll_id) REFERENCES option(id, poll_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_option ON vote(poll_id, option_id);

-- Ballot submissions
CREATE TABLE IF NOT EXISTS ballot_submission (
    user_id INTEGER NOT NULL,
    poll_id INTEGER NOT NULL REFERENCES poll(id),
    submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, poll_id)
);
`

const postgresSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id BIGSERIAL PRIMARY KEY,
    question TEXT NOT NULL CHECK (length(trim(question)) > 0),
    state TEXT NOT NULL DEFAULT 'draft' CHECK (state IN ('draft', 'active', 'closed')),
    activation_seq BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_poll_single_active ON poll(state) WHERE state = 'active';

-- Options
CREATE TABLE IF NOT EXISTS option (
    id BIGSERIAL PRIMARY KEY,
    poll_id BIGINT NOT NULL REFERENCES poll(id),
    text TEXT NOT NULL CHECK (length(trim(text)) > 0),
    position INTEGER NOT NULL,
    UNIQUE (id, poll_id),
    UNIQUE (poll_id, position)
);

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    user_id BIGINT NOT NULL,
    poll_id BIGINT NOT NULL REFERENCES poll(id),
    option_id BIGINT NOT NULL,
    voter_name TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, poll_id, option_id),
    FOREIGN KEY (option_id, poll_id) REFERENCES option(id, poll_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_option ON vote(poll_id, option_id);

-- Ballot submissions
CREATE TABLE IF NOT EXISTS ballot_submission (
    user_id BIGINT NOT NULL,
    poll_id BIGINT NOT NULL REFERENCES poll(id),
    submitted_at TIMESTAMP NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, poll_id)
);
`
