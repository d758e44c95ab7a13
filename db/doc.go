// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connections

Open accepts either dialect:

	conn, err := db.Open(ctx, db.SQLite, "polls.db")
	conn, err := db.Open(ctx, db.Postgres, "postgres://...")

SQLite connections get foreign keys, a busy timeout, WAL journaling and
immediate transactions. Postgres connections are used as-is.

# Schema Creation

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: question, lifecycle state, activation sequence
  - option: options per poll, ordered by position
  - vote: one row per (user, poll, option)
  - ballot_submission: users who finished voting on a poll

# Relationships

	poll 1──* option
	poll 1──* vote
	option 1──* vote   (via option_id, poll_id)
	poll 1──* ballot_submission

# Constraints

  - idx_poll_single_active: unique partial index, at most one active poll
  - vote primary key: (user_id, poll_id, option_id)
  - vote → option foreign key on (option_id, poll_id)
*/
package db
