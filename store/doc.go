// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the persistent store for polls, options and votes.

# Construction

	s := store.New(conn, db.SQLite, store.Config{Logger: logger, Metrics: m})

# Operations

Single-statement operations run directly on the pool:

  - GetPoll, ListOptions, FindActivePoll
  - HasVote, InsertVote, DeleteVote, SelectedOptions, CountVotes
  - Tally, TallyWithVoters

Multi-statement operations run in one transaction:

  - CreatePoll: poll + options (+ displacing the active poll)
  - SetPollState
  - GetPollWithOptions

# Atomic Units

Higher layers compose Tx primitives inside Atomic:

	err := s.Atomic(ctx, "toggle_vote", func(tx *store.Tx) error {
		poll, err := tx.Poll(ctx, pollID)
		...
		added, err := tx.ToggleVote(ctx, vote)
		...
	})

SQLite transactions take the write lock at BEGIN; Postgres transactions run
SERIALIZABLE. A unit that fails with lock contention, a serialization
failure or a uniqueness conflict is re-run immediately, up to MaxRetries
times, then reported as models.ErrStorage. Errors from the models taxonomy
(ErrNotFound, ErrPollNotVotable, ...) end the unit without a retry.
*/
package store
