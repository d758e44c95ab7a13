// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"

	"github.com/danielhkuo/quickly-poll/models"
)

// The single-statement vote primitives below do not check the poll's state.
// Toggling with state checks is voting.Engine's job, built on Atomic.

func (s *Store) HasVote(ctx context.Context, userID, pollID, optionID int64) (bool, error) {
	var exists bool
	err := s.retry(ctx, "has_vote", func() error {
		return s.db.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM vote WHERE user_id = $1 AND poll_id = $2 AND option_id = $3
			)
		`, userID, pollID, optionID).Scan(&exists)
	})
	return exists, err
}

// InsertVote adds the triple. inserted is false if it was already present.
func (s *Store) InsertVote(ctx context.Context, v models.Vote) (inserted bool, err error) {
	err = s.retry(ctx, "insert_vote", func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO vote (user_id, poll_id, option_id, voter_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, poll_id, option_id) DO NOTHING
		`, v.UserID, v.PollID, v.OptionID, v.VoterName)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("option %d of poll %d: %w", v.OptionID, v.PollID, models.ErrUnknownOption)
			}
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// DeleteVote removes the triple. deleted is false if it was not present.
func (s *Store) DeleteVote(ctx context.Context, userID, pollID, optionID int64) (deleted bool, err error) {
	err = s.retry(ctx, "delete_vote", func() error {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM vote WHERE user_id = $1 AND poll_id = $2 AND option_id = $3
		`, userID, pollID, optionID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// SelectedOptions returns the option ids the user currently holds on the poll
func (s *Store) SelectedOptions(ctx context.Context, userID, pollID int64) ([]int64, error) {
	var selected []int64
	err := s.retry(ctx, "selected_options", func() error {
		var err error
		selected, err = selectedOptions(ctx, s.db, userID, pollID)
		return err
	})
	return selected, err
}

// CountVotes returns the number of vote rows for a poll
func (s *Store) CountVotes(ctx context.Context, pollID int64) (int, error) {
	var count int
	err := s.retry(ctx, "count_votes", func() error {
		return s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM vote WHERE poll_id = $1
		`, pollID).Scan(&count)
	})
	return count, err
}
