// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-poll/models"
)

// Tx exposes the primitives available inside an Atomic unit
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Poll loads a poll, ErrNotFound if it does not exist
func (t *Tx) Poll(ctx context.Context, pollID int64) (models.Poll, error) {
	return getPoll(ctx, t.tx, pollID)
}

// Options lists a poll's options in insertion order
func (t *Tx) Options(ctx context.Context, pollID int64) ([]models.Option, error) {
	return listOptions(ctx, t.tx, pollID)
}

// ActivePolls returns every active poll, most recently activated first
func (t *Tx) ActivePolls(ctx context.Context) ([]models.Poll, error) {
	return activePolls(ctx, t.tx)
}

func (t *Tx) InsertPoll(ctx context.Context, question string, state models.PollState) (int64, error) {
	query := `
		INSERT INTO poll (question, state, activation_seq)
		VALUES ($1, $2, 0)
		RETURNING id
	`
	if state == models.StateActive {
		query = `
			INSERT INTO poll (question, state, activation_seq)
			VALUES ($1, $2, (SELECT COALESCE(MAX(activation_seq), 0) + 1 FROM poll))
			RETURNING id
		`
	}

	var pollID int64
	err := t.tx.QueryRowContext(ctx, query, question, string(state)).Scan(&pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert poll: %w", err)
	}
	return pollID, nil
}

func (t *Tx) InsertOption(ctx context.Context, pollID int64, text string, position int) (int64, error) {
	var optionID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO option (poll_id, text, position)
		VALUES ($1, $2, $3)
		RETURNING id
	`, pollID, text, position).Scan(&optionID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert option: %w", err)
	}
	return optionID, nil
}

// SetState writes a poll's state. Moving to active stamps a fresh activation sequence.
func (t *Tx) SetState(ctx context.Context, pollID int64, state models.PollState) error {
	query := `UPDATE poll SET state = $1 WHERE id = $2`
	if state == models.StateActive {
		query = `
			UPDATE poll
			SET state = $1, activation_seq = (SELECT COALESCE(MAX(activation_seq), 0) + 1 FROM poll)
			WHERE id = $2
		`
	}

	res, err := t.tx.ExecContext(ctx, query, string(state), pollID)
	if err != nil {
		return fmt.Errorf("failed to update poll state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("poll %d: %w", pollID, models.ErrNotFound)
	}
	return nil
}

// DisplaceActive moves every active poll other than except to state `to` and
// returns the ids it touched
func (t *Tx) DisplaceActive(ctx context.Context, except int64, to models.PollState) ([]int64, error) {
	active, err := activePolls(ctx, t.tx)
	if err != nil {
		return nil, err
	}

	var displaced []int64
	for _, p := range active {
		if p.ID == except {
			continue
		}
		if _, err := t.tx.ExecContext(ctx, `UPDATE poll SET state = $1 WHERE id = $2`, string(to), p.ID); err != nil {
			return nil, fmt.Errorf("failed to deactivate poll %d: %w", p.ID, err)
		}
		displaced = append(displaced, p.ID)
	}
	return displaced, nil
}

// OptionBelongs reports whether optionID is one of pollID's options
func (t *Tx) OptionBelongs(ctx context.Context, pollID, optionID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM option WHERE id = $1 AND poll_id = $2
		)
	`, optionID, pollID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check option: %w", err)
	}
	return exists, nil
}

// ToggleVote flips the presence of the vote's (user, poll, option) row.
//
// The delete runs first: if it removed a row the vote was present. Otherwise
// the row is inserted, and if another transaction inserted the same triple in
// the meantime the insert fails with a uniqueness conflict, which Atomic
// treats as retryable so the decision is made again on committed data.
func (t *Tx) ToggleVote(ctx context.Context, v models.Vote) (added bool, err error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM vote WHERE user_id = $1 AND poll_id = $2 AND option_id = $3
	`, v.UserID, v.PollID, v.OptionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO vote (user_id, poll_id, option_id, voter_name)
		VALUES ($1, $2, $3, $4)
	`, v.UserID, v.PollID, v.OptionID, v.VoterName)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("option %d of poll %d: %w", v.OptionID, v.PollID, models.ErrUnknownOption)
		}
		return false, fmt.Errorf("failed to insert vote: %w", err)
	}
	return true, nil
}

// SelectedOptions returns the user's option ids for the poll in option order
func (t *Tx) SelectedOptions(ctx context.Context, userID, pollID int64) ([]int64, error) {
	return selectedOptions(ctx, t.tx, userID, pollID)
}

func (t *Tx) HasSubmitted(ctx context.Context, userID, pollID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ballot_submission WHERE user_id = $1 AND poll_id = $2
		)
	`, userID, pollID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check submission: %w", err)
	}
	return exists, nil
}

// MarkSubmitted records that the user finished voting. Repeating it is a no-op.
func (t *Tx) MarkSubmitted(ctx context.Context, userID, pollID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ballot_submission (user_id, poll_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, poll_id) DO NOTHING
	`, userID, pollID)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// Shared queries, usable on the pool or inside a transaction

func getPoll(ctx context.Context, q querier, pollID int64) (models.Poll, error) {
	var poll models.Poll
	var state string
	err := q.QueryRowContext(ctx, `
		SELECT id, question, state, activation_seq
		FROM poll
		WHERE id = $1
	`, pollID).Scan(&poll.ID, &poll.Question, &state, &poll.ActivationSeq)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, fmt.Errorf("poll %d: %w", pollID, models.ErrNotFound)
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}

	poll.State, err = models.ParsePollState(state)
	if err != nil {
		return models.Poll{}, err
	}
	return poll, nil
}

func listOptions(ctx context.Context, q querier, pollID int64) ([]models.Option, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, poll_id, text, position
		FROM option
		WHERE poll_id = $1
		ORDER BY position, id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate options: %w", err)
	}
	return options, nil
}

func activePolls(ctx context.Context, q querier) ([]models.Poll, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question, state, activation_seq
		FROM poll
		WHERE state = 'active'
		ORDER BY activation_seq DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active polls: %w", err)
	}
	defer rows.Close()

	var polls []models.Poll
	for rows.Next() {
		var p models.Poll
		var state string
		if err := rows.Scan(&p.ID, &p.Question, &state, &p.ActivationSeq); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		p.State = models.PollState(state)
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active polls: %w", err)
	}
	return polls, nil
}

func selectedOptions(ctx context.Context, q querier, userID, pollID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT v.option_id
		FROM vote v
		JOIN option o ON o.id = v.option_id AND o.poll_id = v.poll_id
		WHERE v.user_id = $1 AND v.poll_id = $2
		ORDER BY o.position, o.id
	`, userID, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selected options: %w", err)
	}
	defer rows.Close()

	selected := []int64{}
	for rows.Next() {
		var optionID int64
		if err := rows.Scan(&optionID); err != nil {
			return nil, fmt.Errorf("failed to scan selected option: %w", err)
		}
		selected = append(selected, optionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate selected options: %w", err)
	}
	return selected, nil
}
