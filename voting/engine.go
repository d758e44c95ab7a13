// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/quickly-poll/metrics"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

type Config struct {
	// LockOnSubmit rejects toggles from users who already submitted their ballot
	LockOnSubmit bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Engine applies vote toggles on active polls
type Engine struct {
	store        *store.Store
	lockOnSubmit bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func New(s *store.Store, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:        s,
		lockOnSubmit: cfg.LockOnSubmit,
		logger:       logger,
		metrics:      cfg.Metrics,
	}
}

// Toggle adds the (user, poll, option) vote if absent and removes it if present.
//
// The poll must exist and be active and the option must belong to it. On
// rejection nothing is written. The returned selection is read back inside
// the same transaction, after the flip.
func (e *Engine) Toggle(ctx context.Context, userID int64, voterName string, pollID, optionID int64) (models.Selection, error) {
	sel := models.Selection{PollID: pollID, UserID: userID, OptionID: optionID}

	err := e.store.Atomic(ctx, "toggle_vote", func(tx *store.Tx) error {
		if err := e.checkVotable(ctx, tx, pollID); err != nil {
			return err
		}

		belongs, err := tx.OptionBelongs(ctx, pollID, optionID)
		if err != nil {
			return err
		}
		if !belongs {
			return fmt.Errorf("option %d of poll %d: %w", optionID, pollID, models.ErrUnknownOption)
		}

		if e.lockOnSubmit {
			submitted, err := tx.HasSubmitted(ctx, userID, pollID)
			if err != nil {
				return err
			}
			if submitted {
				return fmt.Errorf("user %d on poll %d: %w", userID, pollID, models.ErrBallotSubmitted)
			}
		}

		sel.Added, err = tx.ToggleVote(ctx, models.Vote{
			UserID:    userID,
			PollID:    pollID,
			OptionID:  optionID,
			VoterName: voterName,
		})
		if err != nil {
			return err
		}

		sel.OptionIDs, err = tx.SelectedOptions(ctx, userID, pollID)
		return err
	})
	if err != nil {
		if models.IsDomainError(err) {
			e.metrics.Toggle(metrics.ToggleRejected)
			e.logger.Debug("toggle rejected",
				"user_id", userID,
				"poll_id", pollID,
				"option_id", optionID,
				"error", err,
			)
		}
		return models.Selection{}, err
	}

	if sel.Added {
		e.metrics.Toggle(metrics.ToggleAdded)
	} else {
		e.metrics.Toggle(metrics.ToggleRemoved)
	}
	e.logger.Debug("vote toggled",
		"user_id", userID,
		"poll_id", pollID,
		"option_id", optionID,
		"added", sel.Added,
	)
	return sel, nil
}

// Selected returns the option ids the user holds on the poll
func (e *Engine) Selected(ctx context.Context, userID, pollID int64) ([]int64, error) {
	if _, err := e.store.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	return e.store.SelectedOptions(ctx, userID, pollID)
}

// Submit records that the user is done voting on the poll and returns their
// selection. Submitting twice is harmless. With LockOnSubmit the selection is
// frozen afterwards.
func (e *Engine) Submit(ctx context.Context, userID, pollID int64) (models.Selection, error) {
	sel := models.Selection{PollID: pollID, UserID: userID}

	err := e.store.Atomic(ctx, "submit_ballot", func(tx *store.Tx) error {
		if err := e.checkVotable(ctx, tx, pollID); err != nil {
			return err
		}
		if err := tx.MarkSubmitted(ctx, userID, pollID); err != nil {
			return err
		}

		var err error
		sel.OptionIDs, err = tx.SelectedOptions(ctx, userID, pollID)
		return err
	})
	if err != nil {
		return models.Selection{}, err
	}

	e.logger.Info("ballot submitted",
		"user_id", userID,
		"poll_id", pollID,
		"selected", len(sel.OptionIDs),
	)
	return sel, nil
}

func (e *Engine) checkVotable(ctx context.Context, tx *store.Tx, pollID int64) error {
	poll, err := tx.Poll(ctx, pollID)
	if err != nil {
		return err
	}
	if poll.State != models.StateActive {
		return fmt.Errorf("poll %d is %s: %w", pollID, poll.State, models.ErrPollNotVotable)
	}
	return nil
}
