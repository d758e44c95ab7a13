// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielhkuo/quickly-poll/models"
)

// NormalizePoll trims the question and options and drops blank options.
// It fails with ErrValidation if the question is empty or fewer than two options remain.
func NormalizePoll(question string, options []string) (string, []string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, fmt.Errorf("%w: question is required", models.ErrValidation)
	}

	cleaned := make([]string, 0, len(options))
	for _, opt := range options {
		if opt = strings.TrimSpace(opt); opt != "" {
			cleaned = append(cleaned, opt)
		}
	}
	if len(cleaned) < 2 {
		return "", nil, fmt.Errorf("%w: poll must have at least 2 options, got %d", models.ErrValidation, len(cleaned))
	}

	return question, cleaned, nil
}

// CreatePoll inserts a poll and all of its options as one unit.
//
// When state is active, any poll that is currently active is moved to
// displaced inside the same transaction.
func (s *Store) CreatePoll(ctx context.Context, question string, options []string, state, displaced models.PollState) (models.PollWithOptions, error) {
	question, options, err := NormalizePoll(question, options)
	if err != nil {
		return models.PollWithOptions{}, err
	}
	if state == models.StateClosed {
		return models.PollWithOptions{}, fmt.Errorf("%w: cannot create a closed poll", models.ErrValidation)
	}

	var created models.PollWithOptions
	err = s.Atomic(ctx, "create_poll", func(tx *Tx) error {
		if state == models.StateActive {
			ids, err := tx.DisplaceActive(ctx, 0, displaced)
			if err != nil {
				return err
			}
			if len(ids) > 0 {
				s.logger.Info("active poll displaced", "poll_ids", ids, "to", string(displaced))
			}
		}

		pollID, err := tx.InsertPoll(ctx, question, state)
		if err != nil {
			return err
		}

		for i, text := range options {
			if _, err := tx.InsertOption(ctx, pollID, text, i); err != nil {
				return err
			}
		}

		poll, err := tx.Poll(ctx, pollID)
		if err != nil {
			return err
		}
		opts, err := tx.Options(ctx, pollID)
		if err != nil {
			return err
		}
		created = models.PollWithOptions{Poll: poll, Options: opts}
		return nil
	})
	if err != nil {
		return models.PollWithOptions{}, err
	}

	s.logger.Info("poll created",
		"poll_id", created.Poll.ID,
		"state", string(created.Poll.State),
		"options", len(created.Options),
	)
	return created, nil
}

// SetPollState writes state unconditionally. Transition rules live in the lifecycle manager.
func (s *Store) SetPollState(ctx context.Context, pollID int64, state models.PollState) error {
	return s.Atomic(ctx, "set_poll_state", func(tx *Tx) error {
		return tx.SetState(ctx, pollID, state)
	})
}

func (s *Store) GetPoll(ctx context.Context, pollID int64) (models.Poll, error) {
	var poll models.Poll
	err := s.retry(ctx, "get_poll", func() error {
		var err error
		poll, err = getPoll(ctx, s.db, pollID)
		return err
	})
	return poll, err
}

func (s *Store) ListOptions(ctx context.Context, pollID int64) ([]models.Option, error) {
	var options []models.Option
	err := s.retry(ctx, "list_options", func() error {
		var err error
		options, err = listOptions(ctx, s.db, pollID)
		return err
	})
	return options, err
}

// GetPollWithOptions loads a poll and its options in one transaction
func (s *Store) GetPollWithOptions(ctx context.Context, pollID int64) (models.PollWithOptions, error) {
	var result models.PollWithOptions
	err := s.Atomic(ctx, "get_poll_with_options", func(tx *Tx) error {
		poll, err := tx.Poll(ctx, pollID)
		if err != nil {
			return err
		}
		opts, err := tx.Options(ctx, pollID)
		if err != nil {
			return err
		}
		result = models.PollWithOptions{Poll: poll, Options: opts}
		return nil
	})
	return result, err
}

// FindActivePoll returns the active poll, if any.
//
// The schema allows only one active row. Should more ever be found, the most
// recently activated one wins and the violation is logged.
func (s *Store) FindActivePoll(ctx context.Context) (models.Poll, bool, error) {
	var active []models.Poll
	err := s.retry(ctx, "find_active_poll", func() error {
		var err error
		active, err = activePolls(ctx, s.db)
		return err
	})
	if err != nil {
		return models.Poll{}, false, err
	}

	if len(active) == 0 {
		return models.Poll{}, false, nil
	}
	if len(active) > 1 {
		ids := make([]int64, len(active))
		for i, p := range active {
			ids[i] = p.ID
		}
		s.logger.Error("single active poll invariant violated",
			"event", "store_multiple_active_polls",
			"poll_ids", ids,
			"chosen", active[0].ID,
		)
	}
	return active[0], true, nil
}
