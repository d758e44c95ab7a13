// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-poll/lifecycle"
	"github.com/danielhkuo/quickly-poll/metrics"
	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/results"
	"github.com/danielhkuo/quickly-poll/store"
	"github.com/danielhkuo/quickly-poll/voting"
)

type Config struct {
	// DisplacedState is where a previously active poll goes on activation
	DisplacedState models.PollState
	// LockOnSubmit freezes a user's selection once they submit
	LockOnSubmit bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Now stamps result exports. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the entry point collaborators call. It gates privileged
// operations and logs every call with an operation id.
type Engine struct {
	lifecycle *lifecycle.Manager
	voting    *voting.Engine
	results   *results.Aggregator
	logger    *slog.Logger
}

func New(s *store.Store, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	manager, err := lifecycle.New(s, lifecycle.Config{
		InitialState:   models.StateDraft,
		DisplacedState: cfg.DisplacedState,
		Logger:         logger,
		Metrics:        cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		lifecycle: manager,
		voting: voting.New(s, voting.Config{
			LockOnSubmit: cfg.LockOnSubmit,
			Logger:       logger,
			Metrics:      cfg.Metrics,
		}),
		results: results.New(s, results.Config{
			Logger: logger,
			Now:    cfg.Now,
		}),
		logger: logger,
	}, nil
}

func requirePrivilege(privileged bool, op string) error {
	if !privileged {
		return fmt.Errorf("%s: %w", op, models.ErrNotPrivileged)
	}
	return nil
}

// CreatePoll stores a new poll. With activateImmediately it becomes the
// active poll and the previous one is displaced; otherwise it is a draft.
func (e *Engine) CreatePoll(ctx context.Context, privileged bool, question string, options []string, activateImmediately bool) (models.PollWithOptions, error) {
	return middleware.WithLogging(ctx, e.logger, "create_poll", func(ctx context.Context) (models.PollWithOptions, error) {
		if err := requirePrivilege(privileged, "create_poll"); err != nil {
			return models.PollWithOptions{}, err
		}
		return e.lifecycle.CreateWithState(ctx, question, options, activateImmediately)
	})
}

func (e *Engine) ActivatePoll(ctx context.Context, privileged bool, pollID int64) error {
	_, err := middleware.WithLogging(ctx, e.logger, "activate_poll", func(ctx context.Context) (struct{}, error) {
		if err := requirePrivilege(privileged, "activate_poll"); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, e.lifecycle.Activate(ctx, pollID)
	})
	return err
}

func (e *Engine) ClosePoll(ctx context.Context, privileged bool, pollID int64) error {
	_, err := middleware.WithLogging(ctx, e.logger, "close_poll", func(ctx context.Context) (struct{}, error) {
		if err := requirePrivilege(privileged, "close_poll"); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, e.lifecycle.Close(ctx, pollID)
	})
	return err
}

// CloseActivePoll ends voting on whatever poll is active and returns its id
func (e *Engine) CloseActivePoll(ctx context.Context, privileged bool) (int64, error) {
	return middleware.WithLogging(ctx, e.logger, "close_active_poll", func(ctx context.Context) (int64, error) {
		if err := requirePrivilege(privileged, "close_active_poll"); err != nil {
			return 0, err
		}
		return e.lifecycle.CloseActive(ctx)
	})
}

// GetActivePoll returns the active poll and its options; found is false if there is none
func (e *Engine) GetActivePoll(ctx context.Context) (poll models.PollWithOptions, found bool, err error) {
	_, err = middleware.WithLogging(ctx, e.logger, "get_active_poll", func(ctx context.Context) (struct{}, error) {
		var err error
		poll, found, err = e.lifecycle.Active(ctx)
		return struct{}{}, err
	})
	return poll, found, err
}

// GetPoll returns any poll with its options
func (e *Engine) GetPoll(ctx context.Context, pollID int64) (models.PollWithOptions, error) {
	return middleware.WithLogging(ctx, e.logger, "get_poll", func(ctx context.Context) (models.PollWithOptions, error) {
		return e.lifecycle.Get(ctx, pollID)
	})
}

// ToggleVote flips the voter's selection of optionID and returns their full selection
func (e *Engine) ToggleVote(ctx context.Context, voter models.Voter, pollID, optionID int64) (models.Selection, error) {
	return middleware.WithLogging(ctx, e.logger, "toggle_vote", func(ctx context.Context) (models.Selection, error) {
		return e.voting.Toggle(ctx, voter.UserID, voter.Name, pollID, optionID)
	})
}

// SubmitBallot marks the voter as done and returns their selection
func (e *Engine) SubmitBallot(ctx context.Context, voter models.Voter, pollID int64) (models.Selection, error) {
	return middleware.WithLogging(ctx, e.logger, "submit_ballot", func(ctx context.Context) (models.Selection, error) {
		return e.voting.Submit(ctx, voter.UserID, pollID)
	})
}

func (e *Engine) GetResults(ctx context.Context, pollID int64) (models.Results, error) {
	return middleware.WithLogging(ctx, e.logger, "get_results", func(ctx context.Context) (models.Results, error) {
		return e.results.Tally(ctx, pollID)
	})
}

func (e *Engine) GetVoterResults(ctx context.Context, pollID int64) (models.VoterResults, error) {
	return middleware.WithLogging(ctx, e.logger, "get_voter_results", func(ctx context.Context) (models.VoterResults, error) {
		return e.results.Voters(ctx, pollID)
	})
}

// ResultLines renders the tally, or the per-voter breakdown, as text lines
func (e *Engine) ResultLines(ctx context.Context, pollID int64, breakdown bool) ([]string, error) {
	return middleware.WithLogging(ctx, e.logger, "result_lines", func(ctx context.Context) ([]string, error) {
		if breakdown {
			return e.results.BreakdownText(ctx, pollID)
		}
		return e.results.TallyText(ctx, pollID)
	})
}

// ExportResults writes the poll's results as JSON into dir and returns the file path
func (e *Engine) ExportResults(ctx context.Context, privileged bool, pollID int64, dir string) (string, error) {
	return middleware.WithLogging(ctx, e.logger, "export_results", func(ctx context.Context) (string, error) {
		if err := requirePrivilege(privileged, "export_results"); err != nil {
			return "", err
		}
		return e.results.Export(ctx, pollID, dir)
	})
}
