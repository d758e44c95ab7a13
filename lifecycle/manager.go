// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/quickly-poll/metrics"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

// Transition names used for logging and metrics
const (
	TransitionCreate      = "create"
	TransitionActivate    = "activate"
	TransitionClose       = "close"
	TransitionCloseActive = "close_active"
)

type Config struct {
	// InitialState is the state Create gives new polls: draft or active.
	InitialState models.PollState
	// DisplacedState is where the previously active poll goes when another
	// poll is activated: closed, or draft to merely flag it inactive.
	DisplacedState models.PollState

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// DefaultConfig creates polls as drafts and closes displaced polls
func DefaultConfig() Config {
	return Config{
		InitialState:   models.StateDraft,
		DisplacedState: models.StateClosed,
	}
}

// Manager enforces poll state transitions and the single-active-poll rule
type Manager struct {
	store     *store.Store
	initial   models.PollState
	displaced models.PollState
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(s *store.Store, cfg Config) (*Manager, error) {
	if cfg.InitialState == "" {
		cfg.InitialState = models.StateDraft
	}
	if cfg.DisplacedState == "" {
		cfg.DisplacedState = models.StateClosed
	}
	if cfg.InitialState == models.StateClosed {
		return nil, fmt.Errorf("%w: initial state must be draft or active", models.ErrValidation)
	}
	if cfg.DisplacedState == models.StateActive {
		return nil, fmt.Errorf("%w: displaced state must be draft or closed", models.ErrValidation)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:     s,
		initial:   cfg.InitialState,
		displaced: cfg.DisplacedState,
		logger:    logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Create makes a poll in the configured initial state
func (m *Manager) Create(ctx context.Context, question string, options []string) (models.PollWithOptions, error) {
	return m.create(ctx, question, options, m.initial)
}

// CreateWithState makes a poll that is active when activate is true and a draft otherwise
func (m *Manager) CreateWithState(ctx context.Context, question string, options []string, activate bool) (models.PollWithOptions, error) {
	state := models.StateDraft
	if activate {
		state = models.StateActive
	}
	return m.create(ctx, question, options, state)
}

func (m *Manager) create(ctx context.Context, question string, options []string, state models.PollState) (models.PollWithOptions, error) {
	created, err := m.store.CreatePoll(ctx, question, options, state, m.displaced)
	m.record(TransitionCreate, err)
	return created, err
}

// Activate makes pollID the active poll.
//
// Any other active poll is moved to the displaced state in the same unit.
// Activating the active poll again succeeds without changes; a closed poll
// cannot be reopened.
func (m *Manager) Activate(ctx context.Context, pollID int64) error {
	var displaced []int64
	var changed bool

	err := m.store.Atomic(ctx, "activate_poll", func(tx *store.Tx) error {
		displaced, changed = nil, false

		poll, err := tx.Poll(ctx, pollID)
		if err != nil {
			return err
		}

		switch poll.State {
		case models.StateActive:
			return nil
		case models.StateClosed:
			return fmt.Errorf("poll %d is closed: %w", pollID, models.ErrInvalidTransition)
		}

		displaced, err = tx.DisplaceActive(ctx, pollID, m.displaced)
		if err != nil {
			return err
		}
		if err := tx.SetState(ctx, pollID, models.StateActive); err != nil {
			return err
		}
		changed = true
		return nil
	})
	m.record(TransitionActivate, err)
	if err != nil {
		return err
	}

	if changed {
		m.logger.Info("poll activated", "poll_id", pollID, "displaced", displaced)
	}
	return nil
}

// Close ends voting on a draft or active poll
func (m *Manager) Close(ctx context.Context, pollID int64) error {
	err := m.store.Atomic(ctx, "close_poll", func(tx *store.Tx) error {
		poll, err := tx.Poll(ctx, pollID)
		if err != nil {
			return err
		}
		if poll.State == models.StateClosed {
			return fmt.Errorf("poll %d is already closed: %w", pollID, models.ErrInvalidTransition)
		}
		return tx.SetState(ctx, pollID, models.StateClosed)
	})
	m.record(TransitionClose, err)
	if err != nil {
		return err
	}

	m.logger.Info("poll closed", "poll_id", pollID)
	return nil
}

// CloseActive closes whichever poll is active and returns its id
func (m *Manager) CloseActive(ctx context.Context) (int64, error) {
	var closed int64

	err := m.store.Atomic(ctx, "close_active_poll", func(tx *store.Tx) error {
		active, err := tx.ActivePolls(ctx)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return models.ErrNoActivePoll
		}

		// More than one row only if the index was bypassed; close them all.
		for _, p := range active {
			if err := tx.SetState(ctx, p.ID, models.StateClosed); err != nil {
				return err
			}
		}
		closed = active[0].ID
		return nil
	})
	m.record(TransitionCloseActive, err)
	if err != nil {
		return 0, err
	}

	m.logger.Info("active poll closed", "poll_id", closed)
	return closed, nil
}

// Active returns the active poll with its options. found is false when no poll is active.
func (m *Manager) Active(ctx context.Context) (models.PollWithOptions, bool, error) {
	var result models.PollWithOptions
	var found bool

	err := m.store.Atomic(ctx, "active_poll", func(tx *store.Tx) error {
		found = false

		active, err := tx.ActivePolls(ctx)
		if err != nil || len(active) == 0 {
			return err
		}
		if len(active) > 1 {
			m.logger.Error("more than one active poll",
				"event", "lifecycle_multiple_active_polls",
				"count", len(active),
				"chosen", active[0].ID,
			)
		}

		opts, err := tx.Options(ctx, active[0].ID)
		if err != nil {
			return err
		}
		result = models.PollWithOptions{Poll: active[0], Options: opts}
		found = true
		return nil
	})
	if err != nil {
		return models.PollWithOptions{}, false, err
	}
	return result, found, nil
}

// Get loads any poll with its options
func (m *Manager) Get(ctx context.Context, pollID int64) (models.PollWithOptions, error) {
	return m.store.GetPollWithOptions(ctx, pollID)
}

func (m *Manager) record(transition string, err error) {
	switch {
	case err == nil:
		m.metrics.Transition(transition, metrics.OutcomeOK)
	case models.IsDomainError(err):
		m.metrics.Transition(transition, metrics.OutcomeRejected)
	default:
		m.metrics.Transition(transition, metrics.OutcomeError)
	}
}
