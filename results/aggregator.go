// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

type Config struct {
	Logger *slog.Logger
	// Now stamps exports. Defaults to time.Now.
	Now func() time.Time
}

// Aggregator reads vote counts for any poll, in any state
type Aggregator struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(s *store.Store, cfg Config) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{store: s, logger: logger, now: now}
}

// Tally returns one entry per option in insertion order, zero counts included
func (a *Aggregator) Tally(ctx context.Context, pollID int64) (models.Results, error) {
	poll, err := a.store.GetPoll(ctx, pollID)
	if err != nil {
		return models.Results{}, err
	}

	tallies, err := a.store.Tally(ctx, pollID)
	if err != nil {
		return models.Results{}, err
	}

	total := 0
	for _, t := range tallies {
		total += t.Count
	}

	return models.Results{
		Poll:       poll,
		Options:    tallies,
		TotalVotes: total,
	}, nil
}

// Counts maps option id to vote count
func (a *Aggregator) Counts(ctx context.Context, pollID int64) (map[int64]int, error) {
	tallies, err := a.store.Tally(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int, len(tallies))
	for _, t := range tallies {
		counts[t.OptionID] = t.Count
	}
	return counts, nil
}

// TallyText renders the tally as "<option>: <count> votes" lines
func (a *Aggregator) TallyText(ctx context.Context, pollID int64) ([]string, error) {
	res, err := a.Tally(ctx, pollID)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(res.Options))
	for _, t := range res.Options {
		lines = append(lines, fmt.Sprintf("%s: %d votes", t.Text, t.Count))
	}
	return lines, nil
}

// Voters returns who holds each option
func (a *Aggregator) Voters(ctx context.Context, pollID int64) (models.VoterResults, error) {
	poll, err := a.store.GetPoll(ctx, pollID)
	if err != nil {
		return models.VoterResults{}, err
	}

	options, err := a.store.TallyWithVoters(ctx, pollID)
	if err != nil {
		return models.VoterResults{}, err
	}

	return models.VoterResults{Poll: poll, Options: options}, nil
}

// BreakdownText renders "<option> - <voter>: <n> votes" lines, one per
// option and voter name. Options nobody picked render as "<option> - nobody: 0 votes".
func (a *Aggregator) BreakdownText(ctx context.Context, pollID int64) ([]string, error) {
	res, err := a.Voters(ctx, pollID)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, opt := range res.Options {
		if len(opt.Voters) == 0 {
			lines = append(lines, fmt.Sprintf("%s - nobody: 0 votes", opt.Text))
			continue
		}

		// Voters sharing a display name are counted together
		var names []string
		counts := make(map[string]int)
		for _, v := range opt.Voters {
			name := displayName(v)
			if counts[name] == 0 {
				names = append(names, name)
			}
			counts[name]++
		}
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s - %s: %d votes", opt.Text, name, counts[name]))
		}
	}
	return lines, nil
}

func displayName(v models.Voter) string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("user %d", v.UserID)
}
