// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielhkuo/quickly-poll/models"
)

// exportTimeLayout is the timestamp in export file names
const exportTimeLayout = "20060102_150405"

// Snapshot collects tallies and voters for one poll
func (a *Aggregator) Snapshot(ctx context.Context, pollID int64) (models.ResultSnapshot, error) {
	tally, err := a.Tally(ctx, pollID)
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	voters, err := a.store.TallyWithVoters(ctx, pollID)
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	return models.ResultSnapshot{
		Poll:       tally.Poll,
		Tallies:    tally.Options,
		Voters:     voters,
		TotalVotes: tally.TotalVotes,
		ExportedAt: a.now().UTC().Format(time.RFC3339),
	}, nil
}

// Export writes the poll's snapshot to dir as poll_<id>_<timestamp>.json and
// returns the file path. dir is created if missing.
func (a *Aggregator) Export(ctx context.Context, pollID int64, dir string) (string, error) {
	snap, err := a.Snapshot(ctx, pollID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("poll_%d_%s.json", pollID, a.now().Format(exportTimeLayout))
	path := filepath.Join(dir, name)

	// Write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	a.logger.Info("results exported", "poll_id", pollID, "path", path, "total_votes", snap.TotalVotes)
	return path, nil
}
