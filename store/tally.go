// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/quickly-poll/models"
)

// Tally counts votes per option. Options without votes are included with a
// zero count; the order is option insertion order. Each query is a single
// statement so the counts come from one committed snapshot.
func (s *Store) Tally(ctx context.Context, pollID int64) ([]models.OptionTally, error) {
	if _, err := s.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}

	var tallies []models.OptionTally
	err := s.retry(ctx, "tally", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT o.id, o.text, o.position, COUNT(v.option_id)
			FROM option o
			LEFT JOIN vote v ON v.option_id = o.id AND v.poll_id = o.poll_id
			WHERE o.poll_id = $1
			GROUP BY o.id, o.text, o.position
			ORDER BY o.position, o.id
		`, pollID)
		if err != nil {
			return fmt.Errorf("failed to query tally: %w", err)
		}
		defer rows.Close()

		tallies = []models.OptionTally{}
		for rows.Next() {
			var t models.OptionTally
			if err := rows.Scan(&t.OptionID, &t.Text, &t.Position, &t.Count); err != nil {
				return fmt.Errorf("failed to scan tally: %w", err)
			}
			tallies = append(tallies, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tallies, nil
}

// TallyWithVoters lists, per option, who currently holds it. Voters are
// ordered by user id; options keep insertion order and appear even when empty.
func (s *Store) TallyWithVoters(ctx context.Context, pollID int64) ([]models.OptionVoters, error) {
	if _, err := s.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}

	var result []models.OptionVoters
	err := s.retry(ctx, "tally_with_voters", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT o.id, o.text, o.position, v.user_id, v.voter_name
			FROM option o
			LEFT JOIN vote v ON v.option_id = o.id AND v.poll_id = o.poll_id
			WHERE o.poll_id = $1
			ORDER BY o.position, o.id, v.user_id
		`, pollID)
		if err != nil {
			return fmt.Errorf("failed to query voters: %w", err)
		}
		defer rows.Close()

		result = []models.OptionVoters{}
		for rows.Next() {
			var (
				optionID  int64
				text      string
				position  int
				userID    sql.NullInt64
				voterName sql.NullString
			)
			if err := rows.Scan(&optionID, &text, &position, &userID, &voterName); err != nil {
				return fmt.Errorf("failed to scan voter: %w", err)
			}

			if len(result) == 0 || result[len(result)-1].OptionID != optionID {
				result = append(result, models.OptionVoters{
					OptionID: optionID,
					Text:     text,
					Position: position,
					Voters:   []models.Voter{},
				})
			}
			if userID.Valid {
				last := &result[len(result)-1]
				last.Voters = append(last.Voters, models.Voter{
					UserID: userID.Int64,
					Name:   voterName.String,
				})
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
