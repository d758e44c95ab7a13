// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "fmt"

// PollState is the lifecycle state stored in poll.state
type PollState string

// Poll state constants
const (
	StateDraft  PollState = "draft"
	StateActive PollState = "active"
	StateClosed PollState = "closed"
)

// ParsePollState accepts the stored spelling of a state
func ParsePollState(s string) (PollState, error) {
	switch PollState(s) {
	case StateDraft, StateActive, StateClosed:
		return PollState(s), nil
	}
	return "", fmt.Errorf("unknown poll state %q", s)
}

// Domain types

type Poll struct {
	ID            int64     `json:"id"`
	Question      string    `json:"question"`
	State         PollState `json:"state"`
	ActivationSeq int64     `json:"activation_seq,omitempty"`
}

type Option struct {
	ID       int64  `json:"id"`
	PollID   int64  `json:"poll_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

type PollWithOptions struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

// Vote is one (user, poll, option) selection
type Vote struct {
	UserID    int64  `json:"user_id"`
	PollID    int64  `json:"poll_id"`
	OptionID  int64  `json:"option_id"`
	VoterName string `json:"voter_name"`
}

// Voter identifies the person toggling. Name is only used for attribution.
type Voter struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// Selection is what a toggle or submit hands back to the caller for re-rendering
type Selection struct {
	PollID    int64   `json:"poll_id"`
	UserID    int64   `json:"user_id"`
	OptionID  int64   `json:"option_id,omitempty"`
	Added     bool    `json:"added"`
	OptionIDs []int64 `json:"option_ids"`
}

// Has reports whether optionID is in the selected set
func (s Selection) Has(optionID int64) bool {
	for _, id := range s.OptionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

// Result types

type OptionTally struct {
	OptionID int64  `json:"option_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
	Count    int    `json:"count"`
}

type Results struct {
	Poll       Poll          `json:"poll"`
	Options    []OptionTally `json:"options"`
	TotalVotes int           `json:"total_votes"`
}

type OptionVoters struct {
	OptionID int64   `json:"option_id"`
	Text     string  `json:"text"`
	Position int     `json:"position"`
	Voters   []Voter `json:"voters"`
}

// Count is the number of voters holding this option
func (o OptionVoters) Count() int {
	return len(o.Voters)
}

type VoterResults struct {
	Poll    Poll           `json:"poll"`
	Options []OptionVoters `json:"options"`
}

// ResultSnapshot is the document written by results export
type ResultSnapshot struct {
	Poll       Poll           `json:"poll"`
	Tallies    []OptionTally  `json:"tallies"`
	Voters     []OptionVoters `json:"voters"`
	TotalVotes int            `json:"total_votes"`
	ExportedAt string         `json:"exported_at"`
}
