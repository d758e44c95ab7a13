// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain types and error taxonomy shared by every layer.

# Domain Types

  - Poll: id, question, lifecycle state, activation sequence
  - Option: id, owning poll, text, position (insertion order)
  - Vote: one (user, poll, option) selection plus the voter's display name
  - Voter: the acting user as supplied by the caller
  - Selection: the user's selected option ids after a toggle or submit

# Result Types

  - OptionTally / Results: per-option counts in option order
  - OptionVoters / VoterResults: per-option voter lists
  - ResultSnapshot: export document

# Poll States

	draft → active → closed

Closed is terminal.

# Errors

Sentinel errors are matched with errors.Is:

  - ErrValidation: empty question, fewer than two options
  - ErrNotFound: unknown poll or option reference
  - ErrInvalidTransition: lifecycle rule violation
  - ErrPollNotVotable: vote on a poll that is not active
  - ErrUnknownOption: option belongs to another poll
  - ErrNoActivePoll: nothing to close
  - ErrBallotSubmitted: toggle after submit when submissions lock ballots
  - ErrNotPrivileged: privileged operation without the privileged flag
  - ErrStorage: database failure after retries
*/
package models
