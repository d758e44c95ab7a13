// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPollNotVotable    = errors.New("poll is not open for voting")
	ErrUnknownOption     = errors.New("option does not belong to poll")
	ErrNoActivePoll      = errors.New("no active poll")
	ErrBallotSubmitted   = errors.New("ballot already submitted")
	ErrNotPrivileged     = errors.New("operation requires privileges")
	ErrStorage           = errors.New("storage failure")
)

// IsDomainError reports whether err is a rule violation rather than a storage problem.
// Domain errors are final: retrying them cannot change the outcome.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrInvalidTransition, ErrPollNotVotable,
		ErrUnknownOption, ErrNoActivePoll, ErrBallotSubmitted, ErrNotPrivileged,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
