// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package voting toggles a user's selections on the active poll.
//
// A user may hold any number of options on a poll. Toggling an option flips
// whether the user holds it. Two racing toggles of the same option by the
// same user are serialized by the store, so the option ends up held exactly
// when an odd number of them succeeded.
package voting
