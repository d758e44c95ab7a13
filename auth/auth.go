// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var ErrInvalidAdminID = errors.New("invalid admin id")

// Admins is the set of user ids allowed to run privileged poll operations
type Admins struct {
	ids map[int64]struct{}
}

// ParseAdmins reads a comma or space separated list of user ids, as found in ADMIN_IDS
func ParseAdmins(raw string) (Admins, error) {
	ids := make(map[int64]struct{})
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return Admins{}, fmt.Errorf("%w: %q", ErrInvalidAdminID, f)
		}
		ids[id] = struct{}{}
	}
	return Admins{ids: ids}, nil
}

// NewAdmins builds a set from ids
func NewAdmins(ids ...int64) Admins {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Admins{ids: set}
}

// Open reports whether no admins are configured. An open set grants
// privileges to everyone, which suits a single local operator.
func (a Admins) Open() bool {
	return len(a.ids) == 0
}

// IsAdmin reports whether userID may run privileged operations
func (a Admins) IsAdmin(userID int64) bool {
	if a.Open() {
		return true
	}
	_, ok := a.ids[userID]
	return ok
}

// IDs returns the configured ids in ascending order
func (a Admins) IDs() []int64 {
	ids := make([]int64, 0, len(a.ids))
	for id := range a.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
