// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"slices"
	"testing"
)

func TestParseAdmins(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantIDs []int64
		wantErr bool
	}{
		{"empty", "", []int64{}, false},
		{"single", "42", []int64{42}, false},
		{"comma separated", "42,7,1001", []int64{7, 42, 1001}, false},
		{"spaces and commas", " 42, 7  1001 ", []int64{7, 42, 1001}, false},
		{"duplicates", "5,5,5", []int64{5}, false},
		{"negative ids", "-100123,9", []int64{-100123, 9}, false},
		{"not a number", "42,bob", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admins, err := ParseAdmins(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAdminID) {
					t.Fatalf("ParseAdmins() error = %v, want ErrInvalidAdminID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAdmins() error = %v", err)
			}
			if got := admins.IDs(); !slices.Equal(got, tt.wantIDs) {
				t.Errorf("IDs() = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	admins := NewAdmins(1, 2)

	if !admins.IsAdmin(1) {
		t.Error("Expected user 1 to be admin")
	}
	if admins.IsAdmin(3) {
		t.Error("Expected user 3 not to be admin")
	}
	if admins.Open() {
		t.Error("Expected non-empty set not to be open")
	}
}

func TestOpenAdmins(t *testing.T) {
	admins, err := ParseAdmins("")
	if err != nil {
		t.Fatalf("ParseAdmins() error = %v", err)
	}

	if !admins.Open() {
		t.Error("Expected empty set to be open")
	}
	for _, id := range []int64{0, 1, 999} {
		if !admins.IsAdmin(id) {
			t.Errorf("Expected user %d to be admin when no admins are configured", id)
		}
	}
}
