// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth decides who may manage polls.

The poll core only takes a privileged flag. Callers compute it here:

	admins, err := auth.ParseAdmins(os.Getenv("ADMIN_IDS"))
	privileged := admins.IsAdmin(userID)

An empty ADMIN_IDS leaves the set open and every user is privileged.
*/
package auth
