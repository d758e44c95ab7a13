// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine is the poll core's public surface.

A chat bot, CLI or any other front end holds one Engine and calls it with
the acting user's identity:

	eng, err := engine.New(s, engine.Config{Logger: logger, Metrics: m})

	poll, err := eng.CreatePoll(ctx, admins.IsAdmin(userID), "Lunch?", []string{"Pizza", "Salad"}, true)
	sel, err := eng.ToggleVote(ctx, models.Voter{UserID: userID, Name: name}, poll.Poll.ID, optionID)
	res, err := eng.GetResults(ctx, poll.Poll.ID)

# Privileges

CreatePoll, ActivatePoll, ClosePoll, CloseActivePoll and ExportResults take
a privileged flag supplied by the caller. Without it they fail with
models.ErrNotPrivileged before touching the store.

# Errors

Errors wrap the sentinels in models and are matched with errors.Is.
models.ErrStorage means the store kept failing after retries; anything else
is a rule violation and will fail the same way if repeated.
*/
package engine
