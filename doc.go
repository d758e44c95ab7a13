// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
quickly-poll is an operator CLI for the poll engine.

Every invocation opens the database, ensures the schema, runs one command
and exits. A messaging front end would embed the engine package instead.

Usage:

	quickly-poll [flags] <command> [args]

Commands:

	create <question> <option>...   Create a poll (draft unless --activate-on-create)
	activate <poll-id>              Make a poll the active poll
	close <poll-id>                 Close a poll
	end                             Close the active poll
	active                          Show the active poll and its options
	vote <poll-id> <option-id>      Toggle the acting user's vote
	submit <poll-id>                Mark the acting user's ballot as done
	results <poll-id>               Vote counts (--voters, --breakdown)
	export <poll-id>                Write results as JSON (--dir)

Example:

	export ADMIN_IDS=1
	quickly-poll --user 1 --activate-on-create create "Lunch?" Pizza Salad
	quickly-poll --user 2 --name bob vote 1 1
	quickly-poll results 1

See package cliparse for flags and environment variables.
*/
package main
