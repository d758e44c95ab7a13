// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lifecycle manages poll states.

	draft --activate--> active --close--> closed
	draft --close-------------------------> closed
	active --(another poll activated)--> displaced state

At most one poll is active. Activating a poll moves the previously active
one to the configured displaced state (closed by default, draft if it should
only be flagged inactive) in the same transaction. A closed poll is never
reopened.
*/
package lifecycle
