// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package results counts votes.

Results can be read for a poll in any state. Every option appears, in the
order it was added, with zero when nobody picked it.

Text forms:

	Tally:     "Pizza: 1 votes"
	Breakdown: "Pizza - alice: 1 votes"
	           "Salad - nobody: 0 votes"

Export writes tallies and voters as JSON to poll_<id>_<timestamp>.json.
*/
package results
