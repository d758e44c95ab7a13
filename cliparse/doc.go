// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse resolves the operator configuration.

# Precedence

A flag given on the command line wins, then the environment variable, then
the default. .env files are loaded first with LoadEnvFiles and never
override variables that are already set.

# CLI Flags

	--db                  Database URL or SQLite path   (DATABASE_URL, default quickly-poll.db)
	--db-type             sqlite or postgres            (DATABASE_TYPE, default sqlite)
	--user                Acting user id
	--name                Acting user display name
	--activate-on-create  Activate new polls at once    (POLL_ACTIVATE_ON_CREATE)
	--metrics-file        Prometheus textfile on exit   (METRICS_FILE)
	--log-level           debug, info, warn, error      (LOG_LEVEL, default info)

# Environment Only

	ADMIN_IDS             Comma separated user ids allowed to manage polls
	POLL_DISPLACED_STATE  closed (default) or draft
	POLL_LOCK_ON_SUBMIT   Freeze a ballot once submitted
	STORE_MAX_RETRIES     Retries after lock contention (default 3, 0 disables)
	EXPORT_DIR            Where results export writes (default .)

# Example

	cliparse.RegisterFlags(cmd.PersistentFlags())
	...
	cfg, err := cliparse.Resolve(cmd.Flags(), os.Getenv)
*/
package cliparse
