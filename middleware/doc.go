// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware wraps poll operations with logging.

	poll, err := middleware.WithLogging(ctx, logger, "create_poll", func(ctx context.Context) (models.Poll, error) {
		...
	})

Each call gets an operation id (a UUID) that is put on the context and on
every log line, so a toggle can be followed from the engine into the store.
Completion is logged with duration_ms.
*/
package middleware
