package mentor

import "log/slog"

// nopLogger discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(slog.DiscardHandler)
