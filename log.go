package ritual

import (
	"io"
	"log/slog"
)

// LevelFromFlags returns the logging level matching the usual
// verbosity flags: -vv for debug, -v for info, -q for errors only and
// warnings otherwise.  The most verbose flag wins.
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewLogger returns a text logger writing records at `level` and
// above to `w`.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
