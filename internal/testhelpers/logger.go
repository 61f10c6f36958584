package testhelpers

import (
	"io"
	"log/slog"

	"github.com/myrjola/turtlesoup/internal/logging"
)

// NewLogger creates a new logger with the given log sink such as io.Discard.
//
// Timestamps are dropped so that captured output can be compared between runs.
func NewLogger(logSink io.Writer) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	return slog.New(handler)
}
