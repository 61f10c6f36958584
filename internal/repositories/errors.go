package repositories

import (
	"database/sql"
	"log/slog"

	"github.com/myrjola/turtlesoup/internal/errors"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.NewSentinel("not found")

// notFoundOr maps sql.ErrNoRows to ErrNotFound and annotates other errors with msg.
func notFoundOr(err error, msg string, attrs ...slog.Attr) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, msg, attrs...)
	}
	return errors.Wrap(err, msg, attrs...)
}
