package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/repositories"
	"github.com/myrjola/turtlesoup/internal/sqlite"
	"github.com/myrjola/turtlesoup/internal/testhelpers"
)

// migratetest migrates a copy of a production database and checks that the stored data survived.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("TURTLESOUP_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "TURTLESOUP_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Read every puzzle and session back through the repositories as a simple smoke test.
	puzzles, err := repositories.NewPuzzleRepository(db, logger).List(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error listing puzzles", errors.SlogError(err))
		os.Exit(1)
	}
	if len(puzzles) == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no puzzles found, something is likely wrong")
		os.Exit(1)
	}
	sessions := repositories.NewSessionRepository(db, logger)
	summaries, err := sessions.List(ctx, "")
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error listing sessions", errors.SlogError(err))
		os.Exit(1)
	}
	for _, summary := range summaries {
		if _, err = sessions.Get(ctx, summary.ID); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error reading session",
				slog.String("session_id", summary.ID), errors.SlogError(err))
			os.Exit(1)
		}
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "stored data",
		slog.Int("puzzles", len(puzzles)), slog.Int("sessions", len(summaries)))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
