package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/myrjola/turtlesoup/internal/envstruct"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/logging"
	"github.com/myrjola/turtlesoup/internal/pprofserver"
	"github.com/myrjola/turtlesoup/internal/repositories"
	"github.com/myrjola/turtlesoup/internal/sqlite"
)

type application struct {
	logger   *slog.Logger
	puzzles  *repositories.PuzzleRepository
	sessions *repositories.SessionRepository
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"TURTLESOUP_ADDR" envDefault:"localhost:4000"`
	// PprofPort is the loopback port of the pprof server. Empty disables it.
	PprofPort string `env:"TURTLESOUP_PPROF_PORT" envDefault:":6060"`
	// SQLiteURL is the URL to the SQLite database. You can use ":memory:" for an ephemeral in-memory database.
	SQLiteURL string `env:"TURTLESOUP_SQLITE_URL" envDefault:"./turtlesoup.sqlite"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	// Initialise pprof listening on localhost so that it's not open to the world.
	if cfg.PprofPort != "" {
		pprofserver.Launch(ctx, cfg.PprofPort, logger)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()
	go db.StartDatabaseOptimizer(ctx, 24*time.Hour) //nolint:mnd // once a day

	app := application{
		logger:   logger,
		puzzles:  repositories.NewPuzzleRepository(db, logger),
		sessions: repositories.NewSessionRepository(db, logger),
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
	logger := slog.New(loggerHandler)

	// The .env file is optional, the environment may already be configured.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
