package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/myrjola/turtlesoup/internal/e2etest"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/logging"
	"github.com/myrjola/turtlesoup/internal/models"
)

// TestAPI reads the catalogue and the latest session of a deployed server.
func TestAPI(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return errors.Wrap(err, "wait for ready")
	}

	var puzzles []models.Puzzle
	status, err := client.GetJSON(ctx, "/api/puzzles", &puzzles)
	if err != nil {
		return errors.Wrap(err, "list puzzles")
	}
	if status != http.StatusOK || len(puzzles) == 0 {
		return errors.New("no puzzles served", slog.Int("status", status))
	}

	var sessions []models.SessionSummary
	if status, err = client.GetJSON(ctx, "/api/sessions", &sessions); err != nil {
		return errors.Wrap(err, "list sessions")
	}
	if status != http.StatusOK {
		return errors.New("sessions not served", slog.Int("status", status))
	}
	if len(sessions) == 0 {
		return nil
	}
	var transcript models.Transcript
	if status, err = client.GetJSON(ctx, "/api/sessions/"+sessions[0].ID, &transcript); err != nil {
		return errors.Wrap(err, "get session", slog.String("session_id", sessions[0].ID))
	}
	if status != http.StatusOK || transcript.SessionID != sessions[0].ID {
		return errors.New("session not served", slog.Int("status", status))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	url := "https://" + os.Args[1]
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if err := TestAPI(ctx, e2etest.NewClient(url)); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing api", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
