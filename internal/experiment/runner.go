// Package experiment plays batches of isolated game sessions and evaluates them.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/myrjola/turtlesoup/internal/ai"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/game"
	"github.com/myrjola/turtlesoup/internal/logging"
	"github.com/myrjola/turtlesoup/internal/models"
)

// Evaluator scores a finished transcript.
type Evaluator interface {
	Evaluate(ctx context.Context, puzzle models.Puzzle, transcript models.Transcript) (models.EvaluationReport, error)
}

// Store persists transcripts and reports.
type Store interface {
	Save(ctx context.Context, transcript models.Transcript) error
	SaveReport(ctx context.Context, report models.EvaluationReport) error
}

// Config describes a batch. Every puzzle is played Repeats times with the same session configuration.
type Config struct {
	Session     game.Config
	Repeats     int
	Parallelism int
	// OutDir receives one JSON game log per session. Empty disables the logs.
	OutDir string
}

// Result is the outcome of one session of the batch.
type Result struct {
	PuzzleID   string                   `json:"puzzle_id"`
	Repeat     int                      `json:"repeat"`
	Transcript models.Transcript        `json:"transcript"`
	Report     *models.EvaluationReport `json:"report,omitempty"`
	// Err is set when the session could not be created, was aborted, or could not be evaluated or stored.
	Err error `json:"-"`
}

// GameLog is the JSON document written for each session.
type GameLog struct {
	Puzzle     models.Puzzle            `json:"puzzle"`
	Transcript models.Transcript        `json:"transcript"`
	Report     *models.EvaluationReport `json:"report"`
	Error      string                   `json:"error,omitempty"`
}

type Runner struct {
	cfg       Config
	invoker   ai.Invoker
	prompter  game.Prompter
	evaluator Evaluator
	store     Store
	logger    *slog.Logger
}

// New creates a runner. The store is optional.
func New(
	cfg Config,
	invoker ai.Invoker,
	prompter game.Prompter,
	evaluator Evaluator,
	store Store,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		invoker:   invoker,
		prompter:  prompter,
		evaluator: evaluator,
		store:     store,
		logger:    logger.With("source", "experiment.Runner"),
	}
}

// Run plays every puzzle Repeats times. Sessions share no state and run on at most Parallelism workers.
//
// Failures of individual sessions are reported in their Result. Run itself only fails on invalid configuration or
// when ctx is done.
func (r *Runner) Run(ctx context.Context, puzzles []models.Puzzle) ([]Result, error) {
	if r.cfg.Repeats < 1 {
		return nil, errors.Wrap(game.ErrInvalidConfig, "repeats must be positive", slog.Int("repeats", r.cfg.Repeats))
	}
	if r.cfg.Parallelism < 1 {
		return nil, errors.Wrap(game.ErrInvalidConfig, "parallelism must be positive",
			slog.Int("parallelism", r.cfg.Parallelism))
	}
	if err := r.cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if r.cfg.OutDir != "" {
		if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil { //nolint:mnd // rwxr-xr-x
			return nil, errors.Wrap(err, "create output directory", slog.String("dir", r.cfg.OutDir))
		}
	}

	type job struct {
		idx    int
		puzzle models.Puzzle
		repeat int
	}
	total := len(puzzles) * r.cfg.Repeats
	jobs := make(chan job)
	results := make([]Result, total)

	workerCount := r.cfg.Parallelism
	if workerCount > total {
		workerCount = total
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker writes only its own index.
				results[j.idx] = r.play(ctx, j.puzzle, j.repeat)
			}
		}()
	}

	idx := 0
	for _, puzzle := range puzzles {
		for repeat := 0; repeat < r.cfg.Repeats; repeat++ {
			jobs <- job{idx: idx, puzzle: puzzle, repeat: repeat}
			idx++
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, errors.Wrap(err, "experiment interrupted")
	}
	return results, nil
}

func (r *Runner) play(ctx context.Context, puzzle models.Puzzle, repeat int) Result {
	ctx = logging.WithAttrs(ctx, slog.String("puzzle_id", puzzle.ID), slog.Int("repeat", repeat))
	result := Result{PuzzleID: puzzle.ID, Repeat: repeat}

	if err := ctx.Err(); err != nil {
		result.Err = errors.Wrap(err, "skip session")
		return result
	}

	session, err := game.NewSession(puzzle, r.cfg.Session, r.invoker, r.prompter, r.logger)
	if err != nil {
		result.Err = errors.Wrap(err, "create session")
		r.logger.LogAttrs(ctx, slog.LevelError, "session not created", errors.SlogError(result.Err))
		return result
	}

	var runErr error
	if result.Transcript, runErr = session.Run(ctx); runErr != nil {
		result.Err = runErr
	}

	if r.store != nil {
		if err = r.store.Save(ctx, result.Transcript); err != nil {
			result.Err = errors.Join(result.Err, errors.Wrap(err, "store transcript"))
		}
	}

	report, err := r.evaluator.Evaluate(ctx, puzzle, result.Transcript)
	if err != nil {
		result.Err = errors.Join(result.Err, errors.Wrap(err, "evaluate session"))
	} else {
		result.Report = &report
		if r.store != nil {
			if err = r.store.SaveReport(ctx, report); err != nil {
				result.Err = errors.Join(result.Err, errors.Wrap(err, "store report"))
			}
		}
	}

	if r.cfg.OutDir != "" {
		if err = r.writeLog(puzzle, result); err != nil {
			result.Err = errors.Join(result.Err, err)
		}
	}

	if result.Err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "session finished with errors", errors.SlogError(result.Err))
	}
	return result
}

func (r *Runner) writeLog(puzzle models.Puzzle, result Result) error {
	log := GameLog{
		Puzzle:     puzzle,
		Transcript: result.Transcript,
		Report:     result.Report,
	}
	if result.Err != nil {
		log.Error = result.Err.Error()
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal game log")
	}
	path := filepath.Join(r.cfg.OutDir, fmt.Sprintf("%s_%s.json", puzzle.ID, result.Transcript.SessionID))
	if err = os.WriteFile(path, data, 0o600); err != nil { //nolint:mnd // rw-------
		return errors.Wrap(err, "write game log", slog.String("path", path))
	}
	return nil
}
