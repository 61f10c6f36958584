package experiment_test

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/myrjola/turtlesoup/internal/ai"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/evaluator"
	"github.com/myrjola/turtlesoup/internal/experiment"
	"github.com/myrjola/turtlesoup/internal/game"
	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/prompts"
	"github.com/myrjola/turtlesoup/internal/repositories"
	"github.com/myrjola/turtlesoup/internal/sqlite"
	"github.com/myrjola/turtlesoup/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type fixedGrader struct{}

func (fixedGrader) Grade(context.Context, string, string) (evaluator.Rubric, error) {
	return evaluator.Rubric{PlotAccuracy: 8, DetailAccuracy: 8, ReasoningQuality: 8, Completeness: 8}, nil
}

// quickSolver asks one question and explains as soon as the host has confirmed anything. It tracks how many
// sessions are in flight at once.
type quickSolver struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (q *quickSolver) Invoke(_ context.Context, req ai.Request) (string, error) {
	n := q.inFlight.Add(1)
	defer q.inFlight.Add(-1)
	for {
		current := q.maxInFlight.Load()
		if n <= current || q.maxInFlight.CompareAndSwap(current, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	switch req.Role {
	case ai.RoleHost:
		return "YES", nil
	case ai.RolePlayer:
		if strings.Contains(req.User, "Host: YES") {
			return "EXPLANATION: He ate his wife after the shipwreck.", nil
		}
		return "QUESTION: Was he shipwrecked?", nil
	default:
		return "", errors.New("unexpected role")
	}
}

func sessionConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.Players = []models.PlayerConfig{{Name: "Alice", Strategy: prompts.StrategySystematic}}
	cfg.MaxRounds = 5
	return cfg
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	puzzles := repositories.NewPuzzleRepository(db, logger)
	sessions := repositories.NewSessionRepository(db, logger)
	albatross, err := puzzles.Get(ctx, "albatross")
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "logs")
	invoker := &quickSolver{}
	runner := experiment.New(experiment.Config{
		Session:     sessionConfig(),
		Repeats:     4,
		Parallelism: 2,
		OutDir:      outDir,
	}, invoker, prompts.Default{}, evaluator.New(evaluator.KeywordComparator{}, fixedGrader{}, logger), sessions, logger)

	results, err := runner.Run(ctx, []models.Puzzle{albatross})
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.LessOrEqual(t, invoker.maxInFlight.Load(), int32(2))

	ids := map[string]bool{}
	for i, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, i, res.Repeat)
		require.Equal(t, models.OutcomeSolved, res.Transcript.Outcome)
		require.Equal(t, 2, res.Transcript.RoundsUsed)
		require.NotNil(t, res.Report)
		require.InDelta(t, 0.25, res.Report.CoverageRatio, 1e-9)
		ids[res.Transcript.SessionID] = true

		stored, getErr := sessions.Get(ctx, res.Transcript.SessionID)
		require.NoError(t, getErr)
		require.Equal(t, res.Transcript.Turns, stored.Turns)
		_, getErr = sessions.GetReport(ctx, res.Transcript.SessionID)
		require.NoError(t, getErr)

		data, readErr := os.ReadFile(filepath.Join(outDir, "albatross_"+res.Transcript.SessionID+".json"))
		require.NoError(t, readErr)
		var gameLog experiment.GameLog
		require.NoError(t, json.Unmarshal(data, &gameLog))
		require.Equal(t, "albatross", gameLog.Puzzle.ID)
		require.Equal(t, res.Transcript.SessionID, gameLog.Transcript.SessionID)
		require.Empty(t, gameLog.Error)
	}
	require.Len(t, ids, 4, "every repeat is an isolated session")

	summary := experiment.Summarize(results)
	require.Equal(t, 4, summary.Sessions)
	require.Equal(t, 4, summary.Solved)
	require.Zero(t, summary.Failed)
	require.InDelta(t, 0.25, *summary.MeanCoverage, 1e-9)
	require.InDelta(t, 80, *summary.MeanOverall, 1e-9)
	require.InDelta(t, 2, summary.MeanRoundsUsed, 1e-9)
}

func TestRunner_Run_mockInvoker(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	mock := ai.NewMockInvoker()
	judge := ai.Retrying{Invoker: mock, MaxRetries: 1, Timeout: time.Second}
	cfg := game.DefaultConfig()
	cfg.MaxRounds = 20
	store := &memoryStore{}
	runner := experiment.New(experiment.Config{Session: cfg, Repeats: 2, Parallelism: 1},
		mock, prompts.Default{}, evaluator.New(evaluator.NewLLMComparator(judge), evaluator.NewLLMGrader(judge), logger),
		store, logger)

	puzzle := models.Puzzle{
		ID:           "letter",
		Surface:      "A man's family received a letter from him a year after his funeral.",
		Truth:        "He faked his death and lived on a remote island.",
		KeyQuestions: []string{"Did he fake his death?", "Did he live far away?"},
	}
	results, err := runner.Run(context.Background(), []models.Puzzle{puzzle})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		require.NoError(t, res.Err)
		tr := res.Transcript
		require.Equal(t, models.OutcomeSolved, tr.Outcome)
		require.Equal(t, 10, tr.RoundsUsed)
		require.Len(t, tr.Turns, 8)
		require.Empty(t, tr.ForcedExplanations)
		require.Len(t, tr.FinalExplanations, 2)

		report := res.Report
		require.NotNil(t, report)
		require.Len(t, report.Coverage, 2)
		require.Zero(t, report.CoverageRatio)
		require.Equal(t, map[string]int{"Player1": 4, "Player2": 4}, report.Efficiency.QuestionsPerPlayer)
		require.Empty(t, report.Summary.IncompletePlayers)
		require.InDelta(t, 70, *report.Summary.MeanOverall, 1e-9)
	}
	require.Len(t, store.transcripts, 2)
	require.Len(t, store.reports, 2)

	summary := experiment.Summarize(results)
	require.Equal(t, 2, summary.Solved)
	require.InDelta(t, 10, summary.MeanRoundsUsed, 1e-9)
}

// memoryStore keeps what it is given.
type memoryStore struct {
	mu          sync.Mutex
	transcripts []models.Transcript
	reports     []models.EvaluationReport
}

func (s *memoryStore) Save(_ context.Context, transcript models.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, transcript)
	return nil
}

func (s *memoryStore) SaveReport(_ context.Context, report models.EvaluationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func TestRunner_Run_abortedSessionsAreKept(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	failing := ai.InvokerFunc(func(_ context.Context, req ai.Request) (string, error) {
		if req.Role == ai.RoleHost {
			return "", errors.New("host offline")
		}
		return "Was he shipwrecked?", nil
	})
	cfg := sessionConfig()
	cfg.MaxRetries = 0
	store := &memoryStore{}
	runner := experiment.New(experiment.Config{Session: cfg, Repeats: 1, Parallelism: 3},
		failing, prompts.Default{}, evaluator.New(evaluator.KeywordComparator{}, fixedGrader{}, logger), store, logger)

	puzzle := models.Puzzle{ID: "p", Surface: "s", Truth: "t", KeyQuestions: []string{"Was he shipwrecked?"}}
	results, err := runner.Run(context.Background(), []models.Puzzle{puzzle})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.ErrorIs(t, results[0].Err, game.ErrSessionAborted)
	require.Equal(t, models.OutcomeAborted, results[0].Transcript.Outcome)
	require.NotNil(t, results[0].Report)
	require.True(t, results[0].Report.PerPlayerScores["Alice"].Incomplete)
	require.Len(t, store.transcripts, 1)
	require.Len(t, store.reports, 1)

	summary := experiment.Summarize(results)
	require.Equal(t, 1, summary.Aborted)
	require.Equal(t, 1, summary.Failed)
	require.Nil(t, summary.MeanOverall)
}

func TestRunner_Run_invalidConfig(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	eval := evaluator.New(evaluator.KeywordComparator{}, fixedGrader{}, logger)
	tests := []experiment.Config{
		{Session: sessionConfig(), Repeats: 0, Parallelism: 1},
		{Session: sessionConfig(), Repeats: 1, Parallelism: 0},
		{Session: game.Config{}, Repeats: 1, Parallelism: 1},
	}
	for _, cfg := range tests {
		runner := experiment.New(cfg, &quickSolver{}, prompts.Default{}, eval, nil, logger)
		_, err := runner.Run(context.Background(), nil)
		require.ErrorIs(t, err, game.ErrInvalidConfig)
	}
}
