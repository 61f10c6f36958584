package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/repositories"
	"github.com/myrjola/turtlesoup/internal/sqlite"
	"github.com/myrjola/turtlesoup/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestServer_puzzles(t *testing.T) {
	ctx, client := startTestServer(t, io.Discard)

	var health map[string]string
	status, err := client.GetJSON(ctx, "/api/healthy", &health)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health["status"])

	var puzzles []models.Puzzle
	status, err = client.GetJSON(ctx, "/api/puzzles", &puzzles)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, puzzles, 1)
	require.Equal(t, "albatross", puzzles[0].ID)

	var puzzle models.Puzzle
	status, err = client.GetJSON(ctx, "/api/puzzles/albatross", &puzzle)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, puzzle.KeyQuestions, 4)

	var errBody map[string]string
	status, err = client.GetJSON(ctx, "/api/puzzles/unknown", &errBody)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Not Found", errBody["error"])

	var sessions []models.SessionSummary
	status, err = client.GetJSON(ctx, "/api/sessions", &sessions)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, sessions)
}

func newTestApplication(t *testing.T) (*application, *repositories.SessionRepository) {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	sessions := repositories.NewSessionRepository(db, logger)
	return &application{
		logger:   logger,
		puzzles:  repositories.NewPuzzleRepository(db, logger),
		sessions: sessions,
	}, sessions
}

func get(t *testing.T, handler http.Handler, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec
}

func TestRoutes_sessions(t *testing.T) {
	app, sessions := newTestApplication(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	transcript := models.Transcript{
		SessionID: "session-1",
		PuzzleRef: "albatross",
		Players:   []models.PlayerConfig{{Name: "Alice", Strategy: "systematic"}},
		MaxRounds: 5,
		Turns: []models.Turn{
			{RoundIndex: 0, Actor: "Alice", Question: "Was he shipwrecked?", Answer: models.AnswerYes},
		},
		FinalExplanations:  map[string]string{"Alice": "He ate his wife."},
		ForcedExplanations: []string{},
		Outcome:            models.OutcomeSolved,
		RoundsUsed:         2,
		StartedAt:          started,
		EndedAt:            started.Add(time.Minute),
	}
	require.NoError(t, sessions.Save(ctx, transcript))
	overall := 80.0
	require.NoError(t, sessions.SaveReport(ctx, models.EvaluationReport{
		SessionID:     "session-1",
		CoverageRatio: 0.25,
		Coverage:      []models.KeyQuestionCoverage{},
		PerPlayerScores: map[string]models.PlayerScore{
			"Alice": {PlotAccuracy: 8, DetailAccuracy: 8, ReasoningQuality: 8, Completeness: 8, Overall: &overall},
		},
	}))

	handler := app.routes()

	var summaries []models.SessionSummary
	rec := get(t, handler, "/api/sessions?puzzle=albatross", &summaries)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, summaries, 1)
	require.Equal(t, models.OutcomeSolved, summaries[0].Outcome)
	require.NotNil(t, summaries[0].CoverageRatio)
	require.InDelta(t, 0.25, *summaries[0].CoverageRatio, 1e-9)

	rec = get(t, handler, "/api/sessions?puzzle=other", &summaries)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, summaries)

	var got models.Transcript
	rec = get(t, handler, "/api/sessions/session-1", &got)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, transcript.Turns, got.Turns)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var report models.EvaluationReport
	rec = get(t, handler, "/api/sessions/session-1/report", &report)
	require.Equal(t, http.StatusOK, rec.Code)
	require.InDelta(t, 80, *report.PerPlayerScores["Alice"].Overall, 1e-9)

	rec = get(t, handler, "/api/sessions/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = get(t, handler, "/api/sessions/missing/report", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = get(t, handler, "/nothing-here", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_recoverPanic(t *testing.T) {
	app, _ := newTestApplication(t)
	handler := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := get(t, handler, "/", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "close", rec.Header().Get("Connection"))
}
