package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/sqlite"
)

// SessionRepository stores finished transcripts and their evaluation reports.
type SessionRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewSessionRepository(db *sqlite.Database, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger.With("source", "SessionRepository"),
	}
}

type sessionRow struct {
	ID          string `db:"id"`
	PuzzleID    string `db:"puzzle_id"`
	Players     string `db:"players"`
	MaxRounds   int    `db:"max_rounds"`
	Outcome     string `db:"outcome"`
	RoundsUsed  int    `db:"rounds_used"`
	Winner      string `db:"winner"`
	AbortReason string `db:"abort_reason"`
	Started     string `db:"started"`
	Ended       string `db:"ended"`
}

type turnRow struct {
	SessionID     string `db:"session_id"`
	RoundIndex    int    `db:"round_index"`
	Actor         string `db:"actor"`
	Question      string `db:"question"`
	Answer        string `db:"answer"`
	Clarification string `db:"clarification"`
	Corrected     bool   `db:"corrected"`
}

type explanationRow struct {
	SessionID   string `db:"session_id"`
	Player      string `db:"player"`
	Explanation string `db:"explanation"`
	Forced      bool   `db:"forced"`
	Position    int    `db:"position"`
}

type summaryRow struct {
	ID            string          `db:"id"`
	PuzzleID      string          `db:"puzzle_id"`
	Outcome       string          `db:"outcome"`
	RoundsUsed    int             `db:"rounds_used"`
	MaxRounds     int             `db:"max_rounds"`
	Winner        string          `db:"winner"`
	Started       string          `db:"started"`
	Ended         string          `db:"ended"`
	CoverageRatio sql.NullFloat64 `db:"coverage_ratio"`
	MeanOverall   sql.NullFloat64 `db:"mean_overall"`
}

// timeLayout has fixed width so that the stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse time", slog.String("value", s))
	}
	return t, nil
}

func nullableFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}

// Save stores a terminal transcript with its turns and final explanations in a single transaction.
func (r *SessionRepository) Save(ctx context.Context, transcript models.Transcript) (err error) {
	players, err := json.Marshal(transcript.Players)
	if err != nil {
		return errors.Wrap(err, "marshal players")
	}
	session := sessionRow{
		ID:          transcript.SessionID,
		PuzzleID:    transcript.PuzzleRef,
		Players:     string(players),
		MaxRounds:   transcript.MaxRounds,
		Outcome:     string(transcript.Outcome),
		RoundsUsed:  transcript.RoundsUsed,
		Winner:      transcript.Winner,
		AbortReason: transcript.AbortReason,
		Started:     formatTime(transcript.StartedAt),
		Ended:       formatTime(transcript.EndedAt),
	}

	var tx *sqlx.Tx
	if tx, err = r.db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(rollbackErr))
		}
	}()

	stmt := `INSERT INTO sessions (id, puzzle_id, players, max_rounds, outcome, rounds_used, winner, abort_reason,
                      started, ended)
VALUES (:id, :puzzle_id, :players, :max_rounds, :outcome, :rounds_used, :winner, :abort_reason, :started, :ended)`
	if _, err = tx.NamedExecContext(ctx, stmt, session); err != nil {
		return errors.Wrap(err, "insert session", slog.String("session_id", transcript.SessionID))
	}

	if len(transcript.Turns) > 0 {
		turns := make([]turnRow, len(transcript.Turns))
		for i, t := range transcript.Turns {
			turns[i] = turnRow{
				SessionID:     transcript.SessionID,
				RoundIndex:    t.RoundIndex,
				Actor:         t.Actor,
				Question:      t.Question,
				Answer:        string(t.Answer),
				Clarification: t.Clarification,
				Corrected:     t.Corrected,
			}
		}
		stmt = `INSERT INTO turns (session_id, round_index, actor, question, answer, clarification, corrected)
VALUES (:session_id, :round_index, :actor, :question, :answer, :clarification, :corrected)`
		if _, err = tx.NamedExecContext(ctx, stmt, turns); err != nil {
			return errors.Wrap(err, "insert turns", slog.String("session_id", transcript.SessionID))
		}
	}

	if len(transcript.FinalExplanations) > 0 {
		forced := make(map[string]int, len(transcript.ForcedExplanations))
		for i, player := range transcript.ForcedExplanations {
			forced[player] = i
		}
		explanations := make([]explanationRow, 0, len(transcript.FinalExplanations))
		for player, explanation := range transcript.FinalExplanations {
			position, isForced := forced[player]
			explanations = append(explanations, explanationRow{
				SessionID:   transcript.SessionID,
				Player:      player,
				Explanation: explanation,
				Forced:      isForced,
				Position:    position,
			})
		}
		stmt = `INSERT INTO final_explanations (session_id, player, explanation, forced, position)
VALUES (:session_id, :player, :explanation, :forced, :position)`
		if _, err = tx.NamedExecContext(ctx, stmt, explanations); err != nil {
			return errors.Wrap(err, "insert final explanations", slog.String("session_id", transcript.SessionID))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit session", slog.String("session_id", transcript.SessionID))
	}
	return nil
}

// Get reassembles the stored transcript of session id or returns ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (models.Transcript, error) {
	var session sessionRow
	stmt := `SELECT id, puzzle_id, players, max_rounds, outcome, rounds_used, winner, abort_reason, started, ended
FROM sessions WHERE id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &session, stmt, id); err != nil {
		return models.Transcript{}, notFoundOr(err, "get session", slog.String("session_id", id))
	}

	transcript := models.Transcript{
		SessionID:          session.ID,
		PuzzleRef:          session.PuzzleID,
		MaxRounds:          session.MaxRounds,
		Turns:              []models.Turn{},
		FinalExplanations:  map[string]string{},
		ForcedExplanations: []string{},
		Outcome:            models.Outcome(session.Outcome),
		RoundsUsed:         session.RoundsUsed,
		Winner:             session.Winner,
		AbortReason:        session.AbortReason,
	}
	var err error
	if err = json.Unmarshal([]byte(session.Players), &transcript.Players); err != nil {
		return models.Transcript{}, errors.Wrap(err, "unmarshal players", slog.String("session_id", id))
	}
	if transcript.StartedAt, err = parseTime(session.Started); err != nil {
		return models.Transcript{}, err
	}
	if transcript.EndedAt, err = parseTime(session.Ended); err != nil {
		return models.Transcript{}, err
	}

	var turns []turnRow
	stmt = `SELECT session_id, round_index, actor, question, answer, clarification, corrected
FROM turns WHERE session_id = ? ORDER BY round_index`
	if err = r.db.ReadOnly.SelectContext(ctx, &turns, stmt, id); err != nil {
		return models.Transcript{}, errors.Wrap(err, "select turns", slog.String("session_id", id))
	}
	for _, t := range turns {
		transcript.Turns = append(transcript.Turns, models.Turn{
			RoundIndex:    t.RoundIndex,
			Actor:         t.Actor,
			Question:      t.Question,
			Answer:        models.Answer(t.Answer),
			Clarification: t.Clarification,
			Corrected:     t.Corrected,
		})
	}

	var explanations []explanationRow
	stmt = `SELECT session_id, player, explanation, forced, position
FROM final_explanations WHERE session_id = ? ORDER BY position, player`
	if err = r.db.ReadOnly.SelectContext(ctx, &explanations, stmt, id); err != nil {
		return models.Transcript{}, errors.Wrap(err, "select final explanations", slog.String("session_id", id))
	}
	for _, e := range explanations {
		transcript.FinalExplanations[e.Player] = e.Explanation
		if e.Forced {
			transcript.ForcedExplanations = append(transcript.ForcedExplanations, e.Player)
		}
	}
	return transcript, nil
}

// List returns the summaries of the stored sessions, newest first. An empty puzzleID lists all puzzles.
func (r *SessionRepository) List(ctx context.Context, puzzleID string) ([]models.SessionSummary, error) {
	var rows []summaryRow
	stmt := `SELECT s.id, s.puzzle_id, s.outcome, s.rounds_used, s.max_rounds, s.winner, s.started, s.ended,
       r.coverage_ratio, r.mean_overall
FROM sessions s
         LEFT JOIN reports r ON r.session_id = s.id
WHERE @puzzle_id = '' OR s.puzzle_id = @puzzle_id
ORDER BY s.started DESC, s.id`
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, stmt, sql.Named("puzzle_id", puzzleID)); err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	summaries := make([]models.SessionSummary, 0, len(rows))
	for _, row := range rows {
		started, err := parseTime(row.Started)
		if err != nil {
			return nil, err
		}
		ended, err := parseTime(row.Ended)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, models.SessionSummary{
			ID:            row.ID,
			PuzzleID:      row.PuzzleID,
			Outcome:       models.Outcome(row.Outcome),
			RoundsUsed:    row.RoundsUsed,
			MaxRounds:     row.MaxRounds,
			Winner:        row.Winner,
			StartedAt:     started,
			EndedAt:       ended,
			CoverageRatio: nullableFloat(row.CoverageRatio),
			MeanOverall:   nullableFloat(row.MeanOverall),
		})
	}
	return summaries, nil
}

// SaveReport stores the evaluation report of a session, replacing an earlier evaluation.
func (r *SessionRepository) SaveReport(ctx context.Context, report models.EvaluationReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	stmt := `INSERT INTO reports (session_id, coverage_ratio, mean_overall, report)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET coverage_ratio = excluded.coverage_ratio,
                                       mean_overall   = excluded.mean_overall,
                                       report         = excluded.report,
                                       evaluated      = excluded.evaluated`
	if _, err = r.db.ReadWrite.ExecContext(ctx, stmt,
		report.SessionID, report.CoverageRatio, report.Summary.MeanOverall, string(data)); err != nil {
		return errors.Wrap(err, "upsert report", slog.String("session_id", report.SessionID))
	}
	return nil
}

// GetReport returns the stored evaluation report of session id or ErrNotFound.
func (r *SessionRepository) GetReport(ctx context.Context, sessionID string) (models.EvaluationReport, error) {
	var data string
	if err := r.db.ReadOnly.GetContext(ctx, &data, `SELECT report FROM reports WHERE session_id = ?`,
		sessionID); err != nil {
		return models.EvaluationReport{}, notFoundOr(err, "get report", slog.String("session_id", sessionID))
	}
	var report models.EvaluationReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return models.EvaluationReport{}, errors.Wrap(err, "unmarshal report", slog.String("session_id", sessionID))
	}
	return report, nil
}
