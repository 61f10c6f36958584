package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/sqlite"
)

type PuzzleRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewPuzzleRepository(db *sqlite.Database, logger *slog.Logger) *PuzzleRepository {
	return &PuzzleRepository{
		db:     db,
		logger: logger.With("source", "PuzzleRepository"),
	}
}

type puzzleRow struct {
	ID             string         `db:"id"`
	Surface        string         `db:"surface"`
	Truth          string         `db:"truth"`
	KeyQuestions   string         `db:"key_questions"`
	TruthStructure sql.NullString `db:"truth_structure"`
	Flags          string         `db:"flags"`
}

func newPuzzleRow(p models.Puzzle) (puzzleRow, error) {
	row := puzzleRow{ID: p.ID, Surface: p.Surface, Truth: p.Truth}
	keyQuestions := p.KeyQuestions
	if keyQuestions == nil {
		keyQuestions = []string{}
	}
	flags := p.Flags
	if flags == nil {
		flags = []models.Flag{}
	}
	var (
		data []byte
		err  error
	)
	if data, err = json.Marshal(keyQuestions); err != nil {
		return puzzleRow{}, errors.Wrap(err, "marshal key questions")
	}
	row.KeyQuestions = string(data)
	if data, err = json.Marshal(flags); err != nil {
		return puzzleRow{}, errors.Wrap(err, "marshal flags")
	}
	row.Flags = string(data)
	if p.TruthStructure != nil {
		if data, err = json.Marshal(p.TruthStructure); err != nil {
			return puzzleRow{}, errors.Wrap(err, "marshal truth structure")
		}
		row.TruthStructure = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func (row puzzleRow) puzzle() (models.Puzzle, error) {
	p := models.Puzzle{ID: row.ID, Surface: row.Surface, Truth: row.Truth}
	if err := json.Unmarshal([]byte(row.KeyQuestions), &p.KeyQuestions); err != nil {
		return models.Puzzle{}, errors.Wrap(err, "unmarshal key questions", slog.String("puzzle_id", row.ID))
	}
	if err := json.Unmarshal([]byte(row.Flags), &p.Flags); err != nil {
		return models.Puzzle{}, errors.Wrap(err, "unmarshal flags", slog.String("puzzle_id", row.ID))
	}
	if row.TruthStructure.Valid {
		var node models.TruthNode
		if err := json.Unmarshal([]byte(row.TruthStructure.String), &node); err != nil {
			return models.Puzzle{}, errors.Wrap(err, "unmarshal truth structure", slog.String("puzzle_id", row.ID))
		}
		p.TruthStructure = &node
	}
	return p, nil
}

// Upsert stores the puzzle, replacing a stored puzzle with the same ID.
func (r *PuzzleRepository) Upsert(ctx context.Context, puzzle models.Puzzle) error {
	if err := puzzle.Validate(); err != nil {
		return errors.Wrap(err, "validate puzzle", slog.String("puzzle_id", puzzle.ID))
	}
	row, err := newPuzzleRow(puzzle)
	if err != nil {
		return err
	}
	stmt := `INSERT INTO puzzles (id, surface, truth, key_questions, truth_structure, flags)
VALUES (:id, :surface, :truth, :key_questions, :truth_structure, :flags)
ON CONFLICT (id) DO UPDATE SET surface         = excluded.surface,
                               truth           = excluded.truth,
                               key_questions   = excluded.key_questions,
                               truth_structure = excluded.truth_structure,
                               flags           = excluded.flags`
	if _, err = r.db.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "upsert puzzle", slog.String("puzzle_id", puzzle.ID))
	}
	return nil
}

// Get returns the puzzle with id or ErrNotFound.
func (r *PuzzleRepository) Get(ctx context.Context, id string) (models.Puzzle, error) {
	var row puzzleRow
	stmt := `SELECT id, surface, truth, key_questions, truth_structure, flags FROM puzzles WHERE id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		return models.Puzzle{}, notFoundOr(err, "get puzzle", slog.String("puzzle_id", id))
	}
	return row.puzzle()
}

// List returns all puzzles ordered by ID.
func (r *PuzzleRepository) List(ctx context.Context) ([]models.Puzzle, error) {
	var rows []puzzleRow
	stmt := `SELECT id, surface, truth, key_questions, truth_structure, flags FROM puzzles ORDER BY id`
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, errors.Wrap(err, "list puzzles")
	}
	puzzles := make([]models.Puzzle, 0, len(rows))
	for _, row := range rows {
		p, err := row.puzzle()
		if err != nil {
			return nil, err
		}
		puzzles = append(puzzles, p)
	}
	return puzzles, nil
}
