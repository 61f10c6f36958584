package play

import (
	"context"
	"log/slog"

	"github.com/myrjola/turtlesoup/cmd/cli/setup"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/models"
)

// filterPuzzles keeps the requested ids in the requested order. Ids missing from loaded are fetched from the store.
func filterPuzzles(ctx context.Context, store *setup.Store, loaded []models.Puzzle, ids []string) ([]models.Puzzle, error) {
	byID := make(map[string]models.Puzzle, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}
	selected := make([]models.Puzzle, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			selected = append(selected, p)
			continue
		}
		p, err := store.Puzzles.Get(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "select puzzle", slog.String("puzzle_id", id))
		}
		selected = append(selected, p)
	}
	return selected, nil
}
