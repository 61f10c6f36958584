package puzzle

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/myrjola/turtlesoup/cmd/cli/setup"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/puzzles"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "puzzles",
	Title: "Puzzle catalogue",
}

var Import = &cobra.Command{
	Use:     "import [dataset.json]",
	GroupID: "puzzles",
	Short:   "Import puzzles",
	Long:    `Imports a JSON puzzle dataset into the database. Existing puzzles with the same id are replaced.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := setup.NewLogger()
		cfg, err := setup.LoadConfig(os.LookupEnv)
		if err != nil {
			return err
		}
		loaded, err := puzzles.LoadFile(args[0])
		if err != nil {
			return err
		}
		store, err := cfg.OpenStore(ctx, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()
		for _, p := range loaded {
			if err = store.Puzzles.Upsert(ctx, p); err != nil {
				return errors.Wrap(err, "import puzzle", slog.String("puzzle_id", p.ID))
			}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d puzzles\n", len(loaded))
		return nil
	},
}

var List = &cobra.Command{
	Use:     "puzzles",
	GroupID: "puzzles",
	Short:   "List puzzles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := setup.NewLogger()
		cfg, err := setup.LoadConfig(os.LookupEnv)
		if err != nil {
			return err
		}
		store, err := cfg.OpenStore(ctx, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()
		all, err := store.Puzzles.List(ctx)
		if err != nil {
			return err
		}
		return setup.PrintJSON(cmd.OutOrStdout(), all)
	},
}
