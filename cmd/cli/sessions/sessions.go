package sessions

import (
	"os"

	"github.com/myrjola/turtlesoup/cmd/cli/setup"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "sessions",
	Title: "Stored sessions",
}

func init() {
	List.Flags().String("puzzle", "", "only list sessions of this puzzle")
	Evaluate.Flags().Bool("keyword-coverage", false,
		"decide key question coverage by keyword overlap instead of the judge model")
	Evaluate.Flags().Bool("mock", false, "grade with canned judge replies instead of calling a model")
}

// withStore opens the configured database for the duration of fn.
func withStore(cmd *cobra.Command, fn func(cfg setup.Config, store *setup.Store) error) (err error) {
	logger := setup.NewLogger()
	cfg, err := setup.LoadConfig(os.LookupEnv)
	if err != nil {
		return err
	}
	store, err := cfg.OpenStore(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()
	return fn(cfg, store)
}

var List = &cobra.Command{
	Use:     "sessions",
	GroupID: "sessions",
	Short:   "List sessions",
	Long:    `Lists stored sessions, newest first, with their evaluation summary when one exists.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		puzzleID, err := cmd.Flags().GetString("puzzle")
		if err != nil {
			return err
		}
		return withStore(cmd, func(_ setup.Config, store *setup.Store) error {
			summaries, listErr := store.Sessions.List(cmd.Context(), puzzleID)
			if listErr != nil {
				return listErr
			}
			return setup.PrintJSON(cmd.OutOrStdout(), summaries)
		})
	},
}

var Show = &cobra.Command{
	Use:     "show [session id]",
	GroupID: "sessions",
	Short:   "Print a transcript",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(_ setup.Config, store *setup.Store) error {
			transcript, err := store.Sessions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return setup.PrintJSON(cmd.OutOrStdout(), transcript)
		})
	},
}

var Report = &cobra.Command{
	Use:     "report [session id]",
	GroupID: "sessions",
	Short:   "Print an evaluation report",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(_ setup.Config, store *setup.Store) error {
			report, err := store.Sessions.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return setup.PrintJSON(cmd.OutOrStdout(), report)
		})
	},
}

var Evaluate = &cobra.Command{
	Use:     "evaluate [session id]",
	GroupID: "sessions",
	Short:   "Re-evaluate a stored session",
	Long:    `Evaluates a stored transcript again against its puzzle, replaces the stored report and prints it.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keywordCoverage, err := cmd.Flags().GetBool("keyword-coverage")
		if err != nil {
			return err
		}
		mock, err := cmd.Flags().GetBool("mock")
		if err != nil {
			return err
		}
		return withStore(cmd, func(cfg setup.Config, store *setup.Store) error {
			ctx := cmd.Context()
			transcript, err := store.Sessions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			puzzle, err := store.Puzzles.Get(ctx, transcript.PuzzleRef)
			if err != nil {
				return err
			}
			logger := setup.NewLogger()
			eval := cfg.Evaluator(cfg.Invoker(mock, logger), keywordCoverage, logger)
			report, err := eval.Evaluate(ctx, puzzle, transcript)
			if err != nil {
				return err
			}
			if err = store.Sessions.SaveReport(ctx, report); err != nil {
				return err
			}
			return setup.PrintJSON(cmd.OutOrStdout(), report)
		})
	},
}
