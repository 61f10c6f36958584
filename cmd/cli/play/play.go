package play

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/myrjola/turtlesoup/cmd/cli/setup"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/experiment"
	"github.com/myrjola/turtlesoup/internal/game"
	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/prompts"
	"github.com/myrjola/turtlesoup/internal/puzzles"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "play",
	Title: "Experiments",
}

func init() {
	flags := Play.Flags()
	flags.StringSlice("puzzle", nil, "puzzle ids to play, all stored puzzles when omitted")
	flags.String("file", "", "play the puzzles of a JSON dataset file, importing them first")
	flags.String("players", "Player1:systematic,Player2:creative", "roster as name:strategy pairs")
	flags.Int("max-rounds", 0, "round budget per session, TURTLESOUP_MAX_ROUNDS when zero")
	flags.Int("repeat", 1, "sessions per puzzle")
	flags.Int("parallel", 0, "concurrent sessions, TURTLESOUP_PARALLELISM when zero")
	flags.String("out", "", "directory for JSON game logs")
	flags.Bool("judge", false, "let the host judge explanations and end the session on a correct one")
	flags.Bool("keyword-coverage", false, "decide key question coverage by keyword overlap instead of the judge model")
	flags.Bool("mock", false, "answer every role with canned replies instead of calling a model")
}

var Play = &cobra.Command{
	Use:     "play",
	GroupID: "play",
	Short:   "Play and evaluate sessions",
	Long: `Plays every selected puzzle the given number of times with LLM host and players, evaluates each
session and stores transcripts and reports in the database. Prints a summary of the batch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := setup.NewLogger()
		cfg, err := setup.LoadConfig(os.LookupEnv)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		var (
			ids                             []string
			file, roster, outDir            string
			maxRounds, repeats, parallelism int
			judge, keywordCoverage, mock    bool
		)
		if ids, err = flags.GetStringSlice("puzzle"); err != nil {
			return err
		}
		if file, err = flags.GetString("file"); err != nil {
			return err
		}
		if roster, err = flags.GetString("players"); err != nil {
			return err
		}
		if outDir, err = flags.GetString("out"); err != nil {
			return err
		}
		if maxRounds, err = flags.GetInt("max-rounds"); err != nil {
			return err
		}
		if repeats, err = flags.GetInt("repeat"); err != nil {
			return err
		}
		if parallelism, err = flags.GetInt("parallel"); err != nil {
			return err
		}
		if judge, err = flags.GetBool("judge"); err != nil {
			return err
		}
		if keywordCoverage, err = flags.GetBool("keyword-coverage"); err != nil {
			return err
		}
		if mock, err = flags.GetBool("mock"); err != nil {
			return err
		}

		session := cfg.SessionConfig()
		if session.Players, err = game.ParseRoster(roster); err != nil {
			return err
		}
		if maxRounds != 0 {
			session.MaxRounds = maxRounds
		}
		if parallelism == 0 {
			parallelism = cfg.Parallelism
		}
		session.JudgeExplanations = judge

		store, err := cfg.OpenStore(ctx, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
		}()

		var selected []models.Puzzle
		if file != "" {
			if selected, err = puzzles.LoadFile(file); err != nil {
				return err
			}
			for _, p := range selected {
				if err = store.Puzzles.Upsert(ctx, p); err != nil {
					return errors.Wrap(err, "import puzzle", slog.String("puzzle_id", p.ID))
				}
			}
		} else if len(ids) == 0 {
			if selected, err = store.Puzzles.List(ctx); err != nil {
				return err
			}
		}
		if len(ids) > 0 {
			if selected, err = filterPuzzles(ctx, store, selected, ids); err != nil {
				return err
			}
		}
		if len(selected) == 0 {
			return errors.New("no puzzles to play")
		}

		invoker := cfg.Invoker(mock, logger)
		runner := experiment.New(experiment.Config{
			Session:     session,
			Repeats:     repeats,
			Parallelism: parallelism,
			OutDir:      outDir,
		}, invoker, prompts.Default{}, cfg.Evaluator(invoker, keywordCoverage, logger), store.Sessions, logger)

		results, runErr := runner.Run(ctx, selected)
		for _, res := range results {
			line := fmt.Sprintf("%s #%d %s %s rounds=%d", res.PuzzleID, res.Repeat, res.Transcript.SessionID,
				res.Transcript.Outcome, res.Transcript.RoundsUsed)
			if res.Report != nil {
				line += fmt.Sprintf(" coverage=%.2f", res.Report.CoverageRatio)
			}
			if res.Err != nil {
				line += fmt.Sprintf(" error=%q", res.Err.Error())
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
		if err = setup.PrintJSON(cmd.OutOrStdout(), experiment.Summarize(results)); err != nil {
			return err
		}
		return runErr
	},
}
