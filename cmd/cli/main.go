package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/myrjola/turtlesoup/cmd/cli/play"
	"github.com/myrjola/turtlesoup/cmd/cli/puzzle"
	"github.com/myrjola/turtlesoup/cmd/cli/sessions"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	// The .env file is optional, the environment may already be configured.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(puzzle.Group)
	rootCmd.AddCommand(puzzle.Import, puzzle.List)
	rootCmd.AddGroup(play.Group)
	rootCmd.AddCommand(play.Play)
	rootCmd.AddGroup(sessions.Group)
	rootCmd.AddCommand(sessions.List, sessions.Show, sessions.Report, sessions.Evaluate)
}

var rootCmd = &cobra.Command{
	Use:           "turtlesoup",
	Long:          `Lateral-thinking puzzle benchmark for language model agents`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above.
	}
}

func main() {
	Execute()
}
