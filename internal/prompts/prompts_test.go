package prompts_test

import (
	"testing"

	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/prompts"
	"github.com/stretchr/testify/require"
)

var puzzle = models.Puzzle{
	ID:           "lighthouse",
	Surface:      "A man turns off a light and dozens of people die.",
	Truth:        "He was a lighthouse keeper. Ships crashed on the rocks.",
	KeyQuestions: []string{"Was he a lighthouse keeper?"},
	Flags:        []models.Flag{models.FlagFatal},
}

func TestDefault_HostSystem(t *testing.T) {
	p := prompts.Default{}
	system := p.HostSystem(puzzle)
	require.Contains(t, system, puzzle.Surface)
	require.Contains(t, system, puzzle.Truth)
	require.Contains(t, system, "YES, NO or IRRELEVANT")
	require.NotContains(t, system, "supernatural")

	ghost := puzzle
	ghost.Flags = []models.Flag{models.FlagSupernatural}
	require.Contains(t, p.HostSystem(ghost), "supernatural")
}

func TestDefault_HostCorrection(t *testing.T) {
	got := prompts.Default{}.HostCorrection("Was it dark?", "Hard to say")
	require.Contains(t, got, "Was it dark?")
	require.Contains(t, got, "Hard to say")
}

func TestDefault_PlayerSystem_strategies(t *testing.T) {
	p := prompts.Default{}
	systematic := p.PlayerSystem(puzzle.Surface, models.PlayerConfig{Name: "Alice", Strategy: prompts.StrategySystematic})
	creative := p.PlayerSystem(puzzle.Surface, models.PlayerConfig{Name: "Bob", Strategy: prompts.StrategyCreative})
	unknown := p.PlayerSystem(puzzle.Surface, models.PlayerConfig{Name: "Carol", Strategy: "chaotic"})

	require.Contains(t, systematic, "You are Alice")
	require.Contains(t, systematic, prompts.Guide(prompts.StrategySystematic))
	require.Contains(t, creative, prompts.Guide(prompts.StrategyCreative))
	require.Contains(t, unknown, prompts.Guide(prompts.StrategySystematic))
	require.NotContains(t, systematic, puzzle.Truth)
	require.Contains(t, systematic, "EXPLANATION:")
}

func TestDefault_PlayerTurn_history(t *testing.T) {
	p := prompts.Default{}
	player := models.PlayerConfig{Name: "Alice", Strategy: prompts.StrategySystematic}

	empty := p.PlayerTurn(player, nil)
	require.Contains(t, empty, "(no questions asked yet)")

	turns := []models.Turn{
		{RoundIndex: 0, Actor: "Alice", Question: "Was he at work?", Answer: models.AnswerYes},
		{RoundIndex: 1, Actor: "Bob", Question: "Was it a ship?", Answer: models.AnswerNo, Clarification: "Many ships."},
	}
	got := p.PlayerTurn(player, turns)
	require.Contains(t, got, "Alice: Was he at work?\nHost: YES")
	require.Contains(t, got, "Bob: Was it a ship?\nHost: NO Many ships.")
	require.Contains(t, got, "It is your turn, Alice.")
	require.NotContains(t, got, "(no questions asked yet)")

	final := p.PlayerFinal(player, turns)
	require.Contains(t, final, "final explanation")
	require.Contains(t, final, "Bob: Was it a ship?")

	correction := p.PlayerCorrection(player, turns)
	require.Contains(t, correction, "did not contain a question")

	finalCorrection := p.PlayerFinalCorrection(player, turns)
	require.Contains(t, finalCorrection, "did not contain an explanation")
	require.Contains(t, finalCorrection, "Alice, tell the complete story")
	require.Contains(t, finalCorrection, "Bob: Was it a ship?")
	require.NotEqual(t, final, finalCorrection)
}
