// Package prompts builds the English prompts for the host and player roles.
package prompts

import (
	"strings"
	"text/template"

	"github.com/myrjola/turtlesoup/internal/game"
	"github.com/myrjola/turtlesoup/internal/models"
)

// Strategies known to the default prompts. Unknown strategies fall back to StrategySystematic.
const (
	StrategySystematic = "systematic"
	StrategyCreative   = "creative"
)

var strategyGuides = map[string]string{
	StrategySystematic: `Question systematically:
1. Establish the basic facts first: who, where and when.
2. Rule out the obvious possibilities.
3. Narrow the search step by step.
4. Focus on anomalies and contradictions.`,
	StrategyCreative: `Question creatively:
1. Make bold hypotheses and look at the story from different angles.
2. Pay attention to details and hidden information.
3. Try possibilities that defy common sense.
4. Look for the twist the story turns on.`,
}

var (
	hostSystem       = parse("host_system", hostSystemTemplate)
	hostQuestion     = parse("host_question", hostQuestionTemplate)
	hostCorrection   = parse("host_correction", hostCorrectionTemplate)
	hostJudge        = parse("host_judge", hostJudgeTemplate)
	playerSystem     = parse("player_system", playerSystemTemplate)
	playerTurn       = parse("player_turn", playerTurnTemplate)
	playerCorrection = parse("player_correction", playerCorrectionTemplate)
	playerFinal      = parse("player_final", playerFinalTemplate)
	playerFinalFix   = parse("player_final_correction", playerFinalCorrectionTemplate)
)

func parse(name, text string) *template.Template {
	tmpl := template.Must(template.New(name).Parse(historyTemplate))
	return template.Must(tmpl.Parse(text))
}

// Guide returns the questioning guide for strategy.
func Guide(strategy string) string {
	if guide, ok := strategyGuides[strategy]; ok {
		return guide
	}
	return strategyGuides[StrategySystematic]
}

// Default implements game.Prompter with the default English prompts.
type Default struct{}

var _ game.Prompter = Default{}

func (Default) HostSystem(puzzle models.Puzzle) string {
	return render(hostSystem, struct {
		Surface      string
		Truth        string
		Supernatural bool
	}{
		Surface:      puzzle.Surface,
		Truth:        puzzle.Truth,
		Supernatural: puzzle.HasFlag(models.FlagSupernatural),
	})
}

func (Default) HostQuestion(question string) string {
	return render(hostQuestion, struct{ Question string }{Question: question})
}

func (Default) HostCorrection(question string, malformed string) string {
	return render(hostCorrection, struct {
		Question  string
		Malformed string
	}{Question: question, Malformed: malformed})
}

func (Default) HostJudge(explanation string) string {
	return render(hostJudge, struct{ Explanation string }{Explanation: explanation})
}

func (Default) PlayerSystem(surface string, player models.PlayerConfig) string {
	return render(playerSystem, struct {
		Name           string
		Surface        string
		Guide          string
		QuestionTag    string
		ExplanationTag string
	}{
		Name:           player.Name,
		Surface:        surface,
		Guide:          Guide(player.Strategy),
		QuestionTag:    game.QuestionTag,
		ExplanationTag: game.ExplanationTag,
	})
}

func (Default) PlayerTurn(player models.PlayerConfig, turns []models.Turn) string {
	return render(playerTurn, newTurnData(player, turns))
}

func (Default) PlayerCorrection(player models.PlayerConfig, turns []models.Turn) string {
	return render(playerCorrection, newTurnData(player, turns))
}

func (Default) PlayerFinal(player models.PlayerConfig, turns []models.Turn) string {
	return render(playerFinal, newTurnData(player, turns))
}

func (Default) PlayerFinalCorrection(player models.PlayerConfig, turns []models.Turn) string {
	return render(playerFinalFix, newTurnData(player, turns))
}

type turnData struct {
	Name           string
	Turns          []models.Turn
	QuestionTag    string
	ExplanationTag string
}

func newTurnData(player models.PlayerConfig, turns []models.Turn) turnData {
	return turnData{
		Name:           player.Name,
		Turns:          turns,
		QuestionTag:    game.QuestionTag,
		ExplanationTag: game.ExplanationTag,
	}
}

// render executes one of the package templates. The templates and their data types are fixed at compile time so an
// execution error is a programming error.
func render(tmpl *template.Template, data any) string {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		panic(err)
	}
	return b.String()
}
