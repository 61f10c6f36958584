package game

import (
	"regexp"
	"strings"

	"github.com/myrjola/turtlesoup/internal/models"
)

// Tags players use to mark their move. The question tag is optional.
const (
	QuestionTag    = "QUESTION"
	ExplanationTag = "EXPLANATION"
)

// Prompter builds the prompts for each role. The strategy label of a player only matters to the prompter.
type Prompter interface {
	HostSystem(puzzle models.Puzzle) string
	HostQuestion(question string) string
	// HostCorrection reformulates a question after the host answered outside the vocabulary.
	HostCorrection(question string, malformed string) string
	HostJudge(explanation string) string
	PlayerSystem(surface string, player models.PlayerConfig) string
	PlayerTurn(player models.PlayerConfig, turns []models.Turn) string
	// PlayerCorrection asks again after the player returned an empty move.
	PlayerCorrection(player models.PlayerConfig, turns []models.Turn) string
	PlayerFinal(player models.PlayerConfig, turns []models.Turn) string
	// PlayerFinalCorrection asks again after the player returned an empty final explanation.
	PlayerFinalCorrection(player models.PlayerConfig, turns []models.Turn) string
}

var (
	// The answer token may only be followed by closing decoration and then the end or a separator.
	answerPattern = regexp.MustCompile(
		`(?is)^[\s*"'“„(\[]*(yes|no|irrelevant)[*"'”)\]]*(?:$|\s*[.,!:;–—-][\s*"'”)\].,!:;–—-]*(.*)$)`)
	leadingAnswerPattern = regexp.MustCompile(`(?i)^(yes|no|irrelevant)\b`)
	movePattern          = regexp.MustCompile(`(?is)^[\s*\[(#]*(question|explanation)\s*[\]):][\s*:]*(.*)$`)
)

// parseAnswer reads a host response into one of the canonical answers and an optional clarification.
// Anything that does not start with YES, NO or IRRELEVANT is rejected instead of guessed, and so is a hedge such as
// "Yes. No, wait" whose clarification starts with another answer.
func parseAnswer(raw string) (models.Answer, string, bool) {
	m := answerPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", false
	}
	answer := models.Answer(strings.ToUpper(m[1]))
	if !answer.Valid() {
		return "", "", false
	}
	clarification := strings.TrimSpace(m[2])
	if leadingAnswerPattern.MatchString(clarification) {
		return "", "", false
	}
	return answer, clarification, true
}

type move struct {
	explanation bool
	text        string
}

// parseMove splits a player response into a question or a final explanation. An untagged response is a question.
func parseMove(raw string) (move, bool) {
	raw = strings.TrimSpace(raw)
	mv := move{explanation: false, text: raw}
	if m := movePattern.FindStringSubmatch(raw); m != nil {
		mv.explanation = strings.EqualFold(m[1], ExplanationTag)
		mv.text = strings.TrimSpace(m[2])
	}
	if mv.text == "" {
		return move{}, false
	}
	return mv, true
}

// parseExplanation accepts any non-empty response as a final explanation, dropping a move tag if present.
func parseExplanation(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if m := movePattern.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[2])
	}
	return raw, raw != ""
}
