package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/myrjola/turtlesoup/internal/ai"
	"github.com/myrjola/turtlesoup/internal/errors"
)

const coverageSystemPrompt = `You are an evaluation expert. Decide whether the questions a player asked cover a key question.
The wording does not need to match. A question covers the key question when it asks about the same or an
equivalent fact.`

const gradingSystemPrompt = `You are an evaluation expert. Compare a player's explanation with the true story and grade it
on four dimensions, each from 0 to 10:
1. Plot accuracy: is the core plot right?
2. Detail accuracy: are the key details right?
3. Reasoning quality: is the reasoning sound?
4. Completeness: how complete is the explanation overall?`

var (
	coveragePattern = regexp.MustCompile(`(?is)^[\s*"'\[(]*(yes|no)\b\D*(\d+)?`)
	rubricPatterns  = map[string]*regexp.Regexp{
		"plot accuracy":     rubricPattern("plot accuracy"),
		"detail accuracy":   rubricPattern("detail accuracy"),
		"reasoning quality": rubricPattern("reasoning quality"),
		"completeness":      rubricPattern("completeness"),
	}
)

func rubricPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + label + `[\s*]*[:：][\s*]*(-?\d+(?:\.\d+)?)\s*/\s*10\b`)
}

// LLMComparator asks a judge model whether the asked questions cover a key question.
type LLMComparator struct {
	invoker ai.Invoker
}

func NewLLMComparator(invoker ai.Invoker) *LLMComparator {
	return &LLMComparator{invoker: invoker}
}

func (c *LLMComparator) Covers(ctx context.Context, keyQuestion string, asked []string) (Match, error) {
	if len(asked) == 0 {
		return Match{Covered: false, Question: ""}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Key question:\n%s\n\nQuestions asked by the players:\n", keyQuestion)
	for i, q := range asked {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString("\nIs the key question covered by one of the asked questions?\n" +
		"Reply YES followed by the number of the covering question, or NO.")

	response, err := c.invoker.Invoke(ctx, ai.Request{
		Role:   ai.RoleJudge,
		Actor:  "",
		System: coverageSystemPrompt,
		User:   b.String(),
	})
	if err != nil {
		return Match{}, errors.Wrap(err, "invoke coverage judge")
	}
	return parseCoverage(response, asked)
}

func parseCoverage(response string, asked []string) (Match, error) {
	m := coveragePattern.FindStringSubmatch(strings.TrimSpace(response))
	if m == nil {
		return Match{}, errors.Wrap(ErrCoverage, "malformed coverage verdict", slog.String("response", response))
	}
	if !strings.EqualFold(m[1], "yes") {
		return Match{Covered: false, Question: ""}, nil
	}
	match := Match{Covered: true, Question: ""}
	if m[2] != "" {
		if n, err := strconv.Atoi(m[2]); err == nil && n >= 1 && n <= len(asked) {
			match.Question = asked[n-1]
		}
	}
	return match, nil
}

// LLMGrader asks a judge model to grade an explanation with the four-dimension rubric.
type LLMGrader struct {
	invoker ai.Invoker
}

func NewLLMGrader(invoker ai.Invoker) *LLMGrader {
	return &LLMGrader{invoker: invoker}
}

func (g *LLMGrader) Grade(ctx context.Context, truth, explanation string) (Rubric, error) {
	user := fmt.Sprintf(`Truth:
%s

Player explanation:
%s

Grade in exactly this format:
Plot accuracy: X/10 - short reason
Detail accuracy: X/10 - short reason
Reasoning quality: X/10 - short reason
Completeness: X/10 - short reason`, truth, explanation)

	response, err := g.invoker.Invoke(ctx, ai.Request{
		Role:   ai.RoleJudge,
		Actor:  "",
		System: gradingSystemPrompt,
		User:   user,
	})
	if err != nil {
		return Rubric{}, errors.Wrap(fmt.Errorf("%w: %w", ErrGradingFailure, err), "invoke grader")
	}
	return parseRubric(response)
}

// parseRubric extracts the four sub-scores. A missing sub-score is an error, values out of range are returned as is
// and left for Rubric.Validate.
func parseRubric(response string) (Rubric, error) {
	values := make(map[string]float64, len(rubricPatterns))
	for label, pattern := range rubricPatterns {
		m := pattern.FindStringSubmatch(response)
		if m == nil {
			return Rubric{}, errors.Wrap(ErrGradingFailure, "missing sub-score", slog.String("label", label))
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Rubric{}, errors.Wrap(fmt.Errorf("%w: %w", ErrGradingFailure, err), "parse sub-score",
				slog.String("label", label))
		}
		values[label] = v
	}
	return Rubric{
		PlotAccuracy:     values["plot accuracy"],
		DetailAccuracy:   values["detail accuracy"],
		ReasoningQuality: values["reasoning quality"],
		Completeness:     values["completeness"],
	}, nil
}
