// Package evaluator scores a finished game transcript against its puzzle.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/logging"
	"github.com/myrjola/turtlesoup/internal/models"
)

const maxSubScore = 10

var (
	// ErrCoverage means the coverage of the key questions could not be determined.
	ErrCoverage = errors.NewSentinel("coverage comparison failed")
	// ErrGradingFailure marks a grade that could not be obtained or was malformed.
	ErrGradingFailure = errors.NewSentinel("grading failed")
	// ErrPuzzleMismatch is returned when the transcript was played on another puzzle.
	ErrPuzzleMismatch = errors.NewSentinel("transcript does not belong to puzzle")
)

// Match is the result of comparing a key question with the questions asked in a session.
type Match struct {
	Covered bool
	// Question is the asked question that covered the key question, if known.
	Question string
}

// Comparator decides whether any of the asked questions semantically addresses the key question. Implementations
// define their own threshold but must be deterministic for identical input where the backing model allows it.
type Comparator interface {
	Covers(ctx context.Context, keyQuestion string, asked []string) (Match, error)
}

// Rubric holds the four sub-scores of an explanation grade on a 0–10 scale.
type Rubric struct {
	PlotAccuracy     float64
	DetailAccuracy   float64
	ReasoningQuality float64
	Completeness     float64
}

func (r Rubric) values() []float64 {
	return []float64{r.PlotAccuracy, r.DetailAccuracy, r.ReasoningQuality, r.Completeness}
}

// Validate rejects sub-scores that are not numbers in [0, 10].
func (r Rubric) Validate() error {
	for _, v := range r.values() {
		if math.IsNaN(v) || v < 0 || v > maxSubScore {
			return errors.Wrap(ErrGradingFailure, "sub-score out of range", slog.Float64("score", v))
		}
	}
	return nil
}

// Overall scales the mean of the sub-scores to 0–100.
func (r Rubric) Overall() float64 {
	sum := 0.0
	values := r.values()
	for _, v := range values {
		sum += v
	}
	overall := sum / float64(len(values)) * 10 //nolint:mnd // 0–10 to 0–100
	return math.Max(0, math.Min(100, overall)) //nolint:mnd // clamp
}

// Grader grades an explanation against the truth.
type Grader interface {
	Grade(ctx context.Context, truth, explanation string) (Rubric, error)
}

// Evaluator produces evaluation reports. It never modifies the transcript it is given.
type Evaluator struct {
	comparator Comparator
	grader     Grader
	logger     *slog.Logger
}

func New(comparator Comparator, grader Grader, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		comparator: comparator,
		grader:     grader,
		logger:     logger.With("source", "evaluator.Evaluator"),
	}
}

// Evaluate computes the key-question coverage, grades each player's final explanation and measures the round
// efficiency of a terminal transcript.
//
// A grade that cannot be obtained or is out of range only marks that player's entry incomplete. Failing to compute
// the coverage fails the whole evaluation.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	puzzle models.Puzzle,
	transcript models.Transcript,
) (models.EvaluationReport, error) {
	if transcript.PuzzleRef != "" && puzzle.ID != "" && transcript.PuzzleRef != puzzle.ID {
		return models.EvaluationReport{}, errors.Wrap(ErrPuzzleMismatch, "evaluate",
			slog.String("puzzle_id", puzzle.ID), slog.String("puzzle_ref", transcript.PuzzleRef))
	}
	ctx = logging.WithAttrs(ctx, slog.String("session_id", transcript.SessionID))

	ratio, coverage, err := e.coverage(ctx, puzzle.KeyQuestions, transcript.Questions())
	if err != nil {
		return models.EvaluationReport{}, err
	}

	scores, err := e.scores(ctx, puzzle.Truth, transcript)
	if err != nil {
		return models.EvaluationReport{}, err
	}

	report := models.EvaluationReport{
		SessionID:       transcript.SessionID,
		CoverageRatio:   ratio,
		Coverage:        coverage,
		PerPlayerScores: scores,
		Efficiency:      efficiency(transcript),
		Summary:         summarize(transcript.Players, scores),
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "evaluated session",
		slog.Float64("coverage_ratio", ratio),
		slog.Int("scored_players", report.Summary.ScoredPlayers),
		slog.Int("incomplete_players", len(report.Summary.IncompletePlayers)))
	return report, nil
}

func (e *Evaluator) coverage(
	ctx context.Context,
	keyQuestions []string,
	asked []string,
) (float64, []models.KeyQuestionCoverage, error) {
	coverage := make([]models.KeyQuestionCoverage, 0, len(keyQuestions))
	if len(keyQuestions) == 0 {
		return 1, coverage, nil
	}
	matched := 0
	for _, kq := range keyQuestions {
		match, err := e.comparator.Covers(ctx, kq, asked)
		if err != nil {
			return 0, nil, errors.Wrap(fmt.Errorf("%w: %w", ErrCoverage, err), "compare key question",
				slog.String("key_question", kq))
		}
		if match.Covered {
			matched++
		}
		coverage = append(coverage, models.KeyQuestionCoverage{
			KeyQuestion:     kq,
			Covered:         match.Covered,
			MatchedQuestion: match.Question,
		})
	}
	return float64(matched) / float64(len(keyQuestions)), coverage, nil
}

func (e *Evaluator) scores(
	ctx context.Context,
	truth string,
	transcript models.Transcript,
) (map[string]models.PlayerScore, error) {
	scores := make(map[string]models.PlayerScore, len(transcript.Players))
	for _, player := range transcript.Players {
		explanation, ok := transcript.FinalExplanations[player.Name]
		if !ok {
			scores[player.Name] = models.PlayerScore{Incomplete: true, Reason: "no final explanation"}
			continue
		}
		rubric, err := e.grader.Grade(ctx, truth, explanation)
		if err == nil {
			err = rubric.Validate()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.Wrap(ctxErr, "grade explanations")
			}
			e.logger.LogAttrs(ctx, slog.LevelWarn, "incomplete grade",
				slog.String("player", player.Name), errors.SlogError(err))
			scores[player.Name] = models.PlayerScore{
				PlotAccuracy:     rubric.PlotAccuracy,
				DetailAccuracy:   rubric.DetailAccuracy,
				ReasoningQuality: rubric.ReasoningQuality,
				Completeness:     rubric.Completeness,
				Incomplete:       true,
				Reason:           err.Error(),
			}
			continue
		}
		overall := rubric.Overall()
		scores[player.Name] = models.PlayerScore{
			PlotAccuracy:     rubric.PlotAccuracy,
			DetailAccuracy:   rubric.DetailAccuracy,
			ReasoningQuality: rubric.ReasoningQuality,
			Completeness:     rubric.Completeness,
			Overall:          &overall,
		}
	}
	return scores, nil
}

func efficiency(transcript models.Transcript) models.Efficiency {
	eff := models.Efficiency{
		RoundsUsed:            transcript.RoundsUsed,
		MaxRounds:             transcript.MaxRounds,
		QuestionsPerPlayer:    make(map[string]int, len(transcript.Players)),
		ExplanationsPerPlayer: make(map[string]int, len(transcript.Players)),
	}
	if transcript.MaxRounds > 0 {
		eff.EfficiencyRate = 1 - float64(transcript.RoundsUsed)/float64(transcript.MaxRounds)
	}
	for _, player := range transcript.Players {
		eff.QuestionsPerPlayer[player.Name] = 0
		eff.ExplanationsPerPlayer[player.Name] = 0
	}
	for _, turn := range transcript.Turns {
		eff.QuestionsPerPlayer[turn.Actor]++
	}
	for player := range transcript.FinalExplanations {
		eff.ExplanationsPerPlayer[player]++
	}
	return eff
}

func summarize(players []models.PlayerConfig, scores map[string]models.PlayerScore) models.Summary {
	summary := models.Summary{IncompletePlayers: []string{}}
	sum := 0.0
	for _, player := range players {
		score := scores[player.Name]
		if score.Incomplete || score.Overall == nil {
			summary.IncompletePlayers = append(summary.IncompletePlayers, player.Name)
			continue
		}
		sum += *score.Overall
		summary.ScoredPlayers++
	}
	if summary.ScoredPlayers > 0 {
		mean := sum / float64(summary.ScoredPlayers)
		summary.MeanOverall = &mean
	}
	return summary
}
