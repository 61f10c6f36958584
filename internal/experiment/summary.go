package experiment

import (
	"github.com/myrjola/turtlesoup/internal/models"
)

// Summary aggregates a batch of results.
type Summary struct {
	Sessions  int `json:"sessions"`
	Solved    int `json:"solved"`
	Exhausted int `json:"exhausted"`
	Aborted   int `json:"aborted"`
	// Failed counts the results that carry an error, aborted sessions included.
	Failed int `json:"failed"`
	// MeanCoverage and MeanOverall are nil when no session was evaluated or scored.
	MeanCoverage   *float64 `json:"mean_coverage"`
	MeanOverall    *float64 `json:"mean_overall"`
	MeanRoundsUsed float64  `json:"mean_rounds_used"`
}

// Summarize aggregates results. Incomplete scores never enter the mean.
func Summarize(results []Result) Summary {
	var (
		s                      Summary
		coverageSum, scoreSum  float64
		evaluated, scored      int
		roundsSum, transcripts int
	)
	for _, res := range results {
		s.Sessions++
		if res.Err != nil {
			s.Failed++
		}
		switch res.Transcript.Outcome {
		case models.OutcomeSolved:
			s.Solved++
		case models.OutcomeExhausted:
			s.Exhausted++
		case models.OutcomeAborted:
			s.Aborted++
		}
		if res.Transcript.Outcome != "" {
			roundsSum += res.Transcript.RoundsUsed
			transcripts++
		}
		if res.Report == nil {
			continue
		}
		coverageSum += res.Report.CoverageRatio
		evaluated++
		for _, score := range res.Report.PerPlayerScores {
			if score.Incomplete || score.Overall == nil {
				continue
			}
			scoreSum += *score.Overall
			scored++
		}
	}
	if evaluated > 0 {
		mean := coverageSum / float64(evaluated)
		s.MeanCoverage = &mean
	}
	if scored > 0 {
		mean := scoreSum / float64(scored)
		s.MeanOverall = &mean
	}
	if transcripts > 0 {
		s.MeanRoundsUsed = float64(roundsSum) / float64(transcripts)
	}
	return s
}
