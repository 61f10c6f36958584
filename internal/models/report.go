package models

// EvaluationReport scores one finished session against its puzzle.
type EvaluationReport struct {
	SessionID       string                 `json:"session_id"`
	CoverageRatio   float64                `json:"coverage_ratio"`
	Coverage        []KeyQuestionCoverage  `json:"coverage"`
	PerPlayerScores map[string]PlayerScore `json:"per_player_scores"`
	Efficiency      Efficiency             `json:"efficiency"`
	Summary         Summary                `json:"summary"`
}

// KeyQuestionCoverage tells whether a reference key question was addressed and by which asked question.
type KeyQuestionCoverage struct {
	KeyQuestion     string `json:"key_question"`
	Covered         bool   `json:"covered"`
	MatchedQuestion string `json:"matched_question,omitempty"`
}

// PlayerScore is the rubric grade of a player's final explanation.
//
// Sub-scores are on a 0–10 scale, Overall on 0–100. Overall is nil when the entry is incomplete, i.e.,
// the player never explained or the grade was malformed.
type PlayerScore struct {
	PlotAccuracy     float64  `json:"plot_accuracy"`
	DetailAccuracy   float64  `json:"detail_accuracy"`
	ReasoningQuality float64  `json:"reasoning_quality"`
	Completeness     float64  `json:"completeness"`
	Overall          *float64 `json:"overall"`
	Incomplete       bool     `json:"incomplete"`
	Reason           string   `json:"reason,omitempty"`
}

// Efficiency describes how much of the round budget the session used.
type Efficiency struct {
	RoundsUsed            int            `json:"rounds_used"`
	MaxRounds             int            `json:"max_rounds"`
	EfficiencyRate        float64        `json:"efficiency_rate"`
	QuestionsPerPlayer    map[string]int `json:"questions_per_player"`
	ExplanationsPerPlayer map[string]int `json:"explanations_per_player"`
}

// Summary aggregates the complete player scores. Incomplete entries never enter the mean.
type Summary struct {
	MeanOverall       *float64 `json:"mean_overall"`
	ScoredPlayers     int      `json:"scored_players"`
	IncompletePlayers []string `json:"incomplete_players"`
}
