package models

import (
	"time"
)

// Answer is the host's reply to a question. Only the three canonical values are valid.
type Answer string

const (
	AnswerYes        Answer = "YES"
	AnswerNo         Answer = "NO"
	AnswerIrrelevant Answer = "IRRELEVANT"
)

// Valid reports whether a is one of the canonical answers.
func (a Answer) Valid() bool {
	return a == AnswerYes || a == AnswerNo || a == AnswerIrrelevant
}

// Outcome is the terminal state of a game session.
type Outcome string

const (
	OutcomeSolved    Outcome = "SOLVED"
	OutcomeExhausted Outcome = "EXHAUSTED"
	OutcomeAborted   Outcome = "ABORTED"
)

// PlayerConfig is one roster entry. Strategy is opaque configuration for prompt construction.
type PlayerConfig struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// Turn is one validated question and answer exchange.
type Turn struct {
	RoundIndex    int    `json:"round_index"`
	Actor         string `json:"actor"`
	Question      string `json:"question"`
	Answer        Answer `json:"answer"`
	Clarification string `json:"clarification,omitempty"`
	// Corrected is set when the raw host output violated the answer format and the corrective retry fixed it.
	Corrected bool `json:"corrected"`
}

// Transcript is the complete record of one game session. It is immutable once the session has ended.
type Transcript struct {
	SessionID         string            `json:"session_id"`
	PuzzleRef         string            `json:"puzzle_ref"`
	Players           []PlayerConfig    `json:"players"`
	MaxRounds         int               `json:"max_rounds"`
	Turns             []Turn            `json:"turns"`
	FinalExplanations map[string]string `json:"final_explanations"`
	// ForcedExplanations lists the players who were made to explain when the round limit was reached.
	ForcedExplanations []string  `json:"forced_explanations"`
	Outcome            Outcome   `json:"outcome"`
	RoundsUsed         int       `json:"rounds_used"`
	Winner             string    `json:"winner,omitempty"`
	AbortReason        string    `json:"abort_reason,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
}

// Questions returns the questions asked during the session in order.
func (t Transcript) Questions() []string {
	questions := make([]string, len(t.Turns))
	for i, turn := range t.Turns {
		questions[i] = turn.Question
	}
	return questions
}

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	ID            string    `json:"id"`
	PuzzleID      string    `json:"puzzle_id"`
	Outcome       Outcome   `json:"outcome"`
	RoundsUsed    int       `json:"rounds_used"`
	MaxRounds     int       `json:"max_rounds"`
	Winner        string    `json:"winner,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	CoverageRatio *float64  `json:"coverage_ratio"`
	MeanOverall   *float64  `json:"mean_overall"`
}
