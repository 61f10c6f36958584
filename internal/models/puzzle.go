package models

import (
	"strings"

	"github.com/myrjola/turtlesoup/internal/errors"
)

// Flag classifies a puzzle. Flags are informational only.
type Flag string

const (
	FlagSupernatural Flag = "supernatural"
	FlagFatal        Flag = "fatal"
)

var ErrInvalidPuzzle = errors.NewSentinel("invalid puzzle")

// Puzzle is an immutable lateral-thinking case. The surface is shown to the players, the truth only to the host,
// and the key questions are used for coverage scoring after the game.
type Puzzle struct {
	ID             string     `json:"id"`
	Surface        string     `json:"surface"`
	Truth          string     `json:"truth"`
	KeyQuestions   []string   `json:"key_questions"`
	TruthStructure *TruthNode `json:"truth_structure,omitempty"`
	Flags          []Flag     `json:"flags"`
}

// TruthNode decomposes the truth into sub-facts.
type TruthNode struct {
	Fact     string      `json:"fact"`
	Children []TruthNode `json:"children,omitempty"`
}

// HasFlag reports whether the puzzle is classified with flag.
func (p Puzzle) HasFlag(flag Flag) bool {
	for _, f := range p.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Validate checks the fields the game cannot run without.
func (p Puzzle) Validate() error {
	if strings.TrimSpace(p.Surface) == "" {
		return errors.Wrap(ErrInvalidPuzzle, "empty surface")
	}
	if strings.TrimSpace(p.Truth) == "" {
		return errors.Wrap(ErrInvalidPuzzle, "empty truth")
	}
	for _, f := range p.Flags {
		if f != FlagSupernatural && f != FlagFatal {
			return errors.Wrap(ErrInvalidPuzzle, "unknown flag")
		}
	}
	return nil
}
