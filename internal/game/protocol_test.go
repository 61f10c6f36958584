package game

import (
	"testing"

	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/stretchr/testify/require"
)

func Test_parseAnswer(t *testing.T) {
	tests := []struct {
		name              string
		raw               string
		wantAnswer        models.Answer
		wantClarification string
		wantOK            bool
	}{
		{name: "bare yes", raw: "YES", wantAnswer: models.AnswerYes, wantOK: true},
		{name: "lowercase with period", raw: "no.", wantAnswer: models.AnswerNo, wantOK: true},
		{name: "irrelevant", raw: "Irrelevant", wantAnswer: models.AnswerIrrelevant, wantOK: true},
		{
			name:              "clarification",
			raw:               "Yes, but only partly. He was hungry.",
			wantAnswer:        models.AnswerYes,
			wantClarification: "but only partly. He was hungry.",
			wantOK:            true,
		},
		{name: "markdown bold", raw: "**NO**", wantAnswer: models.AnswerNo, wantOK: true},
		{name: "quoted", raw: `"yes"`, wantAnswer: models.AnswerYes, wantOK: true},
		{name: "word prefix", raw: "Yesterday he died", wantOK: false},
		{name: "not", raw: "Not really", wantOK: false},
		{name: "maybe", raw: "Maybe", wantOK: false},
		{name: "chatty", raw: "Well, the answer is yes", wantOK: false},
		{name: "empty", raw: "   ", wantOK: false},
		{name: "dash separator", raw: "NO - he never left", wantAnswer: models.AnswerNo,
			wantClarification: "he never left", wantOK: true},
		{name: "bold with period", raw: "**Yes.**", wantAnswer: models.AnswerYes, wantOK: true},
		{name: "no separator", raw: "no idea", wantOK: false},
		{name: "both answers", raw: "Yes and no.", wantOK: false},
		{name: "slash", raw: "YES/NO", wantOK: false},
		{name: "question marks", raw: "Yes? No? It's complicated", wantOK: false},
		{name: "retracted", raw: "Yes. No, wait.", wantOK: false},
		{name: "repeated after comma", raw: "No, irrelevant really", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, clarification, ok := parseAnswer(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantAnswer, answer)
			require.Equal(t, tt.wantClarification, clarification)
		})
	}
}

func Test_parseMove(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   move
		wantOK bool
	}{
		{name: "untagged question", raw: "Did he die?", want: move{text: "Did he die?"}, wantOK: true},
		{name: "tagged question", raw: "QUESTION: Did he die?", want: move{text: "Did he die?"}, wantOK: true},
		{name: "bracket tag", raw: "[Question] Was it night?", want: move{text: "Was it night?"}, wantOK: true},
		{
			name:   "explanation",
			raw:    "EXPLANATION: He was a diver caught by a fire plane.",
			want:   move{explanation: true, text: "He was a diver caught by a fire plane."},
			wantOK: true,
		},
		{
			name:   "markdown explanation",
			raw:    "**Explanation:** The soup was made of albatross.",
			want:   move{explanation: true, text: "The soup was made of albatross."},
			wantOK: true,
		},
		{name: "empty", raw: "", wantOK: false},
		{name: "empty question tag", raw: "QUESTION:", wantOK: false},
		{name: "empty explanation tag", raw: "EXPLANATION:   ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMove(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_parseExplanation(t *testing.T) {
	got, ok := parseExplanation("EXPLANATION: It was a dream.")
	require.True(t, ok)
	require.Equal(t, "It was a dream.", got)

	got, ok = parseExplanation("It was a dream.")
	require.True(t, ok)
	require.Equal(t, "It was a dream.", got)

	_, ok = parseExplanation(" ")
	require.False(t, ok)
}
