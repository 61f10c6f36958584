package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordComparator_Covers(t *testing.T) {
	asked := []string{
		"Was it at night?",
		"Did he eat human meat?",
		"Did the man eat meat?",
	}
	tests := []struct {
		name        string
		keyQuestion string
		threshold   float64
		want        Match
	}{
		{
			name:        "best share wins",
			keyQuestion: "Did he eat human flesh?",
			want:        Match{Covered: true, Question: "Did he eat human meat?"},
		},
		{name: "no overlap", keyQuestion: "Did his wife die?", want: Match{}},
		{
			name:        "strict threshold",
			keyQuestion: "Did he eat human flesh?",
			threshold:   0.9,
			want:        Match{},
		},
		{name: "only stopwords", keyQuestion: "Was it him?", want: Match{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeywordComparator{Threshold: tt.threshold}.Covers(context.Background(), tt.keyQuestion, asked)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_tokenize(t *testing.T) {
	require.Equal(t, []string{"man", "shipwrecked", "sea"}, tokenize("Was the man shipwrecked at sea? The MAN!"))
	require.Empty(t, tokenize("Is it?"))
}
