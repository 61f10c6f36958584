package puzzles_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/turtlesoup/internal/models"
	"github.com/myrjola/turtlesoup/internal/puzzles"
	"github.com/stretchr/testify/require"
)

func TestLoad_datasetLayout(t *testing.T) {
	input := `[
  {
    "index": 7,
    "surface": "A man orders albatross soup and kills himself.",
    "bottom": "He realises he once ate his wife.",
    "key_question": ["Was he shipwrecked?", " ", "Did he eat human flesh?"],
    "story_tree": {"He was shipwrecked": ["His wife died", "He was told it was albatross"]},
    "fatal": true
  }
]`
	got, err := puzzles.Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	p := got[0]
	require.Equal(t, "puzzle-7", p.ID)
	require.Equal(t, "He realises he once ate his wife.", p.Truth)
	require.Equal(t, []string{"Was he shipwrecked?", "Did he eat human flesh?"}, p.KeyQuestions)
	require.Equal(t, []models.Flag{models.FlagFatal}, p.Flags)
	require.Equal(t, &models.TruthNode{Children: []models.TruthNode{{
		Fact: "He was shipwrecked",
		Children: []models.TruthNode{
			{Fact: "His wife died"},
			{Fact: "He was told it was albatross"},
		},
	}}}, p.TruthStructure)
}

func TestLoad_nativeLayout(t *testing.T) {
	input := `{
  "id": "lighthouse",
  "surface": "A man turns off a light and people die.",
  "truth": "He was a lighthouse keeper.",
  "key_questions": "Was he a lighthouse keeper?",
  "truth_structure": {"fact": "He kept a lighthouse", "children": [{"fact": "A ship crashed"}]},
  "flags": ["fatal", "supernatural"]
}`
	got, err := puzzles.Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	p := got[0]
	require.Equal(t, "lighthouse", p.ID)
	require.Equal(t, []string{"Was he a lighthouse keeper?"}, p.KeyQuestions)
	require.True(t, p.HasFlag(models.FlagSupernatural))
	require.Equal(t, &models.TruthNode{
		Fact:     "He kept a lighthouse",
		Children: []models.TruthNode{{Fact: "A ship crashed"}},
	}, p.TruthStructure)
}

func TestLoad_defaults(t *testing.T) {
	got, err := puzzles.Load(strings.NewReader(`[{"surface": "s1", "bottom": "t1"}, {"id": 3, "surface": "s2", "truth": "t2"}]`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "puzzle-0", got[0].ID)
	require.Empty(t, got[0].KeyQuestions)
	require.NotNil(t, got[0].KeyQuestions)
	require.Nil(t, got[0].TruthStructure)
	require.Empty(t, got[0].Flags)
	require.Equal(t, "puzzle-3", got[1].ID)
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing truth", input: `[{"surface": "s"}]`},
		{name: "missing surface", input: `[{"truth": "t"}]`},
		{name: "unknown flag", input: `[{"surface": "s", "truth": "t", "flags": ["funny"]}]`},
		{name: "duplicate id", input: `[{"id": "a", "surface": "s", "truth": "t"}, {"id": "a", "surface": "s", "truth": "t"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := puzzles.Load(strings.NewReader(tt.input))
			require.ErrorIs(t, err, models.ErrInvalidPuzzle)
		})
	}

	_, err := puzzles.Load(strings.NewReader(`not json`))
	require.Error(t, err)
	_, err = puzzles.Load(strings.NewReader(`[{"surface": "s", "truth": "t", "key_questions": 42}]`))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzles.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "x", "surface": "s", "truth": "t"}]`), 0o600))
	got, err := puzzles.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "x", got[0].ID)

	_, err = puzzles.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
