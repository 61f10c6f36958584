// Package puzzles reads puzzle datasets from JSON.
//
// Two record layouts are understood. The native layout is the JSON form of models.Puzzle. The dataset layout uses
// "bottom" for the truth, "key_question" for the key questions, "story_tree" for the truth structure, "index" for
// the identifier and boolean "supernatural" and "fatal" fields.
package puzzles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/models"
)

type record struct {
	ID             json.RawMessage `json:"id"`
	Index          *int            `json:"index"`
	Surface        string          `json:"surface"`
	Truth          string          `json:"truth"`
	Bottom         string          `json:"bottom"`
	KeyQuestions   json.RawMessage `json:"key_questions"`
	KeyQuestion    json.RawMessage `json:"key_question"`
	TruthStructure json.RawMessage `json:"truth_structure"`
	StoryTree      json.RawMessage `json:"story_tree"`
	Flags          []models.Flag   `json:"flags"`
	Supernatural   bool            `json:"supernatural"`
	Fatal          bool            `json:"fatal"`
}

// LoadFile reads the puzzles in the JSON file at path.
func LoadFile(path string) ([]models.Puzzle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open puzzle file", slog.String("path", path))
	}
	defer f.Close()
	puzzles, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(err, "load puzzle file", slog.String("path", path))
	}
	return puzzles, nil
}

// Load reads a JSON array of puzzles, or a single puzzle object, and validates every puzzle.
func Load(r io.Reader) ([]models.Puzzle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read puzzles")
	}
	data = bytes.TrimSpace(data)
	var records []record
	if len(data) > 0 && data[0] == '{' {
		var single record
		if err = json.Unmarshal(data, &single); err != nil {
			return nil, errors.Wrap(err, "decode puzzle")
		}
		records = []record{single}
	} else if err = json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decode puzzles")
	}

	puzzles := make([]models.Puzzle, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		p, convErr := rec.puzzle(i)
		if convErr != nil {
			return nil, errors.Wrap(convErr, "convert puzzle", slog.Int("position", i))
		}
		if err = p.Validate(); err != nil {
			return nil, errors.Wrap(err, "validate puzzle", slog.Int("position", i), slog.String("puzzle_id", p.ID))
		}
		if seen[p.ID] {
			return nil, errors.Wrap(models.ErrInvalidPuzzle, "duplicate puzzle id", slog.String("puzzle_id", p.ID))
		}
		seen[p.ID] = true
		puzzles = append(puzzles, p)
	}
	return puzzles, nil
}

func (rec record) puzzle(position int) (models.Puzzle, error) {
	id, err := rec.id(position)
	if err != nil {
		return models.Puzzle{}, err
	}
	truth := rec.Truth
	if truth == "" {
		truth = rec.Bottom
	}
	keyQuestions, err := stringList(firstNonEmpty(rec.KeyQuestions, rec.KeyQuestion))
	if err != nil {
		return models.Puzzle{}, errors.Wrap(err, "decode key questions")
	}
	structure, err := truthTree(firstNonEmpty(rec.TruthStructure, rec.StoryTree))
	if err != nil {
		return models.Puzzle{}, errors.Wrap(err, "decode truth structure")
	}
	flags := slices.Clone(rec.Flags)
	if rec.Supernatural && !slices.Contains(flags, models.FlagSupernatural) {
		flags = append(flags, models.FlagSupernatural)
	}
	if rec.Fatal && !slices.Contains(flags, models.FlagFatal) {
		flags = append(flags, models.FlagFatal)
	}
	if flags == nil {
		flags = []models.Flag{}
	}
	return models.Puzzle{
		ID:             id,
		Surface:        strings.TrimSpace(rec.Surface),
		Truth:          strings.TrimSpace(truth),
		KeyQuestions:   keyQuestions,
		TruthStructure: structure,
		Flags:          flags,
	}, nil
}

func (rec record) id(position int) (string, error) {
	if len(rec.ID) > 0 && string(rec.ID) != "null" {
		var s string
		if err := json.Unmarshal(rec.ID, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s, nil
			}
		}
		var n json.Number
		if err := json.Unmarshal(rec.ID, &n); err != nil {
			return "", errors.Wrap(err, "decode id")
		}
		return "puzzle-" + n.String(), nil
	}
	if rec.Index != nil {
		return "puzzle-" + strconv.Itoa(*rec.Index), nil
	}
	return "puzzle-" + strconv.Itoa(position), nil
}

func firstNonEmpty(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 && string(c) != "null" {
			return c
		}
	}
	return nil
}

// stringList accepts a list of strings or a single string.
func stringList(raw json.RawMessage) ([]string, error) {
	out := []string{}
	if raw == nil {
		return out, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if err = json.Unmarshal(raw, &single); err != nil {
			return nil, errors.Wrap(err, "expected string or list of strings")
		}
		list = []string{single}
	}
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// truthTree converts a truth structure into TruthNodes. Besides the native {"fact", "children"} form it accepts a
// plain string, a list of sub-trees, and an object whose keys are facts and whose values are the sub-trees.
func truthTree(raw json.RawMessage) (*models.TruthNode, error) {
	if raw == nil {
		return nil, nil //nolint:nilnil // no structure is not an error
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrap(err, "decode tree")
	}
	node := toNode(v)
	if node.Fact == "" && len(node.Children) == 0 {
		return nil, nil //nolint:nilnil // empty structure
	}
	return &node, nil
}

func toNode(v any) models.TruthNode {
	switch t := v.(type) {
	case string:
		return models.TruthNode{Fact: strings.TrimSpace(t)}
	case []any:
		node := models.TruthNode{}
		for _, child := range t {
			node.Children = append(node.Children, toNode(child))
		}
		return node
	case map[string]any:
		if fact, ok := t["fact"].(string); ok {
			node := models.TruthNode{Fact: strings.TrimSpace(fact)}
			if children, hasChildren := t["children"]; hasChildren {
				node.Children = toNode(children).Children
			}
			return node
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		node := models.TruthNode{}
		for _, k := range keys {
			child := toNode(t[k])
			if child.Fact == "" {
				child.Fact = k
			} else {
				child = models.TruthNode{Fact: k, Children: []models.TruthNode{child}}
			}
			node.Children = append(node.Children, child)
		}
		return node
	case nil:
		return models.TruthNode{}
	default:
		return models.TruthNode{Fact: fmt.Sprint(t)}
	}
}
