package evaluator

import (
	"context"
	"strings"
	"unicode"
)

// DefaultKeywordThreshold is the share of key question keywords an asked question has to mention.
const DefaultKeywordThreshold = 0.5

// stopwords are common English words excluded from keyword matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "his": true,
	"us": true, "them": true, "there": true, "any": true, "someone": true,
}

// KeywordComparator is an offline Comparator. A key question is covered by the asked question sharing the largest
// share of its keywords, provided that share reaches Threshold. Ties go to the earliest question.
type KeywordComparator struct {
	Threshold float64
}

func (c KeywordComparator) Covers(_ context.Context, keyQuestion string, asked []string) (Match, error) {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultKeywordThreshold
	}
	keywords := tokenize(keyQuestion)
	if len(keywords) == 0 {
		return Match{Covered: false, Question: ""}, nil
	}
	best := Match{Covered: false, Question: ""}
	bestShare := 0.0
	for _, q := range asked {
		share := float64(sharedKeywords(keywords, tokenize(q))) / float64(len(keywords))
		if share >= threshold && share > bestShare {
			best = Match{Covered: true, Question: q}
			bestShare = share
		}
	}
	return best, nil
}

// tokenize splits text into unique lowercase non-stopword tokens.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// sharedKeywords returns the count of tokens present in both slices.
func sharedKeywords(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	count := 0
	for _, t := range b {
		if set[t] {
			count++
		}
	}
	return count
}
