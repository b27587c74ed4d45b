// Package suggest ranks command argument suggestions by similarity to the typed input.
package suggest

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"go.minekube.com/brigodier"
)

const DefaultMinimumSimilarityScore = 0.2

// Similar calls SimilarScore with DefaultMinimumSimilarityScore.
func Similar(builder *brigodier.SuggestionsBuilder, candidates []string) *brigodier.SuggestionsBuilder {
	return SimilarScore(builder, candidates, DefaultMinimumSimilarityScore)
}

// SimilarScore suggests the candidates similar to the current argument, best match first.
// A candidate scoring below minScore is dropped.
// An empty argument suggests all candidates in their given order.
func SimilarScore(builder *brigodier.SuggestionsBuilder, candidates []string, minScore float64) *brigodier.SuggestionsBuilder {
	given := builder.Input[strings.LastIndex(builder.Input, " ")+1:]
	if given == "" {
		for _, text := range candidates {
			builder.Suggest(text)
		}
		return builder
	}
	var result []suggestion
	for _, text := range candidates {
		score := Score(strings.ToLower(given), strings.ToLower(text))
		if score < minScore {
			continue
		}
		result = append(result, suggestion{
			text:  text,
			score: score,
		})
	}
	sortSuggestions(result)
	for _, s := range result {
		builder.Suggest(s.text)
	}
	return builder
}

type suggestion struct {
	text  string
	score float64
}

func sortSuggestions(s []suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].score > s[j].score
	})
}

// Score calculates the similarity score in the range of 0..1 of two strings.
// Only the prefix of suggestion as long as given is compared.
func Score(given, suggestion string) float64 {
	i := len(given)
	if len(suggestion) < i {
		i = len(suggestion)
	}
	return levenshtein.Similarity(given, suggestion[:i], nil)
}
