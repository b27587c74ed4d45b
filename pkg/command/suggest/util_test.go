package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 1.0, Score("lob", "lobby"))
	assert.Equal(t, 1.0, Score("lobby", "lobby"))
	assert.Less(t, Score("lob", "survival"), DefaultMinimumSimilarityScore)
}

func TestSortSuggestions(t *testing.T) {
	s := []suggestion{{"a", 0.3}, {"b", 0.9}, {"c", 0.3}}
	sortSuggestions(s)
	assert.Equal(t, "b", s[0].text)
	assert.Equal(t, "a", s[1].text)
	assert.Equal(t, "c", s[2].text)
}
