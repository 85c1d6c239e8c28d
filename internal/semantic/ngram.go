// Package semantic provides the statistical semantic engine: an n-gram phrase
// extractor and a sliding-window co-occurrence context-vector model, combined
// into one score.
package semantic

import (
	"sort"
	"strings"

	"github.com/EliasMarine/Backlinker-sub000/internal/analysis"
)

// ExtractNGrams returns the bigrams and trigrams of text that occur at least
// minCount times within it. Bigrams are skipped when either word is a
// stopword; trigrams only when the middle word is one.
func ExtractNGrams(text string, minCount int) []string {
	if minCount < 1 {
		minCount = 1
	}
	tokens := analysis.Tokenize(text)
	counts := make(map[string]int)

	for i := 0; i+1 < len(tokens); i++ {
		if analysis.IsStopword(tokens[i]) || analysis.IsStopword(tokens[i+1]) {
			continue
		}
		counts[tokens[i]+" "+tokens[i+1]]++
	}
	for i := 0; i+2 < len(tokens); i++ {
		if analysis.IsStopword(tokens[i+1]) {
			continue
		}
		counts[tokens[i]+" "+tokens[i+1]+" "+tokens[i+2]]++
	}

	var ngrams []string
	for gram, n := range counts {
		if n >= minCount {
			ngrams = append(ngrams, gram)
		}
	}
	sort.Strings(ngrams)
	return ngrams
}

// Jaccard computes intersection-over-union of two phrase lists, treating each
// as a lowercased set. Returns 0 when both are empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[strings.ToLower(s)] = true
	}
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[strings.ToLower(s)] = true
	}
	inter := 0
	for s := range setA {
		if setB[s] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
