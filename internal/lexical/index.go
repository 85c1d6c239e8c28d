// Package lexical provides the TF-IDF term-vector model and cosine similarity
// over the corpus.
package lexical

import (
	"math"
	"sort"
	"strings"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// Index computes sparse TF-IDF vectors against a corpus snapshot.
type Index struct {
	corpus *corpus.Corpus
}

// NewIndex creates a lexical index over the given corpus.
func NewIndex(c *corpus.Corpus) *Index {
	return &Index{corpus: c}
}

// Vector computes the document's sparse TF-IDF vector:
// tf = count/totalTerms, idf = ln(totalDocuments/docFrequency).
// IDF is intentionally not clamped; under correct bookkeeping a term's
// document frequency never exceeds the total document count.
func (ix *Index) Vector(doc *models.Document) map[string]float64 {
	vec := make(map[string]float64, len(doc.TermFreq))
	if doc.TotalTerms == 0 || ix.corpus.Len() == 0 {
		return vec
	}
	totalDocs := float64(ix.corpus.Len())
	for term, count := range doc.TermFreq {
		df := ix.corpus.DocFrequency(term)
		if df == 0 {
			continue
		}
		tf := float64(count) / float64(doc.TotalTerms)
		idf := math.Log(totalDocs / float64(df))
		vec[term] = tf * idf
	}
	return vec
}

// RebuildVectors recomputes the stored lexical vector of every document.
// Called after any change to the document-frequency map, since IDF values
// shift corpus-wide.
func (ix *Index) RebuildVectors() {
	for _, doc := range ix.corpus.Documents() {
		doc.Vector = ix.Vector(doc)
	}
}

// CosineSimilarity computes the cosine of two sparse vectors: dot product
// over the union of keys divided by the product of the Euclidean norms.
// Returns 0 when either norm is zero.
func CosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, wa := range a {
		normA += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindSimilar scores every other document against source, excluding the
// source itself and targets the source already links to. Candidates scoring
// at least threshold are sorted descending and truncated to maxResults.
func (ix *Index) FindSimilar(source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch {
	if len(source.Vector) == 0 {
		return nil
	}
	var matches []*models.CandidateMatch
	for _, target := range ix.corpus.Documents() {
		if target.ID == source.ID {
			continue
		}
		if source.LinksTo(target.ID, normalizeTitle(target.Title)) {
			continue
		}
		score := CosineSimilarity(source.Vector, target.Vector)
		if score < threshold {
			continue
		}
		matches = append(matches, &models.CandidateMatch{
			TargetID:     target.ID,
			TargetTitle:  target.Title,
			LexicalScore: score,
			Score:        score,
			MatchedTerms: sharedTerms(source.Vector, target.Vector, 5),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

// sharedTerms returns up to n terms present in both vectors, ordered by the
// product of their weights, as match evidence.
func sharedTerms(a, b map[string]float64, n int) []string {
	type tw struct {
		term   string
		weight float64
	}
	var shared []tw
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			shared = append(shared, tw{term, wa * wb})
		}
	}
	sort.Slice(shared, func(i, j int) bool {
		if shared[i].weight != shared[j].weight {
			return shared[i].weight > shared[j].weight
		}
		return shared[i].term < shared[j].term
	})
	if len(shared) > n {
		shared = shared[:n]
	}
	out := make([]string, len(shared))
	for i, s := range shared {
		out[i] = s.term
	}
	return out
}

// Outbound links are stored lowercased; compare titles the same way.
func normalizeTitle(title string) string {
	return strings.ToLower(title)
}
