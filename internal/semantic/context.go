package semantic

import (
	"math"

	"github.com/EliasMarine/Backlinker-sub000/internal/analysis"
	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// ContextOptions configures the co-occurrence model build.
type ContextOptions struct {
	// WindowRadius is the symmetric co-occurrence window (default 5).
	WindowRadius int
	// MinWordCount drops words occurring fewer times across the whole corpus
	// (default 3).
	MinWordCount int
	// DocWeight returns the weight of a document's co-occurrence
	// contributions. Nil means every document weighs 1.
	DocWeight func(doc *models.Document) float64
}

func (o *ContextOptions) applyDefaults() {
	if o.WindowRadius <= 0 {
		o.WindowRadius = 5
	}
	if o.MinWordCount <= 0 {
		o.MinWordCount = 3
	}
}

// ContextModel is the corpus-scope word co-occurrence matrix. Each word's row
// is normalized to unit length, so cosine similarity between rows reduces to
// a dot product. The model cannot be patched for a single document; it must
// be rebuilt from the whole corpus (a documented limitation, matched by
// Stale tracking in the indexing pipeline).
type ContextModel struct {
	vectors map[string]map[string]float64
	opts    ContextOptions
}

// BuildContextModel runs a full corpus pass: for every word occurrence, each
// neighbor within the window contributes docWeight/distance, then every row
// is normalized to unit magnitude.
func BuildContextModel(c *corpus.Corpus, opts ContextOptions) *ContextModel {
	opts.applyDefaults()
	m := &ContextModel{
		vectors: make(map[string]map[string]float64),
		opts:    opts,
	}

	// Vocabulary: total corpus occurrences per word, from per-document term
	// frequencies (same tokenizer as the build pass below).
	totals := make(map[string]int)
	for _, doc := range c.Documents() {
		for term, n := range doc.TermFreq {
			totals[term] += n
		}
	}
	vocab := make(map[string]bool, len(totals))
	for term, n := range totals {
		if n >= opts.MinWordCount {
			vocab[term] = true
		}
	}

	for _, doc := range c.Documents() {
		weight := 1.0
		if opts.DocWeight != nil {
			weight = opts.DocWeight(doc)
		}
		tokens := analysis.Tokenize(doc.CleanText)
		for i, word := range tokens {
			if !vocab[word] {
				continue
			}
			lo := i - opts.WindowRadius
			if lo < 0 {
				lo = 0
			}
			hi := i + opts.WindowRadius
			if hi >= len(tokens) {
				hi = len(tokens) - 1
			}
			for j := lo; j <= hi; j++ {
				if j == i {
					continue
				}
				other := tokens[j]
				if !vocab[other] {
					continue
				}
				dist := j - i
				if dist < 0 {
					dist = -dist
				}
				row := m.vectors[word]
				if row == nil {
					row = make(map[string]float64)
					m.vectors[word] = row
				}
				row[other] += weight / float64(dist)
			}
		}
	}

	for _, row := range m.vectors {
		normalizeRow(row)
	}
	return m
}

func normalizeRow(row map[string]float64) {
	var sum float64
	for _, v := range row {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for k := range row {
		row[k] *= norm
	}
}

// VocabSize returns the number of words with a context row.
func (m *ContextModel) VocabSize() int { return len(m.vectors) }

// Contains reports whether the model has a context row for the word.
func (m *ContextModel) Contains(word string) bool {
	_, ok := m.vectors[word]
	return ok
}

// WordSimilarity returns the dot product of two words' unit rows, 0 when
// either word is out of vocabulary.
func (m *ContextModel) WordSimilarity(a, b string) float64 {
	ra, ok := m.vectors[a]
	if !ok {
		return 0
	}
	rb, ok := m.vectors[b]
	if !ok {
		return 0
	}
	return dotSparse(ra, rb)
}

// TextSimilarity aggregates the rows of each text's in-vocabulary tokens
// (sum, then renormalize to unit length) and returns their dot product.
func (m *ContextModel) TextSimilarity(a, b string) float64 {
	va := m.aggregate(a)
	vb := m.aggregate(b)
	if va == nil || vb == nil {
		return 0
	}
	return dotSparse(va, vb)
}

func (m *ContextModel) aggregate(text string) map[string]float64 {
	var agg map[string]float64
	for _, tok := range analysis.Tokenize(text) {
		row, ok := m.vectors[tok]
		if !ok {
			continue
		}
		if agg == nil {
			agg = make(map[string]float64)
		}
		for k, v := range row {
			agg[k] += v
		}
	}
	if agg == nil {
		return nil
	}
	normalizeRow(agg)
	return agg
}

func dotSparse(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}
