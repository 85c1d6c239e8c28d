package semantic

import (
	"sort"
	"strings"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// Options configures the semantic engine.
type Options struct {
	// NGramWeight and ContextWeight blend the two signals (defaults 0.6/0.4).
	// Non-default values are renormalized to sum to 1.
	NGramWeight   float64
	ContextWeight float64
	// MinNGramCount is the minimum in-document n-gram occurrence count
	// (default 2).
	MinNGramCount int
	Context       ContextOptions
}

func (o *Options) applyDefaults() {
	if o.NGramWeight == 0 && o.ContextWeight == 0 {
		o.NGramWeight, o.ContextWeight = 0.6, 0.4
	}
	if sum := o.NGramWeight + o.ContextWeight; sum > 0 && sum != 1 {
		o.NGramWeight /= sum
		o.ContextWeight /= sum
	}
	if o.MinNGramCount <= 0 {
		o.MinNGramCount = 2
	}
}

// Engine scores document pairs with the combined n-gram and context-vector
// signal. Build must run before scoring; it is a full corpus pass.
type Engine struct {
	opts  Options
	model *ContextModel
	stale bool
}

// NewEngine creates a semantic engine; Build populates the context model.
func NewEngine(opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{opts: opts, stale: true}
}

// MinNGramCount exposes the configured per-document n-gram floor so the
// indexing pipeline extracts phrases with the same setting.
func (e *Engine) MinNGramCount() int { return e.opts.MinNGramCount }

// Build rebuilds the context-vector model from every document. Single-
// document changes cannot be patched in; callers mark the engine stale via
// MarkStale and rebuild when convenient.
func (e *Engine) Build(c *corpus.Corpus) {
	e.model = BuildContextModel(c, e.opts.Context)
	e.stale = false
}

// MarkStale records that the corpus changed since the last Build.
func (e *Engine) MarkStale() { e.stale = true }

// Stale reports whether the context model is out of date.
func (e *Engine) Stale() bool { return e.stale }

// Ready reports whether the engine has a built context model.
func (e *Engine) Ready() bool { return e.model != nil }

// Similarity returns the combined semantic score of two documents:
// ngramWeight * jaccard(phrases) + contextWeight * contextSim(clean texts).
func (e *Engine) Similarity(a, b *models.Document) float64 {
	ngram := Jaccard(a.Phrases, b.Phrases)
	var ctx float64
	if e.model != nil {
		ctx = e.model.TextSimilarity(a.CleanText, b.CleanText)
	}
	return e.opts.NGramWeight*ngram + e.opts.ContextWeight*ctx
}

// FindSimilar scores every other document against source, excluding self and
// already-linked targets, mirroring the lexical index's candidate rules.
func (e *Engine) FindSimilar(c *corpus.Corpus, source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch {
	var matches []*models.CandidateMatch
	for _, target := range c.Documents() {
		if target.ID == source.ID {
			continue
		}
		if source.LinksTo(target.ID, normalizeTitle(target.Title)) {
			continue
		}
		score := e.Similarity(source, target)
		if score < threshold {
			continue
		}
		matches = append(matches, &models.CandidateMatch{
			TargetID:      target.ID,
			TargetTitle:   target.Title,
			SemanticScore: score,
			Score:         score,
			MatchedTerms:  sharedPhrases(source.Phrases, target.Phrases, 5),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

func normalizeTitle(title string) string {
	return strings.ToLower(title)
}

func sharedPhrases(a, b []string, n int) []string {
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}
	var out []string
	for _, s := range a {
		if setB[s] {
			out = append(out, s)
			if len(out) == n {
				break
			}
		}
	}
	return out
}
