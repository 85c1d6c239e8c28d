// Package scoring fuses lexical, statistical-semantic, and neural candidate
// sets into one ranked list with degrade-gracefully rules.
package scoring

import (
	"sort"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// LexicalSource produces lexically similar candidates for a source document.
type LexicalSource interface {
	FindSimilar(source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch
}

// SemanticSource produces statistically similar candidates. It may be
// mid-rebuild; Ready gates participation.
type SemanticSource interface {
	Ready() bool
	FindSimilar(source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch
}

// NeuralSource scores candidate pairs with embedding cosine similarity.
// Optional; a nil source or Ready()==false drops the signal.
type NeuralSource interface {
	Ready() bool
	FindSimilar(source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch
}

// Weights are the relative lexical/semantic contributions when both signals
// fire for a candidate.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// Thresholds select the acceptance cutoff by which signals are present.
type Thresholds struct {
	Lexical  float64
	Semantic float64
	Combined float64
}

// Scorer is stateless per call; a policy over candidate sets, not a state
// machine.
type Scorer struct {
	lexical  LexicalSource
	semantic SemanticSource
	neural   NeuralSource
	weights  Weights
	logger   *zap.Logger
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithSemantic adds the statistical co-occurrence signal.
func WithSemantic(s SemanticSource) ScorerOption {
	return func(sc *Scorer) { sc.semantic = s }
}

// WithNeural adds the embedding signal.
func WithNeural(n NeuralSource) ScorerOption {
	return func(sc *Scorer) { sc.neural = n }
}

// WithWeights overrides the default equal weights.
func WithWeights(w Weights) ScorerOption {
	return func(sc *Scorer) { sc.weights = w }
}

// WithScorerLogger sets a logger for debug output.
func WithScorerLogger(l *zap.Logger) ScorerOption {
	return func(sc *Scorer) { sc.logger = l }
}

// NewScorer creates a hybrid scorer over a mandatory lexical source and
// optional semantic/neural sources.
func NewScorer(lexical LexicalSource, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		lexical: lexical,
		weights: Weights{Lexical: 1, Semantic: 1},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.weights.Lexical <= 0 && s.weights.Semantic <= 0 {
		s.weights = Weights{Lexical: 1, Semantic: 1}
	}
	return s
}

func (s *Scorer) semanticAvailable() bool {
	if s.semantic != nil && s.semantic.Ready() {
		return true
	}
	return s.neural != nil && s.neural.Ready()
}

// FindSimilar returns ranked candidates for source. With no semantic or
// neural signal available it degrades to lexical-only ranking; otherwise
// candidates are gathered under relaxed cutoffs, fused per candidate, and
// filtered by the threshold matching the signals that actually fired.
func (s *Scorer) FindSimilar(source *models.Document, th Thresholds, maxResults int) []*models.CandidateMatch {
	if maxResults <= 0 {
		return nil
	}
	if !s.semanticAvailable() {
		results := s.lexical.FindSimilar(source, th.Lexical, maxResults)
		for _, r := range results {
			r.Score = r.LexicalScore
		}
		return results
	}

	// Relaxed gathering: half threshold, triple budget. Candidates near the
	// line on one signal can still clear the combined bar.
	relaxedBudget := maxResults * 3
	byTarget := make(map[string]*models.CandidateMatch)

	for _, r := range s.lexical.FindSimilar(source, th.Lexical/2, relaxedBudget) {
		byTarget[r.TargetID] = r
	}
	if s.semantic != nil && s.semantic.Ready() {
		for _, r := range s.semantic.FindSimilar(source, th.Semantic/2, relaxedBudget) {
			if existing, ok := byTarget[r.TargetID]; ok {
				existing.SemanticScore = r.SemanticScore
				existing.MatchedTerms = mergeTerms(existing.MatchedTerms, r.MatchedTerms)
			} else {
				byTarget[r.TargetID] = r
			}
		}
	}
	if s.neural != nil && s.neural.Ready() {
		for _, r := range s.neural.FindSimilar(source, th.Semantic/2, relaxedBudget) {
			if existing, ok := byTarget[r.TargetID]; ok {
				existing.NeuralScore = r.NeuralScore
				if r.NeuralScore > existing.SemanticScore {
					existing.SemanticScore = r.NeuralScore
				}
			} else {
				r.SemanticScore = r.NeuralScore
				byTarget[r.TargetID] = r
			}
		}
	}

	results := make([]*models.CandidateMatch, 0, len(byTarget))
	for _, c := range byTarget {
		c.Score = s.combine(c.LexicalScore, c.SemanticScore)
		if c.Score <= 0 {
			continue
		}
		if c.Score < s.thresholdFor(c, th) {
			continue
		}
		results = append(results, c)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].TargetID < results[j].TargetID
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if s.logger != nil {
		s.logger.Debug("hybrid candidates ranked",
			zap.String("source", source.ID),
			zap.Int("gathered", len(byTarget)),
			zap.Int("kept", len(results)))
	}
	return results
}

// combine implements the single-signal passthrough rule: one nonzero signal
// keeps its value undiluted, two nonzero signals take the weighted
// normalized average, two zeros drop the candidate.
func (s *Scorer) combine(lexical, semantic float64) float64 {
	switch {
	case lexical > 0 && semantic > 0:
		total := s.weights.Lexical + s.weights.Semantic
		return (s.weights.Lexical*lexical + s.weights.Semantic*semantic) / total
	case lexical > 0:
		return lexical
	case semantic > 0:
		return semantic
	default:
		return 0
	}
}

func (s *Scorer) thresholdFor(c *models.CandidateMatch, th Thresholds) float64 {
	switch {
	case c.LexicalScore > 0 && c.SemanticScore > 0:
		return th.Combined
	case c.LexicalScore > 0:
		return th.Lexical
	default:
		return th.Semantic
	}
}

func mergeTerms(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		if !seen[t] {
			a = append(a, t)
			seen[t] = true
		}
	}
	return a
}
