// Package matcher decides which literal text span in a source document
// should become an anchor for a scored candidate target. Four tiers are
// tried in order, first match wins: target title, named entity, rare shared
// phrase, specific keyword.
package matcher

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/analysis"
	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// Options control tier availability and acceptance filters. Strictness
// presets are tuning data over these same knobs, not separate code paths.
type Options struct {
	// EnableEntityTier, EnablePhraseTier, EnableKeywordTier toggle tiers
	// 2-4. Tier 1 (title) is always on.
	EnableEntityTier  bool
	EnablePhraseTier  bool
	EnableKeywordTier bool

	// SpecificityRatio is the minimum target-weight / source-weight ratio
	// for entity and keyword anchors (default 2.0).
	SpecificityRatio float64

	// FrequencyCeiling is the maximum corpus document-frequency percentage
	// for every word of a tier-3 phrase (default 5.0).
	FrequencyCeiling float64

	// VerifyMinSimilarity is the context-verification floor (default 0.5).
	VerifyMinSimilarity float64

	// VerifyPhrases enables optional verification on tier 3. Tier 4 always
	// verifies when a verifier is available.
	VerifyPhrases bool

	// MaxPerSource caps aggregated assignments for one source document
	// (default 5).
	MaxPerSource int

	// Stopwords overrides the built-in domain stopword set when non-nil.
	Stopwords map[string]bool
}

// DefaultOptions returns the balanced preset with every tier enabled.
func DefaultOptions() Options {
	return Options{
		EnableEntityTier:    true,
		EnablePhraseTier:    true,
		EnableKeywordTier:   true,
		SpecificityRatio:    2.0,
		FrequencyCeiling:    5.0,
		VerifyMinSimilarity: 0.5,
		VerifyPhrases:       true,
		MaxPerSource:        5,
	}
}

// Tier confidence multipliers applied to the candidate's combined score.
const (
	titleFactor   = 0.9
	entityFactor  = 0.8
	phraseFactor  = 0.7
	keywordFactor = 0.5
)

// titleOverlapLimit rejects a pair when at least this share of the smaller
// title's significant words also appears in the other title.
const titleOverlapLimit = 0.5

// Matcher converts scored candidates into anchor assignments.
type Matcher struct {
	corpus   *corpus.Corpus
	opts     Options
	verifier ContextVerifier
	logger   *zap.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithVerifier sets the embedding context verifier.
func WithVerifier(v ContextVerifier) MatcherOption {
	return func(m *Matcher) { m.verifier = v }
}

// WithMatcherLogger sets a logger for debug output.
func WithMatcherLogger(l *zap.Logger) MatcherOption {
	return func(m *Matcher) { m.logger = l }
}

// New creates a matcher over the corpus.
func New(c *corpus.Corpus, opts Options, mopts ...MatcherOption) *Matcher {
	if opts.SpecificityRatio <= 0 {
		opts.SpecificityRatio = 2.0
	}
	if opts.FrequencyCeiling <= 0 {
		opts.FrequencyCeiling = 5.0
	}
	if opts.VerifyMinSimilarity <= 0 {
		opts.VerifyMinSimilarity = 0.5
	}
	if opts.MaxPerSource <= 0 {
		opts.MaxPerSource = 5
	}
	m := &Matcher{corpus: c, opts: opts}
	for _, o := range mopts {
		o(m)
	}
	return m
}

// Match returns anchor assignments for one source/candidate pair, sorted by
// descending confidence and deduplicated by normalized keyword. The first
// tier that produces anything wins; later tiers are never consulted.
func (m *Matcher) Match(source *models.Document, candidate *models.CandidateMatch) []*models.AnchorAssignment {
	if source.ID == candidate.TargetID {
		return nil
	}
	target := m.corpus.Get(candidate.TargetID)
	if target == nil {
		return nil
	}
	if titlesOverlap(source.Title, target.Title) {
		if m.logger != nil {
			m.logger.Debug("title overlap guard rejected pair",
				zap.String("source", source.Title), zap.String("target", target.Title))
		}
		return nil
	}

	tiers := []func(*models.Document, *models.Document, float64) []*models.AnchorAssignment{
		m.titleTier,
	}
	if m.opts.EnableEntityTier {
		tiers = append(tiers, m.entityTier)
	}
	if m.opts.EnablePhraseTier {
		tiers = append(tiers, m.phraseTier)
	}
	if m.opts.EnableKeywordTier {
		tiers = append(tiers, m.keywordTier)
	}

	for _, tier := range tiers {
		if found := tier(source, target, candidate.Score); len(found) > 0 {
			return dedupe(found)
		}
	}
	return nil
}

// titlesOverlap implements the pre-tier guard: significant title words
// (length > 3, normalized) shared between source and target.
func titlesOverlap(sourceTitle, targetTitle string) bool {
	a := analysis.SignificantTitleWords(sourceTitle)
	b := analysis.SignificantTitleWords(targetTitle)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	shared := 0
	for _, w := range b {
		if set[w] {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared)/float64(smaller) >= titleOverlapLimit
}

// titleTier accepts the target's display title, or its numeric-prefix-
// stripped variant, when it occurs as a whole phrase in the source text.
func (m *Matcher) titleTier(source, target *models.Document, score float64) []*models.AnchorAssignment {
	variants := []string{target.Title}
	if stripped := analysis.StripNumericPrefix(target.Title); stripped != target.Title {
		variants = append(variants, stripped)
	}
	for _, title := range variants {
		if title == "" {
			continue
		}
		if analysis.ContainsPhrase(source.Text, title) {
			return []*models.AnchorAssignment{{
				Keyword:     title,
				TargetID:    target.ID,
				TargetTitle: target.Title,
				Confidence:  score * titleFactor,
				Reason:      models.ReasonTitle,
			}}
		}
	}
	return nil
}

// entityTier accepts the first target entity present in the source text that
// is specific to the target and not part of the source title.
func (m *Matcher) entityTier(source, target *models.Document, score float64) []*models.AnchorAssignment {
	sourceTitle := strings.ToLower(source.Title)
	for _, entity := range target.Entities.All() {
		normalized := analysis.NormalizeKeyword(entity)
		if normalized == "" || strings.Contains(sourceTitle, normalized) {
			continue
		}
		if !analysis.ContainsPhrase(source.Text, entity) {
			continue
		}
		if !m.specificToTarget(entity, source, target) {
			continue
		}
		return []*models.AnchorAssignment{{
			Keyword:     entity,
			TargetID:    target.ID,
			TargetTitle: target.Title,
			Confidence:  score * entityFactor,
			Reason:      models.ReasonEntity,
		}}
	}
	return nil
}

// phraseTier accepts a target phrase present in the source text whose every
// word is rare in the corpus. Context verification is optional at this tier:
// when the verifier returns no verdict the anchor keeps its base confidence,
// whereas keywordTier drops candidates the verifier cannot vouch for.
func (m *Matcher) phraseTier(source, target *models.Document, score float64) []*models.AnchorAssignment {
	sourceTitle := strings.ToLower(source.Title)
	for _, phrase := range target.Phrases {
		normalized := analysis.NormalizeKeyword(phrase)
		if normalized == "" || strings.Contains(sourceTitle, normalized) {
			continue
		}
		pos := analysis.PhraseIndex(source.Text, phrase)
		if pos < 0 {
			continue
		}
		if !m.phraseIsRare(phrase) {
			continue
		}
		confidence := score * phraseFactor
		if m.opts.VerifyPhrases && m.verifier != nil && m.verifier.Available() {
			similarity, ok := m.verifier.Verify(source.Text, pos, target.ID)
			if ok {
				if similarity < m.opts.VerifyMinSimilarity {
					continue
				}
				confidence *= similarity
			}
		}
		return []*models.AnchorAssignment{{
			Keyword:     phrase,
			TargetID:    target.ID,
			TargetTitle: target.Title,
			Confidence:  confidence,
			Reason:      models.ReasonPhrase,
		}}
	}
	return nil
}

// keywordTier accepts target keywords that pass the domain-stopword filter
// and the specificity ratio. Context verification is mandatory here when a
// verifier is available.
func (m *Matcher) keywordTier(source, target *models.Document, score float64) []*models.AnchorAssignment {
	sourceTitle := strings.ToLower(source.Title)
	verifierUp := m.verifier != nil && m.verifier.Available()

	var found []*models.AnchorAssignment
	for _, keyword := range target.Keywords {
		normalized := analysis.NormalizeKeyword(keyword)
		if normalized == "" || m.isStopword(normalized) || strings.Contains(sourceTitle, normalized) {
			continue
		}
		pos := analysis.PhraseIndex(source.Text, keyword)
		if pos < 0 {
			continue
		}
		if !m.specificToTarget(keyword, source, target) {
			continue
		}
		confidence := score * keywordFactor
		if verifierUp {
			similarity, ok := m.verifier.Verify(source.Text, pos, target.ID)
			if !ok || similarity < m.opts.VerifyMinSimilarity {
				continue
			}
			confidence *= similarity
		}
		found = append(found, &models.AnchorAssignment{
			Keyword:     keyword,
			TargetID:    target.ID,
			TargetTitle: target.Title,
			Confidence:  confidence,
			Reason:      models.ReasonKeyword,
		})
	}
	return found
}

func (m *Matcher) isStopword(normalized string) bool {
	if m.opts.Stopwords != nil {
		return m.opts.Stopwords[normalized]
	}
	return IsDomainStopword(normalized)
}

// specificToTarget compares TF-IDF weights: the term must matter at least
// SpecificityRatio times more to the target than to the source. Absent from
// the source counts as maximal specificity; absent from the target
// invalidates the candidate.
// Multiword terms sum their constituent word weights.
func (m *Matcher) specificToTarget(term string, source, target *models.Document) bool {
	var targetWeight, sourceWeight float64
	for _, word := range analysis.Tokenize(term) {
		targetWeight += target.TermWeight(word)
		sourceWeight += source.TermWeight(word)
	}
	if targetWeight <= 0 {
		return false
	}
	if sourceWeight <= 0 {
		return true
	}
	return targetWeight/sourceWeight >= m.opts.SpecificityRatio
}

// phraseIsRare requires every constituent word's corpus document-frequency
// percentage to stay at or under the ceiling.
func (m *Matcher) phraseIsRare(phrase string) bool {
	words := analysis.Tokenize(phrase)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if m.corpus.FrequencyPercent(w) > m.opts.FrequencyCeiling {
			return false
		}
	}
	return true
}

// dedupe keeps the highest-confidence assignment per normalized keyword and
// sorts descending by confidence.
func dedupe(assignments []*models.AnchorAssignment) []*models.AnchorAssignment {
	best := make(map[string]*models.AnchorAssignment, len(assignments))
	for _, a := range assignments {
		key := analysis.NormalizeKeyword(a.Keyword)
		if cur, ok := best[key]; !ok || a.Confidence > cur.Confidence {
			best[key] = a
		}
	}
	out := make([]*models.AnchorAssignment, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sortAssignments(out)
	return out
}

// Aggregate flattens per-target assignment lists for one source document
// into a single ranked list: when two targets claim the same literal
// keyword, only the higher-confidence claim survives; the total is capped
// at MaxPerSource.
func (m *Matcher) Aggregate(perTarget [][]*models.AnchorAssignment) []*models.AnchorAssignment {
	var flat []*models.AnchorAssignment
	for _, list := range perTarget {
		flat = append(flat, list...)
	}
	out := dedupe(flat)
	if len(out) > m.opts.MaxPerSource {
		out = out[:m.opts.MaxPerSource]
	}
	return out
}

func sortAssignments(out []*models.AnchorAssignment) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Keyword < out[j].Keyword
	})
}
