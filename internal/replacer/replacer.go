// Package replacer turns anchor assignments into concrete text edits,
// skipping protected markdown regions and linking each keyword at most once.
package replacer

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/analysis"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// contextRadius is the snippet size on each side of a replacement in the
// preview context.
const contextRadius = 30

// Result is the outcome of one replacement pass over a document.
type Result struct {
	Text         string               `json:"text"`
	Replacements []models.Replacement `json:"replacements"`
	Zones        []Zone               `json:"zones"`
}

// Modified reports whether any edit was applied.
func (r Result) Modified() bool { return len(r.Replacements) > 0 }

// Replacer applies anchor assignments to raw markdown text.
type Replacer struct {
	logger *zap.Logger
}

// New creates a Replacer. The logger may be nil.
func New(logger *zap.Logger) *Replacer {
	return &Replacer{logger: logger}
}

// Apply links each assignment's keyword at its first valid occurrence,
// processing assignments in descending confidence order so a cap upstream
// always keeps the strongest anchors. A keyword already present as the
// target or alias of an existing wiki link counts as linked and is never
// planned again, which keeps repeated passes from anchoring later
// occurrences of the same text. Occurrences inside protected zones or
// overlapping an already planned edit are skipped. Edits are applied from
// the highest offset down so earlier positions stay valid.
func (r *Replacer) Apply(text string, assignments []*models.AnchorAssignment) Result {
	zones := ProtectedZones(text)

	ordered := make([]*models.AnchorAssignment, len(assignments))
	copy(ordered, assignments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	var planned []models.Replacement
	seen := linkedKeywords(text)
	for _, a := range ordered {
		key := analysis.NormalizeKeyword(a.Keyword)
		if key == "" || seen[key] {
			continue
		}
		pos := r.firstValidOccurrence(text, a.Keyword, zones, planned)
		if pos < 0 {
			continue
		}
		seen[key] = true
		original := text[pos : pos+len(a.Keyword)]
		planned = append(planned, models.Replacement{
			Position:   pos,
			Length:     len(a.Keyword),
			Original:   original,
			Markup:     anchorMarkup(original, a.TargetTitle),
			Confidence: a.Confidence,
			Context:    snippet(text, pos, pos+len(a.Keyword)),
		})
	}

	sort.Slice(planned, func(i, j int) bool { return planned[i].Position > planned[j].Position })
	modified := text
	for _, p := range planned {
		modified = modified[:p.Position] + p.Markup + modified[p.Position+p.Length:]
	}

	// Report in reading order.
	sort.Slice(planned, func(i, j int) bool { return planned[i].Position < planned[j].Position })
	if r.logger != nil && len(planned) > 0 {
		r.logger.Debug("anchors inserted", zap.Int("count", len(planned)))
	}
	return Result{Text: modified, Replacements: planned, Zones: zones}
}

var wikiLinkPartsRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// linkedKeywords collects the normalized target and alias text of every wiki
// link already in the document.
func linkedKeywords(text string) map[string]bool {
	keys := make(map[string]bool)
	for _, m := range wikiLinkPartsRe.FindAllStringSubmatch(text, -1) {
		if k := analysis.NormalizeKeyword(m[1]); k != "" {
			keys[k] = true
		}
		if k := analysis.NormalizeKeyword(m[2]); k != "" {
			keys[k] = true
		}
	}
	return keys
}

// firstValidOccurrence finds the earliest whole-word occurrence of keyword
// outside every protected zone and clear of already planned edits.
func (r *Replacer) firstValidOccurrence(text, keyword string, zones []Zone, planned []models.Replacement) int {
	lower := strings.ToLower(text)
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(lower[from:], needle)
		if i < 0 {
			return -1
		}
		pos := from + i
		end := pos + len(needle)
		if wholeWord(lower, pos, end) && !inZone(zones, pos, end) && !overlapsPlanned(planned, pos, end) {
			return pos
		}
		from = pos + 1
	}
}

func overlapsPlanned(planned []models.Replacement, start, end int) bool {
	for _, p := range planned {
		if start < p.Position+p.Length && end > p.Position {
			return true
		}
	}
	return false
}

func wholeWord(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// anchorMarkup builds the wiki link for an occurrence: a bare link when the
// matched text already is the target title, an aliased link otherwise.
func anchorMarkup(original, targetTitle string) string {
	if strings.EqualFold(strings.TrimSpace(original), strings.TrimSpace(targetTitle)) {
		return "[[" + original + "]]"
	}
	return "[[" + targetTitle + "|" + original + "]]"
}

// snippet returns the replacement's surrounding text for previews.
func snippet(text string, start, end int) string {
	from := start - contextRadius
	if from < 0 {
		from = 0
	}
	to := end + contextRadius
	if to > len(text) {
		to = len(text)
	}
	return strings.ReplaceAll(text[from:to], "\n", " ")
}
