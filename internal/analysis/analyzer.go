package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

var (
	frontMatterRe = regexp.MustCompile(`(?s)\A---\n.*?\n---\n?`)
	fencedCodeRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`\n]*`")
	wikiLinkRe    = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	bareURLRe     = regexp.MustCompile(`https?://[^\s)\]]+`)
	tagRe         = regexp.MustCompile(`(?:^|\s)#([A-Za-z][\w/-]*)`)
	emphasisRe    = regexp.MustCompile(`[*_~]{1,3}`)
	numPrefixRe   = regexp.MustCompile(`^\d+(?:\.\d+)*\s*[-–.]?\s*`)
)

// Analyzer extracts derived document features. MaxKeywords caps the keyword
// list; MinKeywordFreq is the minimum in-document occurrence count.
type Analyzer struct {
	MaxKeywords    int
	MinKeywordFreq int
}

// NewAnalyzer returns an Analyzer with default limits.
func NewAnalyzer() *Analyzer {
	return &Analyzer{MaxKeywords: 30, MinKeywordFreq: 2}
}

// Analyze builds a Document from raw note text. Phrases, the lexical vector,
// and the embedding are filled in later by the indexing pipeline.
func (a *Analyzer) Analyze(id, title, raw string, modified time.Time) *models.Document {
	clean := CleanText(raw)
	tokens := Tokenize(clean)
	termFreq, total := TermFrequencies(tokens)

	doc := &models.Document{
		ID:          id,
		Title:       title,
		Text:        raw,
		CleanText:   clean,
		Keywords:    a.keywords(termFreq),
		Entities:    ExtractEntities(clean),
		Tags:        extractTags(raw),
		Headings:    extractHeadings(raw),
		Links:       ExtractLinks(raw),
		TermFreq:    termFreq,
		TotalTerms:  total,
		ContentHash: HashContent(raw),
		ModifiedAt:  modified,
	}
	return doc
}

// HashContent returns the content hash used for change detection.
func HashContent(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CleanText strips front matter, code, link markup, headings markers, URLs,
// and emphasis, preserving the display text and letter case.
func CleanText(raw string) string {
	text := frontMatterRe.ReplaceAllString(raw, "")
	text = fencedCodeRe.ReplaceAllString(text, " ")
	text = inlineCodeRe.ReplaceAllString(text, " ")
	text = wikiLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := wikiLinkRe.FindStringSubmatch(m)
		if parts[2] != "" {
			return parts[2]
		}
		return parts[1]
	})
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = bareURLRe.ReplaceAllString(text, " ")
	text = headingRe.ReplaceAllString(text, "$1")
	text = emphasisRe.ReplaceAllString(text, "")
	return collapseWhitespace(text)
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// StripNumericPrefix removes a leading section-number prefix such as
// "2.1 - Title" -> "Title". Returns the input unchanged when no prefix matches.
func StripNumericPrefix(title string) string {
	stripped := numPrefixRe.ReplaceAllString(title, "")
	if stripped == "" {
		return title
	}
	return strings.TrimSpace(stripped)
}

func (a *Analyzer) keywords(termFreq map[string]int) []string {
	type kf struct {
		term string
		n    int
	}
	var ranked []kf
	for term, n := range termFreq {
		if n < a.MinKeywordFreq || len(term) <= 3 || IsStopword(term) {
			continue
		}
		ranked = append(ranked, kf{term, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].term < ranked[j].term
	})
	if len(ranked) > a.MaxKeywords {
		ranked = ranked[:a.MaxKeywords]
	}
	out := make([]string, len(ranked))
	for i, k := range ranked {
		out[i] = k.term
	}
	return out
}

func extractTags(raw string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, m := range tagRe.FindAllStringSubmatch(raw, -1) {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func extractHeadings(raw string) []string {
	var headings []string
	for _, m := range headingRe.FindAllStringSubmatch(raw, -1) {
		headings = append(headings, strings.TrimSpace(m[1]))
	}
	return headings
}

// ExtractLinks returns the normalized outbound-link set of a note: wiki-link
// targets and relative markdown-link targets, lowercased. Both the raw target
// (a title or a path) and its path-trimmed form are recorded so that link
// dedup works whether notes link by title or by path.
func ExtractLinks(raw string) map[string]bool {
	links := make(map[string]bool)
	add := func(target string) {
		target = strings.TrimSpace(strings.ToLower(target))
		if target == "" {
			return
		}
		links[target] = true
		trimmed := strings.TrimSuffix(target, ".md")
		if i := strings.LastIndex(trimmed, "/"); i >= 0 {
			trimmed = trimmed[i+1:]
		}
		if trimmed != "" {
			links[trimmed] = true
		}
	}
	for _, m := range wikiLinkRe.FindAllStringSubmatch(raw, -1) {
		add(m[1])
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(raw, -1) {
		if !strings.Contains(m[2], "://") {
			add(m[2])
		}
	}
	return links
}
