package analysis

import (
	"regexp"
	"strings"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

var (
	acronymRe   = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,5}\b`)
	camelCaseRe = regexp.MustCompile(`\b[a-z]+(?:[A-Z][a-z0-9]+)+\b|\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b`)
	capSeqRe    = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)+\b`)
	hyphTechRe  = regexp.MustCompile(`\b[a-z]+(?:-[a-z0-9]+)+\b`)
	placeRe     = regexp.MustCompile(`\b(?:in|at|from|near)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)
)

var orgSuffixes = []string{
	"Inc", "Corp", "Corporation", "Ltd", "Labs", "Foundation",
	"University", "Institute", "Group", "Company", "Systems",
}

const maxEntitiesPerGroup = 15

// ExtractEntities pulls heuristic named entities out of case-preserved text.
// Groups: people (capitalized multi-word names), organizations (capitalized
// phrases ending in a corporate suffix), places (capitalized words after a
// locative preposition), acronyms, and technical terms (camel-case and
// hyphenated compounds). Each group is deduplicated in first-seen order and
// capped.
func ExtractEntities(text string) models.EntityGroups {
	var g models.EntityGroups

	orgs := newDedup()
	people := newDedup()
	for _, seq := range capSeqRe.FindAllString(text, -1) {
		if hasOrgSuffix(seq) {
			orgs.add(seq)
		} else {
			people.add(seq)
		}
	}

	places := newDedup()
	for _, m := range placeRe.FindAllStringSubmatch(text, -1) {
		places.add(m[1])
	}

	acronyms := newDedup()
	for _, a := range acronymRe.FindAllString(text, -1) {
		// Single-letter words and sentence-initial "I" never get here
		// (pattern needs 2+ chars), but skip common all-caps stopwords.
		if IsStopword(a) {
			continue
		}
		acronyms.add(a)
	}

	technical := newDedup()
	for _, tok := range camelCaseRe.FindAllString(text, -1) {
		technical.add(tok)
	}
	for _, tok := range hyphTechRe.FindAllString(text, -1) {
		if len(tok) > 5 {
			technical.add(tok)
		}
	}

	g.People = people.list()
	g.Organizations = orgs.list()
	g.Places = places.list()
	g.Acronyms = acronyms.list()
	g.Technical = technical.list()
	return g
}

func hasOrgSuffix(phrase string) bool {
	words := strings.Fields(phrase)
	last := words[len(words)-1]
	for _, suffix := range orgSuffixes {
		if last == suffix {
			return true
		}
	}
	return false
}

type dedup struct {
	seen  map[string]bool
	items []string
}

func newDedup() *dedup {
	return &dedup{seen: make(map[string]bool)}
}

func (d *dedup) add(s string) {
	key := strings.ToLower(s)
	if d.seen[key] || len(d.items) >= maxEntitiesPerGroup {
		return
	}
	d.seen[key] = true
	d.items = append(d.items, s)
}

func (d *dedup) list() []string {
	return d.items
}
