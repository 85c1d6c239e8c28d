// Package models defines core data structures for documents, match candidates, and anchors.
package models

import "time"

// EntityGroups holds named entities extracted from a document, grouped by kind.
type EntityGroups struct {
	People        []string `json:"people,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Places        []string `json:"places,omitempty"`
	Acronyms      []string `json:"acronyms,omitempty"`
	Technical     []string `json:"technical,omitempty"`
}

// All returns every entity across all groups, in group order.
func (e *EntityGroups) All() []string {
	out := make([]string, 0, len(e.People)+len(e.Organizations)+len(e.Places)+len(e.Acronyms)+len(e.Technical))
	out = append(out, e.People...)
	out = append(out, e.Organizations...)
	out = append(out, e.Places...)
	out = append(out, e.Acronyms...)
	out = append(out, e.Technical...)
	return out
}

// Document represents an analyzed note in the corpus. Derived fields (CleanText,
// Keywords, Phrases, Entities, TermFreq, Vector, Embedding) are owned by the
// indexing pipeline and rebuilt on re-analysis; nothing else mutates them.
type Document struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Text        string             `json:"text"`
	CleanText   string             `json:"clean_text"`
	Keywords    []string           `json:"keywords,omitempty"`
	Phrases     []string           `json:"phrases,omitempty"`
	Entities    EntityGroups       `json:"entities"`
	Tags        []string           `json:"tags,omitempty"`
	Headings    []string           `json:"headings,omitempty"`
	Links       map[string]bool    `json:"links,omitempty"`
	// Vector and Embedding are derived state: the TF-IDF vector is
	// corpus-relative and rebuilt after load, embeddings live in the
	// binary vector cache. Neither is part of the persisted analysis.
	Vector      map[string]float64 `json:"-"`
	TermFreq    map[string]int     `json:"term_freq,omitempty"`
	TotalTerms  int                `json:"total_terms"`
	Embedding   []float32          `json:"-"`
	ContentHash string             `json:"content_hash"`
	ModifiedAt  time.Time          `json:"modified_at"`
}

// LinksTo reports whether the document already links to the given target,
// matched by id or by normalized title.
func (d *Document) LinksTo(targetID, targetTitle string) bool {
	if d.Links == nil {
		return false
	}
	if d.Links[targetID] {
		return true
	}
	return targetTitle != "" && d.Links[targetTitle]
}

// TermWeight returns the TF-IDF weight for a term, or 0 when absent.
func (d *Document) TermWeight(term string) float64 {
	if d.Vector == nil {
		return 0
	}
	return d.Vector[term]
}
