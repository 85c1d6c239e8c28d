// Package corpus holds the in-memory document collection and its global
// document-frequency statistics.
package corpus

import (
	"fmt"
	"sort"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// Corpus owns the document map and the global term -> document-count map.
// Invariant: for every term, DocFreq[term] equals the number of documents
// whose TermFreq contains that term. Add/Remove/Rename/Update patch the map
// atomically with the document map; nothing else mutates it.
//
// A Corpus is not safe for concurrent mutation; exactly one orchestrator owns
// it at a time (scoring reads a snapshot owned by that caller).
type Corpus struct {
	docs    map[string]*models.Document
	docFreq map[string]int
	version string
}

// New returns an empty corpus with the given version tag.
func New(version string) *Corpus {
	return &Corpus{
		docs:    make(map[string]*models.Document),
		docFreq: make(map[string]int),
		version: version,
	}
}

// Version returns the corpus version tag.
func (c *Corpus) Version() string { return c.version }

// SetVersion replaces the corpus version tag.
func (c *Corpus) SetVersion(v string) { c.version = v }

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Get returns the document with the given id, or nil.
func (c *Corpus) Get(id string) *models.Document { return c.docs[id] }

// Documents returns all documents sorted by id for deterministic iteration.
func (c *Corpus) Documents() []*models.Document {
	out := make([]*models.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DocFrequency returns the number of documents containing the term.
func (c *Corpus) DocFrequency(term string) int { return c.docFreq[term] }

// FrequencyPercent returns the percentage of documents containing the term,
// 0..100, matching the unit of the matcher's frequency ceiling.
func (c *Corpus) FrequencyPercent(term string) float64 {
	if len(c.docs) == 0 {
		return 0
	}
	return float64(c.docFreq[term]) / float64(len(c.docs)) * 100
}

// Add inserts a document and updates the document-frequency map.
// Returns an error if a document with the same id already exists.
func (c *Corpus) Add(doc *models.Document) error {
	if _, exists := c.docs[doc.ID]; exists {
		return fmt.Errorf("document already exists: %s", doc.ID)
	}
	c.docs[doc.ID] = doc
	c.updateDocumentFrequency(doc, true)
	return nil
}

// Update replaces a document, patching the document-frequency map with the
// difference between old and new term sets. Inserts when absent.
func (c *Corpus) Update(doc *models.Document) {
	if old, exists := c.docs[doc.ID]; exists {
		c.updateDocumentFrequency(old, false)
	}
	c.docs[doc.ID] = doc
	c.updateDocumentFrequency(doc, true)
}

// Remove deletes a document and decrements its terms' document frequencies.
func (c *Corpus) Remove(id string) {
	doc, exists := c.docs[id]
	if !exists {
		return
	}
	c.updateDocumentFrequency(doc, false)
	delete(c.docs, id)
}

// Rename moves a document to a new id. Term statistics are unchanged.
func (c *Corpus) Rename(oldID, newID string) error {
	doc, exists := c.docs[oldID]
	if !exists {
		return fmt.Errorf("document not found: %s", oldID)
	}
	if _, taken := c.docs[newID]; taken {
		return fmt.Errorf("document already exists: %s", newID)
	}
	delete(c.docs, oldID)
	doc.ID = newID
	c.docs[newID] = doc
	return nil
}

// updateDocumentFrequency increments (adding=true) or decrements the global
// count for each unique term of doc. Entries that reach zero are deleted.
func (c *Corpus) updateDocumentFrequency(doc *models.Document, adding bool) {
	for term := range doc.TermFreq {
		if adding {
			c.docFreq[term]++
			continue
		}
		c.docFreq[term]--
		if c.docFreq[term] <= 0 {
			delete(c.docFreq, term)
		}
	}
}
