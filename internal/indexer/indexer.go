// Package indexer builds and maintains the corpus index: reading notes from
// the store, analyzing them, and keeping the lexical vectors, semantic
// model, embeddings, keyword index, and persisted index in sync.
package indexer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/analysis"
	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/embedding"
	"github.com/EliasMarine/Backlinker-sub000/internal/keyword"
	"github.com/EliasMarine/Backlinker-sub000/internal/lexical"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/internal/semantic"
	"github.com/EliasMarine/Backlinker-sub000/internal/storage"
)

// indexVersion tags the persisted index; bump when the analysis output
// shape changes so stale indexes are rebuilt instead of half-migrated.
const indexVersion = "1"

// Stats summarizes one Build pass.
type Stats struct {
	Total       int `json:"total"`
	Analyzed    int `json:"analyzed"`
	Reused      int `json:"reused"`
	Embedded    int `json:"embedded"`
	EmbedFailed int `json:"embed_failed"`
}

// Indexer owns the pipeline from raw note text to query-ready corpus state.
type Indexer struct {
	store    corpus.Store
	corpus   *corpus.Corpus
	lexical  *lexical.Index
	semantic *semantic.Engine
	analyzer *analysis.Analyzer

	// Optional collaborators; each may be nil.
	embedder *embedding.Engine
	vectors  *embedding.Store
	persist  storage.Storage
	keywords keyword.KeywordIndex

	logger *zap.Logger
}

// Config wires an Indexer. Store, Corpus, Lexical, and Semantic are
// required; the rest degrade gracefully when absent.
type Config struct {
	Store    corpus.Store
	Corpus   *corpus.Corpus
	Lexical  *lexical.Index
	Semantic *semantic.Engine
	Embedder *embedding.Engine
	Vectors  *embedding.Store
	Persist  storage.Storage
	Keywords keyword.KeywordIndex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(cfg Config, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:    cfg.Store,
		corpus:   cfg.Corpus,
		lexical:  cfg.Lexical,
		semantic: cfg.Semantic,
		analyzer: analysis.NewAnalyzer(),
		embedder: cfg.Embedder,
		vectors:  cfg.Vectors,
		persist:  cfg.Persist,
		keywords: cfg.Keywords,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build runs a full pass: analyze new and changed notes (reusing persisted
// analysis for unchanged ones), rebuild the lexical vectors and semantic
// model, and generate missing embeddings. Safe to call again at any time.
func (idx *Indexer) Build(ctx context.Context) (Stats, error) {
	var stats Stats

	cached, err := idx.loadPersisted(ctx)
	if err != nil {
		return stats, err
	}

	refs, err := idx.store.List()
	if err != nil {
		return stats, fmt.Errorf("list notes: %w", err)
	}
	stats.Total = len(refs)

	for _, ref := range refs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		text, err := idx.store.Read(ref.ID)
		if err != nil {
			if idx.logger != nil {
				idx.logger.Warn("skipping unreadable note", zap.String("id", ref.ID), zap.Error(err))
			}
			continue
		}
		doc := idx.analyzeNote(ref, text, cached, &stats)
		idx.corpus.Update(doc)
	}

	idx.lexical.RebuildVectors()
	idx.semantic.Build(idx.corpus)
	idx.embedMissing(ctx, &stats)

	if idx.keywords != nil {
		for _, doc := range idx.corpus.Documents() {
			if err := idx.keywords.Index(ctx, doc); err != nil {
				if idx.logger != nil {
					idx.logger.Warn("keyword indexing failed", zap.String("id", doc.ID), zap.Error(err))
				}
			}
		}
	}

	if err := idx.save(ctx); err != nil {
		return stats, err
	}
	if idx.logger != nil {
		idx.logger.Info("index built",
			zap.Int("total", stats.Total),
			zap.Int("analyzed", stats.Analyzed),
			zap.Int("reused", stats.Reused),
			zap.Int("embedded", stats.Embedded))
	}
	return stats, nil
}

// analyzeNote reuses cached analysis when the content hash is unchanged.
func (idx *Indexer) analyzeNote(ref corpus.NoteRef, text string, cached map[string]*models.Document, stats *Stats) *models.Document {
	if prev, ok := cached[ref.ID]; ok && prev.ContentHash == analysis.HashContent(text) {
		stats.Reused++
		return prev
	}
	doc := idx.analyzer.Analyze(ref.ID, titleFor(ref.ID, text), text, ref.Modified)
	doc.Phrases = semantic.ExtractNGrams(doc.CleanText, idx.semantic.MinNGramCount())
	stats.Analyzed++
	return doc
}

// loadPersisted returns the stored analysis by id, or nothing on a version
// mismatch (forcing a full re-analysis).
func (idx *Indexer) loadPersisted(ctx context.Context) (map[string]*models.Document, error) {
	cached := make(map[string]*models.Document)
	if idx.persist == nil {
		return cached, nil
	}
	version, err := idx.persist.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index version: %w", err)
	}
	if version != indexVersion {
		if idx.logger != nil && version != "" {
			idx.logger.Info("index version changed, re-analyzing corpus",
				zap.String("stored", version), zap.String("current", indexVersion))
		}
		return cached, nil
	}
	docs, err := idx.persist.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted index: %w", err)
	}
	for _, d := range docs {
		cached[d.ID] = d
	}
	return cached, nil
}

// embedMissing generates embeddings for documents whose cached vector is
// absent or stale. Per-document failures are counted, not fatal.
func (idx *Indexer) embedMissing(ctx context.Context, stats *Stats) {
	if idx.embedder == nil || !idx.embedder.Ready() || idx.vectors == nil {
		return
	}
	var items []embedding.BatchItem
	for _, doc := range idx.corpus.Documents() {
		if idx.vectors.IsValid(doc.ID, doc.ContentHash) {
			if vec, ok := idx.vectors.Get(doc.ID); ok {
				doc.Embedding = vec
			}
			continue
		}
		items = append(items, embedding.BatchItem{ID: doc.ID, Text: doc.CleanText})
	}
	if len(items) == 0 {
		return
	}
	generated, failures := idx.embedder.EmbedBatchItems(ctx, items, nil, nil)
	for id, vec := range generated {
		doc := idx.corpus.Get(id)
		if doc == nil {
			continue
		}
		doc.Embedding = vec
		idx.vectors.Put(id, doc.ContentHash, vec)
		stats.Embedded++
	}
	stats.EmbedFailed = len(failures)
	if err := idx.vectors.Save(); err != nil && idx.logger != nil {
		idx.logger.Warn("embedding cache save failed", zap.Error(err))
	}
}

// IndexOne re-analyzes a single note after an external change. The semantic
// model is marked stale rather than rebuilt; callers decide when a full
// rebuild is worth it.
func (idx *Indexer) IndexOne(ctx context.Context, id string) error {
	text, err := idx.store.Read(id)
	if err != nil {
		return fmt.Errorf("read note %s: %w", id, err)
	}
	modified, err := idx.store.Stamp(id)
	if err != nil {
		return fmt.Errorf("stamp note %s: %w", id, err)
	}
	doc := idx.analyzer.Analyze(id, titleFor(id, text), text, modified)
	doc.Phrases = semantic.ExtractNGrams(doc.CleanText, idx.semantic.MinNGramCount())

	idx.corpus.Update(doc)
	idx.lexical.RebuildVectors()
	idx.semantic.MarkStale()

	if idx.embedder != nil && idx.embedder.Ready() && idx.vectors != nil {
		if vec, err := idx.embedder.EmbedText(ctx, doc.CleanText); err == nil {
			doc.Embedding = vec
			idx.vectors.Put(id, doc.ContentHash, vec)
			if err := idx.vectors.Save(); err != nil && idx.logger != nil {
				idx.logger.Warn("embedding cache save failed", zap.Error(err))
			}
		} else if idx.logger != nil {
			idx.logger.Warn("embedding generation failed", zap.String("id", id), zap.Error(err))
		}
	}
	if idx.keywords != nil {
		if err := idx.keywords.Index(ctx, doc); err != nil && idx.logger != nil {
			idx.logger.Warn("keyword indexing failed", zap.String("id", id), zap.Error(err))
		}
	}
	if idx.persist != nil {
		if err := idx.persist.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("persist note %s: %w", id, err)
		}
	}
	return nil
}

// Remove drops a note from every index after an external deletion.
func (idx *Indexer) Remove(ctx context.Context, id string) error {
	idx.corpus.Remove(id)
	idx.lexical.RebuildVectors()
	idx.semantic.MarkStale()
	if idx.vectors != nil {
		idx.vectors.Delete(id)
		if err := idx.vectors.Save(); err != nil && idx.logger != nil {
			idx.logger.Warn("embedding cache save failed", zap.Error(err))
		}
	}
	if idx.keywords != nil {
		if err := idx.keywords.Delete(ctx, id); err != nil && idx.logger != nil {
			idx.logger.Warn("keyword delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	if idx.persist != nil {
		if err := idx.persist.DeleteDocument(ctx, id); err != nil {
			return fmt.Errorf("delete persisted note %s: %w", id, err)
		}
	}
	return nil
}

// Rename moves a note's derived state to a new id without re-analyzing or
// re-embedding.
func (idx *Indexer) Rename(ctx context.Context, oldID, newID string) error {
	if err := idx.corpus.Rename(oldID, newID); err != nil {
		return err
	}
	if idx.vectors != nil {
		idx.vectors.Rename(oldID, newID)
		if err := idx.vectors.Save(); err != nil && idx.logger != nil {
			idx.logger.Warn("embedding cache save failed", zap.Error(err))
		}
	}
	if idx.keywords != nil {
		_ = idx.keywords.Delete(ctx, oldID)
		if doc := idx.corpus.Get(newID); doc != nil {
			_ = idx.keywords.Index(ctx, doc)
		}
	}
	if idx.persist != nil {
		if err := idx.persist.DeleteDocument(ctx, oldID); err != nil {
			return err
		}
		if doc := idx.corpus.Get(newID); doc != nil {
			return idx.persist.SaveDocument(ctx, doc)
		}
	}
	return nil
}

// RebuildSemantic rebuilds the co-occurrence model over the whole corpus.
func (idx *Indexer) RebuildSemantic() {
	idx.semantic.Build(idx.corpus)
}

func (idx *Indexer) save(ctx context.Context) error {
	if idx.persist == nil {
		return nil
	}
	if err := idx.persist.SaveAll(ctx, idx.corpus.Documents()); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	if err := idx.persist.SetVersion(ctx, indexVersion); err != nil {
		return fmt.Errorf("persist index version: %w", err)
	}
	return nil
}

var h1Re = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)

// titleFor prefers the note's first H1 heading as the display title; notes
// without one fall back to the file name.
func titleFor(id, text string) string {
	if m := h1Re.FindStringSubmatch(text); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	return corpus.TitleFor(id)
}
