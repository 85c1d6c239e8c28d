// Package batch runs corpus-scale linking passes: score, match, replace,
// and write through the mutation sink, with a backup taken first.
package batch

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/matcher"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/internal/replacer"
	"github.com/EliasMarine/Backlinker-sub000/internal/scoring"
)

// Orchestrator owns one linking pass at a time over the mutable corpus.
type Orchestrator struct {
	corpus     *corpus.Corpus
	store      corpus.Store
	scorer     *scoring.Scorer
	matcher    *matcher.Matcher
	replacer   *replacer.Replacer
	backups    BackupSink
	thresholds scoring.Thresholds
	maxResults int
	logger     *zap.Logger
}

// BackupSink creates named snapshots before documents mutate.
type BackupSink interface {
	Create(documents map[string]string, linksAdded, linksRemoved int, description, trigger string) (string, error)
}

// Config wires an Orchestrator.
type Config struct {
	Corpus     *corpus.Corpus
	Store      corpus.Store
	Scorer     *scoring.Scorer
	Matcher    *matcher.Matcher
	Replacer   *replacer.Replacer
	Backups    BackupSink
	Thresholds scoring.Thresholds
	MaxResults int
	Logger     *zap.Logger
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &Orchestrator{
		corpus:     cfg.Corpus,
		store:      cfg.Store,
		scorer:     cfg.Scorer,
		matcher:    cfg.Matcher,
		replacer:   cfg.Replacer,
		backups:    cfg.Backups,
		thresholds: cfg.Thresholds,
		maxResults: cfg.MaxResults,
		logger:     cfg.Logger,
	}
}

// Suggest computes ranked anchor assignments for one source document
// without touching any text.
func (o *Orchestrator) Suggest(source *models.Document) []*models.AnchorAssignment {
	candidates := o.scorer.FindSimilar(source, o.thresholds, o.maxResults)
	perTarget := make([][]*models.AnchorAssignment, 0, len(candidates))
	for _, c := range candidates {
		if found := o.matcher.Match(source, c); len(found) > 0 {
			perTarget = append(perTarget, found)
		}
	}
	return o.matcher.Aggregate(perTarget)
}

// plannedEdit is one document's pending modification.
type plannedEdit struct {
	id       string
	original string
	result   replacer.Result
}

// Run executes a linking pass over the requested documents (all documents
// when req.SourceIDs is empty). The pass plans every edit first, snapshots
// the originals of documents about to change, then applies edits one
// document at a time. Cancellation is checked before each document in both
// phases; per-document failures are recorded and the pass continues.
func (o *Orchestrator) Run(ctx context.Context, req models.LinkRequest) *models.LinkReport {
	report := &models.LinkReport{
		DryRun:       req.DryRun,
		Replacements: make(map[string][]models.Replacement),
	}

	docs := o.selectDocuments(req.SourceIDs, report)
	var edits []plannedEdit
	for _, doc := range docs {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		report.Processed++

		assignments := o.Suggest(doc)
		if len(assignments) == 0 {
			continue
		}
		text, err := o.store.Read(doc.ID)
		if err != nil {
			report.Errors = append(report.Errors, models.DocumentError{ID: doc.ID, Message: err.Error()})
			continue
		}
		result := o.replacer.Apply(text, assignments)
		if !result.Modified() {
			continue
		}
		report.Replacements[doc.ID] = result.Replacements
		report.AnchorsAdded += len(result.Replacements)
		edits = append(edits, plannedEdit{id: doc.ID, original: text, result: result})
	}

	if req.DryRun || len(edits) == 0 {
		report.Modified = len(edits)
		return report
	}

	// Backup failure aborts before any document is mutated.
	originals := make(map[string]string, len(edits))
	for _, e := range edits {
		originals[e.id] = e.original
	}
	backupID, err := o.backups.Create(originals, report.AnchorsAdded, 0, req.Description, "link-pass")
	if err != nil {
		report.Errors = append(report.Errors, models.DocumentError{Message: fmt.Sprintf("backup failed, no documents modified: %v", err)})
		report.AnchorsAdded = 0
		report.Replacements = nil
		return report
	}
	report.BackupID = backupID

	for _, e := range edits {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if err := o.store.Write(e.id, e.result.Text); err != nil {
			report.Errors = append(report.Errors, models.DocumentError{ID: e.id, Message: err.Error()})
			report.AnchorsAdded -= len(e.result.Replacements)
			delete(report.Replacements, e.id)
			continue
		}
		report.Modified++
	}
	if o.logger != nil {
		o.logger.Info("link pass finished",
			zap.Int("processed", report.Processed),
			zap.Int("modified", report.Modified),
			zap.Int("anchors", report.AnchorsAdded),
			zap.Bool("cancelled", report.Cancelled))
	}
	return report
}

// selectDocuments resolves the requested ids into corpus documents, in
// stable order. Unknown ids become per-document errors.
func (o *Orchestrator) selectDocuments(ids []string, report *models.LinkReport) []*models.Document {
	if len(ids) == 0 {
		return o.corpus.Documents()
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	docs := make([]*models.Document, 0, len(sorted))
	for _, id := range sorted {
		doc := o.corpus.Get(id)
		if doc == nil {
			report.Errors = append(report.Errors, models.DocumentError{ID: id, Message: "document not found"})
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
