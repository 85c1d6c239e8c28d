// Package keyword provides full-text (BM25) search over the note corpus.
// This is a diagnostic surface next to the similarity engine: it answers
// "which notes mention X" while the scorer answers "which notes are about X".
package keyword

import (
	"context"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// SearchOptions are optional search parameters. Nil means defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from title matches.
	// Values > 1 rank title hits higher. Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables typo-tolerant matching.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2,
	// default 2).
	Fuzziness int
}

// KeywordIndex defines full-text search operations.
type KeywordIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single search hit.
type KeywordResult struct {
	ID    string
	Title string
	Score float64
}
