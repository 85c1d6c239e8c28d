package models

import "fmt"

// SimilarQuery represents a request for documents similar to a source document.
type SimilarQuery struct {
	SourceID string  `json:"source_id"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
func (q *SimilarQuery) Validate() error {
	if q.SourceID == "" {
		return fmt.Errorf("source_id cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// SearchQuery represents a full-text search request against the corpus.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LinkRequest asks the orchestrator to run a corpus-scale linking pass.
// When DryRun is true, suggestions are computed but no document is mutated
// and no backup is created.
type LinkRequest struct {
	DryRun      bool     `json:"dry_run,omitempty"`
	SourceIDs   []string `json:"source_ids,omitempty"`
	Description string   `json:"description,omitempty"`
}
