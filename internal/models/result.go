package models

// SimilarResult is one ranked similarity hit for a source document.
type SimilarResult struct {
	Candidate *CandidateMatch `json:"candidate"`
	Rank      int             `json:"rank"`
}

// SimilarResponse is the response for a similar-documents request.
type SimilarResponse struct {
	SourceID  string           `json:"source_id"`
	Results   []*SimilarResult `json:"results"`
	QueryTime int64            `json:"query_time_ms"`
}

// SuggestionResponse lists anchor assignments proposed for one source document.
type SuggestionResponse struct {
	SourceID    string             `json:"source_id"`
	Assignments []*AnchorAssignment `json:"assignments"`
	QueryTime   int64               `json:"query_time_ms"`
}

// SearchHit is a full-text search hit.
type SearchHit struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchResponse is the response for a full-text search request.
type SearchResponse struct {
	Query     string       `json:"query"`
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	QueryTime int64        `json:"query_time_ms"`
}

// DocumentError records a per-document failure during a corpus-scale pass.
type DocumentError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// LinkReport summarizes a corpus-scale linking pass.
type LinkReport struct {
	Processed    int                      `json:"processed"`
	Modified     int                      `json:"modified"`
	AnchorsAdded int                      `json:"anchors_added"`
	DryRun       bool                     `json:"dry_run"`
	Cancelled    bool                     `json:"cancelled"`
	BackupID     string                   `json:"backup_id,omitempty"`
	Errors       []DocumentError          `json:"errors,omitempty"`
	Replacements map[string][]Replacement `json:"replacements,omitempty"`
}
