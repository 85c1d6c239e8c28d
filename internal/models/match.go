package models

// CandidateMatch is a scored similarity candidate for one source document.
// Any per-signal score may be zero when that signal did not produce the
// candidate. Ephemeral: created and consumed within one scoring call.
type CandidateMatch struct {
	TargetID      string   `json:"target_id"`
	TargetTitle   string   `json:"target_title"`
	LexicalScore  float64  `json:"lexical_score"`
	SemanticScore float64  `json:"semantic_score"`
	NeuralScore   float64  `json:"neural_score"`
	Score         float64  `json:"score"`
	MatchedTerms  []string `json:"matched_terms,omitempty"`
}

// MatchReason tags which matcher tier produced an anchor assignment.
type MatchReason string

const (
	ReasonTitle   MatchReason = "title"
	ReasonEntity  MatchReason = "entity"
	ReasonPhrase  MatchReason = "phrase"
	ReasonKeyword MatchReason = "keyword"
)

// AnchorAssignment maps a literal keyword in a source document to a target
// document. Ephemeral output of the keyword matcher.
type AnchorAssignment struct {
	Keyword     string      `json:"keyword"`
	TargetID    string      `json:"target_id"`
	TargetTitle string      `json:"target_title"`
	Confidence  float64     `json:"confidence"`
	Reason      MatchReason `json:"reason"`
}

// Replacement records one applied (or previewed) text edit.
type Replacement struct {
	Position   int     `json:"position"`
	Length     int     `json:"length"`
	Original   string  `json:"original"`
	Markup     string  `json:"markup"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
}
