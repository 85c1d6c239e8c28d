// Package cli provides output helpers for the backlinker command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes full-text search hits to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, hit := range response.Hits {
		fmt.Fprintf(w, "%3d. %-40s %.4f  %s\n", hit.Rank, utils.Truncate(hit.Title, 40), hit.Score, hit.ID)
	}
	return nil
}

// WriteSimilarResults writes ranked similarity candidates to w.
func WriteSimilarResults(w io.Writer, response *models.SimilarResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nDocuments similar to %s (%dms)\n\n", response.SourceID, response.QueryTime)
	for _, res := range response.Results {
		c := res.Candidate
		fmt.Fprintf(w, "%3d. %-40s %.4f (lexical %.4f, semantic %.4f)\n",
			res.Rank, utils.Truncate(c.TargetTitle, 40), c.Score, c.LexicalScore, c.SemanticScore)
		if len(c.MatchedTerms) > 0 {
			fmt.Fprintf(w, "     shared: %v\n", c.MatchedTerms)
		}
	}
	return nil
}

// WriteSuggestions writes proposed anchor assignments to w.
func WriteSuggestions(w io.Writer, response *models.SuggestionResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nLink suggestions for %s (%dms)\n\n", response.SourceID, response.QueryTime)
	if len(response.Assignments) == 0 {
		fmt.Fprintln(w, "  no suggestions")
		return nil
	}
	for _, a := range response.Assignments {
		fmt.Fprintf(w, "  %-30s -> %-30s %.4f [%s]\n",
			utils.Truncate(a.Keyword, 30), utils.Truncate(a.TargetTitle, 30), a.Confidence, a.Reason)
	}
	return nil
}

// WriteLinkReport writes the outcome of a linking pass to w.
func WriteLinkReport(w io.Writer, report *models.LinkReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	mode := "applied"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "\nLinking pass (%s)\n", mode)
	fmt.Fprintf(w, "  processed:     %d\n", report.Processed)
	fmt.Fprintf(w, "  modified:      %d\n", report.Modified)
	fmt.Fprintf(w, "  anchors added: %d\n", report.AnchorsAdded)
	if report.Cancelled {
		fmt.Fprintln(w, "  cancelled before completion")
	}
	if report.BackupID != "" {
		fmt.Fprintf(w, "  backup:        %s\n", report.BackupID)
	}
	ids := make([]string, 0, len(report.Replacements))
	for id := range report.Replacements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "\n  %s\n", id)
		for _, rep := range report.Replacements[id] {
			fmt.Fprintf(w, "    %q -> %s (%.4f)\n", rep.Original, rep.Markup, rep.Confidence)
		}
	}
	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\n  errors (%d):\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "    %s: %s\n", e.ID, e.Message)
		}
	}
	return nil
}
