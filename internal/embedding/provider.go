// Package embedding turns note text into dense vectors for the semantic
// relevance signal. The Engine manages provider lifecycle and batching; the
// Store persists vectors between runs.
package embedding

import "context"

// Provider generates normalized vectors for note text. Implementations must
// be safe for concurrent Embed calls.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
