package matcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/embedding"
)

// ContextVerifier checks whether the text surrounding a keyword occurrence
// is actually about the target document, using embedding similarity.
type ContextVerifier interface {
	Available() bool
	// Verify returns the similarity between the sentence window around
	// position in sourceText and the target's cached embedding. ok is false
	// when no verdict could be produced (missing vector, embed failure).
	Verify(sourceText string, position int, targetID string) (score float64, ok bool)
}

// windowRadius is the number of bytes taken on each side of a match when
// building the sentence window, before snapping to sentence boundaries.
const windowRadius = 200

// EmbeddingVerifier verifies anchor context against cached target vectors.
type EmbeddingVerifier struct {
	engine *embedding.Engine
	store  *embedding.Store
	logger *zap.Logger
}

// NewEmbeddingVerifier wires the embedding engine and vector store into a
// ContextVerifier. Either may be nil; the verifier then reports unavailable.
func NewEmbeddingVerifier(engine *embedding.Engine, store *embedding.Store, logger *zap.Logger) *EmbeddingVerifier {
	return &EmbeddingVerifier{engine: engine, store: store, logger: logger}
}

func (v *EmbeddingVerifier) Available() bool {
	return v != nil && v.engine != nil && v.engine.Ready() && v.store != nil && v.store.Len() > 0
}

func (v *EmbeddingVerifier) Verify(sourceText string, position int, targetID string) (float64, bool) {
	targetVec, ok := v.store.Get(targetID)
	if !ok {
		return 0, false
	}
	window := sentenceWindow(sourceText, position)
	if window == "" {
		return 0, false
	}
	vec, err := v.engine.EmbedText(context.Background(), window)
	if err != nil {
		if v.logger != nil {
			v.logger.Debug("context verification embed failed",
				zap.String("target", targetID), zap.Error(err))
		}
		return 0, false
	}
	return float64(embedding.CosineSimilarity(vec, targetVec)), true
}

// sentenceWindow extracts the text around position, expanded to the nearest
// sentence boundaries within a fixed radius.
func sentenceWindow(text string, position int) string {
	if position < 0 || position >= len(text) {
		return ""
	}
	start := position - windowRadius
	if start < 0 {
		start = 0
	}
	end := position + windowRadius
	if end > len(text) {
		end = len(text)
	}
	// Snap forward past the sentence the window starts mid-way through.
	for i := position; i > start; i-- {
		if isSentenceEnd(text[i-1]) {
			start = i
			break
		}
	}
	// Snap back to the end of the sentence containing the match.
	for i := position; i < end; i++ {
		if isSentenceEnd(text[i]) {
			end = i + 1
			break
		}
	}
	return text[start:end]
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?' || b == '\n'
}
