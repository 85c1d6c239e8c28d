package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// MockProvider produces deterministic unit vectors without a model: the note
// text seeds a PRNG, so identical text always maps to the same vector while
// unrelated texts land nearly orthogonal at higher dimensions.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider of deterministic vectors with the given
// dimension (384 when non-positive, matching the default model).
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions}
}

// Embed derives a unit vector from the text content.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, p.dimensions)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	NormalizeL2Slice(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Dimensions returns the vector dimension.
func (p *MockProvider) Dimensions() int { return p.dimensions }

// Close is a no-op.
func (p *MockProvider) Close() error { return nil }
