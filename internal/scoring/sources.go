package scoring

import (
	"strings"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/embedding"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/internal/semantic"
)

// SemanticAdapter binds the statistical engine to a corpus so it satisfies
// SemanticSource.
type SemanticAdapter struct {
	Engine *semantic.Engine
	Corpus *corpus.Corpus
}

func (a *SemanticAdapter) Ready() bool {
	return a != nil && a.Engine != nil && a.Engine.Ready()
}

func (a *SemanticAdapter) FindSimilar(source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch {
	return a.Engine.FindSimilar(a.Corpus, source, threshold, maxResults)
}

// NeuralAdapter scores candidates by embedding cosine similarity over the
// persistent vector store.
type NeuralAdapter struct {
	Store  *embedding.Store
	Corpus *corpus.Corpus
}

func (a *NeuralAdapter) Ready() bool {
	return a != nil && a.Store != nil && a.Store.Len() > 0
}

// FindSimilar ranks documents by cosine similarity to the source vector,
// honoring the same exclusion rules as the other signals: never the source
// itself, never a target the source already links to.
func (a *NeuralAdapter) FindSimilar(source *models.Document, threshold float64, maxResults int) []*models.CandidateMatch {
	query, ok := a.Store.Get(source.ID)
	if !ok {
		return nil
	}
	exclude := map[string]bool{source.ID: true}
	for id := range a.Store.Vectors() {
		target := a.Corpus.Get(id)
		if target == nil {
			exclude[id] = true
			continue
		}
		if source.LinksTo(target.ID, strings.ToLower(target.Title)) {
			exclude[id] = true
		}
	}
	neighbors := embedding.TopK(query, a.Store.Vectors(), maxResults, exclude)

	results := make([]*models.CandidateMatch, 0, len(neighbors))
	for _, n := range neighbors {
		score := float64(n.Score)
		if score < threshold {
			continue
		}
		target := a.Corpus.Get(n.ID)
		if target == nil {
			continue
		}
		results = append(results, &models.CandidateMatch{
			TargetID:    n.ID,
			TargetTitle: target.Title,
			NeuralScore: score,
			Score:       score,
		})
	}
	return results
}
