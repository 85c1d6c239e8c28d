package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/keyword"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"documents": s.corpus.Len(),
		"version":   s.corpus.Version(),
	}
	if s.keywords != nil {
		if count, err := s.keywords.DocCount(); err == nil {
			resp["keyword_index_documents"] = count
		}
	}
	configInfo := map[string]interface{}{
		"vault_root":         s.config.Vault.Root,
		"matcher_preset":     s.config.Matcher.Preset,
		"lexical_threshold":  s.config.Scoring.LexicalThreshold,
		"semantic_threshold": s.config.Scoring.SemanticThreshold,
		"combined_threshold": s.config.Scoring.CombinedThreshold,
		"embedding_enabled":  s.config.Embedding.Enabled,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BleveIndexPath,
		s.config.Storage.EmbeddingCachePath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc := s.corpus.Get(id)
	if doc == nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var query models.SimilarQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	source := s.corpus.Get(query.SourceID)
	if source == nil {
		s.respondError(w, http.StatusNotFound, "source document not found")
		return
	}

	start := time.Now()
	th := s.thresholds
	if query.MinScore > 0 {
		th.Lexical = query.MinScore
		th.Semantic = query.MinScore
		th.Combined = query.MinScore
	}
	candidates := s.scorer.FindSimilar(source, th, query.Limit)

	results := make([]*models.SimilarResult, 0, len(candidates))
	for i, c := range candidates {
		results = append(results, &models.SimilarResult{Candidate: c, Rank: i + 1})
	}
	s.respondJSON(w, http.StatusOK, &models.SimilarResponse{
		SourceID:  query.SourceID,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var query models.SimilarQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	source := s.corpus.Get(query.SourceID)
	if source == nil {
		s.respondError(w, http.StatusNotFound, "source document not found")
		return
	}

	start := time.Now()
	assignments := s.orchestrator.Suggest(source)
	s.respondJSON(w, http.StatusOK, &models.SuggestionResponse{
		SourceID:    query.SourceID,
		Assignments: assignments,
		QueryTime:   time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req models.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Info("link request",
		zap.Bool("dry_run", req.DryRun),
		zap.Int("source_count", len(req.SourceIDs)))
	report := s.orchestrator.Run(r.Context(), req)
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.keywords == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword index not enabled")
		return
	}
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	results, err := s.keywords.Search(r.Context(), query.Query, query.Limit, &keyword.SearchOptions{
		TitleBoost:   2.0,
		FuzzyEnabled: true,
	})
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hits := make([]*models.SearchHit, 0, len(results))
	for i, res := range results {
		hits = append(hits, &models.SearchHit{
			ID:    res.ID,
			Title: res.Title,
			Score: res.Score,
			Rank:  i + 1,
		})
	}
	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Query:     query.Query,
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleBackupsList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.backups.List()
	if err != nil {
		s.logger.Error("backup list failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"backups": entries})
}

func (s *Server) handleBackupsHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.backups.History()
	if err != nil {
		s.logger.Error("restore history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"history": records})
}

func (s *Server) handleBackupsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backups.Delete(id); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Info("restore request", zap.String("backup_id", id))
	result, err := s.backups.Restore(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	// Restored files changed on disk; refresh the in-memory index so the
	// next scoring pass sees the restored text.
	if s.indexer != nil {
		if _, err := s.indexer.Build(r.Context()); err != nil {
			s.logger.Warn("reindex after restore failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
