package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/backup"
	"github.com/EliasMarine/Backlinker-sub000/internal/batch"
	"github.com/EliasMarine/Backlinker-sub000/internal/config"
	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/indexer"
	"github.com/EliasMarine/Backlinker-sub000/internal/keyword"
	"github.com/EliasMarine/Backlinker-sub000/internal/lexical"
	"github.com/EliasMarine/Backlinker-sub000/internal/matcher"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/internal/replacer"
	"github.com/EliasMarine/Backlinker-sub000/internal/scoring"
	"github.com/EliasMarine/Backlinker-sub000/internal/semantic"
	"github.com/EliasMarine/Backlinker-sub000/internal/storage"
)

var testNotes = map[string]string{
	"raft.md": "# Raft Consensus\n\nRaft elects a leader and replicates the log. " +
		"A quorum of voters must acknowledge every entry before commit. " +
		"Log replication drives the quorum protocol forward.",
	"paxos.md": "# Paxos\n\nPaxos reaches agreement through proposers and acceptors. " +
		"A quorum of acceptors must accept a proposal. " +
		"Log replication is implicit in multi-paxos.",
	"journal.md": "# Journal\n\nRead about Raft Consensus today. " +
		"The quorum rules and log replication details were the hard part. " +
		"Quorum intersection makes split brain impossible.",
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	vault := t.TempDir()
	for name, text := range testNotes {
		if err := os.WriteFile(filepath.Join(vault, name), []byte(text), 0644); err != nil {
			t.Fatalf("write note: %v", err)
		}
	}

	store := corpus.NewFSStore(vault, []string{".md"})
	c := corpus.New("test")
	lex := lexical.NewIndex(c)
	sem := semantic.NewEngine(semantic.Options{})

	stateDir := t.TempDir()
	persist, err := storage.NewSQLiteStorage(filepath.Join(stateDir, "index.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { persist.Close() })

	kw, err := keyword.NewBleveIndex(filepath.Join(stateDir, "keyword.bleve"))
	if err != nil {
		t.Fatalf("bleve: %v", err)
	}
	t.Cleanup(func() { kw.Close() })

	idx := indexer.NewIndexer(indexer.Config{
		Store:    store,
		Corpus:   c,
		Lexical:  lex,
		Semantic: sem,
		Persist:  persist,
		Keywords: kw,
	})
	if _, err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	logger := zap.NewNop()
	scorer := scoring.NewScorer(lex, scoring.WithSemantic(&scoring.SemanticAdapter{Engine: sem, Corpus: c}))
	m := matcher.New(c, matcher.Options{
		EnableEntityTier:  true,
		EnablePhraseTier:  true,
		EnableKeywordTier: true,
		SpecificityRatio:  2.0,
		FrequencyCeiling:  100,
		MaxPerSource:      5,
	})
	backups := backup.NewManager(filepath.Join(stateDir, "backups"), store, logger)

	thresholds := scoring.Thresholds{Lexical: 0.01, Semantic: 0.01, Combined: 0.01}
	orch := batch.New(batch.Config{
		Corpus:     c,
		Store:      store,
		Scorer:     scorer,
		Matcher:    m,
		Replacer:   replacer.New(logger),
		Backups:    backups,
		Thresholds: thresholds,
		MaxResults: 10,
		Logger:     logger,
	})

	cfg := &config.Config{}
	cfg.Vault.Root = vault
	cfg.Storage.DatabasePath = filepath.Join(stateDir, "index.db")
	cfg.Storage.BleveIndexPath = filepath.Join(stateDir, "keyword.bleve")
	cfg.Storage.EmbeddingCachePath = filepath.Join(stateDir, "embeddings")
	cfg.Scoring.LexicalThreshold = 0.01
	cfg.Scoring.SemanticThreshold = 0.01
	cfg.Scoring.CombinedThreshold = 0.01

	srv := NewServer(Deps{
		Corpus:       c,
		Scorer:       scorer,
		Orchestrator: orch,
		Backups:      backups,
		Keywords:     kw,
		Indexer:      idx,
		Storage:      persist,
		Config:       cfg,
		Logger:       logger,
	})
	return srv, vault
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Documents      int    `json:"documents"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Documents != len(testNotes) {
		t.Errorf("documents: got %d, want %d", out.Documents, len(testNotes))
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Error("expected positive disk_usage_bytes")
	}
}

func TestHandleGetDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/documents/raft.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var doc models.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Raft Consensus" {
		t.Errorf("title: got %q, want Raft Consensus", doc.Title)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/v1/documents/missing.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document status: got %d, want 404", w.Code)
	}
}

func TestHandleSimilar(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/similar", models.SimilarQuery{SourceID: "journal.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.SimilarResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) == 0 {
		t.Fatal("expected similarity results for journal.md")
	}
	if out.Results[0].Rank != 1 {
		t.Errorf("first rank: got %d, want 1", out.Results[0].Rank)
	}
}

func TestHandleSimilar_UnknownSource(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/similar", models.SimilarQuery{SourceID: "missing.md"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleSimilar_EmptySourceID(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/similar", models.SimilarQuery{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/suggestions", models.SimilarQuery{SourceID: "journal.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.SuggestionResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Assignments) == 0 {
		t.Fatal("expected anchor assignments for journal.md")
	}
	found := false
	for _, a := range out.Assignments {
		if a.TargetID == "raft.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an assignment targeting raft.md, got %+v", out.Assignments)
	}
}

func TestHandleLink_DryRun(t *testing.T) {
	srv, vault := newTestServer(t)
	before, err := os.ReadFile(filepath.Join(vault, "journal.md"))
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, srv, http.MethodPost, "/api/v1/link", models.LinkRequest{DryRun: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var report models.LinkReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if !report.DryRun {
		t.Error("report.DryRun = false, want true")
	}
	if report.AnchorsAdded == 0 {
		t.Error("expected anchors in dry-run report")
	}

	after, err := os.ReadFile(filepath.Join(vault, "journal.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("dry run must not modify files")
	}
}

func TestHandleLink_AppliesAndBacksUp(t *testing.T) {
	srv, vault := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/link", models.LinkRequest{SourceIDs: []string{"journal.md"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var report models.LinkReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Modified != 1 {
		t.Fatalf("modified: got %d, want 1 (errors: %+v)", report.Modified, report.Errors)
	}
	if report.BackupID == "" {
		t.Error("expected a backup id in the report")
	}

	text, err := os.ReadFile(filepath.Join(vault, "journal.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "[[Raft Consensus]]") {
		t.Errorf("journal.md not linked:\n%s", text)
	}

	// The backup must now be listable and restorable.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/backups", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("backups list status: got %d", w.Code)
	}
	var list struct {
		Backups []backup.Entry `json:"backups"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Backups) != 1 || list.Backups[0].ID != report.BackupID {
		t.Fatalf("backups: got %+v, want the report backup", list.Backups)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/v1/restore/"+report.BackupID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore status: got %d, body: %s", w.Code, w.Body.String())
	}
	restored, err := os.ReadFile(filepath.Join(vault, "journal.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(restored), "[[") {
		t.Errorf("restore did not revert the link:\n%s", restored)
	}
}

func TestHandleRestore_UnknownID(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/restore/no-such-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "quorum"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total == 0 {
		t.Fatal("expected search hits for quorum")
	}
	if out.Hits[0].Rank != 1 {
		t.Errorf("first rank: got %d, want 1", out.Hits[0].Rank)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/search", models.SearchQuery{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleBackupsHistory_Empty(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/backups/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
}
