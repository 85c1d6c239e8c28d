// Package integration exercises the persisted index lifecycle against real
// SQLite and Bleve state on disk.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/indexer"
	"github.com/EliasMarine/Backlinker-sub000/internal/keyword"
	"github.com/EliasMarine/Backlinker-sub000/internal/lexical"
	"github.com/EliasMarine/Backlinker-sub000/internal/semantic"
	"github.com/EliasMarine/Backlinker-sub000/internal/storage"
)

func writeNote(t *testing.T, root, id, text string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(id))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
}

// stack bundles one process's view of the persisted index. Bleve holds a
// file lock while open, so a test that reopens the same state dir must
// close the previous stack first.
type stack struct {
	idx     *indexer.Indexer
	corpus  *corpus.Corpus
	keyword *keyword.BleveIndex
	persist *storage.SQLiteStorage
	closed  bool
}

func (s *stack) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.keyword.Close()
	s.persist.Close()
}

func openStack(t *testing.T, root, stateDir string) *stack {
	t.Helper()
	store := corpus.NewFSStore(root, []string{".md"})
	c := corpus.New("integration")
	lex := lexical.NewIndex(c)
	sem := semantic.NewEngine(semantic.Options{})

	persist, err := storage.NewSQLiteStorage(filepath.Join(stateDir, "index.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}

	kw, err := keyword.NewBleveIndex(filepath.Join(stateDir, "keyword.bleve"))
	if err != nil {
		persist.Close()
		t.Fatalf("bleve: %v", err)
	}

	idx := indexer.NewIndexer(indexer.Config{
		Store:    store,
		Corpus:   c,
		Lexical:  lex,
		Semantic: sem,
		Persist:  persist,
		Keywords: kw,
	})
	s := &stack{idx: idx, corpus: c, keyword: kw, persist: persist}
	t.Cleanup(s.close)
	return s
}

func TestIndexLifecycle_ReuseAcrossRestarts(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "raft.md", "# Raft Consensus\n\nLeader election and log replication with quorum acknowledgement.\n")
	writeNote(t, root, "gossip.md", "# Gossip Protocol\n\nEpidemic dissemination through random peer exchange.\n")

	ctx := context.Background()
	stateA := t.TempDir()
	a := openStack(t, root, stateA)
	statsA, err := a.idx.Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if statsA.Analyzed != 2 || statsA.Reused != 0 {
		t.Fatalf("cold build: analyzed=%d reused=%d, want 2/0", statsA.Analyzed, statsA.Reused)
	}
	// Release the Bleve and SQLite locks before the second process opens
	// the same state dir.
	a.close()

	// A second process over the same state reuses every persisted analysis.
	b := openStack(t, root, stateA)
	statsB, err := b.idx.Build(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if statsB.Reused != 2 || statsB.Analyzed != 0 {
		t.Fatalf("warm build: analyzed=%d reused=%d, want 0/2", statsB.Analyzed, statsB.Reused)
	}
	if b.corpus.Len() != 2 {
		t.Fatalf("corpus size after warm build: got %d, want 2", b.corpus.Len())
	}

	hits, err := b.keyword.Search(ctx, "quorum", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "raft.md" {
		t.Fatalf("quorum search: got %+v, want raft.md", hits)
	}
}

func TestIndexLifecycle_IncrementalUpdates(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "raft.md", "# Raft Consensus\n\nLeader election and log replication.\n")

	ctx := context.Background()
	s := openStack(t, root, t.TempDir())
	if _, err := s.idx.Build(ctx); err != nil {
		t.Fatal(err)
	}

	writeNote(t, root, "lsm.md", "# LSM Trees\n\nMemtable flushes and compaction levels with bloom filters.\n")
	if err := s.idx.IndexOne(ctx, "lsm.md"); err != nil {
		t.Fatal(err)
	}
	if s.corpus.Len() != 2 {
		t.Fatalf("corpus size after IndexOne: got %d, want 2", s.corpus.Len())
	}
	hits, err := s.keyword.Search(ctx, "compaction", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "lsm.md" {
		t.Fatalf("compaction search: got %+v, want lsm.md", hits)
	}

	if err := s.idx.Remove(ctx, "lsm.md"); err != nil {
		t.Fatal(err)
	}
	if s.corpus.Get("lsm.md") != nil {
		t.Error("lsm.md still in corpus after Remove")
	}
	hits, err = s.keyword.Search(ctx, "compaction", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("compaction search after remove: got %+v, want none", hits)
	}
}

func TestIndexLifecycle_Rename(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "draft.md", "# Merkle Trees\n\nHash tree verification across replicas.\n")

	ctx := context.Background()
	s := openStack(t, root, t.TempDir())
	if _, err := s.idx.Build(ctx); err != nil {
		t.Fatal(err)
	}

	// Move the file on disk the way an editor would, then report the rename.
	if err := os.MkdirAll(filepath.Join(root, "archive"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(filepath.Join(root, "draft.md"), filepath.Join(root, "archive", "draft.md")); err != nil {
		t.Fatal(err)
	}
	if err := s.idx.Rename(ctx, "draft.md", "archive/draft.md"); err != nil {
		t.Fatal(err)
	}
	if s.corpus.Get("draft.md") != nil {
		t.Error("old id still present after rename")
	}
	if s.corpus.Get("archive/draft.md") == nil {
		t.Error("new id missing after rename")
	}
}
