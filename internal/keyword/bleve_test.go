package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func indexNotes(t *testing.T, idx *BleveIndex) {
	t.Helper()
	notes := []*models.Document{
		{ID: "raft.md", Title: "Raft Consensus", CleanText: "Leader election and log replication across a quorum of servers."},
		{ID: "paxos.md", Title: "Paxos Protocol", CleanText: "Proposers send ballots to acceptors seeking a quorum of promises."},
		{ID: "cooking.md", Title: "Pasta Dough", CleanText: "Flour eggs and kneading followed by a long rest."},
	}
	for _, n := range notes {
		if err := idx.Index(context.Background(), n); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBleveIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	indexNotes(t, idx)

	results, err := idx.Search(context.Background(), "quorum", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d hits, want 2", len(results))
	}
	for _, r := range results {
		if r.ID == "cooking.md" {
			t.Error("irrelevant note matched")
		}
		if r.Title == "" {
			t.Error("title field not returned")
		}
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Index(context.Background(), &models.Document{
		ID: "a.md", Title: "Notes on Raft", CleanText: "general content here",
	}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(context.Background(), &models.Document{
		ID: "b.md", Title: "Unrelated", CleanText: "raft mentioned once deep in the body text",
	}); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(context.Background(), "raft", 10, &SearchOptions{TitleBoost: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Fatalf("got %d hits, want 2", len(results))
	}
	if results[0].ID != "a.md" {
		t.Errorf("title hit not ranked first: %+v", results)
	}
}

func TestBleveIndex_FuzzySearch(t *testing.T) {
	idx := newTestIndex(t)
	indexNotes(t, idx)

	// Exact search misses the typo, fuzzy catches it.
	exact, err := idx.Search(context.Background(), "qourum", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 0 {
		t.Errorf("exact search matched typo: %+v", exact)
	}

	fuzzy, err := idx.Search(context.Background(), "qourum", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) == 0 {
		t.Error("fuzzy search found nothing for a 2-edit typo")
	}
}

func TestBleveIndex_DeleteAndCount(t *testing.T) {
	idx := newTestIndex(t)
	indexNotes(t, idx)

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	if err := idx.Delete(context.Background(), "raft.md"); err != nil {
		t.Fatal(err)
	}
	count, err = idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count after delete = %d, want 2", count)
	}
}

func TestBleveIndex_ReopenExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyword.bleve")
	idx, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(context.Background(), &models.Document{ID: "a.md", Title: "A", CleanText: "persistent content"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	results, err := reopened.Search(context.Background(), "persistent", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d hits after reopen, want 1", len(results))
	}
}
