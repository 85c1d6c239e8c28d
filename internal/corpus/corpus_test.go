package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

func doc(id string, terms map[string]int) *models.Document {
	total := 0
	for _, n := range terms {
		total += n
	}
	return &models.Document{ID: id, TermFreq: terms, TotalTerms: total}
}

func TestCorpus_DocumentFrequencyInvariant(t *testing.T) {
	c := New("v1")
	if err := c.Add(doc("a", map[string]int{"raft": 3, "paxos": 1})); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(doc("b", map[string]int{"raft": 1, "etcd": 2})); err != nil {
		t.Fatal(err)
	}

	if got := c.DocFrequency("raft"); got != 2 {
		t.Errorf("DocFrequency(raft)=%d, want 2", got)
	}
	if got := c.DocFrequency("paxos"); got != 1 {
		t.Errorf("DocFrequency(paxos)=%d, want 1", got)
	}

	// Update replaces b's terms; paxos gained, etcd dropped.
	c.Update(doc("b", map[string]int{"paxos": 5}))
	if got := c.DocFrequency("etcd"); got != 0 {
		t.Errorf("DocFrequency(etcd)=%d after update, want 0", got)
	}
	if got := c.DocFrequency("paxos"); got != 2 {
		t.Errorf("DocFrequency(paxos)=%d after update, want 2", got)
	}
	if got := c.DocFrequency("raft"); got != 1 {
		t.Errorf("DocFrequency(raft)=%d after update, want 1", got)
	}

	// Remove deletes zero-count entries entirely.
	c.Remove("a")
	if got := c.DocFrequency("raft"); got != 0 {
		t.Errorf("DocFrequency(raft)=%d after remove, want 0", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len=%d, want 1", c.Len())
	}
}

func TestCorpus_AddDuplicate(t *testing.T) {
	c := New("v1")
	if err := c.Add(doc("a", map[string]int{"x": 1})); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(doc("a", map[string]int{"x": 1})); err == nil {
		t.Error("duplicate add should fail")
	}
}

func TestCorpus_Rename(t *testing.T) {
	c := New("v1")
	_ = c.Add(doc("old.md", map[string]int{"raft": 2}))
	if err := c.Rename("old.md", "new.md"); err != nil {
		t.Fatal(err)
	}
	if c.Get("old.md") != nil {
		t.Error("old id still present")
	}
	got := c.Get("new.md")
	if got == nil || got.ID != "new.md" {
		t.Fatalf("renamed doc missing: %+v", got)
	}
	if c.DocFrequency("raft") != 1 {
		t.Error("rename must not change term statistics")
	}
	if err := c.Rename("missing", "x"); err == nil {
		t.Error("renaming a missing document should fail")
	}
}

func TestCorpus_FrequencyPercent(t *testing.T) {
	c := New("v1")
	_ = c.Add(doc("a", map[string]int{"kubernetes": 1}))
	_ = c.Add(doc("b", map[string]int{"kubernetes": 1}))
	_ = c.Add(doc("c", map[string]int{"other": 1}))
	if got := c.FrequencyPercent("kubernetes"); got < 66.6 || got > 66.7 {
		t.Errorf("FrequencyPercent=%f, want ~66.67", got)
	}
	if got := c.FrequencyPercent("other"); got < 33.3 || got > 33.4 {
		t.Errorf("FrequencyPercent=%f, want ~33.33", got)
	}
}

func TestFSStore(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "notes", "raft.md"), "# Raft\n")
	mustWrite(t, filepath.Join(root, "todo.md"), "tasks\n")
	mustWrite(t, filepath.Join(root, "image.png"), "binary")
	mustWrite(t, filepath.Join(root, ".obsidian", "config.md"), "hidden")

	store := NewFSStore(root, nil)
	refs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("List returned %d refs: %+v", len(refs), refs)
	}
	if refs[0].ID != "notes/raft.md" || refs[1].ID != "todo.md" {
		t.Errorf("unexpected ids: %s, %s", refs[0].ID, refs[1].ID)
	}

	text, err := store.Read("notes/raft.md")
	if err != nil {
		t.Fatal(err)
	}
	if text != "# Raft\n" {
		t.Errorf("Read=%q", text)
	}

	if _, err := store.Stamp("notes/raft.md"); err != nil {
		t.Fatal(err)
	}

	// Write recreates missing parents (restore path).
	if err := store.Write("archive/old.md", "restored\n"); err != nil {
		t.Fatal(err)
	}
	back, err := store.Read("archive/old.md")
	if err != nil || back != "restored\n" {
		t.Errorf("round trip failed: %q %v", back, err)
	}

	if got := TitleFor("notes/raft.md"); got != "raft" {
		t.Errorf("TitleFor=%q", got)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
