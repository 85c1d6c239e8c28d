// Package backup snapshots document content before link passes mutate it
// and restores snapshots back into the corpus store.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
)

const (
	manifestFile = "manifest.json"
	historyFile  = "restore-history.json"

	// historyCap bounds the restore-history log.
	historyCap = 50
)

// Snapshot is one backup: the original byte content of every document a
// link pass was about to modify.
type Snapshot struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	DocumentCount int               `json:"document_count"`
	LinksAdded    int               `json:"links_added"`
	LinksRemoved  int               `json:"links_removed"`
	Description   string            `json:"description,omitempty"`
	Trigger       string            `json:"trigger,omitempty"`
	Documents     map[string]string `json:"documents"`
}

// Entry is the manifest view of a snapshot, without document content.
type Entry struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	DocumentCount int       `json:"document_count"`
	LinksAdded    int       `json:"links_added"`
	LinksRemoved  int       `json:"links_removed"`
	Description   string    `json:"description,omitempty"`
	Trigger       string    `json:"trigger,omitempty"`
}

// RestoreRecord logs one restore operation, most recent first.
type RestoreRecord struct {
	BackupID   string    `json:"backup_id"`
	RestoredAt time.Time `json:"restored_at"`
	Restored   int       `json:"restored"`
	Failed     int       `json:"failed"`
}

// RestoreResult reports a (possibly partial) restore.
type RestoreResult struct {
	Restored int      `json:"restored"`
	Errors   []string `json:"errors,omitempty"`
}

// Manager persists snapshots under a directory: one JSON file per snapshot
// plus a manifest and a capped restore-history log.
type Manager struct {
	dir    string
	store  corpus.Store
	logger *zap.Logger
}

// NewManager creates a manager writing snapshots under dir and restoring
// through the given store.
func NewManager(dir string, store corpus.Store, logger *zap.Logger) *Manager {
	return &Manager{dir: dir, store: store, logger: logger}
}

// Create writes a snapshot of the given documents and registers it in the
// manifest. It returns the snapshot id. Any write failure is returned
// before documents may be mutated.
func (m *Manager) Create(documents map[string]string, linksAdded, linksRemoved int, description, trigger string) (string, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	snap := Snapshot{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now(),
		DocumentCount: len(documents),
		LinksAdded:    linksAdded,
		LinksRemoved:  linksRemoved,
		Description:   description,
		Trigger:       trigger,
		Documents:     documents,
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(m.snapshotPath(snap.ID), data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	manifest, err := m.List()
	if err != nil {
		return "", err
	}
	manifest = append(manifest, Entry{
		ID:            snap.ID,
		CreatedAt:     snap.CreatedAt,
		DocumentCount: snap.DocumentCount,
		LinksAdded:    snap.LinksAdded,
		LinksRemoved:  snap.LinksRemoved,
		Description:   snap.Description,
		Trigger:       snap.Trigger,
	})
	if err := m.writeManifest(manifest); err != nil {
		return "", err
	}
	if m.logger != nil {
		m.logger.Info("backup created",
			zap.String("id", snap.ID),
			zap.Int("documents", snap.DocumentCount))
	}
	return snap.ID, nil
}

// List returns manifest entries sorted most recent first.
func (m *Manager) List() ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, manifestFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

// Get loads a full snapshot by id.
func (m *Manager) Get(id string) (*Snapshot, error) {
	data, err := os.ReadFile(m.snapshotPath(id))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Restore writes every document in the snapshot back through the store.
// Missing documents are recreated at their original path; a document that
// still fails is recorded and the restore continues, returning a partial
// success count plus the error list.
func (m *Manager) Restore(id string) (*RestoreResult, error) {
	snap, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	result := &RestoreResult{}
	ids := make([]string, 0, len(snap.Documents))
	for docID := range snap.Documents {
		ids = append(ids, docID)
	}
	sort.Strings(ids)
	for _, docID := range ids {
		if err := m.store.Write(docID, snap.Documents[docID]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", docID, err))
			if m.logger != nil {
				m.logger.Warn("restore failed for document",
					zap.String("id", docID), zap.Error(err))
			}
			continue
		}
		result.Restored++
	}

	if err := m.appendHistory(RestoreRecord{
		BackupID:   id,
		RestoredAt: time.Now(),
		Restored:   result.Restored,
		Failed:     len(result.Errors),
	}); err != nil {
		return result, err
	}
	if m.logger != nil {
		m.logger.Info("backup restored",
			zap.String("id", id),
			zap.Int("restored", result.Restored),
			zap.Int("failed", len(result.Errors)))
	}
	return result, nil
}

// Delete removes a snapshot and its manifest entry.
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.snapshotPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	manifest, err := m.List()
	if err != nil {
		return err
	}
	kept := manifest[:0]
	for _, e := range manifest {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return m.writeManifest(kept)
}

// History returns the restore log, most recent first.
func (m *Manager) History() ([]RestoreRecord, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, historyFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read restore history: %w", err)
	}
	var records []RestoreRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse restore history: %w", err)
	}
	return records, nil
}

func (m *Manager) appendHistory(record RestoreRecord) error {
	records, err := m.History()
	if err != nil {
		return err
	}
	records = append([]RestoreRecord{record}, records...)
	if len(records) > historyCap {
		records = records[:historyCap]
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode restore history: %w", err)
	}
	return os.WriteFile(filepath.Join(m.dir, historyFile), data, 0644)
}

func (m *Manager) writeManifest(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(m.dir, manifestFile), data, 0644)
}

func (m *Manager) snapshotPath(id string) string {
	return filepath.Join(m.dir, id+".json")
}
