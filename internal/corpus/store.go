package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// NoteRef identifies one note in a store.
type NoteRef struct {
	ID       string
	Path     string
	Modified time.Time
}

// Store is the external corpus boundary: enumerate notes, read raw text,
// and write modified text back.
type Store interface {
	List() ([]NoteRef, error)
	Read(id string) (string, error)
	Stamp(id string) (time.Time, error)
	Write(id, text string) error
}

// FSStore is a filesystem Store over a notes root. Note ids are
// slash-separated paths relative to the root.
type FSStore struct {
	root       string
	extensions map[string]bool
}

// NewFSStore creates a store rooted at root. extensions filter which files
// are listed (defaults to .md when empty).
func NewFSStore(root string, extensions []string) *FSStore {
	if len(extensions) == 0 {
		extensions = []string{".md"}
	}
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	return &FSStore{root: root, extensions: extSet}
}

// Root returns the store root directory.
func (s *FSStore) Root() string { return s.root }

// List walks the root and returns refs for all matching files, sorted by id.
// Hidden directories (dot-prefixed) are skipped.
func (s *FSStore) List() ([]NoteRef, error) {
	var refs []NoteRef
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		refs = append(refs, NoteRef{
			ID:       s.IDFor(path),
			Path:     path,
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus root: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// IDFor returns the stable note id for an absolute path under the root.
func (s *FSStore) IDFor(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// Read returns the raw text of a note by id.
func (s *FSStore) Read(id string) (string, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		return "", fmt.Errorf("read note %s: %w", id, err)
	}
	return string(data), nil
}

// Stamp returns the modification time of a note.
func (s *FSStore) Stamp(id string) (time.Time, error) {
	info, err := os.Stat(s.pathFor(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("stat note %s: %w", id, err)
	}
	return info.ModTime(), nil
}

// Write replaces a note's text, creating parent directories as needed so a
// restore can recreate a note at its original path.
func (s *FSStore) Write(id, text string) error {
	path := s.pathFor(id)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create note dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("write note %s: %w", id, err)
	}
	return nil
}

func (s *FSStore) pathFor(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

// TitleFor derives a display title from a note id: the file name without
// extension.
func TitleFor(id string) string {
	base := filepath.Base(filepath.FromSlash(id))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
