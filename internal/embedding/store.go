package embedding

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// storeFormatVersion is bumped whenever the on-disk layout changes; any
// mismatch discards the whole cache.
const storeFormatVersion = 1

const (
	vectorsFile   = "vectors.bin"
	directoryFile = "directory.json"
)

type storeEntry struct {
	Offset      int64     `json:"offset"`
	Hash        string    `json:"hash"`
	GeneratedAt time.Time `json:"generated_at"`
}

type storeDirectory struct {
	Version    int                   `json:"version"`
	Model      string                `json:"model"`
	Dimensions int                   `json:"dimensions"`
	Entries    map[string]storeEntry `json:"entries"`
}

// Store persists document embeddings as a binary vector blob plus a JSON
// directory of offsets, hashes, and timestamps. A version, model, or
// dimension mismatch on load discards the entire cache (cold start) rather
// than attempting a partial migration.
type Store struct {
	dir        string
	model      string
	dimensions int
	logger     *zap.Logger

	vectors map[string][]float32
	entries map[string]storeEntry
	dirty   bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets a logger for cache events.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store for the given cache directory, model name, and
// vector dimension. Call Load to read any existing cache from disk.
func NewStore(dir, model string, dimensions int, opts ...StoreOption) *Store {
	s := &Store{
		dir:        dir,
		model:      model,
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
		entries:    make(map[string]storeEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the cache from disk. Corruption or configuration mismatch is
// never fatal: the cache resets to empty and generation starts cold. Entries
// whose offsets fall outside the binary payload are skipped and the store is
// marked dirty so the next save rewrites a consistent pair of files.
func (s *Store) Load() error {
	s.vectors = make(map[string][]float32)
	s.entries = make(map[string]storeEntry)
	s.dirty = false

	dirData, err := os.ReadFile(filepath.Join(s.dir, directoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache directory: %w", err)
	}
	var directory storeDirectory
	if err := json.Unmarshal(dirData, &directory); err != nil {
		s.logDiscard("unparseable directory")
		return nil
	}
	if directory.Version != storeFormatVersion || directory.Model != s.model || directory.Dimensions != s.dimensions {
		s.logDiscard("version/model/dimension mismatch")
		s.dirty = true
		return nil
	}

	payload, err := os.ReadFile(filepath.Join(s.dir, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			s.logDiscard("missing vector payload")
			s.dirty = true
			return nil
		}
		return fmt.Errorf("read cache payload: %w", err)
	}

	vecSize := int64(s.dimensions * 4)
	for id, entry := range directory.Entries {
		if entry.Offset < 0 || entry.Offset+vecSize > int64(len(payload)) {
			s.dirty = true
			if s.logger != nil {
				s.logger.Warn("skipping cache entry with out-of-range offset",
					zap.String("id", id), zap.Int64("offset", entry.Offset))
			}
			continue
		}
		s.vectors[id] = bytesToVector(payload[entry.Offset : entry.Offset+vecSize])
		s.entries[id] = entry
	}
	return nil
}

func (s *Store) logDiscard(reason string) {
	if s.logger != nil {
		s.logger.Info("discarding embedding cache", zap.String("reason", reason))
	}
}

// Get returns the cached vector for id.
func (s *Store) Get(id string) ([]float32, bool) {
	vec, ok := s.vectors[id]
	return vec, ok
}

// IsValid reports whether id is cached with exactly the given content hash.
func (s *Store) IsValid(id, hash string) bool {
	entry, ok := s.entries[id]
	return ok && entry.Hash == hash
}

// Put stores a vector for id with its content hash. Vectors of the wrong
// dimension are rejected; the on-disk layout assumes fixed-size records.
func (s *Store) Put(id, hash string, vec []float32) {
	if len(vec) != s.dimensions {
		if s.logger != nil {
			s.logger.Warn("rejecting vector with wrong dimension",
				zap.String("id", id), zap.Int("got", len(vec)), zap.Int("want", s.dimensions))
		}
		return
	}
	s.vectors[id] = vec
	s.entries[id] = storeEntry{Hash: hash, GeneratedAt: time.Now()}
	s.dirty = true
}

// Rename moves a cached vector to a new id without regenerating it.
func (s *Store) Rename(oldID, newID string) bool {
	vec, ok := s.vectors[oldID]
	if !ok {
		return false
	}
	entry := s.entries[oldID]
	delete(s.vectors, oldID)
	delete(s.entries, oldID)
	s.vectors[newID] = vec
	s.entries[newID] = entry
	s.dirty = true
	return true
}

// Delete removes a cached vector.
func (s *Store) Delete(id string) {
	if _, ok := s.vectors[id]; !ok {
		return
	}
	delete(s.vectors, id)
	delete(s.entries, id)
	s.dirty = true
}

// Len returns the number of cached vectors.
func (s *Store) Len() int { return len(s.vectors) }

// Vectors returns the live id -> vector map for neighbor search. Callers
// must not mutate it.
func (s *Store) Vectors() map[string][]float32 { return s.vectors }

// Save rewrites both cache files when the store is dirty. The payload is
// written before the directory so a crash between the two leaves offsets
// pointing into a payload that still contains them.
func (s *Store) Save() error {
	if !s.dirty {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	directory := storeDirectory{
		Version:    storeFormatVersion,
		Model:      s.model,
		Dimensions: s.dimensions,
		Entries:    make(map[string]storeEntry, len(s.entries)),
	}
	payload := make([]byte, 0, len(s.vectors)*s.dimensions*4)
	var offset int64
	for id, vec := range s.vectors {
		entry := s.entries[id]
		entry.Offset = offset
		directory.Entries[id] = entry
		payload = append(payload, vectorToBytes(vec)...)
		offset += int64(len(vec) * 4)
	}

	payloadPath := filepath.Join(s.dir, vectorsFile)
	if err := writeFileAtomic(payloadPath, payload); err != nil {
		return fmt.Errorf("write cache payload: %w", err)
	}
	dirData, err := json.MarshalIndent(&directory, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache directory: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, directoryFile), dirData); err != nil {
		return fmt.Errorf("write cache directory: %w", err)
	}

	for id, entry := range directory.Entries {
		s.entries[id] = entry
	}
	s.dirty = false
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func vectorToBytes(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
