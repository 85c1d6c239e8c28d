// Package watcher keeps the corpus index in sync with the vault on disk.
// It watches the vault root recursively with fsnotify, debounces bursts of
// writes, and reports note-level events by id rather than path.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounce = 400 * time.Millisecond

	// renameWindow pairs a Rename event with a Create of the same base
	// name; past the window the rename degrades to remove plus change.
	renameWindow = 500 * time.Millisecond
)

// Events receives note-level notifications. Ids are slash-separated paths
// relative to the vault root. Any field may be nil.
type Events struct {
	OnChange func(id string)
	OnRemove func(id string)
	OnRename func(oldID, newID string)
}

type pendingMove struct {
	id    string
	timer *time.Timer
}

// Watcher watches a vault root and reports note changes.
type Watcher struct {
	root       string
	extensions []string
	events     Events
	debounce   time.Duration

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	moves       map[string]pendingMove // base name -> note moved away
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the write-coalescing delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over the vault at root. extensions filter
// which files count as notes (defaults to .md when empty).
func NewWatcher(root string, extensions []string, events Events, opts ...WatcherOption) *Watcher {
	if len(extensions) == 0 {
		extensions = []string{".md"}
	}
	w := &Watcher{
		root:        filepath.Clean(root),
		extensions:  extensions,
		events:      events,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		moves:       make(map[string]pendingMove),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting",
			zap.String("root", w.root),
			zap.Strings("extensions", w.extensions))
	}
	if err := w.addTreeLocked(w.root); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if w.hidden(path) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Op&fsnotify.Create != 0:
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if !w.matchExtension(path) {
			return
		}
		if oldID, ok := w.takeMove(filepath.Base(path)); ok {
			newID := w.idFor(path)
			if w.logger != nil {
				w.logger.Debug("watcher rename", zap.String("from", oldID), zap.String("to", newID))
			}
			if w.events.OnRename != nil {
				w.events.OnRename(oldID, newID)
			}
			return
		}
		w.debounceChange(path)
	case ev.Op&fsnotify.Write != 0:
		if w.matchExtension(path) {
			w.debounceChange(path)
		}
	case ev.Op&fsnotify.Rename != 0:
		if w.matchExtension(path) {
			w.recordMove(path)
		}
	case ev.Op&fsnotify.Remove != 0:
		w.cancelDebounce(path)
		if w.matchExtension(path) && w.events.OnRemove != nil {
			w.events.OnRemove(w.idFor(path))
		}
	}
}

// handleNewDirectory adds a created directory (a folder moved or copied in)
// to the watch list and reports every matching file inside it.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	watcher := w.watcher
	if watcher != nil {
		if err := w.addTreeLocked(dirPath); err != nil && w.logger != nil {
			w.logger.Debug("watcher failed to add directory", zap.String("path", dirPath), zap.Error(err))
		}
	}
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	w.syncDirectory(dirPath)
}

// hidden reports whether any path component under the root is dot-prefixed.
// The vault's own state directory and editor metadata live in hidden dirs.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part != "." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (w *Watcher) idFor(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		eNorm := strings.TrimPrefix(strings.ToLower(e), ".")
		extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
		if eNorm == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		logger := w.logger
		w.mu.Unlock()
		id := w.idFor(path)
		if logger != nil {
			logger.Debug("watcher note changed (debounced)", zap.String("id", id))
		}
		if w.events.OnChange != nil {
			w.events.OnChange(id)
		}
	})
	w.debounceMap[path] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// recordMove remembers a note that was renamed away. If no Create claims it
// within renameWindow, the note left the vault and the move becomes a remove.
func (w *Watcher) recordMove(path string) {
	base := filepath.Base(path)
	id := w.idFor(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.moves[base]; ok {
		prev.timer.Stop()
	}
	timer := time.AfterFunc(renameWindow, func() {
		w.mu.Lock()
		_, still := w.moves[base]
		delete(w.moves, base)
		w.mu.Unlock()
		if still && w.events.OnRemove != nil {
			w.events.OnRemove(id)
		}
	})
	w.moves[base] = pendingMove{id: id, timer: timer}
}

func (w *Watcher) takeMove(base string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	move, ok := w.moves[base]
	if !ok {
		return "", false
	}
	move.timer.Stop()
	delete(w.moves, base)
	return move.id, true
}

func (w *Watcher) addTreeLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(root, 0755); err != nil {
				return err
			}
		} else {
			return err
		}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) syncDirectory(root string) {
	w.mu.Lock()
	exts := append([]string(nil), w.extensions...)
	logger := w.logger
	w.mu.Unlock()
	if logger != nil {
		logger.Debug("watcher syncing directory", zap.String("root", root))
	}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, exts) && w.events.OnChange != nil {
			w.events.OnChange(w.idFor(path))
		}
		return nil
	})
}

// SyncExistingNotes reports every note already present under the root.
// Call after Start to pick up files that predate the watcher.
func (w *Watcher) SyncExistingNotes() {
	w.syncDirectory(w.root)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	for base, move := range w.moves {
		move.timer.Stop()
		delete(w.moves, base)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
