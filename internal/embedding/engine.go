package embedding

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the embedding engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateDownloading
	StateLoading
	StateReady
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Progress reports model download/load progress.
type Progress struct {
	State      State
	BytesDone  int64
	BytesTotal int64
	Percent    float64
	Message    string
}

// ProgressFunc receives progress updates during Load.
type ProgressFunc func(Progress)

// BatchProgress reports batch generation progress with a throughput-derived ETA.
type BatchProgress struct {
	Done  int
	Total int
	ETA   time.Duration
}

// EngineConfig configures the embedding engine.
type EngineConfig struct {
	ModelPath string
	// ModelURL, when set, is downloaded to ModelPath if the model file is
	// missing.
	ModelURL   string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	// BatchSize is the chunk size for batch generation (default 8).
	BatchSize int
}

// providerFunc creates the provider; overridable in tests and by callers
// that supply a non-ONNX provider.
type providerFunc func(cfg EngineConfig) (Provider, error)

// Engine lazily loads an embedding provider and tracks its lifecycle:
// idle -> downloading -> loading -> ready | error. A failed load leaves the
// engine unusable but never panics callers; the hybrid scorer simply loses
// the neural signal.
type Engine struct {
	cfg         EngineConfig
	newProvider providerFunc
	onProgress  ProgressFunc
	logger      *zap.Logger

	mu       sync.Mutex
	state    State
	provider Provider
	lastErr  error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProgress sets a progress callback for download/load reporting.
func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) { e.onProgress = fn }
}

// WithEngineLogger sets a logger for debug output.
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithProvider overrides the default ONNX provider factory.
func WithProvider(fn func(cfg EngineConfig) (Provider, error)) EngineOption {
	return func(e *Engine) { e.newProvider = fn }
}

// NewEngine creates an idle engine; call Load before generating.
func NewEngine(cfg EngineConfig, opts ...EngineOption) *Engine {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	e := &Engine{
		cfg:   cfg,
		state: StateIdle,
		newProvider: func(cfg EngineConfig) (Provider, error) {
			return NewONNXProvider(cfg)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Ready reports whether the engine can generate embeddings.
func (e *Engine) Ready() bool {
	return e.State() == StateReady
}

// Err returns the load error, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Dimensions returns the embedding dimension.
func (e *Engine) Dimensions() int { return e.cfg.Dimensions }

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) report(p Progress) {
	if e.onProgress != nil {
		e.onProgress(p)
	}
}

// Load downloads the model when missing and a URL is configured, then loads
// the provider. Safe to call repeatedly; subsequent calls after success are
// no-ops, and calls after failure retry from idle.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateReady {
		e.mu.Unlock()
		return nil
	}
	if e.state == StateDownloading || e.state == StateLoading {
		e.mu.Unlock()
		return fmt.Errorf("load already in progress")
	}
	e.state = StateIdle
	e.lastErr = nil
	e.mu.Unlock()

	if _, err := os.Stat(e.cfg.ModelPath); os.IsNotExist(err) && e.cfg.ModelURL != "" {
		e.setState(StateDownloading)
		if err := e.download(ctx); err != nil {
			return e.fail(fmt.Errorf("download model: %w", err))
		}
	}

	e.setState(StateLoading)
	e.report(Progress{State: StateLoading, Message: "loading model"})
	provider, err := e.newProvider(e.cfg)
	if err != nil {
		return e.fail(fmt.Errorf("load model: %w", err))
	}

	e.mu.Lock()
	e.provider = provider
	e.state = StateReady
	e.mu.Unlock()
	e.report(Progress{State: StateReady, Percent: 100})
	if e.logger != nil {
		e.logger.Info("embedding model ready", zap.String("path", e.cfg.ModelPath))
	}
	return nil
}

func (e *Engine) fail(err error) error {
	e.mu.Lock()
	e.state = StateError
	e.lastErr = err
	e.mu.Unlock()
	e.report(Progress{State: StateError, Message: err.Error()})
	if e.logger != nil {
		e.logger.Warn("embedding engine unavailable", zap.Error(err))
	}
	return err
}

func (e *Engine) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.ModelURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if dir := filepath.Dir(e.cfg.ModelPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := e.cfg.ModelPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	total := resp.ContentLength
	var done int64
	buf := make([]byte, 1<<20)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				os.Remove(tmp)
				return werr
			}
			done += int64(n)
			p := Progress{State: StateDownloading, BytesDone: done, BytesTotal: total}
			if total > 0 {
				p.Percent = 100 * float64(done) / float64(total)
			}
			e.report(p)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			os.Remove(tmp)
			return readErr
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, e.cfg.ModelPath)
}

// charBudget approximates the token limit in characters (4 chars per token).
func (e *Engine) charBudget() int {
	return e.cfg.MaxTokens * 4
}

// EmbedText generates one normalized vector for text, truncating to the
// approximate character budget derived from the max-token setting.
func (e *Engine) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	provider := e.provider
	state := e.state
	e.mu.Unlock()
	if state != StateReady || provider == nil {
		return nil, fmt.Errorf("embedding engine not ready (state %s)", state)
	}
	if budget := e.charBudget(); len(text) > budget {
		text = text[:budget]
	}
	return provider.Embed(ctx, text)
}

// BatchItem is one document to embed.
type BatchItem struct {
	ID   string
	Text string
}

// EmbedBatchItems generates vectors in fixed-size chunks, reporting progress
// with a throughput-derived ETA and yielding between documents so the host
// stays responsive. Per-item failures are returned in the result, not fatal.
func (e *Engine) EmbedBatchItems(ctx context.Context, items []BatchItem, onProgress func(BatchProgress), yield func()) (map[string][]float32, map[string]error) {
	vectors := make(map[string][]float32, len(items))
	failures := make(map[string]error)
	start := time.Now()
	done := 0

	for chunkStart := 0; chunkStart < len(items); chunkStart += e.cfg.BatchSize {
		chunkEnd := chunkStart + e.cfg.BatchSize
		if chunkEnd > len(items) {
			chunkEnd = len(items)
		}
		for _, item := range items[chunkStart:chunkEnd] {
			if ctx.Err() != nil {
				return vectors, failures
			}
			vec, err := e.EmbedText(ctx, item.Text)
			if err != nil {
				failures[item.ID] = err
			} else {
				vectors[item.ID] = vec
			}
			done++
			if onProgress != nil {
				onProgress(BatchProgress{Done: done, Total: len(items), ETA: batchETA(start, done, len(items))})
			}
			if yield != nil {
				yield()
			}
		}
	}
	return vectors, failures
}

func batchETA(start time.Time, done, total int) time.Duration {
	if done == 0 || done >= total {
		return 0
	}
	elapsed := time.Since(start)
	perItem := elapsed / time.Duration(done)
	return perItem * time.Duration(total-done)
}

// Close releases the underlying provider.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.provider != nil {
		err := e.provider.Close()
		e.provider = nil
		e.state = StateIdle
		return err
	}
	return nil
}
