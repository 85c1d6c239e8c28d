// Package main is the backlinker CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/EliasMarine/Backlinker-sub000/internal/backup"
	"github.com/EliasMarine/Backlinker-sub000/internal/batch"
	"github.com/EliasMarine/Backlinker-sub000/internal/cli"
	"github.com/EliasMarine/Backlinker-sub000/internal/config"
	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/embedding"
	"github.com/EliasMarine/Backlinker-sub000/internal/indexer"
	"github.com/EliasMarine/Backlinker-sub000/internal/keyword"
	"github.com/EliasMarine/Backlinker-sub000/internal/lexical"
	"github.com/EliasMarine/Backlinker-sub000/internal/matcher"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
	"github.com/EliasMarine/Backlinker-sub000/internal/replacer"
	"github.com/EliasMarine/Backlinker-sub000/internal/scoring"
	"github.com/EliasMarine/Backlinker-sub000/internal/semantic"
	"github.com/EliasMarine/Backlinker-sub000/internal/server"
	"github.com/EliasMarine/Backlinker-sub000/internal/storage"
	"github.com/EliasMarine/Backlinker-sub000/internal/watcher"
	"github.com/EliasMarine/Backlinker-sub000/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/backlinker/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so "backlinker server" from a vault dir uses the vault's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "analyze":
		runAnalyze()
	case "similar":
		runSimilar()
	case "suggest":
		runSuggest()
	case "link":
		runLink()
	case "search":
		runSearch()
	case "backups":
		runBackups()
	case "restore":
		runRestore()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("backlinker version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	buildCtx := context.Background()
	stats, err := components.Indexer.Build(buildCtx)
	if err != nil {
		logger.Fatal("Initial index build failed", zap.Error(err))
	}
	logger.Info("index built",
		zap.Int("total", stats.Total),
		zap.Int("analyzed", stats.Analyzed),
		zap.Int("reused", stats.Reused),
		zap.Int("embedded", stats.Embedded),
	)

	var watchSvc *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		idx := components.Indexer
		watchOpts := []watcher.WatcherOption{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.Vault.Root, cfg.Vault.Extensions, watcher.Events{
			OnChange: func(id string) {
				if err := idx.IndexOne(context.Background(), id); err != nil {
					logger.Warn("watch index failed", zap.String("id", id), zap.Error(err))
				}
			},
			OnRemove: func(id string) {
				if err := idx.Remove(context.Background(), id); err != nil {
					logger.Warn("watch remove failed", zap.String("id", id), zap.Error(err))
				}
			},
			OnRename: func(oldID, newID string) {
				if err := idx.Rename(context.Background(), oldID, newID); err != nil {
					logger.Warn("watch rename failed",
						zap.String("from", oldID), zap.String("to", newID), zap.Error(err))
				}
			},
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(server.Deps{
		Corpus:       components.Corpus,
		Scorer:       components.Scorer,
		Orchestrator: components.Orchestrator,
		Backups:      components.Backups,
		Keywords:     components.Keywords,
		Indexer:      components.Indexer,
		Storage:      components.Storage,
		Config:       cfg,
		Logger:       logger,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	components, cfg, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()
	_ = cfg

	stats, err := components.Indexer.Build(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analyze failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("notes:     %d\n", stats.Total)
	fmt.Printf("analyzed:  %d\n", stats.Analyzed)
	fmt.Printf("reused:    %d\n", stats.Reused)
	if stats.Embedded > 0 || stats.EmbedFailed > 0 {
		fmt.Printf("embedded:  %d (%d failed)\n", stats.Embedded, stats.EmbedFailed)
	}
}

func runSimilar() {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct index access)")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: backlinker similar [flags] <note-id>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SimilarQuery{SourceID: fs.Arg(0), Limit: *limit}

	if *serverURL != "" {
		var response models.SimilarResponse
		if err := postJSON(*serverURL+"/api/v1/similar", query, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Similar failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteSimilarResults(os.Stdout, &response, format)
		return
	}

	components, cfg, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()
	mustBuild(components)

	source := components.Corpus.Get(query.SourceID)
	if source == nil {
		fmt.Fprintf(os.Stderr, "Note not found: %s\n", query.SourceID)
		os.Exit(1)
	}
	start := time.Now()
	th := scoring.Thresholds{
		Lexical:  cfg.Scoring.LexicalThreshold,
		Semantic: cfg.Scoring.SemanticThreshold,
		Combined: cfg.Scoring.CombinedThreshold,
	}
	candidates := components.Scorer.FindSimilar(source, th, query.Limit)
	results := make([]*models.SimilarResult, 0, len(candidates))
	for i, c := range candidates {
		results = append(results, &models.SimilarResult{Candidate: c, Rank: i + 1})
	}
	_ = cli.WriteSimilarResults(os.Stdout, &models.SimilarResponse{
		SourceID:  query.SourceID,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	}, format)
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct index access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: backlinker suggest [flags] <note-id>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SimilarQuery{SourceID: fs.Arg(0)}

	if *serverURL != "" {
		var response models.SuggestionResponse
		if err := postJSON(*serverURL+"/api/v1/suggestions", query, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteSuggestions(os.Stdout, &response, format)
		return
	}

	components, _, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()
	mustBuild(components)

	source := components.Corpus.Get(query.SourceID)
	if source == nil {
		fmt.Fprintf(os.Stderr, "Note not found: %s\n", query.SourceID)
		os.Exit(1)
	}
	start := time.Now()
	assignments := components.Orchestrator.Suggest(source)
	_ = cli.WriteSuggestions(os.Stdout, &models.SuggestionResponse{
		SourceID:    query.SourceID,
		Assignments: assignments,
		QueryTime:   time.Since(start).Milliseconds(),
	}, format)
}

func runLink() {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct index access)")
	dryRun := fs.Bool("dry-run", false, "compute and report suggestions without modifying any note")
	description := fs.String("description", "", "description recorded on the pre-link backup")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := models.LinkRequest{
		DryRun:      *dryRun,
		SourceIDs:   fs.Args(),
		Description: *description,
	}

	if *serverURL != "" {
		var report models.LinkReport
		if err := postJSON(*serverURL+"/api/v1/link", req, &report); err != nil {
			fmt.Fprintf(os.Stderr, "Link failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteLinkReport(os.Stdout, &report, format)
		return
	}

	components, _, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()
	mustBuild(components)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	report := components.Orchestrator.Run(ctx, req)
	_ = cli.WriteLinkReport(os.Stdout, report, format)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves flags (and their values) that appear after the
// query to the front so flag.Parse() sees them; the flag package stops at
// the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct index access)")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable typo-tolerant matching")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: backlinker search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SearchQuery{Query: buildSearchQuery(fs.Args()), Limit: *limit}

	if *serverURL != "" {
		var response models.SearchResponse
		if err := postJSON(*serverURL+"/api/v1/search", query, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteSearchResults(os.Stdout, &response, format)
		return
	}

	components, _, logger := mustInitialize(*configPath)
	defer components.Close()
	defer logger.Sync()
	mustBuild(components)

	start := time.Now()
	results, err := components.Keywords.Search(context.Background(), query.Query, query.Limit, &keyword.SearchOptions{
		TitleBoost:   2.0,
		FuzzyEnabled: *fuzzy,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	// Retry with fuzzy matching when an exact search finds nothing.
	if len(results) == 0 && !*fuzzy {
		results, _ = components.Keywords.Search(context.Background(), query.Query, query.Limit, &keyword.SearchOptions{
			TitleBoost:   2.0,
			FuzzyEnabled: true,
		})
	}
	hits := make([]*models.SearchHit, 0, len(results))
	for i, res := range results {
		hits = append(hits, &models.SearchHit{ID: res.ID, Title: res.Title, Score: res.Score, Rank: i + 1})
	}
	_ = cli.WriteSearchResults(os.Stdout, &models.SearchResponse{
		Query:     query.Query,
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(start).Milliseconds(),
	}, format)
}

func runBackups() {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	history := fs.Bool("history", false, "show restore history instead of snapshots")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := utils.NewLogger(cfg.Debug)
	defer logger.Sync()
	store := corpus.NewFSStore(cfg.Vault.Root, cfg.Vault.Extensions)
	manager := backup.NewManager(cfg.Storage.BackupPath, store, logger)

	if *history {
		records, err := manager.History()
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
		if format == cli.OutputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(records)
			return
		}
		for _, r := range records {
			fmt.Printf("%s  %s  restored %d note(s), %d failed\n",
				r.RestoredAt.Format(time.RFC3339), r.BackupID, r.Restored, r.Failed)
		}
		return
	}

	entries, err := manager.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(entries)
		return
	}
	for _, e := range entries {
		desc := e.Description
		if desc == "" {
			desc = e.Trigger
		}
		fmt.Printf("%s  %s  %d note(s), +%d links  %s\n",
			e.CreatedAt.Format(time.RFC3339), e.ID, e.DocumentCount, e.LinksAdded, desc)
	}
}

func runRestore() {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = restore directly; stop the server first)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: backlinker restore [flags] <backup-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	if *serverURL != "" {
		var result backup.RestoreResult
		if err := postJSON(*serverURL+"/api/v1/restore/"+id, nil, &result); err != nil {
			fmt.Fprintf(os.Stderr, "Restore failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Restored %d note(s)\n", result.Restored)
		for _, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := utils.NewLogger(cfg.Debug)
	defer logger.Sync()
	store := corpus.NewFSStore(cfg.Vault.Root, cfg.Vault.Extensions)
	manager := backup.NewManager(cfg.Storage.BackupPath, store, logger)
	result, err := manager.Restore(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Restored %d note(s)\n", result.Restored)
	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8490", "server URL (empty = direct index access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, cfg, logger := mustInitialize(*configPath)
		defer components.Close()
		defer logger.Sync()
		mustBuild(components)

		status = map[string]interface{}{
			"documents": components.Corpus.Len(),
			"version":   components.Corpus.Version(),
		}
		if count, err := components.Keywords.DocCount(); err == nil {
			status["keyword_index_documents"] = count
		}
		if diskBytes, err := storage.DiskUsageBytes(
			cfg.Storage.DatabasePath,
			cfg.Storage.BleveIndexPath,
			cfg.Storage.EmbeddingCachePath,
		); err == nil {
			status["disk_usage_bytes"] = diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, key := range []string{"documents", "keyword_index_documents", "version", "disk_usage_bytes"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-24s %v\n", key+":", v)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func postJSON(url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services for direct (serverless) commands.
type Components struct {
	Store        *corpus.FSStore
	Corpus       *corpus.Corpus
	Lexical      *lexical.Index
	Semantic     *semantic.Engine
	Embedder     *embedding.Engine
	Vectors      *embedding.Store
	Storage      storage.Storage
	Keywords     keyword.KeywordIndex
	Indexer      *indexer.Indexer
	Scorer       *scoring.Scorer
	Matcher      *matcher.Matcher
	Backups      *backup.Manager
	Orchestrator *batch.Orchestrator
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func mustInitialize(configPath string) (*Components, *config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, cfg, logger
}

func mustBuild(components *Components) {
	if _, err := components.Indexer.Build(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store := corpus.NewFSStore(cfg.Vault.Root, cfg.Vault.Extensions)
	c := corpus.New("")
	lex := lexical.NewIndex(c)
	sem := semantic.NewEngine(semantic.Options{
		NGramWeight:   cfg.Semantic.NGramWeight,
		ContextWeight: cfg.Semantic.ContextWeight,
		MinNGramCount: cfg.Semantic.MinWordCount,
		Context: semantic.ContextOptions{
			WindowRadius: cfg.Semantic.WindowRadius,
			MinWordCount: cfg.Semantic.MinWordCount,
		},
	})

	persist, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	keywords, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = persist.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	var embedder *embedding.Engine
	var vectors *embedding.Store
	if cfg.Embedding.Enabled {
		embedder = embedding.NewEngine(embedding.EngineConfig{
			ModelPath:  cfg.Embedding.ModelPath,
			ModelURL:   cfg.Embedding.ModelURL,
			Dimensions: cfg.Embedding.Dimensions,
			MaxTokens:  cfg.Embedding.MaxTokens,
			CacheSize:  cfg.Embedding.CacheSize,
			BatchSize:  cfg.Embedding.BatchSize,
		}, embedding.WithEngineLogger(logger))
		if err := embedder.Load(context.Background()); err != nil {
			// The engine degrades to the statistical signals; no neural
			// candidates and no context verification.
			logger.Warn("embedding model unavailable", zap.Error(err))
		}
		vectors = embedding.NewStore(
			cfg.Storage.EmbeddingCachePath,
			filepath.Base(cfg.Embedding.ModelPath),
			cfg.Embedding.Dimensions,
			embedding.WithStoreLogger(logger),
		)
		if err := vectors.Load(); err != nil {
			logger.Warn("embedding cache load failed", zap.Error(err))
		}
	}

	idxOpts := []indexer.IndexerOption{}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(indexer.Config{
		Store:    store,
		Corpus:   c,
		Lexical:  lex,
		Semantic: sem,
		Embedder: embedder,
		Vectors:  vectors,
		Persist:  persist,
		Keywords: keywords,
	}, idxOpts...)

	scorerOpts := []scoring.ScorerOption{
		scoring.WithSemantic(&scoring.SemanticAdapter{Engine: sem, Corpus: c}),
		scoring.WithWeights(scoring.Weights{
			Lexical:  cfg.Scoring.LexicalWeight,
			Semantic: cfg.Scoring.SemanticWeight,
		}),
	}
	if debug {
		scorerOpts = append(scorerOpts, scoring.WithScorerLogger(logger))
	}
	if vectors != nil {
		scorerOpts = append(scorerOpts, scoring.WithNeural(&scoring.NeuralAdapter{Store: vectors, Corpus: c}))
	}
	scorer := scoring.NewScorer(lex, scorerOpts...)

	matcherOpts := matcher.Options{
		EnableEntityTier:    cfg.Matcher.EntityTierEnabled(),
		EnablePhraseTier:    cfg.Matcher.PhraseTierEnabled(),
		EnableKeywordTier:   cfg.Matcher.KeywordTierEnabled(),
		SpecificityRatio:    cfg.Matcher.SpecificityRatio,
		FrequencyCeiling:    cfg.Matcher.FrequencyCeiling,
		VerifyMinSimilarity: cfg.Matcher.VerifyMinSimilarity,
		VerifyPhrases:       cfg.Matcher.VerifyPhrasesEnabled(),
		MaxPerSource:        cfg.Matcher.MaxAnchorsPerNote,
	}
	if len(cfg.Matcher.DomainStopwords) > 0 {
		stop := make(map[string]bool, len(cfg.Matcher.DomainStopwords))
		for _, w := range cfg.Matcher.DomainStopwords {
			stop[strings.ToLower(w)] = true
		}
		matcherOpts.Stopwords = stop
	}
	mOpts := []matcher.MatcherOption{}
	if embedder != nil && vectors != nil {
		mOpts = append(mOpts, matcher.WithVerifier(matcher.NewEmbeddingVerifier(embedder, vectors, logger)))
	}
	if debug {
		mOpts = append(mOpts, matcher.WithMatcherLogger(logger))
	}
	m := matcher.New(c, matcherOpts, mOpts...)

	backups := backup.NewManager(cfg.Storage.BackupPath, store, logger)
	orch := batch.New(batch.Config{
		Corpus:   c,
		Store:    store,
		Scorer:   scorer,
		Matcher:  m,
		Replacer: replacer.New(logger),
		Backups:  backups,
		Thresholds: scoring.Thresholds{
			Lexical:  cfg.Scoring.LexicalThreshold,
			Semantic: cfg.Scoring.SemanticThreshold,
			Combined: cfg.Scoring.CombinedThreshold,
		},
		MaxResults: cfg.Scoring.MaxResults,
		Logger:     logger,
	})

	return &Components{
		Store:        store,
		Corpus:       c,
		Lexical:      lex,
		Semantic:     sem,
		Embedder:     embedder,
		Vectors:      vectors,
		Storage:      persist,
		Keywords:     keywords,
		Indexer:      idx,
		Scorer:       scorer,
		Matcher:      m,
		Backups:      backups,
		Orchestrator: orch,
	}, nil
}

func printUsage() {
	fmt.Println(`backlinker - automatic wiki-link suggestions for a note vault

Usage:
  backlinker server [flags]              Start the HTTP server
  backlinker analyze [flags]             Build or refresh the corpus index
  backlinker similar [flags] <note-id>   Show documents similar to a note
  backlinker suggest [flags] <note-id>   Show link suggestions for a note
  backlinker link [flags] [note-id ...]  Run a linking pass (all notes when no ids given)
  backlinker search [flags] <query>      Full-text search across notes
  backlinker backups [flags]             List backups (or restore history with --history)
  backlinker restore [flags] <backup-id> Restore notes from a backup
  backlinker status [flags]              Show corpus and index status
  backlinker version                     Show version
  backlinker help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/backlinker/config.yaml,
                     falling back to ./config.yaml when present)
  --server string    Server URL; empty means direct index access
  --output string    Output format: text or json (default: text)

Link Flags:
  --dry-run              Report suggestions without modifying any note
  --description string   Description recorded on the pre-link backup

Examples:
  backlinker server
  backlinker analyze
  backlinker suggest topics/raft.md
  backlinker link --dry-run
  backlinker link --description "weekly pass"
  backlinker search quorum intersection
  backlinker backups
  backlinker restore 2f1c...`)
}
