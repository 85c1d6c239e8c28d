// Package config provides configuration loading and structs for the
// backlinker server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Vault     VaultConfig     `yaml:"vault"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Semantic  SemanticConfig  `yaml:"semantic"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SemanticConfig tunes the statistical semantic signal.
type SemanticConfig struct {
	NGramWeight   float64 `yaml:"ngram_weight"`
	ContextWeight float64 `yaml:"context_weight"`
	WindowRadius  int     `yaml:"window_radius"`
	MinWordCount  int     `yaml:"min_word_count"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// VaultConfig locates the note corpus.
type VaultConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
}

// StorageConfig holds paths for the database, indices, and backups.
type StorageConfig struct {
	DatabasePath       string `yaml:"database_path"`
	BleveIndexPath     string `yaml:"bleve_index_path"`
	EmbeddingCachePath string `yaml:"embedding_cache_path"`
	BackupPath         string `yaml:"backup_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ModelPath  string `yaml:"model_path"`
	ModelURL   string `yaml:"model_url"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// ScoringConfig holds similarity thresholds and signal weights.
type ScoringConfig struct {
	LexicalThreshold  float64 `yaml:"lexical_threshold"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	CombinedThreshold float64 `yaml:"combined_threshold"`
	LexicalWeight     float64 `yaml:"lexical_weight"`
	SemanticWeight    float64 `yaml:"semantic_weight"`
	MaxResults        int     `yaml:"max_results"`
}

// MatcherConfig holds anchor-matching policy. Preset selects a named tuning
// (strict, balanced, relaxed); explicit fields override the preset.
type MatcherConfig struct {
	Preset              string   `yaml:"preset"`
	EntityTier          *bool    `yaml:"entity_tier"`
	PhraseTier          *bool    `yaml:"phrase_tier"`
	KeywordTier         *bool    `yaml:"keyword_tier"`
	SpecificityRatio    float64  `yaml:"specificity_ratio"`
	// FrequencyCeiling is a percentage of vault documents, 0..100.
	FrequencyCeiling    float64  `yaml:"frequency_ceiling"`
	VerifyMinSimilarity float64  `yaml:"verify_min_similarity"`
	VerifyPhrases       *bool    `yaml:"verify_phrases"`
	MaxAnchorsPerNote   int      `yaml:"max_anchors_per_note"`
	DomainStopwords     []string `yaml:"domain_stopwords"`
}

// EntityTierEnabled returns the tier-2 toggle; defaults to true when unset.
func (m *MatcherConfig) EntityTierEnabled() bool { return m.EntityTier == nil || *m.EntityTier }

// PhraseTierEnabled returns the tier-3 toggle; defaults to true when unset.
func (m *MatcherConfig) PhraseTierEnabled() bool { return m.PhraseTier == nil || *m.PhraseTier }

// KeywordTierEnabled returns the tier-4 toggle; defaults to true when unset.
func (m *MatcherConfig) KeywordTierEnabled() bool { return m.KeywordTier == nil || *m.KeywordTier }

// VerifyPhrasesEnabled returns the tier-3 verification toggle; defaults to
// true when unset.
func (m *MatcherConfig) VerifyPhrasesEnabled() bool {
	return m.VerifyPhrases == nil || *m.VerifyPhrases
}

// WatchConfig holds vault watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyPreset(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Vault.Root = expandPath(cfg.Vault.Root, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.EmbeddingCachePath = expandPath(cfg.Storage.EmbeddingCachePath, configDir)
	cfg.Storage.BackupPath = expandPath(cfg.Storage.BackupPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
