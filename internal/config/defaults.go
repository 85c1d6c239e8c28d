package config

import "fmt"

// preset is a named tuning for the scoring and matching policy.
type preset struct {
	lexicalThreshold  float64
	semanticThreshold float64
	combinedThreshold float64
	specificityRatio  float64
	frequencyCeiling  float64
	maxAnchorsPerNote int
}

var presets = map[string]preset{
	"strict": {
		lexicalThreshold:  0.35,
		semanticThreshold: 0.30,
		combinedThreshold: 0.30,
		specificityRatio:  3.0,
		frequencyCeiling:  3.0,
		maxAnchorsPerNote: 3,
	},
	"balanced": {
		lexicalThreshold:  0.25,
		semanticThreshold: 0.20,
		combinedThreshold: 0.20,
		specificityRatio:  2.0,
		frequencyCeiling:  5.0,
		maxAnchorsPerNote: 5,
	},
	"relaxed": {
		lexicalThreshold:  0.15,
		semanticThreshold: 0.12,
		combinedThreshold: 0.12,
		specificityRatio:  1.5,
		frequencyCeiling:  8.0,
		maxAnchorsPerNote: 8,
	},
}

// ApplyPreset fills zero-valued scoring and matcher fields from the named
// preset. Explicit values in the config file always win. An unknown preset
// name is an error; an empty name selects "balanced".
func ApplyPreset(cfg *Config) error {
	name := cfg.Matcher.Preset
	if name == "" {
		name = "balanced"
	}
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown matcher preset %q", name)
	}

	if cfg.Scoring.LexicalThreshold == 0 {
		cfg.Scoring.LexicalThreshold = p.lexicalThreshold
	}
	if cfg.Scoring.SemanticThreshold == 0 {
		cfg.Scoring.SemanticThreshold = p.semanticThreshold
	}
	if cfg.Scoring.CombinedThreshold == 0 {
		cfg.Scoring.CombinedThreshold = p.combinedThreshold
	}
	if cfg.Matcher.SpecificityRatio == 0 {
		cfg.Matcher.SpecificityRatio = p.specificityRatio
	}
	if cfg.Matcher.FrequencyCeiling == 0 {
		cfg.Matcher.FrequencyCeiling = p.frequencyCeiling
	}
	if cfg.Matcher.MaxAnchorsPerNote == 0 {
		cfg.Matcher.MaxAnchorsPerNote = p.maxAnchorsPerNote
	}
	return nil
}

// ApplyDefaults fills in default values for any unset (zero-valued) fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8490
	}

	if len(cfg.Vault.Extensions) == 0 {
		cfg.Vault.Extensions = []string{".md"}
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".backlinker/index.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = ".backlinker/keyword.bleve"
	}
	if cfg.Storage.EmbeddingCachePath == "" {
		cfg.Storage.EmbeddingCachePath = ".backlinker/embeddings"
	}
	if cfg.Storage.BackupPath == "" {
		cfg.Storage.BackupPath = ".backlinker/backups"
	}

	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 16
	}

	if cfg.Scoring.LexicalWeight == 0 {
		cfg.Scoring.LexicalWeight = 1.0
	}
	if cfg.Scoring.SemanticWeight == 0 {
		cfg.Scoring.SemanticWeight = 1.0
	}
	if cfg.Scoring.MaxResults == 0 {
		cfg.Scoring.MaxResults = 10
	}

	if cfg.Matcher.VerifyMinSimilarity == 0 {
		cfg.Matcher.VerifyMinSimilarity = 0.5
	}

	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}
