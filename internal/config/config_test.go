package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
vault:
  root: /notes
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8490 {
		t.Errorf("Port = %d, want 8490", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("Dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Scoring.MaxResults != 10 {
		t.Errorf("MaxResults = %d, want 10", cfg.Scoring.MaxResults)
	}
	if got := cfg.Vault.Extensions; len(got) != 1 || got[0] != ".md" {
		t.Errorf("Extensions = %v, want [.md]", got)
	}
	// Empty preset resolves to balanced.
	if cfg.Scoring.LexicalThreshold != 0.25 {
		t.Errorf("LexicalThreshold = %v, want 0.25", cfg.Scoring.LexicalThreshold)
	}
	if cfg.Matcher.SpecificityRatio != 2.0 {
		t.Errorf("SpecificityRatio = %v, want 2.0", cfg.Matcher.SpecificityRatio)
	}
}

func TestLoadPresets(t *testing.T) {
	tests := []struct {
		preset           string
		wantLexical      float64
		wantRatio        float64
		wantCeiling      float64
		wantMaxAnchors   int
	}{
		{"strict", 0.35, 3.0, 3.0, 3},
		{"balanced", 0.25, 2.0, 5.0, 5},
		{"relaxed", 0.15, 1.5, 8.0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			path := writeConfig(t, "matcher:\n  preset: "+tt.preset+"\n")
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Scoring.LexicalThreshold != tt.wantLexical {
				t.Errorf("LexicalThreshold = %v, want %v", cfg.Scoring.LexicalThreshold, tt.wantLexical)
			}
			if cfg.Matcher.SpecificityRatio != tt.wantRatio {
				t.Errorf("SpecificityRatio = %v, want %v", cfg.Matcher.SpecificityRatio, tt.wantRatio)
			}
			if cfg.Matcher.FrequencyCeiling != tt.wantCeiling {
				t.Errorf("FrequencyCeiling = %v, want %v", cfg.Matcher.FrequencyCeiling, tt.wantCeiling)
			}
			if cfg.Matcher.MaxAnchorsPerNote != tt.wantMaxAnchors {
				t.Errorf("MaxAnchorsPerNote = %d, want %d", cfg.Matcher.MaxAnchorsPerNote, tt.wantMaxAnchors)
			}
		})
	}
}

func TestLoadUnknownPreset(t *testing.T) {
	path := writeConfig(t, "matcher:\n  preset: aggressive\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestExplicitValuesOverridePreset(t *testing.T) {
	path := writeConfig(t, `
matcher:
  preset: strict
  specificity_ratio: 1.1
scoring:
  lexical_threshold: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scoring.LexicalThreshold != 0.5 {
		t.Errorf("LexicalThreshold = %v, want 0.5", cfg.Scoring.LexicalThreshold)
	}
	if cfg.Matcher.SpecificityRatio != 1.1 {
		t.Errorf("SpecificityRatio = %v, want 1.1", cfg.Matcher.SpecificityRatio)
	}
	// Untouched fields still come from the preset.
	if cfg.Matcher.FrequencyCeiling != 3.0 {
		t.Errorf("FrequencyCeiling = %v, want 3.0", cfg.Matcher.FrequencyCeiling)
	}
}

func TestTierTogglesDefaultOn(t *testing.T) {
	path := writeConfig(t, `
matcher:
  keyword_tier: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Matcher.EntityTierEnabled() {
		t.Error("EntityTierEnabled() = false, want true when unset")
	}
	if !cfg.Matcher.PhraseTierEnabled() {
		t.Error("PhraseTierEnabled() = false, want true when unset")
	}
	if cfg.Matcher.KeywordTierEnabled() {
		t.Error("KeywordTierEnabled() = true, want false when disabled")
	}
	if !cfg.Matcher.VerifyPhrasesEnabled() {
		t.Error("VerifyPhrasesEnabled() = false, want true when unset")
	}
}

func TestExpandPathRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
vault:
  root: ./notes
storage:
  database_path: /var/lib/backlinker/index.db
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, "notes"); cfg.Vault.Root != want {
		t.Errorf("Vault.Root = %q, want %q", cfg.Vault.Root, want)
	}
	if cfg.Storage.DatabasePath != "/var/lib/backlinker/index.db" {
		t.Errorf("DatabasePath = %q, want absolute path preserved", cfg.Storage.DatabasePath)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{}
	cfg.Vault.Root = "/notes"
	cfg.Matcher.Preset = "relaxed"
	cfg.Scoring.MaxResults = 25
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Vault.Root != "/notes" {
		t.Errorf("Vault.Root = %q, want /notes", loaded.Vault.Root)
	}
	if loaded.Scoring.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", loaded.Scoring.MaxResults)
	}
	if loaded.Scoring.LexicalThreshold != 0.15 {
		t.Errorf("LexicalThreshold = %v, want relaxed preset 0.15", loaded.Scoring.LexicalThreshold)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
