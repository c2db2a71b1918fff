package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSearchDefaults(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("SEARCH_RELEVANCE_THRESHOLD", "")
	t.Setenv("SEARCH_RESULT_CAP", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.SearchTopK != 5 || cfg.SearchRelevanceThreshold != 0.70 || cfg.SearchResultCap != 20 {
		t.Fatalf("unexpected search defaults %+v", cfg)
	}
	if cfg.LLMProvider != LLMProviderOllama {
		t.Fatalf("expected default provider ollama, got %q", cfg.LLMProvider)
	}
	if cfg.NATSSubject != "records.changed" {
		t.Fatalf("unexpected nats subject %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "8")
	t.Setenv("SEARCH_RELEVANCE_THRESHOLD", "0.65")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("SEARCH_LOG_ENABLED", "false")
	t.Setenv("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", "50")
	t.Setenv("SEARCH_RESULT_CAP", "not-a-number")

	cfg := Load()
	if cfg.SearchTopK != 8 || cfg.SearchRelevanceThreshold != 0.65 || cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.SearchLogEnabled {
		t.Fatalf("expected search log disabled")
	}
	if cfg.SearchResultCap != 20 {
		t.Fatalf("expected invalid value to fall back to default, got %d", cfg.SearchResultCap)
	}
	if got := cfg.ResilienceConfig().RetryInitialBackoff; got != 50*time.Millisecond {
		t.Fatalf("unexpected backoff %s", got)
	}
}

func TestBuiltinProfiles(t *testing.T) {
	cfg := Config{SearchTopK: 5, SearchRelevanceThreshold: 0.7, SearchKeywordScore: 0.8, SearchResultCap: 20}
	profiles := cfg.BuiltinProfiles()

	assistant, ok := profiles.Resolve("assistant")
	if !ok || assistant.TopK != 3 || assistant.IncludeMetadata {
		t.Fatalf("unexpected assistant profile %+v", assistant)
	}
	def, ok := profiles.Resolve("")
	if !ok || def.TopK != 5 || !def.IncludeMetadata {
		t.Fatalf("unexpected default profile %+v", def)
	}
	if _, ok := profiles.Resolve("calls"); !ok {
		t.Fatalf("expected calls profile")
	}
}

func TestLoadProfilesOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
profiles:
  assistant:
    top_k: 4
  strict:
    threshold: 0.85
    include_metadata: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profiles file: %v", err)
	}

	cfg := Config{SearchTopK: 5, SearchRelevanceThreshold: 0.7, SearchKeywordScore: 0.8, SearchResultCap: 20, SearchProfilesFile: path}
	profiles, err := cfg.LoadProfiles()
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}

	assistant, _ := profiles.Resolve("assistant")
	if assistant.TopK != 4 || assistant.IncludeMetadata {
		t.Fatalf("expected assistant override to keep built-in metadata setting, got %+v", assistant)
	}
	strict, ok := profiles.Resolve("strict")
	if !ok || strict.Threshold != 0.85 || strict.TopK != 5 || strict.IncludeMetadata {
		t.Fatalf("unexpected strict profile %+v", strict)
	}
}

func TestLoadProfilesKeepsZeroThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
profiles:
  broad:
    threshold: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profiles file: %v", err)
	}

	cfg := Config{SearchTopK: 5, SearchRelevanceThreshold: 0.7, SearchKeywordScore: 0.8, SearchResultCap: 20, SearchProfilesFile: path}
	profiles, err := cfg.LoadProfiles()
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	broad, ok := profiles.Resolve("broad")
	if !ok || broad.Threshold != 0 || broad.KeywordScore != 0.8 {
		t.Fatalf("expected zero threshold to disable filtering, got %+v", broad)
	}
}

func TestLoadProfilesRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles: [1, 2"), 0o600); err != nil {
		t.Fatalf("write profiles file: %v", err)
	}
	cfg := Config{SearchProfilesFile: path}
	if _, err := cfg.LoadProfiles(); err == nil {
		t.Fatalf("expected parse error")
	}
}
