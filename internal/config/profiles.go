package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

// BuiltinProfiles returns the shipped pipeline profiles, with the default one
// taken from SEARCH_* settings.
func (c Config) BuiltinProfiles() domain.Profiles {
	def := domain.PipelineConfig{
		Name:            domain.DefaultProfile,
		TopK:            c.SearchTopK,
		Threshold:       c.SearchRelevanceThreshold,
		KeywordScore:    c.SearchKeywordScore,
		ResultCap:       c.SearchResultCap,
		IncludeMetadata: true,
	}.Normalize()

	assistant := def
	assistant.Name = "assistant"
	assistant.TopK = 3
	assistant.IncludeMetadata = false

	calls := def
	calls.Name = "calls"

	return domain.Profiles{
		def.Name:       def,
		assistant.Name: assistant,
		calls.Name:     calls,
	}
}

type profilesFile struct {
	Profiles map[string]yaml.Node `yaml:"profiles"`
}

// LoadProfiles returns the built-in profiles overlaid with SEARCH_PROFILES_FILE
// when it is set. Fields missing from a file entry keep their built-in value.
func (c Config) LoadProfiles() (domain.Profiles, error) {
	profiles := c.BuiltinProfiles()
	if c.SearchProfilesFile == "" {
		return profiles, nil
	}

	raw, err := os.ReadFile(c.SearchProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	return mergeProfiles(profiles, raw)
}

func mergeProfiles(base domain.Profiles, raw []byte) (domain.Profiles, error) {
	var file profilesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	out := make(domain.Profiles, len(base)+len(file.Profiles))
	for name, cfg := range base {
		out[name] = cfg
	}
	for name, node := range file.Profiles {
		cfg, ok := out[name]
		if !ok {
			cfg = out[domain.DefaultProfile]
		}
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode profile %q: %w", name, err)
		}
		cfg.Name = name
		out[name] = cfg.Normalize()
	}
	return out, nil
}
