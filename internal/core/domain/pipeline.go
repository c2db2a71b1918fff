package domain

const DefaultProfile = "default"

// PipelineConfig holds the tunables of one search pipeline profile.
type PipelineConfig struct {
	Name            string  `json:"name" yaml:"name"`
	TopK            int     `json:"top_k" yaml:"top_k"`
	Threshold       float64 `json:"threshold" yaml:"threshold"`
	KeywordScore    float64 `json:"keyword_score" yaml:"keyword_score"`
	ResultCap       int     `json:"result_cap" yaml:"result_cap"`
	IncludeMetadata bool    `json:"include_metadata" yaml:"include_metadata"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Name:            DefaultProfile,
		TopK:            5,
		Threshold:       0.70,
		KeywordScore:    0.8,
		ResultCap:       20,
		IncludeMetadata: true,
	}
}

// Normalize fills missing or out-of-range values from the defaults. Threshold
// and KeywordScore accept any value in [0,1]; a zero threshold disables the
// relevance filter.
func (c PipelineConfig) Normalize() PipelineConfig {
	out := c
	def := DefaultPipelineConfig()

	if out.Name == "" {
		out.Name = def.Name
	}
	if out.TopK <= 0 {
		out.TopK = def.TopK
	}
	if !unitInterval(out.Threshold) {
		out.Threshold = def.Threshold
	}
	if !unitInterval(out.KeywordScore) {
		out.KeywordScore = def.KeywordScore
	}
	if out.ResultCap <= 0 {
		out.ResultCap = def.ResultCap
	}
	return out
}

// unitInterval reports whether v is in [0,1]. NaN is rejected.
func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// Profiles resolves pipeline configurations by name.
type Profiles map[string]PipelineConfig

func (p Profiles) Resolve(name string) (PipelineConfig, bool) {
	if name == "" {
		name = DefaultProfile
	}
	cfg, ok := p[name]
	if !ok {
		return PipelineConfig{}, false
	}
	cfg.Name = name
	return cfg.Normalize(), true
}
