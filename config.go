package pitchlens

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable consulted when no explicit API
// key override is supplied.
const EnvAPIKey = "OPENROUTER_API_KEY"

// Config holds all configuration for the pitch deck analyzer.
type Config struct {
	// LLM configures the remote analysis endpoint.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// AnalysisModel is the model used for text-only analysis.
	AnalysisModel string `json:"analysis_model" yaml:"analysis_model"`

	// VisionModel is the model used when images are part of the prompt.
	// May equal AnalysisModel for multimodal-capable models.
	VisionModel string `json:"vision_model" yaml:"vision_model"`

	// Scrape configures the web enricher.
	Scrape ScrapeConfig `json:"scrape" yaml:"scrape"`

	// MaxAnalysisImages caps how many extracted images are attached to
	// the analysis prompt. Zero means all images.
	MaxAnalysisImages int `json:"max_analysis_images" yaml:"max_analysis_images"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openrouter, openai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// ScrapeConfig configures the web enricher.
type ScrapeConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	Delay   time.Duration `json:"delay" yaml:"delay"`
}

// UnmarshalYAML accepts Go duration strings ("10s", "1500ms") for the
// timeout and delay fields. Fields absent from the document keep the
// values already present in the struct.
func (s *ScrapeConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timeout string `yaml:"timeout"`
		Delay   string `yaml:"delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("scrape.timeout: %w", err)
		}
		s.Timeout = d
	}
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("scrape.delay: %w", err)
		}
		s.Delay = d
	}
	return nil
}

// DefaultConfig returns a Config with the defaults the original tool
// shipped with: OpenRouter as the provider and one multimodal model for
// both text and vision prompts.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "openrouter",
		},
		AnalysisModel: "anthropic/claude-3.5-sonnet",
		VisionModel:   "anthropic/claude-3.5-sonnet",
		Scrape: ScrapeConfig{
			Timeout: 10 * time.Second,
			Delay:   time.Second,
		},
	}
}

// LoadConfig reads a YAML config file and overlays it on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ResolveAPIKey resolves the API credential from an explicit override or
// an environment lookup, in that order. The lookup is injected so the
// resolution is side-effect free and testable; callers normally pass
// os.LookupEnv. Returns ErrMissingAPIKey when neither source yields a key.
func ResolveAPIKey(override string, lookup func(string) (string, bool)) (string, error) {
	if override != "" {
		return override, nil
	}
	if lookup != nil {
		if key, ok := lookup(EnvAPIKey); ok && key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: set %s or pass an explicit key", ErrMissingAPIKey, EnvAPIKey)
}
