// Package config handles configuration loading and management for norma.
// It supports XDG config paths, project-level overrides, and environment
// variables, and validates everything at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/qazlegal/norma/internal/classify"
	"github.com/qazlegal/norma/internal/router"
)

// Config holds all configuration for norma.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`

	// Backends is the router capability table.
	Backends []BackendConfig `mapstructure:"backends"`
	// DefaultBackend is the router's fallback backend id.
	DefaultBackend string `mapstructure:"default_backend"`

	Classifier classify.Config `mapstructure:"classifier"`
	Expertise  ExpertiseConfig `mapstructure:"expertise"`
	Pipeline   PipelineConfig  `mapstructure:"pipeline"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// BackendConfig is one row of the router capability table.
type BackendConfig struct {
	ID         string   `mapstructure:"id"`
	MaxContext int      `mapstructure:"max_context"`
	SafeTokens int      `mapstructure:"safe_tokens"`
	Cost       string   `mapstructure:"cost"`
	Strengths  []string `mapstructure:"strengths"`
	Priority   int      `mapstructure:"priority"`
	Available  bool     `mapstructure:"available"`
}

// Capability converts the config row into a router capability.
func (b BackendConfig) Capability() router.Capability {
	return router.Capability{
		ID:         b.ID,
		MaxContext: b.MaxContext,
		SafeTokens: b.SafeTokens,
		Cost:       router.CostTier(b.Cost),
		Strengths:  b.Strengths,
		Priority:   b.Priority,
		Available:  b.Available,
	}
}

// ExpertiseConfig configures the expert-analysis orchestrator.
type ExpertiseConfig struct {
	// Workers bounds the concurrent fragment pool.
	Workers int `mapstructure:"workers"`
	// Skip lists stage names excluded from the run.
	Skip []string `mapstructure:"skip"`
	// StagesFile optionally points at a YAML file overriding the
	// built-in expert stage set.
	StagesFile string `mapstructure:"stages_file"`
}

// PipelineConfig configures the sequential stage executor.
type PipelineConfig struct {
	// HistorySize bounds the retained run history.
	HistorySize int `mapstructure:"history_size"`
	// StagesFile optionally points at a YAML file with stage
	// descriptors replacing the built-in pipeline.
	StagesFile string `mapstructure:"stages_file"`
}

// Load loads configuration with the following precedence (highest to
// lowest): environment variables, project config (.norma.yaml in the
// current directory or a parent), user config
// (~/.config/norma/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	bindEnvKeys(v)

	return finalize(v)
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnvKeys(v)

	return finalize(v)
}

// finalize unmarshals, fills computed defaults, and validates.
func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Gemini.APIKey = os.ExpandEnv(cfg.Gemini.APIKey)
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)

	if len(cfg.Backends) == 0 {
		cfg.Backends = DefaultBackends()
	}
	if len(cfg.Classifier.DocumentKeywords) == 0 &&
		len(cfg.Classifier.ReasoningKeywords) == 0 &&
		len(cfg.Classifier.QuickKeywords) == 0 {
		def := classify.DefaultConfig()
		cfg.Classifier.DocumentKeywords = def.DocumentKeywords
		cfg.Classifier.ReasoningKeywords = def.ReasoningKeywords
		cfg.Classifier.QuickKeywords = def.QuickKeywords
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency. Configuration errors are
// load-time failures, never call-time surprises.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("config: at least one backend is required")
	}
	ids := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.ID == "" {
			return fmt.Errorf("config: backends[%d] has empty id", i)
		}
		if ids[b.ID] {
			return fmt.Errorf("config: duplicate backend id %q", b.ID)
		}
		ids[b.ID] = true
		switch router.CostTier(b.Cost) {
		case router.CostLow, router.CostMedium, router.CostHigh:
		default:
			return fmt.Errorf("config: backend %q has unknown cost tier %q", b.ID, b.Cost)
		}
		if b.MaxContext <= 0 {
			return fmt.Errorf("config: backend %q needs a positive max_context", b.ID)
		}
	}
	if c.DefaultBackend == "" {
		return fmt.Errorf("config: default_backend is required")
	}
	if !ids[c.DefaultBackend] {
		return fmt.Errorf("config: default_backend %q is not in the backends table", c.DefaultBackend)
	}
	if c.Classifier.LargeDocumentTokens <= 0 {
		return fmt.Errorf("config: classifier.large_document_tokens must be positive")
	}
	if c.Expertise.Workers < 0 {
		return fmt.Errorf("config: expertise.workers must not be negative")
	}
	if c.Pipeline.HistorySize < 0 {
		return fmt.Errorf("config: pipeline.history_size must not be negative")
	}
	return nil
}

// Capabilities converts the backend table for the router.
func (c *Config) Capabilities() []router.Capability {
	out := make([]router.Capability, len(c.Backends))
	for i, b := range c.Backends {
		out[i] = b.Capability()
	}
	return out
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("gemini.api_key", cfg.Gemini.APIKey)
	v.Set("gemini.model", cfg.Gemini.Model)
	v.Set("openai.api_key", cfg.OpenAI.APIKey)
	v.Set("openai.model", cfg.OpenAI.Model)
	v.Set("default_backend", cfg.DefaultBackend)
	v.Set("classifier.large_document_tokens", cfg.Classifier.LargeDocumentTokens)
	v.Set("classifier.quick_max_tokens", cfg.Classifier.QuickMaxTokens)
	v.Set("expertise.workers", cfg.Expertise.Workers)
	v.Set("pipeline.history_size", cfg.Pipeline.HistorySize)

	backends := make([]map[string]any, len(cfg.Backends))
	for i, b := range cfg.Backends {
		backends[i] = map[string]any{
			"id":          b.ID,
			"max_context": b.MaxContext,
			"safe_tokens": b.SafeTokens,
			"cost":        b.Cost,
			"strengths":   b.Strengths,
			"priority":    b.Priority,
			"available":   b.Available,
		}
	}
	v.Set("backends", backends)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// bindEnvKeys maps provider credentials to their conventional
// environment variables.
func bindEnvKeys(v *viper.Viper) {
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
}

// setDefaults configures built-in default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4.1")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("default_backend", "gpt-4.1")

	def := classify.DefaultConfig()
	v.SetDefault("classifier.large_document_tokens", def.LargeDocumentTokens)
	v.SetDefault("classifier.quick_max_tokens", def.QuickMaxTokens)

	v.SetDefault("expertise.workers", 4)
	v.SetDefault("pipeline.history_size", 10)
}

// DefaultBackends is the built-in capability table: a large-context
// tier for document processing, a reasoning tier for analysis, and a
// general tier for summarization and fallback.
func DefaultBackends() []BackendConfig {
	return []BackendConfig{
		{
			ID:         "gemini-2.5-flash",
			MaxContext: 1_048_576,
			SafeTokens: 900_000,
			Cost:       "low",
			Strengths:  []string{"large_documents", "quick_response"},
			Priority:   2,
			Available:  true,
		},
		{
			ID:         "claude-sonnet-4-5",
			MaxContext: 200_000,
			SafeTokens: 150_000,
			Cost:       "high",
			Strengths:  []string{"reasoning"},
			Priority:   1,
			Available:  true,
		},
		{
			ID:         "gpt-4.1",
			MaxContext: 1_000_000,
			SafeTokens: 120_000,
			Cost:       "medium",
			Strengths:  []string{"quick_response"},
			Priority:   0,
			Available:  true,
		},
	}
}

// Default returns a Config with built-in default values.
func Default() *Config {
	return &Config{
		Gemini:         GeminiConfig{Model: "gemini-2.5-flash"},
		OpenAI:         OpenAIConfig{Model: "gpt-4.1"},
		Backends:       DefaultBackends(),
		DefaultBackend: "gpt-4.1",
		Classifier:     classify.DefaultConfig(),
		Expertise:      ExpertiseConfig{Workers: 4},
		Pipeline:       PipelineConfig{HistorySize: 10},
	}
}

// getUserConfigDir returns the XDG config directory for norma.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "norma")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "norma")
	}
	return filepath.Join(home, ".config", "norma")
}

// findProjectConfig searches for .norma.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".norma.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
