// API key resolution for the configured providers.
package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// Provider identifies a credentialed backend provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
)

// envVars lists the environment variables consulted per provider, in
// order.
var envVars = map[Provider][]string{
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ProviderOpenAI:    {"OPENAI_API_KEY"},
}

// GetAPIKey returns the provider's API key, preferring environment
// variables over the config file.
func GetAPIKey(cfg *Config, p Provider) (string, error) {
	for _, env := range envVars[p] {
		if key := os.Getenv(env); key != "" {
			return key, nil
		}
	}

	var configured string
	if cfg != nil {
		switch p {
		case ProviderAnthropic:
			configured = cfg.Anthropic.APIKey
		case ProviderGemini:
			configured = cfg.Gemini.APIKey
		case ProviderOpenAI:
			configured = cfg.OpenAI.APIKey
		}
	}
	key := os.ExpandEnv(configured)
	if key != "" && !strings.HasPrefix(key, "${") {
		return key, nil
	}
	return "", ErrNoAPIKey
}

// MaskAPIKey returns a masked version of an API key for display.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource reports where the provider's key would be read from.
func GetAPIKeySource(cfg *Config, p Provider) KeySource {
	for _, env := range envVars[p] {
		if os.Getenv(env) != "" {
			return KeySourceEnv
		}
	}
	if _, err := GetAPIKey(cfg, p); err == nil {
		return KeySourceConfig
	}
	return KeySourceNone
}
