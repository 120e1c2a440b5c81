package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/qazlegal/norma/internal/backend"
	"github.com/qazlegal/norma/internal/classify"
	"github.com/qazlegal/norma/internal/config"
	"github.com/qazlegal/norma/internal/expertise"
	"github.com/qazlegal/norma/internal/router"
)

// engine bundles the wired analysis core for a command invocation.
type engine struct {
	cfg        *config.Config
	classifier *classify.Classifier
	router     *router.Router
	backends   backend.Registry
}

// buildEngine loads configuration and constructs the classifier,
// router, and backend registry. Backends whose provider has no
// credentials are registered as unavailable instead of failing the
// whole command, so a single-key setup still works.
func buildEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildEngineFromConfig(cfg)
}

func buildEngineFromConfig(cfg *config.Config) (*engine, error) {
	registry := backend.Registry{}
	caps := cfg.Capabilities()

	for i := range caps {
		row := &caps[i]
		if !row.Available {
			continue
		}
		inv, err := buildInvoker(cfg, row.ID)
		if err != nil {
			// No credentials for this provider: keep the capability
			// row but take it out of rotation.
			row.Available = false
			continue
		}
		registry[row.ID] = inv
	}

	rt, err := router.New(caps, cfg.DefaultBackend)
	if err != nil {
		return nil, err
	}

	return &engine{
		cfg:        cfg,
		classifier: classify.New(cfg.Classifier),
		router:     rt,
		backends:   registry,
	}, nil
}

// buildInvoker constructs the provider client for a backend id. The id
// prefix selects the provider: claude-* is Anthropic, gemini-* is
// Google, everything else goes to the OpenAI-compatible endpoint.
func buildInvoker(cfg *config.Config, id string) (backend.Invoker, error) {
	switch {
	case strings.HasPrefix(id, "claude"):
		key, err := config.GetAPIKey(cfg, config.ProviderAnthropic)
		if err != nil && !cfg.Anthropic.UseBedrock {
			return nil, fmt.Errorf("backend %s: %w", id, err)
		}
		return backend.NewClaudeClient(backend.ClaudeConfig{
			BackendID:     id,
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        key,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
		})
	case strings.HasPrefix(id, "gemini"):
		key, err := config.GetAPIKey(cfg, config.ProviderGemini)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", id, err)
		}
		return backend.NewGeminiClient(context.Background(), backend.GeminiConfig{
			BackendID: id,
			Model:     cfg.Gemini.Model,
			APIKey:    key,
		})
	default:
		key, err := config.GetAPIKey(cfg, config.ProviderOpenAI)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", id, err)
		}
		return backend.NewOpenAIClient(backend.OpenAIConfig{
			BackendID: id,
			Model:     cfg.OpenAI.Model,
			APIKey:    key,
			BaseURL:   cfg.OpenAI.BaseURL,
		})
	}
}

// applyAvailability pushes backend availability flags from a reloaded
// config into the live router, so an operator can take a backend out
// of rotation mid-run by editing the config file. A backend whose
// client could not be built (no credentials) never comes back into
// rotation on a reload.
func (e *engine) applyAvailability(cfg *config.Config) {
	for _, b := range cfg.Backends {
		if b.Available {
			if _, ok := e.backends[b.ID]; !ok {
				continue
			}
		}
		if err := e.router.SetAvailable(b.ID, b.Available); err != nil {
			log.Printf("[engine] availability update for %s skipped: %v", b.ID, err)
		}
	}
}

// watchAvailability watches the active config file for the rest of the
// run, forwarding availability changes to the router. Returns nil when
// no config file is in use.
func (e *engine) watchAvailability() (*config.Watcher, error) {
	path := activeConfigPath()
	if path == "" {
		return nil, nil
	}
	return config.Watch(path, e.applyAvailability)
}

// activeConfigPath returns the config file governing this run: the
// project override when present, else the user config if it exists.
func activeConfigPath() string {
	if p := config.GetProjectConfigPath(); p != "" {
		return p
	}
	if p := config.GetUserConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// newOrchestrator wires the expertise orchestrator from the engine.
func (e *engine) newOrchestrator() (*expertise.Orchestrator, error) {
	return expertise.New(e.classifier, e.router, e.backends, e.cfg.Expertise.Workers)
}
