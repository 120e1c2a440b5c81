package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qazlegal/norma/internal/config"
	"github.com/qazlegal/norma/internal/router"
)

// newTestEngine builds an engine where only the OpenAI-compatible
// backend has credentials.
func newTestEngine(t *testing.T) *engine {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	eng, err := buildEngineFromConfig(config.Default())
	if err != nil {
		t.Fatalf("buildEngineFromConfig: %v", err)
	}
	return eng
}

func capByID(t *testing.T, rt *router.Router, id string) router.Capability {
	t.Helper()
	for _, c := range rt.Backends() {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("backend %s not registered", id)
	return router.Capability{}
}

func TestApplyAvailability(t *testing.T) {
	eng := newTestEngine(t)

	if !capByID(t, eng.router, "gpt-4.1").Available {
		t.Fatal("gpt-4.1 should start available")
	}

	cfg := config.Default()
	for i := range cfg.Backends {
		if cfg.Backends[i].ID == "gpt-4.1" {
			cfg.Backends[i].Available = false
		}
	}
	eng.applyAvailability(cfg)
	if capByID(t, eng.router, "gpt-4.1").Available {
		t.Error("gpt-4.1 should be out of rotation after the reload")
	}

	eng.applyAvailability(config.Default())
	if !capByID(t, eng.router, "gpt-4.1").Available {
		t.Error("gpt-4.1 should be back in rotation")
	}
}

func TestApplyAvailabilityKeepsCredentiallessOut(t *testing.T) {
	eng := newTestEngine(t)

	if capByID(t, eng.router, "claude-sonnet-4-5").Available {
		t.Fatal("claude backend should be unavailable without credentials")
	}

	// The default config says available, but there is no client to
	// invoke, so the reload must not bring it back.
	eng.applyAvailability(config.Default())
	if capByID(t, eng.router, "claude-sonnet-4-5").Available {
		t.Error("reload must not re-enable a backend with no client")
	}
}

func TestWatchAvailabilityReachesRouter(t *testing.T) {
	eng := newTestEngine(t)

	dir := t.TempDir()
	path := filepath.Join(dir, ".norma.yaml")
	writeConfig := func(available bool) {
		t.Helper()
		data := `default_backend: gpt-4.1
backends:
  - id: gpt-4.1
    max_context: 1000000
    safe_tokens: 120000
    cost: medium
    strengths: [quick_response]
    priority: 0
    available: `
		if available {
			data += "true\n"
		} else {
			data += "false\n"
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	writeConfig(true)

	w, err := config.Watch(path, eng.applyAvailability)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	writeConfig(false)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !capByID(t, eng.router, "gpt-4.1").Available {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("availability change never reached the router")
}
