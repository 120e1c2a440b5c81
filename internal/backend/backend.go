// Package backend provides the per-provider invocation layer: one
// Invoker per registered language-model backend, with a common error
// taxonomy so callers can attribute failures to the specific call site.
package backend

import "context"

// Options carries per-call generation parameters.
type Options struct {
	// Temperature controls output randomness; zero means the
	// provider default for deterministic analysis (0.0-0.1).
	Temperature float64
	// MaxTokens caps the generated output length; zero means the
	// client's configured default.
	MaxTokens int
}

// Invoker is one registered backend. Invoke performs a single
// generation call; it is the only suspending operation in the core.
type Invoker interface {
	// ID returns the backend id used by the router registry.
	ID() string
	// Invoke sends the prompt with an optional system instruction and
	// returns the generated text. Failures are ErrAuthentication,
	// ErrRateLimit, or an opaque *ProviderError.
	Invoke(ctx context.Context, prompt, system string, opts Options) (string, error)
}

// Registry maps backend ids to invokers.
type Registry map[string]Invoker

// Get returns the invoker for the id, or false if none is registered.
func (r Registry) Get(id string) (Invoker, bool) {
	inv, ok := r[id]
	return inv, ok
}
