// Package router maps classified tasks to available language-model
// backends with deterministic fallback.
package router

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/qazlegal/norma/pkg/models"
)

// ErrNoBackendAvailable is the only terminal routing error: no
// registered backend is currently available.
var ErrNoBackendAvailable = errors.New("no backend available")

// CostTier orders backends by relative cost and latency.
type CostTier string

const (
	CostLow    CostTier = "low"
	CostMedium CostTier = "medium"
	CostHigh   CostTier = "high"
)

// costRank maps tiers to a comparable rank; unknown tiers sort last.
func costRank(t CostTier) int {
	switch t {
	case CostLow:
		return 0
	case CostMedium:
		return 1
	case CostHigh:
		return 2
	default:
		return 3
	}
}

// Capability describes one backend's profile in the registry.
type Capability struct {
	// ID is the backend identifier used by the invocation layer.
	ID string
	// MaxContext is the context window in tokens.
	MaxContext int
	// SafeTokens is the input size this backend handles comfortably;
	// above it, large-document tasks are escalated to a bigger window.
	SafeTokens int
	// Cost is the relative cost/latency tier.
	Cost CostTier
	// Strengths lists declared capabilities ("reasoning",
	// "large_documents", "quick_response").
	Strengths []string
	// Priority orders fallback: lower values are tried first.
	Priority int
	// Available is the availability flag supplied by the
	// credential/config collaborator.
	Available bool
}

func (c Capability) hasStrength(s string) bool {
	for _, v := range c.Strengths {
		if v == s {
			return true
		}
	}
	return false
}

// Router holds the backend registry. It is an explicit injected object,
// not ambient state, so independently configured pipelines can coexist.
// Read-mostly; availability flags may flip mid-run.
type Router struct {
	mu        sync.RWMutex
	backends  map[string]*Capability
	order     []string // ids sorted by Priority, then id for determinism
	defaultID string
}

// New builds a router from a capability table and a default backend id.
func New(capabilities []Capability, defaultID string) (*Router, error) {
	if len(capabilities) == 0 {
		return nil, fmt.Errorf("router: empty capability table")
	}

	r := &Router{backends: make(map[string]*Capability, len(capabilities))}
	for i := range capabilities {
		c := capabilities[i]
		if c.ID == "" {
			return nil, fmt.Errorf("router: backend %d has empty id", i)
		}
		if _, dup := r.backends[c.ID]; dup {
			return nil, fmt.Errorf("router: duplicate backend id %q", c.ID)
		}
		r.backends[c.ID] = &c
		r.order = append(r.order, c.ID)
	}
	sort.SliceStable(r.order, func(i, j int) bool {
		a, b := r.backends[r.order[i]], r.backends[r.order[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	if _, ok := r.backends[defaultID]; !ok {
		return nil, fmt.Errorf("router: default backend %q not registered", defaultID)
	}
	r.defaultID = defaultID
	return r, nil
}

// SetAvailable flips a backend's availability flag. A backend going
// unavailable mid-run only affects routing of subsequent calls.
func (r *Router) SetAvailable(id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backends[id]
	if !ok {
		return fmt.Errorf("router: unknown backend %q", id)
	}
	if b.Available != available {
		log.Printf("[router] backend %s availability -> %v", id, available)
	}
	b.Available = available
	return nil
}

// Backends returns a snapshot of the registry in priority order.
func (r *Router) Backends() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Capability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.backends[id])
	}
	return out
}

// Select picks a backend for the profile and returns the profile with
// ChosenBackend and Rationale filled in. The rule is deterministic:
// largest context for oversized large-document tasks, deepest reasoning
// backend for reasoning, cheapest for quick, the configured default
// otherwise — each falling back in priority order to the next available
// backend. Only ErrNoBackendAvailable is terminal.
func (r *Router) Select(profile models.TaskProfile) (models.TaskProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	preferred, why := r.preferLocked(profile)

	if b := r.backends[preferred]; b != nil && b.Available {
		profile.ChosenBackend = preferred
		profile.Rationale = appendRationale(profile.Rationale, why)
		return profile, nil
	}

	// Fallback: next-highest-priority available backend.
	for _, id := range r.order {
		if id == preferred {
			continue
		}
		if r.backends[id].Available {
			profile.ChosenBackend = id
			profile.Rationale = appendRationale(profile.Rationale,
				fmt.Sprintf("%s; %s unavailable, fell back to %s", why, preferred, id))
			log.Printf("[router] %s unavailable, falling back to %s", preferred, id)
			return profile, nil
		}
	}

	return profile, ErrNoBackendAvailable
}

// preferLocked applies the category rules without regard to
// availability. Caller holds at least a read lock.
func (r *Router) preferLocked(profile models.TaskProfile) (id, why string) {
	switch profile.Category {
	case models.CategoryLargeDocument:
		def := r.backends[r.defaultID]
		if profile.EstimatedTokens > def.SafeTokens {
			id := r.largestContextLocked()
			return id, fmt.Sprintf("large document of ~%d tokens routed to largest context window",
				profile.EstimatedTokens)
		}
		// Fits the default backend comfortably; prefer strength match.
		if id := r.byStrengthLocked("large_documents"); id != "" {
			return id, "large document routed by declared strength"
		}
		return r.defaultID, "large document fits default backend"

	case models.CategoryReasoning:
		if id := r.byStrengthLocked("reasoning"); id != "" {
			return id, "reasoning task routed to deepest reasoning backend"
		}
		return r.defaultID, "reasoning task, no reasoning-capable backend registered"

	case models.CategoryQuick:
		return r.cheapestLocked(), "quick task routed to lowest cost backend"

	default:
		return r.defaultID, "default backend"
	}
}

// largestContextLocked returns the backend with the biggest context
// window, ties broken by priority order.
func (r *Router) largestContextLocked() string {
	best := ""
	for _, id := range r.order {
		if best == "" || r.backends[id].MaxContext > r.backends[best].MaxContext {
			best = id
		}
	}
	return best
}

// byStrengthLocked returns the first backend in priority order that
// declares the given strength.
func (r *Router) byStrengthLocked(strength string) string {
	for _, id := range r.order {
		if r.backends[id].hasStrength(strength) {
			return id
		}
	}
	return ""
}

// cheapestLocked returns the backend with the lowest cost tier, ties
// broken by priority order.
func (r *Router) cheapestLocked() string {
	best := ""
	for _, id := range r.order {
		if best == "" || costRank(r.backends[id].Cost) < costRank(r.backends[best].Cost) {
			best = id
		}
	}
	return best
}

func appendRationale(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
