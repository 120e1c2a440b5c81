package pipeline

import (
	"sync"

	"github.com/qazlegal/norma/pkg/models"
)

// DefaultHistorySize is the number of runs kept when no explicit
// capacity is configured.
const DefaultHistorySize = 10

// History is a bounded buffer of recent pipeline runs. Once full, the
// oldest run is evicted on each Add. Nothing is persisted.
type History struct {
	mu   sync.Mutex
	runs []models.PipelineRun
	cap  int
}

// NewHistory creates a history holding at most size runs. A
// non-positive size falls back to DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{cap: size}
}

// Add records a completed run, evicting the oldest when full.
func (h *History) Add(run models.PipelineRun) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	if len(h.runs) > h.cap {
		h.runs = h.runs[len(h.runs)-h.cap:]
	}
}

// Recent returns up to limit of the most recent runs, oldest first.
// A non-positive limit returns everything retained.
func (h *History) Recent(limit int) []models.PipelineRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.PipelineRun, n)
	copy(out, h.runs[len(h.runs)-n:])
	return out
}

// Len returns the number of retained runs.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}
