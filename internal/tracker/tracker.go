// Package tracker provides the completeness checklist that guarantees
// no trackable fragment is silently skipped during analysis.
package tracker

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/qazlegal/norma/pkg/models"
)

// ErrUnknownFragment is returned by Mark for an id the tracker was not
// constructed with.
var ErrUnknownFragment = fmt.Errorf("unknown fragment id")

// Tracker records which fragments have been analyzed. Total is fixed at
// construction; marks are idempotent in effect and the completion
// percentage is monotonically non-decreasing within a run. Safe for
// concurrent use: the orchestrator marks from a worker pool.
type Tracker struct {
	mu        sync.Mutex
	entries   map[string]*models.ChecklistEntry
	order     []string // fragment ids in document order
	fragments map[string]models.Fragment
}

// New builds a tracker from a fragment sequence restricted to the given
// trackable types. With no types given, articles are tracked.
func New(fragments []models.Fragment, trackable ...models.FragmentType) *Tracker {
	if len(trackable) == 0 {
		trackable = []models.FragmentType{models.FragmentArticle}
	}
	want := make(map[models.FragmentType]bool, len(trackable))
	for _, ty := range trackable {
		want[ty] = true
	}

	t := &Tracker{
		entries:   make(map[string]*models.ChecklistEntry),
		fragments: make(map[string]models.Fragment),
	}
	for _, f := range fragments {
		if !want[f.Type] {
			continue
		}
		id := f.ID()
		if _, dup := t.entries[id]; dup {
			// Duplicate numbers stay a single checklist entry; the
			// segmenter has already warned about the defect.
			continue
		}
		t.entries[id] = &models.ChecklistEntry{FragmentID: id}
		t.order = append(t.order, id)
		t.fragments[id] = f
	}

	log.Printf("[tracker] checklist built: %d trackable fragments", len(t.order))
	return t
}

// Mark records that a fragment has been analyzed, storing the payload.
// A repeated mark overwrites the payload and returns duplicate=true;
// Analyzed never reverts to false. Marking an unknown id returns
// ErrUnknownFragment.
func (t *Tracker) Mark(fragmentID string, payload any) (duplicate bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[fragmentID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownFragment, fragmentID)
	}

	duplicate = entry.Analyzed
	entry.Analyzed = true
	entry.Payload = payload
	entry.MarkedAt = time.Now()

	if duplicate {
		log.Printf("[tracker] duplicate mark for %s (payload overwritten)", fragmentID)
	}
	return duplicate, nil
}

// IsComplete reports whether every trackable fragment has been marked.
func (t *Tracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.analyzedLocked() == len(t.order)
}

// Missing returns the ids of fragments not yet marked, in document order.
func (t *Tracker) Missing() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.missingLocked()
}

// MissingFragments returns the unmarked fragments themselves, in
// document order.
func (t *Tracker) MissingFragments() []models.Fragment {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []models.Fragment
	for _, id := range t.missingLocked() {
		out = append(out, t.fragments[id])
	}
	return out
}

// Entry returns a copy of the checklist entry for the given id.
func (t *Tracker) Entry(fragmentID string) (models.ChecklistEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[fragmentID]
	if !ok {
		return models.ChecklistEntry{}, false
	}
	return *entry, true
}

// Report computes the completeness report for the current state.
func (t *Tracker) Report() models.Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := len(t.order)
	analyzed := t.analyzedLocked()
	missing := t.missingLocked()

	pct := 1.0
	if total > 0 {
		pct = float64(analyzed) / float64(total)
	}

	return models.Report{
		Total:      total,
		Analyzed:   analyzed,
		MissingIDs: missing,
		Percentage: pct,
		IsComplete: analyzed == total,
	}
}

// ChecklistText renders the checklist as a text block for inclusion in
// analysis prompts, grouped by parent chapter.
func (t *Tracker) ChecklistText() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	b.WriteString("=== ОГЛАВЛЕНИЕ-ЧЕКЛИСТ ДЛЯ КОНТРОЛЯ ПОЛНОТЫ АНАЛИЗА ===\n")

	currentChapter := ""
	for _, id := range t.order {
		f := t.fragments[id]
		if f.ParentNumber != "" && f.ParentNumber != currentChapter {
			currentChapter = f.ParentNumber
			fmt.Fprintf(&b, "\nГлава %s:\n", currentChapter)
		}

		status := "⬜"
		if t.entries[id].Analyzed {
			status = "✅"
		}
		title := ""
		if f.Title != "" {
			title = ": " + f.Title
		}
		fmt.Fprintf(&b, "%s Статья %s%s\n", status, f.Number, title)
	}

	total := len(t.order)
	analyzed := t.analyzedLocked()
	pct := 100.0
	if total > 0 {
		pct = float64(analyzed) / float64(total) * 100
	}
	fmt.Fprintf(&b, "\nВсего статей: %d\nПроанализировано: %d\nПроцент завершения: %.1f%%\n", total, analyzed, pct)

	return b.String()
}

func (t *Tracker) analyzedLocked() int {
	n := 0
	for _, e := range t.entries {
		if e.Analyzed {
			n++
		}
	}
	return n
}

func (t *Tracker) missingLocked() []string {
	missing := []string{}
	for _, id := range t.order {
		if !t.entries[id].Analyzed {
			missing = append(missing, id)
		}
	}
	return missing
}
