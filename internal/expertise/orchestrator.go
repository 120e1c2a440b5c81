package expertise

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/qazlegal/norma/internal/backend"
	"github.com/qazlegal/norma/internal/classify"
	"github.com/qazlegal/norma/internal/router"
	"github.com/qazlegal/norma/internal/tracker"
	"github.com/qazlegal/norma/pkg/models"
)

// DefaultWorkers bounds concurrent fragment analyses when no explicit
// pool size is configured.
const DefaultWorkers = 4

// Orchestrator fans independent expert stages out over the trackable
// fragments of a document. Fragment analyses run concurrently in a
// bounded pool; within one fragment, stages run in order but carry no
// data between them.
type Orchestrator struct {
	classifier *classify.Classifier
	router     *router.Router
	backends   backend.Registry
	workers    int
	opts       backend.Options
	logger     *RunLogger
}

// New builds an orchestrator. workers bounds the fragment pool; a
// non-positive value falls back to DefaultWorkers.
func New(classifier *classify.Classifier, rt *router.Router, backends backend.Registry, workers int) (*Orchestrator, error) {
	if classifier == nil || rt == nil {
		return nil, fmt.Errorf("expertise: classifier and router are required")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		classifier: classifier,
		router:     rt,
		backends:   backends,
		workers:    workers,
		opts:       backend.Options{Temperature: 0.1, MaxTokens: 4000},
	}, nil
}

// SetLogger attaches a run logger for detailed per-call tracing.
func (o *Orchestrator) SetLogger(l *RunLogger) { o.logger = l }

// SetOptions replaces the generation options applied to every analysis
// call.
func (o *Orchestrator) SetOptions(opts backend.Options) { o.opts = opts }

// StageSummary aggregates one stage's outcomes across all fragments.
type StageSummary struct {
	Stage      string `json:"stage"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
}

// Result is the outcome of one expertise run.
type Result struct {
	// Matrix holds one entry per (fragment, stage) pair that was
	// attempted, in fragment order then stage order.
	Matrix []models.FragmentResult
	// Report is the tracker's completeness report after the run.
	Report models.Report
	// AnalyzedWithErrors lists fragment ids, in document order, that
	// were fully processed but had at least one stage failure.
	// Distinct from Report.MissingIDs, which were never fully
	// attempted.
	AnalyzedWithErrors []string
	// StageSummaries aggregates outcomes per stage, in stage order.
	StageSummaries []StageSummary
	// Checklist is the document's checklist text after marking.
	Checklist string
	// Interrupted reports that the run was cancelled before every
	// fragment was attempted.
	Interrupted bool
}

// Findings returns the successful analyses, in matrix order.
func (r *Result) Findings() []models.FragmentResult {
	var out []models.FragmentResult
	for _, fr := range r.Matrix {
		if fr.Success {
			out = append(out, fr)
		}
	}
	return out
}

// Summary renders the caller-facing outcome line. It always separates
// a run that produced partial results from one that never ran.
func (r *Result) Summary() string {
	pct := r.Report.Percentage * 100
	switch {
	case r.Interrupted:
		return fmt.Sprintf("expertise interrupted: %d/%d fragments analyzed (%.0f%%), recorded results remain valid",
			r.Report.Analyzed, r.Report.Total, pct)
	case r.Report.IsComplete && len(r.AnalyzedWithErrors) == 0:
		return fmt.Sprintf("expertise complete: %d/%d fragments analyzed across %d stages",
			r.Report.Analyzed, r.Report.Total, len(r.StageSummaries))
	case r.Report.IsComplete:
		return fmt.Sprintf("expertise ran with partial results: %d/%d fragments analyzed, %d with stage errors",
			r.Report.Analyzed, r.Report.Total, len(r.AnalyzedWithErrors))
	default:
		return fmt.Sprintf("expertise ran with partial results: %d/%d fragments analyzed (%.0f%%), %d missing",
			r.Report.Analyzed, r.Report.Total, pct, len(r.Report.MissingIDs))
	}
}

// Run analyzes every trackable fragment with every non-skipped stage.
// Failures are isolated to their (fragment, stage) pair and never
// abort the run. A fragment is marked in the tracker only once every
// requested stage has recorded a success or failure for it; marks
// already recorded stay valid if ctx is cancelled mid-run.
func (o *Orchestrator) Run(ctx context.Context, fragments []models.Fragment, stages []Stage, skip []string) (*Result, error) {
	active := filterStages(stages, skip)
	if len(active) == 0 {
		return nil, fmt.Errorf("expertise: no stages to run (all %d skipped)", len(stages))
	}

	tr := tracker.New(fragments)
	checklist := tr.ChecklistText()
	targets := tr.MissingFragments()

	log.Printf("[expertise] starting run: %d fragments, %d stages, %d workers", len(targets), len(active), o.workers)
	o.logger.Log("run started: %d fragments, %d stages", len(targets), len(active))

	var (
		mu         sync.Mutex
		matrix     = make(map[string][]models.FragmentResult, len(targets))
		withErrors = make(map[string]bool)
	)

	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for _, frag := range targets {
		frag := frag
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			results := make([]models.FragmentResult, 0, len(active))
			complete := true
			failed := false

			for _, stage := range active {
				if ctx.Err() != nil {
					complete = false
					break
				}
				fr := o.analyzeFragment(ctx, stage, frag, checklist)
				if !fr.Success {
					failed = true
				}
				results = append(results, fr)
			}

			mu.Lock()
			matrix[frag.ID()] = results
			if complete && failed {
				withErrors[frag.ID()] = true
			}
			mu.Unlock()

			// Mark only when every stage recorded an outcome, so a
			// cancelled fragment stays "missing" rather than looking
			// analyzed.
			if complete {
				if _, err := tr.Mark(frag.ID(), results); err != nil {
					log.Printf("[expertise] mark %s: %v", frag.ID(), err)
				}
			}
			return nil
		})
	}
	g.Wait()

	res := &Result{
		Report:      tr.Report(),
		Checklist:   tr.ChecklistText(),
		Interrupted: ctx.Err() != nil,
	}

	// Flatten the matrix in fragment order, then stage order. The
	// analyzed-with-errors list inherits document order the same way
	// Missing does.
	for _, frag := range targets {
		res.Matrix = append(res.Matrix, matrix[frag.ID()]...)
		if withErrors[frag.ID()] {
			res.AnalyzedWithErrors = append(res.AnalyzedWithErrors, frag.ID())
		}
	}
	res.StageSummaries = summarize(active, res.Matrix)

	log.Printf("[expertise] %s", res.Summary())
	o.logger.Log("run finished: %s", res.Summary())

	return res, ctx.Err()
}

// analyzeFragment performs the one-shot analysis of a single
// (fragment, stage) pair. All failure modes collapse into the
// FragmentResult; nothing escapes to the run.
func (o *Orchestrator) analyzeFragment(ctx context.Context, stage Stage, frag models.Fragment, checklist string) models.FragmentResult {
	fr := models.FragmentResult{
		FragmentID:     frag.ID(),
		FragmentNumber: frag.Number,
		Stage:          stage.Name(),
	}

	prompt := stage.AnalysisPrompt(frag, checklist)
	profile := o.classifier.Profile(stage.CategoryHint(), prompt)

	routed, err := o.router.Select(profile)
	if err != nil {
		fr.Error = err.Error()
		o.logger.Log("[%s] %s: routing failed: %v", stage.Name(), frag.FullPath, err)
		return fr
	}
	fr.BackendID = routed.ChosenBackend

	inv, ok := o.backends.Get(routed.ChosenBackend)
	if !ok {
		fr.Error = fmt.Sprintf("backend %q is routed but not registered", routed.ChosenBackend)
		return fr
	}

	o.logger.Log("[%s] analyzing %s via %s", stage.Name(), frag.FullPath, routed.ChosenBackend)
	out, err := inv.Invoke(ctx, prompt, stage.SystemPrompt(), o.opts)
	if err != nil {
		fr.Error = err.Error()
		o.logger.Log("[%s] %s: %v", stage.Name(), frag.FullPath, err)
		return fr
	}

	fr.Success = true
	fr.Analysis = out
	return fr
}

// Summarize produces a condensed final report from the run's findings
// via the summarization-tier backend. It is a convenience for callers
// that want a narrative on top of the raw matrix.
func (o *Orchestrator) Summarize(ctx context.Context, res *Result) (string, error) {
	findings := res.Findings()
	if len(findings) == 0 {
		return "", fmt.Errorf("expertise: no findings to summarize")
	}

	var b strings.Builder
	b.WriteString("Результаты правовой экспертизы по этапам и статьям:\n\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "[%s] Статья %s:\n%s\n\n", f.Stage, f.FragmentNumber, f.Analysis)
	}
	b.WriteString("Сформируй сводный отчёт: ключевые замечания по каждому виду экспертизы, " +
		"перечень статей с выявленными рисками, общий вывод.")

	profile := o.classifier.Profile(models.CategoryGeneral, b.String())
	routed, err := o.router.Select(profile)
	if err != nil {
		return "", err
	}
	inv, ok := o.backends.Get(routed.ChosenBackend)
	if !ok {
		return "", fmt.Errorf("backend %q is routed but not registered", routed.ChosenBackend)
	}
	return inv.Invoke(ctx, b.String(), "Ты составляешь сводные отчёты правовой экспертизы НПА.", o.opts)
}

// filterStages drops stages named in the skip-list.
func filterStages(stages []Stage, skip []string) []Stage {
	if len(skip) == 0 {
		return stages
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var out []Stage
	for _, st := range stages {
		if !skipped[st.Name()] {
			out = append(out, st)
		}
	}
	return out
}

// summarize aggregates matrix entries per stage, in stage order.
func summarize(stages []Stage, matrix []models.FragmentResult) []StageSummary {
	byName := make(map[string]*StageSummary, len(stages))
	out := make([]StageSummary, len(stages))
	for i, st := range stages {
		out[i] = StageSummary{Stage: st.Name()}
		byName[st.Name()] = &out[i]
	}
	for _, fr := range matrix {
		s, ok := byName[fr.Stage]
		if !ok {
			continue
		}
		s.Total++
		if fr.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return out
}
