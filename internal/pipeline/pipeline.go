// Package pipeline runs ordered stages of model work over a single
// input, feeding each stage's output into the next. Stages are
// classified and routed independently, so a pipeline can cross
// backends mid-run (large-context extraction, reasoning analysis,
// cheap final formatting).
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qazlegal/norma/internal/backend"
	"github.com/qazlegal/norma/internal/classify"
	"github.com/qazlegal/norma/internal/router"
	"github.com/qazlegal/norma/pkg/models"
)

// Executor runs a fixed sequence of stages. It is safe for concurrent
// use; each Execute call produces an independent run.
type Executor struct {
	name       string
	stages     []models.StageDescriptor
	classifier *classify.Classifier
	router     *router.Router
	backends   backend.Registry
	history    *History
	opts       backend.Options
}

// New builds an executor over the given stages. Every descriptor is
// validated up front; a bad stage is a construction error, never a
// mid-run surprise.
func New(name string, stages []models.StageDescriptor, classifier *classify.Classifier, rt *router.Router, backends backend.Registry, historySize int) (*Executor, error) {
	if name == "" {
		return nil, fmt.Errorf("pipeline name must not be empty")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline %q: at least one stage is required", name)
	}
	seen := make(map[string]bool, len(stages))
	for i, st := range stages {
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline %q: stage %d: %w", name, i, err)
		}
		if seen[st.Name] {
			return nil, fmt.Errorf("pipeline %q: duplicate stage name %q", name, st.Name)
		}
		seen[st.Name] = true
	}
	if classifier == nil || rt == nil {
		return nil, fmt.Errorf("pipeline %q: classifier and router are required", name)
	}
	return &Executor{
		name:       name,
		stages:     stages,
		classifier: classifier,
		router:     rt,
		backends:   backends,
		history:    NewHistory(historySize),
		opts:       backend.Options{Temperature: 0.1},
	}, nil
}

// SetOptions replaces the generation options applied to every stage
// invocation.
func (e *Executor) SetOptions(opts backend.Options) {
	e.opts = opts
}

// Name returns the pipeline name.
func (e *Executor) Name() string { return e.name }

// Stages returns a copy of the configured stage descriptors.
func (e *Executor) Stages() []models.StageDescriptor {
	out := make([]models.StageDescriptor, len(e.stages))
	copy(out, e.stages)
	return out
}

// History returns the executor's run history buffer.
func (e *Executor) History() *History { return e.history }

// Execute runs the stages strictly in order. Each stage's prompt is
// built from its template with {input} replaced by the previous
// stage's output (the initial input for stage 0) and {name}
// placeholders filled from vars. A stage failure aborts the run:
// the returned PipelineRun carries the records of every stage that
// ran, the 0-based index of the failing stage, and later stages are
// never attempted.
func (e *Executor) Execute(ctx context.Context, initialInput string, vars map[string]string) (models.PipelineRun, error) {
	run := models.PipelineRun{
		ID:          uuid.New().String(),
		FailedStage: -1,
		StartTime:   time.Now(),
	}
	log.Printf("[pipeline] %s: run %s starting (%d stages)", e.name, run.ID[:8], len(e.stages))

	input := initialInput
	var runErr error

	for i, stage := range e.stages {
		if err := ctx.Err(); err != nil {
			run.FailedStage = i
			runErr = fmt.Errorf("stage %q: %w", stage.Name, err)
			break
		}

		prompt := renderTemplate(stage.PromptTemplate, input, vars)
		profile := e.classifier.Profile(stage.CategoryHint, prompt)

		rec := models.ExecutionRecord{
			StageName: stage.Name,
			InputSize: len(input),
			StartTime: time.Now(),
		}

		output, backendID, err := e.invokeStage(ctx, prompt, profile)
		rec.BackendID = backendID
		rec.EndTime = time.Now()

		if err != nil {
			rec.ErrorDetail = err.Error()
			run.Records = append(run.Records, rec)
			run.FailedStage = i
			runErr = fmt.Errorf("stage %q: %w", stage.Name, err)
			log.Printf("[pipeline] %s: stage %d/%d (%s) failed: %v", e.name, i+1, len(e.stages), stage.Name, err)
			break
		}

		rec.Success = true
		rec.Output = output
		run.Records = append(run.Records, rec)
		input = output
		log.Printf("[pipeline] %s: stage %d/%d (%s) completed via %s (%d chars)", e.name, i+1, len(e.stages), stage.Name, backendID, len(output))
	}

	run.EndTime = time.Now()
	if runErr == nil {
		run.Success = true
		run.FinalOutput = input
	}
	e.history.Add(run)

	return run, runErr
}

// invokeStage routes the profile and performs the single backend call
// for one stage.
func (e *Executor) invokeStage(ctx context.Context, prompt string, profile models.TaskProfile) (output, backendID string, err error) {
	routed, err := e.router.Select(profile)
	if err != nil {
		return "", "", err
	}
	inv, ok := e.backends.Get(routed.ChosenBackend)
	if !ok {
		return "", routed.ChosenBackend, fmt.Errorf("backend %q is routed but not registered", routed.ChosenBackend)
	}
	out, err := inv.Invoke(ctx, prompt, "", e.opts)
	if err != nil {
		return "", routed.ChosenBackend, err
	}
	return out, routed.ChosenBackend, nil
}

// renderTemplate substitutes {input} and any {name} variables into the
// stage template. Placeholders without a matching variable are left
// untouched so the failure is visible in the prompt rather than
// silently erased.
func renderTemplate(template, input string, vars map[string]string) string {
	out := strings.ReplaceAll(template, "{input}", input)
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
