package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/qazlegal/norma/internal/backend"
	"github.com/qazlegal/norma/internal/classify"
	"github.com/qazlegal/norma/internal/router"
	"github.com/qazlegal/norma/pkg/models"
)

// scriptedInvoker returns canned outputs per call and remembers the
// prompts it saw.
type scriptedInvoker struct {
	id      string
	outputs []string
	errs    []error
	prompts []string
}

func (s *scriptedInvoker) ID() string { return s.id }

func (s *scriptedInvoker) Invoke(_ context.Context, prompt, _ string, _ backend.Options) (string, error) {
	call := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if call < len(s.errs) && s.errs[call] != nil {
		return "", s.errs[call]
	}
	if call < len(s.outputs) {
		return s.outputs[call], nil
	}
	return fmt.Sprintf("output-%d", call), nil
}

func testRouter(t *testing.T) *router.Router {
	t.Helper()
	rt, err := router.New([]router.Capability{
		{
			ID:         "stub",
			MaxContext: 1_000_000,
			SafeTokens: 100_000,
			Cost:       router.CostLow,
			Strengths:  []string{"reasoning", "large_documents", "quick_response"},
			Available:  true,
		},
	}, "stub")
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	return rt
}

func testStages(n int) []models.StageDescriptor {
	stages := make([]models.StageDescriptor, n)
	for i := range stages {
		stages[i] = models.StageDescriptor{
			Name:           fmt.Sprintf("stage-%d", i+1),
			CategoryHint:   models.CategoryGeneral,
			PromptTemplate: fmt.Sprintf("stage %d: {input}", i+1),
		}
	}
	return stages
}

func newTestExecutor(t *testing.T, stages []models.StageDescriptor, inv backend.Invoker) *Executor {
	t.Helper()
	exec, err := New("test", stages, classify.New(classify.DefaultConfig()), testRouter(t), backend.Registry{"stub": inv}, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return exec
}

func TestExecuteSequential(t *testing.T) {
	inv := &scriptedInvoker{id: "stub", outputs: []string{"first", "second", "third"}}
	exec := newTestExecutor(t, testStages(3), inv)

	run, err := exec.Execute(context.Background(), "seed", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !run.Success || run.FailedStage != -1 {
		t.Errorf("run success=%v failedStage=%d, want success at -1", run.Success, run.FailedStage)
	}
	if len(run.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(run.Records))
	}
	if run.FinalOutput != "third" {
		t.Errorf("FinalOutput = %q, want %q", run.FinalOutput, "third")
	}
	if run.ID == "" {
		t.Error("run should be tagged with an id")
	}

	// Each stage consumes the previous stage's output.
	if !strings.Contains(inv.prompts[0], "seed") {
		t.Errorf("stage 1 prompt %q should contain the initial input", inv.prompts[0])
	}
	if !strings.Contains(inv.prompts[1], "first") {
		t.Errorf("stage 2 prompt %q should contain stage 1 output", inv.prompts[1])
	}
	if !strings.Contains(inv.prompts[2], "second") {
		t.Errorf("stage 3 prompt %q should contain stage 2 output", inv.prompts[2])
	}

	for i, rec := range run.Records {
		if !rec.Success {
			t.Errorf("record %d not successful", i)
		}
		if rec.BackendID != "stub" {
			t.Errorf("record %d backend = %q", i, rec.BackendID)
		}
	}
}

func TestExecuteFailFastAtSecondStage(t *testing.T) {
	inv := &scriptedInvoker{
		id:      "stub",
		outputs: []string{"first", "", ""},
		errs:    []error{nil, errors.New("provider exploded"), nil},
	}
	exec := newTestExecutor(t, testStages(3), inv)

	run, err := exec.Execute(context.Background(), "seed", nil)
	if err == nil {
		t.Fatal("Execute should fail when a stage fails")
	}
	if run.Success {
		t.Error("run should not report success")
	}
	if run.FailedStage != 1 {
		t.Errorf("FailedStage = %d, want 1", run.FailedStage)
	}

	successful := 0
	for _, rec := range run.Records {
		if rec.Success {
			successful++
		}
	}
	if successful != 1 {
		t.Errorf("got %d successful records, want 1", successful)
	}
	if len(run.Records) != 2 {
		t.Errorf("got %d records, want 2 (stage 3 must not run)", len(run.Records))
	}
	if len(inv.prompts) != 2 {
		t.Errorf("invoker called %d times, want 2", len(inv.prompts))
	}
	if run.FinalOutput != "" {
		t.Errorf("failed run FinalOutput = %q, want empty", run.FinalOutput)
	}
	if run.Records[1].ErrorDetail == "" {
		t.Error("failed record should carry error detail")
	}
}

func TestExecuteTemplateVariables(t *testing.T) {
	inv := &scriptedInvoker{id: "stub"}
	stages := []models.StageDescriptor{{
		Name:           "qa",
		CategoryHint:   models.CategoryGeneral,
		PromptTemplate: "Документ: {input}\nВопрос: {question}\nНеизвестно: {missing}",
	}}
	exec := newTestExecutor(t, stages, inv)

	if _, err := exec.Execute(context.Background(), "текст закона", map[string]string{"question": "что регулирует статья 5?"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	prompt := inv.prompts[0]
	if !strings.Contains(prompt, "текст закона") {
		t.Errorf("prompt missing input substitution: %q", prompt)
	}
	if !strings.Contains(prompt, "что регулирует статья 5?") {
		t.Errorf("prompt missing variable substitution: %q", prompt)
	}
	// Unresolved placeholders stay visible instead of vanishing.
	if !strings.Contains(prompt, "{missing}") {
		t.Errorf("unresolved placeholder should remain: %q", prompt)
	}
}

func TestExecuteRoutingFailure(t *testing.T) {
	inv := &scriptedInvoker{id: "stub"}
	exec := newTestExecutor(t, testStages(2), inv)
	if err := exec.router.SetAvailable("stub", false); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}

	run, err := exec.Execute(context.Background(), "seed", nil)
	if !errors.Is(err, router.ErrNoBackendAvailable) {
		t.Fatalf("err = %v, want ErrNoBackendAvailable", err)
	}
	if run.FailedStage != 0 {
		t.Errorf("FailedStage = %d, want 0", run.FailedStage)
	}
	if len(inv.prompts) != 0 {
		t.Errorf("no backend should have been invoked, got %d calls", len(inv.prompts))
	}
}

func TestExecuteContextCancelled(t *testing.T) {
	inv := &scriptedInvoker{id: "stub"}
	exec := newTestExecutor(t, testStages(2), inv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := exec.Execute(ctx, "seed", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if run.Success {
		t.Error("cancelled run should not report success")
	}
	if len(inv.prompts) != 0 {
		t.Errorf("cancelled run invoked backend %d times", len(inv.prompts))
	}
}

func TestNewValidation(t *testing.T) {
	classifier := classify.New(classify.DefaultConfig())
	rt := testRouter(t)
	reg := backend.Registry{"stub": &scriptedInvoker{id: "stub"}}

	tests := []struct {
		name   string
		stages []models.StageDescriptor
	}{
		{"no stages", nil},
		{"missing input placeholder", []models.StageDescriptor{{Name: "bad", PromptTemplate: "no placeholder"}}},
		{"duplicate stage names", []models.StageDescriptor{
			{Name: "same", PromptTemplate: "a {input}"},
			{Name: "same", PromptTemplate: "b {input}"},
		}},
		{"unknown category hint", []models.StageDescriptor{{Name: "bad", CategoryHint: "mystery", PromptTemplate: "{input}"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("p", tt.stages, classifier, rt, reg, 5); err == nil {
				t.Error("New should reject invalid configuration")
			}
		})
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(models.PipelineRun{ID: fmt.Sprintf("run-%d", i)})
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}

	recent := h.Recent(0)
	want := []string{"run-2", "run-3", "run-4"}
	for i, r := range recent {
		if r.ID != want[i] {
			t.Errorf("recent[%d] = %q, want %q", i, r.ID, want[i])
		}
	}

	limited := h.Recent(2)
	if len(limited) != 2 || limited[0].ID != "run-3" || limited[1].ID != "run-4" {
		t.Errorf("Recent(2) = %v", limited)
	}
}

func TestExecutorRecordsHistory(t *testing.T) {
	inv := &scriptedInvoker{id: "stub"}
	exec := newTestExecutor(t, testStages(1), inv)

	first, _ := exec.Execute(context.Background(), "a", nil)
	second, _ := exec.Execute(context.Background(), "b", nil)

	if first.ID == second.ID {
		t.Error("runs should have distinct ids")
	}
	runs := exec.History().Recent(0)
	if len(runs) != 2 {
		t.Fatalf("history holds %d runs, want 2", len(runs))
	}
	if runs[0].ID != first.ID || runs[1].ID != second.ID {
		t.Error("history should retain runs in execution order")
	}
}

func TestPresetStages(t *testing.T) {
	for _, preset := range [][]models.StageDescriptor{LegalAnalysisStages(), DocumentQAStages()} {
		if len(preset) != 3 {
			t.Fatalf("preset has %d stages, want 3", len(preset))
		}
		for _, st := range preset {
			if err := st.Validate(); err != nil {
				t.Errorf("preset stage %q invalid: %v", st.Name, err)
			}
		}
	}
}
