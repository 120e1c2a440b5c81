package models

import (
	"fmt"
	"strings"
)

// StageDescriptor configures one stage of a sequential pipeline.
// Descriptors are validated at construction time, not at call time.
type StageDescriptor struct {
	// Name identifies the stage in records and logs.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// CategoryHint biases classification for this stage. When set it
	// overrides the keyword-based category of the rendered prompt.
	CategoryHint TaskCategory `json:"category_hint,omitempty" yaml:"category_hint" mapstructure:"category_hint"`
	// PromptTemplate is the stage prompt. The {input} placeholder is
	// replaced with the accumulated prior output; additional {name}
	// placeholders are filled from the caller's template variables.
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template" mapstructure:"prompt_template"`
}

// Validate checks the descriptor for construction-time errors.
func (s StageDescriptor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("stage name must not be empty")
	}
	if strings.TrimSpace(s.PromptTemplate) == "" {
		return fmt.Errorf("stage %q: prompt template must not be empty", s.Name)
	}
	if !strings.Contains(s.PromptTemplate, "{input}") {
		return fmt.Errorf("stage %q: prompt template must contain {input}", s.Name)
	}
	if s.CategoryHint != "" && !s.CategoryHint.Valid() {
		return fmt.Errorf("stage %q: unknown category hint %q", s.Name, s.CategoryHint)
	}
	return nil
}

// FragmentResult is one cell of the (fragment, stage) analysis matrix
// produced by the expert analysis orchestrator.
type FragmentResult struct {
	// FragmentID is the tracking identifier of the analyzed fragment.
	FragmentID string `json:"fragment_id"`
	// FragmentNumber is the fragment's display number.
	FragmentNumber string `json:"fragment_number"`
	// Stage is the name of the analysis stage.
	Stage string `json:"stage"`
	// BackendID is the backend the analysis was routed to.
	BackendID string `json:"backend_id,omitempty"`
	// Analysis is the stage output on success.
	Analysis string `json:"analysis,omitempty"`
	// Success reports whether the analysis completed.
	Success bool `json:"success"`
	// Error carries the failure description when Success is false.
	Error string `json:"error,omitempty"`
}
