package models

import "time"

// ExecutionRecord captures one stage invocation inside a pipeline run.
// Records are append-only within a run.
type ExecutionRecord struct {
	// StageName is the name of the executed stage.
	StageName string `json:"stage_name"`
	// BackendID is the backend the stage was routed to.
	BackendID string `json:"backend_id"`
	// InputSize is the length in bytes of the stage input.
	InputSize int `json:"input_size"`
	// Output is the text produced by the backend on success.
	Output string `json:"output,omitempty"`
	// Success reports whether the invocation completed.
	Success bool `json:"success"`
	// ErrorDetail carries the failure description when Success is false.
	ErrorDetail string `json:"error_detail,omitempty"`
	// StartTime is when the stage started.
	StartTime time.Time `json:"start_time"`
	// EndTime is when the stage finished.
	EndTime time.Time `json:"end_time"`
}

// PipelineRun is the ordered record of one pipeline execution.
type PipelineRun struct {
	// ID is a unique identifier for this run.
	ID string `json:"id"`
	// Records holds one entry per executed stage, in order.
	Records []ExecutionRecord `json:"records"`
	// FailedStage is the 0-based index of the stage that aborted the
	// run, or -1 when the run completed.
	FailedStage int `json:"failed_stage"`
	// FinalOutput is the output of the last completed stage.
	FinalOutput string `json:"final_output,omitempty"`
	// Success reports whether every stage completed.
	Success bool `json:"success"`
	// StartTime is when the run started.
	StartTime time.Time `json:"start_time"`
	// EndTime is when the run finished or aborted.
	EndTime time.Time `json:"end_time"`
}
