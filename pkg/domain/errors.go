package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by record-store lookups that find no row.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned by conditional updates whose WHERE version
// predicate matched zero rows — the Go-native equivalent of a DynamoDB
// conditional PutItem/UpdateItem failure.
var ErrVersionConflict = errors.New("optimistic concurrency conflict")

// PrerequisiteError is raised when a stage is asked to start before all of
// its prerequisites have completed.
type PrerequisiteError struct {
	StageName            string
	MissingPrerequisites []string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("stage %q missing prerequisites: %v", e.StageName, e.MissingPrerequisites)
}

// StageExecutionError wraps a recoverable failure from the Stage Executor
// (LLM invocation failure or downstream parsing failure). Recoverable means
// a later redelivery of the same Task will re-attempt the stage.
type StageExecutionError struct {
	StageName   string
	Recoverable bool
	Err         error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %q execution failed: %v", e.StageName, e.Err)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Err
}

// NewStageExecutionError wraps err as a recoverable StageExecutionError.
func NewStageExecutionError(stageName string, err error) *StageExecutionError {
	return &StageExecutionError{StageName: stageName, Recoverable: true, Err: err}
}

// ControlSignal is the Result-like control value threaded through the
// Workflow Engine's execution loop in place of exception-based control
// flow: pause/stop are not errors, they are one of three terminals.
type ControlSignal int

const (
	// ControlSignalNone means no pause/stop was observed; continue.
	ControlSignalNone ControlSignal = iota
	// ControlSignalPause means a pause was observed; exit after persisting.
	ControlSignalPause
	// ControlSignalStop means a stop was observed; exit after persisting.
	ControlSignalStop
)

// ExecutionResult is the atomic outcome of a Workflow Engine public entry
// point: execute_to_completion, execute_from_stage, or execute_single_stage.
type ExecutionResult struct {
	FinalStatus          FinalStatus
	FailedStage          string
	Message              string
	MissingPrerequisites []string
	AggregatedMetrics    Metrics
}
