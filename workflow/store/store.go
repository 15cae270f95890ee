// Package store provides optional persistence for paused workflow
// executions.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested execution ID has no paused state.
var ErrNotFound = errors.New("not found")

// Store persists PausedState across a pause/resume cycle. Implementations
// must be safe for concurrent use.
type Store interface {
	// SavePaused persists state for executionID, overwriting any prior
	// paused state for the same execution.
	SavePaused(ctx context.Context, executionID string, state PausedState) error

	// LoadPaused retrieves the paused state for executionID. Returns
	// ErrNotFound if none exists.
	LoadPaused(ctx context.Context, executionID string) (PausedState, error)

	// DeletePaused removes any paused state for executionID. Not an error
	// if none exists.
	DeletePaused(ctx context.Context, executionID string) error
}

// PausedState is the opaque, JSON-serializable snapshot an Executor needs to
// resume a workflow execution from a wait block or an externally-requested
// pause (spec.md §4.1.9, §6 Pause/resume).
type PausedState struct {
	ExecutionID string `json:"executionId"`
	WorkflowID  string `json:"workflowId"`

	// ExecutedBlocks, BlockStates, ActiveExecutionPath and the remaining
	// fields mirror the corresponding ExecutionContext fields, kept as plain
	// maps so this package has no dependency on the workflow package.
	ExecutedBlocks       map[string]bool   `json:"executedBlocks"`
	BlockStates          map[string]any    `json:"blockStates"`
	ActiveExecutionPath  map[string]bool   `json:"activeExecutionPath"`
	LoopIterations       map[string]int    `json:"loopIterations"`
	LoopItems            map[string]any    `json:"loopItems"`
	CompletedLoops       map[string]bool   `json:"completedLoops"`
	ParallelExecutions   map[string]any    `json:"parallelExecutions"`
	ParallelBlockMapping map[string]any    `json:"parallelBlockMapping"`
	RouterDecisions      map[string]string `json:"routerDecisions"`
	ConditionDecisions   map[string]string `json:"conditionDecisions"`
	Variables            map[string]any   `json:"variables"`
	Environment           map[string]string `json:"environment"`
	WaitingBlockID        string            `json:"waitingBlockId,omitempty"`
	WaitUntil             *time.Time        `json:"waitUntil,omitempty"`
	PausedAt              time.Time         `json:"pausedAt"`
	Layer                 int               `json:"layer"`
}
