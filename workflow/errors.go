package workflow

import "errors"

// Validation errors (spec.md §7, taxonomy 1). Validate (and so Run) returns
// these before any block executes, except ErrStartBlockDisabled, which a run
// reports in Result.Error when its starting block cannot be seeded.
var (
	ErrNoEntryPoint       = errors.New("workflow: no enabled starter and no trigger block found")
	ErrStartBlockDisabled = errors.New("workflow: start block not found or disabled")
	ErrDanglingConnection = errors.New("workflow: connection refers to an unknown block")
	ErrDanglingLoopNode   = errors.New("workflow: loop references an unknown block")
	ErrInvalidLoopConfig  = errors.New("workflow: invalid loop configuration")
	ErrEmptyForEachItems  = errors.New("workflow: forEach loop requires non-empty items")
)

// Runtime errors (spec.md §7, taxonomy 4-6).
var (
	ErrMaxLayersExceeded  = errors.New("workflow: execution exceeded maximum layer iterations")
	ErrMaxDepthExceeded   = errors.New("workflow: nested workflow depth limit exceeded")
	ErrDeploymentRequired = errors.New("workflow: child workflow has no published deployment")
	ErrCancelled          = errors.New("cancelled")
)

// ErrNotFound reports an unknown paused execution id. It is a separate value
// from store.ErrNotFound, which is what store.Store implementations (and so
// ResumeByID) return.
var ErrNotFound = errors.New("workflow: paused state not found")
