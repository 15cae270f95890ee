package workflow

import (
	"sync"
	"time"
)

// Output is the tagged result of one block execution. It is deliberately a
// struct with an explicit discriminant (IsError) rather than a bare
// map[string]any with an optional "error" key: field-sniffing a dynamic map
// for the presence of "error" is how the thing it's modeled on (a JS object
// literal) detects failure, but in Go that invites a handler that happens to
// produce a legitimate "error" field in its own payload to be
// misinterpreted as a failed block. See DESIGN.md.
type Output struct {
	Data   map[string]any
	Error  string
	Status int
}

// IsError reports whether this output represents a block failure.
func (o Output) IsError() bool {
	return o.Error != ""
}

// Ok builds a successful Output.
func Ok(data map[string]any) Output {
	return Output{Data: data}
}

// Err builds a failed Output.
func Err(message string, status int) Output {
	return Output{Error: message, Status: status}
}

// BlockState is the recorded result of one block's execution.
type BlockState struct {
	Output        Output
	Executed      bool
	ExecutionTime time.Duration
}

// BlockLog is one entry of the execution's audit trail.
type BlockLog struct {
	BlockID   string
	Name      string
	Kind      BlockKind
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Success   bool
	Input     map[string]any
	Output    map[string]any
	Error     string
}

// RoutingDecisions records which downstream path a router/condition block
// selected, keyed by the effective id (virtual id inside a parallel
// iteration) of the block that made the decision.
type RoutingDecisions struct {
	Router    map[string]string // effective router id -> selected target block id
	Condition map[string]string // effective condition id -> selected condition clause id
}

// ParallelExecutionState tracks one parallel construct's fan-out progress.
type ParallelExecutionState struct {
	ParallelCount    int
	CurrentIteration int
	ExecutionResults map[int]map[string]any // iteration -> aggregated output
}

// ParallelBlockMapping records which (original block, iteration) a virtual
// id stands for.
type ParallelBlockMapping struct {
	OriginalBlockID string
	ParallelID      string
	IterationIndex  int
}

// WaitBlockInfo is attached to the context by a wait handler requesting a
// pause (spec.md §4.6).
type WaitBlockInfo struct {
	BlockID string
	Reason  string
	Resume  map[string]any
}

// ExecutionContext is the mutable state owned exclusively by one execution,
// from Executor.run entry to its return (success, error, cancellation)
// or surfacing to the caller on pause (spec.md §3, Lifecycle).
type ExecutionContext struct {
	mu sync.Mutex

	BlockStates map[string]BlockState
	BlockLogs   []BlockLog

	ExecutedBlocks     map[string]bool
	ActiveExecutionPath map[string]bool

	Decisions RoutingDecisions

	LoopIterations map[string]int
	LoopItems      map[string]any // loopID and loopID+"_items" both live here
	CompletedLoops map[string]bool

	ParallelExecutions   map[string]*ParallelExecutionState
	ParallelBlockMapping map[string]ParallelBlockMapping

	// CurrentVirtualBlockID is set only while executing a virtual block so
	// routing decisions and input resolution key on the virtual id.
	CurrentVirtualBlockID string

	EnvironmentVariables map[string]any
	WorkflowVariables    map[string]any

	SelectedOutputIDs []string
	OnStream          func(StreamingExecution)
	IsDeployedContext bool
	IsChildExecution  bool
	ExecutionID       string
	WorkspaceID       string
	WorkflowID        string

	ShouldPauseAfterBlock bool
	WaitBlockInfo         *WaitBlockInfo

	// ChildDepth counts nested workflow invocations above this context;
	// used to enforce MaxChildDepth (spec.md §4.1.4).
	ChildDepth int

	cancelled bool
	paused    bool
}

// NewExecutionContext builds a fresh context for one execution.
func NewExecutionContext(executionID, workspaceID, workflowID string, envVars, workflowVars map[string]any) *ExecutionContext {
	if envVars == nil {
		envVars = map[string]any{}
	}
	if workflowVars == nil {
		workflowVars = map[string]any{}
	}
	return &ExecutionContext{
		BlockStates:          make(map[string]BlockState),
		ExecutedBlocks:       make(map[string]bool),
		ActiveExecutionPath:  make(map[string]bool),
		Decisions:            RoutingDecisions{Router: make(map[string]string), Condition: make(map[string]string)},
		LoopIterations:       make(map[string]int),
		LoopItems:            make(map[string]any),
		CompletedLoops:       make(map[string]bool),
		ParallelExecutions:   make(map[string]*ParallelExecutionState),
		ParallelBlockMapping: make(map[string]ParallelBlockMapping),
		EnvironmentVariables: envVars,
		WorkflowVariables:    workflowVars,
		ExecutionID:          executionID,
		WorkspaceID:          workspaceID,
		WorkflowID:           workflowID,
	}
}

// Lock/Unlock expose the context's mutex for handler implementations that
// must mutate only their own entries (spec.md §5, Shared resources): a
// handler locks around its own BlockStates/BlockLogs write.
func (c *ExecutionContext) Lock()   { c.mu.Lock() }
func (c *ExecutionContext) Unlock() { c.mu.Unlock() }

// MarkCancelled and IsCancelled implement the cooperative cancellation flag
// (spec.md §5) polled at the top of each layer tick.
func (c *ExecutionContext) MarkCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

func (c *ExecutionContext) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *ExecutionContext) MarkPaused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

func (c *ExecutionContext) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// EffectiveID returns the id that should key BlockStates/ExecutedBlocks for
// blockID given the current virtual execution context: the virtual id of
// blockID within the active parallel iteration if one is set and blockID is
// the block currently executing as that virtual id, else blockID unchanged.
func (c *ExecutionContext) EffectiveID(blockID string) string {
	if c.CurrentVirtualBlockID == "" {
		return blockID
	}
	origOfCurrent, parallelID, iteration, ok := ParseVirtualID(c.CurrentVirtualBlockID)
	if !ok || origOfCurrent != ExtractOriginalID(blockID) {
		// blockID isn't the block currently executing as a virtual id;
		// a *different* node's effective id is not derived here and is
		// returned as its original id.
		return blockID
	}
	return GenerateVirtualID(blockID, parallelID, iteration)
}
