package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/you112ef/workflow-engine/workflow/emit"
	"github.com/you112ef/workflow-engine/workflow/store"
)

// Executor runs one WorkflowGraph according to the layered scheduling
// contract of spec.md §4.1: compute ready blocks, execute a layer
// concurrently, update routing/loop/parallel state, repeat until no block
// remains ready or a pause/cancel/error interrupts the run.
type Executor struct {
	graph *WorkflowGraph
	opts  Options

	resolver InputResolver
	path     *PathTracker
	loops    *LoopManager
	parallels *ParallelManager
}

// New builds an Executor for graph. options may mix a legacy Options struct
// (used as the base configuration) with functional Option values, applied
// in the order given — mirroring the teacher's dual-configuration New.
func New(graph *WorkflowGraph, options ...interface{}) *Executor {
	var opts Options
	for _, opt := range options {
		switch v := opt.(type) {
		case Options:
			opts = v
		case Option:
			v(&opts)
		}
	}
	opts = opts.withDefaults()

	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewDefaultInputResolver(graph, startBlockID(graph))
	}

	return &Executor{
		graph:     graph,
		opts:      opts,
		resolver:  resolver,
		path:      NewPathTracker(graph),
		loops:     NewLoopManager(graph),
		parallels: NewParallelManager(graph),
	}
}

func startBlockID(graph *WorkflowGraph) string {
	for _, b := range graph.Blocks {
		if b.Kind == KindStarter || b.TriggerMode {
			return b.ID
		}
	}
	for _, b := range graph.Blocks {
		if b.Kind.IsTrigger() {
			return b.ID
		}
	}
	return ""
}

// Validate checks the graph's structural invariants before any block
// executes (spec.md §4.1, Validation; §3 invariants).
func (e *Executor) Validate() error {
	ids := make(map[string]bool, len(e.graph.Blocks))
	var hasEntry bool
	for _, b := range e.graph.Blocks {
		ids[b.ID] = true
		if b.Kind == KindStarter || b.Kind.IsTrigger() || b.TriggerMode {
			if b.Kind == KindStarter && !b.Enabled {
				continue
			}
			hasEntry = true
		}
	}
	if !hasEntry {
		return ErrNoEntryPoint
	}

	for _, c := range e.graph.Connections {
		if !ids[c.Source] || !ids[c.Target] {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingConnection, c.Source, c.Target)
		}
	}

	for loopID, loop := range e.graph.Loops {
		for _, n := range loop.Nodes {
			if !ids[n] {
				return fmt.Errorf("%w: loop %s references %s", ErrDanglingLoopNode, loopID, n)
			}
		}
		switch loop.LoopType {
		case LoopFor:
			if loop.Iterations <= 0 {
				return fmt.Errorf("%w: loop %s has non-positive iteration count", ErrInvalidLoopConfig, loopID)
			}
		case LoopForEach:
			if loop.ForEachItems == nil {
				return fmt.Errorf("%w: loop %s", ErrEmptyForEachItems, loopID)
			}
		default:
			return fmt.Errorf("%w: loop %s has unknown loopType %q", ErrInvalidLoopConfig, loopID, loop.LoopType)
		}
	}

	for parallelID, p := range e.graph.Parallels {
		for _, n := range p.Nodes {
			if !ids[n] {
				return fmt.Errorf("%w: parallel %s references %s", ErrDanglingLoopNode, parallelID, n)
			}
		}
	}
	return nil
}

// Result is the public outcome of one execution (spec.md §6/§7): the
// response-projected output on success, the failure message and a partial,
// best-effort output on failure or cancellation, and the full block-level
// audit trail and run metadata regardless of outcome.
type Result struct {
	Success  bool
	Output   map[string]any
	Error    string
	Logs     []BlockLog
	Metadata map[string]any
}

// Run starts a fresh execution of the graph with the given workflow input,
// returning the response-block-projected output on completion.
func (e *Executor) Run(ctx context.Context, workflowInput map[string]any) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}
	execCtx := NewExecutionContext(uuid.NewString(), "", e.graph.ID, nil, nil)
	return e.run(ctx, execCtx, workflowInput)
}

// Resume continues a previously paused execution from persisted state.
func (e *Executor) Resume(ctx context.Context, ps store.PausedState, resumeInput map[string]any) (Result, error) {
	execCtx, err := fromPausedState(ps)
	if err != nil {
		return Result{}, err
	}
	if execCtx.WaitBlockInfo != nil {
		for k, v := range resumeInput {
			execCtx.WorkflowVariables[k] = v
		}
		execCtx.BlockStates[execCtx.WaitBlockInfo.BlockID] = BlockState{
			Output:   Ok(resumeInput),
			Executed: true,
		}
		execCtx.WaitBlockInfo = nil
	}
	return e.run(ctx, execCtx, nil)
}

// ResumeByID loads paused state for executionID from opts.Store and resumes
// it. Returns store.ErrNotFound if no paused state exists.
func (e *Executor) ResumeByID(ctx context.Context, executionID string, resumeInput map[string]any) (Result, error) {
	if e.opts.Store == nil {
		return Result{}, fmt.Errorf("workflow: Resume requires a configured Store")
	}
	ps, err := e.opts.Store.LoadPaused(ctx, executionID)
	if err != nil {
		return Result{}, err
	}
	result, err := e.Resume(ctx, ps, resumeInput)
	if err == nil {
		_ = e.opts.Store.DeletePaused(ctx, executionID)
	}
	return result, err
}

// run is the layer loop shared by Run, Resume, and nested child-workflow
// invocation (childworkflow.go). If workflowInput is non-nil it seeds the
// starting block (spec.md §4.1, Starting-block seeding); a nil input is
// used when resuming, where the starter has already executed. Every path
// out of the loop — completion, cancellation, a layer-depth or block
// failure — returns through e.result so BlockLogs and metadata accumulated
// so far are never discarded (spec.md §4.1.3/§7).
func (e *Executor) run(ctx context.Context, execCtx *ExecutionContext, workflowInput map[string]any) (Result, error) {
	e.opts.Emitter.Emit(makeEvent(execCtx, 0, "", "execution_start", nil))

	if workflowInput != nil {
		if err := e.seedStartingBlock(execCtx, workflowInput); err != nil {
			return e.result(execCtx, false, err.Error()), nil
		}
	}

	for layer := 1; ; layer++ {
		if execCtx.IsCancelled() {
			e.opts.Emitter.Emit(makeEvent(execCtx, 0, "", "execution_cancelled", nil))
			if e.opts.Metrics != nil {
				e.opts.Metrics.IncrementCancellations(execCtx.ExecutionID)
			}
			return e.result(execCtx, false, ErrCancelled.Error()), nil
		}
		if layer > e.opts.MaxLayers {
			return e.result(execCtx, false, fmt.Errorf("%w: %d", ErrMaxLayersExceeded, e.opts.MaxLayers).Error()), nil
		}

		ready := e.readyBlocks(execCtx)
		if len(ready) == 0 {
			break
		}

		if e.opts.DebugMode {
			if err := e.awaitStep(ctx); err != nil {
				return e.result(execCtx, false, err.Error()), nil
			}
		}

		if e.opts.Metrics != nil {
			e.opts.Metrics.SetLayerDepth(layer)
		}

		if err := e.executeLayer(ctx, layer, ready, execCtx); err != nil {
			return e.result(execCtx, false, err.Error()), nil
		}

		if err := e.loops.ProcessLoopIterations(execCtx); err != nil {
			return e.result(execCtx, false, err.Error()), nil
		}
		e.parallels.ProcessParallelIterations(execCtx)

		if execCtx.ShouldPauseAfterBlock {
			return e.pause(ctx, execCtx)
		}
	}

	e.opts.Emitter.Emit(makeEvent(execCtx, 0, "", "execution_complete", nil))
	return e.result(execCtx, true, ""), nil
}

// result builds the Result for one terminal state, projecting the
// best-effort output from whatever blocks completed even on failure
// (spec.md §7, "accumulated logs and outputs are returned").
func (e *Executor) result(execCtx *ExecutionContext, success bool, errMsg string) Result {
	return Result{
		Success:  success,
		Output:   e.projectOutput(execCtx),
		Error:    errMsg,
		Logs:     execCtx.BlockLogs,
		Metadata: e.buildMetadata(execCtx),
	}
}

// buildMetadata collects the run-level detail spec.md §7 requires alongside
// logs: per-block durations (already on each BlockLog), the workflow's
// connections (echoed for downstream log rendering), and whether the run
// executed inside a debug/child context.
func (e *Executor) buildMetadata(execCtx *ExecutionContext) map[string]any {
	return map[string]any{
		"executionId":      execCtx.ExecutionID,
		"workflowId":       execCtx.WorkflowID,
		"connections":      e.graph.Connections,
		"isChildExecution": execCtx.IsChildExecution,
		"childDepth":       execCtx.ChildDepth,
	}
}

func (e *Executor) awaitStep(ctx context.Context) error {
	if e.opts.StepSignal == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.opts.StepSignal:
		return nil
	}
}

// pause builds and optionally persists PausedState, returning control to
// the caller (spec.md §4.1.9). A pause is not a failure: Success reports
// true and Output is replaced by {isPaused, executionId, waitBlockInfo};
// the block outputs accumulated so far stay in Logs (spec.md §4.1.3).
func (e *Executor) pause(ctx context.Context, execCtx *ExecutionContext) (Result, error) {
	execCtx.MarkPaused()
	reason := "wait_block"
	if execCtx.WaitBlockInfo != nil {
		reason = execCtx.WaitBlockInfo.Reason
	}
	e.opts.Emitter.Emit(makeEvent(execCtx, 0, "", "execution_paused", map[string]any{"reason": reason}))
	if e.opts.Metrics != nil {
		e.opts.Metrics.IncrementPauses(execCtx.ExecutionID, reason)
	}

	if e.opts.Store != nil {
		ps, err := toPausedState(execCtx)
		if err != nil {
			return e.result(execCtx, false, err.Error()), nil
		}
		if err := e.opts.Store.SavePaused(ctx, execCtx.ExecutionID, ps); err != nil {
			return e.result(execCtx, false, fmt.Errorf("workflow: persisting paused state: %w", err).Error()), nil
		}
	}

	res := e.result(execCtx, true, "")
	res.Output = map[string]any{
		"isPaused":      true,
		"executionId":   execCtx.ExecutionID,
		"waitBlockInfo": execCtx.WaitBlockInfo,
	}
	return res, nil
}

// seedStartingBlock implements spec.md §4.1's starting-block seeding rules:
// the starter (or trigger/TriggerMode entry block) is marked executed with
// workflowInput (coerced to its declared InputFormat where present) as its
// output, and marked active so its outgoing edges are eligible next layer.
func (e *Executor) seedStartingBlock(execCtx *ExecutionContext, workflowInput map[string]any) error {
	start, ok := e.graph.BlockByID(startBlockID(e.graph))
	if !ok {
		return ErrStartBlockDisabled
	}

	data := coerceInputFormat(start.InputFormat, workflowInput)
	execCtx.BlockStates[start.ID] = BlockState{Output: Ok(data), Executed: true}
	execCtx.ExecutedBlocks[start.ID] = true
	execCtx.ActiveExecutionPath[start.ID] = true
	e.path.UpdateExecutionPaths([]string{start.ID}, execCtx)
	return nil
}

func coerceInputFormat(fields []InputField, input map[string]any) map[string]any {
	if len(fields) == 0 {
		return input
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := input[f.Name]
		if !ok {
			continue
		}
		out[f.Name] = coerceType(v, f.Type)
	}
	return out
}

func coerceType(v any, typ string) any {
	switch typ {
	case "string":
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	case "number":
		switch n := v.(type) {
		case float64, int, int64:
			return n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
		return v
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
		return v
	case "object", "array":
		if s, ok := v.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return parsed
			}
		}
		return v
	default:
		return v
	}
}

// projectOutput builds the execution's final result from whichever response
// block(s) executed, falling back to the full set of executed block
// outputs when no response block is present (spec.md §4.1, step 8).
func (e *Executor) projectOutput(execCtx *ExecutionContext) map[string]any {
	var responses []string
	for _, b := range e.graph.Blocks {
		if b.Kind != KindResponse {
			continue
		}
		if st, ok := execCtx.BlockStates[b.ID]; ok && st.Executed {
			responses = append(responses, b.ID)
		}
	}
	if len(responses) == 1 {
		return execCtx.BlockStates[responses[0]].Output.Data
	}
	if len(responses) > 1 {
		merged := map[string]any{}
		for _, id := range responses {
			merged[id] = execCtx.BlockStates[id].Output.Data
		}
		return merged
	}

	out := map[string]any{}
	for id, st := range execCtx.BlockStates {
		if IsVirtualID(id) || !st.Executed {
			continue
		}
		out[id] = st.Output.Data
	}
	return out
}

func makeEvent(execCtx *ExecutionContext, step int, blockID, msg string, meta map[string]any) emit.Event {
	return emit.Event{ExecutionID: execCtx.ExecutionID, Step: step, BlockID: blockID, Msg: msg, Meta: meta}
}
