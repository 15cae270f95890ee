package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// readyBlocks computes the blocks eligible to execute this tick: for every
// active, non-executed block whose incoming edges are either absent, on the
// active path and satisfied, or outside the active path (spec.md §4.1,
// ready-block selection). Parallel-virtualized blocks are delegated to
// ParallelManager so their per-iteration dependency rules apply instead.
func (e *Executor) readyBlocks(execCtx *ExecutionContext) []string {
	var ready []string

	inParallel := map[string]bool{}
	for parallelID, p := range e.graph.Parallels {
		if execCtx.CompletedLoops[parallelID] {
			continue
		}
		for _, n := range p.Nodes {
			inParallel[n] = true
		}
		if execCtx.ExecutedBlocks[parallelID] || execCtx.ParallelExecutions[parallelID] != nil {
			ready = append(ready, e.parallels.ProcessParallelBlocks(parallelID, execCtx)...)
		}
	}

	for _, b := range e.graph.Blocks {
		if inParallel[b.ID] {
			continue
		}
		if execCtx.ExecutedBlocks[b.ID] {
			continue
		}
		if !b.Enabled && b.Kind != KindStarter {
			continue
		}
		if !e.checkDependencies(b.ID, execCtx) {
			continue
		}
		ready = append(ready, b.ID)
	}
	return ready
}

// checkDependencies reports whether every incoming connection of blockID is
// satisfied: a source outside the active path doesn't block (OR-style
// merge at fan-in points), an active source must have executed and, for
// router/condition sources, have selected this edge (spec.md §4.1,
// dependency check).
func (e *Executor) checkDependencies(blockID string, execCtx *ExecutionContext) bool {
	incoming := e.graph.IncomingConnections(blockID)
	if len(incoming) == 0 {
		return execCtx.ActiveExecutionPath[blockID] || blockID == startBlockID(e.graph)
	}

	satisfiedAny := false
	for _, c := range incoming {
		if !execCtx.ActiveExecutionPath[c.Source] {
			continue
		}
		if !execCtx.ExecutedBlocks[c.Source] {
			return false
		}
		if !e.edgeSelected(c, execCtx) {
			continue
		}
		satisfiedAny = true
	}
	return satisfiedAny
}

func (e *Executor) edgeSelected(c Connection, execCtx *ExecutionContext) bool {
	src, ok := e.graph.BlockByID(c.Source)
	if !ok {
		return true
	}
	state := execCtx.BlockStates[c.Source]
	switch src.Kind {
	case KindRouter:
		return execCtx.Decisions.Router[c.Source] == c.Target
	case KindCondition:
		clause, ok := ConditionIDFromHandle(c.SourceHandle)
		if !ok {
			return true
		}
		return execCtx.Decisions.Condition[c.Source] == clause
	default:
		if c.SourceHandle == HandleError {
			return state.Output.IsError()
		}
		switch c.SourceHandle {
		case HandleLoopEndSource, HandleParallelEnd:
			return execCtx.CompletedLoops[c.Source]
		case HandleLoopStartSource, HandleParallelStart:
			return true
		}
		return !state.Output.IsError()
	}
}

// executeLayer runs every ready block id concurrently, bounded by
// MaxConcurrentBlocks, and waits for the full layer to settle before
// returning (spec.md §5, "submit all ready block ids concurrently; wait for
// all to settle"; SPEC_FULL.md §4.14).
func (e *Executor) executeLayer(ctx context.Context, layer int, ready []string, execCtx *ExecutionContext) error {
	g, gctx := errgroup.WithContext(ctx)
	if e.opts.MaxConcurrentBlocks > 0 {
		g.SetLimit(e.opts.MaxConcurrentBlocks)
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.SetInflightBlocks(len(ready))
	}

	executed := make([]string, len(ready))
	for i, effID := range ready {
		i, effID := i, effID
		g.Go(func() error {
			if err := e.executeBlock(gctx, layer, effID, execCtx); err != nil {
				return err
			}
			executed[i] = effID
			return nil
		})
	}

	err := g.Wait()
	if e.opts.Metrics != nil {
		e.opts.Metrics.SetInflightBlocks(0)
	}
	if err != nil {
		return err
	}

	e.path.UpdateExecutionPaths(executed, execCtx)
	return nil
}

// executeBlock resolves inputs, dispatches to the registered Handler,
// records the block's state, and emits telemetry for one effective block id
// (original id, or a virtual id within a parallel iteration).
func (e *Executor) executeBlock(ctx context.Context, layer int, effID string, execCtx *ExecutionContext) error {
	originalID := ExtractOriginalID(effID)
	block, ok := e.graph.BlockByID(originalID)
	if !ok {
		return fmt.Errorf("workflow: unknown block %s", originalID)
	}

	if _, parallelID, iteration, isVirtual := ParseVirtualID(effID); isVirtual {
		execCtx.Lock()
		execCtx.CurrentVirtualBlockID = effID
		execCtx.Unlock()
		e.parallels.SetupIterationContext(parallelID, iteration, execCtx)
		defer func() {
			execCtx.Lock()
			execCtx.CurrentVirtualBlockID = ""
			execCtx.Unlock()
		}()
	}

	e.opts.Emitter.Emit(makeEvent(execCtx, layer, effID, "block_start", map[string]any{"kind": string(block.Kind)}))
	e.opts.Reporter.BlockActive(execCtx.ExecutionID, effID)
	defer e.opts.Reporter.BlockIdle(execCtx.ExecutionID, effID)

	inputs, err := e.resolver.ResolveInputs(ctx, block, execCtx)
	if err != nil {
		return fmt.Errorf("workflow: resolving inputs for %s: %w", effID, err)
	}

	blockCtx := ctx
	var cancel context.CancelFunc
	if e.opts.DefaultBlockTimeout > 0 {
		blockCtx, cancel = context.WithTimeout(ctx, e.opts.DefaultBlockTimeout)
		defer cancel()
	}

	started := time.Now()
	output, err := e.dispatch(blockCtx, block, inputs, execCtx)
	duration := time.Since(started)

	status := "success"
	if err != nil {
		status = "error"
		output = Err(err.Error(), 0)
	} else if output.IsError() {
		status = "error"
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordBlockLatency(execCtx.ExecutionID, string(block.Kind), duration, status)
	}

	execCtx.Lock()
	execCtx.BlockStates[effID] = BlockState{Output: output, Executed: true, ExecutionTime: duration}
	execCtx.ExecutedBlocks[effID] = true
	execCtx.ActiveExecutionPath[effID] = true
	execCtx.BlockLogs = append(execCtx.BlockLogs, BlockLog{
		BlockID: effID, Kind: block.Kind, StartedAt: started, EndedAt: started.Add(duration),
		Duration: duration, Success: status == "success", Input: inputs, Output: output.Data, Error: output.Error,
	})
	execCtx.Unlock()

	if block.Kind == KindParallel && status == "success" {
		if err := e.parallels.EnsureInitialized(effID, execCtx); err != nil {
			return err
		}
	}

	e.opts.Emitter.Emit(makeEvent(execCtx, layer, effID, "block_finish", map[string]any{
		"status": status, "durationMs": duration.Milliseconds(),
	}))

	if block.Kind == KindWait && status == "success" {
		execCtx.ShouldPauseAfterBlock = true
	}

	if status == "error" && !e.hasErrorEdge(originalID) {
		return fmt.Errorf("workflow: block %s failed with no error-handle edge: %s", effID, output.Error)
	}
	return nil
}

// hasErrorEdge reports whether blockID has an outgoing connection on the
// error handle. A block that fails without one propagates its failure up
// the layer instead of being recovered locally (spec.md §7, "if the block
// has outgoing error-handle edges, those targets become active and
// execution continues; otherwise the error propagates up the layer").
func (e *Executor) hasErrorEdge(blockID string) bool {
	for _, c := range e.graph.OutgoingConnections(blockID) {
		if c.SourceHandle == HandleError {
			return true
		}
	}
	return false
}

// dispatch routes to the child-workflow executor for workflow blocks, or to
// the registered Handler otherwise. A streaming HandlerOutput is drained
// here: one copy is teed to ExecutionContext.OnStream, the other reconstructs
// the final Output (spec.md §4.1.2).
func (e *Executor) dispatch(ctx context.Context, block Block, inputs map[string]any, execCtx *ExecutionContext) (Output, error) {
	if block.Kind == KindWorkflow {
		out, err := e.executeChildWorkflow(ctx, block, inputs, execCtx)
		if err != nil {
			return Output{}, err
		}
		return e.drain(block, out, execCtx)
	}

	handler, ok := e.opts.Registry.Resolve(block)
	if !ok {
		return Output{}, fmt.Errorf("workflow: no handler registered for block kind %q", block.Kind)
	}
	out, err := handler.Execute(ctx, block, inputs, execCtx)
	if err != nil {
		return Output{}, err
	}
	return e.drain(block, out, execCtx)
}

// drain reconstructs a block's final Output from either a direct Output or
// a StreamingExecution. A streamed response is teed to execCtx.OnStream and
// drained here into its full text; if the block declares a responseFormat,
// that text is JSON-parsed and merged into the output data (spec.md
// §4.1.2), preserving "content" alongside the parsed fields. A reader error
// still commits whatever text arrived before it.
func (e *Executor) drain(block Block, out HandlerOutput, execCtx *ExecutionContext) (Output, error) {
	if out.Output != nil {
		return *out.Output, nil
	}
	if out.Streaming == nil {
		return Output{}, fmt.Errorf("workflow: handler returned neither Output nor Streaming")
	}

	var text strings.Builder
	var streamErr error
	for chunk := range out.Streaming.Stream {
		if execCtx.OnStream != nil {
			execCtx.OnStream(*out.Streaming)
		}
		if chunk.Err != nil {
			streamErr = chunk.Err
			break
		}
		text.WriteString(chunk.Text)
		if chunk.Done {
			break
		}
	}

	data := map[string]any{"content": text.String()}
	if rf, ok := block.Config["responseFormat"]; ok && rf != nil {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(text.String()), &parsed); err == nil {
			for k, v := range parsed {
				data[k] = v
			}
		}
	}

	if streamErr != nil {
		return Output{Data: data, Error: streamErr.Error()}, nil
	}
	return Ok(data), nil
}
