package workflow

import "fmt"

// ParallelManager virtualizes a parallel construct's body blocks across N
// concurrent iterations via virtual block ids, gates per-iteration
// dependency ordering, and emits an aggregate output on completion
// (spec.md §4.4). It is symmetric to LoopManager but fans out rather than
// resetting in place.
type ParallelManager struct {
	graph *WorkflowGraph
}

// NewParallelManager builds a manager bound to graph.
func NewParallelManager(graph *WorkflowGraph) *ParallelManager {
	return &ParallelManager{graph: graph}
}

// EnsureInitialized computes parallelCount and seeds parallelBlockMapping
// the first time parallelID's block executes (spec.md §4.4, "when a
// parallel block is executed").
func (pm *ParallelManager) EnsureInitialized(parallelID string, execCtx *ExecutionContext) error {
	if _, ok := execCtx.ParallelExecutions[parallelID]; ok {
		return nil
	}
	parallel, ok := pm.graph.Parallels[parallelID]
	if !ok {
		return fmt.Errorf("workflow: unknown parallel %q", parallelID)
	}

	count := parallel.Count
	if count == 0 {
		if l, err := collectionLength(parallel.Distribution); err == nil {
			count = l
		}
	}

	execCtx.ParallelExecutions[parallelID] = &ParallelExecutionState{
		ParallelCount:    count,
		CurrentIteration: 1,
		ExecutionResults: map[int]map[string]any{},
	}

	for _, node := range parallel.Nodes {
		for i := 0; i < count; i++ {
			vid := GenerateVirtualID(node, parallelID, i)
			execCtx.ParallelBlockMapping[vid] = ParallelBlockMapping{
				OriginalBlockID: node,
				ParallelID:      parallelID,
				IterationIndex:  i,
			}
		}
	}
	return nil
}

// IsActive reports whether parallelID has been initialized, has at least
// one uncompleted iteration, and hasn't itself completed — the condition
// under which ready-block selection defers to ProcessParallelBlocks
// (spec.md §4.1, ready-block selection).
func (pm *ParallelManager) IsActive(parallelID string, execCtx *ExecutionContext) bool {
	if execCtx.CompletedLoops[parallelID] {
		return false
	}
	state, ok := execCtx.ParallelExecutions[parallelID]
	if !ok {
		return false
	}
	return state.CurrentIteration > 0 && state.CurrentIteration <= state.ParallelCount
}

// ProcessParallelBlocks returns the virtual ids ready to execute across all
// active iterations of parallelID: for each iteration, every node with no
// unmet within-iteration dependency, filtered by conditional routing
// recorded at virtual ids (spec.md §4.4, Per-iteration readiness).
func (pm *ParallelManager) ProcessParallelBlocks(parallelID string, execCtx *ExecutionContext) []string {
	parallel, ok := pm.graph.Parallels[parallelID]
	if !ok {
		return nil
	}
	state, ok := execCtx.ParallelExecutions[parallelID]
	if !ok {
		return nil
	}

	nodeSet := make(map[string]bool, len(parallel.Nodes))
	for _, n := range parallel.Nodes {
		nodeSet[n] = true
	}

	var ready []string
	for i := 0; i < state.ParallelCount; i++ {
		for _, node := range parallel.Nodes {
			vid := GenerateVirtualID(node, parallelID, i)
			if execCtx.ExecutedBlocks[vid] {
				continue
			}
			if !pm.isExpectedInIteration(node, nodeSet, parallelID, i, execCtx) {
				continue
			}
			if !pm.dependenciesMetInIteration(node, nodeSet, parallelID, i, execCtx) {
				continue
			}
			ready = append(ready, vid)
		}
	}
	return ready
}

// isExpectedInIteration reports whether node should run in iteration i at
// all: a node with at least one internal incoming edge only runs if one of
// those edges is active given routing decisions recorded at virtual ids; a
// node with no internal incoming edges (an entry point of the parallel)
// always runs; a node with no connections inside or outside the parallel is
// excluded entirely to avoid unbounded execution.
func (pm *ParallelManager) isExpectedInIteration(node string, nodeSet map[string]bool, parallelID string, i int, execCtx *ExecutionContext) bool {
	incoming := pm.graph.IncomingConnections(node)
	var internal []Connection
	hasExternal := false
	for _, c := range incoming {
		if nodeSet[c.Source] {
			internal = append(internal, c)
		} else {
			hasExternal = true
		}
	}
	if len(internal) == 0 {
		if hasExternal || len(pm.graph.OutgoingConnections(node)) > 0 {
			return true
		}
		return false // fully unconnected inside the parallel
	}

	for _, c := range internal {
		srcVID := GenerateVirtualID(c.Source, parallelID, i)
		if !execCtx.ExecutedBlocks[srcVID] {
			continue
		}
		if pm.edgeActiveAtVirtual(c, srcVID, execCtx) {
			return true
		}
	}
	return false
}

func (pm *ParallelManager) edgeActiveAtVirtual(c Connection, srcVID string, execCtx *ExecutionContext) bool {
	block, ok := pm.graph.BlockByID(c.Source)
	if !ok {
		return true
	}
	state := execCtx.BlockStates[srcVID]
	switch block.Kind {
	case KindRouter:
		return execCtx.Decisions.Router[srcVID] == c.Target
	case KindCondition:
		clause, ok := ConditionIDFromHandle(c.SourceHandle)
		if !ok {
			return true
		}
		return execCtx.Decisions.Condition[srcVID] == clause
	default:
		if c.SourceHandle == HandleError {
			return state.Output.IsError()
		}
		return !state.Output.IsError()
	}
}

// dependenciesMetInIteration requires every incoming edge of node to be
// satisfied: internal sources must have their iteration-i virtual instance
// executed (and, if routing, selecting this edge); external sources defer
// to the normal active-path + executed check.
func (pm *ParallelManager) dependenciesMetInIteration(node string, nodeSet map[string]bool, parallelID string, i int, execCtx *ExecutionContext) bool {
	for _, c := range pm.graph.IncomingConnections(node) {
		if nodeSet[c.Source] {
			srcVID := GenerateVirtualID(c.Source, parallelID, i)
			if !execCtx.ExecutedBlocks[srcVID] {
				return false
			}
			if !pm.edgeActiveAtVirtual(c, srcVID, execCtx) {
				// Not applicable via this edge; another internal edge may
				// still satisfy isExpectedInIteration, but for dependency
				// gating an inactive edge simply isn't required.
				continue
			}
			continue
		}
		if !execCtx.ActiveExecutionPath[c.Source] {
			continue // OR-style merge: source outside the active path doesn't block
		}
		if !execCtx.ExecutedBlocks[c.Source] {
			return false
		}
	}
	return true
}

// ProcessParallelIterations checks every active parallel for completion:
// once every node's expected instances across all iterations have
// executed, aggregate ExecutionResults and activate parallel-end-source
// edges (spec.md §4.4, Completion).
func (pm *ParallelManager) ProcessParallelIterations(execCtx *ExecutionContext) {
	for parallelID := range pm.graph.Parallels {
		if execCtx.CompletedLoops[parallelID] {
			continue
		}
		state, ok := execCtx.ParallelExecutions[parallelID]
		if !ok {
			continue
		}
		if pm.isComplete(parallelID, state, execCtx) {
			pm.complete(parallelID, state, execCtx)
		}
	}
}

func (pm *ParallelManager) isComplete(parallelID string, state *ParallelExecutionState, execCtx *ExecutionContext) bool {
	parallel := pm.graph.Parallels[parallelID]
	nodeSet := make(map[string]bool, len(parallel.Nodes))
	for _, n := range parallel.Nodes {
		nodeSet[n] = true
	}
	for i := 0; i < state.ParallelCount; i++ {
		for _, node := range parallel.Nodes {
			vid := GenerateVirtualID(node, parallelID, i)
			if execCtx.ExecutedBlocks[vid] {
				continue
			}
			if pm.isExpectedInIteration(node, nodeSet, parallelID, i, execCtx) {
				return false
			}
		}
	}
	return true
}

func (pm *ParallelManager) complete(parallelID string, state *ParallelExecutionState, execCtx *ExecutionContext) {
	parallel := pm.graph.Parallels[parallelID]
	results := make([]any, 0, state.ParallelCount)
	for i := 0; i < state.ParallelCount; i++ {
		agg := map[string]any{}
		for _, node := range parallel.Nodes {
			vid := GenerateVirtualID(node, parallelID, i)
			if st, ok := execCtx.BlockStates[vid]; ok && st.Executed {
				agg[node] = st.Output.Data
			}
		}
		state.ExecutionResults[i] = agg
		results = append(results, agg)
	}

	output := map[string]any{
		"parallelId":    parallelID,
		"parallelCount": state.ParallelCount,
		"completed":     true,
		"results":       results,
	}
	execCtx.BlockStates[parallelID] = BlockState{Output: Ok(output), Executed: true}
	execCtx.ExecutedBlocks[parallelID] = true
	execCtx.CompletedLoops[parallelID] = true

	for _, c := range pm.graph.OutgoingConnections(parallelID) {
		if c.SourceHandle != HandleParallelEnd {
			continue
		}
		execCtx.ActiveExecutionPath[c.Target] = true
	}
}

// SetupIterationContext is called before executing a virtual block so the
// InputResolver sees iteration-specific loop/parallel context — in
// particular it stores the parallel's Distribution item (if any) for this
// iteration at execCtx.LoopItems[parallelID] (spec.md §4.1.1 step 1). The
// resolver's "<name.currentItem>" reference looks up loops only and does
// not read this key.
func (pm *ParallelManager) SetupIterationContext(parallelID string, iteration int, execCtx *ExecutionContext) {
	parallel, ok := pm.graph.Parallels[parallelID]
	if !ok {
		return
	}
	if parallel.Distribution == nil {
		return
	}
	item := currentItemAt(parallel.Distribution, iteration)
	execCtx.LoopItems[parallelID] = item
}
