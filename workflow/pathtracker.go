package workflow

// PathTracker maintains ExecutionContext.ActiveExecutionPath in response to
// executed blocks (spec.md §4.2).
type PathTracker struct {
	graph *WorkflowGraph
}

// NewPathTracker builds a tracker bound to graph.
func NewPathTracker(graph *WorkflowGraph) *PathTracker {
	return &PathTracker{graph: graph}
}

// IsInActivePath reports whether blockID is reachable given decisions
// recorded so far.
func (pt *PathTracker) IsInActivePath(blockID string, execCtx *ExecutionContext) bool {
	if execCtx.ActiveExecutionPath[blockID] {
		return true
	}
	for _, c := range pt.graph.IncomingConnections(blockID) {
		if pt.sourceActivates(c, execCtx) {
			return true
		}
	}
	return false
}

func (pt *PathTracker) sourceActivates(c Connection, execCtx *ExecutionContext) bool {
	src, ok := pt.graph.BlockByID(c.Source)
	if !ok {
		return false
	}
	if !execCtx.ActiveExecutionPath[c.Source] {
		return false
	}
	if !execCtx.ExecutedBlocks[c.Source] {
		return false
	}
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
		return true
	}
}

// UpdateExecutionPaths processes every newly-executed effective id and
// activates the downstream targets its routing/flow-control decisions
// imply (spec.md §4.2).
func (pt *PathTracker) UpdateExecutionPaths(executedIDs []string, execCtx *ExecutionContext) {
	for _, effID := range executedIDs {
		originalID := ExtractOriginalID(effID)
		block, ok := pt.graph.BlockByID(originalID)
		if !ok {
			continue
		}

		switch block.Kind {
		case KindRouter:
			pt.activateRouter(block.ID, effID, execCtx)
		case KindCondition:
			pt.activateCondition(block.ID, effID, execCtx)
		case KindLoop:
			pt.activateHandleOnly(block.ID, HandleLoopStartSource, execCtx)
		case KindParallel:
			pt.activateHandleOnly(block.ID, HandleParallelStart, execCtx)
		default:
			pt.activateRegular(block, effID, execCtx)
		}
	}
}

func (pt *PathTracker) activateRouter(blockID, effID string, execCtx *ExecutionContext) {
	state, ok := execCtx.BlockStates[effID]
	if !ok || state.Output.IsError() {
		return
	}
	selected, ok := state.Output.Data["selectedPath"].(map[string]any)
	if !ok {
		return
	}
	target, ok := selected["blockId"].(string)
	if !ok || target == "" {
		return
	}
	if _, recorded := execCtx.Decisions.Router[effID]; !recorded {
		execCtx.Decisions.Router[effID] = target
	}
	if execCtx.ActiveExecutionPath[target] {
		return
	}
	execCtx.ActiveExecutionPath[target] = true
}

func (pt *PathTracker) activateCondition(blockID, effID string, execCtx *ExecutionContext) {
	state, ok := execCtx.BlockStates[effID]
	if !ok || state.Output.IsError() {
		return
	}
	selected, _ := state.Output.Data["selectedConditionId"].(string)
	if selected == "" {
		return
	}
	execCtx.Decisions.Condition[effID] = selected
	wantHandle := ConditionHandle(selected)
	for _, c := range pt.graph.OutgoingConnections(blockID) {
		if c.SourceHandle != wantHandle {
			continue
		}
		if execCtx.ActiveExecutionPath[c.Target] {
			continue
		}
		execCtx.ActiveExecutionPath[c.Target] = true
	}
}

// activateHandleOnly activates only the outgoing edges of blockID carrying
// the given source handle (used for loop-start-source / parallel-start-source,
// since loop-end-source / parallel-end-source are owned by the
// LoopManager/ParallelManager).
func (pt *PathTracker) activateHandleOnly(blockID, handle string, execCtx *ExecutionContext) {
	for _, c := range pt.graph.OutgoingConnections(blockID) {
		if c.SourceHandle != handle {
			continue
		}
		if execCtx.ActiveExecutionPath[c.Target] {
			continue
		}
		execCtx.ActiveExecutionPath[c.Target] = true
	}
}

func (pt *PathTracker) activateRegular(block Block, effID string, execCtx *ExecutionContext) {
	state, ok := execCtx.BlockStates[effID]
	isError := ok && state.Output.IsError()

	for _, c := range pt.graph.OutgoingConnections(block.ID) {
		if c.SourceHandle == HandleError && !isError {
			continue
		}
		if c.SourceHandle != HandleError && isError {
			continue
		}
		if !pt.externalEdgeAllowed(block.ID, c.Target, execCtx) {
			continue
		}
		if execCtx.ActiveExecutionPath[c.Target] {
			continue
		}
		execCtx.ActiveExecutionPath[c.Target] = true
	}
}

// externalEdgeAllowed implements the loop-scope rule: an edge leaving every
// loop that contains source is only allowed to activate once every
// containing loop has completed.
func (pt *PathTracker) externalEdgeAllowed(source, target string, execCtx *ExecutionContext) bool {
	sourceLoops := pt.graph.loopsContaining(source)
	if len(sourceLoops) == 0 {
		return true
	}
	targetLoops := map[string]bool{}
	for _, l := range pt.graph.loopsContaining(target) {
		targetLoops[l] = true
	}
	for _, l := range sourceLoops {
		if !targetLoops[l] && !execCtx.CompletedLoops[l] {
			return false
		}
	}
	return true
}
