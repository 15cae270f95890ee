package workflow

import (
	"encoding/json"
	"fmt"
)

// LoopManager detects when all reachable blocks in a loop body have
// executed, increments the iteration counter, resets the loop body for the
// next pass, and emits the loop's aggregate output on completion
// (spec.md §4.3).
type LoopManager struct {
	graph *WorkflowGraph
}

// NewLoopManager builds a manager bound to graph.
func NewLoopManager(graph *WorkflowGraph) *LoopManager {
	return &LoopManager{graph: graph}
}

// ProcessLoopIterations advances every non-completed loop whose loop block
// has executed. Called once per scheduler tick, after layer execution.
func (lm *LoopManager) ProcessLoopIterations(execCtx *ExecutionContext) error {
	for loopID, loop := range lm.graph.Loops {
		if execCtx.CompletedLoops[loopID] {
			continue
		}
		if !execCtx.ExecutedBlocks[loopID] {
			continue
		}
		if !lm.allBlocksInLoopExecuted(loop, execCtx) {
			continue
		}
		if err := lm.advance(loopID, loop, execCtx); err != nil {
			return err
		}
	}
	return nil
}

// allBlocksInLoopExecuted performs the reachability-aware completion check
// of spec.md §4.3 step 1: BFS the loop's subgraph from its internal entry
// points (nodes with no internal incoming edge but at least one external
// incoming edge), honoring router/condition decisions and error-edge
// semantics; completely unconnected nodes don't block completion.
func (lm *LoopManager) allBlocksInLoopExecuted(loop Loop, execCtx *ExecutionContext) bool {
	nodeSet := make(map[string]bool, len(loop.Nodes))
	for _, n := range loop.Nodes {
		nodeSet[n] = true
	}

	internalIncoming := make(map[string]int)
	hasExternalIncoming := make(map[string]bool)
	for _, n := range loop.Nodes {
		for _, c := range lm.graph.IncomingConnections(n) {
			if nodeSet[c.Source] {
				internalIncoming[n]++
			} else {
				hasExternalIncoming[n] = true
			}
		}
	}

	var entryPoints []string
	connected := make(map[string]bool)
	for _, n := range loop.Nodes {
		hasAnyConnection := internalIncoming[n] > 0 || hasExternalIncoming[n] || len(lm.graph.OutgoingConnections(n)) > 0
		if !hasAnyConnection {
			continue // unconnected node: ignored entirely
		}
		connected[n] = true
		if internalIncoming[n] == 0 {
			entryPoints = append(entryPoints, n)
		}
	}

	reached := make(map[string]bool)
	queue := append([]string{}, entryPoints...)
	for _, n := range queue {
		reached[n] = true
	}
	for i := 0; i < len(queue); i++ {
		current := queue[i]
		if !execCtx.ExecutedBlocks[current] {
			continue // not executed yet: don't traverse past it
		}
		state := execCtx.BlockStates[current]
		for _, c := range lm.graph.OutgoingConnections(current) {
			if !nodeSet[c.Target] {
				continue
			}
			if !lm.edgeActive(current, c, state, execCtx) {
				continue
			}
			if reached[c.Target] {
				continue
			}
			reached[c.Target] = true
			queue = append(queue, c.Target)
		}
	}

	for n := range connected {
		if !execCtx.ExecutedBlocks[n] {
			// Only a problem if the node was actually reached by the BFS;
			// nodes the BFS never reached (because an upstream decision
			// excluded them) are not required to execute.
			if reached[n] {
				return false
			}
		}
	}
	return true
}

func (lm *LoopManager) edgeActive(source string, c Connection, state BlockState, execCtx *ExecutionContext) bool {
	block, ok := lm.graph.BlockByID(source)
	if !ok {
		return true
	}
	switch block.Kind {
	case KindRouter:
		return execCtx.Decisions.Router[source] == c.Target
	case KindCondition:
		clause, ok := ConditionIDFromHandle(c.SourceHandle)
		if !ok {
			return true
		}
		return execCtx.Decisions.Condition[source] == clause
	default:
		if c.SourceHandle == HandleError {
			return state.Output.IsError()
		}
		return !state.Output.IsError()
	}
}

// maxIterations determines the iteration cap for loop: loop.Iterations for
// `for` loops, or the length of the (possibly JSON-encoded) forEach items
// collection.
func (lm *LoopManager) maxIterations(loop Loop, execCtx *ExecutionContext) (int, error) {
	if loop.LoopType == LoopFor {
		return loop.Iterations, nil
	}

	itemsKey := loop.ID + "_items"
	if frozen, ok := execCtx.LoopItems[itemsKey]; ok {
		return collectionLength(frozen)
	}

	items, err := normalizeForEachItems(loop.ForEachItems)
	if err != nil {
		return 0, err
	}
	execCtx.LoopItems[itemsKey] = items
	return collectionLength(items)
}

func normalizeForEachItems(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("workflow: forEach items string is not valid JSON: %w", err)
		}
		return parsed, nil
	default:
		return raw, nil
	}
}

func collectionLength(v any) (int, error) {
	switch t := v.(type) {
	case []any:
		return len(t), nil
	case map[string]any:
		return len(t), nil
	default:
		return 0, fmt.Errorf("workflow: forEach items must be an array or object")
	}
}

// currentItemAt returns the i-th (0-based) item of a forEach collection,
// preserving key order for object collections via sorted keys.
func currentItemAt(items any, i int) any {
	switch t := items.(type) {
	case []any:
		if i < 0 || i >= len(t) {
			return nil
		}
		return t[i]
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sortStrings(keys)
		if i < 0 || i >= len(keys) {
			return nil
		}
		return t[keys[i]]
	default:
		return nil
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// advance either completes loopID (emitting its aggregate output and
// activating loop-end-source edges) or increments its iteration counter and
// resets the loop body for another pass (spec.md §4.3 steps 3-4).
func (lm *LoopManager) advance(loopID string, loop Loop, execCtx *ExecutionContext) error {
	current := execCtx.LoopIterations[loopID]
	if current == 0 {
		current = 1
		execCtx.LoopIterations[loopID] = 1
	}

	lm.storeIterationResult(loopID, current, execCtx)

	maxIter, err := lm.maxIterations(loop, execCtx)
	if err != nil {
		return err
	}

	if current >= maxIter {
		lm.complete(loopID, loop, current, maxIter, execCtx)
		return nil
	}

	next := current + 1
	execCtx.LoopIterations[loopID] = next
	if loop.LoopType == LoopForEach {
		items := execCtx.LoopItems[loop.ID+"_items"]
		execCtx.LoopItems[loopID] = currentItemAt(items, next-1)
	}

	for _, n := range loop.Nodes {
		delete(execCtx.ExecutedBlocks, n)
		delete(execCtx.BlockStates, n)
		delete(execCtx.ActiveExecutionPath, n)
		delete(execCtx.Decisions.Router, n)
		delete(execCtx.Decisions.Condition, n)
	}
	delete(execCtx.ExecutedBlocks, loopID)
	delete(execCtx.BlockStates, loopID)
	return nil
}

func (lm *LoopManager) storeIterationResult(loopID string, iteration int, execCtx *ExecutionContext) {
	key := fmt.Sprintf("iteration_%d", iteration-1)

	resultsKey := loopID + "_results"
	raw, _ := execCtx.LoopItems[resultsKey].(map[string]any)
	if raw == nil {
		raw = map[string]any{}
	}

	// Collect the body's outputs for this iteration from block states.
	bodyOutput := map[string]any{}
	for _, n := range lm.loopNodesOf(loopID) {
		if st, ok := execCtx.BlockStates[n]; ok && st.Executed {
			bodyOutput[n] = st.Output.Data
		}
	}

	if existing, ok := raw[key]; ok {
		switch e := existing.(type) {
		case []any:
			raw[key] = append(e, bodyOutput)
		default:
			raw[key] = []any{e, bodyOutput}
		}
	} else {
		raw[key] = bodyOutput
	}
	execCtx.LoopItems[resultsKey] = raw
}

func (lm *LoopManager) loopNodesOf(loopID string) []string {
	if l, ok := lm.graph.Loops[loopID]; ok {
		return l.Nodes
	}
	return nil
}

func (lm *LoopManager) complete(loopID string, loop Loop, finalIteration, maxIter int, execCtx *ExecutionContext) {
	resultsKey := loopID + "_results"
	raw, _ := execCtx.LoopItems[resultsKey].(map[string]any)

	results := make([]any, 0, maxIter)
	for i := 0; i < maxIter; i++ {
		key := fmt.Sprintf("iteration_%d", i)
		if v, ok := raw[key]; ok {
			results = append(results, v)
		} else {
			results = append(results, nil)
		}
	}

	output := map[string]any{
		"loopId":        loopID,
		"currentIteration": finalIteration - 1,
		"maxIterations": maxIter,
		"loopType":      string(loop.LoopType),
		"completed":     true,
		"results":       results,
		"message":       fmt.Sprintf("loop %s completed %d iterations", loopID, maxIter),
	}

	execCtx.BlockStates[loopID] = BlockState{Output: Ok(output), Executed: true}
	execCtx.ExecutedBlocks[loopID] = true
	execCtx.CompletedLoops[loopID] = true

	for _, c := range lm.graph.OutgoingConnections(loopID) {
		if c.SourceHandle != HandleLoopEndSource {
			continue
		}
		execCtx.ActiveExecutionPath[c.Target] = true
	}
}

// IsFeedbackPath reports whether c is a feedback edge: its source belongs
// to some loop and its target is that loop's own block (spec.md §4.3).
func (lm *LoopManager) IsFeedbackPath(c Connection) bool {
	for _, loopID := range lm.graph.loopsContaining(c.Source) {
		if c.Target == loopID {
			return true
		}
	}
	return false
}

// CurrentItem returns the current forEach item for loopID, used by
// InputResolver via ExecutionContext.LoopItems[loopID].
func (lm *LoopManager) CurrentItem(loopID string, execCtx *ExecutionContext) (any, bool) {
	v, ok := execCtx.LoopItems[loopID]
	return v, ok
}
