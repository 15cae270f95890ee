package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/you112ef/workflow-engine/workflow/store"
)

// toPausedState projects execCtx into the JSON-serializable shape store.Store
// persists, round-tripping through encoding/json so the store package never
// needs to import workflow's BlockState/ParallelExecutionState types
// directly (spec.md §4.1.9, SPEC_FULL.md §4.11).
func toPausedState(execCtx *ExecutionContext) (store.PausedState, error) {
	execCtx.Lock()
	defer execCtx.Unlock()

	blockStates, err := toAnyMap(execCtx.BlockStates)
	if err != nil {
		return store.PausedState{}, fmt.Errorf("workflow: encoding block states: %w", err)
	}
	loopItems, err := toAnyMap(execCtx.LoopItems)
	if err != nil {
		return store.PausedState{}, fmt.Errorf("workflow: encoding loop items: %w", err)
	}
	parallelExecs, err := toAnyMap(execCtx.ParallelExecutions)
	if err != nil {
		return store.PausedState{}, fmt.Errorf("workflow: encoding parallel executions: %w", err)
	}
	parallelMapping, err := toAnyMap(execCtx.ParallelBlockMapping)
	if err != nil {
		return store.PausedState{}, fmt.Errorf("workflow: encoding parallel block mapping: %w", err)
	}
	env, err := stringMap(execCtx.EnvironmentVariables)
	if err != nil {
		return store.PausedState{}, fmt.Errorf("workflow: encoding environment: %w", err)
	}

	var waitingBlockID string
	var waitUntil *time.Time
	if execCtx.WaitBlockInfo != nil {
		waitingBlockID = execCtx.WaitBlockInfo.BlockID
	}

	return store.PausedState{
		ExecutionID:          execCtx.ExecutionID,
		WorkflowID:           execCtx.WorkflowID,
		ExecutedBlocks:       cloneBoolMap(execCtx.ExecutedBlocks),
		BlockStates:          blockStates,
		ActiveExecutionPath:  cloneBoolMap(execCtx.ActiveExecutionPath),
		LoopIterations:       cloneIntMap(execCtx.LoopIterations),
		LoopItems:            loopItems,
		CompletedLoops:       cloneBoolMap(execCtx.CompletedLoops),
		ParallelExecutions:   parallelExecs,
		ParallelBlockMapping: parallelMapping,
		RouterDecisions:      cloneStringMap(execCtx.Decisions.Router),
		ConditionDecisions:   cloneStringMap(execCtx.Decisions.Condition),
		Variables:            execCtx.WorkflowVariables,
		Environment:          env,
		WaitingBlockID:       waitingBlockID,
		WaitUntil:            waitUntil,
		PausedAt:             time.Now(),
	}, nil
}

// fromPausedState reconstructs an ExecutionContext from persisted state so
// Executor.Resume can continue the layer loop as if it never paused.
func fromPausedState(ps store.PausedState) (*ExecutionContext, error) {
	execCtx := NewExecutionContext(ps.ExecutionID, "", ps.WorkflowID, anyMapToAny(ps.Environment), ps.Variables)

	blockStates, err := fromAnyMap[BlockState](ps.BlockStates)
	if err != nil {
		return nil, fmt.Errorf("workflow: decoding block states: %w", err)
	}
	execCtx.BlockStates = blockStates

	loopItems := map[string]any{}
	for k, v := range ps.LoopItems {
		loopItems[k] = v
	}
	execCtx.LoopItems = loopItems

	parallelExecs, err := fromAnyMap[*ParallelExecutionState](ps.ParallelExecutions)
	if err != nil {
		return nil, fmt.Errorf("workflow: decoding parallel executions: %w", err)
	}
	execCtx.ParallelExecutions = parallelExecs

	parallelMapping, err := fromAnyMap[ParallelBlockMapping](ps.ParallelBlockMapping)
	if err != nil {
		return nil, fmt.Errorf("workflow: decoding parallel block mapping: %w", err)
	}
	execCtx.ParallelBlockMapping = parallelMapping

	execCtx.ExecutedBlocks = cloneBoolMap(ps.ExecutedBlocks)
	execCtx.ActiveExecutionPath = cloneBoolMap(ps.ActiveExecutionPath)
	execCtx.LoopIterations = cloneIntMap(ps.LoopIterations)
	execCtx.CompletedLoops = cloneBoolMap(ps.CompletedLoops)
	execCtx.Decisions = RoutingDecisions{
		Router:    cloneStringMap(ps.RouterDecisions),
		Condition: cloneStringMap(ps.ConditionDecisions),
	}
	if ps.WaitingBlockID != "" {
		execCtx.WaitBlockInfo = &WaitBlockInfo{BlockID: ps.WaitingBlockID}
	}
	return execCtx, nil
}

func toAnyMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromAnyMap[T any](m map[string]any) (map[string]T, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := map[string]T{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringMap(m map[string]any) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			s = string(b)
		}
		out[k] = s
	}
	return out, nil
}

func anyMapToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
