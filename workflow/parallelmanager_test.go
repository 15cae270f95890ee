package workflow

import "testing"

func simpleParallelGraph() *WorkflowGraph {
	return &WorkflowGraph{
		Blocks: []Block{
			{ID: "parallel1", Kind: KindParallel},
			{ID: "body", Kind: KindGeneric},
		},
		Connections: []Connection{
			{Source: "parallel1", Target: "body", SourceHandle: HandleParallelStart},
		},
		Parallels: map[string]Parallel{
			"parallel1": {ID: "parallel1", Nodes: []string{"body"}, Count: 3},
		},
	}
}

func TestParallelManager_EnsureInitialized(t *testing.T) {
	graph := simpleParallelGraph()
	pm := NewParallelManager(graph)
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)

	if err := pm.EnsureInitialized("parallel1", execCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := execCtx.ParallelExecutions["parallel1"]
	if state == nil || state.ParallelCount != 3 {
		t.Fatalf("expected ParallelCount=3, got %+v", state)
	}
	for i := 0; i < 3; i++ {
		vid := GenerateVirtualID("body", "parallel1", i)
		if _, ok := execCtx.ParallelBlockMapping[vid]; !ok {
			t.Errorf("expected a mapping entry for %s", vid)
		}
	}

	// A second call is a no-op (the teacher's "only seed once" contract).
	if err := pm.EnsureInitialized("parallel1", execCtx); err != nil {
		t.Fatalf("unexpected error on re-init: %v", err)
	}
	if execCtx.ParallelExecutions["parallel1"] != state {
		t.Fatalf("expected EnsureInitialized to leave existing state untouched")
	}
}

func TestParallelManager_EnsureInitialized_FromDistribution(t *testing.T) {
	graph := &WorkflowGraph{
		Blocks: []Block{{ID: "parallel1", Kind: KindParallel}},
		Parallels: map[string]Parallel{
			"parallel1": {ID: "parallel1", Distribution: []any{"a", "b"}},
		},
	}
	pm := NewParallelManager(graph)
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	if err := pm.EnsureInitialized("parallel1", execCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if execCtx.ParallelExecutions["parallel1"].ParallelCount != 2 {
		t.Fatalf("expected count derived from Distribution length, got %d", execCtx.ParallelExecutions["parallel1"].ParallelCount)
	}
}

func TestParallelManager_ProcessParallelBlocks(t *testing.T) {
	graph := simpleParallelGraph()
	pm := NewParallelManager(graph)
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	if err := pm.EnsureInitialized("parallel1", execCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ready := pm.ProcessParallelBlocks("parallel1", execCtx)
	if len(ready) != 3 {
		t.Fatalf("expected all 3 iterations' body instances ready, got %v", ready)
	}

	// Mark one iteration's body as executed; it should drop out of ready.
	vid0 := GenerateVirtualID("body", "parallel1", 0)
	execCtx.ExecutedBlocks[vid0] = true
	ready = pm.ProcessParallelBlocks("parallel1", execCtx)
	if len(ready) != 2 {
		t.Fatalf("expected 2 remaining ready instances, got %v", ready)
	}
}

func TestParallelManager_IsActive(t *testing.T) {
	graph := simpleParallelGraph()
	pm := NewParallelManager(graph)
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)

	if pm.IsActive("parallel1", execCtx) {
		t.Fatalf("expected inactive before initialization")
	}
	if err := pm.EnsureInitialized("parallel1", execCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pm.IsActive("parallel1", execCtx) {
		t.Fatalf("expected active once initialized with a positive iteration count")
	}
	execCtx.CompletedLoops["parallel1"] = true
	if pm.IsActive("parallel1", execCtx) {
		t.Fatalf("expected inactive once completed")
	}
}

func TestParallelManager_ProcessParallelIterations_Completion(t *testing.T) {
	graph := simpleParallelGraph()
	graph.Parallels["parallel1"] = Parallel{ID: "parallel1", Nodes: []string{"body"}, Count: 2}
	graph.Connections = append(graph.Connections, Connection{Source: "parallel1", Target: "after", SourceHandle: HandleParallelEnd})
	graph.Blocks = append(graph.Blocks, Block{ID: "after", Kind: KindGeneric})

	pm := NewParallelManager(graph)
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	if err := pm.EnsureInitialized("parallel1", execCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		vid := GenerateVirtualID("body", "parallel1", i)
		execCtx.ExecutedBlocks[vid] = true
		execCtx.BlockStates[vid] = BlockState{Output: Ok(map[string]any{"i": i}), Executed: true}
	}

	pm.ProcessParallelIterations(execCtx)

	if !execCtx.CompletedLoops["parallel1"] {
		t.Fatalf("expected parallel1 to complete once every iteration's body executed")
	}
	if !execCtx.ActiveExecutionPath["after"] {
		t.Fatalf("expected the parallel-end-source edge to activate on completion")
	}
	out := execCtx.BlockStates["parallel1"].Output.Data
	if out["parallelCount"] != 2 {
		t.Fatalf("expected parallelCount=2, got %v", out["parallelCount"])
	}
	results, ok := out["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 aggregated results, got %v", out["results"])
	}
}

func TestParallelManager_SetupIterationContext(t *testing.T) {
	graph := &WorkflowGraph{
		Parallels: map[string]Parallel{
			"parallel1": {ID: "parallel1", Distribution: []any{"a", "b", "c"}},
		},
	}
	pm := NewParallelManager(graph)
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)

	pm.SetupIterationContext("parallel1", 1, execCtx)
	if execCtx.LoopItems["parallel1"] != "b" {
		t.Fatalf("expected iteration 1's distribution item 'b', got %v", execCtx.LoopItems["parallel1"])
	}
}
