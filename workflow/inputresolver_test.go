package workflow

import (
	"context"
	"testing"
)

func resolverGraph() *WorkflowGraph {
	return &WorkflowGraph{
		Blocks: []Block{
			{ID: "start", Kind: KindStarter, Metadata: map[string]any{"name": "Start"}},
			{ID: "a", Kind: KindGeneric, Metadata: map[string]any{"name": "Agent A"}},
		},
		Loops: map[string]Loop{
			"loop1": {ID: "loop1", Nodes: []string{"a"}},
		},
	}
}

func TestDefaultInputResolver_ResolveWholeValueReference(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	execCtx.BlockStates["start"] = BlockState{Output: Ok(map[string]any{"prompt": "hello", "meta": map[string]any{"n": 1}}), Executed: true}

	block := Block{ID: "a", Config: map[string]any{
		"inputs": map[string]any{"text": "<start.prompt>", "meta": "<start.meta>"},
	}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["text"] != "hello" {
		t.Fatalf("expected 'hello', got %v", resolved["text"])
	}
	meta, ok := resolved["meta"].(map[string]any)
	if !ok || meta["n"] != float64(1) {
		t.Fatalf("expected structured meta preserved, got %v", resolved["meta"])
	}
}

func TestDefaultInputResolver_ResolveEmbeddedReference(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	execCtx.BlockStates["start"] = BlockState{Output: Ok(map[string]any{"name": "Ada"}), Executed: true}

	block := Block{ID: "a", Config: map[string]any{
		"inputs": map[string]any{"greeting": "Hello, <start.name>!"},
	}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["greeting"] != "Hello, Ada!" {
		t.Fatalf("expected interpolated string, got %v", resolved["greeting"])
	}
}

func TestDefaultInputResolver_ResolveByFriendlyName(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	execCtx.BlockStates["start"] = BlockState{Output: Ok(map[string]any{"x": 1}), Executed: true}

	block := Block{ID: "a", Config: map[string]any{
		"inputs": map[string]any{"v": "<Start.x>"},
	}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["v"] != float64(1) {
		t.Fatalf("expected 1, got %v", resolved["v"])
	}
}

func TestDefaultInputResolver_EnvAndWorkflowVariables(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", map[string]any{"API_KEY": "secret"}, map[string]any{"retries": 3})

	block := Block{ID: "a", Config: map[string]any{
		"inputs": map[string]any{"key": "<env.API_KEY>", "retries": "<workflow.retries>"},
	}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["key"] != "secret" {
		t.Fatalf("expected 'secret', got %v", resolved["key"])
	}
	if resolved["retries"] != 3 {
		t.Fatalf("expected 3, got %v", resolved["retries"])
	}
}

func TestDefaultInputResolver_CurrentItem(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)
	execCtx.LoopItems["loop1"] = "apple"

	block := Block{ID: "a", Config: map[string]any{
		"inputs": map[string]any{"item": "<loop1.currentItem>"},
	}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["item"] != "apple" {
		t.Fatalf("expected 'apple', got %v", resolved["item"])
	}
}

func TestDefaultInputResolver_MissingReferenceResolvesNil(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)

	block := Block{ID: "a", Config: map[string]any{
		"inputs": map[string]any{"v": "<start.missing>"},
	}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["v"] != nil {
		t.Fatalf("expected nil for an unresolved whole-value reference, got %v", resolved["v"])
	}
}

func TestDefaultInputResolver_FallsBackToFullConfigWithoutInputsKey(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)

	block := Block{ID: "a", Config: map[string]any{"prompt": "static value"}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["prompt"] != "static value" {
		t.Fatalf("expected the whole Config to be treated as the input source, got %v", resolved)
	}
}

func TestDefaultInputResolver_ParallelIterationPrefersVirtualSource(t *testing.T) {
	graph := resolverGraph()
	r := NewDefaultInputResolver(graph, "start")
	execCtx := NewExecutionContext("e", "w", "g", nil, nil)

	vid := GenerateVirtualID("start", "par1", 1)
	execCtx.BlockStates["start"] = BlockState{Output: Ok(map[string]any{"x": "global"}), Executed: true}
	execCtx.BlockStates[vid] = BlockState{Output: Ok(map[string]any{"x": "iteration-1"}), Executed: true}
	execCtx.CurrentVirtualBlockID = GenerateVirtualID("a", "par1", 1)

	block := Block{ID: "a", Config: map[string]any{"inputs": map[string]any{"v": "<start.x>"}}}
	resolved, err := r.ResolveInputs(context.Background(), block, execCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["v"] != "iteration-1" {
		t.Fatalf("expected the iteration-scoped value, got %v", resolved["v"])
	}
}
