package workflow

import "testing"

func TestBlockKind_IsTrigger(t *testing.T) {
	cases := map[BlockKind]bool{
		KindAPITrigger:   true,
		KindInputTrigger: true,
		KindChatTrigger:  true,
		KindStarter:      false,
		KindAgent:        false,
	}
	for kind, want := range cases {
		if got := kind.IsTrigger(); got != want {
			t.Errorf("%s.IsTrigger() = %v, want %v", kind, got, want)
		}
	}
}

func TestConditionHandleRoundTrip(t *testing.T) {
	handle := ConditionHandle("clause-1")
	if handle != "condition-clause-1" {
		t.Fatalf("unexpected handle: %q", handle)
	}
	id, ok := ConditionIDFromHandle(handle)
	if !ok || id != "clause-1" {
		t.Fatalf("expected (clause-1, true), got (%q, %v)", id, ok)
	}
}

func TestConditionIDFromHandle_NotACondition(t *testing.T) {
	if _, ok := ConditionIDFromHandle("error"); ok {
		t.Fatalf("expected ok=false for a non-condition handle")
	}
	if _, ok := ConditionIDFromHandle("condition-"); ok {
		t.Fatalf("expected ok=false when no clause id follows the prefix")
	}
}

func testGraph() *WorkflowGraph {
	return &WorkflowGraph{
		ID: "g",
		Blocks: []Block{
			{ID: "a", Kind: KindGeneric},
			{ID: "b", Kind: KindGeneric},
			{ID: "c", Kind: KindGeneric},
		},
		Connections: []Connection{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "a", Target: "c", SourceHandle: HandleError},
		},
		Loops: map[string]Loop{
			"loop1": {ID: "loop1", Nodes: []string{"b"}},
		},
		Parallels: map[string]Parallel{
			"par1": {ID: "par1", Nodes: []string{"c"}},
		},
	}
}

func TestWorkflowGraph_BlockByID(t *testing.T) {
	g := testGraph()
	b, ok := g.BlockByID("b")
	if !ok || b.ID != "b" {
		t.Fatalf("expected to find block b, got %+v, %v", b, ok)
	}
	if _, ok := g.BlockByID("missing"); ok {
		t.Fatalf("expected ok=false for an unknown id")
	}
}

func TestWorkflowGraph_OutgoingIncomingConnections(t *testing.T) {
	g := testGraph()
	out := g.OutgoingConnections("a")
	if len(out) != 2 {
		t.Fatalf("expected 2 outgoing connections from a, got %d", len(out))
	}
	in := g.IncomingConnections("c")
	if len(in) != 2 {
		t.Fatalf("expected 2 incoming connections to c, got %d", len(in))
	}
}

func TestWorkflowGraph_LoopsContaining(t *testing.T) {
	g := testGraph()
	ids := g.loopsContaining("b")
	if len(ids) != 1 || ids[0] != "loop1" {
		t.Fatalf("expected [loop1], got %v", ids)
	}
	if ids := g.loopsContaining("a"); len(ids) != 0 {
		t.Fatalf("expected no loops containing a, got %v", ids)
	}
}

func TestWorkflowGraph_ParallelContaining(t *testing.T) {
	g := testGraph()
	id, ok := g.parallelContaining("c")
	if !ok || id != "par1" {
		t.Fatalf("expected (par1, true), got (%q, %v)", id, ok)
	}
	if _, ok := g.parallelContaining("a"); ok {
		t.Fatalf("expected ok=false for a block outside any parallel")
	}
}
