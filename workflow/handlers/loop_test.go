package handlers

import (
	"context"
	"testing"

	"github.com/you112ef/workflow-engine/workflow"
)

func TestLoopHandler_Execute(t *testing.T) {
	h := LoopHandler{}
	if !h.CanHandle(workflow.Block{Kind: workflow.KindLoop}) {
		t.Fatalf("expected CanHandle true for loop")
	}
	inputs := map[string]any{"item": "x"}
	out, err := h.Execute(context.Background(), workflow.Block{Kind: workflow.KindLoop}, inputs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Output.Data["item"] != "x" {
		t.Fatalf("expected passthrough, got %v", out.Output.Data)
	}
}
