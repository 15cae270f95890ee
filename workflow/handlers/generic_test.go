package handlers

import (
	"context"
	"testing"

	"github.com/you112ef/workflow-engine/workflow"
)

func TestGenericHandler_CanHandleAnything(t *testing.T) {
	h := GenericHandler{}
	for _, kind := range []workflow.BlockKind{workflow.KindAgent, workflow.KindWait, "made_up_kind"} {
		if !h.CanHandle(workflow.Block{Kind: kind}) {
			t.Fatalf("expected CanHandle true for kind %q", kind)
		}
	}

	out, err := h.Execute(context.Background(), workflow.Block{Kind: "made_up_kind"}, map[string]any{"x": 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Output.Data["x"] != 1 {
		t.Fatalf("expected passthrough, got %v", out.Output.Data)
	}
}
