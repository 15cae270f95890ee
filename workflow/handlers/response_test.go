package handlers

import (
	"context"
	"testing"

	"github.com/you112ef/workflow-engine/workflow"
)

func TestResponseHandler_Execute(t *testing.T) {
	h := ResponseHandler{}

	t.Run("passes through inputs with no fields config", func(t *testing.T) {
		inputs := map[string]any{"a": 1, "b": 2}
		out, err := h.Execute(context.Background(), workflow.Block{Kind: workflow.KindResponse}, inputs, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Output.Data) != 2 {
			t.Fatalf("expected passthrough of all inputs, got %v", out.Output.Data)
		}
	})

	t.Run("projects only configured fields", func(t *testing.T) {
		block := workflow.Block{Kind: workflow.KindResponse, Config: map[string]any{"fields": []any{"a"}}}
		inputs := map[string]any{"a": 1, "b": 2}
		out, err := h.Execute(context.Background(), block, inputs, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Output.Data) != 1 || out.Output.Data["a"] != 1 {
			t.Fatalf("expected only field a, got %v", out.Output.Data)
		}
	})
}
