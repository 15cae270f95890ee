package handlers

import (
	"context"
	"testing"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/expreval"
)

func TestEvaluatorHandler_Execute(t *testing.T) {
	h := &EvaluatorHandler{eval: expreval.New()}

	t.Run("boolean expression sets passed", func(t *testing.T) {
		block := workflow.Block{Kind: workflow.KindEvaluator, Config: map[string]any{"expression": "score >= 80"}}
		out, err := h.Execute(context.Background(), block, map[string]any{"score": 90}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Output.Data["passed"] != true {
			t.Fatalf("expected passed=true, got %v", out.Output.Data["passed"])
		}
	})

	t.Run("numeric expression omits passed", func(t *testing.T) {
		block := workflow.Block{Kind: workflow.KindEvaluator, Config: map[string]any{"expression": "score * 2"}}
		out, err := h.Execute(context.Background(), block, map[string]any{"score": 5}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Output.Data["value"] != 10 {
			t.Fatalf("expected value=10, got %v", out.Output.Data["value"])
		}
		if _, ok := out.Output.Data["passed"]; ok {
			t.Fatalf("did not expect passed key for numeric result")
		}
	})
}
