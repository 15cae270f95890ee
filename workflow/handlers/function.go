package handlers

import (
	"context"
	"fmt"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/expreval"
)

// FunctionSandbox evaluates block.Config["code"] against resolved inputs.
// This engine implements it as an interface rather than a concrete
// untrusted-code runtime: real isolation (subprocess, WASM, gVisor) is out
// of scope per spec.md §1, so exprSandbox below is the only implementation
// shipped.
type FunctionSandbox interface {
	Run(ctx context.Context, code string, inputs map[string]any) (any, error)
}

// FunctionHandler dispatches block.Config["code"] to a FunctionSandbox and
// wraps its result as the block's output under "result" (spec.md §4.9).
type FunctionHandler struct {
	Sandbox FunctionSandbox
}

func (FunctionHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindFunction
}

func (h *FunctionHandler) Execute(ctx context.Context, block workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	code, _ := block.Config["code"].(string)
	if code == "" {
		return workflow.HandlerOutput{}, fmt.Errorf("handlers: function block %s has no code configured", block.ID)
	}

	result, err := h.Sandbox.Run(ctx, code, inputs)
	if err != nil {
		errOut := workflow.Err(err.Error(), 0)
		return workflow.HandlerOutput{Output: &errOut}, nil
	}

	out := workflow.Ok(map[string]any{"result": result})
	return workflow.HandlerOutput{Output: &out}, nil
}

// exprSandbox evaluates function code as a single expr-lang expression — no
// loops, no statements, just the same expression language the
// router/condition/evaluator handlers already embed.
type exprSandbox struct {
	eval *expreval.Evaluator
}

func (s *exprSandbox) Run(_ context.Context, code string, inputs map[string]any) (any, error) {
	return s.eval.EvaluateValue(code, inputs)
}
