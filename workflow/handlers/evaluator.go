package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/expreval"
)

// EvaluatorHandler scores or asserts against resolved inputs using
// block.Config["expression"], sharing the condition handler's expression
// evaluator (spec.md §4.9). Unlike RouterHandler/ConditionHandler it
// returns the raw expression value rather than forcing a boolean, so it
// can express both pass/fail assertions and numeric scores.
type EvaluatorHandler struct {
	eval *expreval.Evaluator
}

func (EvaluatorHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindEvaluator
}

func (h *EvaluatorHandler) Execute(_ context.Context, block workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	expression, _ := block.Config["expression"].(string)

	value, err := h.eval.EvaluateValue(expression, inputs)
	if err != nil {
		errOut := workflow.Err(err.Error(), 0)
		return workflow.HandlerOutput{Output: &errOut}, nil
	}

	data := map[string]any{"value": value}
	if passed, ok := value.(bool); ok {
		data["passed"] = passed
	}

	out := workflow.Ok(data)
	return workflow.HandlerOutput{Output: &out}, nil
}
