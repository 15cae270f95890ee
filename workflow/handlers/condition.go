package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/expreval"
)

// ConditionHandler evaluates block.Config["conditions"] (an ordered list of
// {id, expression}) and emits the id of the first clause whose expression
// is true (spec.md §4.9).
type ConditionHandler struct {
	eval *expreval.Evaluator
}

func (ConditionHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindCondition
}

func (h *ConditionHandler) Execute(_ context.Context, block workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	conditions := configList(block.Config, "conditions")

	for _, clause := range conditions {
		id, _ := clause["id"].(string)
		if id == "" {
			continue
		}
		expression, _ := clause["expression"].(string)
		matched, err := h.eval.EvaluateBool(expression, inputs)
		if err != nil {
			errOut := workflow.Err(err.Error(), 0)
			return workflow.HandlerOutput{Output: &errOut}, nil
		}
		if matched {
			out := workflow.Ok(map[string]any{"selectedConditionId": id})
			return workflow.HandlerOutput{Output: &out}, nil
		}
	}

	out := workflow.Ok(map[string]any{"selectedConditionId": ""})
	return workflow.HandlerOutput{Output: &out}, nil
}
