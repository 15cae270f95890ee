package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/expreval"
)

// RouterHandler evaluates block.Config["routes"] (an ordered list of
// {targetBlockId, condition}) and selects the first whose condition is true
// or empty (spec.md §4.9).
type RouterHandler struct {
	eval *expreval.Evaluator
}

func (RouterHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindRouter
}

func (h *RouterHandler) Execute(_ context.Context, block workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	routes := configList(block.Config, "routes")

	for _, route := range routes {
		target, _ := route["targetBlockId"].(string)
		if target == "" {
			continue
		}
		condition, _ := route["condition"].(string)
		matched, err := h.eval.EvaluateBool(condition, inputs)
		if err != nil {
			errOut := workflow.Err(err.Error(), 0)
			return workflow.HandlerOutput{Output: &errOut}, nil
		}
		if matched {
			out := workflow.Ok(map[string]any{"selectedPath": map[string]any{"blockId": target}})
			return workflow.HandlerOutput{Output: &out}, nil
		}
	}

	out := workflow.Ok(map[string]any{"selectedPath": nil})
	return workflow.HandlerOutput{Output: &out}, nil
}
