package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
)

// WaitHandler records why a workflow is pausing at this block. The
// scheduler itself forces execCtx.ShouldPauseAfterBlock once a wait block
// succeeds (workflow/scheduler.go); this handler only has to populate the
// WaitBlockInfo the resumed run later reads (spec.md §4.6, §4.9).
type WaitHandler struct{}

func (WaitHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindWait
}

func (WaitHandler) Execute(_ context.Context, block workflow.Block, inputs map[string]any, execCtx *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	reason, _ := block.Config["reason"].(string)

	execCtx.WaitBlockInfo = &workflow.WaitBlockInfo{
		BlockID: block.ID,
		Reason:  reason,
		Resume:  inputs,
	}

	out := workflow.Ok(inputs)
	return workflow.HandlerOutput{Output: &out}, nil
}
