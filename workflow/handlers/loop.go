package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
)

// LoopHandler is deliberately thin: LoopManager (workflow/loopmanager.go)
// already owns iteration counting, feedback-edge detection, and
// completion, driven directly from the executor's tick loop. The loop
// container block's own Execute call only needs to surface its resolved
// inputs as output so downstream blocks inside the loop body can read
// them (spec.md §4.9).
type LoopHandler struct{}

func (LoopHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindLoop
}

func (LoopHandler) Execute(_ context.Context, _ workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	out := workflow.Ok(inputs)
	return workflow.HandlerOutput{Output: &out}, nil
}
