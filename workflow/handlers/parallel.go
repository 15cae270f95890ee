package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
)

// ParallelHandler mirrors LoopHandler: ParallelManager
// (workflow/parallelmanager.go) owns branch fan-out, join detection, and
// completion from the executor's tick loop, so the container block's own
// Execute call only echoes its resolved inputs for the branches to
// consume (spec.md §4.9).
type ParallelHandler struct{}

func (ParallelHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindParallel
}

func (ParallelHandler) Execute(_ context.Context, _ workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	out := workflow.Ok(inputs)
	return workflow.HandlerOutput{Output: &out}, nil
}
