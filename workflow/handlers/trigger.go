package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
)

// TriggerHandler matches the starter/trigger kinds. The executor seeds the
// starting block's state before the layer loop begins (spec.md §4.1,
// starting-block seeding), so this handler only exists to satisfy Registry
// dispatch for logging/telemetry uniformity if a trigger block is ever
// reached as a non-entry node (e.g. a disabled starter re-enabled mid-run).
type TriggerHandler struct{}

func (TriggerHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindStarter || block.Kind.IsTrigger()
}

func (TriggerHandler) Execute(_ context.Context, _ workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	out := workflow.Ok(inputs)
	return workflow.HandlerOutput{Output: &out}, nil
}
