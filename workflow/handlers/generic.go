package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
)

// GenericHandler is the registry's catch-all, matching any block kind no
// other handler claimed. It is registered last (handlers.go) so a
// workflow referencing a block kind this engine doesn't yet know still
// runs, passing its resolved inputs straight through, instead of the
// whole execution hard-failing on an unresolved dispatch (spec.md §4.9).
type GenericHandler struct{}

func (GenericHandler) CanHandle(workflow.Block) bool {
	return true
}

func (GenericHandler) Execute(_ context.Context, _ workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	out := workflow.Ok(inputs)
	return workflow.HandlerOutput{Output: &out}, nil
}
