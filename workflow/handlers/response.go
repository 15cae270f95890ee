package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
)

// ResponseHandler is the terminal formatting block: it projects resolved
// inputs into the shape the workflow run ultimately returns. With no
// explicit "fields" config it passes every resolved input through
// unchanged; with one, it selects just the named keys (spec.md §4.9).
type ResponseHandler struct{}

func (ResponseHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindResponse
}

func (ResponseHandler) Execute(_ context.Context, block workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	fields, ok := block.Config["fields"].([]any)
	if !ok || len(fields) == 0 {
		out := workflow.Ok(inputs)
		return workflow.HandlerOutput{Output: &out}, nil
	}

	data := make(map[string]any, len(fields))
	for _, f := range fields {
		key, ok := f.(string)
		if !ok {
			continue
		}
		if v, present := inputs[key]; present {
			data[key] = v
		}
	}

	out := workflow.Ok(data)
	return workflow.HandlerOutput{Output: &out}, nil
}
