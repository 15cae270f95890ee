package handlers

import (
	"context"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/tool"
)

// APIHandler makes an HTTP request described by resolved inputs
// (method/url/headers/body) by delegating to tool.HTTPTool. Its result is
// adapted to the engine's {error,status} output convention: a non-2xx
// response is still returned as data (status_code/headers/body), never as
// a handler error, so the graph's error-edge routing applies to the
// request's own failure to reach the server, not to the server's response
// code (spec.md §4.9).
type APIHandler struct {
	Requester tool.Tool
}

func (APIHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindAPI
}

func (h *APIHandler) Execute(ctx context.Context, _ workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	requester := h.Requester
	if requester == nil {
		requester = tool.NewHTTPTool()
	}

	result, err := requester.Call(ctx, inputs)
	if err != nil {
		errOut := workflow.Err(err.Error(), 0)
		return workflow.HandlerOutput{Output: &errOut}, nil
	}

	data := make(map[string]any, len(result))
	for k, v := range result {
		data[k] = v
	}

	out := workflow.Ok(data)
	return workflow.HandlerOutput{Output: &out}, nil
}
