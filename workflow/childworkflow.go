package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ChildWorkflowLoader resolves a nested workflow graph referenced by a
// `workflow` block, returning the graph to execute plus whether it must run
// in a deployed context (spec.md §4.1.4).
type ChildWorkflowLoader interface {
	LoadChildWorkflow(ctx context.Context, workflowID string) (graph *WorkflowGraph, requiresDeployment bool, err error)
}

var tracer = otel.Tracer("github.com/you112ef/workflow-engine/workflow")

// executeChildWorkflow runs block's referenced workflow as a nested
// Executor, enforcing MaxChildDepth and the deployed-context constraint,
// and attaching the child's captured spans to the parent block's output
// under "childTraceSpans" (spec.md §4.1.4, SPEC_FULL.md §4.12).
func (e *Executor) executeChildWorkflow(ctx context.Context, block Block, inputs map[string]any, execCtx *ExecutionContext) (HandlerOutput, error) {
	if e.opts.ChildLoader == nil {
		return HandlerOutput{}, fmt.Errorf("workflow: block %s references a child workflow but no ChildLoader is configured", block.ID)
	}
	if execCtx.ChildDepth >= e.opts.MaxChildDepth {
		return HandlerOutput{}, fmt.Errorf("%w: depth %d at block %s", ErrMaxDepthExceeded, execCtx.ChildDepth, block.ID)
	}

	workflowID, _ := block.Config["workflowId"].(string)
	childGraph, requiresDeployment, err := e.opts.ChildLoader.LoadChildWorkflow(ctx, workflowID)
	if err != nil {
		return HandlerOutput{}, fmt.Errorf("workflow: loading child workflow %s: %w", workflowID, err)
	}
	if requiresDeployment && !execCtx.IsDeployedContext {
		return HandlerOutput{}, fmt.Errorf("%w: child workflow %s at block %s", ErrDeploymentRequired, workflowID, block.ID)
	}

	inputMapping, err := normalizeInputMapping(block.Config["inputMapping"])
	if err != nil {
		return HandlerOutput{}, fmt.Errorf("workflow: block %s: %w", block.ID, err)
	}
	childInput := inputMapping
	if childInput == nil {
		childInput = inputs
	}

	spanCtx, span := tracer.Start(ctx, "child_workflow:"+childGraph.Name,
		oteltrace.WithAttributes(
			attribute.String("workflow.child_id", childGraph.ID),
			attribute.Int("workflow.child_depth", execCtx.ChildDepth+1),
		))
	defer span.End()

	childExec := New(childGraph, e.opts)
	childCtx := NewExecutionContext(
		execCtx.ExecutionID+"/"+childGraph.ID,
		execCtx.WorkspaceID,
		childGraph.ID,
		execCtx.EnvironmentVariables,
		map[string]any{},
	)
	childCtx.IsDeployedContext = execCtx.IsDeployedContext
	childCtx.IsChildExecution = true
	childCtx.ChildDepth = execCtx.ChildDepth + 1

	result, runErr := childExec.run(spanCtx, childCtx, childInput)
	if runErr != nil {
		return HandlerOutput{}, &ChildWorkflowError{
			Message: fmt.Sprintf("Error in child workflow %q: %s", childGraph.Name, runErr.Error()),
			Spans:   capturedSpans(span),
		}
	}
	if !result.Success {
		return HandlerOutput{}, &ChildWorkflowError{
			Message: fmt.Sprintf("Error in child workflow %q: %s", childGraph.Name, result.Error),
			Spans:   capturedSpans(span),
		}
	}

	output := map[string]any{
		"childWorkflowId": childGraph.ID,
		"output":          result.Output,
		"logs":            result.Logs,
	}
	if spans := capturedSpans(span); len(spans) > 0 {
		output["childTraceSpans"] = spans
	}

	out := Ok(output)
	return HandlerOutput{Output: &out}, nil
}

// ChildWorkflowError reports a nested workflow's failure in spec.md §4.1.4's
// exact format, carrying the child's captured trace spans alongside the
// message so callers inspecting the error (rather than block output) can
// still surface them.
type ChildWorkflowError struct {
	Message string
	Spans   []map[string]any
}

func (e *ChildWorkflowError) Error() string { return e.Message }

// normalizeInputMapping tolerates inputMapping authored as a JSON string or
// as a direct object, mirroring normalizeForEachItems in loopmanager.go.
func normalizeInputMapping(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("inputMapping string is not valid JSON: %w", err)
		}
		return parsed, nil
	case map[string]any:
		return v, nil
	default:
		return nil, nil
	}
}

// capturedSpans extracts the child span's recorded metadata for attachment
// to the parent block's output. ReadOnlySpan is only available when span is
// backed by the SDK tracer provider configured by the caller; a no-op
// tracer (the default when no provider is registered) yields nothing.
func capturedSpans(span oteltrace.Span) []map[string]any {
	ro, ok := span.(trace.ReadOnlySpan)
	if !ok {
		return nil
	}
	return []map[string]any{
		{
			"name":     ro.Name(),
			"spanId":   ro.SpanContext().SpanID().String(),
			"traceId":  ro.SpanContext().TraceID().String(),
			"startedAt": ro.StartTime(),
			"endedAt":   ro.EndTime(),
		},
	}
}
