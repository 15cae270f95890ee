// Package handlers implements workflow.Handler for every block kind named
// in spec.md §4.6 except the child-workflow kind, which the core package
// implements directly (see workflow/childworkflow.go).
package handlers

import (
	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/expreval"
	"github.com/you112ef/workflow-engine/workflow/model"
)

// Config supplies the external dependencies handlers need: LLM providers
// and a sandbox for the function block.
// Any zero-valued field falls back to the handler's own default.
type Config struct {
	// Models maps block.Config["provider"] to the ChatModel that serves it.
	// A "" key, if present, is used when a block doesn't declare a provider.
	Models map[string]model.ChatModel

	// Sandbox evaluates function blocks. Defaults to exprSandbox, backed by
	// the same expr-lang evaluator as the condition/router/evaluator
	// handlers.
	Sandbox FunctionSandbox
}

// New builds the handler registry an Executor dispatches through,
// registered in most-specific-first order with generic last (spec.md §4.9).
func New(cfg Config) *workflow.Registry {
	ev := expreval.New()

	sandbox := cfg.Sandbox
	if sandbox == nil {
		sandbox = &exprSandbox{eval: ev}
	}

	return workflow.NewRegistry().
		Register(&TriggerHandler{}).
		Register(&AgentHandler{Models: cfg.Models}).
		Register(&RouterHandler{eval: ev}).
		Register(&ConditionHandler{eval: ev}).
		Register(&FunctionHandler{Sandbox: sandbox}).
		Register(&APIHandler{}).
		Register(&EvaluatorHandler{eval: ev}).
		Register(&ResponseHandler{}).
		Register(&WaitHandler{}).
		Register(&LoopHandler{}).
		Register(&ParallelHandler{}).
		Register(&GenericHandler{})
}

// configList reads a []any-of-map[string]any list from block.Config,
// tolerating the shapes JSON decoding and direct Go construction both
// produce.
func configList(cfg map[string]any, key string) []map[string]any {
	raw, ok := cfg[key].([]any)
	if !ok {
		if typed, ok := cfg[key].([]map[string]any); ok {
			return typed
		}
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
