// Command routingdemo runs a small confidence-gated routing workflow: a
// starter feeds an agent block, a condition block branches on the confidence
// value supplied in the workflow input, and two response blocks format the accepted
// or escalated outcome. Grounded on the teacher's examples/routing shape,
// rebuilt against this engine's block/condition/response model instead of
// the teacher's reducer-merged state graph.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/emit"
	"github.com/you112ef/workflow-engine/workflow/handlers"
	"github.com/you112ef/workflow-engine/workflow/model"
)

func main() {
	graph := &workflow.WorkflowGraph{
		ID:   "confidence-routing",
		Name: "Confidence-gated routing demo",
		Blocks: []workflow.Block{
			{ID: "start", Kind: workflow.KindStarter, Enabled: true},
			{
				ID:      "draft",
				Kind:    workflow.KindAgent,
				Enabled: true,
				Config: map[string]any{
					"provider":     "demo",
					"systemPrompt": "Answer the user's question in one sentence.",
					"inputs": map[string]any{
						"prompt": "<start.prompt>",
					},
				},
			},
			{
				ID:      "gate",
				Kind:    workflow.KindCondition,
				Enabled: true,
				Config: map[string]any{
					"conditions": []any{
						map[string]any{"id": "confident", "expression": "confidence >= 0.8"},
						map[string]any{"id": "unsure", "expression": "true"},
					},
					"inputs": map[string]any{
						"confidence": "<start.confidence>",
						"content":    "<draft.content>",
					},
				},
			},
			{
				ID:      "accepted",
				Kind:    workflow.KindResponse,
				Enabled: true,
				Config: map[string]any{
					"inputs": map[string]any{"answer": "<draft.content>"},
				},
			},
			{
				ID:      "escalated",
				Kind:    workflow.KindResponse,
				Enabled: true,
				Config: map[string]any{
					"inputs": map[string]any{"answer": "<draft.content>", "needsReview": true},
				},
			},
		},
		Connections: []workflow.Connection{
			{Source: "start", Target: "draft"},
			{Source: "draft", Target: "gate"},
			{Source: "gate", Target: "accepted", SourceHandle: workflow.ConditionHandle("confident")},
			{Source: "gate", Target: "escalated", SourceHandle: workflow.ConditionHandle("unsure")},
		},
	}

	registry := handlers.New(handlers.Config{
		Models: map[string]model.ChatModel{
			"demo": &model.MockChatModel{
				Responses: []model.ChatOut{{Text: "Paris is the capital of France."}},
			},
		},
	})

	executor := workflow.New(graph,
		workflow.WithRegistry(registry),
		workflow.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
	)

	result, err := executor.Run(context.Background(), map[string]any{
		"prompt":     "What is the capital of France?",
		"confidence": 0.92,
	})
	if err != nil {
		log.Fatalf("routingdemo: run failed: %v", err)
	}
	if !result.Success {
		log.Fatalf("routingdemo: execution failed: %s", result.Error)
	}
	fmt.Printf("final output: %v\n", result.Output)
}
