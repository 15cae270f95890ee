package handlers

import (
	"context"
	"fmt"

	"github.com/you112ef/workflow-engine/workflow"
	"github.com/you112ef/workflow-engine/workflow/model"
)

// AgentHandler calls a model.ChatModel selected by block.Config["provider"]
// with resolved inputs turned into a message list (spec.md §4.9).
type AgentHandler struct {
	// Models maps provider name to the ChatModel serving it. A "" entry, if
	// present, backs blocks that don't declare a provider.
	Models map[string]model.ChatModel
}

func (AgentHandler) CanHandle(block workflow.Block) bool {
	return block.Kind == workflow.KindAgent
}

func (h *AgentHandler) Execute(ctx context.Context, block workflow.Block, inputs map[string]any, _ *workflow.ExecutionContext) (workflow.HandlerOutput, error) {
	provider, _ := block.Config["provider"].(string)
	m, ok := h.Models[provider]
	if !ok {
		m, ok = h.Models[""]
	}
	if !ok {
		return workflow.HandlerOutput{}, fmt.Errorf("handlers: agent block %s references unknown provider %q", block.ID, provider)
	}

	messages := buildMessages(block, inputs)
	tools := buildToolSpecs(block)

	if stream, _ := block.Config["stream"].(bool); stream {
		return h.executeStreaming(ctx, block, m, messages, tools)
	}

	out, err := m.Chat(ctx, messages, tools)
	if err != nil {
		return workflow.HandlerOutput{}, fmt.Errorf("handlers: agent %s chat: %w", block.ID, err)
	}

	data := map[string]any{"content": out.Text}
	if len(out.ToolCalls) > 0 {
		calls := make([]any, len(out.ToolCalls))
		for i, tc := range out.ToolCalls {
			calls[i] = map[string]any{"name": tc.Name, "input": tc.Input}
		}
		data["toolCalls"] = calls
	}

	result := workflow.Ok(data)
	return workflow.HandlerOutput{Output: &result}, nil
}

// executeStreaming opts an agent block into the executor's tee/drain path
// (spec.md §4.1.2) by relaying model.ChatChunk onto a workflow.StreamChunk
// channel.
func (h *AgentHandler) executeStreaming(ctx context.Context, block workflow.Block, m model.ChatModel, messages []model.Message, tools []model.ToolSpec) (workflow.HandlerOutput, error) {
	modelChunks, err := m.Stream(ctx, messages, tools)
	if err != nil {
		return workflow.HandlerOutput{}, fmt.Errorf("handlers: agent %s stream: %w", block.ID, err)
	}

	relayed := make(chan workflow.StreamChunk)
	go func() {
		defer close(relayed)
		for c := range modelChunks {
			relayed <- workflow.StreamChunk{Text: c.Text, Done: c.Done, Err: c.Err}
		}
	}()

	return workflow.HandlerOutput{Streaming: &workflow.StreamingExecution{
		Stream:    relayed,
		Execution: workflow.StreamExecutionInfo{BlockID: block.ID, BlockKind: block.Kind},
	}}, nil
}

// buildMessages assembles the conversation from block.Config["systemPrompt"]
// and either a resolved "messages" list or a single resolved "prompt".
func buildMessages(block workflow.Block, inputs map[string]any) []model.Message {
	var messages []model.Message

	if sys, ok := block.Config["systemPrompt"].(string); ok && sys != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: sys})
	}

	if raw, ok := inputs["messages"].([]any); ok {
		for _, m := range raw {
			entry, ok := m.(map[string]any)
			if !ok {
				continue
			}
			role, _ := entry["role"].(string)
			content, _ := entry["content"].(string)
			if role == "" {
				role = model.RoleUser
			}
			messages = append(messages, model.Message{Role: role, Content: content})
		}
		return messages
	}

	if prompt, ok := inputs["prompt"].(string); ok {
		messages = append(messages, model.Message{Role: model.RoleUser, Content: prompt})
	}
	return messages
}

func buildToolSpecs(block workflow.Block) []model.ToolSpec {
	entries := configList(block.Config, "tools")
	if len(entries) == 0 {
		return nil
	}
	specs := make([]model.ToolSpec, 0, len(entries))
	for _, e := range entries {
		name, _ := e["name"].(string)
		if name == "" {
			continue
		}
		description, _ := e["description"].(string)
		schema, _ := e["schema"].(map[string]any)
		specs = append(specs, model.ToolSpec{Name: name, Description: description, Schema: schema})
	}
	return specs
}
