package model

import (
	"context"
	"sync"
)

// MockChatModel is a test double for ChatModel: configurable responses,
// optional error injection, and call-history tracking.
type MockChatModel struct {
	// Responses is returned in order; once exhausted, the last response
	// repeats.
	Responses []ChatOut

	// StreamChunks, if set, is what Stream emits verbatim instead of
	// bridging through Chat — lets tests drive the executor's tee/drain
	// path with an explicit multi-chunk sequence.
	StreamChunks []ChatChunk

	// Err, if set, is returned instead of a response.
	Err error

	// Calls records every Chat/Stream invocation.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records one Chat invocation.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Tools: tools})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

func (m *MockChatModel) Stream(ctx context.Context, messages []Message, tools []ToolSpec) (<-chan ChatChunk, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	chunks := m.StreamChunks
	m.mu.Unlock()
	if len(chunks) == 0 {
		return StreamFromChat(ctx, func(ctx context.Context) (ChatOut, error) {
			return m.Chat(ctx, messages, tools)
		})
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, MockChatCall{Messages: messages, Tools: tools})
	m.mu.Unlock()

	ch := make(chan ChatChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// Reset clears call history and rewinds the response index.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of Chat invocations recorded so far.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
