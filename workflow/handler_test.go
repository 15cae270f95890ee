package workflow

import (
	"context"
	"testing"
)

func TestRegistry_ResolveFirstMatchWins(t *testing.T) {
	var calls []string
	first := HandlerFunc{
		Match: func(b Block) bool { return b.Kind == KindGeneric },
		Run: func(_ context.Context, _ Block, _ map[string]any, _ *ExecutionContext) (HandlerOutput, error) {
			calls = append(calls, "first")
			out := Ok(nil)
			return HandlerOutput{Output: &out}, nil
		},
	}
	second := HandlerFunc{
		Match: func(b Block) bool { return b.Kind == KindGeneric },
		Run: func(_ context.Context, _ Block, _ map[string]any, _ *ExecutionContext) (HandlerOutput, error) {
			calls = append(calls, "second")
			out := Ok(nil)
			return HandlerOutput{Output: &out}, nil
		},
	}

	registry := NewRegistry().Register(first).Register(second)
	h, ok := registry.Resolve(Block{ID: "a", Kind: KindGeneric})
	if !ok {
		t.Fatalf("expected a handler to resolve")
	}
	if _, err := h.Execute(context.Background(), Block{ID: "a", Kind: KindGeneric}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Fatalf("expected only the first-registered matching handler to run, got %v", calls)
	}
}

func TestRegistry_ResolveNoMatch(t *testing.T) {
	registry := NewRegistry().Register(HandlerFunc{
		Match: func(b Block) bool { return b.Kind == KindResponse },
		Run: func(_ context.Context, _ Block, _ map[string]any, _ *ExecutionContext) (HandlerOutput, error) {
			out := Ok(nil)
			return HandlerOutput{Output: &out}, nil
		},
	})
	if _, ok := registry.Resolve(Block{ID: "a", Kind: KindGeneric}); ok {
		t.Fatalf("expected no handler to match a KindGeneric block")
	}
}
