package workflow

import "context"

// StreamingExecution is returned by a Handler whose block produces output
// incrementally. The executor tees Stream: one copy goes to
// ExecutionContext.OnStream, the other is drained to reconstruct the final
// output (spec.md §4.1.2).
type StreamingExecution struct {
	Stream    <-chan StreamChunk
	Execution StreamExecutionInfo
}

// StreamChunk is one piece of a streamed block output.
type StreamChunk struct {
	Text  string
	Done  bool
	Err   error
	Extra map[string]any
}

// StreamExecutionInfo carries metadata about the block producing a stream.
type StreamExecutionInfo struct {
	BlockID  string
	BlockKind BlockKind
}

// HandlerOutput is what Handler.Execute returns: either a normalized Output
// or a StreamingExecution. Exactly one of the two is set.
type HandlerOutput struct {
	Output    *Output
	Streaming *StreamingExecution
}

// Handler implements the behavior of one or more block kinds. The executor
// tries registered handlers in order and dispatches to the first whose
// CanHandle matches (spec.md §4.6).
type Handler interface {
	CanHandle(block Block) bool
	Execute(ctx context.Context, block Block, inputs map[string]any, execCtx *ExecutionContext) (HandlerOutput, error)
}

// HandlerFunc adapts a plain function to the Handler interface for handlers
// that don't need additional state.
type HandlerFunc struct {
	Match func(block Block) bool
	Run   func(ctx context.Context, block Block, inputs map[string]any, execCtx *ExecutionContext) (HandlerOutput, error)
}

func (h HandlerFunc) CanHandle(block Block) bool { return h.Match(block) }

func (h HandlerFunc) Execute(ctx context.Context, block Block, inputs map[string]any, execCtx *ExecutionContext) (HandlerOutput, error) {
	return h.Run(ctx, block, inputs, execCtx)
}

// Registry holds the ordered list of handlers an Executor dispatches
// through. Registration order is significant: the first CanHandle match
// wins.
type Registry struct {
	handlers []Handler
}

// NewRegistry builds an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends h to the end of the dispatch order.
func (r *Registry) Register(h Handler) *Registry {
	r.handlers = append(r.handlers, h)
	return r
}

// Resolve returns the first registered handler whose CanHandle matches
// block, or (nil, false).
func (r *Registry) Resolve(block Block) (Handler, bool) {
	for _, h := range r.handlers {
		if h.CanHandle(block) {
			return h, true
		}
	}
	return nil, false
}
