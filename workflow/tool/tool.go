package tool

import "context"

// Tool is something an agent block can invoke by name: a web search, an API
// call, a calculation, anything that takes structured input and returns
// structured output. Implementations should validate their own input,
// respect ctx cancellation, and return descriptive errors rather than
// panicking on a malformed map.
type Tool interface {
	// Name is the identifier agents reference in a ToolSpec.
	Name() string

	// Call executes the tool. input may be nil for parameterless tools; the
	// returned map is whatever structured result the caller projects back
	// into the block's output.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
