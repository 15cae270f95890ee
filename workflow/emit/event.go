// Package emit provides the telemetry port the Executor and its handlers
// fire observability events through. It is fire-and-forget: nothing in the
// core scheduler blocks on, or fails because of, an Emitter (spec.md §6,
// Telemetry hooks).
package emit

// Event is one observability event emitted during workflow execution.
type Event struct {
	// ExecutionID identifies the workflow execution that emitted this event.
	ExecutionID string

	// Step is the sequential scheduler tick number (1-indexed). Zero for
	// execution-level events (start, complete, cancel).
	Step int

	// BlockID identifies which block emitted this event. Empty for
	// execution-level events.
	BlockID string

	// Msg is a short, stable event name: "execution_start", "block_start",
	// "block_finish", "block_error", "execution_paused",
	// "execution_cancelled", "execution_complete".
	Msg string

	// Meta carries event-specific structured data (duration_ms, error,
	// block_kind, virtual_id, …).
	Meta map[string]any
}
