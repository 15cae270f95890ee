package emit

import "context"

// Emitter receives observability events during workflow execution. It must
// not block the scheduler: implementations should buffer, sample, or drop
// rather than let a slow backend stall block dispatch.
type Emitter interface {
	// Emit sends a single event. Must not panic; log and swallow errors.
	Emit(event Event)

	// EmitBatch sends events in order, for backends that prefer bulk writes.
	// Returns an error only on catastrophic, non-per-event failures.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until any buffered events are delivered or ctx expires.
	// Safe to call more than once.
	Flush(ctx context.Context) error
}
