package emit

import "context"

// NoopEmitter discards every event. It is the default Emitter for Options
// that don't set one (workflow.Options.withDefaults).
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

func (NoopEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (NoopEmitter) Flush(context.Context) error { return nil }
