package workflow

import (
	"time"

	"github.com/you112ef/workflow-engine/workflow/emit"
	"github.com/you112ef/workflow-engine/workflow/store"
)

// Options configures Executor behavior. Zero values are valid; New fills in
// sensible defaults for anything left unset, mirroring the dual
// Options-struct / functional-option configuration pattern this engine's
// ambient stack is built around.
type Options struct {
	// MaxLayers caps the number of scheduler ticks before the run fails with
	// ErrMaxLayersExceeded's message in Result.Error (spec.md §7, taxonomy
	// 4). Default 500.
	MaxLayers int

	// MaxChildDepth caps nested workflow invocation depth before the child
	// workflow handler returns ErrMaxDepthExceeded (spec.md §7, taxonomy 5).
	// Default 10.
	MaxChildDepth int

	// DefaultBlockTimeout bounds a single handler invocation when the block
	// doesn't declare its own Policy.Timeout. Zero disables the default
	// timeout (handlers may still impose their own, per spec.md §5).
	DefaultBlockTimeout time.Duration

	// MaxConcurrentBlocks bounds how many blocks of one layer run
	// concurrently. Default 0 (unbounded within the layer).
	MaxConcurrentBlocks int

	// Emitter receives fire-and-forget telemetry events. Defaults to
	// emit.NoopEmitter{}.
	Emitter emit.Emitter

	// Metrics, if non-nil, records Prometheus metrics for this execution.
	Metrics *Metrics

	// Reporter receives active-block UI notifications, gated by
	// ExecutionContext.IsChildExecution so nested runs don't stomp the
	// parent's reporting (spec.md §9, Global state).
	Reporter Reporter

	// ChildLoader resolves nested workflow graphs for the `workflow` block
	// kind (spec.md §4.1.4). Nil disables child-workflow execution.
	ChildLoader ChildWorkflowLoader

	// Store persists PausedState on pause, if set. Entirely optional — the
	// caller may instead hold the returned PausedState in memory.
	Store store.Store

	// Registry is the handler dispatch table. Nil resolves no block kind
	// and every execution fails at the first block — callers wire their
	// handlers.Registry() here.
	Registry *Registry

	// Resolver overrides input resolution. Nil uses a DefaultInputResolver
	// bound to the executed graph.
	Resolver InputResolver

	// DebugMode gates each layer tick on StepSignal before it runs,
	// realizing the debug-stepping contract of spec.md §4.6.
	DebugMode bool

	// StepSignal is read once per layer when DebugMode is set; the
	// executor blocks until a value arrives or ctx is done.
	StepSignal <-chan struct{}
}

// Option mutates an Options value during New.
type Option func(*Options)

func WithMaxLayers(n int) Option                 { return func(o *Options) { o.MaxLayers = n } }
func WithMaxChildDepth(n int) Option             { return func(o *Options) { o.MaxChildDepth = n } }
func WithDefaultBlockTimeout(d time.Duration) Option {
	return func(o *Options) { o.DefaultBlockTimeout = d }
}
func WithMaxConcurrentBlocks(n int) Option { return func(o *Options) { o.MaxConcurrentBlocks = n } }
func WithEmitter(e emit.Emitter) Option    { return func(o *Options) { o.Emitter = e } }
func WithMetrics(m *Metrics) Option        { return func(o *Options) { o.Metrics = m } }
func WithReporter(r Reporter) Option       { return func(o *Options) { o.Reporter = r } }
func WithChildLoader(l ChildWorkflowLoader) Option {
	return func(o *Options) { o.ChildLoader = l }
}
func WithStore(s store.Store) Option       { return func(o *Options) { o.Store = s } }
func WithRegistry(r *Registry) Option      { return func(o *Options) { o.Registry = r } }
func WithResolver(r InputResolver) Option  { return func(o *Options) { o.Resolver = r } }
func WithDebugMode(step <-chan struct{}) Option {
	return func(o *Options) {
		o.DebugMode = true
		o.StepSignal = step
	}
}

func (o Options) withDefaults() Options {
	if o.MaxLayers == 0 {
		o.MaxLayers = 500
	}
	if o.MaxChildDepth == 0 {
		o.MaxChildDepth = 10
	}
	if o.Emitter == nil {
		o.Emitter = emit.NoopEmitter{}
	}
	if o.Reporter == nil {
		o.Reporter = NoopReporter{}
	}
	if o.Registry == nil {
		o.Registry = NewRegistry()
	}
	return o
}

// Reporter receives active-block UI notifications. A no-op implementation
// is used for headless runs (spec.md §9).
type Reporter interface {
	BlockActive(executionID, blockID string)
	BlockIdle(executionID, blockID string)
}

// NoopReporter discards every notification.
type NoopReporter struct{}

func (NoopReporter) BlockActive(string, string) {}
func (NoopReporter) BlockIdle(string, string)   {}
