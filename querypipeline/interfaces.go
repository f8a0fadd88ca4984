package querypipeline

import "context"

// Query represents the contract for all query types dispatched through the pipeline.
// A query is an immutable request for data. QueryType identifies the concrete query
// and is the key for handler resolution and decorator lookup.
type Query interface {
	QueryType() string
}

// HandlerType identifies a handler implementation in the HandlerRegistry and the factories.
type HandlerType string

// DecoratorType identifies a decorator implementation in the DecoratorRegistry and the factories.
type DecoratorType string

// Handler produces the result for one query type.
// Handle is the cancellable form: implementations must honor ctx at their own blocking points.
type Handler interface {
	Handle(ctx context.Context, query Query) (any, error)
}

// SyncHandler is implemented by handlers that also support the blocking, non-cancellable form.
// Handlers that only implement Handler are cancellable-only and cannot run through ExecuteSync.
type SyncHandler interface {
	Handler
	HandleSync(query Query) (any, error)
}

// FallbackHandler is implemented by handlers that designate a fallback method for the cancellable form.
type FallbackHandler interface {
	Fallback(ctx context.Context, query Query) (any, error)
}

// SyncFallbackHandler is implemented by handlers that designate a fallback method for the blocking form.
type SyncFallbackHandler interface {
	FallbackSync(query Query) (any, error)
}

// Next is the inner continuation a decorator calls in the cancellable form.
type Next func(ctx context.Context, query Query) (any, error)

// SyncNext is the inner continuation a decorator calls in the blocking form.
type SyncNext func(query Query) (any, error)

// Decorator is a cross-cutting wrapper composed around the handler invocation.
// Each form receives the query, the inner continuation, and the fallback continuation.
// Decorators are created fresh per invocation and must not keep state across invocations.
type Decorator interface {
	Around(ctx context.Context, query Query, next Next, fallback Next) (any, error)
	AroundSync(query Query, next SyncNext, fallback SyncNext) (any, error)
}

// ContextAware is implemented by decorators and handlers that want the RequestContext injected
// before the chain is invoked.
type ContextAware interface {
	SetRequestContext(rc *RequestContext)
}

// Parameterized is implemented by decorators that accept constructor-style params from
// their registration metadata. An error marks the metadata as malformed.
type Parameterized interface {
	InitializeFromParams(params []any) error
}

// Releasable is implemented by instances that hold resources which must be returned after the invocation.
type Releasable interface {
	Release()
}

// HandlerFunc adapts a plain function to a cancellable-only Handler.
type HandlerFunc func(ctx context.Context, query Query) (any, error)

// Handle calls f(ctx, query).
func (f HandlerFunc) Handle(ctx context.Context, query Query) (any, error) {
	return f(ctx, query)
}

// SyncHandlerFunc adapts a plain blocking function to a SyncHandler.
// The cancellable form checks ctx once before delegating.
type SyncHandlerFunc func(query Query) (any, error)

// HandleSync calls f(query).
func (f SyncHandlerFunc) HandleSync(query Query) (any, error) {
	return f(query)
}

// Handle calls f(query) unless ctx is already done.
func (f SyncHandlerFunc) Handle(ctx context.Context, query Query) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return f(query)
}

var (
	_ Handler     = HandlerFunc(nil)
	_ SyncHandler = SyncHandlerFunc(nil)
)
