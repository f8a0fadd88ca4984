package pltesthelpers

import (
	"context"
	"sync/atomic"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

const (
	// GreetingHandlerType identifies GreetingHandler.
	GreetingHandlerType querypipeline.HandlerType = "GreetingHandler"

	// AsyncOnlyHandlerType identifies AsyncOnlyHandler.
	AsyncOnlyHandlerType querypipeline.HandlerType = "AsyncOnlyHandler"

	// BlockingHandlerType identifies BlockingHandler.
	BlockingHandlerType querypipeline.HandlerType = "BlockingHandler"
)

// GreetingHandler returns Result, or fails with Err when set.
// Failures lists errors returned by the first calls before Result is returned.
// FallbackResult is returned by the fallback methods; FallbackErr makes them fail.
type GreetingHandler struct {
	Result         any
	Err            error
	Failures       []error
	FallbackResult any
	FallbackErr    error
	PanicWith      any

	calls     atomic.Int32
	fallbacks atomic.Int32
	rc        *querypipeline.RequestContext
}

// Handle implements querypipeline.Handler.
func (h *GreetingHandler) Handle(ctx context.Context, query querypipeline.Query) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return h.HandleSync(query)
}

// HandleSync implements querypipeline.SyncHandler.
func (h *GreetingHandler) HandleSync(_ querypipeline.Query) (any, error) {
	call := int(h.calls.Add(1))

	if h.PanicWith != nil {
		panic(h.PanicWith)
	}

	if call <= len(h.Failures) {
		return nil, h.Failures[call-1]
	}

	if h.Err != nil {
		return nil, h.Err
	}

	return h.Result, nil
}

// Fallback implements querypipeline.FallbackHandler.
func (h *GreetingHandler) Fallback(_ context.Context, query querypipeline.Query) (any, error) {
	return h.FallbackSync(query)
}

// FallbackSync implements querypipeline.SyncFallbackHandler.
func (h *GreetingHandler) FallbackSync(_ querypipeline.Query) (any, error) {
	h.fallbacks.Add(1)

	if h.FallbackErr != nil {
		return nil, h.FallbackErr
	}

	return h.FallbackResult, nil
}

// SetRequestContext implements querypipeline.ContextAware.
func (h *GreetingHandler) SetRequestContext(rc *querypipeline.RequestContext) {
	h.rc = rc
}

// RequestContext returns the injected RequestContext.
func (h *GreetingHandler) RequestContext() *querypipeline.RequestContext {
	return h.rc
}

// Calls returns how often the primary method ran.
func (h *GreetingHandler) Calls() int {
	return int(h.calls.Load())
}

// FallbackCalls returns how often a fallback method ran.
func (h *GreetingHandler) FallbackCalls() int {
	return int(h.fallbacks.Load())
}

// AsyncOnlyHandler implements only the cancellable form.
type AsyncOnlyHandler struct {
	Result any
}

// Handle implements querypipeline.Handler.
func (h *AsyncOnlyHandler) Handle(_ context.Context, _ querypipeline.Query) (any, error) {
	return h.Result, nil
}

// BlockingHandler blocks until its context is done and returns the context error.
// Started is closed once the handler runs.
type BlockingHandler struct {
	Started chan struct{}
}

// NewBlockingHandler creates a BlockingHandler.
func NewBlockingHandler() *BlockingHandler {
	return &BlockingHandler{Started: make(chan struct{})}
}

// Handle implements querypipeline.Handler.
func (h *BlockingHandler) Handle(ctx context.Context, _ querypipeline.Query) (any, error) {
	close(h.Started)
	<-ctx.Done()

	return nil, ctx.Err()
}

// HandlerOf returns a constructor that always yields handler.
func HandlerOf(handler querypipeline.Handler) querypipeline.HandlerConstructor {
	return func() (querypipeline.Handler, error) {
		return handler, nil
	}
}

// DecoratorOf returns a constructor that always yields decorator.
func DecoratorOf(decorator querypipeline.Decorator) querypipeline.DecoratorConstructor {
	return func() (querypipeline.Decorator, error) {
		return decorator, nil
	}
}

var (
	_ querypipeline.SyncHandler         = (*GreetingHandler)(nil)
	_ querypipeline.FallbackHandler     = (*GreetingHandler)(nil)
	_ querypipeline.SyncFallbackHandler = (*GreetingHandler)(nil)
	_ querypipeline.ContextAware        = (*GreetingHandler)(nil)
	_ querypipeline.Handler             = (*AsyncOnlyHandler)(nil)
	_ querypipeline.Handler             = (*BlockingHandler)(nil)
)
