package querypipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Processor is the pipeline executor.
// For every invocation it resolves the handler, resolves the ordered decorators, creates fresh
// instances through the factories, injects one RequestContext into all of them, composes the
// chain (first decorator outermost, handler innermost), runs it, and releases every created
// instance exactly once on every exit path, panics included.
//
// A Processor holds no per-invocation state and is safe for concurrent use.
type Processor struct {
	handlers         *HandlerRegistry
	decorators       *DecoratorRegistry
	handlerFactory   HandlerFactory
	decoratorFactory DecoratorFactory
	serializer       Serializer
	newID            func() string
	obs              Observability
}

// Option defines a functional option for configuring a Processor.
type Option func(*Processor) error

// NewProcessor creates a Processor with optional configuration.
func NewProcessor(
	handlers *HandlerRegistry,
	decorators *DecoratorRegistry,
	handlerFactory HandlerFactory,
	decoratorFactory DecoratorFactory,
	options ...Option,
) (*Processor, error) {
	if handlers == nil {
		return nil, ErrNilHandlerRegistry
	}

	if decorators == nil {
		return nil, ErrNilDecoratorRegistry
	}

	if handlerFactory == nil || decoratorFactory == nil {
		return nil, ErrNilFactory
	}

	p := &Processor{
		handlers:         handlers,
		decorators:       decorators,
		handlerFactory:   handlerFactory,
		decoratorFactory: decoratorFactory,
		newID:            uuid.NewString,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// WithSerializer sets the serializer stored in every RequestContext.
func WithSerializer(serializer Serializer) Option {
	return func(p *Processor) error {
		p.serializer = serializer
		return nil
	}
}

// WithIDGenerator replaces the UUID based correlation ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(p *Processor) error {
		if newID == nil {
			return fmt.Errorf("%w: id generator must not be nil", ErrConfiguration)
		}

		p.newID = newID

		return nil
	}
}

// WithLogger sets the basic logger for the Processor.
// Debug level: resolved chains. Info level: start and completion. Error level: failed invocations.
func WithLogger(logger Logger) Option {
	return func(p *Processor) error {
		p.obs.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Processor.
// When both loggers are set, the contextual logger wins.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(p *Processor) error {
		p.obs.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Processor.
func WithMetrics(collector MetricsCollector) Option {
	return func(p *Processor) error {
		p.obs.MetricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Processor.
func WithTracing(collector TracingCollector) Option {
	return func(p *Processor) error {
		p.obs.TracingCollector = collector
		return nil
	}
}

// ExecuteSync runs query through its pipeline in the blocking form.
// It never suspends on a context and fails fast with ErrAsyncOnlyHandler when the resolved
// handler has no synchronous form.
func (p *Processor) ExecuteSync(query Query) (any, error) {
	return p.execute(context.Background(), query, ModeSync, func(_ context.Context, query Query, inv *invocation) (any, error) {
		return composeSync(inv)(query)
	})
}

// ExecuteAsync runs query through its pipeline in the cancellable form.
// Cancellation is cooperative: decorators and the handler observe ctx at their own blocking points.
// When the invocation ends because ctx is done, the returned error matches ErrQueryCanceled and
// the context error.
func (p *Processor) ExecuteAsync(ctx context.Context, query Query) (any, error) {
	return p.execute(ctx, query, ModeAsync, func(ctx context.Context, query Query, inv *invocation) (any, error) {
		return composeAsync(inv)(ctx, query)
	})
}

// ExecuteSyncAs runs query through ExecuteSync and asserts the result type.
func ExecuteSyncAs[R any](p *Processor, query Query) (R, error) {
	result, err := p.ExecuteSync(query)
	if err != nil {
		return *new(R), err
	}

	return resultAs[R](query, result)
}

// ExecuteAsyncAs runs query through ExecuteAsync and asserts the result type.
func ExecuteAsyncAs[R any](ctx context.Context, p *Processor, query Query) (R, error) {
	result, err := p.ExecuteAsync(ctx, query)
	if err != nil {
		return *new(R), err
	}

	return resultAs[R](query, result)
}

func resultAs[R any](query Query, result any) (R, error) {
	if result == nil {
		return *new(R), nil
	}

	typed, ok := result.(R)
	if !ok {
		return *new(R), fmt.Errorf("%w: %q returned %T", ErrUnexpectedResultType, query.QueryType(), result)
	}

	return typed, nil
}

// invocation holds everything created for one top-level call.
type invocation struct {
	queryType   string
	handlerType HandlerType
	rc          *RequestContext
	handler     Handler
	decorators  []Decorator
	released    bool
}

type runFunc func(ctx context.Context, query Query, inv *invocation) (any, error)

func (p *Processor) execute(ctx context.Context, query Query, mode string, run runFunc) (any, error) {
	if query == nil {
		return nil, ErrNilQuery
	}

	queryType := query.QueryType()
	if queryType == "" {
		return nil, ErrEmptyQueryType
	}

	inv := &invocation{
		queryType: queryType,
		rc:        NewRequestContext(p.newID(), p.serializer),
	}
	defer p.release(inv)

	ctx = WithRequestContext(ctx, inv.rc)

	start := time.Now()
	ctx, span := p.obs.StartSpan(ctx, SpanNameExecute, map[string]string{
		LogAttrQueryType:     queryType,
		LogAttrMode:          mode,
		LogAttrCorrelationID: inv.rc.ID(),
	})
	p.obs.LogInfo(ctx, LogMsgExecuteStarted,
		LogAttrQueryType, queryType,
		LogAttrMode, mode,
		LogAttrCorrelationID, inv.rc.ID(),
	)

	result, err := p.invoke(ctx, query, mode, inv, run)

	p.finish(ctx, inv, mode, span, time.Since(start), err)

	return result, err
}

func (p *Processor) invoke(ctx context.Context, query Query, mode string, inv *invocation, run runFunc) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrQueryCanceled, err)
	}

	if err := p.acquire(ctx, inv, mode); err != nil {
		return nil, err
	}

	result, err := run(ctx, query, inv)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) && !errors.Is(err, ErrQueryCanceled) {
		return result, errors.Join(ErrQueryCanceled, err)
	}

	return result, err
}

// acquire resolves and creates all instances of the chain. Every created instance is recorded on inv
// before the next creation starts, so release sees it even if a later step fails or panics.
func (p *Processor) acquire(ctx context.Context, inv *invocation, mode string) error {
	handlerType, err := p.handlers.Resolve(inv.queryType)
	if err != nil {
		return err
	}

	inv.handlerType = handlerType

	handler, err := p.handlerFactory.CreateHandler(handlerType)
	if err != nil {
		return asConstructionError(err, "handler %q", handlerType)
	}

	if handler == nil {
		return fmt.Errorf("%w: factory returned nil handler %q", ErrConstructionFailed, handlerType)
	}

	inv.handler = handler

	if _, ok := handler.(SyncHandler); !ok && mode == ModeSync {
		return fmt.Errorf("%w: %q", ErrAsyncOnlyHandler, handlerType)
	}

	descriptors := p.decorators.DecoratorsFor(inv.queryType, handlerType)
	p.logResolved(ctx, inv, descriptors)

	for _, descriptor := range descriptors {
		decorator, createErr := p.decoratorFactory.CreateDecorator(descriptor.DecoratorType)
		if createErr != nil {
			return asConstructionError(createErr, "decorator %q", descriptor.DecoratorType)
		}

		if decorator == nil {
			return fmt.Errorf("%w: factory returned nil decorator %q", ErrConstructionFailed, descriptor.DecoratorType)
		}

		inv.decorators = append(inv.decorators, decorator)

		if initErr := initialize(decorator, descriptor); initErr != nil {
			return initErr
		}
	}

	inject(inv.rc, inv.handler)
	for _, decorator := range inv.decorators {
		inject(inv.rc, decorator)
	}

	return nil
}

func (p *Processor) release(inv *invocation) {
	if inv.released {
		return
	}

	inv.released = true

	for i := len(inv.decorators) - 1; i >= 0; i-- {
		p.decoratorFactory.ReleaseDecorator(inv.decorators[i])
	}

	if inv.handler != nil {
		p.handlerFactory.ReleaseHandler(inv.handler)
	}
}

func (p *Processor) finish(ctx context.Context, inv *invocation, mode string, span SpanContext, duration time.Duration, err error) {
	status := StatusFor(err, inv.rc.Bag())
	labels := BuildLabels(inv.queryType, status)

	p.obs.RecordDuration(ctx, ExecuteDurationMetric, duration, labels)
	p.obs.IncrementCounter(ctx, ExecuteCallsMetric, labels)

	switch status {
	case StatusCanceled:
		p.obs.IncrementCounter(ctx, ExecuteCanceledMetric, labels)
	case StatusFallback:
		p.obs.IncrementCounter(ctx, ExecuteFallbackMetric, labels)
	}

	p.obs.FinishSpan(span, status, duration, err)

	if err != nil {
		p.obs.LogError(ctx, LogMsgExecuteFailed,
			LogAttrQueryType, inv.queryType,
			LogAttrMode, mode,
			LogAttrCorrelationID, inv.rc.ID(),
			LogAttrStatus, status,
			LogAttrError, err.Error(),
		)

		return
	}

	p.obs.LogInfo(ctx, LogMsgExecuteCompleted,
		LogAttrQueryType, inv.queryType,
		LogAttrMode, mode,
		LogAttrCorrelationID, inv.rc.ID(),
		LogAttrStatus, status,
		LogAttrDurationMS, ToMilliseconds(duration),
	)
}

func (p *Processor) logResolved(ctx context.Context, inv *invocation, descriptors []DecoratorDescriptor) {
	if p.obs.Logger == nil && p.obs.ContextualLogger == nil {
		return
	}

	names := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		names = append(names, string(descriptor.DecoratorType))
	}

	p.obs.LogDebug(ctx, LogMsgPipelineResolved,
		LogAttrQueryType, inv.queryType,
		LogAttrHandlerType, string(inv.handlerType),
		LogAttrDecorators, names,
		LogAttrCorrelationID, inv.rc.ID(),
	)
}

func initialize(decorator Decorator, descriptor DecoratorDescriptor) error {
	parameterized, ok := decorator.(Parameterized)
	if !ok {
		if len(descriptor.Params) > 0 {
			return fmt.Errorf("%w: decorator %q does not accept params", ErrInvalidDecoratorMetadata, descriptor.DecoratorType)
		}

		return nil
	}

	if err := parameterized.InitializeFromParams(descriptor.Params); err != nil {
		return errors.Join(fmt.Errorf("%w: decorator %q", ErrInvalidDecoratorMetadata, descriptor.DecoratorType), err)
	}

	return nil
}

func inject(rc *RequestContext, instance any) {
	if aware, ok := instance.(ContextAware); ok {
		aware.SetRequestContext(rc)
	}
}

// asConstructionError makes sure a factory failure is reported as a configuration error,
// whatever the external factory returned.
func asConstructionError(err error, format string, args ...any) error {
	if errors.Is(err, ErrConfiguration) {
		return err
	}

	return errors.Join(fmt.Errorf("%w: "+format, append([]any{ErrConstructionFailed}, args...)...), err)
}

func composeSync(inv *invocation) SyncNext {
	next := SyncNext(inv.handler.(SyncHandler).HandleSync)
	fallback := syncFallbackOf(inv.handler)

	for i := len(inv.decorators) - 1; i >= 0; i-- {
		decorator, inner := inv.decorators[i], next
		next = func(query Query) (any, error) {
			return decorator.AroundSync(query, inner, fallback)
		}
	}

	return next
}

func composeAsync(inv *invocation) Next {
	next := Next(inv.handler.Handle)
	fallback := fallbackOf(inv.handler)

	for i := len(inv.decorators) - 1; i >= 0; i-- {
		decorator, inner := inv.decorators[i], next
		next = func(ctx context.Context, query Query) (any, error) {
			return decorator.Around(ctx, query, inner, fallback)
		}
	}

	return next
}

func syncFallbackOf(handler Handler) SyncNext {
	if h, ok := handler.(SyncFallbackHandler); ok {
		return h.FallbackSync
	}

	if h, ok := handler.(FallbackHandler); ok {
		return func(query Query) (any, error) {
			return h.Fallback(context.Background(), query)
		}
	}

	return func(query Query) (any, error) {
		return nil, fmt.Errorf("%w: %q", ErrNoFallback, query.QueryType())
	}
}

func fallbackOf(handler Handler) Next {
	if h, ok := handler.(FallbackHandler); ok {
		return h.Fallback
	}

	if h, ok := handler.(SyncFallbackHandler); ok {
		return func(ctx context.Context, query Query) (any, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			return h.FallbackSync(query)
		}
	}

	return func(_ context.Context, query Query) (any, error) {
		return nil, fmt.Errorf("%w: %q", ErrNoFallback, query.QueryType())
	}
}
