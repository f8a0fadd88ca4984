// Package querypipeline provides an in-process query dispatch pipeline.
//
// A caller submits a Query to a Processor. The Processor resolves the single handler
// registered for the query type, resolves the ordered decorators attached to the query,
// the handler, or all queries, creates fresh instances through the factories, and runs
// the composed chain. The first decorator in the resolved order is the outermost wrapper
// and the handler is the innermost.
//
// Two execution forms exist:
//   - ExecuteSync: blocking and not cancellable
//   - ExecuteAsync: takes a context.Context and honors its cancellation cooperatively
//
// Every instance created for an invocation is released exactly once when the invocation
// ends, on success, on failure, and on panic.
//
// Decorators share per-invocation state through the RequestContext: a correlation ID,
// the configured Serializer, and a typed Bag (fallback cause, cache hit, retry attempts).
//
// Common usage pattern:
//
//	processor, err := querypipeline.NewBuilder().
//		RegisterHandler(GetRandomQuoteType, RandomQuoteHandlerType, NewRandomQuoteHandler).
//		RegisterDecorator(decorators.QueryLoggingType, decorators.NewQueryLogging(logger, contextualLogger)).
//		RegisterDecorator(decorators.FallbackPolicyType, decorators.NewFallbackPolicy).
//		DecorateGlobally(decorators.QueryLoggingType, 1).
//		DecorateHandler(RandomQuoteHandlerType, decorators.FallbackPolicyType, 2).
//		WithOptions(querypipeline.WithSerializer(jsonserializer.New())).
//		Build()
//	if err != nil {
//		// handle configuration error
//	}
//
//	quote, err := querypipeline.ExecuteAsyncAs[Quote](ctx, processor, GetRandomQuote{})
//
// Configuration failures (no handler, several handlers, failed construction, malformed
// decorator metadata, missing serializer) match ErrConfiguration and are never retried
// or substituted by a fallback.
package querypipeline
