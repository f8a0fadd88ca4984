// Package decorators provides the built-in decorators of the query pipeline.
//
// Every decorator implements both execution forms of querypipeline.Decorator and is created
// fresh per invocation. Decorators that need the per-invocation RequestContext implement
// querypipeline.ContextAware. Decorators configured from registration metadata implement
// querypipeline.Parameterized and report unsupported params as malformed metadata.
//
// Built-in decorators:
//   - FallbackPolicy: substitutes the handler's fallback result for configured failure kinds
//   - QueryLogging: logs start and completion with the serialized query and the fallback annotation
//   - Timeout: bounds the invocation with a deadline
//   - Retry: retries transient failures with exponential backoff and jitter
//   - ResultCache: serves and stores results through a cachestore.Store
//   - Instrumentation: records metrics and a tracing span around the inner chain
//   - PanicRecovery: converts panics of the inner chain into a *RecoveryError
//
// Constructors without dependencies match querypipeline.DecoratorConstructor and can be
// registered directly. Constructors with dependencies return a querypipeline.DecoratorConstructor.
package decorators
