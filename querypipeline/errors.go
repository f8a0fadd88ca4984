package querypipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the root of all configuration failures.
	// A configuration failure is always fatal to the invocation and never retried.
	ErrConfiguration = errors.New("query pipeline configuration error")

	// ErrNoHandlerRegistered is returned when no handler is registered for a query type.
	ErrNoHandlerRegistered = fmt.Errorf("%w: no handler registered for query type", ErrConfiguration)

	// ErrMultipleHandlersRegistered is returned when more than one handler is registered for a query type.
	ErrMultipleHandlersRegistered = fmt.Errorf("%w: more than one handler registered for query type", ErrConfiguration)

	// ErrConstructionFailed is returned when a factory cannot create a handler or decorator instance.
	ErrConstructionFailed = fmt.Errorf("%w: instance construction failed", ErrConfiguration)

	// ErrInvalidDecoratorMetadata is returned for malformed decorator registrations or params.
	ErrInvalidDecoratorMetadata = fmt.Errorf("%w: invalid decorator metadata", ErrConfiguration)

	// ErrAsyncOnlyHandler is returned when ExecuteSync is asked to run a handler without a synchronous form.
	ErrAsyncOnlyHandler = fmt.Errorf("%w: handler supports only cancellable execution", ErrConfiguration)

	// ErrMissingSerializer is returned when a decorator needs the serializer but none was configured.
	ErrMissingSerializer = fmt.Errorf("%w: no serializer configured on the request context", ErrConfiguration)

	// ErrEmptyQueryType is returned when a query or registration has an empty query type.
	ErrEmptyQueryType = fmt.Errorf("%w: query type must not be empty", ErrConfiguration)

	// ErrEmptyHandlerType is returned when a registration has an empty handler type.
	ErrEmptyHandlerType = fmt.Errorf("%w: handler type must not be empty", ErrConfiguration)

	// ErrNilQuery is returned when a nil query is submitted.
	ErrNilQuery = errors.New("query must not be nil")

	// ErrSerializationFailed wraps failures of the serializer capability.
	ErrSerializationFailed = errors.New("query serialization failed")

	// ErrQueryCanceled marks an invocation that ended because the caller's context was done.
	ErrQueryCanceled = errors.New("query execution canceled")

	// ErrUnexpectedResultType is returned by the typed facades when the chain yields a different result type.
	ErrUnexpectedResultType = errors.New("query result has unexpected type")

	// ErrNoFallback is returned when a fallback is requested but the handler has no fallback method.
	ErrNoFallback = errors.New("handler does not provide a fallback")

	// ErrNilHandlerRegistry is returned when a Processor is built without a handler registry.
	ErrNilHandlerRegistry = errors.New("handler registry must not be nil")

	// ErrNilDecoratorRegistry is returned when a Processor is built without a decorator registry.
	ErrNilDecoratorRegistry = errors.New("decorator registry must not be nil")

	// ErrNilFactory is returned when a Processor is built without a handler or decorator factory.
	ErrNilFactory = errors.New("factory must not be nil")
)

// IsConfigurationError checks if an error is a configuration failure.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsCancellationError checks if an error is due to cancellation of the caller's context.
func IsCancellationError(err error) bool {
	return errors.Is(err, ErrQueryCanceled) || errors.Is(err, context.Canceled)
}

// IsTimeoutError checks if an error is due to context deadline exceeded.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
