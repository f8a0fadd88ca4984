package decorators

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// ErrorMatcher decides whether a failure belongs to a configured failure kind.
type ErrorMatcher func(err error) bool

// requestContextHolder implements querypipeline.ContextAware for embedding decorators.
type requestContextHolder struct {
	rc *querypipeline.RequestContext
}

// SetRequestContext stores the per-invocation RequestContext.
func (h *requestContextHolder) SetRequestContext(rc *querypipeline.RequestContext) {
	h.rc = rc
}

// requestContext returns the injected RequestContext, or the one carried by ctx.
func (h *requestContextHolder) requestContext(ctx context.Context) *querypipeline.RequestContext {
	if h.rc != nil {
		return h.rc
	}

	if rc, ok := querypipeline.RequestContextFrom(ctx); ok {
		return rc
	}

	return nil
}

// bag returns the Bag of the current invocation, nil outside a pipeline.
func (h *requestContextHolder) bag(ctx context.Context) *querypipeline.Bag {
	if rc := h.requestContext(ctx); rc != nil {
		return rc.Bag()
	}

	return nil
}

func (h *requestContextHolder) correlationID(ctx context.Context) string {
	if rc := h.requestContext(ctx); rc != nil {
		return rc.ID()
	}

	return ""
}

// matchesAny reports whether err matches one of the matchers.
func matchesAny(err error, matchers []ErrorMatcher) bool {
	for _, match := range matchers {
		if match(err) {
			return true
		}
	}

	return false
}

// isKind returns an ErrorMatcher for a sentinel error kind.
func isKind(kind error) ErrorMatcher {
	return func(err error) bool {
		return errors.Is(err, kind)
	}
}

// isTerminal reports failures no decorator may retry or substitute.
func isTerminal(err error) bool {
	return querypipeline.IsConfigurationError(err) || querypipeline.IsCancellationError(err)
}

// callerDone reports whether err is the caller's own cancellation or expired deadline.
func callerDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

func unsupportedParam(decoratorType querypipeline.DecoratorType, param any) error {
	return fmt.Errorf("%w: %s does not accept param of type %T",
		querypipeline.ErrInvalidDecoratorMetadata, decoratorType, param)
}
