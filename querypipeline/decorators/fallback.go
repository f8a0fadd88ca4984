package decorators

import (
	"context"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// FallbackPolicyType identifies the FallbackPolicy decorator in registrations.
const FallbackPolicyType querypipeline.DecoratorType = "FallbackPolicy"

// FallbackFunc produces a substitute result for query.
// When configured, it replaces the handler's designated fallback method.
type FallbackFunc func(ctx context.Context, query querypipeline.Query) (any, error)

// FallbackPolicy calls the inner chain and, when it fails with one of the configured failure kinds,
// records the failure as the fallback cause and returns the fallback result instead.
//
// Params (any order, any number):
//   - error: a failure kind, matched with errors.Is
//   - ErrorMatcher or func(error) bool: a custom failure kind
//   - FallbackFunc: a supplied fallback overriding the handler's fallback method
//
// Without configured kinds, every failure except configuration and cancellation failures is intercepted.
// A failure caused by the caller's own context ending, deadline included, is never intercepted.
// Other failures propagate unmodified. A failing fallback propagates as is.
//
// When an outer decorator such as Retry runs the chain again, the policy withdraws the fallback cause
// it recorded on the previous run, so the bag only reflects the run that produced the result.
type FallbackPolicy struct {
	requestContextHolder

	matchers []ErrorMatcher
	fallback FallbackFunc
	recorded bool
}

// NewFallbackPolicy creates a FallbackPolicy. It matches querypipeline.DecoratorConstructor.
func NewFallbackPolicy() (querypipeline.Decorator, error) {
	return &FallbackPolicy{}, nil
}

// InitializeFromParams configures failure kinds and the optional supplied fallback.
func (d *FallbackPolicy) InitializeFromParams(params []any) error {
	for _, param := range params {
		switch p := param.(type) {
		case FallbackFunc:
			d.fallback = p
		case func(ctx context.Context, query querypipeline.Query) (any, error):
			d.fallback = p
		case ErrorMatcher:
			d.matchers = append(d.matchers, p)
		case func(error) bool:
			d.matchers = append(d.matchers, p)
		case error:
			d.matchers = append(d.matchers, isKind(p))
		default:
			return unsupportedParam(FallbackPolicyType, param)
		}
	}

	return nil
}

// Around implements the cancellable form.
func (d *FallbackPolicy) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	fallback querypipeline.Next,
) (any, error) {
	d.withdraw(ctx)

	result, err := next(ctx, query)
	if err == nil || callerDone(ctx, err) || !d.intercepts(err) {
		return result, err
	}

	d.record(ctx, err)

	if d.fallback != nil {
		return d.fallback(ctx, query)
	}

	return fallback(ctx, query)
}

// AroundSync implements the blocking form.
func (d *FallbackPolicy) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	fallback querypipeline.SyncNext,
) (any, error) {
	d.withdraw(context.Background())

	result, err := next(query)
	if err == nil || !d.intercepts(err) {
		return result, err
	}

	d.record(context.Background(), err)

	if d.fallback != nil {
		return d.fallback(context.Background(), query)
	}

	return fallback(query)
}

func (d *FallbackPolicy) record(ctx context.Context, cause error) {
	if bag := d.bag(ctx); bag != nil {
		bag.SetFallbackCause(cause)
		d.recorded = true
	}
}

func (d *FallbackPolicy) withdraw(ctx context.Context) {
	if !d.recorded {
		return
	}

	if bag := d.bag(ctx); bag != nil {
		bag.ClearFallbackCause()
	}

	d.recorded = false
}

func (d *FallbackPolicy) intercepts(err error) bool {
	if isTerminal(err) {
		return false
	}

	if len(d.matchers) == 0 {
		return true
	}

	return matchesAny(err, d.matchers)
}

var (
	_ querypipeline.Decorator     = (*FallbackPolicy)(nil)
	_ querypipeline.ContextAware  = (*FallbackPolicy)(nil)
	_ querypipeline.Parameterized = (*FallbackPolicy)(nil)
)
