package decorators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

const (
	// TimeoutType identifies the Timeout decorator in registrations.
	TimeoutType querypipeline.DecoratorType = "Timeout"

	// DefaultTimeout applies when no duration param is registered.
	DefaultTimeout = 30 * time.Second
)

// ErrQueryTimeout is returned when the inner chain exceeds the configured deadline.
// It matches context.DeadlineExceeded, so querypipeline.IsTimeoutError reports it.
var ErrQueryTimeout = fmt.Errorf("query timed out: %w", context.DeadlineExceeded)

// Timeout bounds the inner chain with a per-invocation deadline.
// Param: one time.Duration. Zero or negative disables the deadline.
//
// The cancellable form derives a deadline context; the inner chain honors it cooperatively.
// The blocking form cannot preempt: it runs the inner chain to completion and discards
// a result that arrived after the deadline.
type Timeout struct {
	timeout time.Duration
	now     func() time.Time
}

// NewTimeout creates a Timeout with DefaultTimeout. It matches querypipeline.DecoratorConstructor.
func NewTimeout() (querypipeline.Decorator, error) {
	return &Timeout{timeout: DefaultTimeout, now: time.Now}, nil
}

// InitializeFromParams reads the deadline duration.
func (d *Timeout) InitializeFromParams(params []any) error {
	if len(params) > 1 {
		return fmt.Errorf("%w: %s accepts one duration, got %d params",
			querypipeline.ErrInvalidDecoratorMetadata, TimeoutType, len(params))
	}

	for _, param := range params {
		timeout, ok := param.(time.Duration)
		if !ok {
			return unsupportedParam(TimeoutType, param)
		}

		d.timeout = timeout
	}

	return nil
}

// Around implements the cancellable form.
func (d *Timeout) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (any, error) {
	if d.timeout <= 0 {
		return next(ctx, query)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := next(timeoutCtx, query)
	if err == nil {
		return result, nil
	}

	// only our own deadline is reported as a timeout, the caller's context stays in charge of its own
	if ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrQueryTimeout, d.timeout)
	}

	return result, err
}

// AroundSync implements the blocking form.
func (d *Timeout) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (any, error) {
	if d.timeout <= 0 {
		return next(query)
	}

	start := d.now()

	result, err := next(query)
	if err != nil {
		return result, err
	}

	if elapsed := d.now().Sub(start); elapsed > d.timeout {
		return nil, fmt.Errorf("%w: took %s, limit %s", ErrQueryTimeout, elapsed, d.timeout)
	}

	return result, nil
}

var (
	_ querypipeline.Decorator     = (*Timeout)(nil)
	_ querypipeline.Parameterized = (*Timeout)(nil)
)
