package decorators

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

const (
	// RetryType identifies the Retry decorator in registrations.
	RetryType querypipeline.DecoratorType = "Retry"

	defaultMaxAttempts  = 3
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	// RetryAttemptsMetric tracks retry attempts by query type, attempt number, and error type.
	RetryAttemptsMetric = "querypipeline_retry_attempts_total"

	// RetryDelayMetric tracks the backoff delay before each retry attempt.
	RetryDelayMetric = "querypipeline_retry_delay_seconds"

	// RetryMaxAttemptsReachedMetric tracks retry exhaustion by query type and final error type.
	RetryMaxAttemptsReachedMetric = "querypipeline_retry_max_attempts_reached_total"

	// LogAttrAttempt indicates the attempt number in retry metrics.
	LogAttrAttempt = "attempt_number"

	// LogAttrErrorType classifies the failure in retry metrics.
	LogAttrErrorType = "error_type"
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = fmt.Errorf("%w: max attempts must be positive", querypipeline.ErrInvalidDecoratorMetadata)

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = fmt.Errorf("%w: base delay must not be negative", querypipeline.ErrInvalidDecoratorMetadata)

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = fmt.Errorf("%w: jitter factor must be between 0.0 and 1.0", querypipeline.ErrInvalidDecoratorMetadata)
)

// MaxAttempts is a Retry param setting the maximum number of attempts, the first one included.
type MaxAttempts int

// BaseDelay is a Retry param setting the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
type BaseDelay time.Duration

// JitterFactor is a Retry param setting the jitter as a share of the backoff delay, 0.0 to 1.0.
type JitterFactor float64

// Retry re-runs the inner chain with exponential backoff and jitter while it fails with a retryable kind.
//
// Params: MaxAttempts, BaseDelay, JitterFactor, and retryable kinds as error or ErrorMatcher.
// Without configured kinds, every failure except configuration, cancellation, and timeout failures
// is retried. Timeouts are never retried by default: retrying them under overload creates cascades.
//
// Retry schedule (default): 0 ms, 10 ms, 20 ms (with 30% jitter).
// The number of attempts made is recorded in the bag.
type Retry struct {
	requestContextHolder

	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	matchers     []ErrorMatcher
	obs          querypipeline.Observability
	sleep        func(time.Duration)
}

// NewRetry returns a constructor for Retry decorators. The collector may be nil.
func NewRetry(collector querypipeline.MetricsCollector) querypipeline.DecoratorConstructor {
	return func() (querypipeline.Decorator, error) {
		return &Retry{
			maxAttempts:  defaultMaxAttempts,
			baseDelay:    defaultBaseDelay,
			jitterFactor: defaultJitterFactor,
			obs:          querypipeline.Observability{MetricsCollector: collector},
			sleep:        time.Sleep,
		}, nil
	}
}

// InitializeFromParams reads the backoff settings and retryable kinds.
func (d *Retry) InitializeFromParams(params []any) error {
	for _, param := range params {
		switch p := param.(type) {
		case MaxAttempts:
			if p <= 0 {
				return ErrInvalidMaxAttempts
			}

			d.maxAttempts = int(p)
		case BaseDelay:
			if p < 0 {
				return ErrNegativeBaseDelay
			}

			d.baseDelay = time.Duration(p)
		case JitterFactor:
			if p < 0.0 || p > 1.0 {
				return ErrInvalidJitterFactor
			}

			d.jitterFactor = float64(p)
		case ErrorMatcher:
			d.matchers = append(d.matchers, p)
		case func(error) bool:
			d.matchers = append(d.matchers, p)
		case error:
			d.matchers = append(d.matchers, isKind(p))
		default:
			return unsupportedParam(RetryType, param)
		}
	}

	return nil
}

// Around implements the cancellable form. Backoff waits end early when ctx is done.
func (d *Retry) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (any, error) {
	return d.run(ctx, query, func(attempt int) (any, error) {
		if attempt > 0 {
			select {
			case <-time.After(d.backoff(ctx, query, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return next(ctx, query)
	})
}

// AroundSync implements the blocking form.
func (d *Retry) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (any, error) {
	ctx := context.Background()

	return d.run(ctx, query, func(attempt int) (any, error) {
		if attempt > 0 {
			d.sleep(d.backoff(ctx, query, attempt))
		}

		return next(query)
	})
}

func (d *Retry) run(ctx context.Context, query querypipeline.Query, attemptFn func(attempt int) (any, error)) (any, error) {
	var (
		result  any
		lastErr error
		made    int
	)

	defer func() {
		if bag := d.bag(ctx); bag != nil {
			bag.SetRetryAttempts(made)
		}
	}()

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		made = attempt + 1

		result, lastErr = attemptFn(attempt)
		if lastErr == nil {
			return result, nil
		}

		if !d.retryable(lastErr) || ctx.Err() != nil {
			return result, lastErr
		}

		if attempt < d.maxAttempts-1 {
			d.obs.IncrementCounter(ctx, RetryAttemptsMetric, map[string]string{
				querypipeline.LogAttrQueryType: query.QueryType(),
				LogAttrAttempt:                 strconv.Itoa(attempt + 1),
				LogAttrErrorType:               errorType(lastErr),
			})
		}
	}

	d.obs.IncrementCounter(ctx, RetryMaxAttemptsReachedMetric, map[string]string{
		querypipeline.LogAttrQueryType: query.QueryType(),
		LogAttrErrorType:               errorType(lastErr),
	})

	return result, lastErr
}

// backoff computes baseDelay * 2^(attempt-1) plus jitter and records it.
func (d *Retry) backoff(ctx context.Context, query querypipeline.Query, attempt int) time.Duration {
	delay := d.baseDelay * time.Duration(1<<(attempt-1))
	jitter := rand.Float64() * float64(delay) * d.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
	backoffDelay := delay + time.Duration(jitter)

	d.obs.RecordDuration(ctx, RetryDelayMetric, backoffDelay, map[string]string{
		querypipeline.LogAttrQueryType: query.QueryType(),
		LogAttrAttempt:                 strconv.Itoa(attempt),
	})

	return backoffDelay
}

func (d *Retry) retryable(err error) bool {
	if isTerminal(err) {
		return false
	}

	if len(d.matchers) == 0 {
		return !querypipeline.IsTimeoutError(err)
	}

	return matchesAny(err, d.matchers)
}

// errorType extracts a string representation of the error type for metrics labeling.
func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrQueryTimeout):
		return "query_timeout"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}

var (
	_ querypipeline.Decorator     = (*Retry)(nil)
	_ querypipeline.ContextAware  = (*Retry)(nil)
	_ querypipeline.Parameterized = (*Retry)(nil)
)
