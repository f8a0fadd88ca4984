package quotesapp

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/example/features/query/randomquote"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/decorators"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/jsonserializer"
)

const (
	defaultTimeout     = 2 * time.Second
	defaultMaxAttempts = 3
	defaultCacheTTL    = 30 * time.Second
)

// Dependencies configures NewProcessor. Every field is optional.
type Dependencies struct {
	// Source defaults to randomquote.DefaultQuotes.
	Source randomquote.QuoteSource
	// Store enables the ResultCache decorator.
	Store       cachestore.Store
	CacheTTL    time.Duration
	Timeout     time.Duration
	MaxAttempts int

	Logger           querypipeline.Logger
	ContextualLogger querypipeline.ContextualLogger
	Metrics          querypipeline.MetricsCollector
	Tracing          querypipeline.TracingCollector
}

// NewProcessor builds the quotes pipeline.
func NewProcessor(deps Dependencies) (*querypipeline.Processor, error) {
	deps = withDefaults(deps)

	builder := querypipeline.NewBuilder().
		RegisterHandler(randomquote.QueryType, randomquote.HandlerType, randomquote.Constructor(deps.Source)).
		RegisterDecorator(decorators.QueryLoggingType, decorators.NewQueryLogging(deps.Logger, deps.ContextualLogger)).
		RegisterDecorator(decorators.FallbackPolicyType, decorators.NewFallbackPolicy).
		RegisterDecorator(decorators.TimeoutType, decorators.NewTimeout).
		RegisterDecorator(decorators.RetryType, decorators.NewRetry(deps.Metrics)).
		RegisterDecorator(decorators.PanicRecoveryType, decorators.NewPanicRecovery).
		RegisterDecorator(decorators.InstrumentationType, decorators.NewInstrumentation(deps.Metrics, deps.Tracing)).
		DecorateGlobally(decorators.QueryLoggingType, 1).
		DecorateHandler(randomquote.HandlerType, decorators.FallbackPolicyType, 2).
		DecorateQuery(randomquote.QueryType, decorators.TimeoutType, 4, deps.Timeout).
		DecorateQuery(randomquote.QueryType, decorators.RetryType, 5, decorators.MaxAttempts(deps.MaxAttempts)).
		DecorateHandler(randomquote.HandlerType, decorators.PanicRecoveryType, 6).
		DecorateHandler(randomquote.HandlerType, decorators.InstrumentationType, 7).
		WithOptions(
			querypipeline.WithSerializer(jsonserializer.New()),
			querypipeline.WithLogger(deps.Logger),
			querypipeline.WithContextualLogger(deps.ContextualLogger),
			querypipeline.WithMetrics(deps.Metrics),
			querypipeline.WithTracing(deps.Tracing),
		)

	if deps.Store != nil {
		cacheConfig, err := decorators.NewResultCacheConfig(
			deps.Store,
			decorators.WithResultType(randomquote.QueryType, decorators.DecodeJSON[randomquote.Quote]()),
			decorators.WithCacheLogger(deps.Logger),
			decorators.WithCacheContextualLogger(deps.ContextualLogger),
			decorators.WithCacheMetrics(deps.Metrics),
		)
		if err != nil {
			return nil, err
		}

		builder.
			RegisterDecorator(decorators.ResultCacheType, cacheConfig.Constructor()).
			DecorateQuery(randomquote.QueryType, decorators.ResultCacheType, 3, decorators.TTL(deps.CacheTTL))
	}

	return builder.Build()
}

// GetRandomQuote runs GetRandomQuote in the cancellable form.
func GetRandomQuote(ctx context.Context, processor *querypipeline.Processor) (randomquote.Quote, error) {
	return querypipeline.ExecuteAsyncAs[randomquote.Quote](ctx, processor, randomquote.GetRandomQuote{})
}

// GetRandomQuoteSync runs GetRandomQuote in the blocking form.
func GetRandomQuoteSync(processor *querypipeline.Processor) (randomquote.Quote, error) {
	return querypipeline.ExecuteSyncAs[randomquote.Quote](processor, randomquote.GetRandomQuote{})
}

// ErrSourceUnavailable is returned by UnavailableSource.
var ErrSourceUnavailable = errors.New("quote source unavailable")

// UnavailableSource always fails. The CLI uses it to demonstrate the fallback path.
type UnavailableSource struct{}

// Quotes implements randomquote.QuoteSource.
func (UnavailableSource) Quotes(_ context.Context) ([]randomquote.Quote, error) {
	return nil, ErrSourceUnavailable
}

func withDefaults(deps Dependencies) Dependencies {
	if deps.Source == nil {
		deps.Source = randomquote.DefaultQuotes
	}

	if deps.Timeout == 0 {
		deps.Timeout = defaultTimeout
	}

	if deps.MaxAttempts == 0 {
		deps.MaxAttempts = defaultMaxAttempts
	}

	if deps.CacheTTL == 0 {
		deps.CacheTTL = defaultCacheTTL
	}

	return deps
}
