package decorators

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
)

const (
	// ResultCacheType identifies the ResultCache decorator in registrations.
	ResultCacheType querypipeline.DecoratorType = "ResultCache"

	// CacheLookupsMetric counts cache lookups by query type and outcome.
	CacheLookupsMetric = "querypipeline_cache_lookups_total"

	// LogMsgCacheLoadFailed is logged when the store fails on load; the chain runs uncached.
	LogMsgCacheLoadFailed = "result cache load failed"

	// LogMsgCacheSaveFailed is logged when the store fails on save; the result is still returned.
	LogMsgCacheSaveFailed = "result cache save failed"

	// LogMsgCacheDecodeFailed is logged when a cached entry cannot be decoded; the chain runs uncached.
	LogMsgCacheDecodeFailed = "result cache decode failed"

	// LogAttrCacheKey identifies the cache key in logs.
	LogAttrCacheKey = "cache_key"

	// LogAttrOutcome is the cache lookup outcome label.
	LogAttrOutcome = "outcome"

	outcomeHit    = "hit"
	outcomeMiss   = "miss"
	outcomeBypass = "bypass"
)

// ErrNilResultStore is returned when a ResultCache is built without a store.
var ErrNilResultStore = fmt.Errorf("%w: result cache store must not be nil", querypipeline.ErrConfiguration)

var cacheJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeFunc turns cached JSON back into a query result.
type DecodeFunc func(data []byte) (any, error)

// DecodeJSON returns a DecodeFunc that unmarshals into R.
func DecodeJSON[R any]() DecodeFunc {
	return func(data []byte) (any, error) {
		var result R
		if err := cacheJSON.Unmarshal(data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

// TTL is a ResultCache param setting the time to live of stored entries. Zero means no expiry.
type TTL time.Duration

// ResultCacheConfig is shared by all ResultCache instances built from one constructor.
type ResultCacheConfig struct {
	mu       sync.RWMutex
	store    cachestore.Store
	decoders map[string]DecodeFunc
	obs      querypipeline.Observability
}

// CacheOption defines a functional option for configuring ResultCacheConfig.
type CacheOption func(*ResultCacheConfig) error

// WithResultType registers the decoder for results of queryType.
// Queries without a registered decoder bypass the cache.
func WithResultType(queryType string, decode DecodeFunc) CacheOption {
	return func(c *ResultCacheConfig) error {
		if queryType == "" {
			return querypipeline.ErrEmptyQueryType
		}

		if decode == nil {
			return fmt.Errorf("%w: nil decoder for %q", querypipeline.ErrInvalidDecoratorMetadata, queryType)
		}

		c.decoders[queryType] = decode

		return nil
	}
}

// WithCacheLogger sets the logger for store failures.
func WithCacheLogger(logger querypipeline.Logger) CacheOption {
	return func(c *ResultCacheConfig) error {
		c.obs.Logger = logger
		return nil
	}
}

// WithCacheContextualLogger sets the contextual logger for store failures.
func WithCacheContextualLogger(logger querypipeline.ContextualLogger) CacheOption {
	return func(c *ResultCacheConfig) error {
		c.obs.ContextualLogger = logger
		return nil
	}
}

// WithCacheMetrics sets the metrics collector for cache lookups.
func WithCacheMetrics(collector querypipeline.MetricsCollector) CacheOption {
	return func(c *ResultCacheConfig) error {
		c.obs.MetricsCollector = collector
		return nil
	}
}

// NewResultCacheConfig creates the shared configuration of ResultCache decorators.
func NewResultCacheConfig(store cachestore.Store, options ...CacheOption) (*ResultCacheConfig, error) {
	if store == nil {
		return nil, ErrNilResultStore
	}

	c := &ResultCacheConfig{
		store:    store,
		decoders: make(map[string]DecodeFunc),
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Register adds the decoder for results of queryType after construction.
func (c *ResultCacheConfig) Register(queryType string, decode DecodeFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return WithResultType(queryType, decode)(c)
}

// Constructor returns the querypipeline.DecoratorConstructor for ResultCache decorators.
func (c *ResultCacheConfig) Constructor() querypipeline.DecoratorConstructor {
	return func() (querypipeline.Decorator, error) {
		return &ResultCache{config: c}, nil
	}
}

func (c *ResultCacheConfig) decoder(queryType string) (DecodeFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	decode, ok := c.decoders[queryType]

	return decode, ok
}

// ResultCache serves results from a cachestore.Store and stores fresh results.
// The key is derived from the query type and the serialized query, so it needs the serializer
// of the RequestContext. Param: TTL.
//
// Store failures never fail the invocation: they are logged and the chain runs uncached.
// Failed results and results produced through a fallback substitution are not stored.
type ResultCache struct {
	requestContextHolder

	config *ResultCacheConfig
	ttl    time.Duration
}

// InitializeFromParams reads the TTL.
func (d *ResultCache) InitializeFromParams(params []any) error {
	for _, param := range params {
		switch p := param.(type) {
		case TTL:
			if p < 0 {
				return fmt.Errorf("%w: %s", querypipeline.ErrInvalidDecoratorMetadata, cachestore.ErrNegativeTTL)
			}

			d.ttl = time.Duration(p)
		default:
			return unsupportedParam(ResultCacheType, param)
		}
	}

	return nil
}

// Around implements the cancellable form.
func (d *ResultCache) Around(
	ctx context.Context,
	query querypipeline.Query,
	next querypipeline.Next,
	_ querypipeline.Next,
) (any, error) {
	return d.cached(ctx, query, func() (any, error) {
		return next(ctx, query)
	})
}

// AroundSync implements the blocking form.
func (d *ResultCache) AroundSync(
	query querypipeline.Query,
	next querypipeline.SyncNext,
	_ querypipeline.SyncNext,
) (any, error) {
	return d.cached(context.Background(), query, func() (any, error) {
		return next(query)
	})
}

func (d *ResultCache) cached(ctx context.Context, query querypipeline.Query, run func() (any, error)) (any, error) {
	queryType := query.QueryType()

	decode, ok := d.config.decoder(queryType)
	if !ok {
		d.countLookup(ctx, queryType, outcomeBypass)
		return run()
	}

	key, err := d.cacheKey(ctx, query)
	if err != nil {
		return nil, err
	}

	if result, hit := d.load(ctx, queryType, key, decode); hit {
		if bag := d.bag(ctx); bag != nil {
			bag.MarkCacheHit()
		}

		d.countLookup(ctx, queryType, outcomeHit)

		return result, nil
	}

	d.countLookup(ctx, queryType, outcomeMiss)

	result, err := run()
	if err != nil {
		return result, err
	}

	if bag := d.bag(ctx); bag == nil || !bag.HasFallback() {
		d.save(ctx, queryType, key, result)
	}

	return result, nil
}

// CacheKey derives the cache key for query from its type and serialized form.
func CacheKey(queryType, serialized string) string {
	sum := sha256.Sum256([]byte(queryType + "\x00" + serialized))
	return queryType + ":" + hex.EncodeToString(sum[:])
}

func (d *ResultCache) cacheKey(ctx context.Context, query querypipeline.Query) (string, error) {
	rc := d.requestContext(ctx)
	if rc == nil {
		return "", querypipeline.ErrMissingSerializer
	}

	serialized, err := rc.Serialize(query)
	if err != nil {
		return "", err
	}

	return CacheKey(query.QueryType(), serialized), nil
}

func (d *ResultCache) load(ctx context.Context, queryType, key string, decode DecodeFunc) (any, bool) {
	entry, err := d.config.store.Load(ctx, key)
	if err != nil {
		d.config.obs.LogWarn(ctx, LogMsgCacheLoadFailed,
			querypipeline.LogAttrQueryType, queryType,
			LogAttrCacheKey, key,
			querypipeline.LogAttrError, err.Error(),
		)

		return nil, false
	}

	if entry == nil {
		return nil, false
	}

	result, err := decode(entry.Data)
	if err != nil {
		d.config.obs.LogWarn(ctx, LogMsgCacheDecodeFailed,
			querypipeline.LogAttrQueryType, queryType,
			LogAttrCacheKey, key,
			querypipeline.LogAttrError, err.Error(),
		)

		return nil, false
	}

	return result, true
}

func (d *ResultCache) save(ctx context.Context, queryType, key string, result any) {
	data, err := cacheJSON.Marshal(result)
	if err == nil {
		var entry cachestore.Entry
		if entry, err = cachestore.BuildEntry(key, queryType, data, d.ttl); err == nil {
			err = d.config.store.Save(ctx, entry)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		d.config.obs.LogWarn(ctx, LogMsgCacheSaveFailed,
			querypipeline.LogAttrQueryType, queryType,
			LogAttrCacheKey, key,
			querypipeline.LogAttrError, err.Error(),
		)
	}
}

func (d *ResultCache) countLookup(ctx context.Context, queryType, outcome string) {
	d.config.obs.IncrementCounter(ctx, CacheLookupsMetric, map[string]string{
		querypipeline.LogAttrQueryType: queryType,
		LogAttrOutcome:                 outcome,
	})
}

var (
	_ querypipeline.Decorator     = (*ResultCache)(nil)
	_ querypipeline.ContextAware  = (*ResultCache)(nil)
	_ querypipeline.Parameterized = (*ResultCache)(nil)
)
