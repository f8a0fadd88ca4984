package querypipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// RequestContext is created once per top-level invocation and shared by reference with every
// decorator and the handler of that invocation. It is never shared across invocations.
type RequestContext struct {
	id         string
	serializer Serializer
	bag        *Bag
}

// NewRequestContext creates a RequestContext with the given correlation ID and serializer.
// An empty id gets a fresh UUID.
func NewRequestContext(id string, serializer Serializer) *RequestContext {
	if id == "" {
		id = uuid.NewString()
	}

	return &RequestContext{
		id:         id,
		serializer: serializer,
		bag:        &Bag{},
	}
}

// ID returns the correlation identifier of the invocation.
func (rc *RequestContext) ID() string {
	return rc.id
}

// Serializer returns the configured serializer, which may be nil.
func (rc *RequestContext) Serializer() Serializer {
	return rc.serializer
}

// Serialize serializes value with the configured serializer.
// It fails with ErrMissingSerializer when none is configured and wraps serializer failures
// with ErrSerializationFailed.
func (rc *RequestContext) Serialize(value any) (string, error) {
	if rc.serializer == nil {
		return "", ErrMissingSerializer
	}

	serialized, err := rc.serializer.Serialize(value)
	if err != nil {
		return "", errors.Join(ErrSerializationFailed, err)
	}

	return serialized, nil
}

// Bag returns the per-invocation side channel decorators use to signal each other.
func (rc *RequestContext) Bag() *Bag {
	return rc.bag
}

// Bag is the closed set of per-invocation signals shared between decorators.
// Every field has one writer decorator and any number of readers.
type Bag struct {
	mu            sync.Mutex
	fallbackCause error
	hasFallback   bool
	cacheHit      bool
	retryAttempts int
}

// SetFallbackCause records that a fallback substitution happened because of cause.
func (b *Bag) SetFallbackCause(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fallbackCause = cause
	b.hasFallback = true
}

// ClearFallbackCause withdraws a recorded fallback substitution.
// The fallback decorator calls it when the chain is run again within the same invocation.
func (b *Bag) ClearFallbackCause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fallbackCause = nil
	b.hasFallback = false
}

// FallbackCause returns the failure that triggered a fallback substitution, nil if none happened.
func (b *Bag) FallbackCause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.fallbackCause
}

// HasFallback reports whether a fallback substitution happened in this invocation.
func (b *Bag) HasFallback() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.hasFallback
}

// MarkCacheHit records that the result was served from a result cache.
func (b *Bag) MarkCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cacheHit = true
}

// CacheHit reports whether the result was served from a result cache.
func (b *Bag) CacheHit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cacheHit
}

// SetRetryAttempts records the number of attempts a retry decorator made.
func (b *Bag) SetRetryAttempts(attempts int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.retryAttempts = attempts
}

// RetryAttempts returns the number of attempts recorded by a retry decorator, 0 if none ran.
func (b *Bag) RetryAttempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.retryAttempts
}

type requestContextKey struct{}

// WithRequestContext returns a copy of ctx that carries rc.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the RequestContext carried by ctx, if any.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}
