package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrEmptyKey is returned when an entry or lookup has an empty key.
	ErrEmptyKey = errors.New("cache key must not be empty")

	// ErrEmptyQueryType is returned when an entry has an empty query type.
	ErrEmptyQueryType = errors.New("cache entry query type must not be empty")

	// ErrInvalidEntryJSON is returned when the entry data is not valid JSON.
	ErrInvalidEntryJSON = errors.New("cache entry json is not valid")

	// ErrNegativeTTL is returned when a negative time to live is provided.
	ErrNegativeTTL = errors.New("cache ttl must not be negative")

	// ErrNilConnection is returned when a store is created without a connection.
	ErrNilConnection = errors.New("cache store connection must not be nil")

	// ErrSavingEntryFailed is returned when the save operation fails.
	ErrSavingEntryFailed = errors.New("saving cache entry failed")

	// ErrLoadingEntryFailed is returned when the load operation fails.
	ErrLoadingEntryFailed = errors.New("loading cache entry failed")

	// ErrDeletingEntryFailed is returned when the delete operation fails.
	ErrDeletingEntryFailed = errors.New("deleting cache entry failed")
)

// Entry is one cached query result.
type Entry struct {
	Key       string          // Cache key derived from query type and serialized query
	QueryType string          // Query type the result belongs to
	Data      json.RawMessage // Serialized result as JSON
	CreatedAt time.Time       // When this entry was stored
	ExpiresAt time.Time       // Zero means no expiry
}

// Validate ensures the entry has valid data for storage operations.
func (e Entry) Validate() error {
	if e.Key == "" {
		return ErrEmptyKey
	}

	if e.QueryType == "" {
		return ErrEmptyQueryType
	}

	if !jsoniter.ConfigFastest.Valid(e.Data) {
		return ErrInvalidEntryJSON
	}

	return nil
}

// Expired reports whether the entry is expired at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// TTL returns the remaining time to live at now, 0 for entries without expiry.
func (e Entry) TTL(now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}

	return e.ExpiresAt.Sub(now)
}

// BuildEntry creates a new Entry with validation. A zero ttl means no expiry.
func BuildEntry(key, queryType string, data json.RawMessage, ttl time.Duration) (Entry, error) {
	if ttl < 0 {
		return Entry{}, ErrNegativeTTL
	}

	now := time.Now().UTC()

	entry := Entry{
		Key:       key,
		QueryType: queryType,
		Data:      data,
		CreatedAt: now,
	}

	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Store persists cached query results.
// Load returns nil and no error on a miss, expired entries included.
type Store interface {
	Save(ctx context.Context, entry Entry) error
	Load(ctx context.Context, key string) (*Entry, error)
	Delete(ctx context.Context, key string) error
}
