// Package redis provides a cachestore.Store on Redis.
//
// Entries are stored as JSON strings under a prefixed key. Redis enforces the expiry,
// so Load never sees expired entries.
package redis

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
)

const defaultKeyPrefix = "querypipeline:cache:"

// ErrEmptyKeyPrefix is returned when an empty key prefix is provided to WithKeyPrefix.
var ErrEmptyKeyPrefix = errors.New("key prefix must not be empty")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// record is the stored representation of an entry.
type record struct {
	QueryType string              `json:"queryType"`
	Data      jsoniter.RawMessage `json:"data"`
	CreatedAt time.Time           `json:"createdAt"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

// Store is a cachestore.Store on a go-redis client.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithKeyPrefix sets the prefix of all Redis keys written by the Store.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) error {
		if prefix == "" {
			return ErrEmptyKeyPrefix
		}

		s.keyPrefix = prefix

		return nil
	}
}

// NewStore creates a Store on client. Any go-redis client works: single node, cluster, or ring.
func NewStore(client goredis.Cmdable, options ...Option) (*Store, error) {
	if client == nil {
		return nil, cachestore.ErrNilConnection
	}

	s := &Store{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Save stores entry with the remaining time to live of the entry.
func (s *Store) Save(ctx context.Context, entry cachestore.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	ttl := entry.TTL(time.Now())
	if !entry.ExpiresAt.IsZero() && ttl <= 0 {
		return nil
	}

	value, err := json.Marshal(record{
		QueryType: entry.QueryType,
		Data:      jsoniter.RawMessage(entry.Data),
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	})
	if err != nil {
		return errors.Join(cachestore.ErrSavingEntryFailed, err)
	}

	if err = s.client.Set(ctx, s.keyPrefix+entry.Key, value, ttl).Err(); err != nil {
		return errors.Join(cachestore.ErrSavingEntryFailed, err)
	}

	return nil
}

// Load returns the entry for key, or nil on a miss.
func (s *Store) Load(ctx context.Context, key string) (*cachestore.Entry, error) {
	if key == "" {
		return nil, cachestore.ErrEmptyKey
	}

	value, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Join(cachestore.ErrLoadingEntryFailed, err)
	}

	var stored record
	if err = json.Unmarshal(value, &stored); err != nil {
		return nil, errors.Join(cachestore.ErrLoadingEntryFailed, err)
	}

	return &cachestore.Entry{
		Key:       key,
		QueryType: stored.QueryType,
		Data:      []byte(stored.Data),
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return cachestore.ErrEmptyKey
	}

	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return errors.Join(cachestore.ErrDeletingEntryFailed, err)
	}

	return nil
}

var _ cachestore.Store = (*Store)(nil)
