// Package memory provides a process-local cachestore.Store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
)

// Store keeps entries in a map. Expired entries are dropped on Load.
type Store struct {
	mu      sync.Mutex
	entries map[string]cachestore.Entry
	now     func() time.Time
}

// Option defines a functional option for configuring Store.
type Option func(*Store)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty Store.
func NewStore(options ...Option) *Store {
	s := &Store{
		entries: make(map[string]cachestore.Entry),
		now:     time.Now,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Save stores entry, replacing an existing one with the same key.
func (s *Store) Save(ctx context.Context, entry cachestore.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	entry.Data = append([]byte(nil), entry.Data...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = entry

	return nil
}

// Load returns the entry for key, or nil on a miss.
func (s *Store) Load(ctx context.Context, key string) (*cachestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if key == "" {
		return nil, cachestore.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}

	if entry.Expired(s.now()) {
		delete(s.entries, key)
		return nil, nil
	}

	entry.Data = append([]byte(nil), entry.Data...)

	return &entry, nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if key == "" {
		return cachestore.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

var _ cachestore.Store = (*Store)(nil)
