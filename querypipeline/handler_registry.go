package querypipeline

import (
	"fmt"
	"sync"
)

// HandlerRegistry maps a query type to exactly one handler type.
// Registration happens at process start; Resolve is a pure lookup that is safe for concurrent use.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerType
}

// NewHandlerRegistry creates an empty HandlerRegistry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]HandlerType),
	}
}

// Register associates handlerType with queryType.
// Registering the same pair twice is a no-op. Registering a second, different handler type
// is accepted here and reported by Resolve, so a misconfiguration surfaces per query type.
func (r *HandlerRegistry) Register(queryType string, handlerType HandlerType) error {
	if queryType == "" {
		return ErrEmptyQueryType
	}

	if handlerType == "" {
		return ErrEmptyHandlerType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, registered := range r.handlers[queryType] {
		if registered == handlerType {
			return nil
		}
	}

	r.handlers[queryType] = append(r.handlers[queryType], handlerType)

	return nil
}

// Resolve returns the single handler type registered for queryType.
// It fails with ErrNoHandlerRegistered or ErrMultipleHandlersRegistered, both configuration errors.
func (r *HandlerRegistry) Resolve(queryType string) (HandlerType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registered := r.handlers[queryType]

	switch len(registered) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrNoHandlerRegistered, queryType)
	case 1:
		return registered[0], nil
	default:
		return "", fmt.Errorf("%w: %q has %v", ErrMultipleHandlersRegistered, queryType, registered)
	}
}
