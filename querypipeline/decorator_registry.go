package querypipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Scope defines where a decorator registration applies.
type Scope int

const (
	// ScopeQuery applies the decorator to one query type.
	ScopeQuery Scope = iota + 1

	// ScopeHandler applies the decorator to one handler type.
	ScopeHandler

	// ScopeGlobal applies the decorator to every query.
	ScopeGlobal
)

// String returns the scope name used in logs and errors.
func (s Scope) String() string {
	switch s {
	case ScopeQuery:
		return "query"
	case ScopeHandler:
		return "handler"
	case ScopeGlobal:
		return "global"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// DecoratorRegistration is the explicit metadata attaching a decorator to a query, a handler, or all queries.
// Target is the query type for ScopeQuery, the handler type for ScopeHandler, and empty for ScopeGlobal.
type DecoratorRegistration struct {
	DecoratorType DecoratorType
	Order         int
	Params        []any
	Scope         Scope
	Target        string
}

// DecoratorDescriptor is one entry of a resolved decorator chain.
type DecoratorDescriptor struct {
	DecoratorType DecoratorType
	Order         int
	Params        []any
	Scope         Scope
}

type pipelineKey struct {
	queryType   string
	handlerType HandlerType
}

// DecoratorRegistry collects decorator registrations and computes the ordered chain per
// (query type, handler type) pair.
//
// Ordering: ascending Order. Ties keep query-scoped registrations before handler-scoped ones
// before global ones, and registration order within a scope. Duplicates are kept.
// The computed chain is cached per pair; a later Register invalidates the cache.
type DecoratorRegistry struct {
	mu         sync.RWMutex
	byQuery    map[string][]DecoratorDescriptor
	byHandler  map[HandlerType][]DecoratorDescriptor
	global     []DecoratorDescriptor
	orderCache map[pipelineKey][]DecoratorDescriptor
}

// NewDecoratorRegistry creates an empty DecoratorRegistry.
func NewDecoratorRegistry() *DecoratorRegistry {
	return &DecoratorRegistry{
		byQuery:    make(map[string][]DecoratorDescriptor),
		byHandler:  make(map[HandlerType][]DecoratorDescriptor),
		orderCache: make(map[pipelineKey][]DecoratorDescriptor),
	}
}

// Register adds a decorator registration.
// It fails with ErrInvalidDecoratorMetadata for an empty decorator type, an unknown scope,
// a missing target for a scoped registration, or a target on a global registration.
func (r *DecoratorRegistry) Register(registration DecoratorRegistration) error {
	if err := validateRegistration(registration); err != nil {
		return err
	}

	descriptor := DecoratorDescriptor{
		DecoratorType: registration.DecoratorType,
		Order:         registration.Order,
		Params:        append([]any(nil), registration.Params...),
		Scope:         registration.Scope,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch registration.Scope {
	case ScopeQuery:
		r.byQuery[registration.Target] = append(r.byQuery[registration.Target], descriptor)
	case ScopeHandler:
		handlerType := HandlerType(registration.Target)
		r.byHandler[handlerType] = append(r.byHandler[handlerType], descriptor)
	case ScopeGlobal:
		r.global = append(r.global, descriptor)
	}

	clear(r.orderCache)

	return nil
}

// DecoratorsFor returns the ordered decorator chain for the pair, outermost first.
// The returned descriptors are copies, Params included, and may be modified by the caller.
func (r *DecoratorRegistry) DecoratorsFor(queryType string, handlerType HandlerType) []DecoratorDescriptor {
	key := pipelineKey{queryType: queryType, handlerType: handlerType}

	r.mu.RLock()
	cached, ok := r.orderCache[key]
	r.mu.RUnlock()

	if ok {
		return cloneDescriptors(cached)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok = r.orderCache[key]; ok {
		return cloneDescriptors(cached)
	}

	merged := make([]DecoratorDescriptor, 0, len(r.byQuery[queryType])+len(r.byHandler[handlerType])+len(r.global))
	merged = append(merged, r.byQuery[queryType]...)
	merged = append(merged, r.byHandler[handlerType]...)
	merged = append(merged, r.global...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Order < merged[j].Order
	})

	r.orderCache[key] = merged

	return cloneDescriptors(merged)
}

func cloneDescriptors(descriptors []DecoratorDescriptor) []DecoratorDescriptor {
	clones := make([]DecoratorDescriptor, len(descriptors))
	for i, descriptor := range descriptors {
		descriptor.Params = append([]any(nil), descriptor.Params...)
		clones[i] = descriptor
	}

	return clones
}

func validateRegistration(registration DecoratorRegistration) error {
	if registration.DecoratorType == "" {
		return fmt.Errorf("%w: decorator type must not be empty", ErrInvalidDecoratorMetadata)
	}

	switch registration.Scope {
	case ScopeQuery, ScopeHandler:
		if registration.Target == "" {
			return fmt.Errorf("%w: %s-scoped decorator %q needs a target",
				ErrInvalidDecoratorMetadata, registration.Scope, registration.DecoratorType)
		}
	case ScopeGlobal:
		if registration.Target != "" {
			return fmt.Errorf("%w: global decorator %q must not have a target",
				ErrInvalidDecoratorMetadata, registration.DecoratorType)
		}
	default:
		return fmt.Errorf("%w: unknown %s for decorator %q",
			ErrInvalidDecoratorMetadata, registration.Scope, registration.DecoratorType)
	}

	return nil
}
