package pltesthelpers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// ErrInjectedCreateFailure is returned by FactorySpy for types marked with FailOn.
var ErrInjectedCreateFailure = errors.New("injected create failure")

// FactorySpy is a HandlerFactory and DecoratorFactory that counts every creation and release.
type FactorySpy struct {
	mu           sync.Mutex
	handlers     map[querypipeline.HandlerType]querypipeline.HandlerConstructor
	decorators   map[querypipeline.DecoratorType]querypipeline.DecoratorConstructor
	failOn       map[string]bool
	panicOn      map[string]bool
	created      map[string]int
	released     map[string]int
	releaseOrder []string
	names        map[any]string
}

// NewFactorySpy creates an empty FactorySpy.
func NewFactorySpy() *FactorySpy {
	return &FactorySpy{
		handlers:   make(map[querypipeline.HandlerType]querypipeline.HandlerConstructor),
		decorators: make(map[querypipeline.DecoratorType]querypipeline.DecoratorConstructor),
		failOn:     make(map[string]bool),
		panicOn:    make(map[string]bool),
		created:    make(map[string]int),
		released:   make(map[string]int),
		names:      make(map[any]string),
	}
}

// WithHandler registers the constructor for handlerType.
func (f *FactorySpy) WithHandler(handlerType querypipeline.HandlerType, constructor querypipeline.HandlerConstructor) *FactorySpy {
	f.handlers[handlerType] = constructor
	return f
}

// WithDecorator registers the constructor for decoratorType.
func (f *FactorySpy) WithDecorator(decoratorType querypipeline.DecoratorType, constructor querypipeline.DecoratorConstructor) *FactorySpy {
	f.decorators[decoratorType] = constructor
	return f
}

// FailOn makes creation of the named type fail with ErrInjectedCreateFailure.
func (f *FactorySpy) FailOn(typeName string) *FactorySpy {
	f.failOn[typeName] = true
	return f
}

// PanicOn makes creation of the named type panic.
func (f *FactorySpy) PanicOn(typeName string) *FactorySpy {
	f.panicOn[typeName] = true
	return f
}

// CreateHandler implements querypipeline.HandlerFactory.
func (f *FactorySpy) CreateHandler(handlerType querypipeline.HandlerType) (querypipeline.Handler, error) {
	name := string(handlerType)
	if err := f.checkInjected(name); err != nil {
		return nil, err
	}

	constructor, ok := f.handlers[handlerType]
	if !ok {
		return nil, fmt.Errorf("no handler %q", name)
	}

	handler, err := constructor()
	if err != nil {
		return nil, err
	}

	f.recordCreated(name, handler)

	return handler, nil
}

// ReleaseHandler implements querypipeline.HandlerFactory.
func (f *FactorySpy) ReleaseHandler(handler querypipeline.Handler) {
	f.recordReleased(handler)
}

// CreateDecorator implements querypipeline.DecoratorFactory.
func (f *FactorySpy) CreateDecorator(decoratorType querypipeline.DecoratorType) (querypipeline.Decorator, error) {
	name := string(decoratorType)
	if err := f.checkInjected(name); err != nil {
		return nil, err
	}

	constructor, ok := f.decorators[decoratorType]
	if !ok {
		return nil, fmt.Errorf("no decorator %q", name)
	}

	decorator, err := constructor()
	if err != nil {
		return nil, err
	}

	f.recordCreated(name, decorator)

	return decorator, nil
}

// ReleaseDecorator implements querypipeline.DecoratorFactory.
func (f *FactorySpy) ReleaseDecorator(decorator querypipeline.Decorator) {
	f.recordReleased(decorator)
}

func (f *FactorySpy) checkInjected(name string) error {
	f.mu.Lock()
	fail, panics := f.failOn[name], f.panicOn[name]
	f.mu.Unlock()

	if panics {
		panic("injected create panic for " + name)
	}

	if fail {
		return fmt.Errorf("%w: %s", ErrInjectedCreateFailure, name)
	}

	return nil
}

func (f *FactorySpy) recordCreated(name string, instance any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created[name]++
	f.names[instance] = name
}

func (f *FactorySpy) recordReleased(instance any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := f.names[instance]
	f.released[name]++
	f.releaseOrder = append(f.releaseOrder, name)
}

// Created returns how many instances of the named type were created.
func (f *FactorySpy) Created(typeName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.created[typeName]
}

// Released returns how many instances of the named type were released.
func (f *FactorySpy) Released(typeName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.released[typeName]
}

// TotalCreated returns the number of created instances of all types.
func (f *FactorySpy) TotalCreated() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, count := range f.created {
		total += count
	}

	return total
}

// TotalReleased returns the number of released instances of all types.
func (f *FactorySpy) TotalReleased() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, count := range f.released {
		total += count
	}

	return total
}

// ReleaseOrder returns the type names in release order.
func (f *FactorySpy) ReleaseOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.releaseOrder...)
}

var (
	_ querypipeline.HandlerFactory   = (*FactorySpy)(nil)
	_ querypipeline.DecoratorFactory = (*FactorySpy)(nil)
)
