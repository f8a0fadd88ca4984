package querypipeline

import (
	"errors"
	"fmt"
	"sync"
)

// HandlerFactory creates and releases handler instances per invocation.
// The Processor calls ReleaseHandler exactly once for every successful CreateHandler.
type HandlerFactory interface {
	CreateHandler(handlerType HandlerType) (Handler, error)
	ReleaseHandler(handler Handler)
}

// DecoratorFactory creates and releases decorator instances per invocation.
// The Processor calls ReleaseDecorator exactly once for every successful CreateDecorator.
type DecoratorFactory interface {
	CreateDecorator(decoratorType DecoratorType) (Decorator, error)
	ReleaseDecorator(decorator Decorator)
}

// HandlerConstructor builds a fresh handler instance.
type HandlerConstructor func() (Handler, error)

// DecoratorConstructor builds a fresh decorator instance.
type DecoratorConstructor func() (Decorator, error)

// ConstructorFactory implements HandlerFactory and DecoratorFactory from registered constructor functions.
// Release calls Releasable.Release on instances that implement it and is a no-op otherwise.
type ConstructorFactory struct {
	mu         sync.RWMutex
	handlers   map[HandlerType]HandlerConstructor
	decorators map[DecoratorType]DecoratorConstructor
}

// NewConstructorFactory creates an empty ConstructorFactory.
func NewConstructorFactory() *ConstructorFactory {
	return &ConstructorFactory{
		handlers:   make(map[HandlerType]HandlerConstructor),
		decorators: make(map[DecoratorType]DecoratorConstructor),
	}
}

// RegisterHandler registers the constructor for handlerType, replacing any earlier one.
func (f *ConstructorFactory) RegisterHandler(handlerType HandlerType, constructor HandlerConstructor) error {
	if handlerType == "" {
		return ErrEmptyHandlerType
	}

	if constructor == nil {
		return fmt.Errorf("%w: nil constructor for handler %q", ErrConstructionFailed, handlerType)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[handlerType] = constructor

	return nil
}

// RegisterDecorator registers the constructor for decoratorType, replacing any earlier one.
func (f *ConstructorFactory) RegisterDecorator(decoratorType DecoratorType, constructor DecoratorConstructor) error {
	if decoratorType == "" {
		return fmt.Errorf("%w: decorator type must not be empty", ErrInvalidDecoratorMetadata)
	}

	if constructor == nil {
		return fmt.Errorf("%w: nil constructor for decorator %q", ErrConstructionFailed, decoratorType)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.decorators[decoratorType] = constructor

	return nil
}

// CreateHandler builds a handler with the constructor registered for handlerType.
func (f *ConstructorFactory) CreateHandler(handlerType HandlerType) (Handler, error) {
	f.mu.RLock()
	constructor, ok := f.handlers[handlerType]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no constructor for handler %q", ErrConstructionFailed, handlerType)
	}

	handler, err := constructor()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%w: handler %q", ErrConstructionFailed, handlerType), err)
	}

	if handler == nil {
		return nil, fmt.Errorf("%w: constructor for handler %q returned nil", ErrConstructionFailed, handlerType)
	}

	return handler, nil
}

// ReleaseHandler releases handler.
func (f *ConstructorFactory) ReleaseHandler(handler Handler) {
	release(handler)
}

// CreateDecorator builds a decorator with the constructor registered for decoratorType.
func (f *ConstructorFactory) CreateDecorator(decoratorType DecoratorType) (Decorator, error) {
	f.mu.RLock()
	constructor, ok := f.decorators[decoratorType]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no constructor for decorator %q", ErrConstructionFailed, decoratorType)
	}

	decorator, err := constructor()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%w: decorator %q", ErrConstructionFailed, decoratorType), err)
	}

	if decorator == nil {
		return nil, fmt.Errorf("%w: constructor for decorator %q returned nil", ErrConstructionFailed, decoratorType)
	}

	return decorator, nil
}

// ReleaseDecorator releases decorator.
func (f *ConstructorFactory) ReleaseDecorator(decorator Decorator) {
	release(decorator)
}

func release(instance any) {
	if releasable, ok := instance.(Releasable); ok {
		releasable.Release()
	}
}

var (
	_ HandlerFactory   = (*ConstructorFactory)(nil)
	_ DecoratorFactory = (*ConstructorFactory)(nil)
)
