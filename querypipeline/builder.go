package querypipeline

import "errors"

// Builder is the registration surface of the pipeline.
// It wires a HandlerRegistry, a DecoratorRegistry, and a ConstructorFactory, collects every
// registration error, and reports them all from Build.
//
// Registration is meant to happen once at process start, before the first invocation.
type Builder struct {
	handlers         *HandlerRegistry
	decorators       *DecoratorRegistry
	constructors     *ConstructorFactory
	handlerFactory   HandlerFactory
	decoratorFactory DecoratorFactory
	options          []Option
	errs             []error
}

// NewBuilder creates an empty Builder that uses a ConstructorFactory for handlers and decorators.
func NewBuilder() *Builder {
	constructors := NewConstructorFactory()

	return &Builder{
		handlers:         NewHandlerRegistry(),
		decorators:       NewDecoratorRegistry(),
		constructors:     constructors,
		handlerFactory:   constructors,
		decoratorFactory: constructors,
	}
}

// RegisterHandler associates handlerType with queryType and registers its constructor.
// A nil constructor only registers the association, for use with an external HandlerFactory.
func (b *Builder) RegisterHandler(queryType string, handlerType HandlerType, constructor HandlerConstructor) *Builder {
	b.collect(b.handlers.Register(queryType, handlerType))

	if constructor != nil {
		b.collect(b.constructors.RegisterHandler(handlerType, constructor))
	}

	return b
}

// RegisterDecorator registers the constructor for decoratorType.
func (b *Builder) RegisterDecorator(decoratorType DecoratorType, constructor DecoratorConstructor) *Builder {
	b.collect(b.constructors.RegisterDecorator(decoratorType, constructor))

	return b
}

// DecorateGlobally attaches decoratorType to every query.
func (b *Builder) DecorateGlobally(decoratorType DecoratorType, order int, params ...any) *Builder {
	b.collect(b.decorators.Register(DecoratorRegistration{
		DecoratorType: decoratorType,
		Order:         order,
		Params:        params,
		Scope:         ScopeGlobal,
	}))

	return b
}

// DecorateQuery attaches decoratorType to one query type.
func (b *Builder) DecorateQuery(queryType string, decoratorType DecoratorType, order int, params ...any) *Builder {
	b.collect(b.decorators.Register(DecoratorRegistration{
		DecoratorType: decoratorType,
		Order:         order,
		Params:        params,
		Scope:         ScopeQuery,
		Target:        queryType,
	}))

	return b
}

// DecorateHandler attaches decoratorType to one handler type.
func (b *Builder) DecorateHandler(handlerType HandlerType, decoratorType DecoratorType, order int, params ...any) *Builder {
	b.collect(b.decorators.Register(DecoratorRegistration{
		DecoratorType: decoratorType,
		Order:         order,
		Params:        params,
		Scope:         ScopeHandler,
		Target:        string(handlerType),
	}))

	return b
}

// WithHandlerFactory replaces the built-in ConstructorFactory for handlers,
// e.g. with an adapter over a dependency injection container.
func (b *Builder) WithHandlerFactory(factory HandlerFactory) *Builder {
	if factory == nil {
		b.collect(ErrNilFactory)
		return b
	}

	b.handlerFactory = factory

	return b
}

// WithDecoratorFactory replaces the built-in ConstructorFactory for decorators.
func (b *Builder) WithDecoratorFactory(factory DecoratorFactory) *Builder {
	if factory == nil {
		b.collect(ErrNilFactory)
		return b
	}

	b.decoratorFactory = factory

	return b
}

// WithOptions adds Processor options applied by Build.
func (b *Builder) WithOptions(options ...Option) *Builder {
	b.options = append(b.options, options...)

	return b
}

// Build returns the Processor, or all registration errors joined together.
func (b *Builder) Build() (*Processor, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	return NewProcessor(b.handlers, b.decorators, b.handlerFactory, b.decoratorFactory, b.options...)
}

func (b *Builder) collect(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}
