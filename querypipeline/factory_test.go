package querypipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/testutil/pipeline/pltesthelpers"
)

type releasableDecorator struct {
	RecordingDecorator
	releases int
}

func (d *releasableDecorator) Release() {
	d.releases++
}

func Test_ConstructorFactory_CreateHandler_Builds_A_Fresh_Instance_Per_Call(t *testing.T) {
	// arrange
	factory := NewConstructorFactory()
	assert.NoError(t, factory.RegisterHandler(GreetingHandlerType, func() (Handler, error) {
		return &GreetingHandler{Result: "hi"}, nil
	}))

	// act
	first, err1 := factory.CreateHandler(GreetingHandlerType)
	second, err2 := factory.CreateHandler(GreetingHandlerType)

	// assert
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NotSame(t, first, second)
}

func Test_ConstructorFactory_CreateHandler_Fails_For_Unknown_Type(t *testing.T) {
	_, err := NewConstructorFactory().CreateHandler(GreetingHandlerType)

	assert.ErrorIs(t, err, ErrConstructionFailed)
}

func Test_ConstructorFactory_CreateHandler_Wraps_Constructor_Failures(t *testing.T) {
	// arrange
	cause := errors.New("dependency missing")
	factory := NewConstructorFactory()
	assert.NoError(t, factory.RegisterHandler(GreetingHandlerType, func() (Handler, error) {
		return nil, cause
	}))

	// act
	_, err := factory.CreateHandler(GreetingHandlerType)

	// assert
	assert.ErrorIs(t, err, ErrConstructionFailed)
	assert.ErrorIs(t, err, cause)
}

func Test_ConstructorFactory_CreateDecorator_Fails_When_Constructor_Returns_Nil(t *testing.T) {
	// arrange
	factory := NewConstructorFactory()
	assert.NoError(t, factory.RegisterDecorator("Nil", func() (Decorator, error) {
		return nil, nil
	}))

	// act
	_, err := factory.CreateDecorator("Nil")

	// assert
	assert.ErrorIs(t, err, ErrConstructionFailed)
}

func Test_ConstructorFactory_ReleaseDecorator_Calls_Release_On_Releasable_Instances(t *testing.T) {
	// arrange
	factory := NewConstructorFactory()
	decorator := &releasableDecorator{}

	// act
	factory.ReleaseDecorator(decorator)
	factory.ReleaseDecorator(&RecordingDecorator{})

	// assert
	assert.Equal(t, 1, decorator.releases)
}

func Test_ConstructorFactory_Register_Rejects_Invalid_Input(t *testing.T) {
	factory := NewConstructorFactory()

	assert.ErrorIs(t, factory.RegisterHandler("", HandlerOf(&GreetingHandler{})), ErrEmptyHandlerType)
	assert.ErrorIs(t, factory.RegisterHandler(GreetingHandlerType, nil), ErrConstructionFailed)
	assert.ErrorIs(t, factory.RegisterDecorator("", DecoratorOf(&RecordingDecorator{})), ErrInvalidDecoratorMetadata)
	assert.ErrorIs(t, factory.RegisterDecorator("X", nil), ErrConstructionFailed)
}
