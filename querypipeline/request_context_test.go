package querypipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

func Test_NewRequestContext_Generates_An_ID_When_Empty(t *testing.T) {
	// act
	rc := NewRequestContext("", nil)

	// assert
	_, err := uuid.Parse(rc.ID())
	assert.NoError(t, err)
}

func Test_RequestContext_Serialize_Fails_Without_Serializer(t *testing.T) {
	_, err := NewRequestContext("id", nil).Serialize("x")

	assert.ErrorIs(t, err, ErrMissingSerializer)
	assert.True(t, IsConfigurationError(err))
}

func Test_RequestContext_Serialize_Wraps_Serializer_Failures(t *testing.T) {
	// arrange
	cause := errors.New("cyclic value")
	rc := NewRequestContext("id", SerializerFunc(func(any) (string, error) {
		return "", cause
	}))

	// act
	_, err := rc.Serialize("x")

	// assert
	assert.ErrorIs(t, err, ErrSerializationFailed)
	assert.ErrorIs(t, err, cause)
}

func Test_Bag_Starts_Empty_And_Records_Signals(t *testing.T) {
	// arrange
	bag := NewRequestContext("id", nil).Bag()
	cause := errors.New("boom")

	// assert empty
	assert.False(t, bag.HasFallback())
	assert.NoError(t, bag.FallbackCause())
	assert.False(t, bag.CacheHit())
	assert.Zero(t, bag.RetryAttempts())

	// act
	bag.SetFallbackCause(cause)
	bag.MarkCacheHit()
	bag.SetRetryAttempts(3)

	// assert
	assert.True(t, bag.HasFallback())
	assert.Same(t, cause, bag.FallbackCause())
	assert.True(t, bag.CacheHit())
	assert.Equal(t, 3, bag.RetryAttempts())
}

func Test_RequestContextFrom_Returns_The_Carried_RequestContext(t *testing.T) {
	// arrange
	rc := NewRequestContext("id", nil)

	// act
	fromCtx, ok := RequestContextFrom(WithRequestContext(context.Background(), rc))
	_, okEmpty := RequestContextFrom(context.Background())

	// assert
	assert.True(t, ok)
	assert.Same(t, rc, fromCtx)
	assert.False(t, okEmpty)
}
