package pltesthelpers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// GivenProcessor builds the Processor and fails the test when the builder reports errors.
func GivenProcessor(t testing.TB, builder *querypipeline.Builder) *querypipeline.Processor {
	t.Helper()

	processor, err := builder.Build()
	require.NoError(t, err, "building the processor failed in test setup")

	return processor
}

// TextSerializer renders values with their Go type and fields, enough for logs and cache keys in tests.
func TextSerializer() querypipeline.Serializer {
	return querypipeline.SerializerFunc(func(value any) (string, error) {
		return fmt.Sprintf("%T%+v", value, value), nil
	})
}
