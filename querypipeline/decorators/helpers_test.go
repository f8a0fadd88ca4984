package decorators_test

import (
	"context"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/jsonserializer"
)

func givenRequestContext() *querypipeline.RequestContext {
	return querypipeline.NewRequestContext("corr-1", jsonserializer.New())
}

func returning(result any, err error) (querypipeline.Next, querypipeline.SyncNext) {
	return func(context.Context, querypipeline.Query) (any, error) {
			return result, err
		}, func(querypipeline.Query) (any, error) {
			return result, err
		}
}

func failingOnce(first error, result any) (querypipeline.SyncNext, *int) {
	calls := 0

	return func(querypipeline.Query) (any, error) {
		calls++
		if calls == 1 {
			return nil, first
		}

		return result, nil
	}, &calls
}

func noFallback() (querypipeline.Next, querypipeline.SyncNext) {
	return returning(nil, querypipeline.ErrNoFallback)
}
