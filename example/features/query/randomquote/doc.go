// Package randomquote implements the Get Random Quote query use case.
//
// The QueryHandler picks one quote from a QuoteSource. When the source fails, the pipeline's
// FallbackPolicy may substitute the handler's fallback quote, so callers always get something
// to render.
package randomquote
