package randomquote

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// HandlerType identifies the QueryHandler in handler and decorator registrations.
const HandlerType querypipeline.HandlerType = "RandomQuoteHandler"

// ErrNoQuotes is returned when the source yields no quotes.
var ErrNoQuotes = errors.New("no quotes available")

// QuoteSource provides the quotes to pick from.
type QuoteSource interface {
	Quotes(ctx context.Context) ([]Quote, error)
}

// StaticSource is a QuoteSource on a fixed list.
type StaticSource []Quote

// Quotes implements QuoteSource.
func (s StaticSource) Quotes(_ context.Context) ([]Quote, error) {
	return s, nil
}

// DefaultQuotes is the built-in quote list.
var DefaultQuotes = StaticSource{
	{Quote: "Simplicity is prerequisite for reliability.", Author: "Edsger W. Dijkstra"},
	{Quote: "Premature optimization is the root of all evil.", Author: "Donald Knuth"},
	{Quote: "Clear is better than clever.", Author: "Rob Pike"},
	{Quote: "A little copying is better than a little dependency.", Author: "Rob Pike"},
	{Quote: "Make it work, make it right, make it fast.", Author: "Kent Beck"},
}

// FallbackQuote is returned by the fallback path.
var FallbackQuote = Quote{Quote: "Errors are values.", Author: "Rob Pike"}

// QueryHandler answers GetRandomQuote. It supports both execution forms and both fallback forms.
type QueryHandler struct {
	source QuoteSource
	pick   func(n int) int
}

// Option defines a functional option for configuring QueryHandler.
type Option func(*QueryHandler) error

// WithPicker replaces the random index picker. pick receives the number of quotes.
func WithPicker(pick func(n int) int) Option {
	return func(h *QueryHandler) error {
		if pick == nil {
			return errors.New("quote picker must not be nil")
		}

		h.pick = pick

		return nil
	}
}

// NewQueryHandler creates a QueryHandler on source.
func NewQueryHandler(source QuoteSource, options ...Option) (*QueryHandler, error) {
	if source == nil {
		return nil, errors.New("quote source must not be nil")
	}

	h := &QueryHandler{
		source: source,
		pick:   rand.IntN,
	}

	for _, option := range options {
		if err := option(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Constructor returns a querypipeline.HandlerConstructor creating a fresh handler per invocation.
func Constructor(source QuoteSource, options ...Option) querypipeline.HandlerConstructor {
	return func() (querypipeline.Handler, error) {
		return NewQueryHandler(source, options...)
	}
}

// Handle implements querypipeline.Handler.
func (h *QueryHandler) Handle(ctx context.Context, _ querypipeline.Query) (any, error) {
	quotes, err := h.source.Quotes(ctx)
	if err != nil {
		return nil, err
	}

	if len(quotes) == 0 {
		return nil, ErrNoQuotes
	}

	return quotes[h.pick(len(quotes))], nil
}

// HandleSync implements querypipeline.SyncHandler.
func (h *QueryHandler) HandleSync(query querypipeline.Query) (any, error) {
	return h.Handle(context.Background(), query)
}

// Fallback implements querypipeline.FallbackHandler.
func (h *QueryHandler) Fallback(_ context.Context, _ querypipeline.Query) (any, error) {
	return FallbackQuote, nil
}

// FallbackSync implements querypipeline.SyncFallbackHandler.
func (h *QueryHandler) FallbackSync(_ querypipeline.Query) (any, error) {
	return FallbackQuote, nil
}

var (
	_ querypipeline.Query               = GetRandomQuote{}
	_ querypipeline.SyncHandler         = (*QueryHandler)(nil)
	_ querypipeline.FallbackHandler     = (*QueryHandler)(nil)
	_ querypipeline.SyncFallbackHandler = (*QueryHandler)(nil)
)
