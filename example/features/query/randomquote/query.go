package randomquote

// QueryType identifies GetRandomQuote in handler and decorator registrations.
const QueryType = "GetRandomQuote"

// GetRandomQuote asks for one quote. It carries no parameters, so every invocation shares one cache key.
type GetRandomQuote struct{}

// QueryType implements querypipeline.Query.
func (q GetRandomQuote) QueryType() string {
	return QueryType
}
