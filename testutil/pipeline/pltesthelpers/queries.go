package pltesthelpers

const (
	// GetGreetingQueryType is the query type of GetGreeting.
	GetGreetingQueryType = "GetGreeting"

	// GetFarewellQueryType is the query type of GetFarewell.
	GetFarewellQueryType = "GetFarewell"
)

// GetGreeting asks for a greeting for Name.
type GetGreeting struct {
	Name string
}

// QueryType implements querypipeline.Query.
func (GetGreeting) QueryType() string { return GetGreetingQueryType }

// GetFarewell asks for a farewell for Name.
type GetFarewell struct {
	Name string
}

// QueryType implements querypipeline.Query.
func (GetFarewell) QueryType() string { return GetFarewellQueryType }
