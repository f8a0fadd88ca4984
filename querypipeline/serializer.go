package querypipeline

// Serializer turns a value into its string form for logging and cache keys.
// The core stores one Serializer in every RequestContext; concrete formats live outside the core.
type Serializer interface {
	Serialize(value any) (string, error)
}

// SerializerFunc adapts a plain function to a Serializer.
type SerializerFunc func(value any) (string, error)

// Serialize calls f(value).
func (f SerializerFunc) Serialize(value any) (string, error) {
	return f(value)
}
