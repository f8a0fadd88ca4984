// Package jsonserializer provides the JSON implementation of querypipeline.Serializer.
//
// Defaults: compact output, camelCase property names for fields without a json tag,
// nil values written as null, time.Time written as RFC 3339 in UTC.
// Explicit json tags always win over the naming policy.
package jsonserializer

import (
	"reflect"
	"strings"
	"time"
	"unicode"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline"
)

// Serializer serializes values to JSON with jsoniter.
type Serializer struct {
	api jsoniter.API
}

type settings struct {
	camelCase  bool
	escapeHTML bool
	indent     int
}

// Option defines a functional option for configuring Serializer.
type Option func(*settings)

// WithoutCamelCase keeps Go field names for fields without a json tag.
func WithoutCamelCase() Option {
	return func(s *settings) {
		s.camelCase = false
	}
}

// WithEscapeHTML escapes <, >, and & inside strings.
func WithEscapeHTML() Option {
	return func(s *settings) {
		s.escapeHTML = true
	}
}

// WithIndent writes indented output with the given number of spaces per level.
func WithIndent(spaces int) Option {
	return func(s *settings) {
		s.indent = spaces
	}
}

// New creates a Serializer.
func New(options ...Option) *Serializer {
	cfg := settings{camelCase: true}
	for _, option := range options {
		option(&cfg)
	}

	api := jsoniter.Config{
		EscapeHTML:             cfg.escapeHTML,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		IndentionStep:          cfg.indent,
	}.Froze()

	api.RegisterExtension(&namingExtension{camelCase: cfg.camelCase})

	return &Serializer{api: api}
}

// Serialize implements querypipeline.Serializer.
func (s *Serializer) Serialize(value any) (string, error) {
	return s.api.MarshalToString(value)
}

// Marshal returns the JSON encoding of value.
func (s *Serializer) Marshal(value any) ([]byte, error) {
	return s.api.Marshal(value)
}

// Unmarshal parses data into the value pointed to by target.
func (s *Serializer) Unmarshal(data []byte, target any) error {
	return s.api.Unmarshal(data, target)
}

// namingExtension applies the naming policy and the UTC time encoding.
type namingExtension struct {
	jsoniter.DummyExtension

	camelCase bool
}

// UpdateStructDescriptor renames fields without an explicit json name.
func (e *namingExtension) UpdateStructDescriptor(structDescriptor *jsoniter.StructDescriptor) {
	if !e.camelCase {
		return
	}

	for _, binding := range structDescriptor.Fields {
		fieldName := binding.Field.Name()
		if fieldName == "" || fieldName[0] == '_' || unicode.IsLower(rune(fieldName[0])) {
			continue
		}

		if tag, tagged := binding.Field.Tag().Lookup("json"); tagged {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				continue
			}
		}

		name := CamelCase(fieldName)
		binding.ToNames = []string{name}
		binding.FromNames = []string{name}
	}
}

// CreateEncoder encodes time.Time in UTC.
func (e *namingExtension) CreateEncoder(typ reflect2.Type) jsoniter.ValEncoder {
	if typ.Type1() == timeType {
		return utcTimeEncoder{}
	}

	return nil
}

var timeType = reflect.TypeOf(time.Time{})

type utcTimeEncoder struct{}

func (utcTimeEncoder) IsEmpty(ptr unsafe.Pointer) bool {
	return (*time.Time)(ptr).IsZero()
}

func (utcTimeEncoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	stream.WriteString((*time.Time)(ptr).UTC().Format(time.RFC3339Nano))
}

// CamelCase lowercases the leading upper-case run of name, keeping the last upper-case letter
// of a run that starts the next word: "ID" becomes "id", "URLValue" becomes "urlValue".
func CamelCase(name string) string {
	runes := []rune(name)

	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}

		if i > 0 && i+1 < len(runes) && !unicode.IsUpper(runes[i+1]) {
			break
		}

		runes[i] = unicode.ToLower(runes[i])
	}

	return string(runes)
}

var _ querypipeline.Serializer = (*Serializer)(nil)
