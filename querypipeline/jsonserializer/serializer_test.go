package jsonserializer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/jsonserializer"
)

type lookup struct {
	ID        string
	URLValue  string
	BookTitle string
	Tagged    string `json:"explicit_name"`
	Skipped   string `json:"-"`
	Optional  *string
	Count     int `json:",omitempty"`
	At        time.Time
	internal  string
}

func Test_Serializer_Uses_CamelCase_For_Untagged_Fields(t *testing.T) {
	// arrange
	serializer := jsonserializer.New()
	value := lookup{
		ID:        "b-1",
		URLValue:  "https://example.org",
		BookTitle: "Dune",
		Tagged:    "kept",
		Skipped:   "hidden",
		internal:  "private",
		At:        time.Date(2025, 1, 2, 12, 0, 0, 0, time.FixedZone("CET", 3600)),
	}

	// act
	serialized, err := serializer.Serialize(value)

	// assert
	assert.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "b-1",
		"urlValue": "https://example.org",
		"bookTitle": "Dune",
		"explicit_name": "kept",
		"optional": null,
		"at": "2025-01-02T11:00:00Z"
	}`, serialized)
}

func Test_Serializer_WithoutCamelCase_Keeps_Go_Names(t *testing.T) {
	// act
	serialized, err := jsonserializer.New(jsonserializer.WithoutCamelCase()).Serialize(struct{ BookTitle string }{"Dune"})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, `{"BookTitle":"Dune"}`, serialized)
}

func Test_Serializer_Sorts_Map_Keys_And_Is_Deterministic(t *testing.T) {
	// arrange
	serializer := jsonserializer.New()
	value := map[string]int{"b": 2, "a": 1, "c": 3}

	// act
	first, err1 := serializer.Serialize(value)
	second, err2 := serializer.Serialize(value)

	// assert
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, first)
	assert.Equal(t, first, second)
}

func Test_Serializer_WithEscapeHTML(t *testing.T) {
	plain, _ := jsonserializer.New().Serialize("<b>")
	escaped, _ := jsonserializer.New(jsonserializer.WithEscapeHTML()).Serialize("<b>")

	assert.Equal(t, `"<b>"`, plain)
	assert.Equal(t, `"\u003cb\u003e"`, escaped)
}

func Test_Serializer_Unmarshal_Reads_CamelCase_Names(t *testing.T) {
	// arrange
	var target struct{ BookTitle string }

	// act
	err := jsonserializer.New().Unmarshal([]byte(`{"bookTitle":"Dune"}`), &target)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "Dune", target.BookTitle)
}

func Test_Serializer_Reports_Unsupported_Values(t *testing.T) {
	_, err := jsonserializer.New().Serialize(make(chan int))

	assert.Error(t, err)
}

func Test_CamelCase(t *testing.T) {
	tests := map[string]string{
		"ID":        "id",
		"URLValue":  "urlValue",
		"BookTitle": "bookTitle",
		"name":      "name",
		"A":         "a",
		"HTTPS":     "https",
		"":          "",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, jsonserializer.CamelCase(input), input)
	}
}
