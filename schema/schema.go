// Package schema generates JSON Schemas from Go types for tool parameter
// declarations.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Reflector is tuned for tool parameter schemas. DoNotReference inlines
// all definitions so the output carries no $ref, which every backend's
// function-calling API expects.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Generate creates a JSON Schema from a Go type. The type should be a
// struct with json and jsonschema tags.
//
//	type lookupArgs struct {
//	    Symbol string `json:"symbol" jsonschema:"required,description=Ticker symbol"`
//	    Limit  int    `json:"limit,omitempty"`
//	}
//
//	s, err := schema.Generate[lookupArgs]()
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	s := Reflector.Reflect(&zero)
	return json.Marshal(s)
}

// MustGenerate is like Generate but panics on error. Useful for
// package-level tool declarations.
func MustGenerate[T any]() json.RawMessage {
	s, err := Generate[T]()
	if err != nil {
		panic(err)
	}
	return s
}
