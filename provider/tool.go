package provider

import "github.com/platenhq/platen/schema"

// ToolDefFor builds a ToolDef whose parameter schema is generated from T.
// T should be a struct with json and jsonschema tags.
//
//	type searchArgs struct {
//	    Query string `json:"query" jsonschema:"required,description=Search query"`
//	    Limit int    `json:"limit,omitempty"`
//	}
//
//	def, err := provider.ToolDefFor[searchArgs]("search", "Search the archive")
func ToolDefFor[T any](name, description string) (ToolDef, error) {
	params, err := schema.Generate[T]()
	if err != nil {
		return ToolDef{}, err
	}
	return ToolDef{
		Name:        name,
		Description: description,
		Parameters:  params,
	}, nil
}
