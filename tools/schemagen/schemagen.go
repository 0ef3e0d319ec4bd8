// Package main generates the JSON schema of the syntax tree interchange
// format from the node kind table.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// Schema represents a JSON Schema.
type Schema struct {
	Schema               string             `json:"$schema,omitempty"`
	Title                string             `json:"title,omitempty"`
	Description          string             `json:"description,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
	MinItems             int                `json:"minItems,omitempty"`
	Items                []*Schema          `json:"items,omitempty"`
	AdditionalItems      *Schema            `json:"additionalItems,omitempty"`
	MinProperties        int                `json:"minProperties,omitempty"`
	MaxProperties        int                `json:"maxProperties,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Definitions          map[string]*Schema `json:"definitions,omitempty"`
}

const treeDescription = "A node is an array whose first element is the kind name and whose " +
	"remaining elements are children. Strings are names, numbers are integers or floats, " +
	"objects carry typed literals and null marks an absent child."

var output string

func main() {
	flag.StringVar(&output, "o", "pkg/ast/schema/tree.schema.json", "Output file for the tree schema")
	flag.Parse()

	err := os.MkdirAll(filepath.Dir(output), 0o755)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	err = writeSchema(output, treeSchema(ast.KindNames()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s with %d node kinds\n", output, len(ast.KindNames()))
}

func ref(name string) *Schema {
	return &Schema{Ref: "#/definitions/" + name}
}

func treeSchema(kinds []string) *Schema {
	closed := false

	return &Schema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		Title:       "rb2js syntax tree",
		Description: treeDescription,
		AllOf:       []*Schema{ref("node")},
		Definitions: map[string]*Schema{
			"kind": {Type: "string", Enum: kinds},
			"node": {
				Type:            "array",
				MinItems:        1,
				Items:           []*Schema{ref("kind")},
				AdditionalItems: ref("value"),
			},
			"literal": {
				Type:                 "object",
				MinProperties:        1,
				MaxProperties:        1,
				AdditionalProperties: &closed,
				Properties: map[string]*Schema{
					"str":   {Type: "string"},
					"int":   {Type: "integer"},
					"float": {Type: "number"},
				},
			},
			"value": {
				OneOf: []*Schema{
					{Type: "null"},
					{Type: "string"},
					{Type: "number"},
					ref("node"),
					ref("literal"),
				},
			},
		},
	}
}

func writeSchema(path string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	err = os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // schema is a public artifact.
	if err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}
