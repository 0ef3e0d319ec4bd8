package ast

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../tools/schemagen -o schema/tree.schema.json
//go:embed schema/tree.schema.json
var treeSchema []byte

// Codec errors.
var (
	ErrSchema       = errors.New("tree does not match schema")
	ErrDecodeValue  = errors.New("cannot decode tree value")
	ErrUnknownKind  = errors.New("unknown node kind")
	errEmptyLiteral = errors.New("typed literal must have exactly one key")
)

// SchemaError lists the schema violations of a JSON tree document.
type SchemaError struct {
	Problems []string
}

func (schemaErr *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s", ErrSchema, strings.Join(schemaErr.Problems, "; "))
}

func (schemaErr *SchemaError) Unwrap() error {
	return ErrSchema
}

// Schema returns the JSON schema of the tree interchange format.
func Schema() []byte {
	out := make([]byte, len(treeSchema))
	copy(out, treeSchema)

	return out
}

// ValidateJSON checks a JSON tree document against the embedded schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(treeSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
	}

	return &SchemaError{Problems: problems}
}

// DecodeJSON reads a tree in the s-expression JSON format, checks it against
// the schema and validates the resulting tree.
func DecodeJSON(data []byte) (*Node, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any

	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}

	value, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}

	root, ok := value.(*Node)
	if !ok || root == nil {
		return nil, fmt.Errorf("%w: root must be a node", ErrDecodeValue)
	}

	if err := Validate(root); err != nil {
		return nil, err
	}

	return root, nil
}

func decodeValue(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return Name(typed), nil
	case json.Number:
		return decodeNumber(typed)
	case []any:
		return decodeNode(typed)
	case map[string]any:
		return decodeLiteral(typed)
	}

	return nil, fmt.Errorf("%w: %T", ErrDecodeValue, raw)
}

func decodeNode(items []any) (*Node, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty node", ErrDecodeValue)
	}

	kindName, ok := items[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: node kind must be a string", ErrDecodeValue)
	}

	kind, known := ParseKind(kindName)
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}

	children := make([]Value, 0, len(items)-1)

	for _, item := range items[1:] {
		child, err := decodeValue(item)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return New(kind, Span{}, children...), nil
}

func decodeNumber(number json.Number) (Value, error) {
	if !strings.ContainsAny(number.String(), ".eE") {
		whole, err := number.Int64()
		if err == nil {
			return Int(whole), nil
		}
	}

	fractional, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeValue, err)
	}

	return Float(fractional), nil
}

func decodeLiteral(object map[string]any) (Value, error) {
	if len(object) != 1 {
		return nil, errEmptyLiteral
	}

	for key, raw := range object {
		switch key {
		case "str":
			text, ok := raw.(string)
			if ok {
				return Str(text), nil
			}
		case "int":
			number, ok := raw.(json.Number)
			if ok {
				whole, err := number.Int64()
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrDecodeValue, err)
				}

				return Int(whole), nil
			}
		case "float":
			number, ok := raw.(json.Number)
			if ok {
				fractional, err := number.Float64()
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrDecodeValue, err)
				}

				return Float(fractional), nil
			}
		}

		return nil, fmt.Errorf("%w: literal %q", ErrDecodeValue, key)
	}

	return nil, errEmptyLiteral
}

// Sexp converts a value to plain Go data in the interchange layout: nodes
// become []any, names strings, Str {"str": ...}, integral floats {"float": ...}.
func Sexp(value Value) any {
	if IsAbsent(value) {
		return nil
	}

	switch typed := value.(type) {
	case *Node:
		items := make([]any, 0, len(typed.children)+1)
		items = append(items, typed.kind.String())

		for _, child := range typed.children {
			items = append(items, Sexp(child))
		}

		return items
	case Name:
		return string(typed)
	case Str:
		return map[string]any{"str": string(typed)}
	case Int:
		return int64(typed)
	case Float:
		if float64(typed) == math.Trunc(float64(typed)) {
			return map[string]any{"float": float64(typed)}
		}

		return float64(typed)
	}

	return nil
}

// EncodeJSON writes the tree in the interchange format.
func EncodeJSON(root *Node, indent bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(Sexp(root), "", "  ")
	} else {
		data, err = json.Marshal(Sexp(root))
	}

	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}

	return data, nil
}

// MarshalJSON implements json.Marshaler.
func (node *Node) MarshalJSON() ([]byte, error) {
	return EncodeJSON(node, false)
}

// EncodeYAML dumps the tree as YAML in the interchange layout.
func EncodeYAML(root *Node) ([]byte, error) {
	data, err := yaml.Marshal(Sexp(root))
	if err != nil {
		return nil, fmt.Errorf("encode tree yaml: %w", err)
	}

	return data, nil
}
