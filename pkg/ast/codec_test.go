package ast_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	doc := `["begin",
		["lvasgn", "a", ["int", 1]],
		["op_asgn", ["lvasgn", "a"], "+", ["int", 1]],
		["send", null, "puts", ["str", {"str": "hi"}], ["float", 1.5], ["float", {"float": 2}]]]`

	root, err := ast.DecodeJSON([]byte(doc))
	require.NoError(t, err)

	want := ast.S(ast.KindBegin,
		ast.S(ast.KindLvasgn, ast.Name("a"), ast.S(ast.KindInt, ast.Int(1))),
		ast.S(ast.KindOpAsgn, ast.S(ast.KindLvasgn, ast.Name("a")), ast.Name("+"), ast.S(ast.KindInt, ast.Int(1))),
		ast.S(ast.KindSend, nil, ast.Name("puts"),
			ast.S(ast.KindStr, ast.Str("hi")),
			ast.S(ast.KindFloat, ast.Float(1.5)),
			ast.S(ast.KindFloat, ast.Float(2))),
	)

	assert.True(t, want.Equal(root), ast.Format(root))
}

func TestDecodeJSONRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown kind", doc: `["frobnicate", 1]`},
		{name: "root not a node", doc: `"send"`},
		{name: "bad literal", doc: `["str", {"text": "x"}]`},
		{name: "empty node", doc: `["begin", []]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ast.DecodeJSON([]byte(tt.doc))

			var schemaErr *ast.SchemaError

			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Problems)
			assert.ErrorIs(t, err, ast.ErrSchema)
		})
	}
}

func TestDecodeJSONChecksArity(t *testing.T) {
	t.Parallel()

	_, err := ast.DecodeJSON([]byte(`["pair", ["sym", "a"]]`))

	assert.ErrorIs(t, err, ast.ErrMalformedTree)
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	t.Parallel()

	root := ast.S(ast.KindBegin,
		sampleCall(),
		ast.S(ast.KindFloat, ast.Float(3)),
		ast.S(ast.KindFloat, ast.Float(0.25)),
		ast.S(ast.KindInt, ast.Int(7)),
	)

	data, err := ast.EncodeJSON(root, false)
	require.NoError(t, err)
	assert.JSONEq(t,
		`["begin",["send",null,"puts",["str",{"str":"hi"}]],["float",{"float":3}],["float",0.25],["int",7]]`,
		string(data))

	decoded, err := ast.DecodeJSON(data)
	require.NoError(t, err)
	assert.True(t, root.Equal(decoded))

	viaMarshal, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(viaMarshal))
}

func TestEncodeYAML(t *testing.T) {
	t.Parallel()

	data, err := ast.EncodeYAML(ast.S(ast.KindSym, ast.Name("ok")))
	require.NoError(t, err)
	assert.Equal(t, "- sym\n- ok\n", string(data))
}

func TestSchemaListsEveryKind(t *testing.T) {
	t.Parallel()

	var schema struct {
		Definitions struct {
			Kind struct {
				Enum []string `json:"enum"`
			} `json:"kind"`
		} `json:"definitions"`
	}

	require.NoError(t, json.Unmarshal(ast.Schema(), &schema))
	assert.Equal(t, ast.KindNames(), schema.Definitions.Kind.Enum)
}
