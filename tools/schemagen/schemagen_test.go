package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

func decode(t *testing.T, data []byte) any {
	t.Helper()

	var value any

	require.NoError(t, json.Unmarshal(data, &value))

	return value
}

func TestTreeSchemaMatchesEmbedded(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(treeSchema(ast.KindNames()))
	require.NoError(t, err)

	assert.Equal(t, decode(t, ast.Schema()), decode(t, data))
}

func TestWriteSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tree.schema.json")

	require.NoError(t, writeSchema(path, treeSchema([]string{"int"})))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var written Schema

	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, []string{"int"}, written.Definitions["kind"].Enum)
	assert.Equal(t, "#/definitions/node", written.AllOf[0].Ref)
}
