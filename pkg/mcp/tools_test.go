package mcp

import (
	"context"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestHandleConvert(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{Cache: cache.New(8)})
	input := ConvertInput{Code: "a = 1\na += 1\n", Level: "es2015"}

	result, output, err := srv.handleConvert(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "let a = 1;\na += 1;\n", resultText(t, result))

	converted, ok := output.Data.(ConvertOutput)
	require.True(t, ok)
	assert.Equal(t, es.ES2015.String(), converted.Level)
	assert.False(t, converted.Cached)

	_, output, err = srv.handleConvert(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)
	assert.True(t, output.Data.(ConvertOutput).Cached)
}

func TestHandleConvert_ReusesTranspilers(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	for range 3 {
		_, _, err := srv.handleConvert(context.Background(), &mcpsdk.CallToolRequest{}, ConvertInput{Code: "1"})
		require.NoError(t, err)
	}

	_, _, err := srv.handleConvert(context.Background(), &mcpsdk.CallToolRequest{}, ConvertInput{Code: "1", Level: "es5"})
	require.NoError(t, err)

	assert.Equal(t, 2, srv.pool.Len())
}

func TestHandleConvert_InvalidInput(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	tests := []struct {
		name  string
		input ConvertInput
		want  string
	}{
		{"empty code", ConvertInput{}, "code parameter is required"},
		{"too large", ConvertInput{Code: strings.Repeat("x", MaxCodeInputBytes+1)}, "exceeds maximum size"},
		{"comparison", ConvertInput{Code: "1", Comparison: "fuzzy"}, "invalid comparison mode"},
		{"filter", ConvertInput{Code: "1", Filters: []string{"nope"}}, "nope"},
		{"syntax", ConvertInput{Code: "def (\n"}, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, _, err := srv.handleConvert(context.Background(), &mcpsdk.CallToolRequest{}, tt.input)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleAST(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleAST(context.Background(), &mcpsdk.CallToolRequest{}, ASTInput{Code: "x = 1", Format: FormatJSON})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"lvasgn"`)

	result, _, err = srv.handleAST(context.Background(), &mcpsdk.CallToolRequest{}, ASTInput{Code: "x = 1", Format: "xml"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown format")
}

func TestHandleFilters(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, output, err := srv.handleFilters(context.Background(), &mcpsdk.CallToolRequest{}, FiltersInput{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"functions"`)

	infos, ok := output.Data.([]FilterInfo)
	require.True(t, ok)
	assert.Len(t, infos, 3)
}
