package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/builtin"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

// Tool name constants.
const (
	ToolNameConvert = "rb2js_convert"
	ToolNameAST     = "rb2js_ast"
	ToolNameFilters = "rb2js_filters"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20
)

// AST output formats.
const (
	FormatSexp = "sexp"
	FormatJSON = "json"
)

// syntheticFilename names inline code in diagnostics.
const syntheticFilename = "input.rb"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrUnknownFormat indicates an unsupported AST output format.
	ErrUnknownFormat = errors.New("unknown format")
)

// ConvertInput is the input schema for the rb2js_convert tool.
type ConvertInput struct {
	Code       string   `json:"code"                 jsonschema:"Ruby source code to convert"`
	Level      string   `json:"level,omitempty"      jsonschema:"target ECMAScript level (e.g. es5 es2015 es2022)"`
	Comparison string   `json:"comparison,omitempty" jsonschema:"rendering of == and != (loose or strict)"`
	Filters    []string `json:"filters,omitempty"    jsonschema:"filters to activate in order (e.g. functions return)"`
}

// ASTInput is the input schema for the rb2js_ast tool.
type ASTInput struct {
	Code   string `json:"code"             jsonschema:"Ruby source code to parse"`
	Format string `json:"format,omitempty" jsonschema:"sexp (default) or json"`
}

// FiltersInput is the input schema for the rb2js_filters tool.
type FiltersInput struct{}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// ConvertOutput is the structured result of rb2js_convert.
type ConvertOutput struct {
	JavaScript string `json:"javascript"`
	Level      string `json:"level"`
	Cached     bool   `json:"cached"`
}

// FilterInfo describes one filter for rb2js_filters.
type FilterInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Requires    []string `json:"requires,omitempty"`
}

func (s *Server) handleConvert(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ConvertInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	opts, err := s.optionsFor(input)
	if err != nil {
		return errorResult(err)
	}

	tr, err := s.pool.Get(opts)
	if err != nil {
		return errorResult(err)
	}

	src := []byte(input.Code)
	convert := func() (string, error) { return tr.ConvertSource(ctx, syntheticFilename, src) }

	var (
		output string
		cached bool
	)

	if s.deps.Cache != nil {
		output, cached, err = s.deps.Cache.GetOrCompute(ctx, cache.NewKey(opts.Fingerprint(), src), convert)
	} else {
		output, err = convert()
	}

	if err != nil {
		return errorResult(err)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: output},
		},
	}, ToolOutput{Data: ConvertOutput{JavaScript: output, Level: opts.Level.String(), Cached: cached}}, nil
}

// optionsFor overlays the tool arguments on the server options.
func (s *Server) optionsFor(input ConvertInput) (options.Options, error) {
	opts, err := s.deps.Options.Override(options.Overrides{
		Level:      input.Level,
		Comparison: input.Comparison,
		Filters:    input.Filters,
	})
	if err != nil {
		return opts, fmt.Errorf("invalid options: %w", err)
	}

	return opts, nil
}

func (s *Server) handleAST(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input ASTInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	if input.Format != "" && input.Format != FormatSexp && input.Format != FormatJSON {
		return errorResult(fmt.Errorf("%w: %q", ErrUnknownFormat, input.Format))
	}

	root, err := s.deps.Parser.Parse(ctx, syntheticFilename, []byte(input.Code))
	if err != nil {
		return errorResult(fmt.Errorf("parse code: %w", err))
	}

	if input.Format == FormatJSON {
		data, encodeErr := ast.EncodeJSON(root, true)
		if encodeErr != nil {
			return errorResult(encodeErr)
		}

		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		}, ToolOutput{Data: ast.Sexp(root)}, nil
	}

	text := ast.Format(root)

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, ToolOutput{Data: text}, nil
}

func (s *Server) handleFilters(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	_ FiltersInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	filters := builtin.Filters()
	infos := make([]FilterInfo, 0, len(filters))

	for _, flt := range filters {
		infos = append(infos, FilterInfo{Name: flt.Name, Description: flt.Description, Requires: flt.Requires})
	}

	return jsonResult(infos)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateCodeInput checks common code input constraints.
func validateCodeInput(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}
