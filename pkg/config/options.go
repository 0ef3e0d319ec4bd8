package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

// Descriptor describes one configuration key that can also be set from
// the command line.
type Descriptor struct {
	Default any
	Key     string
	Flag    string
	Usage   string
}

// Descriptors returns the flag-backed configuration keys in help order.
func Descriptors() []Descriptor {
	return []Descriptor{
		{Key: "conversion.level", Flag: "level", Default: DefaultLevel, Usage: "target ECMAScript level (" + levelNames() + ")"},
		{Key: "conversion.comparison", Flag: "comparison", Default: DefaultComparison, Usage: "rendering of == and != (loose, strict)"},
		{Key: "conversion.identifier_case", Flag: "case", Default: DefaultIdentifierCase, Usage: "identifier case (preserve, camel)"},
		{Key: "conversion.escape_suffix", Flag: "escape-suffix", Default: DefaultEscapeSuffix, Usage: "method name suffix that opts a call out of filters"},
		{Key: "conversion.filters", Flag: "filter", Default: []string{}, Usage: "filter to activate, repeatable, in activation order"},
		{Key: "exclusions.identifiers", Flag: "exclude", Default: []string{}, Usage: "method name no filter may rewrite, repeatable"},
		{Key: "format.quote", Flag: "quote", Default: DefaultQuote, Usage: "string literal quotes (double, single)"},
		{Key: "format.indent_width", Flag: "indent", Default: DefaultIndentWidth, Usage: "spaces per indentation level"},
		{Key: "format.max_blank_lines", Flag: "max-blank-lines", Default: DefaultMaxBlankLines, Usage: "consecutive blank lines kept"},
		{Key: "format.use_tabs", Flag: "tabs", Default: DefaultUseTabs, Usage: "indent with tabs"},
		{Key: "format.semicolons", Flag: "semicolons", Default: DefaultSemicolons, Usage: "terminate statements with semicolons"},
		{Key: "batch.workers", Flag: "workers", Default: DefaultBatchWorkers, Usage: "parallel file conversions, 0 for one per CPU"},
		{Key: "batch.extension", Flag: "ext", Default: DefaultBatchExtension, Usage: "extension of converted files"},
	}
}

// RegisterFlags adds a flag for every descriptor to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	for _, desc := range Descriptors() {
		switch value := desc.Default.(type) {
		case string:
			flags.String(desc.Flag, value, desc.Usage)
		case int:
			flags.Int(desc.Flag, value, desc.Usage)
		case bool:
			flags.Bool(desc.Flag, value, desc.Usage)
		case []string:
			flags.StringSlice(desc.Flag, value, desc.Usage)
		default:
			panic(fmt.Sprintf("config: descriptor %s has unsupported default %T", desc.Key, desc.Default))
		}
	}
}

func levelNames() string {
	levels := es.Levels()
	names := make([]string, 0, len(levels))

	for _, level := range levels {
		names = append(names, strings.ToLower(level.String()))
	}

	return strings.Join(names, ", ")
}
