// Package options holds the caller configuration that seeds a conversion.
package options

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

// Comparison selects how == and != are rendered.
type Comparison string

// Comparison modes.
const (
	ComparisonLoose  Comparison = "loose"
	ComparisonStrict Comparison = "strict"
)

// IdentifierCase selects how Ruby snake_case identifiers are emitted.
type IdentifierCase string

// Identifier case conventions.
const (
	CasePreserve IdentifierCase = "preserve"
	CaseCamel    IdentifierCase = "camel"
)

// Quote selects the delimiter for plain string literals.
type Quote string

// Quote styles.
const (
	QuoteDouble Quote = "double"
	QuoteSingle Quote = "single"
)

// DefaultEscapeSuffix opts a call site out of every filter rewrite. It is a
// valid Ruby method name ending, so `puts_!` parses as an ordinary call.
const DefaultEscapeSuffix = "_!"

// Defaults.
const (
	DefaultIndentWidth   = 2
	DefaultMaxBlankLines = 1
)

// Validation errors.
var (
	ErrInvalidLevel      = errors.New("invalid target level")
	ErrInvalidComparison = errors.New("invalid comparison mode")
	ErrInvalidCase       = errors.New("invalid identifier case")
	ErrInvalidQuote      = errors.New("invalid quote style")
	ErrInvalidIndent     = errors.New("indent width must be between 0 and 16")
	ErrInvalidBlankLines = errors.New("max blank lines must not be negative")
	ErrDuplicateFilter   = errors.New("filter listed more than once")
)

const maxIndentWidth = 16

// Exclusions suppress rewrites for specific call sites. Identifiers holds
// names no filter may rewrite; Kinds holds node kinds no filter may touch;
// PerFilter maps a filter name to names only that filter must leave alone.
type Exclusions struct {
	Identifiers []string            `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	Kinds       []ast.Kind          `json:"-"                     yaml:"-"`
	PerFilter   map[string][]string `json:"per_filter,omitempty"  yaml:"per_filter,omitempty"`
}

// Options configure one conversion run.
type Options struct {
	Exclusions     Exclusions
	Comparison     Comparison
	IdentifierCase IdentifierCase
	Quote          Quote
	EscapeSuffix   string
	Filters        []string
	Level          es.Level
	IndentWidth    int
	MaxBlankLines  int
	UseTabs        bool
	Semicolons     bool
}

// Default returns options for ES2020 with loose comparison and no filters.
func Default() Options {
	return Options{
		Level:          es.Default,
		Comparison:     ComparisonLoose,
		IdentifierCase: CasePreserve,
		Quote:          QuoteDouble,
		EscapeSuffix:   DefaultEscapeSuffix,
		IndentWidth:    DefaultIndentWidth,
		MaxBlankLines:  DefaultMaxBlankLines,
		Semicolons:     true,
	}
}

// Validate checks every field.
func (opts Options) Validate() error {
	if !opts.Level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(opts.Level))
	}

	if opts.Comparison != ComparisonLoose && opts.Comparison != ComparisonStrict {
		return fmt.Errorf("%w: %q", ErrInvalidComparison, opts.Comparison)
	}

	if opts.IdentifierCase != CasePreserve && opts.IdentifierCase != CaseCamel {
		return fmt.Errorf("%w: %q", ErrInvalidCase, opts.IdentifierCase)
	}

	if opts.Quote != QuoteDouble && opts.Quote != QuoteSingle {
		return fmt.Errorf("%w: %q", ErrInvalidQuote, opts.Quote)
	}

	if opts.IndentWidth < 0 || opts.IndentWidth > maxIndentWidth {
		return fmt.Errorf("%w: %d", ErrInvalidIndent, opts.IndentWidth)
	}

	if opts.MaxBlankLines < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlankLines, opts.MaxBlankLines)
	}

	for idx, name := range opts.Filters {
		if slices.Contains(opts.Filters[:idx], name) {
			return fmt.Errorf("%w: %q", ErrDuplicateFilter, name)
		}
	}

	return nil
}

// Excluded reports whether name is globally excluded, either by carrying
// the escape suffix or by being listed in the identifier exclusion set.
func (opts Options) Excluded(name string) bool {
	if opts.EscapeSuffix != "" && strings.HasSuffix(name, opts.EscapeSuffix) {
		return true
	}

	return slices.Contains(opts.Exclusions.Identifiers, name)
}

// KindExcluded reports whether filters must leave nodes of kind alone.
func (opts Options) KindExcluded(kind ast.Kind) bool {
	return slices.Contains(opts.Exclusions.Kinds, kind)
}

// ExcludedFor reports whether filterName must leave name alone.
func (opts Options) ExcludedFor(filterName, name string) bool {
	return slices.Contains(opts.Exclusions.PerFilter[filterName], name)
}

// StripEscape removes the escape suffix from name.
func (opts Options) StripEscape(name string) string {
	if opts.EscapeSuffix == "" {
		return name
	}

	return strings.TrimSuffix(name, opts.EscapeSuffix)
}

// Fingerprint is a stable textual digest of everything that can change the
// output. Two option values with equal fingerprints produce the same text.
func (opts Options) Fingerprint() string {
	kinds := make([]string, 0, len(opts.Exclusions.Kinds))
	for _, kind := range opts.Exclusions.Kinds {
		kinds = append(kinds, kind.String())
	}

	slices.Sort(kinds)

	identifiers := slices.Clone(opts.Exclusions.Identifiers)
	slices.Sort(identifiers)

	perFilter := make([]string, 0, len(opts.Exclusions.PerFilter))

	for filterName, names := range opts.Exclusions.PerFilter {
		sorted := slices.Clone(names)
		slices.Sort(sorted)
		perFilter = append(perFilter, filterName+"="+strings.Join(sorted, ","))
	}

	slices.Sort(perFilter)

	return fmt.Sprintf("level=%d;cmp=%s;case=%s;quote=%s;esc=%s;filters=%s;indent=%d;tabs=%t;semi=%t;blank=%d;xid=%s;xkind=%s;xfilter=%s",
		int(opts.Level), opts.Comparison, opts.IdentifierCase, opts.Quote, opts.EscapeSuffix,
		strings.Join(opts.Filters, ","), opts.IndentWidth, opts.UseTabs, opts.Semicolons, opts.MaxBlankLines,
		strings.Join(identifiers, ","), strings.Join(kinds, ","), strings.Join(perFilter, "|"))
}

// Overrides are per-request changes to a base option set. Empty fields
// keep the base value.
type Overrides struct {
	Level      string
	Comparison string
	Filters    []string
}

// Override returns opts with overrides applied, validated.
func (opts Options) Override(overrides Overrides) (Options, error) {
	if overrides.Level != "" {
		level, err := es.Parse(overrides.Level)
		if err != nil {
			return opts, err
		}

		opts.Level = level
	}

	if overrides.Comparison != "" {
		opts.Comparison = Comparison(overrides.Comparison)
	}

	if len(overrides.Filters) > 0 {
		opts.Filters = slices.Clone(overrides.Filters)
	}

	err := opts.Validate()
	if err != nil {
		return opts, err
	}

	return opts, nil
}
