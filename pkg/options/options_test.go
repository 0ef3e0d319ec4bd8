package options_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	opts := options.Default()

	require.NoError(t, opts.Validate())
	assert.Equal(t, es.ES2020, opts.Level)
	assert.Equal(t, "_!", opts.EscapeSuffix)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(opts *options.Options)
		want   error
	}{
		{"level", func(opts *options.Options) { opts.Level = 1999 }, options.ErrInvalidLevel},
		{"comparison", func(opts *options.Options) { opts.Comparison = "fuzzy" }, options.ErrInvalidComparison},
		{"case", func(opts *options.Options) { opts.IdentifierCase = "kebab" }, options.ErrInvalidCase},
		{"quote", func(opts *options.Options) { opts.Quote = "backtick" }, options.ErrInvalidQuote},
		{"indent", func(opts *options.Options) { opts.IndentWidth = -1 }, options.ErrInvalidIndent},
		{"blank", func(opts *options.Options) { opts.MaxBlankLines = -2 }, options.ErrInvalidBlankLines},
		{"duplicate filter", func(opts *options.Options) { opts.Filters = []string{"functions", "functions"} }, options.ErrDuplicateFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := options.Default()
			tt.mutate(&opts)

			assert.ErrorIs(t, opts.Validate(), tt.want)
		})
	}
}

func TestExclusions(t *testing.T) {
	t.Parallel()

	opts := options.Default()
	opts.Exclusions = options.Exclusions{
		Identifiers: []string{"puts"},
		Kinds:       []ast.Kind{ast.KindBlock},
		PerFilter:   map[string][]string{"functions": {"length"}},
	}

	assert.True(t, opts.Excluded("puts"))
	assert.True(t, opts.Excluded("print_!"))
	assert.False(t, opts.Excluded("print"))
	assert.True(t, opts.KindExcluded(ast.KindBlock))
	assert.False(t, opts.KindExcluded(ast.KindSend))
	assert.True(t, opts.ExcludedFor("functions", "length"))
	assert.False(t, opts.ExcludedFor("node", "length"))
	assert.Equal(t, "print", opts.StripEscape("print_!"))
	assert.Equal(t, "print", opts.StripEscape("print"))
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	first := options.Default()
	first.Exclusions.Identifiers = []string{"b", "a"}

	second := options.Default()
	second.Exclusions.Identifiers = []string{"a", "b"}

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())

	second.Level = es.ES2022
	assert.NotEqual(t, first.Fingerprint(), second.Fingerprint())
}

func TestOverride(t *testing.T) {
	t.Parallel()

	base := options.Default()
	base.Filters = []string{"functions"}

	same, err := base.Override(options.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, base.Fingerprint(), same.Fingerprint())

	changed, err := base.Override(options.Overrides{Level: "es5", Comparison: "strict", Filters: []string{"return"}})
	require.NoError(t, err)
	assert.Equal(t, es.ES5, changed.Level)
	assert.Equal(t, options.ComparisonStrict, changed.Comparison)
	assert.Equal(t, []string{"return"}, changed.Filters)
	assert.Equal(t, []string{"functions"}, base.Filters)

	_, err = base.Override(options.Overrides{Level: "es4"})
	require.ErrorIs(t, err, es.ErrUnknownLevel)

	_, err = base.Override(options.Overrides{Comparison: "fuzzy"})
	require.ErrorIs(t, err, options.ErrInvalidComparison)

	_, err = base.Override(options.Overrides{Filters: []string{"node", "node"}})
	require.ErrorIs(t, err, options.ErrDuplicateFilter)
}
