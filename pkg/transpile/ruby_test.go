package transpile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/convert"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
	"github.com/Sumatoshi-tech/rb2js/pkg/rubyparse"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
)

func convertRuby(t *testing.T, opts options.Options, src string) (string, error) {
	t.Helper()

	tr, err := transpile.New(opts, transpile.Deps{Parser: rubyparse.New()})
	require.NoError(t, err)

	return tr.ConvertSource(context.Background(), "main.rb", []byte(src))
}

func TestConvertRubySource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
		filters  []string
		level    es.Level
	}{
		{
			name:     "gsub with a regexp replaces globally",
			src:      "s = \"aaa\"\nputs s.gsub(/a/, \"b\")\n",
			filters:  []string{"functions"},
			level:    es.ES2020,
			contains: []string{`s.replace(/a/g, "b")`},
		},
		{
			name:     "regexp keeps case insensitive and global flags",
			src:      "s = \"aAa\"\nputs s.gsub(/a/i, \"b\")\n",
			filters:  []string{"functions"},
			level:    es.ES2020,
			contains: []string{`/a/ig`},
		},
		{
			name:     "defined never invokes the method",
			src:      "x = defined?(foo)\nputs x\n",
			level:    es.ES2020,
			contains: []string{`typeof foo !== "undefined"`},
			excludes: []string{"foo()"},
		},
		{
			name:     "defined of a method on a receiver",
			src:      "obj = {}\nx = defined?(obj.name)\n",
			level:    es.ES2020,
			contains: []string{`typeof obj.name !== "undefined"`},
			excludes: []string{"name()"},
		},
		{
			name:     "receiverless new in a class method constructs the class",
			src:      "class Point\n  def initialize(a)\n    @a = a\n  end\n\n  def self.make(a)\n    new(a)\n  end\nend\n",
			level:    es.ES2015,
			contains: []string{"new this(a)"},
			excludes: []string{"this.new("},
		},
		{
			name:     "explicit new keeps the named class",
			src:      "class Point\nend\n\npoint = Point.new\n",
			level:    es.ES2015,
			contains: []string{"new Point"},
		},
		{
			name:     "each with return below ES2015 becomes an index loop",
			src:      "def first_truthy(a)\n  a.each { |v| return v if v }\n  nil\nend\n",
			level:    es.ES5,
			contains: []string{"a.length", "var v = a[", "return v;"},
			excludes: []string{"forEach"},
		},
		{
			name:     "each without return below ES2015 stays a forEach",
			src:      "def show(a)\n  a.each { |v| puts v }\n  nil\nend\n",
			level:    es.ES5,
			contains: []string{"a.forEach(function(v) {"},
		},
		{
			name:     "each with return from ES2015 is a for of loop",
			src:      "def first_truthy(a)\n  a.each { |v| return v if v }\n  nil\nend\n",
			level:    es.ES2015,
			contains: []string{"for (const v of a) {", "return v;"},
		},
		{
			name:     "instance variables become private fields from ES2022",
			src:      "class Counter\n  def initialize\n    @count = 0\n  end\nend\n",
			level:    es.ES2022,
			contains: []string{"this.#count = 0"},
		},
		{
			name:     "instance variables are underscored below ES2022",
			src:      "class Counter\n  def initialize\n    @count = 0\n  end\nend\n",
			level:    es.ES2021,
			contains: []string{"this._count = 0"},
			excludes: []string{"#count"},
		},
		{
			name:     "or assign is native from ES2021",
			src:      "a = nil\na ||= 1\n",
			level:    es.ES2021,
			contains: []string{"a ||= 1;"},
		},
		{
			name:     "or assign is expanded below ES2021",
			src:      "a = nil\na ||= 1\n",
			level:    es.ES2020,
			contains: []string{"a = a || 1;"},
		},
		{
			name:     "blocks are arrows from ES2015",
			src:      "b = [1].map { |v| v + 1 }\n",
			level:    es.ES2015,
			contains: []string{"v => v + 1"},
		},
		{
			name:     "blocks are function expressions below ES2015",
			src:      "b = [1].map { |v| v + 1 }\n",
			level:    es.ES5,
			contains: []string{"function(v) {", "return v + 1;"},
			excludes: []string{"=>"},
		},
		{
			name:     "each with index from ES2015 iterates entries",
			src:      "a = [1]\na.each_with_index { |v, i| puts i }\n",
			filters:  []string{"functions"},
			level:    es.ES2015,
			contains: []string{"for (const [i, v] of a.entries()) {"},
		},
		{
			name:     "each with index below ES2015 counts",
			src:      "a = [1]\na.each_with_index { |v, i| puts i }\n",
			filters:  []string{"functions"},
			level:    es.ES5,
			contains: []string{"i < a.length; i++", "var v = a[i];"},
			excludes: []string{"entries()"},
		},
		{
			name:     "super below ES2015 calls the parent prototype",
			src:      "class A\n  def greet(x)\n    x\n  end\nend\n\nclass B < A\n  def greet(x)\n    super(x)\n  end\nend\n",
			level:    es.ES5,
			contains: []string{"A.prototype.greet.call(this, x)"},
			excludes: []string{"super."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := options.Default()
			opts.Level = tt.level
			opts.Filters = tt.filters

			out, err := convertRuby(t, opts, tt.src)
			require.NoError(t, err)

			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}

			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestAssignmentInsideTernaryIsDeclaredBeforeStatement(t *testing.T) {
	t.Parallel()

	out, err := convertRuby(t, options.Default(), "x = y ? (a = 1) : 2\nputs a\n")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "let a;\n"), out)
	assert.NotContains(t, out, "  let a")
	assert.Equal(t, 1, strings.Count(out, "let a"), out)
}

func TestReturnInsideCallbackFails(t *testing.T) {
	t.Parallel()

	_, err := convertRuby(t, options.Default(), "def f(a)\n  a.map { |v| return v }\nend\n")

	require.ErrorIs(t, err, convert.ErrReturnInCallback)

	var stageErr *transpile.Error
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, transpile.StageConvert, stageErr.Stage)
}

func TestReturnInsideLambdaLeavesLambda(t *testing.T) {
	t.Parallel()

	out, err := convertRuby(t, options.Default(), "f = lambda { |v| return v }\n")
	require.NoError(t, err)
	assert.Contains(t, out, "return v")
}

func TestBlankLineRuns(t *testing.T) {
	t.Parallel()

	src := "a = 1\n\n\n\nb = 2\n"

	tests := []struct {
		name     string
		want     string
		maxBlank int
	}{
		{"single", "const a = 1;\n\nconst b = 2;\n", 1},
		{"kept", "const a = 1;\n\n\nconst b = 2;\n", 2},
		{"whole run", "const a = 1;\n\n\n\nconst b = 2;\n", 5},
		{"none", "const a = 1;\nconst b = 2;\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := options.Default()
			opts.MaxBlankLines = tt.maxBlank

			out, err := convertRuby(t, opts, src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}
