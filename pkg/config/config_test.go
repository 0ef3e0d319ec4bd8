package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

const testMaxFileSize = 2_000_000

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".rb2js.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLevel, cfg.Conversion.Level)
	assert.Equal(t, config.DefaultEscapeSuffix, cfg.Conversion.EscapeSuffix)
	assert.Empty(t, cfg.Conversion.Filters)
	assert.Equal(t, config.DefaultIndentWidth, cfg.Format.IndentWidth)
	assert.Equal(t, config.DefaultSemicolons, cfg.Format.Semicolons)
	assert.Equal(t, config.DefaultBatchExtension, cfg.Batch.Extension)
	assert.Equal(t, config.DefaultCacheEntries, cfg.Cache.Entries)
	assert.Equal(t, config.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	opts, err := cfg.ToOptions()
	require.NoError(t, err)
	assert.Equal(t, options.Default().Fingerprint(), opts.Fingerprint())
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `conversion:
  level: es2015
  comparison: strict
  identifier_case: camel
  filters:
    - functions
    - return
format:
  quote: single
  indent_width: 4
  use_tabs: true
  semicolons: false
exclusions:
  identifiers: [puts]
  kinds: [send]
  per_filter:
    functions: [each]
batch:
  workers: 3
  max_file_size: 2MB
server:
  port: 9000
  write_timeout: 1m
telemetry:
  endpoint: localhost:4317
  verbose: true
logging:
  level: debug
  json: true
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	opts, err := cfg.ToOptions()
	require.NoError(t, err)

	assert.Equal(t, es.ES2015, opts.Level)
	assert.Equal(t, options.ComparisonStrict, opts.Comparison)
	assert.Equal(t, options.CaseCamel, opts.IdentifierCase)
	assert.Equal(t, []string{"functions", "return"}, opts.Filters)
	assert.Equal(t, options.QuoteSingle, opts.Quote)
	assert.Equal(t, 4, opts.IndentWidth)
	assert.True(t, opts.UseTabs)
	assert.False(t, opts.Semicolons)
	assert.Equal(t, []string{"puts"}, opts.Exclusions.Identifiers)
	assert.Equal(t, []ast.Kind{ast.KindSend}, opts.Exclusions.Kinds)
	assert.Equal(t, []string{"each"}, opts.Exclusions.PerFilter["functions"])

	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, uint64(testMaxFileSize), cfg.MaxFileSize())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Server.WriteTimeout)

	obs := cfg.Observability(observability.ModeServe, "1.2.3")
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.Equal(t, observability.ModeServe, obs.Mode)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, "es2015", obs.TargetLevel)
	assert.True(t, obs.TraceVerbose)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "DEBUG", obs.LogLevel.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    error
		name    string
		content string
	}{
		{name: "level", content: "conversion:\n  level: es4\n", want: es.ErrUnknownLevel},
		{name: "comparison", content: "conversion:\n  comparison: fuzzy\n", want: options.ErrInvalidComparison},
		{name: "duplicate filter", content: "conversion:\n  filters: [return, return]\n", want: options.ErrDuplicateFilter},
		{name: "indent", content: "format:\n  indent_width: 40\n", want: options.ErrInvalidIndent},
		{name: "kind", content: "exclusions:\n  kinds: [sendd]\n", want: config.ErrInvalidKind},
		{name: "port", content: "server:\n  port: 70000\n", want: config.ErrInvalidPort},
		{name: "workers", content: "batch:\n  workers: -1\n", want: config.ErrInvalidWorkers},
		{name: "extension", content: "batch:\n  extension: js\n", want: config.ErrInvalidExt},
		{name: "size", content: "batch:\n  max_file_size: lots\n", want: config.ErrInvalidSize},
		{name: "log level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "ratio", content: "telemetry:\n  sample_ratio: 2\n", want: config.ErrInvalidRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "format:\n  indent_width: [oops\n"))
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("/nonexistent/path/.rb2js.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "")

	t.Setenv("RB2JS_CONVERSION_LEVEL", "es2022")
	t.Setenv("RB2JS_FORMAT_INDENT_WIDTH", "8")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "es2022", cfg.Conversion.Level)
	assert.Equal(t, 8, cfg.Format.IndentWidth)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "conversion:\n  level: es2015\nformat:\n  indent_width: 4\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--level", "es5", "--filter", "functions", "--filter", "return"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "es5", cfg.Conversion.Level)
	assert.Equal(t, []string{"functions", "return"}, cfg.Conversion.Filters)
	assert.Equal(t, 4, cfg.Format.IndentWidth, "unset flags keep the file value")
}

func TestDescriptors_RegisterEveryFlag(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)

	for _, desc := range config.Descriptors() {
		flag := flags.Lookup(desc.Flag)
		require.NotNil(t, flag, desc.Flag)
		assert.Equal(t, desc.Usage, flag.Usage)
	}

	assert.Contains(t, flags.Lookup("level").Usage, "es2022")
}
