package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

// File discovery.
const (
	FileName  = ".rb2js"
	EnvPrefix = "RB2JS"
)

// Sentinel validation errors.
var (
	ErrInvalidPort     = errors.New("invalid server port")
	ErrInvalidWorkers  = errors.New("batch workers must not be negative")
	ErrInvalidEntries  = errors.New("cache entries must be positive")
	ErrInvalidSize     = errors.New("invalid size")
	ErrInvalidKind     = errors.New("unknown node kind in exclusions")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidRatio    = errors.New("sample ratio must be between 0 and 1")
	ErrInvalidExt      = errors.New("output extension must start with a dot")
)

const maxPort = 65535

// Config holds all configuration for rb2js.
type Config struct {
	Conversion ConversionConfig `mapstructure:"conversion"`
	Format     FormatConfig     `mapstructure:"format"`
	Exclusions ExclusionConfig  `mapstructure:"exclusions"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ConversionConfig selects the target and the filters.
type ConversionConfig struct {
	Level          string   `mapstructure:"level"`
	Comparison     string   `mapstructure:"comparison"`
	IdentifierCase string   `mapstructure:"identifier_case"`
	EscapeSuffix   string   `mapstructure:"escape_suffix"`
	Filters        []string `mapstructure:"filters"`
}

// FormatConfig holds layout settings for the emitted text.
type FormatConfig struct {
	Quote         string `mapstructure:"quote"`
	IndentWidth   int    `mapstructure:"indent_width"`
	MaxBlankLines int    `mapstructure:"max_blank_lines"`
	UseTabs       bool   `mapstructure:"use_tabs"`
	Semicolons    bool   `mapstructure:"semicolons"`
}

// ExclusionConfig lists call sites filters must leave alone.
type ExclusionConfig struct {
	PerFilter   map[string][]string `mapstructure:"per_filter"`
	Identifiers []string            `mapstructure:"identifiers"`
	Kinds       []string            `mapstructure:"kinds"`
}

// BatchConfig holds directory conversion settings.
type BatchConfig struct {
	Extension   string `mapstructure:"extension"`
	MaxFileSize string `mapstructure:"max_file_size"`
	Workers     int    `mapstructure:"workers"`
	FailFast    bool   `mapstructure:"fail_fast"`
}

// CacheConfig holds output cache settings. An empty directory keeps the
// cache in memory only.
type CacheConfig struct {
	Directory string `mapstructure:"directory"`
	Entries   int    `mapstructure:"entries"`
	Enabled   bool   `mapstructure:"enabled"`
}

// ServerConfig holds serve mode settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	MaxBodySize  string        `mapstructure:"max_body_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Port         int           `mapstructure:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Headers         map[string]string `mapstructure:"headers"`
	Endpoint        string            `mapstructure:"endpoint"`
	Environment     string            `mapstructure:"environment"`
	SampleRatio     float64           `mapstructure:"sample_ratio"`
	ShutdownTimeout int               `mapstructure:"shutdown_timeout"`
	Insecure        bool              `mapstructure:"insecure"`
	Debug           bool              `mapstructure:"debug"`
	Verbose         bool              `mapstructure:"verbose"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	return Load(configPath, nil)
}

// Load loads configuration from file, environment variables and the flags
// in flags that the user set. Flags are matched by the option descriptors.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(FileName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		bindErr := bindFlags(viperCfg, flags)
		if bindErr != nil {
			return nil, bindErr
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet) error {
	for _, desc := range Descriptors() {
		flag := flags.Lookup(desc.Flag)
		if flag == nil {
			continue
		}

		err := viperCfg.BindPFlag(desc.Key, flag)
		if err != nil {
			return fmt.Errorf("bind flag %s: %w", desc.Flag, err)
		}
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	for _, desc := range Descriptors() {
		viperCfg.SetDefault(desc.Key, desc.Default)
	}

	viperCfg.SetDefault("exclusions.kinds", []string{})

	viperCfg.SetDefault("batch.max_file_size", DefaultBatchMaxFileSize)
	viperCfg.SetDefault("batch.fail_fast", DefaultBatchFailFast)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.directory", DefaultCacheDirectory)
	viperCfg.SetDefault("cache.entries", DefaultCacheEntries)

	viperCfg.SetDefault("server.host", DefaultServerHost)
	viperCfg.SetDefault("server.port", DefaultServerPort)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viperCfg.SetDefault("server.max_body_size", DefaultServerMaxBodySize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultTelemetryShutdownTimeout)
}

// Validate checks the configuration, including everything ToOptions
// would reject.
func (config *Config) Validate() error {
	_, err := config.ToOptions()
	if err != nil {
		return err
	}

	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if config.Batch.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Batch.Workers)
	}

	if !strings.HasPrefix(config.Batch.Extension, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidExt, config.Batch.Extension)
	}

	if config.Cache.Entries <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEntries, config.Cache.Entries)
	}

	for _, size := range []string{config.Batch.MaxFileSize, config.Server.MaxBodySize} {
		_, err = parseSize(size)
		if err != nil {
			return err
		}
	}

	_, err = parseLogLevel(config.Logging.Level)
	if err != nil {
		return err
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// ToOptions converts the conversion, format and exclusion sections into
// validated conversion options.
func (config *Config) ToOptions() (options.Options, error) {
	opts := options.Default()

	level, err := es.Parse(config.Conversion.Level)
	if err != nil {
		return opts, err
	}

	opts.Level = level
	opts.Comparison = options.Comparison(config.Conversion.Comparison)
	opts.IdentifierCase = options.IdentifierCase(config.Conversion.IdentifierCase)
	opts.EscapeSuffix = config.Conversion.EscapeSuffix
	opts.Filters = append([]string(nil), config.Conversion.Filters...)

	opts.Quote = options.Quote(config.Format.Quote)
	opts.IndentWidth = config.Format.IndentWidth
	opts.MaxBlankLines = config.Format.MaxBlankLines
	opts.UseTabs = config.Format.UseTabs
	opts.Semicolons = config.Format.Semicolons

	opts.Exclusions.Identifiers = append([]string(nil), config.Exclusions.Identifiers...)
	opts.Exclusions.PerFilter = config.Exclusions.PerFilter

	for _, name := range config.Exclusions.Kinds {
		kind, ok := ast.ParseKind(name)
		if !ok {
			return opts, fmt.Errorf("%w: %q", ErrInvalidKind, name)
		}

		opts.Exclusions.Kinds = append(opts.Exclusions.Kinds, kind)
	}

	err = opts.Validate()
	if err != nil {
		return opts, fmt.Errorf("conversion options: %w", err)
	}

	return opts, nil
}

// MaxFileSize returns the batch file size limit in bytes.
func (config *Config) MaxFileSize() uint64 {
	size, _ := parseSize(config.Batch.MaxFileSize)

	return size
}

// MaxBodySize returns the serve request body limit in bytes.
func (config *Config) MaxBodySize() uint64 {
	size, _ := parseSize(config.Server.MaxBodySize)

	return size
}

// Observability builds the telemetry configuration for mode.
func (config *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()

	obs.Mode = mode
	obs.ServiceVersion = version
	obs.Environment = config.Telemetry.Environment
	obs.TargetLevel = config.Conversion.Level
	obs.OTLPEndpoint = config.Telemetry.Endpoint
	obs.OTLPHeaders = config.Telemetry.Headers
	obs.OTLPInsecure = config.Telemetry.Insecure
	obs.SampleRatio = config.Telemetry.SampleRatio
	obs.DebugTrace = config.Telemetry.Debug
	obs.TraceVerbose = config.Telemetry.Verbose
	obs.LogJSON = config.Logging.JSON

	if config.Telemetry.ShutdownTimeout > 0 {
		obs.ShutdownTimeoutSec = config.Telemetry.ShutdownTimeout
	}

	if level, err := parseLogLevel(config.Logging.Level); err == nil {
		obs.LogLevel = level
	}

	return obs
}

func parseSize(text string) (uint64, error) {
	if text == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, text)
	}

	return size, nil
}

func parseLogLevel(text string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(text))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, text)
	}

	return level, nil
}
