// Package config provides YAML-based project configuration for rb2js.
package config

import "github.com/Sumatoshi-tech/rb2js/pkg/options"

// Conversion defaults.
const (
	DefaultLevel          = "es2020"
	DefaultComparison     = string(options.ComparisonLoose)
	DefaultIdentifierCase = string(options.CasePreserve)
	DefaultEscapeSuffix   = options.DefaultEscapeSuffix
)

// Format defaults.
const (
	DefaultIndentWidth   = options.DefaultIndentWidth
	DefaultMaxBlankLines = options.DefaultMaxBlankLines
	DefaultQuote         = string(options.QuoteDouble)
	DefaultUseTabs       = false
	DefaultSemicolons    = true
)

// Batch defaults.
const (
	DefaultBatchWorkers     = 0
	DefaultBatchExtension   = ".js"
	DefaultBatchMaxFileSize = "1MB"
	DefaultBatchFailFast    = true
)

// Cache defaults.
const (
	DefaultCacheEnabled   = true
	DefaultCacheDirectory = ""
	DefaultCacheEntries   = 1024
)

// Server defaults.
const (
	DefaultServerHost         = "127.0.0.1"
	DefaultServerPort         = 8080
	DefaultServerReadTimeout  = "30s"
	DefaultServerWriteTimeout = "30s"
	DefaultServerMaxBodySize  = "4MB"
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetrySampleRatio     = 1.0
	DefaultTelemetryShutdownTimeout = 5
)
