package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/mcp"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes rb2js as tools that AI agents can discover and invoke:
  - rb2js_convert: Convert Ruby source to JavaScript
  - rb2js_ast: Parse Ruby source into its syntax tree
  - rb2js_filters: List the available rewrite filters

Conversion flags set the defaults that tool arguments override.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			rt, err := setup(cobraCmd, configPath, observability.ModeMCP, mcpTelemetry(debug))
			if err != nil {
				return err
			}
			defer rt.close()

			opts, err := rt.cfg.ToOptions()
			if err != nil {
				return err
			}

			outputs, err := rt.cache()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  rt.providers.Logger,
				Metrics: rt.metrics,
				Tracer:  rt.providers.Tracer,
				Cache:   outputs,
				Options: opts,
				Version: version.Version,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	addConfigFlag(cmd, &configPath)
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// mcpTelemetry applies the standard OTLP environment variables over the
// configuration. Logs are JSON since stdout carries the protocol.
func mcpTelemetry(debug bool) func(*observability.Config) {
	return func(cfg *observability.Config) {
		if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
			cfg.OTLPEndpoint = endpoint
		}

		if headers := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); headers != "" {
			cfg.OTLPHeaders = observability.ParseOTLPHeaders(headers)
		}

		if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
			cfg.OTLPInsecure = true
		}

		cfg.LogJSON = true

		if debug {
			cfg.LogLevel = slog.LevelDebug
			cfg.DebugTrace = true
		}
	}
}
