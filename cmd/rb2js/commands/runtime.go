// Package commands implements the rb2js CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
	"github.com/Sumatoshi-tech/rb2js/pkg/rubyparse"
	"github.com/Sumatoshi-tech/rb2js/pkg/transpile"
	"github.com/Sumatoshi-tech/rb2js/pkg/version"
)

// stdinArg names standard input on the command line.
const stdinArg = "-"

// stdinName labels standard input in diagnostics.
const stdinName = "<stdin>"

// runtime is the state shared by one command invocation.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.ConversionMetrics
}

// addConfigFlag registers --config on cmd.
func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "config", "", "config file (default .rb2js.yaml in the working or home directory)")
}

// setup loads configuration with the command's flags applied and starts
// telemetry for mode. tune adjusts the telemetry configuration before Init.
func setup(
	cmd *cobra.Command, configPath string, mode observability.AppMode, tune ...func(*observability.Config),
) (*runtime, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.Observability(mode, version.Version)
	for _, apply := range tune {
		apply(&obsCfg)
	}

	providers, err := observability.Init(cmd.Context(), obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewConversionMetrics(providers.Meter)
	if err != nil {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}

		return nil, err
	}

	return &runtime{cfg: cfg, providers: providers, metrics: metrics}, nil
}

// close flushes telemetry.
func (rt *runtime) close() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// transpiler builds a transpiler from the configured conversion options.
func (rt *runtime) transpiler() (*transpile.Transpiler, error) {
	opts, err := rt.cfg.ToOptions()
	if err != nil {
		return nil, err
	}

	return transpile.New(opts, transpile.Deps{
		Parser:  rubyparse.New(),
		Tracer:  rt.providers.Tracer,
		Metrics: rt.metrics,
		Logger:  rt.providers.Logger,
	})
}

// cache builds the output cache, or returns nil when caching is disabled.
func (rt *runtime) cache() (*cache.Cache, error) {
	if !rt.cfg.Cache.Enabled {
		return nil, nil //nolint:nilnil // nil cache means disabled.
	}

	opts := []cache.Option{
		cache.WithRecorder(rt.metrics),
		cache.WithLogger(rt.providers.Logger),
	}

	if rt.cfg.Cache.Directory != "" {
		disk, err := cache.NewDisk(rt.cfg.Cache.Directory)
		if err != nil {
			return nil, err
		}

		opts = append(opts, cache.WithDisk(disk))
	}

	return cache.New(rt.cfg.Cache.Entries, opts...), nil
}

// readInput reads a named file, or standard input for "-" or no name.
// The returned label names the input in diagnostics.
func readInput(cmd *cobra.Command, args []string) (src []byte, label string, err error) {
	if len(args) == 0 || args[0] == stdinArg {
		src, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return src, stdinName, nil
	}

	src, err = os.ReadFile(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}

	return src, args[0], nil
}
