package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/batch"
	"github.com/Sumatoshi-tech/rb2js/pkg/cache"
	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

// Sentinel errors.
var (
	// ErrConversionFailed is returned after the failure was reported.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrOutDirRequired is returned when a directory is converted without --out.
	ErrOutDirRequired = errors.New("converting a directory requires --out")
)

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	var (
		configPath string
		outDir     string
		colors     colorFlags
	)

	cmd := &cobra.Command{
		Use:   "convert [file|dir|-]",
		Short: "Convert Ruby source to JavaScript",
		Long: `Convert Ruby source to JavaScript.

A single file or standard input is written to standard output. With --out,
files and directory trees are converted into the output directory, mirroring
the input layout.

Examples:
  rb2js convert app.rb
  echo 'puts "hi"' | rb2js convert --filter functions
  rb2js convert lib --out dist --level es2015 --workers 4`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, configPath, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			diag := newDiagnostic(colors.enabled())

			if outDir != "" {
				return runBatch(cmd, rt, diag, args, outDir)
			}

			if len(args) == 1 && args[0] != stdinArg {
				info, statErr := os.Stat(args[0])
				if statErr == nil && info.IsDir() {
					return ErrOutDirRequired
				}
			}

			return runSingle(cmd, rt, diag, args)
		},
	}

	addConfigFlag(cmd, &configPath)
	config.RegisterFlags(cmd.Flags())
	colors.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for converted files")

	return cmd
}

func runSingle(cmd *cobra.Command, rt *runtime, diag diagnostic, args []string) error {
	src, label, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	tr, err := rt.transpiler()
	if err != nil {
		return err
	}

	outputs, err := rt.cache()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	convert := func() (string, error) { return tr.ConvertSource(ctx, label, src) }

	var output string

	if outputs != nil {
		output, _, err = outputs.GetOrCompute(ctx, cache.NewKey(tr.Options().Fingerprint(), src), convert)
	} else {
		output, err = convert()
	}

	if err != nil {
		diag.render(cmd.ErrOrStderr(), label, src, err)

		return ErrConversionFailed
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), output)

	return err
}

func runBatch(cmd *cobra.Command, rt *runtime, diag diagnostic, args []string, outDir string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	if root == stdinArg {
		return fmt.Errorf("%w: standard input cannot be mirrored", ErrOutDirRequired)
	}

	tr, err := rt.transpiler()
	if err != nil {
		return err
	}

	outputs, err := rt.cache()
	if err != nil {
		return err
	}

	runner := batch.NewRunner(tr, outputs, rt.providers.Logger, batch.Config{
		OutDir:      outDir,
		Extension:   rt.cfg.Batch.Extension,
		MaxFileSize: rt.cfg.MaxFileSize(),
		Workers:     rt.cfg.Batch.Workers,
		FailFast:    rt.cfg.Batch.FailFast,
	})

	summary, runErr := runner.Run(cmd.Context(), root)
	if summary == nil {
		return runErr
	}

	errOut := cmd.ErrOrStderr()

	for _, skip := range summary.Skipped {
		rt.providers.Logger.Info("file skipped", "file", skip.Rel, "reason", skip.Reason)
	}

	for _, result := range summary.Results {
		if result.Err == nil {
			continue
		}

		src, _ := os.ReadFile(result.File.Path)
		diag.render(errOut, result.File.Rel, src, result.Err)
	}

	fmt.Fprintln(errOut, summary.String())

	if runErr != nil && summary.Failed > 0 {
		return ErrConversionFailed
	}

	return runErr
}
