package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

// ErrMismatch is returned when the conversion differs from the expected file.
var ErrMismatch = errors.New("output differs from expected")

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var (
		configPath string
		colors     colorFlags
	)

	cmd := &cobra.Command{
		Use:   "check <source.rb> <expected.js>",
		Short: "Compare a conversion against an expected JavaScript file",
		Long: `Convert a Ruby file and compare the result with an existing JavaScript
file. Differences are printed as a line diff and the command fails.

Examples:
  rb2js check app.rb app.js
  rb2js check --level es5 legacy.rb legacy.js`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, configPath, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			src, label, err := readInput(cmd, args[:1])
			if err != nil {
				return err
			}

			expected, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read expected: %w", err)
			}

			tr, err := rt.transpiler()
			if err != nil {
				return err
			}

			diag := newDiagnostic(colors.enabled())

			output, err := tr.ConvertSource(cmd.Context(), label, src)
			if err != nil {
				diag.render(cmd.ErrOrStderr(), label, src, err)

				return ErrConversionFailed
			}

			if output == string(expected) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", label)

				return nil
			}

			writeLineDiff(cmd.OutOrStdout(), string(expected), output, colors.enabled())

			return fmt.Errorf("%w: %s", ErrMismatch, args[1])
		},
	}

	addConfigFlag(cmd, &configPath)
	config.RegisterFlags(cmd.Flags())
	colors.register(cmd)

	return cmd
}

// writeLineDiff prints a line diff from expected to actual, prefixing
// removed lines with "-" and added lines with "+".
func writeLineDiff(out io.Writer, expected, actual string, colorize bool) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	if !colorize {
		removed.DisableColor()
		added.DisableColor()
	} else {
		removed.EnableColor()
		added.EnableColor()
	}

	fmt.Fprintln(out, "--- expected")
	fmt.Fprintln(out, "+++ converted")

	for _, diff := range diffs {
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			switch diff.Type {
			case diffmatchpatch.DiffDelete:
				removed.Fprintln(out, "-"+line)
			case diffmatchpatch.DiffInsert:
				added.Fprintln(out, "+"+line)
			case diffmatchpatch.DiffEqual:
				fmt.Fprintln(out, " "+line)
			}
		}
	}
}
