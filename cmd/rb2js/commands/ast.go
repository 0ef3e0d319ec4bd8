package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

// Tree output formats.
const (
	formatSexp = "sexp"
	formatJSON = "json"
	formatYAML = "yaml"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown format")

// NewASTCommand creates the ast command.
func NewASTCommand() *cobra.Command {
	var (
		configPath string
		format     string
		rewrite    bool
		colors     colorFlags
	)

	cmd := &cobra.Command{
		Use:   "ast [file|-]",
		Short: "Print the syntax tree of Ruby source",
		Long: `Parse Ruby source and print its syntax tree.

The s-expression form matches the parser gem's output. The json form is the
interchange format accepted by "rb2js validate". With --rewrite the tree is
printed after the configured filters ran.

Examples:
  rb2js ast app.rb
  rb2js ast -f json app.rb > app.json
  rb2js ast --rewrite --filter functions app.rb`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatSexp && format != formatJSON && format != formatYAML {
				return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
			}

			rt, err := setup(cmd, configPath, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			src, label, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			tr, err := rt.transpiler()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			tree, err := tr.Parse(ctx, label, src)
			if err == nil && rewrite {
				tree, err = tr.Rewrite(ctx, tree)
			}

			if err != nil {
				newDiagnostic(colors.enabled()).render(cmd.ErrOrStderr(), label, src, err)

				return ErrConversionFailed
			}

			return writeTree(cmd, tree, format)
		},
	}

	addConfigFlag(cmd, &configPath)
	config.RegisterFlags(cmd.Flags())
	colors.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", formatSexp, "output format (sexp, json, yaml)")
	cmd.Flags().BoolVar(&rewrite, "rewrite", false, "print the tree after filters")

	return cmd
}

func writeTree(cmd *cobra.Command, tree *ast.Node, format string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case formatJSON:
		data, err = ast.EncodeJSON(tree, true)
		data = append(data, '\n')
	case formatYAML:
		data, err = ast.EncodeYAML(tree)
	default:
		data = []byte(ast.Format(tree) + "\n")
	}

	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)

	return err
}
