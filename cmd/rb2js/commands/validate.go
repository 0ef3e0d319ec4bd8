package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/config"
	"github.com/Sumatoshi-tech/rb2js/pkg/observability"
)

// ErrInvalidTree is returned after schema problems were reported.
var ErrInvalidTree = errors.New("invalid syntax tree")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var (
		configPath string
		convert    bool
		colors     colorFlags
	)

	cmd := &cobra.Command{
		Use:   "validate <tree.json|->",
		Short: "Validate a JSON syntax tree and optionally convert it",
		Long: `Validate a syntax tree in the JSON interchange format against the
embedded schema and the node arity rules. With --convert the tree is
translated to JavaScript, which lets other Ruby front ends feed rb2js.

Examples:
  rb2js validate app.json
  rb2js ast -f json app.rb | rb2js validate --convert -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, configPath, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			data, label, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			diag := newDiagnostic(colors.enabled())

			tree, err := ast.DecodeJSON(data)
			if err != nil {
				reportTreeError(cmd, diag, label, err)

				return ErrInvalidTree
			}

			if !convert {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d nodes)\n", label, ast.Count(tree))

				return nil
			}

			tr, err := rt.transpiler()
			if err != nil {
				return err
			}

			output, err := tr.Convert(cmd.Context(), tree)
			if err != nil {
				diag.render(cmd.ErrOrStderr(), label, nil, err)

				return ErrConversionFailed
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), output)

			return err
		},
	}

	addConfigFlag(cmd, &configPath)
	config.RegisterFlags(cmd.Flags())
	colors.register(cmd)
	cmd.Flags().BoolVar(&convert, "convert", false, "convert the tree to JavaScript")

	return cmd
}

func reportTreeError(cmd *cobra.Command, diag diagnostic, label string, err error) {
	var schemaErr *ast.SchemaError
	if !errors.As(err, &schemaErr) {
		diag.render(cmd.ErrOrStderr(), label, nil, err)

		return
	}

	diag.render(cmd.ErrOrStderr(), label, nil, ast.ErrSchema)

	for _, problem := range schemaErr.Problems {
		fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", problem)
	}
}
