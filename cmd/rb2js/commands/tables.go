package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter/builtin"
)

// NewFiltersCommand creates the filters command.
func NewFiltersCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "filters",
		Short:         "List the available rewrite filters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeFilters(cmd.OutOrStdout())
		},
	}
}

// NewLevelsCommand creates the levels command.
func NewLevelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "levels",
		Short:         "List the ECMAScript levels and the features each one enables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeLevels(cmd.OutOrStdout())
		},
	}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func writeFilters(out io.Writer) error {
	filters := builtin.Filters()

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Name", "Requires", "Kinds", "Description"})

	for _, flt := range filters {
		kinds := make([]string, 0, len(flt.Handlers))
		for _, kind := range flt.Kinds() {
			kinds = append(kinds, kind.String())
		}

		tbl.AppendRow(table.Row{flt.Name, dash(strings.Join(flt.Requires, ", ")), strings.Join(kinds, " "), flt.Description})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d filters", len(filters))})

	_, err := fmt.Fprintln(out, tbl.Render())

	return err
}

func writeLevels(out io.Writer) error {
	introduced := make(map[es.Level][]string)
	for _, info := range es.FeatureTable() {
		introduced[info.Level] = append(introduced[info.Level], string(info.Feature))
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Level", "Edition", "Introduces"})

	for _, level := range es.Levels() {
		tbl.AppendRow(table.Row{strings.ToLower(level.String()), level.Edition(), dash(strings.Join(introduced[level], ", "))})
	}

	_, err := fmt.Fprintln(out, tbl.Render())

	return err
}

func dash(text string) string {
	if text == "" {
		return "-"
	}

	return text
}
