package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/frameset/pkg/serialize"
)

func newDescribeCmd(logger **slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <path>",
		Short: "Show the schema of a stored entityset",
		Long: `Display the entities, variables and relationships of an entityset
directory without loading any table data.`,
		Example: `  # Describe an entityset
  frameset describe ./retail_es`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			es, err := serialize.Read(cmd.Context(), args[0], serialize.ReadOptions{
				SchemaOnly: true,
				Logger:     *logger,
			})
			if err != nil {
				return err
			}
			defer es.Release()

			out := cmd.OutOrStdout()

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Entity", "Index", "Time Index", "Variable", "Type", "DType"})
			for _, e := range es.Entities() {
				desc := serialize.DescribeEntity(e)
				for i, v := range e.Variables {
					entity, index, timeIndex := "", "", ""
					if i == 0 {
						entity, index, timeIndex = e.ID, e.Index, e.TimeIndex
					}
					t.AppendRow(table.Row{entity, index, timeIndex, v.ID, v.TypeTag,
						desc.LoadingInfo.Properties.DTypes[v.ID]})
				}
				t.AppendSeparator()
			}
			t.Render()

			rels := es.Relationships()
			if len(rels) == 0 {
				fmt.Fprintln(out, "(no relationships)")
				return nil
			}
			rt := table.NewWriter()
			rt.SetOutputMirror(out)
			rt.SetStyle(table.StyleLight)
			rt.AppendHeader(table.Row{"Parent", "Child"})
			for _, r := range rels {
				rt.AppendRow(table.Row{
					strings.Join([]string{r.ParentEntity.ID, r.ParentVariable.ID}, "."),
					strings.Join([]string{r.ChildEntity.ID, r.ChildVariable.ID}, "."),
				})
			}
			rt.Render()
			return nil
		},
	}
}
