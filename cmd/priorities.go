package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"projector/internal/app"
	"projector/internal/priority"
)

func newPrioritiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priorities <pattern>",
		Short: "Show the template priorities of a pattern and every narrower repository",
		Long: `Resolves pattern against the repository patterns of the store and prints
the priority its index templates get, followed by every repository pattern
it contains. Alias templates get the repository priority plus one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication(app.NewConfig(debug, configPath), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			records, err := application.Priorities(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderPriorities(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func renderPriorities(w io.Writer, records []priority.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pattern", "Repository template", "Alias template"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Pattern,
			r.WithTieBreak(priority.TieBreakRepository),
			r.WithTieBreak(priority.TieBreakAlias),
		})
	}
	t.Render()
}
