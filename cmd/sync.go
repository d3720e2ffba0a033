package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"projector/internal/app"
	"projector/internal/reconciler"
	pstrings "projector/pkg/strings"
)

// errSweepFailed makes the process exit non-zero when a sweep had failures.
var errSweepFailed = errors.New("sweep finished with failures")

func newSyncCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sync [kind...]",
		Short: "Run one full sweep and print the result per kind",
		Long: fmt.Sprintf(`Runs one full sweep against the engines and exits.

Without arguments every kind is swept. Kinds always run in dependency order
whatever order they are given in. Available kinds: %s.

The command exits with status 1 when any entity failed to synchronize.`, kindList()),
		ValidArgs: kindNames(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]reconciler.Kind, 0, len(args))
			for _, a := range args {
				kind, _ := reconciler.ParseKind(a)
				kinds = append(kinds, kind)
			}

			application, err := app.NewApplication(app.NewConfig(debug, configPath), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Synchronizing..."
				s.Start()
			}

			report, err := application.SyncOnce(cmd.Context(), kinds...)
			if s != nil {
				if err != nil {
					s.FinalMSG = text.FgRed.Sprint("Sweep could not run") + "\n"
				}
				s.Stop()
			}
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), report)
			if report.Failed() {
				return errSweepFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show a progress spinner")
	return cmd
}

// renderReport prints one row per kind and a total.
func renderReport(w io.Writer, report reconciler.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Sweep " + report.RunID)
	t.AppendHeader(table.Row{"Kind", "Fulfilled", "Errors", "Duration", "Status"})

	for _, kr := range report.Results {
		t.AppendRow(table.Row{kr.Kind, kr.Result.Fulfilled, kr.Result.Errors, kr.Duration.Round(time.Millisecond), status(kr)})
	}

	total := report.Total()
	t.AppendFooter(table.Row{"Total", total.Fulfilled, total.Errors, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), ""})
	t.Render()
}

func status(kr reconciler.KindResult) string {
	switch {
	case kr.Error != "":
		return text.FgRed.Sprint(pstrings.Truncate(kr.Error, pstrings.DefaultMaxLen))
	case kr.Result.Errors > 0:
		return text.FgYellow.Sprint("Partial")
	default:
		return text.FgGreen.Sprint("Synced")
	}
}

func kindNames() []string {
	names := make([]string, 0, len(reconciler.Order))
	for _, k := range reconciler.Order {
		names = append(names, string(k))
	}
	return names
}

func kindList() string {
	return strings.Join(kindNames(), ", ")
}
