package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"projector/internal/app"
	"projector/internal/store"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Load a YAML snapshot of records into the configured store",
		Long: `Reads a snapshot with the top-level keys institutions, repositories,
aliases, roles, users, memberships and spaces, and upserts every record into
the store configured by store.driver and store.path. Parents are written
before the records that reference them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			application, err := app.NewApplication(app.NewConfig(debug, configPath), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			n, err := application.Import(cmd.Context(), snap)
			if err != nil {
				return fmt.Errorf("imported %d records before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s\n", n, application.Settings().Store.Path)
			return nil
		},
	}
}

func readSnapshot(path string) (store.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap store.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
