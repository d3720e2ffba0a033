package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/config"
	"projector/internal/executor"
	"projector/internal/priority"
	"projector/internal/reconciler"
)

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Equal(t, "projector version 1.2.3\n", out.String())
	assert.Equal(t, "1.2.3", GetVersion())
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"version", "serve", "sync", "priorities", "import"})
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCodeError, getExitCode(errors.New("boom")))
	assert.Equal(t, ExitCodeError, getExitCode(errSweepFailed))

	collection := config.ConfigurationErrorCollection{}
	collection.Add(config.NewConfigurationError("projector.yaml", "sync.schedule", "validation", "bad"))
	assert.Equal(t, ExitCodeConfig, getExitCode(fmt.Errorf("failed to initialize application: %w", collection)))
	assert.Equal(t, ExitCodeConfig, getExitCode(config.NewConfigurationError("projector.yaml", "", "parse", "bad")))
}

func TestSyncCommand_RejectsUnknownKind(t *testing.T) {
	cmd := newSyncCmd()
	assert.Error(t, cmd.ValidateArgs([]string{"widgets"}))
	assert.NoError(t, cmd.ValidateArgs([]string{"users", "repositories"}))
}

func TestRenderReport(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := reconciler.Report{
		RunID:      "run-42",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Results: []reconciler.KindResult{
			{Kind: reconciler.KindRepositories, Result: executor.Result{Fulfilled: 3}, Duration: time.Second},
			{Kind: reconciler.KindUsers, Result: executor.Result{Fulfilled: 5, Errors: 2}, Duration: time.Second},
			{Kind: reconciler.KindSpaces, Error: "context canceled"},
		},
	}

	var out bytes.Buffer
	renderReport(&out, report)
	s := out.String()
	assert.Contains(t, s, "Sweep run-42")
	assert.Contains(t, s, "repositories")
	assert.Contains(t, s, "Partial")
	assert.Contains(t, s, "context canceled")
	assert.Contains(t, s, "Total")
	assert.Contains(t, s, "8")
}

func TestRenderPriorities(t *testing.T) {
	var out bytes.Buffer
	renderPriorities(&out, []priority.Record{{Pattern: "a-*", Priority: 404}, {Pattern: "a-logs-*", Priority: 1414}})
	s := out.String()
	assert.Contains(t, s, "a-logs-*")
	assert.Contains(t, s, "1414")
	assert.Contains(t, s, "1415")
	assert.Contains(t, s, "405")
}

func TestReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
institutions:
  - id: i1
    name: University One
repositories:
  - pattern: x-*
    type: ezpaarse
    institutionIds: [i1]
users:
  - username: alice
    email: alice@example.org
    fullName: Alice
`), 0o600))

	snap, err := readSnapshot(path)
	require.NoError(t, err)
	require.Len(t, snap.Repositories, 1)
	assert.Equal(t, []string{"i1"}, snap.Repositories[0].InstitutionIDs)
	assert.Equal(t, "alice", snap.Users[0].Username)

	_, err = readSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
