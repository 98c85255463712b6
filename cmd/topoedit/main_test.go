package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const splitScript = "../../internal/script/testdata/split.yaml"

// execute runs the root command with args and returns its stdout. Flag values
// are reset first since cobra keeps them between executions.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("TOPOEDIT_STORE_DRIVER", "sqlite")
	t.Setenv("TOPOEDIT_STORE_DSN", filepath.Join(t.TempDir(), "topoedit.db"))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "topoedit version 0.1.0\n", out)
}

func TestRun_WritesCheckableSnapshot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "split.json")

	out, err := execute(t, "run", splitScript, "--out", file)
	require.NoError(t, err)
	assert.Contains(t, out, "split_block")
	assert.Contains(t, out, "redo")

	out, err = execute(t, "check", file)
	require.NoError(t, err)
	assert.Contains(t, out, "is consistent (2 blocks")
}

func TestRun_Quiet(t *testing.T) {
	out, err := execute(t, "run", "-q", splitScript)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_MissingScript(t *testing.T) {
	_, err := execute(t, "run", "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", "--depth", "1", splitScript)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "Bl0001")
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info", splitScript)
	require.NoError(t, err)
	assert.Contains(t, out, "split and undo")
	assert.Contains(t, out, "Entities")
}

func TestSnapshotLifecycle(t *testing.T) {
	useSQLite(t)

	_, err := execute(t, "run", "-q", splitScript, "--save", "box")
	require.NoError(t, err)

	out, err := execute(t, "snapshot", "ls")
	require.NoError(t, err)
	assert.Equal(t, "box\n", out)

	out, err = execute(t, "check", "--key", "box")
	require.NoError(t, err)
	assert.Contains(t, out, "box is consistent")

	out, err = execute(t, "snapshot", "inspect", "--json", "box")
	require.NoError(t, err)
	assert.Contains(t, out, "Bl0001")

	_, err = execute(t, "snapshot", "rm", "box")
	require.NoError(t, err)

	out, err = execute(t, "snapshot", "ls")
	require.NoError(t, err)
	assert.Equal(t, "No snapshots found.\n", out)
}

func TestSnapshot_SealedAndVerified(t *testing.T) {
	useSQLite(t)
	t.Setenv("TOPOEDIT_STORE_ENCRYPTION_KEY", "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=")
	t.Setenv("TOPOEDIT_STORE_VERIFY", "true")

	_, err := execute(t, "run", "-q", splitScript, "--save", "box")
	require.NoError(t, err)

	out, err := execute(t, "check", "--key", "box")
	require.NoError(t, err)
	assert.Contains(t, out, "box is consistent")

	t.Setenv("TOPOEDIT_STORE_ENCRYPTION_KEY", "")
	_, err = execute(t, "check", "--key", "box")
	assert.Error(t, err)
}

func TestCheck_NeedsExactlyOneSource(t *testing.T) {
	_, err := execute(t, "check")
	assert.Error(t, err)
}

func TestRootRejectsBadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}
