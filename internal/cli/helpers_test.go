package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// harnessTestdata is the harness package's fixture directory.
var harnessTestdata = filepath.Join("..", "harness", "testdata")

// execute runs a command built by newCmd with args and returns stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(EnvDatabase, "")
	buf := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(harnessTestdata, name)
	require.FileExists(t, path)
	return path
}
