package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/testutil"
)

const constantSelectIR = `package p

fn f(a: bits[4], b: bits[4]) -> bits[4] {
  s: bits[2] = literal(value=1)
  ret r: bits[4] = sel(s, cases=[a, b], default=a)
}
`

func TestOptCommand_Text(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "p.ir", constantSelectIR)

	out, err := execute(t, NewOptCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "package p")
	assert.Contains(t, out, "fn f(a: bits[4], b: bits[4]) -> bits[4]")
	assert.NotContains(t, out, "sel(")
}

func TestOptCommand_JSON(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "p.ir", constantSelectIR)

	out, err := execute(t, NewOptCommand, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   OptResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "p", resp.Data.Package)
	assert.True(t, resp.Data.Changed)
	assert.Equal(t, 1, resp.Data.Rewrites["constant_selector"])
	assert.NotEqual(t, resp.Data.InputHash, resp.Data.OutputHash)
	assert.NotEmpty(t, resp.Data.IR)
}

func TestOptCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "p.ir", constantSelectIR)
	dest := filepath.Join(dir, "p.opt.ir")

	out, err := execute(t, NewOptCommand, "text", path, "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+dest)
	assert.Contains(t, out, "constant_selector=1")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package p")
}

func TestOptCommand_BadOptLevel(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "p.ir", constantSelectIR)

	_, err := execute(t, NewOptCommand, "text", path, "--opt_level", "9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOptCommand_ParseError(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "bad.ir", "package p\n\nfn f( {\n")

	out, err := execute(t, NewOptCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_PARSE]")
}

func TestOptCommand_IterationLimit(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "p.ir", constantSelectIR)

	out, err := execute(t, NewOptCommand, "text", path, "--max_iterations", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_PIPELINE]")
}

func TestOptCommand_MissingArg(t *testing.T) {
	_, err := execute(t, NewOptCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
