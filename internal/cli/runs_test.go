package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/testutil"
)

func TestRunsCommand_RequiresDatabase(t *testing.T) {
	_, err := execute(t, NewRunsCommand, "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db is required")
}

func TestRunsCommand_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, NewRunsCommand, "text", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestRunsCommand_ListsRecordedRuns(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	irPath := testutil.WriteFile(t, dir, "p.ir", constantSelectIR)
	in := testutil.WriteFile(t, dir, "in.txt", pipelineInputs)
	good := testutil.WriteFile(t, dir, "good.txt", pipelineExpected)
	bad := testutil.WriteFile(t, dir, "bad.txt", "bits[8]:9\n")

	_, err := execute(t, NewOptCommand, "text", irPath, "--db", db)
	require.NoError(t, err)
	_, err = execute(t, NewEvalCommand, "text", fixture(t, "pipeline.ir"), "--db", db,
		"--inputs_for_channels", "in="+in, "--expected_outputs_for_channels", "out="+good)
	require.NoError(t, err)
	_, err = execute(t, NewEvalCommand, "text", fixture(t, "pipeline.ir"), "--db", db,
		"--inputs_for_channels", "in="+in, "--expected_outputs_for_channels", "out="+bad)
	require.Error(t, err)

	out, err := execute(t, NewRunsCommand, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "constant_selector=1")
	assert.Contains(t, out, "OUTPUT_MISMATCH")
	assert.Contains(t, out, "inc")

	out, err = execute(t, NewRunsCommand, "json", "--db", db, "--failed")
	require.NoError(t, err)
	var resp struct {
		Data RunsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data.PassRuns)
	require.Len(t, resp.Data.SimRuns, 1)
	failed := resp.Data.SimRuns[0]
	assert.Equal(t, int64(3), failed.Seq)
	assert.Equal(t, "OUTPUT_MISMATCH", failed.Status)

	out, err = execute(t, NewRunsCommand, "text", "--db", db, "--id", failed.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "id: "+failed.ID)
	assert.Contains(t, out, "status: OUTPUT_MISMATCH")
}

func TestRunsCommand_UnknownID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, NewRunsCommand, "text", "--db", db, "--id", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "run nope not found")
}

func TestFormatRewrites(t *testing.T) {
	assert.Equal(t, "-", formatRewrites(nil))
	assert.Equal(t, "cse=2,dce=1", formatRewrites(map[string]int{"dce": 1, "cse": 2}))
}
