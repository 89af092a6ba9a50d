package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/testutil"
)

const (
	pipelineInputs   = "bits[8]:1\nbits[8]:2\nbits[8]:3\n"
	pipelineExpected = "bits[8]:3\nbits[8]:5\nbits[8]:7\n"
)

func TestEvalCommand_PerChannelFiles(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "in.txt", pipelineInputs)
	out := testutil.WriteFile(t, dir, "out.txt", pipelineExpected)

	stdout, err := execute(t, NewEvalCommand, "text",
		fixture(t, "pipeline.ir"),
		"--inputs_for_channels", "in="+in,
		"--expected_outputs_for_channels", "out="+out,
	)
	require.NoError(t, err)
	assert.Equal(t, "name: sim\nmode: procs\nstatus: OK\npass: true\ncycles: 3\nlast_output_cycle: 3\n", stdout)
}

func TestEvalCommand_AllChannelsFile(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "in.txt", "in : {\n  bits[8]:1\n  bits[8]:2\n  bits[8]:3\n}\n")
	out := testutil.WriteFile(t, dir, "out.txt", "out : {\n  bits[8]:3\n  bits[8]:5\n  bits[8]:7\n}\n")

	stdout, err := execute(t, NewEvalCommand, "json",
		fixture(t, "pipeline.ir"),
		"--backend", "ir_interpreter",
		"--inputs_for_all_channels", in,
		"--expected_outputs_for_all_channels", out,
	)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "OK", resp.Data["status"])
	assert.Equal(t, true, resp.Data["pass"])
	assert.Equal(t, float64(3), resp.Data["cycles"])
}

func TestEvalCommand_Mismatch(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "in.txt", pipelineInputs)
	out := testutil.WriteFile(t, dir, "out.txt", "bits[8]:3\nbits[8]:5\nbits[8]:8\n")

	stdout, err := execute(t, NewEvalCommand, "text",
		fixture(t, "pipeline.ir"),
		"--inputs_for_channels", "in="+in,
		"--expected_outputs_for_channels", "out="+out,
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "status: OUTPUT_MISMATCH")
	assert.Contains(t, stdout, "Error [OUTPUT_MISMATCH]")
}

func TestEvalCommand_Manifest(t *testing.T) {
	stdout, err := execute(t, NewEvalCommand, "text", "--manifest", fixture(t, "passthru.cue"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "name: passthru\nmode: block\nstatus: OK\n")
}

func TestEvalCommand_ArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "in.txt", pipelineInputs)
	ir := fixture(t, "pipeline.ir")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no ir file", nil, "One (and only one) IR file must be given."},
		{"bad backend", []string{ir, "--backend", "verilator"}, "Unrecognized backend choice."},
		{"block without signature", []string{ir, "--backend", "block_jit"}, "Block evaluation requires --block_signature."},
		{"bad ticks", []string{ir, "--ticks", "ten"}, "Couldn't parse run description in --ticks: ten"},
		{"two input sources", []string{ir, "--inputs_for_channels", "in=" + in, "--inputs_for_all_channels", in}, "Only one of --inputs_for_channels"},
		{"bad channel arg", []string{ir, "--inputs_for_channels", in}, "Format of argument should be channel=file"},
		{"memories on procs", []string{ir, "--model_memories", "ram=4/bits[8]:0"}, "Only block interpreter supports memory models"},
		{"manifest with ir", []string{ir, "--manifest", fixture(t, "pipeline.yaml")}, "--manifest names its own IR file"},
		{"probability", []string{ir, "--prob_input_valid_assert", "1.5"}, "--prob_input_valid_assert must be in [0, 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewEvalCommand, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTicks(t *testing.T) {
	ticks, err := parseTicks([]string{"10", " -1"})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, -1}, ticks)

	_, err = parseTicks(nil)
	assert.EqualError(t, err, "--ticks must be specified.")
}
