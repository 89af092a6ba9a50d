package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/testutil"
)

func TestLoadManifest_YAML(t *testing.T) {
	m, err := LoadManifest("testdata/pipeline.yaml")
	require.NoError(t, err)

	assert.Equal(t, "pipeline", m.Name)
	assert.Equal(t, BackendSerialJIT, m.Backend)
	assert.Equal(t, []string{"1", "2", "3"}, m.Inputs["in"])

	tb, err := m.Testbench()
	require.NoError(t, err)
	assert.Equal(t, testutil.UValues(8, 1, 2, 3), tb.Inputs["in"])
	assert.Equal(t, testutil.UValues(8, 3, 5, 7), tb.Expected["out"])
	assert.Nil(t, tb.Signature)
}

func TestLoadManifest_CUE(t *testing.T) {
	m, err := LoadManifest("testdata/passthru.cue")
	require.NoError(t, err)

	assert.Equal(t, BackendBlockJIT, m.Backend)
	require.NotNil(t, m.RandomSeed)
	assert.Equal(t, int64(7), *m.RandomSeed)

	tb, err := m.Testbench()
	require.NoError(t, err)
	require.NotNil(t, tb.Signature)
	// Bare numbers take the width of the channel's data port.
	assert.Equal(t, testutil.UValues(8, 2, 3, 4), tb.Expected["out"])
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown yaml field", "m.yaml", "name: x\nir: a.ir\nbackend: serial_jit\ntickz: [1]\n", "field tickz not found"},
		{"unknown cue field", "m.cue", "name: \"x\"\nir: \"a.ir\"\nbackend: \"serial_jit\"\ntickz: [1]\n", "field tickz not found"},
		{"missing name", "m.yaml", "ir: a.ir\nbackend: serial_jit\n", "name is required"},
		{"missing ir", "m.yaml", "name: x\nbackend: serial_jit\n", "ir is required"},
		{"bad backend", "m.yaml", "name: x\nir: a.ir\nbackend: verilator\n", `unrecognized backend choice "verilator"`},
		{"block needs signature", "m.yaml", "name: x\nir: a.ir\nbackend: block_jit\n", "block evaluation requires block_signature"},
		{"memories need block", "m.yaml", "name: x\nir: a.ir\nbackend: serial_jit\nmemories: [\"m=1/bits[1]:0\"]\n", "Only block interpreter supports memory models"},
		{"probability range", "m.yaml", "name: x\nir: a.ir\nbackend: serial_jit\nprob_input_valid_assert: 1.5\n", "prob_input_valid_assert must be in [0, 1]"},
		{"incomplete cue", "m.cue", "name: string\nir: \"a.ir\"\nbackend: \"serial_jit\"\n", "manifest must be concrete"},
		{"extension", "m.json", "{}", `unsupported extension ".json"`},
		{"empty", "m.yaml", "", "empty manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, dir, tt.file, tt.content)
			_, err := LoadManifest(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestManifest_BadValues(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "pipeline.ir", mustRead(t, "testdata/pipeline.ir"))
	path := testutil.WriteFile(t, dir, "m.yaml", "name: x\nir: pipeline.ir\nbackend: serial_jit\ninputs:\n  in: [\"bits[4]:1\"]\n")

	m, err := LoadManifest(path)
	require.NoError(t, err)
	_, err = m.Testbench()
	assert.ErrorContains(t, err, "inputs: in[0]")
}
