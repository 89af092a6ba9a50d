package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/engine"
	"github.com/cchan/xlsynth/internal/testutil"
)

func TestParseValues(t *testing.T) {
	values, err := ParseValues("bits[8]:1\n\n  bits[8]:2\nbits[8]:3\n", 0)
	require.NoError(t, err)
	assert.Equal(t, testutil.UValues(8, 1, 2, 3), values)

	values, err = ParseValues("bits[8]:1\nbits[8]:2\nbits[8]:3\n", 2)
	require.NoError(t, err)
	assert.Equal(t, testutil.UValues(8, 1, 2), values)

	_, err = ParseValues("bits[8]:1\nbogus\n", 0)
	assert.ErrorContains(t, err, "line 2")
}

func TestParseChannelFilenames(t *testing.T) {
	files, err := ParseChannelFilenames([]string{"in=a.txt", "cfg=b.txt"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"in": "a.txt", "cfg": "b.txt"}, files)

	for _, bad := range []string{"in", "in=a=b"} {
		_, err := ParseChannelFilenames([]string{bad})
		assert.EqualError(t, err, "Format of argument should be channel=file", bad)
	}
}

func TestLoadChannelFiles(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.values", "bits[4]:1\nbits[4]:2\n")
	b := testutil.WriteFile(t, dir, "b.values", "bits[1]:1\n")

	got, err := LoadChannelFiles([]string{"in=" + a, "en=" + b}, -1)
	require.NoError(t, err)
	assert.Equal(t, engine.ChannelValues{
		"in": testutil.UValues(4, 1, 2),
		"en": testutil.UValues(1, 1),
	}, got)

	_, err = LoadChannelFiles([]string{"in=" + dir + "/missing"}, -1)
	assert.ErrorContains(t, err, "channel in")
}

func TestParseChannelValues_RoundTrip(t *testing.T) {
	want := engine.ChannelValues{
		"in":  testutil.UValues(8, 1, 2),
		"cfg": testutil.UValues(4, 9),
	}
	got, err := ParseChannelValues(want.String(), 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseChannelValues_Limit(t *testing.T) {
	got, err := ParseChannelValues("in: {\n bits[2]:1\n bits[2]:2\n bits[2]:3\n}\nempty : {\n}\n", 2)
	require.NoError(t, err)
	assert.Equal(t, testutil.UValues(2, 1, 2), got["in"])
	assert.Contains(t, got, "empty")
	assert.Empty(t, got["empty"])
}

func TestParseChannelValues_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"missing header", "bits[8]:1\n", "line 1: expected 'CHANNEL : {'"},
		{"bad channel name", "9lives : {\n}\n", "line 1: expected 'CHANNEL : {', got \"9lives : {\""},
		{"duplicate", "a : {\n}\na : {\n}\n", "line 3: channel a listed twice"},
		{"unclosed", "a : {\nbits[8]:1\n", "channel a: missing closing '}'"},
		{"bad value", "a : {\n  nope\n}\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChannelValues(tt.text, 0)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseChannelValuesFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "all.values", "out : {\n  bits[8]:7\n}\n")
	got, err := ParseChannelValuesFile(path, 0)
	require.NoError(t, err)
	assert.Equal(t, engine.ChannelValues{"out": testutil.UValues(8, 7)}, got)
}

func TestParseMemoryModels(t *testing.T) {
	got, err := ParseMemoryModels([]string{"mem=16/bits[8]:3"})
	require.NoError(t, err)
	require.Contains(t, got, "mem")
	assert.Equal(t, int64(16), got["mem"].Size)
	assert.Equal(t, "bits[8]:3", got["mem"].Initial.String())

	tests := []struct {
		arg  string
		want string
	}{
		{"mem", "Format of argument should be memory=size/initial_value"},
		{"mem=16", "Format of memory model should be size/initial_value"},
		{"mem=x/bits[8]:0", "Size should be an integer"},
		{"mem=4/bogus", "memory mem"},
	}
	for _, tt := range tests {
		_, err := ParseMemoryModels([]string{tt.arg})
		assert.ErrorContains(t, err, tt.want, tt.arg)
	}
}
