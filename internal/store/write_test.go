package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, s.WritePassRun(ctx, createTestPassRun("pass-1", 4)))
	require.NoError(t, s.WriteSimRun(ctx, createTestSimRun("sim-1", 2, StatusOK)))

	seq, err = s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)
}

func TestWritePassRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestPassRun("pass-1", 1)
	run.Rewrites = map[string]int{"select_to_and_or": 2, "constant_selector": 1}
	require.NoError(t, s.WritePassRun(ctx, run))

	runs, err := s.ReadPassRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run, runs[0])
}

func TestWritePassRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestPassRun("pass-1", 1)
	run.Rewrites = map[string]int{"constant_selector": 1}
	require.NoError(t, s.WritePassRun(ctx, run))

	dup := run
	dup.Rewrites = map[string]int{"constant_selector": 9, "other": 1}
	require.NoError(t, s.WritePassRun(ctx, dup))

	runs, err := s.ReadPassRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, map[string]int{"constant_selector": 1}, runs[0].Rewrites)
}

func TestWriteSimRun_Details(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestSimRun("sim-1", 1, "OUTPUT_MISMATCH")
	run.Mode = ModeBlock
	run.Message = "Outputs did not match expectations after cycle 3:"
	run.Details = map[string]string{"out": "expected <1> got <2>"}
	require.NoError(t, s.WriteSimRun(ctx, run))

	var raw string
	require.NoError(t, s.DB().QueryRow(`SELECT details FROM sim_runs WHERE id = ?`, "sim-1").Scan(&raw))
	assert.Equal(t, `{"out":"expected <1> got <2>"}`, raw)

	got, ok, err := s.ReadSimRun(ctx, "sim-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run, got)
	assert.False(t, got.Succeeded())
}

func TestWriteSimRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSimRun(ctx, createTestSimRun("sim-1", 1, StatusOK)))
	require.NoError(t, s.WriteSimRun(ctx, createTestSimRun("sim-1", 7, "DEADLOCK")))

	got, ok, err := s.ReadSimRun(ctx, "sim-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Seq)
	assert.True(t, got.Succeeded())
}
