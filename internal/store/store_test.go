package store

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": strconv.Itoa(schemaVersion()),
	}
	for name, value := range want {
		got, err := s.pragmaValue(name)
		require.NoError(t, err)
		assert.Equal(t, value, got, "pragma %s", name)
	}
}

func TestOpen_MigratesOldFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`DROP INDEX idx_sim_runs_status`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`PRAGMA user_version = 0`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	version, err := s.pragmaValue("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'idx_sim_runs_status'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteSimRun(ctx, createTestSimRun("sim-1", 1, StatusOK)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ReadSimRuns(ctx, false)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_SchemaObjects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows, err := s.Query(ctx, `SELECT name FROM sqlite_master WHERE type IN ('table', 'index') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{
		"idx_pass_runs_seq",
		"idx_sim_runs_seq",
		"idx_sim_runs_status",
		"pass_rewrites",
		"pass_runs",
		"sim_runs",
	}, names)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}
