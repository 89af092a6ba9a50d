package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore opens a fresh database under t.TempDir().
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func createTestSimRun(id string, seq int64, status string) SimRun {
	return SimRun{
		ID:              id,
		Seq:             seq,
		StartedAt:       testEpoch.Add(time.Duration(seq) * time.Second),
		PackageHash:     "0123456789abcdef",
		Mode:            ModeProcs,
		Top:             "top",
		Backend:         "interpreter",
		Cycles:          3,
		LastOutputCycle: 2,
		Status:          status,
		Details:         map[string]string{},
	}
}

func createTestPassRun(id string, seq int64) PassRun {
	return PassRun{
		ID:          id,
		Seq:         seq,
		StartedAt:   testEpoch.Add(time.Duration(seq) * time.Second),
		PackageName: "sample",
		InputHash:   "aaaa",
		OutputHash:  "bbbb",
		OptLevel:    3,
		Changed:     true,
		Iterations:  2,
		Rewrites:    map[string]int{},
	}
}
