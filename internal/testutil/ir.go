package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/cchan/xlsynth/internal/ir"
)

// MustParse parses IR text or fails the test.
func MustParse(t testing.TB, src string) *ir.Package {
	t.Helper()
	pkg, err := ir.Parse(src)
	if err != nil {
		t.Fatalf("parse IR: %v", err)
	}
	return pkg
}

// UValues returns width-bit values for xs.
func UValues(width int, xs ...uint64) []ir.Value {
	out := make([]ir.Value, len(xs))
	for i, x := range xs {
		out[i] = ir.UValue(x, width)
	}
	return out
}

// WriteFile writes content under dir and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Dump renders v for failure messages.
func Dump(v any) string {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	return cfg.Sdump(v)
}
