package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/passes"
	"github.com/cchan/xlsynth/internal/store"
)

// Recorder appends testbench results to the run history.
type Recorder struct {
	Store *store.Store
	IDs   store.IDGenerator

	// Now stamps runs; time.Now when nil.
	Now func() time.Time
}

// NewRecorder returns a recorder issuing UUIDv7 run IDs.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{Store: s, IDs: store.UUIDv7Generator{}, Now: time.Now}
}

// RecordSim stores one simulation result and returns the stored run.
func (r *Recorder) RecordSim(ctx context.Context, tb *Testbench, res *Result) (store.SimRun, error) {
	seq, err := r.Store.NextSeq(ctx)
	if err != nil {
		return store.SimRun{}, fmt.Errorf("record sim run: %w", err)
	}
	top := ""
	if t, err := tb.Package.Top(); err == nil && tb.Package.HasTop() {
		top = t.Name()
	}
	run := store.SimRun{
		ID:              r.IDs.NewID(),
		Seq:             seq,
		StartedAt:       r.now(),
		PackageHash:     ir.PackageFingerprint(tb.Package),
		Mode:            res.Mode,
		Top:             top,
		Backend:         tb.BackendName,
		Cycles:          res.Cycles,
		LastOutputCycle: res.LastOutputCycle,
		Status:          res.Status,
		Message:         res.Message,
		Details:         res.Details,
	}
	if err := r.Store.WriteSimRun(ctx, run); err != nil {
		return store.SimRun{}, err
	}
	return run, nil
}

// PassRecord describes one pipeline run over a package.
type PassRecord struct {
	Package    string
	InputHash  string
	OutputHash string
	Options    passes.Options
	Changed    bool
	Results    *passes.Results
}

// RecordPass stores one optimization pipeline run.
func (r *Recorder) RecordPass(ctx context.Context, rec PassRecord) (store.PassRun, error) {
	seq, err := r.Store.NextSeq(ctx)
	if err != nil {
		return store.PassRun{}, fmt.Errorf("record pass run: %w", err)
	}
	run := store.PassRun{
		ID:          r.IDs.NewID(),
		Seq:         seq,
		StartedAt:   r.now(),
		PackageName: rec.Package,
		InputHash:   rec.InputHash,
		OutputHash:  rec.OutputHash,
		OptLevel:    rec.Options.OptLevel,
		Changed:     rec.Changed,
		Rewrites:    map[string]int{},
	}
	if rec.Results != nil {
		run.Iterations = rec.Results.Iterations
		for rule, n := range rec.Results.Rewrites {
			run.Rewrites[rule] = n
		}
	}
	if err := r.Store.WritePassRun(ctx, run); err != nil {
		return store.PassRun{}, err
	}
	return run, nil
}

func (r *Recorder) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
