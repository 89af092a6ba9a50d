package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cchan/xlsynth/internal/engine"
	"github.com/cchan/xlsynth/internal/interp"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/store"
)

// Backend names accepted by testbenches and the command line.
const (
	BackendSerialJIT        = "serial_jit"
	BackendIRInterpreter    = "ir_interpreter"
	BackendBlockInterpreter = "block_interpreter"
	BackendBlockJIT         = "block_jit"
)

// ParseBackend maps a backend name to the simulation mode and evaluator.
func ParseBackend(name string) (mode string, backend interp.Backend, err error) {
	switch name {
	case BackendSerialJIT:
		return store.ModeProcs, interp.BackendJIT, nil
	case BackendIRInterpreter:
		return store.ModeProcs, interp.BackendInterpreter, nil
	case BackendBlockInterpreter:
		return store.ModeBlock, interp.BackendInterpreter, nil
	case BackendBlockJIT:
		return store.ModeBlock, interp.BackendJIT, nil
	}
	return "", "", fmt.Errorf("unrecognized backend choice %q", name)
}

// Expectation is what a testbench expects of its run.
type Expectation struct {
	// Status is the expected result status. Empty means StatusOK.
	Status string `yaml:"status,omitempty" json:"status,omitempty"`

	// TraceContains lists substrings that must each appear in some trace
	// message.
	TraceContains []string `yaml:"trace_contains,omitempty" json:"trace_contains,omitempty"`
}

// Testbench is a fully resolved simulation request.
type Testbench struct {
	Name        string
	Package     *ir.Package
	BackendName string

	Inputs   engine.ChannelValues
	Expected engine.ChannelValues

	// Signature is required for block backends.
	Signature *engine.BlockSignature

	// Memories are only supported by block backends.
	Memories map[string]engine.MemoryInit

	Options []engine.Option
	Expect  Expectation
}

// Run simulates the testbench. Simulation errors are recorded in the
// result, not returned; the returned error means the testbench itself is
// unusable.
func (tb *Testbench) Run(ctx context.Context) (*Result, error) {
	mode, backend, err := ParseBackend(tb.BackendName)
	if err != nil {
		return nil, err
	}
	if tb.Package == nil {
		return nil, fmt.Errorf("testbench %s has no package", tb.Name)
	}
	if mode != store.ModeBlock && len(tb.Memories) > 0 {
		return nil, fmt.Errorf("Only block interpreter supports memory models")
	}
	if mode == store.ModeBlock && tb.Signature == nil {
		return nil, fmt.Errorf("Block evaluation requires a block signature")
	}

	opts := append([]engine.Option{engine.WithBackend(backend)}, tb.Options...)
	res := NewResult(tb.Name, mode)

	slog.Info("running testbench", "name", tb.Name, "mode", mode, "backend", tb.BackendName)
	switch mode {
	case store.ModeProcs:
		pr, err := engine.EvaluateProcs(ctx, tb.Package, tb.Inputs, tb.Expected, opts...)
		if pr != nil {
			res.Cycles = pr.Ticks
			res.LastOutputCycle = pr.Ticks
			res.Outputs = pr.Outputs
			res.Unconsumed = pr.Unconsumed
			res.TraceMessages = pr.TraceMessages
			res.AssertionMessages = pr.AssertionMessages
			slog.Info("procs finished", "ticks", pr.Ticks, "elapsed", pr.Elapsed)
		}
		res.setError(err)
	case store.ModeBlock:
		br, err := engine.RunBlock(ctx, tb.Package, tb.Signature, tb.Inputs, tb.Expected, tb.Memories, opts...)
		if br != nil {
			res.Cycles = br.Cycles
			res.LastOutputCycle = br.LastOutputCycle
			res.Unconsumed = br.Unconsumed
			res.TraceMessages = br.TraceMessages
			res.AssertionMessages = br.AssertionMessages
			res.Registers = br.Registers.String()
			slog.Info("block finished", "block", br.Block, "cycles", br.Cycles, "elapsed", br.Elapsed)
		}
		res.setError(err)
	}

	res.check(tb.Expect)
	return res, nil
}

func (r *Result) setError(err error) {
	if err == nil {
		return
	}
	r.Err = err
	r.Message = err.Error()
	var se *engine.SimError
	if errors.As(err, &se) {
		r.Status = string(se.Code)
		r.Details = se.Details
		if se.Cycle > 0 {
			r.Cycles = se.Cycle
		}
		return
	}
	r.Status = StatusInternal
}

func (r *Result) check(want Expectation) {
	r.Pass = true
	status := want.Status
	if status == "" {
		status = StatusOK
	}
	if r.Status != status {
		msg := fmt.Sprintf("status %s, want %s", r.Status, status)
		if r.Message != "" {
			msg += ": " + r.Message
		}
		r.AddError(msg)
	}
	for _, sub := range want.TraceContains {
		if !containsSubstring(r.TraceMessages, sub) {
			r.AddError(fmt.Sprintf("no trace message contains %q", sub))
		}
	}
}

func containsSubstring(messages []string, sub string) bool {
	for _, m := range messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}
