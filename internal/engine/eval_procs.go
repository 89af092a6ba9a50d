package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cchan/xlsynth/internal/ir"
)

// ProcResult is the outcome of a successful EvaluateProcs call.
type ProcResult struct {
	// Ticks is the number of ticks run in the last run.
	Ticks int64

	// Outputs holds every value left on send-capable channels. It is only
	// populated when no expected outputs were given.
	Outputs ChannelValues

	// Unconsumed holds streaming inputs left over when a convergence run
	// finished.
	Unconsumed ChannelValues

	// TraceMessages holds every fired trace, formatted "Proc NAME trace: MSG".
	TraceMessages []string

	// AssertionMessages holds every fired assertion, formatted
	// "Proc NAME: MSG".
	AssertionMessages []string

	Elapsed time.Duration
}

// EvaluateProcs runs the package's proc network against channel values.
//
// Inputs are written to their channel queues once, before the first run.
// Each run resets proc state and ticks either a fixed number of times or,
// for a negative tick count, until every expected channel holds at least as
// many values as expected. Expected values are then compared in order; every
// mismatching channel is reported in one OUTPUT_MISMATCH error.
func EvaluateProcs(ctx context.Context, pkg *ir.Package, inputs, expected ChannelValues, opts ...Option) (*ProcResult, error) {
	o := buildOptions(opts)
	if o.Top != "" {
		top, err := pkg.Top()
		if err != nil || !pkg.HasTop() || top.Name() != o.Top {
			return nil, newMalformedInputError("simulating subsets of the proc network is not supported (top %s)", o.Top)
		}
	}

	rt, err := NewProcRuntime(pkg, o.Backend)
	if err != nil {
		return nil, err
	}
	queues := rt.Queues()

	for _, name := range inputs.Names() {
		q, err := queues.Get(name)
		if err != nil {
			return nil, err
		}
		for _, v := range inputs[name] {
			if err := q.Write(v); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range expected.Names() {
		if _, err := queues.Get(name); err != nil {
			return nil, err
		}
	}

	res := &ProcResult{}
	start := time.Now()
	for _, ticks := range o.Ticks {
		rt.ResetState()
		if err := runProcTicks(ctx, rt, ticks, inputs, expected, o, res); err != nil {
			return nil, err
		}
		res.Ticks = rt.Ticks()
	}
	res.Elapsed = time.Since(start)
	slog.Info("proc evaluation finished", "ticks", res.Ticks, "elapsed", res.Elapsed)

	if err := verifyProcOutputs(queues, expected, o.ShowTrace); err != nil {
		return nil, err
	}
	if len(expected) == 0 {
		res.Outputs = ChannelValues{}
		for _, ch := range pkg.Channels() {
			if ch.Ops == ir.ReceiveOnly {
				continue
			}
			q, _ := queues.Get(ch.Name)
			var vs []ir.Value
			for v, ok := q.Read(); ok; v, ok = q.Read() {
				vs = append(vs, v)
				if ch.Kind == ir.SingleValue {
					break
				}
			}
			res.Outputs[ch.Name] = vs
		}
	}
	return res, nil
}

func runProcTicks(ctx context.Context, rt *ProcRuntime, ticks int64, inputs, expected ChannelValues, o Options, res *ProcResult) error {
	queues := rt.Queues()
	for i := int64(0); ticks < 0 || i < ticks; i++ {
		if ctx.Err() != nil {
			return newTimeoutError(ctx, i)
		}
		if o.ShowTrace && o.TracePerTicks > 0 && (i < o.TracePerTicks || i%o.TracePerTicks == 0) {
			slog.Info("tick", "tick", i, "queues", queueSizes(queues, expected, inputs))
		}

		tick, err := rt.Tick()
		if err != nil {
			slog.Info("tick failed", "tick", i, "queues", queueSizes(queues, expected, inputs))
			return err
		}

		var asserts []string
		for _, name := range sortedProcNames(rt) {
			events := rt.Events(name)
			for _, msg := range events.TraceMessages {
				line := fmt.Sprintf("Proc %s trace: %s", name, msg)
				res.TraceMessages = append(res.TraceMessages, line)
				if o.ShowTrace {
					slog.Info(line)
				}
			}
			for _, msg := range events.AssertionMessages {
				line := fmt.Sprintf("Proc %s: %s", name, msg)
				res.AssertionMessages = append(res.AssertionMessages, line)
				slog.Warn("assertion fired", "proc", name, "message", msg)
				if o.FailOnAssert {
					asserts = append(asserts, line)
				}
			}
		}
		if len(asserts) > 0 {
			return NewAssertionError(i, asserts)
		}

		if ticks >= 0 {
			continue
		}
		if outputsProduced(queues, expected) {
			res.Unconsumed = drainUnconsumed(queues, inputs)
			if len(res.Unconsumed) > 0 {
				slog.Warn("not all inputs were consumed by the time all expected outputs were produced",
					"remaining", res.Unconsumed.String())
			}
			return nil
		}
		if !tick.Progressed() {
			return NewDeadlockError(i, tick.Blocked)
		}
	}
	return nil
}

func sortedProcNames(rt *ProcRuntime) []string {
	names := rt.ProcNames()
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

func outputsProduced(queues *QueueManager, expected ChannelValues) bool {
	for name, values := range expected {
		q, _ := queues.Get(name)
		if q.Len() < len(values) {
			return false
		}
	}
	return true
}

// drainUnconsumed empties the streaming input queues and returns what was
// left in them.
func drainUnconsumed(queues *QueueManager, inputs ChannelValues) ChannelValues {
	out := ChannelValues{}
	for _, name := range inputs.Names() {
		q, _ := queues.Get(name)
		if q.Channel().Kind == ir.SingleValue {
			continue
		}
		for v, ok := q.Read(); ok; v, ok = q.Read() {
			out[name] = append(out[name], v)
		}
	}
	return out
}

func queueSizes(queues *QueueManager, groups ...ChannelValues) string {
	var parts []string
	for _, g := range groups {
		for _, name := range g.Names() {
			q, _ := queues.Get(name)
			parts = append(parts, fmt.Sprintf("%s[%d]", name, q.Len()))
		}
	}
	return strings.Join(parts, " ")
}

func verifyProcOutputs(queues *QueueManager, expected ChannelValues, showTrace bool) error {
	checked := false
	var errs []string
	for _, name := range expected.Names() {
		values := expected[name]
		q, _ := queues.Get(name)
		for processed, want := range values {
			got, ok := q.Read()
			if !ok {
				errs = append(errs, fmt.Sprintf("Channel %s didn't consume %d expected values (processed %d)",
					name, len(values)-processed, processed))
				break
			}
			if !want.Equal(got) {
				errs = append(errs, fmt.Sprintf("Mismatched (channel=%s) after %d outputs (%s != %s)",
					name, processed, want, got))
				break
			}
			if showTrace {
				slog.Info("matched", "channel", name, "outputs", processed)
			}
			checked = true
		}
	}
	if len(errs) > 0 {
		return &SimError{
			Code:    ErrCodeOutputMismatch,
			Message: "Outputs did not match expectations:\n\n" + strings.Join(errs, "\n"),
			Details: map[string]string{"channels": fmt.Sprintf("%d", len(errs))},
		}
	}
	if !checked && len(expected) > 0 {
		return &SimError{Code: ErrCodeNoOutput, Message: "No output verified (empty expected values?)"}
	}
	return nil
}
