package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cchan/xlsynth/internal/ir"
)

// MemoryInit describes a memory to emulate: its size in cells and the value
// every cell starts with.
type MemoryInit struct {
	Size    int64
	Initial ir.Value
}

// BlockResult is the outcome of a successful RunBlock call.
type BlockResult struct {
	// Block is the name of the simulated block.
	Block string

	// Cycles is the number of cycles run, including the reset cycle.
	Cycles int64

	// LastOutputCycle is the last cycle in which an output was accepted.
	LastOutputCycle int64

	// MatchedOutputs counts outputs that matched their expected value.
	MatchedOutputs int64

	// Unconsumed holds ready/valid inputs the block never accepted.
	Unconsumed ChannelValues

	// TraceMessages holds every fired trace, formatted "Block NAME trace: MSG".
	TraceMessages []string

	// AssertionMessages holds every fired assertion.
	AssertionMessages []string

	// Registers is the register state after the last cycle.
	Registers RegisterState

	Elapsed time.Duration
}

// SelectBlock picks the block to simulate: the named top, the package top
// when it is a block, the only block, or the block implementing the top
// proc.
func SelectBlock(pkg *ir.Package, top string) (*ir.FunctionBase, error) {
	if top != "" {
		f, err := pkg.GetFunctionBase(top)
		if err != nil {
			return nil, newMalformedInputError("%v", err)
		}
		if !f.IsBlock() {
			return nil, newMalformedInputError("%s is a %s, not a block", top, f.Kind())
		}
		return f, nil
	}
	blocks := pkg.Blocks()
	if pkg.HasTop() {
		t, err := pkg.Top()
		if err != nil {
			return nil, err
		}
		switch {
		case t.IsBlock():
			return t, nil
		case len(blocks) == 1:
			return blocks[0], nil
		}
		for _, b := range blocks {
			if b.Name() == t.Name() {
				return b, nil
			}
		}
		return nil, newMalformedInputError("Unable to determine top. Pass --top to select one manually.")
	}
	if len(blocks) == 1 {
		return blocks[0], nil
	}
	return nil, newMalformedInputError("Input IR should contain exactly one block or a top")
}

// RunBlock simulates a block against channel values mapped through sig.
//
// Cycle 0 is a reset cycle. From then on, ready/valid inputs offer the front
// of their queue: valid rises with probability ProbInputValidAssert while
// data is available and stays up until the block accepts the value. Output
// ready is always high. Each accepted output is compared against the next
// expected value immediately. The run ends when every ready/valid output has
// produced all its expected values, and fails when the block idles for more
// than MaxCyclesNoOutput cycles.
func RunBlock(ctx context.Context, pkg *ir.Package, sig *BlockSignature, inputs, expected ChannelValues, memories map[string]MemoryInit, opts ...Option) (*BlockResult, error) {
	o := buildOptions(opts)
	if len(o.Ticks) > 1 {
		return nil, newMalformedInputError("block simulation supports a single run, got %d tick counts", len(o.Ticks))
	}
	block, err := SelectBlock(pkg, o.Top)
	if err != nil {
		return nil, err
	}
	infos, err := InterpretBlockSignature(sig, inputs, expected)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", block.Name(), err)
	}
	rams, err := sig.RamPortMap()
	if err != nil {
		return nil, err
	}

	queues := inputs.Clone()
	for name, vs := range expected {
		queues[name] = append([]ir.Value(nil), vs...)
	}

	models, err := newMemoryModels(block, rams, memories, o.ShowTrace)
	if err != nil {
		return nil, err
	}

	cont, err := NewBlockContinuation(block, o.Backend, nil)
	if err != nil {
		return nil, err
	}

	inputNames, outputNames := inputs.Names(), expected.Names()
	for _, name := range outputNames {
		if !infos[name].ReadyValid {
			return nil, newMalformedInputError("output channel %s must use ready/valid flow control", name)
		}
	}

	rng := rand.New(rand.NewSource(o.RandomSeed))
	watchdog := NewOutputWatchdog(o.MaxCyclesNoOutput)
	clock := NewClock()
	res := &BlockResult{Block: block.Name()}
	asserted := map[string]bool{}

	if sig.Reset.Name == "" {
		slog.Warn("no reset found in signature", "block", block.Name())
	}
	start := time.Now()
	for {
		cycle := clock.Advance()
		if ctx.Err() != nil {
			return nil, newTimeoutError(ctx, cycle)
		}
		resetting := cycle == 0
		if o.ShowTrace && (cycle < 30 || cycle%100 == 0) {
			slog.Info("cycle", "cycle", cycle, "resetting", resetting, "matched_outputs", res.MatchedOutputs)
		}

		in := map[string]ir.Value{}
		if sig.Reset.Name != "" {
			in[sig.Reset.Name] = ir.BoolValue(resetting != sig.Reset.ActiveLow)
		}
		for _, name := range inputNames {
			info, q := infos[name], queues[name]
			if !info.ReadyValid {
				if len(q) == 0 {
					return nil, &SimError{Code: ErrCodeMalformedInput, Message: "no value to drive", Channel: name}
				}
				if info.Width != 0 {
					in[info.DataPort] = q[0]
				}
				continue
			}
			goAhead := rng.Float64() < o.ProbInputValidAssert
			valid := asserted[name] || (goAhead && len(q) > 0)
			asserted[name] = valid
			in[info.ValidPort] = ir.BoolValue(valid)
			if t := inputPortType(block, info.DataPort); info.Width != 0 && t != nil {
				if len(q) == 0 {
					in[info.DataPort] = ir.AllOnesValue(t)
				} else {
					in[info.DataPort] = q[0]
				}
			}
		}
		for name, m := range models {
			in[rams[name].ReadData] = m.GetValueReadLastTick()
		}
		for _, name := range outputNames {
			in[infos[name].ReadyPort] = ir.BoolValue(true)
		}

		if err := cont.RunOneCycle(in); err != nil {
			return nil, err
		}
		out := cont.OutputPorts()
		if err := recordBlockEvents(block.Name(), cycle, cont, o, res); err != nil {
			return nil, err
		}

		if resetting {
			watchdog.Observe(cycle)
			continue
		}

		for _, name := range inputNames {
			info := infos[name]
			if !info.ReadyValid {
				continue
			}
			ready, err := portBool(out, info.ReadyPort)
			if err != nil {
				return nil, err
			}
			if in[info.ValidPort].Bits().Bit(0) && ready {
				if o.ShowTrace {
					slog.Info("consuming input", "channel", name, "value", queues[name][0].String())
				}
				queues[name] = queues[name][1:]
				asserted[name] = false
			}
		}

		var errs []string
		for _, name := range outputNames {
			info := infos[name]
			valid, err := portBool(out, info.ValidPort)
			if err != nil {
				return nil, err
			}
			if !valid {
				continue
			}
			q := queues[name]
			data := out[info.DataPort]
			if info.Width == 0 {
				// Zero-width channels have no data port; they carry bits[0]:0.
				data = ir.UValue(0, 0)
			}
			if len(q) == 0 {
				errs = append(errs, fmt.Sprintf("Block wrote past the end of the expected values list for channel %s: %s",
					name, data))
				continue
			}
			if o.ShowTrace {
				slog.Info("consuming output", "channel", name, "value", data.String(), "remaining", len(q))
			}
			if !q[0].Equal(data) {
				errs = append(errs, fmt.Sprintf("Output mismatched for channel %s: expected %s, block outputted %s",
					name, q[0], data))
				continue
			}
			res.MatchedOutputs++
			queues[name] = q[1:]
			watchdog.Observe(cycle)
		}
		if len(errs) > 0 {
			return nil, &SimError{
				Code:    ErrCodeOutputMismatch,
				Message: fmt.Sprintf("Outputs did not match expectations after cycle %d:\n\n%s", cycle, strings.Join(errs, "\n")),
				Cycle:   cycle,
			}
		}

		if err := serviceMemories(models, rams, out); err != nil {
			return nil, err
		}

		drained := true
		for _, name := range outputNames {
			if len(queues[name]) > 0 {
				drained = false
			}
		}
		if drained {
			break
		}
		if err := watchdog.Check(cycle); err != nil {
			return nil, err
		}
		for _, m := range models {
			m.Tick()
		}
	}

	res.Cycles = clock.Current()
	res.LastOutputCycle = watchdog.LastOutput()
	res.Registers = cont.Registers()
	res.Elapsed = time.Since(start)
	slog.Info("block simulation finished", "block", block.Name(), "cycles", res.Cycles, "elapsed", res.Elapsed)

	res.Unconsumed = ChannelValues{}
	for _, name := range inputNames {
		if infos[name].ReadyValid && len(queues[name]) > 0 {
			res.Unconsumed[name] = queues[name]
		}
	}
	if len(res.Unconsumed) > 0 {
		slog.Warn("not all inputs were consumed by the time all expected outputs were produced",
			"remaining", res.Unconsumed.String())
	}

	if o.OutputStatsPath != "" {
		if err := os.WriteFile(o.OutputStatsPath, []byte(fmt.Sprintf("%d", res.LastOutputCycle)), 0o644); err != nil {
			return nil, fmt.Errorf("write output stats: %w", err)
		}
	}
	return res, nil
}

func recordBlockEvents(name string, cycle int64, cont *BlockContinuation, o Options, res *BlockResult) error {
	events := cont.Events()
	for _, msg := range events.TraceMessages {
		line := fmt.Sprintf("Block %s trace: %s", name, msg)
		res.TraceMessages = append(res.TraceMessages, line)
		if o.ShowTrace {
			slog.Info(line)
		}
	}
	for _, msg := range events.AssertionMessages {
		res.AssertionMessages = append(res.AssertionMessages, msg)
		slog.Warn("assertion fired", "block", name, "cycle", cycle, "message", msg)
	}
	if o.FailOnAssert && len(events.AssertionMessages) > 0 {
		return NewAssertionError(cycle, events.AssertionMessages)
	}
	return nil
}

func newMemoryModels(block *ir.FunctionBase, rams map[string]RamPorts, memories map[string]MemoryInit, trace bool) (map[string]*MemoryModel, error) {
	names := make([]string, 0, len(memories))
	for name := range memories {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make(map[string]*MemoryModel, len(memories))
	for _, name := range names {
		ports, ok := rams[name]
		if !ok {
			return nil, newMalformedInputError("memory %s is not a RAM of the signature", name)
		}
		t := inputPortType(block, ports.ReadData)
		if t == nil {
			return nil, newMalformedInputError("block %s has no input port %s for memory %s", block.Name(), ports.ReadData, name)
		}
		init := memories[name]
		if init.Size <= 0 {
			return nil, newMalformedInputError("memory %s has size %d", name, init.Size)
		}
		models[name] = NewMemoryModel(name, init.Size, init.Initial, ir.AllOnesValue(t), trace)
	}
	return models, nil
}

// serviceMemories starts the reads and writes the block requested this
// cycle. An enable counts only when all of its bits are set.
func serviceMemories(models map[string]*MemoryModel, rams map[string]RamPorts, out map[string]ir.Value) error {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m, ports := models[name], rams[name]
		wrEn, ok := out[ports.WriteEnable]
		if !ok {
			return newMalformedInputError("memory %s: no output port %s", name, ports.WriteEnable)
		}
		if wrEn.Bits().IsAllOnes() {
			if err := m.Write(addressOf(out[ports.WriteAddress]), out[ports.WriteData]); err != nil {
				return err
			}
		}
		rdEn, ok := out[ports.ReadEnable]
		if !ok {
			return newMalformedInputError("memory %s: no output port %s", name, ports.ReadEnable)
		}
		if rdEn.Bits().IsAllOnes() {
			if err := m.Read(addressOf(out[ports.ReadAddress])); err != nil {
				return err
			}
		}
	}
	return nil
}

func inputPortType(block *ir.FunctionBase, port string) *ir.Type {
	for _, n := range block.InputPorts() {
		if n.PortName() == port {
			return n.Type()
		}
	}
	return nil
}

func portBool(out map[string]ir.Value, port string) (bool, error) {
	v, ok := out[port]
	if !ok {
		return false, newMalformedInputError("block has no output port %s", port)
	}
	return v.Bits().Bit(0), nil
}
