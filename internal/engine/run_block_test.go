package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/interp"
	"github.com/cchan/xlsynth/internal/ir"
)

const passthruPackage = `package blk

block passthru {
  in_data: bits[8] = input_port(name=in_data)
  in_valid: bits[1] = input_port(name=in_valid)
  out_ready: bits[1] = input_port(name=out_ready)
  one: bits[8] = literal(value=1)
  plus: bits[8] = add(in_data, one)
  od: () = output_port(plus, name=out_data)
  ov: () = output_port(in_valid, name=out_valid)
  rdy: () = output_port(out_ready, name=in_ready)
}
`

const lookupPackage = `package mem

block lookup {
  reg pending(bits[1], reset_value=0, active_low=false)
  rst: bits[1] = input_port(name=rst)
  req_addr: bits[2] = input_port(name=req_addr)
  req_valid: bits[1] = input_port(name=req_valid)
  resp_ready: bits[1] = input_port(name=resp_ready)
  rd_data: bits[8] = input_port(name=rd_data)
  yes: bits[1] = literal(value=1)
  five: bits[8] = literal(value=5)
  pending_q: bits[1] = register_read(register=pending)
  pending_w: () = register_write(req_valid, register=pending, reset=rst)
  o1: () = output_port(yes, name=req_ready)
  o2: () = output_port(rd_data, name=resp_data)
  o3: () = output_port(pending_q, name=resp_valid)
  o4: () = output_port(req_addr, name=rd_addr)
  o5: () = output_port(req_valid, name=rd_en)
  o6: () = output_port(req_addr, name=wr_addr)
  o7: () = output_port(req_valid, name=wr_en)
  o8: () = output_port(five, name=wr_data)
}
`

func passthruSignature() *BlockSignature {
	return &BlockSignature{
		ModuleName: "passthru",
		Reset:      ResetSignature{Name: "rst"},
		DataPorts: []PortSignature{
			{Name: "in_data", Direction: DirectionInput, Width: 8},
			{Name: "out_data", Direction: DirectionOutput, Width: 8},
		},
		DataChannels: []ChannelSignature{
			{Name: "in", Ops: OpsReceiveOnly, FlowControl: FlowReadyValid,
				DataPort: "in_data", ReadyPort: "in_ready", ValidPort: "in_valid"},
			{Name: "out", Ops: OpsSendOnly, FlowControl: FlowReadyValid,
				DataPort: "out_data", ReadyPort: "out_ready", ValidPort: "out_valid"},
		},
	}
}

func lookupSignature() *BlockSignature {
	return &BlockSignature{
		ModuleName: "lookup",
		Reset:      ResetSignature{Name: "rst"},
		DataPorts: []PortSignature{
			{Name: "req_addr", Direction: DirectionInput, Width: 2},
			{Name: "resp_data", Direction: DirectionOutput, Width: 8},
		},
		DataChannels: []ChannelSignature{
			{Name: "req", Ops: OpsReceiveOnly, FlowControl: FlowReadyValid,
				DataPort: "req_addr", ReadyPort: "req_ready", ValidPort: "req_valid"},
			{Name: "resp", Ops: OpsSendOnly, FlowControl: FlowReadyValid,
				DataPort: "resp_data", ReadyPort: "resp_ready", ValidPort: "resp_valid"},
		},
		Rams: []RamSignature{{
			Name: "mem", Kind: Ram1R1W,
			ReadAddress: "rd_addr", ReadEnable: "rd_en", ReadData: "rd_data",
			WriteAddress: "wr_addr", WriteEnable: "wr_en", WriteData: "wr_data",
		}},
	}
}

func TestRunBlock_Passthrough(t *testing.T) {
	for _, backend := range []interp.Backend{interp.BackendInterpreter, interp.BackendJIT} {
		t.Run(string(backend), func(t *testing.T) {
			pkg := parsePackage(t, passthruPackage)
			res, err := RunBlock(context.Background(), pkg, passthruSignature(),
				ChannelValues{"in": vals(8, 1, 2, 3)},
				ChannelValues{"out": vals(8, 2, 3, 4)},
				nil, WithBackend(backend))
			require.NoError(t, err)

			// Cycle 0 resets; one transfer per cycle after that.
			assert.Equal(t, "passthru", res.Block)
			assert.Equal(t, int64(4), res.Cycles)
			assert.Equal(t, int64(3), res.LastOutputCycle)
			assert.Equal(t, int64(3), res.MatchedOutputs)
			assert.Empty(t, res.Unconsumed)
		})
	}
}

// Output ready is never deasserted, so a block that forwards it as its own
// input ready accepts an input every cycle. Backpressure is not modelled.
const pulsePackage = `package blk

block pulse {
  in_data: bits[8] = input_port(name=in_data)
  in_valid: bits[1] = input_port(name=in_valid)
  done_ready: bits[1] = input_port(name=done_ready)
  od: () = output_port(in_valid, name=done_valid)
  rdy: () = output_port(done_ready, name=in_ready)
}
`

// done carries no payload: its data port is zero bits wide and absent from
// the block.
func TestRunBlock_ZeroWidthChannel(t *testing.T) {
	sig := &BlockSignature{
		ModuleName: "pulse",
		DataPorts: []PortSignature{
			{Name: "in_data", Direction: DirectionInput, Width: 8},
			{Name: "done_data", Direction: DirectionOutput, Width: 0},
		},
		DataChannels: []ChannelSignature{
			{Name: "in", Ops: OpsReceiveOnly, FlowControl: FlowReadyValid,
				DataPort: "in_data", ReadyPort: "in_ready", ValidPort: "in_valid"},
			{Name: "done", Ops: OpsSendOnly, FlowControl: FlowReadyValid,
				DataPort: "done_data", ReadyPort: "done_ready", ValidPort: "done_valid"},
		},
	}
	pkg := parsePackage(t, pulsePackage)
	res, err := RunBlock(context.Background(), pkg, sig,
		ChannelValues{"in": vals(8, 7, 8)},
		ChannelValues{"done": vals(0, 0, 0)},
		nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.MatchedOutputs)
	assert.Empty(t, res.Unconsumed)
}

func TestRunBlock_OutputReadyAlwaysHigh(t *testing.T) {
	pkg := parsePackage(t, passthruPackage)
	res, err := RunBlock(context.Background(), pkg, passthruSignature(),
		ChannelValues{"in": vals(8, 10, 20, 30, 40, 50)},
		ChannelValues{"out": vals(8, 11, 21, 31, 41, 51)},
		nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Cycles)
}

func TestRunBlock_RandomValidIsDeterministic(t *testing.T) {
	run := func(seed int64) *BlockResult {
		pkg := parsePackage(t, passthruPackage)
		res, err := RunBlock(context.Background(), pkg, passthruSignature(),
			ChannelValues{"in": vals(8, 1, 2, 3, 4, 5, 6, 7, 8)},
			ChannelValues{"out": vals(8, 2, 3, 4, 5, 6, 7, 8, 9)},
			nil, WithProbInputValidAssert(0.5), WithRandomSeed(seed))
		require.NoError(t, err)
		return res
	}

	a, b := run(7), run(7)
	assert.Equal(t, a.Cycles, b.Cycles)
	assert.Equal(t, int64(8), a.MatchedOutputs)
	assert.GreaterOrEqual(t, a.Cycles, int64(9))
}

// A block that never sees valid idles from cycle 1 on. With a limit of 5
// idle cycles the run must stop exactly at cycle 6.
func TestRunBlock_NoOutputLimit(t *testing.T) {
	pkg := parsePackage(t, passthruPackage)
	_, err := RunBlock(context.Background(), pkg, passthruSignature(),
		ChannelValues{"in": vals(8, 1)},
		ChannelValues{"out": vals(8, 2)},
		nil, WithProbInputValidAssert(0), WithMaxCyclesNoOutput(5))
	require.Error(t, err)
	assert.True(t, IsNoOutputError(err))
	assert.Contains(t, err.Error(), "Block didn't produce output for 5 cycles")

	var se *SimError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(6), se.Cycle)
}

func TestRunBlock_OutputMismatch(t *testing.T) {
	pkg := parsePackage(t, passthruPackage)
	_, err := RunBlock(context.Background(), pkg, passthruSignature(),
		ChannelValues{"in": vals(8, 1, 2, 3)},
		ChannelValues{"out": vals(8, 2, 9, 4)},
		nil)
	require.Error(t, err)
	assert.True(t, IsMismatchError(err))
	assert.Contains(t, err.Error(), "Outputs did not match expectations after cycle 2:")
	assert.Contains(t, err.Error(), "Output mismatched for channel out: expected bits[8]:9, block outputted bits[8]:3")
}

func TestRunBlock_UnconsumedAndStats(t *testing.T) {
	logs := captureLogs(t)
	pkg := parsePackage(t, passthruPackage)
	statsPath := filepath.Join(t.TempDir(), "stats.txt")

	res, err := RunBlock(context.Background(), pkg, passthruSignature(),
		ChannelValues{"in": vals(8, 1, 2, 3)},
		ChannelValues{"out": vals(8, 2)},
		nil, WithOutputStatsPath(statsPath))
	require.NoError(t, err)
	assert.Equal(t, "in : {\n  bits[8]:2\n  bits[8]:3\n}\n", res.Unconsumed.String())
	assert.Contains(t, logs.String(), "not all inputs were consumed")

	data, err := os.ReadFile(statsPath)
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestRunBlock_MissingResetWarns(t *testing.T) {
	logs := captureLogs(t)
	pkg := parsePackage(t, passthruPackage)
	sig := passthruSignature()
	sig.Reset = ResetSignature{}

	_, err := RunBlock(context.Background(), pkg, sig,
		ChannelValues{"in": vals(8, 1)},
		ChannelValues{"out": vals(8, 2)},
		nil)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "no reset found in signature")
}

func TestRunBlock_MemoryModel(t *testing.T) {
	pkg := parsePackage(t, lookupPackage)
	memories := map[string]MemoryInit{"mem": {Size: 4, Initial: ir.UValue(7, 8)}}

	// The first request reads the initial 7 and writes 5 to the same cell;
	// the second request sees the committed write.
	res, err := RunBlock(context.Background(), pkg, lookupSignature(),
		ChannelValues{"req": vals(2, 1, 1)},
		ChannelValues{"resp": vals(8, 7, 5)},
		memories)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.LastOutputCycle)
	assert.Equal(t, "{pending=bits[1]:0}", res.Registers.String())
}

func TestRunBlock_MemoryOutOfRange(t *testing.T) {
	pkg := parsePackage(t, lookupPackage)
	memories := map[string]MemoryInit{"mem": {Size: 2, Initial: ir.UValue(0, 8)}}

	_, err := RunBlock(context.Background(), pkg, lookupSignature(),
		ChannelValues{"req": vals(2, 3)},
		ChannelValues{"resp": vals(8, 0)},
		memories)
	require.Error(t, err)
	assert.True(t, IsOutOfRangeError(err))
	assert.Contains(t, err.Error(), "Memory mem write out of range at 3")
}

func TestRunBlock_UnknownMemory(t *testing.T) {
	pkg := parsePackage(t, lookupPackage)
	_, err := RunBlock(context.Background(), pkg, lookupSignature(),
		ChannelValues{"req": vals(2, 0)},
		ChannelValues{"resp": vals(8, 0)},
		map[string]MemoryInit{"other": {Size: 1, Initial: ir.UValue(0, 8)}})
	assert.True(t, IsMalformedInputError(err))
}

func TestRunBlock_Timeout(t *testing.T) {
	pkg := parsePackage(t, passthruPackage)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBlock(ctx, pkg, passthruSignature(),
		ChannelValues{"in": vals(8, 1)}, ChannelValues{"out": vals(8, 2)}, nil)
	assert.True(t, IsTimeoutError(err))
}

func TestSelectBlock(t *testing.T) {
	pkg := parsePackage(t, passthruPackage+"\n"+lookupPackage[len("package mem\n"):])

	_, err := SelectBlock(pkg, "")
	assert.ErrorContains(t, err, "Input IR should contain exactly one block or a top")

	b, err := SelectBlock(pkg, "lookup")
	require.NoError(t, err)
	assert.Equal(t, "lookup", b.Name())

	require.NoError(t, pkg.SetTop("passthru"))
	b, err = SelectBlock(pkg, "")
	require.NoError(t, err)
	assert.Equal(t, "passthru", b.Name())
}
