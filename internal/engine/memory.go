package engine

import (
	"fmt"
	"log/slog"

	"github.com/cchan/xlsynth/internal/ir"
)

// MemoryModel emulates a RAM attached to a block's memory ports.
//
// At most one read and one write may be initiated per cycle. A read returns
// its value on the following cycle (GetValueReadLastTick); a write becomes
// visible once Tick commits it. Cells are initialized to one value.
type MemoryModel struct {
	name         string
	cells        []ir.Value
	readDisabled ir.Value
	trace        bool

	writeThis *memoryWrite
	readThis  *ir.Value
	readLast  *ir.Value
}

type memoryWrite struct {
	addr  int64
	value ir.Value
}

// NewMemoryModel creates a memory of size cells holding initial.
// readDisabled is what the read data port shows in cycles that follow no
// read.
func NewMemoryModel(name string, size int64, initial, readDisabled ir.Value, trace bool) *MemoryModel {
	cells := make([]ir.Value, size)
	for i := range cells {
		cells[i] = initial
	}
	return &MemoryModel{name: name, cells: cells, readDisabled: readDisabled, trace: trace}
}

// Name returns the memory name.
func (m *MemoryModel) Name() string { return m.name }

// Size returns the number of cells.
func (m *MemoryModel) Size() int64 { return int64(len(m.cells)) }

// Cell returns the committed value at addr.
func (m *MemoryModel) Cell(addr int64) (ir.Value, bool) {
	if addr < 0 || addr >= int64(len(m.cells)) {
		return ir.Value{}, false
	}
	return m.cells[addr], true
}

// Read initiates a read of addr in the current cycle.
func (m *MemoryModel) Read(addr int64) error {
	if addr < 0 || addr >= int64(len(m.cells)) {
		return &SimError{
			Code:    ErrCodeOutOfRange,
			Message: fmt.Sprintf("Memory %s read out of range at %d", m.name, addr),
		}
	}
	if m.readThis != nil {
		return &SimError{
			Code:    ErrCodeFailedPrecondition,
			Message: fmt.Sprintf("Memory %s double read in tick at %d", m.name, addr),
		}
	}
	v := m.cells[addr]
	m.readThis = &v
	if m.trace {
		slog.Info("memory read initiated", "memory", m.name, "addr", addr, "value", v.String())
	}
	return nil
}

// GetValueReadLastTick returns the value read in the previous cycle, or the
// read-disabled value when there was no read.
func (m *MemoryModel) GetValueReadLastTick() ir.Value {
	if m.readLast == nil {
		return m.readDisabled
	}
	return *m.readLast
}

// DidReadLastTick reports whether a read was initiated in the previous cycle.
func (m *MemoryModel) DidReadLastTick() bool { return m.readLast != nil }

// Write initiates a write of v to addr in the current cycle.
func (m *MemoryModel) Write(addr int64, v ir.Value) error {
	if addr < 0 || addr >= int64(len(m.cells)) {
		return &SimError{
			Code:    ErrCodeOutOfRange,
			Message: fmt.Sprintf("Memory %s write out of range at %d", m.name, addr),
		}
	}
	if m.writeThis != nil {
		return &SimError{
			Code:    ErrCodeFailedPrecondition,
			Message: fmt.Sprintf("Memory %s double write in tick at %d", m.name, addr),
		}
	}
	got, want := v.Type().FlatBitCount(), m.cells[0].Type().FlatBitCount()
	if got != want {
		return &SimError{
			Code: ErrCodeFailedPrecondition,
			Message: fmt.Sprintf("Memory %s write value at %d with wrong bit count %d, expected %d",
				m.name, addr, got, want),
		}
	}
	m.writeThis = &memoryWrite{addr: addr, value: v}
	if m.trace {
		slog.Info("memory write initiated", "memory", m.name, "addr", addr, "value", v.String())
	}
	return nil
}

// Tick ends the cycle: the pending write is committed and the pending read
// becomes the value returned by GetValueReadLastTick.
func (m *MemoryModel) Tick() {
	if m.writeThis != nil {
		m.cells[m.writeThis.addr] = m.writeThis.value
		if m.trace {
			slog.Info("memory write committed", "memory", m.name, "addr", m.writeThis.addr)
		}
		m.writeThis = nil
	}
	m.readLast = m.readThis
	m.readThis = nil
}

// addressOf converts an address port value to a cell index. Values too wide
// for an int64 map to -1, which every access rejects as out of range.
func addressOf(v ir.Value) int64 {
	b := v.Bits()
	if !b.FitsInUint64() || b.Uint64() > 1<<62 {
		return -1
	}
	return int64(b.Uint64())
}
