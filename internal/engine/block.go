package engine

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/cchan/xlsynth/internal/interp"
	"github.com/cchan/xlsynth/internal/ir"
)

// RegisterState is a persistent snapshot of a block's registers, keyed by
// register name. Each cycle produces a new snapshot sharing structure with
// the previous one, so callers may keep old snapshots for tracing.
type RegisterState struct {
	m *immutable.SortedMap
}

// NewRegisterState returns an empty register state.
func NewRegisterState() RegisterState {
	return RegisterState{m: immutable.NewSortedMap(&stringComparer{})}
}

// Get returns a register's value.
func (s RegisterState) Get(name string) (ir.Value, bool) {
	v, ok := s.m.Get(name)
	if !ok {
		return ir.Value{}, false
	}
	return v.(ir.Value), true
}

// Set returns a new state with name set to v.
func (s RegisterState) Set(name string, v ir.Value) RegisterState {
	return RegisterState{m: s.m.Set(name, v)}
}

// Len returns the number of registers.
func (s RegisterState) Len() int { return s.m.Len() }

// String renders the registers in name order, e.g. "{count=bits[4]:3}".
func (s RegisterState) String() string {
	var parts []string
	itr := s.m.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		parts = append(parts, fmt.Sprintf("%s=%s", k.(string), v.(ir.Value)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// stringComparer orders register names. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a sorts before b, 1 if after, and 0 if equal.
// Panics if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}

// BlockContinuation steps a block one clock cycle at a time.
//
// Each call to RunOneCycle evaluates the block's combinational logic from
// the given input port values and the current registers, records the output
// port values and events, and then latches register writes.
type BlockContinuation struct {
	block   *ir.FunctionBase
	ev      interp.Evaluator
	regs    RegisterState
	outputs map[string]ir.Value
	events  interp.Events
}

// NewBlockContinuation prepares block for evaluation. Registers missing
// from initial start as all ones.
func NewBlockContinuation(block *ir.FunctionBase, backend interp.Backend, initial map[string]ir.Value) (*BlockContinuation, error) {
	if !block.IsBlock() {
		return nil, newInvariantError("%s is a %s, not a block", block.Name(), block.Kind())
	}
	ev, err := interp.New(backend, block)
	if err != nil {
		return nil, fmt.Errorf("prepare block %s: %w", block.Name(), err)
	}
	regs := NewRegisterState()
	for _, r := range block.Registers() {
		v, ok := initial[r.Name]
		if !ok {
			v = ir.AllOnesValue(r.Type)
		}
		regs = regs.Set(r.Name, v)
	}
	return &BlockContinuation{block: block, ev: ev, regs: regs, outputs: map[string]ir.Value{}}, nil
}

// Block returns the block being simulated.
func (c *BlockContinuation) Block() *ir.FunctionBase { return c.block }

// Registers returns the current register snapshot.
func (c *BlockContinuation) Registers() RegisterState { return c.regs }

// OutputPorts returns the output port values of the last cycle.
func (c *BlockContinuation) OutputPorts() map[string]ir.Value { return c.outputs }

// Events returns the traces and assertions of the last cycle.
func (c *BlockContinuation) Events() interp.Events { return c.events }

// RunOneCycle evaluates one clock cycle. inputs must hold a value for every
// input port.
func (c *BlockContinuation) RunOneCycle(inputs map[string]ir.Value) error {
	fr, err := c.ev.Evaluate(&blockEnv{block: c.block, inputs: inputs, regs: c.regs})
	if err != nil {
		return fmt.Errorf("block %s: %w", c.block.Name(), err)
	}

	outputs := make(map[string]ir.Value, len(c.block.OutputPorts()))
	for _, n := range c.block.OutputPorts() {
		outputs[n.PortName()] = fr.Value(n.Data())
	}

	next := c.regs
	for _, n := range c.block.Nodes() {
		if n.Op() != ir.OpRegisterWrite {
			continue
		}
		reg, ok := c.block.GetRegister(n.Register())
		if !ok {
			return newInvariantError("block %s: write to unknown register %s", c.block.Name(), n.Register())
		}
		if rst := n.Reset(); rst != nil && reg.ResetValue != nil {
			if fr.Bool(rst) != reg.ActiveLow {
				next = next.Set(reg.Name, *reg.ResetValue)
				continue
			}
		}
		if fr.Bool(n.LoadEnable()) {
			next = next.Set(reg.Name, fr.Value(n.Data()))
		}
	}

	c.regs = next
	c.outputs = outputs
	c.events = fr.Events
	return nil
}

type blockEnv struct {
	block  *ir.FunctionBase
	inputs map[string]ir.Value
	regs   RegisterState
}

func (e *blockEnv) Input(n *ir.Node) (ir.Value, error) {
	switch n.Op() {
	case ir.OpInputPort:
		v, ok := e.inputs[n.PortName()]
		if !ok {
			return ir.Value{}, newMalformedInputError("block %s: no value for input port %s", e.block.Name(), n.PortName())
		}
		return v, nil
	case ir.OpRegisterRead:
		v, ok := e.regs.Get(n.Register())
		if !ok {
			return ir.Value{}, newInvariantError("block %s: read of unknown register %s", e.block.Name(), n.Register())
		}
		return v, nil
	}
	return ir.Value{}, newInvariantError("block %s: %s %s has no value", e.block.Name(), n.Op(), n.Name())
}

func (e *blockEnv) Receive(n *ir.Node) (ir.Value, bool, error) {
	return ir.Value{}, false, newInvariantError("block %s: receive %s is not allowed in a block", e.block.Name(), n.Name())
}
