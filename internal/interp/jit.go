package interp

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/ir"
)

// step computes one node's value into the frame.
type step func(fr *Frame, env Env) error

// Compiled is a function base lowered once into a straight-line list of
// closures, one per node. Graph edits made after Compile are not seen. A
// Compiled is not safe for concurrent use.
type Compiled struct {
	f     *ir.FunctionBase
	size  int
	steps []step
}

var _ Evaluator = (*Compiled)(nil)

// Compile lowers f. The order of evaluation is fixed at compile time.
func Compile(f *ir.FunctionBase) (*Compiled, error) {
	order, err := f.TopoSort()
	if err != nil {
		return nil, err
	}
	c := &Compiled{f: f, size: f.ArenaSize(), steps: make([]step, 0, len(order))}
	for _, n := range order {
		c.steps = append(c.steps, compileNode(n))
	}
	return c, nil
}

// Function returns the compiled function.
func (c *Compiled) Function() *ir.FunctionBase { return c.f }

// Evaluate replays the compiled steps.
func (c *Compiled) Evaluate(env Env) (*Frame, error) {
	fr := newFrame(c.f, c.size)
	for _, s := range c.steps {
		if err := s(fr, env); err != nil {
			return nil, err
		}
	}
	return fr, nil
}

func compileNode(n *ir.Node) step {
	id := n.ID()
	if n.Op().IsSideEffecting() {
		return func(fr *Frame, env Env) error {
			v, err := evalSideEffect(n, fr, env)
			if err != nil {
				return err
			}
			fr.values[id] = v
			return nil
		}
	}
	ops := make([]ir.NodeID, n.OperandCount())
	for i, op := range n.Operands() {
		ops[i] = op.ID()
	}
	switch n.Op() {
	case ir.OpLiteral:
		v := n.Value()
		return func(fr *Frame, _ Env) error {
			fr.values[id] = v
			return nil
		}
	case ir.OpBitSlice:
		x, start, width := ops[0], n.Start(), n.BitCount()
		return func(fr *Frame, _ Env) error {
			fr.values[id] = ir.BitsValue(fr.values[x].Bits().Slice(start, width))
			return nil
		}
	case ir.OpAnd, ir.OpOr, ir.OpXor:
		combine := binaryBitsOp(n.Op())
		return func(fr *Frame, _ Env) error {
			acc := fr.values[ops[0]].Bits()
			for _, o := range ops[1:] {
				acc = combine(acc, fr.values[o].Bits())
			}
			fr.values[id] = ir.BitsValue(acc)
			return nil
		}
	case ir.OpNot:
		x := ops[0]
		return func(fr *Frame, _ Env) error {
			fr.values[id] = ir.BitsValue(fr.values[x].Bits().Not())
			return nil
		}
	case ir.OpAdd, ir.OpSub:
		combine := binaryBitsOp(n.Op())
		a, b := ops[0], ops[1]
		return func(fr *Frame, _ Env) error {
			fr.values[id] = ir.BitsValue(combine(fr.values[a].Bits(), fr.values[b].Bits()))
			return nil
		}
	case ir.OpSelect:
		sel, cases, def := ops[0], ops[1:1+n.CaseCount()], ops[len(ops)-1]
		return func(fr *Frame, _ Env) error {
			s := fr.values[sel].Bits()
			if s.FitsInUint64() && s.Uint64() < uint64(len(cases)) {
				fr.values[id] = fr.values[cases[s.Uint64()]]
			} else {
				fr.values[id] = fr.values[def]
			}
			return nil
		}
	case ir.OpTupleIndex:
		t, index := ops[0], n.Index()
		return func(fr *Frame, _ Env) error {
			fr.values[id] = fr.values[t].Elements()[index]
			return nil
		}
	}
	scratch := make([]ir.Value, len(ops))
	return func(fr *Frame, _ Env) error {
		for i, o := range ops {
			scratch[i] = fr.values[o]
		}
		v, err := EvalPure(n, scratch)
		if err != nil {
			return fmt.Errorf("%s: %w", n.Function().Name(), err)
		}
		fr.values[id] = v
		return nil
	}
}

func binaryBitsOp(op ir.Op) func(a, b ir.Bits) ir.Bits {
	switch op {
	case ir.OpAnd:
		return ir.Bits.And
	case ir.OpOr:
		return ir.Bits.Or
	case ir.OpXor:
		return ir.Bits.Xor
	case ir.OpAdd:
		return ir.Bits.Add
	case ir.OpSub:
		return ir.Bits.Sub
	}
	panic(fmt.Sprintf("no binary bits op for %s", op))
}
