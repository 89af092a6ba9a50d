package interp

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/ir"
)

// Interpreter evaluates a function base by walking it in topological order.
// It sees graph edits made between evaluations.
type Interpreter struct {
	f *ir.FunctionBase
}

// NewInterpreter returns an interpreter for f.
func NewInterpreter(f *ir.FunctionBase) *Interpreter {
	return &Interpreter{f: f}
}

var _ Evaluator = (*Interpreter)(nil)

// Function returns the function being interpreted.
func (it *Interpreter) Function() *ir.FunctionBase { return it.f }

// Evaluate computes every live node once.
func (it *Interpreter) Evaluate(env Env) (*Frame, error) {
	order, err := it.f.TopoSort()
	if err != nil {
		return nil, err
	}
	fr := newFrame(it.f, it.f.ArenaSize())
	var operands []ir.Value
	for _, n := range order {
		v, err := evalNode(n, fr, env, operands[:0])
		if err != nil {
			return nil, err
		}
		fr.values[n.ID()] = v
	}
	return fr, nil
}

// evalNode dispatches to the pure or side-effecting evaluator. scratch is
// reused for operand values.
func evalNode(n *ir.Node, fr *Frame, env Env, scratch []ir.Value) (ir.Value, error) {
	if n.Op().IsSideEffecting() {
		return evalSideEffect(n, fr, env)
	}
	for _, op := range n.Operands() {
		scratch = append(scratch, fr.values[op.ID()])
	}
	v, err := EvalPure(n, scratch)
	if err != nil {
		return ir.Value{}, fmt.Errorf("%s: %w", n.Function().Name(), err)
	}
	return v, nil
}
