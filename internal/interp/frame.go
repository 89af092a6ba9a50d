package interp

import (
	"errors"
	"fmt"

	"github.com/cchan/xlsynth/internal/ir"
)

// Env supplies the values that come from outside a function.
type Env interface {
	// Input returns the value of a param, state_read, input_port or
	// register_read node.
	Input(n *ir.Node) (ir.Value, error)

	// Receive returns the next value on a receive's channel and whether one
	// was available. It is only called when the receive's predicate holds
	// and must not consume the value; the caller commits consumption.
	Receive(n *ir.Node) (ir.Value, bool, error)
}

// Events are the observable side effects of one evaluation besides sends
// and register writes.
type Events struct {
	TraceMessages     []string
	AssertionMessages []string
}

// Empty reports whether no trace or assertion fired.
func (e Events) Empty() bool {
	return len(e.TraceMessages) == 0 && len(e.AssertionMessages) == 0
}

// ErrBlocked is wrapped by BlockedError.
var ErrBlocked = errors.New("blocked on receive")

// BlockedError reports a blocking receive whose channel had no data.
type BlockedError struct {
	Node    string
	Channel string
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: blocked on receive from channel %s", e.Node, e.Channel)
}

// Unwrap returns ErrBlocked.
func (e *BlockedError) Unwrap() error { return ErrBlocked }

// IsBlocked reports whether err is a BlockedError.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrBlocked)
}

// Frame holds the value of every node after one evaluation.
type Frame struct {
	f      *ir.FunctionBase
	values []ir.Value
	Events Events
}

func newFrame(f *ir.FunctionBase, size int) *Frame {
	return &Frame{f: f, values: make([]ir.Value, size)}
}

// Value returns n's value.
func (fr *Frame) Value(n *ir.Node) ir.Value { return fr.values[n.ID()] }

// Bool returns a one-bit node's value. A nil node (an absent predicate or
// load enable) counts as true.
func (fr *Frame) Bool(n *ir.Node) bool {
	if n == nil {
		return true
	}
	return !fr.values[n.ID()].Bits().IsZero()
}

// Result returns the function's return value.
func (fr *Frame) Result() (ir.Value, error) {
	ret := fr.f.ReturnValue()
	if ret == nil {
		return ir.Value{}, fmt.Errorf("%s has no return value", fr.f.Name())
	}
	return fr.Value(ret), nil
}

// evalSideEffect computes the value of an op that talks to env or records
// events. Operand values are already in fr.
func evalSideEffect(n *ir.Node, fr *Frame, env Env) (ir.Value, error) {
	switch n.Op() {
	case ir.OpParam, ir.OpStateRead, ir.OpInputPort, ir.OpRegisterRead:
		v, err := env.Input(n)
		if err != nil {
			return ir.Value{}, err
		}
		if !v.Type().Equal(n.Type()) {
			return ir.Value{}, fmt.Errorf("%s: input has type %s, want %s", n.Name(), v.Type(), n.Type())
		}
		return v, nil
	case ir.OpReceive:
		return evalReceive(n, fr, env)
	case ir.OpAssert:
		if !fr.Bool(n.Operand(0)) {
			fr.Events.AssertionMessages = append(fr.Events.AssertionMessages, n.Message())
		}
		return ir.TupleValue(), nil
	case ir.OpTrace:
		if fr.Bool(n.Operand(0)) {
			args := n.TraceArgs()
			vals := make([]ir.Value, len(args))
			for i, a := range args {
				vals[i] = fr.Value(a)
			}
			fr.Events.TraceMessages = append(fr.Events.TraceMessages, FormatTrace(n.Message(), vals))
		}
		return ir.TupleValue(), nil
	case ir.OpSend, ir.OpOutputPort, ir.OpRegisterWrite:
		return ir.TupleValue(), nil
	}
	return ir.Value{}, fmt.Errorf("%s: unsupported op %s", n.Name(), n.Op())
}

func evalReceive(n *ir.Node, fr *Frame, env Env) (ir.Value, error) {
	ch, err := n.Function().Package().GetChannel(n.Channel())
	if err != nil {
		return ir.Value{}, err
	}
	data, valid := ir.ZeroValue(ch.Type), false
	if fr.Bool(n.Predicate()) {
		v, ok, err := env.Receive(n)
		if err != nil {
			return ir.Value{}, err
		}
		if ok {
			data, valid = v, true
		}
	}
	if n.Blocking() {
		if !valid && fr.Bool(n.Predicate()) {
			return ir.Value{}, &BlockedError{Node: n.Name(), Channel: n.Channel()}
		}
		return data, nil
	}
	return ir.TupleValue(data, ir.BoolValue(valid)), nil
}

// Evaluator runs one function base.
type Evaluator interface {
	Function() *ir.FunctionBase
	Evaluate(env Env) (*Frame, error)
}

// Backend names an Evaluator implementation.
type Backend string

const (
	BackendInterpreter Backend = "interpreter"
	BackendJIT         Backend = "jit"
)

// New returns an evaluator for f using the given backend.
func New(backend Backend, f *ir.FunctionBase) (Evaluator, error) {
	switch backend {
	case BackendInterpreter:
		return NewInterpreter(f), nil
	case BackendJIT:
		return Compile(f)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// ArgsEnv feeds a function's params positionally.
type ArgsEnv []ir.Value

// Input implements Env.
func (a ArgsEnv) Input(n *ir.Node) (ir.Value, error) {
	if n.Op() != ir.OpParam {
		return ir.Value{}, fmt.Errorf("%s: %s has no value in a function call", n.Name(), n.Op())
	}
	for i, p := range n.Function().Params() {
		if p == n {
			if i >= len(a) {
				return ir.Value{}, fmt.Errorf("missing argument for param %s", n.Name())
			}
			return a[i], nil
		}
	}
	return ir.Value{}, fmt.Errorf("%s is not a param of %s", n.Name(), n.Function().Name())
}

// Receive implements Env.
func (a ArgsEnv) Receive(n *ir.Node) (ir.Value, bool, error) {
	return ir.Value{}, false, fmt.Errorf("%s: functions cannot receive", n.Name())
}

// Call evaluates a function with positional arguments and returns its
// result.
func Call(ev Evaluator, args ...ir.Value) (ir.Value, error) {
	fr, err := ev.Evaluate(ArgsEnv(args))
	if err != nil {
		return ir.Value{}, err
	}
	return fr.Result()
}
