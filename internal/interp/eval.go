// Package interp evaluates IR functions, procs and blocks node by node.
//
// Two backends share the op semantics in this file: Interpreter walks the
// graph on every evaluation, and Compiled lowers the graph once into a
// slice of closures ("jit") that it replays per evaluation.
package interp

import (
	"fmt"
	"strings"

	"github.com/cchan/xlsynth/internal/ir"
)

// EvalPure computes the value of a node with no side effects from its
// operand values, in operand order.
func EvalPure(n *ir.Node, operands []ir.Value) (ir.Value, error) {
	bits := func(i int) ir.Bits { return operands[i].Bits() }
	switch n.Op() {
	case ir.OpLiteral:
		return n.Value(), nil
	case ir.OpBitSlice:
		return ir.BitsValue(bits(0).Slice(n.Start(), n.BitCount())), nil
	case ir.OpConcat:
		parts := make([]ir.Bits, len(operands))
		for i := range operands {
			parts[i] = bits(i)
		}
		return ir.BitsValue(ir.ConcatBits(parts...)), nil
	case ir.OpSelect:
		return evalSelect(n, operands), nil
	case ir.OpOneHotSelect:
		return evalOneHotSelect(n, operands), nil
	case ir.OpPrioritySelect:
		return evalPrioritySelect(n, operands), nil
	case ir.OpOneHot:
		return ir.BitsValue(bits(0).OneHot(n.LsbPriority())), nil
	case ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpNand, ir.OpNor:
		acc := bits(0)
		for i := 1; i < len(operands); i++ {
			switch n.Op() {
			case ir.OpAnd, ir.OpNand:
				acc = acc.And(bits(i))
			case ir.OpOr, ir.OpNor:
				acc = acc.Or(bits(i))
			default:
				acc = acc.Xor(bits(i))
			}
		}
		if n.Op() == ir.OpNand || n.Op() == ir.OpNor {
			acc = acc.Not()
		}
		return ir.BitsValue(acc), nil
	case ir.OpNot:
		return ir.BitsValue(bits(0).Not()), nil
	case ir.OpNeg:
		return ir.BitsValue(bits(0).Neg()), nil
	case ir.OpEq:
		return ir.BoolValue(operands[0].Equal(operands[1])), nil
	case ir.OpNe:
		return ir.BoolValue(!operands[0].Equal(operands[1])), nil
	case ir.OpULt:
		return ir.BoolValue(bits(0).Cmp(bits(1)) < 0), nil
	case ir.OpULe:
		return ir.BoolValue(bits(0).Cmp(bits(1)) <= 0), nil
	case ir.OpUGt:
		return ir.BoolValue(bits(0).Cmp(bits(1)) > 0), nil
	case ir.OpUGe:
		return ir.BoolValue(bits(0).Cmp(bits(1)) >= 0), nil
	case ir.OpAdd:
		return ir.BitsValue(bits(0).Add(bits(1))), nil
	case ir.OpSub:
		return ir.BitsValue(bits(0).Sub(bits(1))), nil
	case ir.OpShll:
		return ir.BitsValue(bits(0).Shll(bits(1))), nil
	case ir.OpShrl:
		return ir.BitsValue(bits(0).Shrl(bits(1))), nil
	case ir.OpZeroExt:
		return ir.BitsValue(bits(0).ZeroExtend(n.BitCount())), nil
	case ir.OpSignExt:
		return ir.BitsValue(bits(0).SignExtend(n.BitCount())), nil
	case ir.OpTuple:
		return ir.TupleValue(operands...), nil
	case ir.OpTupleIndex:
		return operands[0].Elements()[n.Index()], nil
	case ir.OpAndReduce:
		return ir.BoolValue(bits(0).IsAllOnes()), nil
	case ir.OpOrReduce:
		return ir.BoolValue(!bits(0).IsZero()), nil
	case ir.OpXorReduce:
		return ir.BoolValue(bits(0).PopCount()%2 == 1), nil
	}
	return ir.Value{}, fmt.Errorf("%s: %s is not a pure op", n.Name(), n.Op())
}

func evalSelect(n *ir.Node, operands []ir.Value) ir.Value {
	sel := operands[0].Bits()
	cases := n.CaseCount()
	if sel.FitsInUint64() && sel.Uint64() < uint64(cases) {
		return operands[1+int(sel.Uint64())]
	}
	return operands[len(operands)-1]
}

// evalOneHotSelect ORs the flattened cases whose selector bit is set.
func evalOneHotSelect(n *ir.Node, operands []ir.Value) ir.Value {
	sel := operands[0].Bits()
	acc := ir.ZeroBits(n.BitCount())
	for i := 0; i < n.CaseCount(); i++ {
		if sel.Bit(i) {
			acc = acc.Or(operands[1+i].Flatten())
		}
	}
	return ir.UnflattenValue(n.Type(), acc)
}

// evalPrioritySelect returns the case of the lowest set selector bit, or
// zero.
func evalPrioritySelect(n *ir.Node, operands []ir.Value) ir.Value {
	sel := operands[0].Bits()
	for i := 0; i < n.CaseCount(); i++ {
		if sel.Bit(i) {
			return operands[1+i]
		}
	}
	return ir.ZeroValue(n.Type())
}

// FormatTrace substitutes each "{}" in format with the next argument.
// Bits print in decimal; tuples print in their typed form.
func FormatTrace(format string, args []ir.Value) string {
	var sb strings.Builder
	next := 0
	for {
		i := strings.Index(format, "{}")
		if i < 0 {
			sb.WriteString(format)
			break
		}
		sb.WriteString(format[:i])
		if next < len(args) {
			if args[next].IsBits() {
				sb.WriteString(args[next].Bits().String())
			} else {
				sb.WriteString(args[next].String())
			}
			next++
		} else {
			sb.WriteString("{}")
		}
		format = format[i+2:]
	}
	return sb.String()
}
