package query

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/interval"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

// Ternary propagates known bits forward through the function in
// topological order. Facts are keyed by node ID; nodes created after
// Populate are untracked until the next Populate.
type Ternary struct {
	f      *ir.FunctionBase
	values map[ir.NodeID]ternary.Vector
}

// NewTernary returns an unpopulated ternary engine.
func NewTernary() *Ternary {
	return &Ternary{values: make(map[ir.NodeID]ternary.Vector)}
}

var _ Engine = (*Ternary)(nil)

// Populate recomputes every node's ternary. It reports Changed when any
// node's facts differ from the previous population.
func (e *Ternary) Populate(f *ir.FunctionBase) (ReachedFixpoint, error) {
	order, err := f.TopoSort()
	if err != nil {
		return Unknown, fmt.Errorf("ternary query engine: %w", err)
	}
	prev := e.values
	if e.f != f {
		prev = nil
	}
	e.f = f
	e.values = make(map[ir.NodeID]ternary.Vector, len(order))
	status := Unchanged
	if prev == nil {
		status = Changed
	}
	for _, n := range order {
		v := e.evaluate(n)
		e.values[n.ID()] = v
		if old, ok := prev[n.ID()]; !ok || !old.Equal(v) {
			status = Changed
		}
	}
	return status, nil
}

func (e *Ternary) operand(n *ir.Node, i int) ternary.Vector {
	return e.values[n.Operand(i).ID()]
}

func (e *Ternary) evaluate(n *ir.Node) ternary.Vector {
	width := n.BitCount()
	switch n.Op() {
	case ir.OpLiteral:
		return ternary.FromBits(n.Value().Flatten())
	case ir.OpBitSlice:
		return e.operand(n, 0).Slice(n.Start(), width)
	case ir.OpConcat, ir.OpTuple:
		parts := make([]ternary.Vector, n.OperandCount())
		for i := range parts {
			parts[i] = e.operand(n, i)
		}
		return ternary.Concat(parts...)
	case ir.OpTupleIndex:
		t := n.Operand(0).Type()
		return e.operand(n, 0).Slice(t.ElementOffset(n.Index()), width)
	case ir.OpZeroExt:
		x := e.operand(n, 0)
		out := ternary.AllUnknown(width)
		copy(out, x)
		for i := len(x); i < width; i++ {
			out[i] = ternary.KnownZero
		}
		return out
	case ir.OpSignExt:
		x := e.operand(n, 0)
		out := ternary.AllUnknown(width)
		copy(out, x)
		if len(x) > 0 {
			for i := len(x); i < width; i++ {
				out[i] = x[len(x)-1]
			}
		} else {
			for i := range out {
				out[i] = ternary.KnownZero
			}
		}
		return out
	case ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpNand, ir.OpNor:
		vs := make([]ternary.Vector, n.OperandCount())
		for i := range vs {
			vs[i] = e.operand(n, i)
		}
		switch n.Op() {
		case ir.OpAnd:
			return ternary.And(vs...)
		case ir.OpOr:
			return ternary.Or(vs...)
		case ir.OpXor:
			return ternary.Xor(vs...)
		case ir.OpNand:
			return ternary.Not(ternary.And(vs...))
		default:
			return ternary.Not(ternary.Or(vs...))
		}
	case ir.OpNot:
		return ternary.Not(e.operand(n, 0))
	case ir.OpSelect:
		return e.evaluateSelect(n)
	case ir.OpOneHotSelect:
		return e.evaluateOneHotSelect(n)
	case ir.OpPrioritySelect:
		return e.evaluatePrioritySelect(n)
	case ir.OpOneHot:
		return evaluateOneHot(e.operand(n, 0), n.LsbPriority())
	case ir.OpEq, ir.OpNe:
		a, b := e.operand(n, 0), e.operand(n, 1)
		eq := ternary.KnownOne
		for i := range a {
			if a[i] == ternary.Unknown || b[i] == ternary.Unknown {
				if eq == ternary.KnownOne {
					eq = ternary.Unknown
				}
				continue
			}
			if a[i] != b[i] {
				eq = ternary.KnownZero
				break
			}
		}
		if n.Op() == ir.OpNe {
			eq = ternary.NotBit(eq)
		}
		return ternary.Vector{eq}
	case ir.OpULt, ir.OpULe, ir.OpUGt, ir.OpUGe:
		return ternary.Vector{compareRanges(n.Op(), e.operand(n, 0), e.operand(n, 1))}
	case ir.OpAndReduce, ir.OpOrReduce, ir.OpXorReduce:
		return ternary.Vector{reduce(n.Op(), e.operand(n, 0))}
	case ir.OpAdd, ir.OpSub, ir.OpNeg, ir.OpShll, ir.OpShrl:
		return e.evaluateArithmetic(n)
	}
	// Params, receives, state, ports, registers and side-effecting ops.
	return ternary.AllUnknown(width)
}

func (e *Ternary) evaluateSelect(n *ir.Node) ternary.Vector {
	sel := e.operand(n, 0)
	if v, ok := sel.KnownValue(); ok {
		if v.FitsInUint64() && v.Uint64() < uint64(n.CaseCount()) {
			return e.values[n.Case(int(v.Uint64())).ID()].Clone()
		}
		return e.values[n.Default().ID()].Clone()
	}
	var result ternary.Vector
	merge := func(v ternary.Vector) {
		if result == nil {
			result = v.Clone()
			return
		}
		result = ternary.Meet(result, v)
	}
	_, hi := sel.MinMax()
	for i := 0; i < n.CaseCount(); i++ {
		if caseReachable(sel, uint64(i)) {
			merge(e.values[n.Case(i).ID()])
		}
	}
	if d := n.Default(); d != nil {
		// The default is reachable when the largest possible selector
		// value reaches past the last case.
		if !hi.FitsInUint64() || hi.Uint64() >= uint64(n.CaseCount()) {
			merge(e.values[d.ID()])
		}
	}
	if result == nil {
		return ternary.AllUnknown(n.BitCount())
	}
	return result
}

// caseReachable reports whether the selector value i is consistent with sel.
func caseReachable(sel ternary.Vector, i uint64) bool {
	for b := range sel {
		bit := b < 64 && i>>uint(b)&1 == 1
		if sel[b] == ternary.KnownOne && !bit || sel[b] == ternary.KnownZero && bit {
			return false
		}
	}
	return true
}

func (e *Ternary) evaluateOneHotSelect(n *ir.Node) ternary.Vector {
	sel := e.operand(n, 0)
	result := ternary.Vector(nil)
	for i := 0; i < n.CaseCount(); i++ {
		c := e.values[n.Case(i).ID()]
		masked := make(ternary.Vector, len(c))
		for b := range c {
			masked[b] = ternary.AndBit(sel[i], c[b])
		}
		if result == nil {
			result = masked
		} else {
			result = ternary.Or(result, masked)
		}
	}
	return result
}

func (e *Ternary) evaluatePrioritySelect(n *ir.Node) ternary.Vector {
	sel := e.operand(n, 0)
	var result ternary.Vector
	merge := func(v ternary.Vector) {
		if result == nil {
			result = v.Clone()
			return
		}
		result = ternary.Meet(result, v)
	}
	for i := 0; i < n.CaseCount(); i++ {
		switch sel[i] {
		case ternary.KnownZero:
			continue
		case ternary.KnownOne:
			merge(e.values[n.Case(i).ID()])
			return result
		default:
			merge(e.values[n.Case(i).ID()])
		}
	}
	// No selector bit is known one, so the all-zeros result is reachable.
	merge(ternary.FromBits(ir.ZeroBits(n.BitCount())))
	return result
}

// evaluateOneHot computes one_hot's ternary. Bit i of the result is set when
// input bit i is the first set bit in priority order; the extra top bit is
// set when no input bit is.
func evaluateOneHot(x ternary.Vector, lsbPrio bool) ternary.Vector {
	w := len(x)
	out := make(ternary.Vector, w+1)
	noneSoFar := ternary.KnownOne
	for k := 0; k < w; k++ {
		i := k
		if !lsbPrio {
			i = w - 1 - k
		}
		out[i] = ternary.AndBit(x[i], noneSoFar)
		noneSoFar = ternary.AndBit(noneSoFar, ternary.NotBit(x[i]))
	}
	out[w] = noneSoFar
	return out
}

func compareRanges(op ir.Op, a, b ternary.Vector) ternary.Value {
	aLo, aHi := a.MinMax()
	bLo, bHi := b.MinMax()
	switch op {
	case ir.OpUGt:
		return compareRanges(ir.OpULt, b, a)
	case ir.OpUGe:
		return compareRanges(ir.OpULe, b, a)
	case ir.OpULt:
		if aHi.Cmp(bLo) < 0 {
			return ternary.KnownOne
		}
		if aLo.Cmp(bHi) >= 0 {
			return ternary.KnownZero
		}
	case ir.OpULe:
		if aHi.Cmp(bLo) <= 0 {
			return ternary.KnownOne
		}
		if aLo.Cmp(bHi) > 0 {
			return ternary.KnownZero
		}
	}
	return ternary.Unknown
}

func reduce(op ir.Op, x ternary.Vector) ternary.Value {
	switch op {
	case ir.OpAndReduce:
		out := ternary.KnownOne
		for _, b := range x {
			out = ternary.AndBit(out, b)
		}
		return out
	case ir.OpOrReduce:
		out := ternary.KnownZero
		for _, b := range x {
			out = ternary.OrBit(out, b)
		}
		return out
	}
	out := ternary.KnownZero
	for _, b := range x {
		out = ternary.XorBit(out, b)
	}
	return out
}

func (e *Ternary) evaluateArithmetic(n *ir.Node) ternary.Vector {
	width := n.BitCount()
	a, aKnown := e.operand(n, 0).KnownValue()
	if n.Op() == ir.OpNeg {
		if aKnown {
			return ternary.FromBits(a.Neg())
		}
		return ternary.AllUnknown(width)
	}
	bVec := e.operand(n, 1)
	b, bKnown := bVec.KnownValue()
	switch {
	case aKnown && bKnown:
		switch n.Op() {
		case ir.OpAdd:
			return ternary.FromBits(a.Add(b))
		case ir.OpSub:
			return ternary.FromBits(a.Sub(b))
		case ir.OpShll:
			return ternary.FromBits(a.Shll(b))
		default:
			return ternary.FromBits(a.Shrl(b))
		}
	case bKnown && (n.Op() == ir.OpShll || n.Op() == ir.OpShrl):
		x := e.operand(n, 0)
		out := make(ternary.Vector, width)
		for i := range out {
			out[i] = ternary.KnownZero
		}
		if !b.FitsInUint64() || b.Uint64() >= uint64(width) {
			return out
		}
		amt := int(b.Uint64())
		for i := range out {
			src := i - amt
			if n.Op() == ir.OpShrl {
				src = i + amt
			}
			if src >= 0 && src < width {
				out[i] = x[src]
			}
		}
		return out
	}
	return ternary.AllUnknown(width)
}

// IsTracked reports whether n was present at the last Populate.
func (e *Ternary) IsTracked(n *ir.Node) bool {
	if n == nil || n.Function() != e.f {
		return false
	}
	_, ok := e.values[n.ID()]
	return ok
}

// GetTernary returns the propagated facts for n.
func (e *Ternary) GetTernary(n *ir.Node) (ternary.Vector, bool) {
	if !e.IsTracked(n) {
		return nil, false
	}
	return e.values[n.ID()].Clone(), true
}

// GetIntervals returns the hull of the values consistent with n's ternary.
func (e *Ternary) GetIntervals(n *ir.Node) interval.Set {
	t, ok := e.GetTernary(n)
	if !ok || !n.Type().IsBits() {
		return interval.Maximal(n.BitCount())
	}
	return interval.FromTernary(t)
}

// AtMostOneTrue holds when at most one of the bits is not known zero.
func (e *Ternary) AtMostOneTrue(bits []BitLocation) bool { return atMostOneTrue(e, bits) }

// AtLeastOneTrue holds when some bit is known one.
func (e *Ternary) AtLeastOneTrue(bits []BitLocation) bool { return atLeastOneTrue(e, bits) }

// KnownEquals compares known bit values.
func (e *Ternary) KnownEquals(a, b BitLocation) bool { return knownEquals(e, a, b) }

// KnownNotEquals compares known bit values.
func (e *Ternary) KnownNotEquals(a, b BitLocation) bool { return knownNotEquals(e, a, b) }

// Implies holds for a known-zero antecedent or a known-one consequent.
func (e *Ternary) Implies(a, b BitLocation) bool { return implies(e, a, b) }

// ImpliedNodeValue returns n's value when its ternary, with predicates on
// its own bits applied, is fully known.
func (e *Ternary) ImpliedNodeValue(given []Predicate, n *ir.Node) (ir.Bits, bool) {
	t, ok := e.ImpliedNodeTernary(given, n)
	if !ok {
		return ir.Bits{}, false
	}
	return t.KnownValue()
}

// ImpliedNodeTernary applies predicates on n's own bits to its ternary.
func (e *Ternary) ImpliedNodeTernary(given []Predicate, n *ir.Node) (ternary.Vector, bool) {
	if !e.IsTracked(n) {
		return nil, false
	}
	return impliedTernary(e, given, n)
}
