package query

import (
	"github.com/cchan/xlsynth/internal/interval"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

// Stateless answers queries from the structure of each node alone: literals
// are fully known and one_hot outputs have exactly one bit set. It needs no
// population and never goes stale as the graph is rewritten.
type Stateless struct{}

// NewStateless returns a stateless engine.
func NewStateless() *Stateless { return &Stateless{} }

var _ Engine = (*Stateless)(nil)

// Populate is a no-op.
func (s *Stateless) Populate(f *ir.FunctionBase) (ReachedFixpoint, error) {
	return Unchanged, nil
}

// IsTracked reports true for every live node.
func (s *Stateless) IsTracked(n *ir.Node) bool {
	return n != nil && !n.IsDead()
}

// GetTernary returns the literal value for literals and all unknown otherwise.
func (s *Stateless) GetTernary(n *ir.Node) (ternary.Vector, bool) {
	if !s.IsTracked(n) {
		return nil, false
	}
	if n.Op() == ir.OpLiteral {
		return ternary.FromBits(n.Value().Flatten()), true
	}
	return ternary.AllUnknown(n.BitCount()), true
}

// GetIntervals is precise for literals and maximal otherwise.
func (s *Stateless) GetIntervals(n *ir.Node) interval.Set {
	if n.Op() == ir.OpLiteral && n.Type().IsBits() {
		return interval.PreciseSet(n.Value().Bits())
	}
	return interval.Maximal(n.BitCount())
}

// oneHotCovers reports whether bits are distinct bits of a single one_hot
// node, and whether they cover all of its bits.
func oneHotCovers(bits []BitLocation) (within, all bool) {
	if len(bits) == 0 || bits[0].Node.Op() != ir.OpOneHot {
		return false, false
	}
	src := bits[0].Node
	seen := make(map[int]bool, len(bits))
	for _, b := range bits {
		if b.Node != src || seen[b.Bit] {
			return false, false
		}
		seen[b.Bit] = true
	}
	return true, len(seen) == src.BitCount()
}

// AtMostOneTrue holds for at most one possibly-set bit, or for bits drawn
// from the same one_hot.
func (s *Stateless) AtMostOneTrue(bits []BitLocation) bool {
	if atMostOneTrue(s, bits) {
		return true
	}
	within, _ := oneHotCovers(bits)
	return within
}

// AtLeastOneTrue holds for a known-one bit, or for all bits of a one_hot.
func (s *Stateless) AtLeastOneTrue(bits []BitLocation) bool {
	if atLeastOneTrue(s, bits) {
		return true
	}
	_, all := oneHotCovers(bits)
	return all
}

// KnownEquals compares known bit values.
func (s *Stateless) KnownEquals(a, b BitLocation) bool { return knownEquals(s, a, b) }

// KnownNotEquals compares known bit values.
func (s *Stateless) KnownNotEquals(a, b BitLocation) bool { return knownNotEquals(s, a, b) }

// Implies holds trivially for identical bits, a false antecedent or a true
// consequent.
func (s *Stateless) Implies(a, b BitLocation) bool { return implies(s, a, b) }

// ImpliedNodeValue returns n's value when it is a literal or when the
// predicates pin every bit of n directly.
func (s *Stateless) ImpliedNodeValue(given []Predicate, n *ir.Node) (ir.Bits, bool) {
	t, ok := s.ImpliedNodeTernary(given, n)
	if !ok {
		return ir.Bits{}, false
	}
	return t.KnownValue()
}

// ImpliedNodeTernary overlays predicates on n's own bits onto its ternary.
func (s *Stateless) ImpliedNodeTernary(given []Predicate, n *ir.Node) (ternary.Vector, bool) {
	return impliedTernary(s, given, n)
}

// impliedTernary is the ternary of n with any predicates naming n's own bits
// applied. Contradictory predicates yield no answer.
func impliedTernary(e Engine, given []Predicate, n *ir.Node) (ternary.Vector, bool) {
	t := ternaryOrUnknown(e, n).Clone()
	for _, p := range given {
		if p.Loc.Node != n {
			continue
		}
		v := ternary.FromBool(p.Value)
		if t[p.Loc.Bit] != ternary.Unknown && t[p.Loc.Bit] != v {
			return nil, false
		}
		t[p.Loc.Bit] = v
	}
	return t, true
}
