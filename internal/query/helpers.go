package query

import (
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

// Derived queries shared by every engine.

// IsKnown reports whether the bit at loc is known.
func IsKnown(e Engine, loc BitLocation) bool {
	t, ok := e.GetTernary(loc.Node)
	return ok && t.IsKnown(loc.Bit)
}

// IsOne reports whether the bit at loc is known to be 1.
func IsOne(e Engine, loc BitLocation) bool {
	t, ok := e.GetTernary(loc.Node)
	return ok && t.IsKnownOne(loc.Bit)
}

// IsZero reports whether the bit at loc is known to be 0.
func IsZero(e Engine, loc BitLocation) bool {
	t, ok := e.GetTernary(loc.Node)
	return ok && t.IsKnownZero(loc.Bit)
}

// IsFullyKnown reports whether every bit of n is known.
func IsFullyKnown(e Engine, n *ir.Node) bool {
	t, ok := e.GetTernary(n)
	return ok && t.IsFullyKnown()
}

// KnownValueAsBits returns the flattened value of n when fully known.
func KnownValueAsBits(e Engine, n *ir.Node) (ir.Bits, bool) {
	t, ok := e.GetTernary(n)
	if !ok {
		return ir.Bits{}, false
	}
	return t.KnownValue()
}

// KnownValue returns the value of n, tuple-shaped when n is a tuple.
func KnownValue(e Engine, n *ir.Node) (ir.Value, bool) {
	b, ok := KnownValueAsBits(e, n)
	if !ok {
		return ir.Value{}, false
	}
	return ir.UnflattenValue(n.Type(), b), true
}

// IsAllZeros reports whether n is known to be zero.
func IsAllZeros(e Engine, n *ir.Node) bool {
	t, ok := e.GetTernary(n)
	return ok && t.AllKnownZero()
}

// IsAllOnes reports whether every bit of n is known to be 1.
func IsAllOnes(e Engine, n *ir.Node) bool {
	t, ok := e.GetTernary(n)
	return ok && t.AllKnownOne()
}

// AtMostOneBitTrue reports whether at most one bit of n can be 1.
func AtMostOneBitTrue(e Engine, n *ir.Node) bool {
	return e.AtMostOneTrue(BitsOf(n))
}

// AtLeastOneBitTrue reports whether at least one bit of n must be 1.
func AtLeastOneBitTrue(e Engine, n *ir.Node) bool {
	return e.AtLeastOneTrue(BitsOf(n))
}

// ExactlyOneBitUnknown reports whether all but one bit of n are known.
func ExactlyOneBitUnknown(e Engine, n *ir.Node) bool {
	t, ok := e.GetTernary(n)
	return ok && len(t)-t.KnownCount() == 1
}

// ternaryOrUnknown returns the engine's vector for n, or all unknown.
func ternaryOrUnknown(e Engine, n *ir.Node) ternary.Vector {
	if t, ok := e.GetTernary(n); ok {
		return t
	}
	return ternary.AllUnknown(n.BitCount())
}

// bitValue returns the ternary value of one bit.
func bitValue(e Engine, loc BitLocation) ternary.Value {
	t, ok := e.GetTernary(loc.Node)
	if !ok {
		return ternary.Unknown
	}
	return t[loc.Bit]
}

// The helpers below answer relational questions from known bit values alone.

func knownEquals(e Engine, a, b BitLocation) bool {
	if a == b {
		return true
	}
	va, vb := bitValue(e, a), bitValue(e, b)
	return va != ternary.Unknown && va == vb
}

func knownNotEquals(e Engine, a, b BitLocation) bool {
	va, vb := bitValue(e, a), bitValue(e, b)
	return va != ternary.Unknown && vb != ternary.Unknown && va != vb
}

func implies(e Engine, a, b BitLocation) bool {
	return a == b || bitValue(e, a) == ternary.KnownZero || bitValue(e, b) == ternary.KnownOne
}

func atMostOneTrue(e Engine, bits []BitLocation) bool {
	possible := 0
	for _, loc := range bits {
		if bitValue(e, loc) != ternary.KnownZero {
			possible++
		}
	}
	return possible <= 1
}

func atLeastOneTrue(e Engine, bits []BitLocation) bool {
	for _, loc := range bits {
		if bitValue(e, loc) == ternary.KnownOne {
			return true
		}
	}
	return false
}
