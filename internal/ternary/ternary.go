// Package ternary implements bit vectors over {0, 1, X} used for
// conservative bit-level reasoning about IR nodes.
package ternary

import (
	"fmt"
	"strings"

	"github.com/cchan/xlsynth/internal/ir"
)

// Value is the abstract state of a single bit.
type Value int8

const (
	// Unknown means the bit may be either 0 or 1.
	Unknown Value = iota
	// KnownZero means the bit is always 0.
	KnownZero
	// KnownOne means the bit is always 1.
	KnownOne
)

// FromBool returns the known value for b.
func FromBool(b bool) Value {
	if b {
		return KnownOne
	}
	return KnownZero
}

func (v Value) String() string {
	switch v {
	case KnownZero:
		return "0"
	case KnownOne:
		return "1"
	}
	return "X"
}

// Vector is a ternary bit vector; index 0 is the least significant bit.
type Vector []Value

// AllUnknown returns a width-bit vector of unknown bits.
func AllUnknown(width int) Vector {
	return make(Vector, width)
}

// FromBits returns a fully known vector equal to b.
func FromBits(b ir.Bits) Vector {
	v := make(Vector, b.Width())
	for i := range v {
		v[i] = FromBool(b.Bit(i))
	}
	return v
}

// FromKnownBits builds a vector from a mask of known bits and their values.
func FromKnownBits(known, value ir.Bits) Vector {
	v := make(Vector, known.Width())
	for i := range v {
		if known.Bit(i) {
			v[i] = FromBool(value.Bit(i))
		}
	}
	return v
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	return append(Vector(nil), v...)
}

// IsKnown reports whether bit i is known.
func (v Vector) IsKnown(i int) bool { return v[i] != Unknown }

// IsKnownOne reports whether bit i is known to be 1.
func (v Vector) IsKnownOne(i int) bool { return v[i] == KnownOne }

// IsKnownZero reports whether bit i is known to be 0.
func (v Vector) IsKnownZero(i int) bool { return v[i] == KnownZero }

// IsFullyKnown reports whether every bit is known.
func (v Vector) IsFullyKnown() bool {
	for _, b := range v {
		if b == Unknown {
			return false
		}
	}
	return true
}

// AllKnownZero reports whether every bit is known to be 0.
func (v Vector) AllKnownZero() bool {
	for _, b := range v {
		if b != KnownZero {
			return false
		}
	}
	return true
}

// AllKnownOne reports whether every bit is known to be 1.
func (v Vector) AllKnownOne() bool {
	for _, b := range v {
		if b != KnownOne {
			return false
		}
	}
	return true
}

// KnownCount returns the number of known bits.
func (v Vector) KnownCount() int {
	n := 0
	for _, b := range v {
		if b != Unknown {
			n++
		}
	}
	return n
}

// KnownValue returns the value of a fully known vector.
func (v Vector) KnownValue() (ir.Bits, bool) {
	if !v.IsFullyKnown() {
		return ir.Bits{}, false
	}
	bools := make([]bool, len(v))
	for i, b := range v {
		bools[i] = b == KnownOne
	}
	return ir.BitsFromBools(bools), true
}

// KnownBits returns the mask of known bits and their values; unknown bits
// read as zero in the value.
func (v Vector) KnownBits() (known, value ir.Bits) {
	k := make([]bool, len(v))
	val := make([]bool, len(v))
	for i, b := range v {
		k[i] = b != Unknown
		val[i] = b == KnownOne
	}
	return ir.BitsFromBools(k), ir.BitsFromBools(val)
}

// Equal reports element-wise equality.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the vector MSB first, e.g. 0b1X0.
func (v Vector) String() string {
	var sb strings.Builder
	sb.WriteString("0b")
	for i := len(v) - 1; i >= 0; i-- {
		sb.WriteString(v[i].String())
	}
	return sb.String()
}

// Slice returns width bits starting at start.
func (v Vector) Slice(start, width int) Vector {
	return v[start : start+width].Clone()
}

// Concat concatenates parts; parts[0] is most significant.
func Concat(parts ...Vector) Vector {
	var out Vector
	for i := len(parts) - 1; i >= 0; i-- {
		out = append(out, parts[i]...)
	}
	return out
}

// Union combines two facts about the same value: a bit is known if either
// side knows it. Contradicting known bits are an error.
func Union(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("ternary union of widths %d and %d", len(a), len(b))
	}
	out := a.Clone()
	for i := range b {
		switch {
		case b[i] == Unknown:
		case out[i] == Unknown:
			out[i] = b[i]
		case out[i] != b[i]:
			return nil, fmt.Errorf("ternary union conflict at bit %d: %s vs %s", i, a, b)
		}
	}
	return out, nil
}

// Meet returns what is known about a value that is either a or b: bits on
// which both agree stay known.
func Meet(a, b Vector) Vector {
	out := a.Clone()
	for i := range out {
		if out[i] != b[i] {
			out[i] = Unknown
		}
	}
	return out
}

// Not complements each known bit.
func Not(a Vector) Vector {
	out := a.Clone()
	for i, b := range out {
		switch b {
		case KnownZero:
			out[i] = KnownOne
		case KnownOne:
			out[i] = KnownZero
		}
	}
	return out
}

// AndBit is the ternary AND of two bits.
func AndBit(a, b Value) Value {
	if a == KnownZero || b == KnownZero {
		return KnownZero
	}
	if a == KnownOne && b == KnownOne {
		return KnownOne
	}
	return Unknown
}

// OrBit is the ternary OR of two bits.
func OrBit(a, b Value) Value {
	if a == KnownOne || b == KnownOne {
		return KnownOne
	}
	if a == KnownZero && b == KnownZero {
		return KnownZero
	}
	return Unknown
}

// XorBit is the ternary XOR of two bits.
func XorBit(a, b Value) Value {
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return FromBool(a != b)
}

// NotBit is the ternary complement of a bit.
func NotBit(a Value) Value {
	switch a {
	case KnownZero:
		return KnownOne
	case KnownOne:
		return KnownZero
	}
	return Unknown
}

func bitwise(f func(a, b Value) Value, vs []Vector) Vector {
	out := vs[0].Clone()
	for _, v := range vs[1:] {
		for i := range out {
			out[i] = f(out[i], v[i])
		}
	}
	return out
}

// And is the bitwise ternary AND of one or more equal-width vectors.
func And(vs ...Vector) Vector { return bitwise(AndBit, vs) }

// Or is the bitwise ternary OR of one or more equal-width vectors.
func Or(vs ...Vector) Vector { return bitwise(OrBit, vs) }

// Xor is the bitwise ternary XOR of one or more equal-width vectors.
func Xor(vs ...Vector) Vector { return bitwise(XorBit, vs) }

// MinMax returns the smallest and largest unsigned values consistent with v.
func (v Vector) MinMax() (ir.Bits, ir.Bits) {
	lo := make([]bool, len(v))
	hi := make([]bool, len(v))
	for i, b := range v {
		lo[i] = b == KnownOne
		hi[i] = b != KnownZero
	}
	return ir.BitsFromBools(lo), ir.BitsFromBools(hi)
}
