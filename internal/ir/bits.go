package ir

import (
	"fmt"
	"math/big"
	"strings"
)

// Bits is an immutable fixed-width bit vector. Bit 0 is the least
// significant bit. The zero value is a zero-width vector.
//
// The underlying big.Int is never mutated after construction, so Bits can be
// copied and shared freely.
type Bits struct {
	width int
	val   *big.Int
}

var bigOne = big.NewInt(1)

func mask(width int) *big.Int {
	m := new(big.Int).Lsh(bigOne, uint(width))
	return m.Sub(m, bigOne)
}

// newBits takes ownership of v and truncates it to width bits.
func newBits(width int, v *big.Int) Bits {
	if width < 0 {
		panic(fmt.Sprintf("ir: negative bit width %d", width))
	}
	if v == nil || v.Sign() == 0 {
		return Bits{width: width}
	}
	if v.Sign() < 0 || v.BitLen() > width {
		v.And(v, mask(width))
	}
	return Bits{width: width, val: v}
}

// NewBits returns a width-bit vector holding v modulo 2^width. Negative
// values are taken in two's complement.
func NewBits(width int, v *big.Int) Bits {
	if v == nil {
		return Bits{width: width}
	}
	return newBits(width, new(big.Int).Set(v))
}

// UBits returns a width-bit vector holding v truncated to width bits.
func UBits(v uint64, width int) Bits {
	return newBits(width, new(big.Int).SetUint64(v))
}

// SBits returns a width-bit vector holding the two's complement of v.
func SBits(v int64, width int) Bits {
	return newBits(width, big.NewInt(v))
}

// ZeroBits returns an all-zeros vector.
func ZeroBits(width int) Bits {
	return Bits{width: width}
}

// AllOnesBits returns an all-ones vector.
func AllOnesBits(width int) Bits {
	return newBits(width, mask(width))
}

// BitsFromBools builds a vector where bools[i] is bit i.
func BitsFromBools(bools []bool) Bits {
	v := new(big.Int)
	for i, b := range bools {
		if b {
			v.SetBit(v, i, 1)
		}
	}
	return newBits(len(bools), v)
}

func (b Bits) big() *big.Int {
	if b.val == nil {
		return new(big.Int)
	}
	return b.val
}

// Width returns the number of bits.
func (b Bits) Width() int { return b.width }

// Bit reports whether bit i is set.
func (b Bits) Bit(i int) bool {
	if i < 0 || i >= b.width {
		panic(fmt.Sprintf("ir: bit index %d out of range for bits[%d]", i, b.width))
	}
	return b.val != nil && b.val.Bit(i) == 1
}

// BigInt returns a copy of the unsigned value.
func (b Bits) BigInt() *big.Int {
	return new(big.Int).Set(b.big())
}

// Uint64 returns the low 64 bits of the value.
func (b Bits) Uint64() uint64 {
	if b.val == nil {
		return 0
	}
	if b.val.IsUint64() {
		return b.val.Uint64()
	}
	return new(big.Int).And(b.val, mask(64)).Uint64()
}

// FitsInUint64 reports whether the unsigned value is representable as a uint64.
func (b Bits) FitsInUint64() bool {
	return b.val == nil || b.val.IsUint64()
}

// IsZero reports whether every bit is zero. A zero-width vector is zero.
func (b Bits) IsZero() bool {
	return b.val == nil || b.val.Sign() == 0
}

// IsAllOnes reports whether every bit is one. A zero-width vector is all ones.
func (b Bits) IsAllOnes() bool {
	if b.width == 0 {
		return true
	}
	return b.big().Cmp(mask(b.width)) == 0
}

// PopCount returns the number of set bits.
func (b Bits) PopCount() int {
	n := 0
	for i := 0; i < b.width; i++ {
		if b.Bit(i) {
			n++
		}
	}
	return n
}

// Equal reports whether both width and value match.
func (b Bits) Equal(o Bits) bool {
	return b.width == o.width && b.big().Cmp(o.big()) == 0
}

// Cmp compares the unsigned values of b and o.
func (b Bits) Cmp(o Bits) int {
	return b.big().Cmp(o.big())
}

// Slice returns width bits starting at bit start.
func (b Bits) Slice(start, width int) Bits {
	if start < 0 || width < 0 || start+width > b.width {
		panic(fmt.Sprintf("ir: slice [%d +: %d] out of range for bits[%d]", start, width, b.width))
	}
	return newBits(width, new(big.Int).Rsh(b.big(), uint(start)))
}

// WithBit returns a copy of b with bit i set to v.
func (b Bits) WithBit(i int, v bool) Bits {
	bit := uint(0)
	if v {
		bit = 1
	}
	return newBits(b.width, new(big.Int).SetBit(b.big(), i, bit))
}

// OneHot returns a vector one bit wider than b with exactly one bit set:
// the first set bit of b in priority order, or the extra top bit when b is
// zero.
func (b Bits) OneHot(lsbPrio bool) Bits {
	for k := 0; k < b.width; k++ {
		i := k
		if !lsbPrio {
			i = b.width - 1 - k
		}
		if b.Bit(i) {
			return ZeroBits(b.width+1).WithBit(i, true)
		}
	}
	return ZeroBits(b.width+1).WithBit(b.width, true)
}

// ConcatBits concatenates parts; parts[0] occupies the most significant bits.
func ConcatBits(parts ...Bits) Bits {
	v := new(big.Int)
	width := 0
	for _, p := range parts {
		v.Lsh(v, uint(p.width))
		v.Or(v, p.big())
		width += p.width
	}
	return newBits(width, v)
}

func (b Bits) checkWidth(o Bits, op string) {
	if b.width != o.width {
		panic(fmt.Sprintf("ir: %s width mismatch: bits[%d] vs bits[%d]", op, b.width, o.width))
	}
}

// And returns the bitwise AND.
func (b Bits) And(o Bits) Bits {
	b.checkWidth(o, "and")
	return newBits(b.width, new(big.Int).And(b.big(), o.big()))
}

// Or returns the bitwise OR.
func (b Bits) Or(o Bits) Bits {
	b.checkWidth(o, "or")
	return newBits(b.width, new(big.Int).Or(b.big(), o.big()))
}

// Xor returns the bitwise XOR.
func (b Bits) Xor(o Bits) Bits {
	b.checkWidth(o, "xor")
	return newBits(b.width, new(big.Int).Xor(b.big(), o.big()))
}

// Not returns the bitwise complement.
func (b Bits) Not() Bits {
	return newBits(b.width, new(big.Int).Xor(b.big(), mask(b.width)))
}

// Add returns b+o modulo 2^width.
func (b Bits) Add(o Bits) Bits {
	b.checkWidth(o, "add")
	return newBits(b.width, new(big.Int).Add(b.big(), o.big()))
}

// Sub returns b-o modulo 2^width.
func (b Bits) Sub(o Bits) Bits {
	b.checkWidth(o, "sub")
	return newBits(b.width, new(big.Int).Sub(b.big(), o.big()))
}

// Neg returns the two's complement negation.
func (b Bits) Neg() Bits {
	return newBits(b.width, new(big.Int).Neg(b.big()))
}

// Shll shifts left by amount; shifting by width or more yields zero.
func (b Bits) Shll(amount Bits) Bits {
	if !amount.FitsInUint64() || amount.Uint64() >= uint64(b.width) {
		return ZeroBits(b.width)
	}
	return newBits(b.width, new(big.Int).Lsh(b.big(), uint(amount.Uint64())))
}

// Shrl shifts right logically by amount.
func (b Bits) Shrl(amount Bits) Bits {
	if !amount.FitsInUint64() || amount.Uint64() >= uint64(b.width) {
		return ZeroBits(b.width)
	}
	return newBits(b.width, new(big.Int).Rsh(b.big(), uint(amount.Uint64())))
}

// ZeroExtend widens b to width bits, filling with zeros.
func (b Bits) ZeroExtend(width int) Bits {
	return newBits(width, b.BigInt())
}

// SignExtend widens b to width bits, replicating the most significant bit.
func (b Bits) SignExtend(width int) Bits {
	if b.width == 0 || !b.Bit(b.width-1) {
		return b.ZeroExtend(width)
	}
	v := new(big.Int).Xor(mask(width), mask(b.width))
	return newBits(width, v.Or(v, b.big()))
}

// String formats the value in decimal.
func (b Bits) String() string {
	return b.big().String()
}

// BinaryString formats the value as 0b-prefixed binary, MSB first, with an
// underscore every four bits.
func (b Bits) BinaryString() string {
	if b.width == 0 {
		return "0b0"
	}
	var sb strings.Builder
	sb.WriteString("0b")
	for i := b.width - 1; i >= 0; i-- {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		if i > 0 && i%4 == 0 {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// ParseBits parses a decimal, 0x-hex or 0b-binary number into width bits.
// A leading minus sign denotes two's complement. Underscores are ignored.
func ParseBits(s string, width int) (Bits, error) {
	text := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	neg := strings.HasPrefix(text, "-")
	if neg {
		text = text[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base, text = 16, text[2:]
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base, text = 2, text[2:]
	}
	v, ok := new(big.Int).SetString(text, base)
	if !ok {
		return Bits{}, fmt.Errorf("invalid number %q", s)
	}
	if !neg && v.BitLen() > width {
		return Bits{}, fmt.Errorf("value %s does not fit in %d bits", s, width)
	}
	if neg {
		v.Neg(v)
	}
	return newBits(width, v), nil
}
