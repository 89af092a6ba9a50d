package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitsConstruction(t *testing.T) {
	tests := []struct {
		name  string
		bits  Bits
		width int
		value string
	}{
		{"unsigned", UBits(5, 8), 8, "5"},
		{"truncated", UBits(0x1ff, 8), 8, "255"},
		{"negative", SBits(-1, 4), 4, "15"},
		{"zero width", ZeroBits(0), 0, "0"},
		{"all ones", AllOnesBits(3), 3, "7"},
		{"from bools", BitsFromBools([]bool{true, false, true}), 3, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.width, tt.bits.Width())
			assert.Equal(t, tt.value, tt.bits.String())
		})
	}
}

func TestBitsSliceAndConcat(t *testing.T) {
	b := UBits(0b1011_0110, 8)

	assert.True(t, b.Slice(1, 2).Equal(UBits(0b11, 2)))
	assert.True(t, b.Slice(4, 4).Equal(UBits(0b1011, 4)))

	// Operand 0 is most significant.
	c := ConcatBits(UBits(0b10, 2), UBits(0b011, 3))
	assert.True(t, c.Equal(UBits(0b10011, 5)), c.BinaryString())
	assert.Equal(t, "0b1_0011", c.BinaryString())
}

func TestBitsArithmetic(t *testing.T) {
	a := UBits(200, 8)
	b := UBits(100, 8)

	assert.Equal(t, "44", a.Add(b).String())
	assert.Equal(t, "156", b.Sub(a).String())
	assert.Equal(t, "56", a.Neg().String())
	assert.Equal(t, "55", a.Not().String())
	assert.Equal(t, "64", a.And(b).String())
	assert.Equal(t, "236", a.Or(b).String())
	assert.Equal(t, "172", a.Xor(b).String())
	assert.Equal(t, "144", a.Shll(UBits(1, 3)).String())
	assert.Equal(t, "0", a.Shll(UBits(8, 4)).String())
	assert.Equal(t, "25", a.Shrl(UBits(3, 2)).String())
}

func TestBitsExtend(t *testing.T) {
	assert.Equal(t, "5", UBits(5, 3).ZeroExtend(8).String())
	assert.Equal(t, "253", UBits(5, 3).SignExtend(8).String())
	assert.Equal(t, "3", UBits(3, 3).SignExtend(8).String())
	assert.True(t, UBits(1, 1).SignExtend(4).IsAllOnes())
}

func TestBitsPredicates(t *testing.T) {
	assert.True(t, ZeroBits(0).IsZero())
	assert.True(t, ZeroBits(0).IsAllOnes())
	assert.True(t, AllOnesBits(70).IsAllOnes())
	assert.Equal(t, 70, AllOnesBits(70).PopCount())
	assert.False(t, AllOnesBits(70).FitsInUint64())
	assert.True(t, UBits(0b100, 3).Bit(2))
	assert.False(t, UBits(0b100, 3).Bit(0))
	assert.True(t, UBits(0, 3).WithBit(1, true).Equal(UBits(2, 3)))
}

func TestParseBits(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"42", 8, "42"},
		{"0xff", 8, "255"},
		{"0b1010_1010", 8, "170"},
		{"-1", 4, "15"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			b, err := ParseBits(tt.text, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.String())
		})
	}

	_, err := ParseBits("256", 8)
	assert.Error(t, err)
	_, err = ParseBits("zz", 8)
	assert.Error(t, err)
}

func TestBitsOneHot(t *testing.T) {
	x := UBits(0b0110, 4)
	assert.Equal(t, "0b0_0010", x.OneHot(true).BinaryString())
	assert.Equal(t, "0b0_0100", x.OneHot(false).BinaryString())
	assert.Equal(t, "0b1_0000", ZeroBits(4).OneHot(true).BinaryString())
}
