package ternary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/ir"
)

func TestVectorString(t *testing.T) {
	v := Vector{KnownZero, Unknown, KnownOne}
	assert.Equal(t, "0b1X0", v.String())
	assert.Equal(t, 2, v.KnownCount())
	assert.False(t, v.IsFullyKnown())
}

func TestFromBitsAndKnownValue(t *testing.T) {
	b := ir.UBits(0b1010, 4)
	v := FromBits(b)
	assert.Equal(t, "0b1010", v.String())
	got, ok := v.KnownValue()
	require.True(t, ok)
	assert.True(t, got.Equal(b))

	_, ok = AllUnknown(2).KnownValue()
	assert.False(t, ok)
}

func TestFromKnownBitsRoundTrip(t *testing.T) {
	v := FromKnownBits(ir.UBits(0b0110, 4), ir.UBits(0b0100, 4))
	assert.Equal(t, "0bX10X", v.String())
	known, value := v.KnownBits()
	assert.Equal(t, "6", known.String())
	assert.Equal(t, "4", value.String())
}

func TestUnion(t *testing.T) {
	a := Vector{KnownOne, Unknown, Unknown}
	b := Vector{Unknown, KnownZero, Unknown}
	u, err := Union(a, b)
	require.NoError(t, err)
	assert.Equal(t, "0bX01", u.String())

	_, err = Union(Vector{KnownOne}, Vector{KnownZero})
	assert.Error(t, err)
}

func TestMeet(t *testing.T) {
	a := Vector{KnownOne, KnownZero, KnownOne}
	b := Vector{KnownOne, KnownOne, Unknown}
	assert.Equal(t, "0bXX1", Meet(a, b).String())
}

func TestBitwiseOps(t *testing.T) {
	a := Vector{KnownZero, KnownOne, Unknown, Unknown}
	b := Vector{Unknown, KnownOne, KnownZero, KnownOne}

	assert.Equal(t, "0bX010", And(a, b).String())
	assert.Equal(t, "0b1X1X", Or(a, b).String())
	assert.Equal(t, "0bXX0X", Xor(a, b).String())
	assert.Equal(t, "0bXX01", Not(a).String())
}

func TestConcatAndSlice(t *testing.T) {
	hi := Vector{KnownOne}
	lo := Vector{KnownZero, Unknown}
	c := Concat(hi, lo)
	assert.Equal(t, "0b1X0", c.String())
	assert.Equal(t, "0b1X", c.Slice(1, 2).String())
}

func TestMinMax(t *testing.T) {
	lo, hi := Vector{Unknown, KnownOne, KnownZero}.MinMax()
	assert.Equal(t, "2", lo.String())
	assert.Equal(t, "3", hi.String())
}
