package ir

import (
	"fmt"
	"strings"
)

// TypeKind distinguishes bit vectors from tuples.
type TypeKind int

const (
	// KindBits is a fixed-width bit vector.
	KindBits TypeKind = iota + 1
	// KindTuple is an ordered aggregate of types.
	KindTuple
)

// Type is the result type of a node or the type of a value.
// Types are immutable once constructed.
type Type struct {
	kind  TypeKind
	width int
	elems []*Type
}

// BitsType returns the type bits[width].
func BitsType(width int) *Type {
	return &Type{kind: KindBits, width: width}
}

// TupleType returns the tuple type of the given element types.
func TupleType(elems ...*Type) *Type {
	return &Type{kind: KindTuple, elems: append([]*Type(nil), elems...)}
}

// EmptyTuple is the type of side-effecting nodes without a data result.
func EmptyTuple() *Type { return TupleType() }

// Kind returns the type category.
func (t *Type) Kind() TypeKind { return t.kind }

// IsBits reports whether t is a bit vector type.
func (t *Type) IsBits() bool { return t.kind == KindBits }

// IsTuple reports whether t is a tuple type.
func (t *Type) IsTuple() bool { return t.kind == KindTuple }

// Width returns the bit count of a bits type. It panics for tuples.
func (t *Type) Width() int {
	if t.kind != KindBits {
		panic(fmt.Sprintf("ir: Width called on %s", t))
	}
	return t.width
}

// Elements returns the tuple element types.
func (t *Type) Elements() []*Type { return t.elems }

// Element returns tuple element i.
func (t *Type) Element(i int) *Type { return t.elems[i] }

// FlatBitCount returns the number of bits of the flattened type.
func (t *Type) FlatBitCount() int {
	if t.kind == KindBits {
		return t.width
	}
	n := 0
	for _, e := range t.elems {
		n += e.FlatBitCount()
	}
	return n
}

// ElementOffset returns the flat bit offset (from bit 0) of tuple element i.
// Element 0 occupies the most significant bits of the flattened value.
func (t *Type) ElementOffset(i int) int {
	off := 0
	for j := len(t.elems) - 1; j > i; j-- {
		off += t.elems[j].FlatBitCount()
	}
	return off
}

// Equal reports structural type equality.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.kind != o.kind {
		return false
	}
	if t.kind == KindBits {
		return t.width == o.width
	}
	if len(t.elems) != len(o.elems) {
		return false
	}
	for i := range t.elems {
		if !t.elems[i].Equal(o.elems[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.kind == KindBits {
		return fmt.Sprintf("bits[%d]", t.width)
	}
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
