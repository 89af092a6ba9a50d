package ir

import (
	"fmt"
	"strings"
)

// Value is a typed constant: either a bit vector or a tuple of values.
type Value struct {
	tuple bool
	bits  Bits
	elems []Value
}

// BitsValue wraps a bit vector.
func BitsValue(b Bits) Value {
	return Value{bits: b}
}

// UValue returns a bits value of the given width.
func UValue(v uint64, width int) Value {
	return BitsValue(UBits(v, width))
}

// BoolValue returns a bits[1] value.
func BoolValue(v bool) Value {
	if v {
		return UValue(1, 1)
	}
	return UValue(0, 1)
}

// TupleValue builds a tuple from elems.
func TupleValue(elems ...Value) Value {
	return Value{tuple: true, elems: append([]Value(nil), elems...)}
}

// IsBits reports whether v is a bit vector.
func (v Value) IsBits() bool { return !v.tuple }

// IsTuple reports whether v is a tuple.
func (v Value) IsTuple() bool { return v.tuple }

// Bits returns the bit vector of a bits value.
func (v Value) Bits() Bits {
	if v.tuple {
		panic("ir: Bits called on tuple value " + v.String())
	}
	return v.bits
}

// Elements returns the elements of a tuple value.
func (v Value) Elements() []Value { return v.elems }

// Type returns the type of v.
func (v Value) Type() *Type {
	if !v.tuple {
		return BitsType(v.bits.Width())
	}
	ts := make([]*Type, len(v.elems))
	for i, e := range v.elems {
		ts[i] = e.Type()
	}
	return TupleType(ts...)
}

// Equal reports exact equality of type and contents.
func (v Value) Equal(o Value) bool {
	if v.tuple != o.tuple {
		return false
	}
	if !v.tuple {
		return v.bits.Equal(o.bits)
	}
	if len(v.elems) != len(o.elems) {
		return false
	}
	for i := range v.elems {
		if !v.elems[i].Equal(o.elems[i]) {
			return false
		}
	}
	return true
}

// Flatten concatenates the leaves of v; element 0 is most significant.
func (v Value) Flatten() Bits {
	if !v.tuple {
		return v.bits
	}
	parts := make([]Bits, len(v.elems))
	for i, e := range v.elems {
		parts[i] = e.Flatten()
	}
	return ConcatBits(parts...)
}

// UnflattenValue rebuilds a value of type t from its flattened bits.
func UnflattenValue(t *Type, b Bits) Value {
	if t.IsBits() {
		return BitsValue(b)
	}
	elems := make([]Value, len(t.elems))
	for i, et := range t.elems {
		elems[i] = UnflattenValue(et, b.Slice(t.ElementOffset(i), et.FlatBitCount()))
	}
	return TupleValue(elems...)
}

// ZeroValue returns the all-zeros value of type t.
func ZeroValue(t *Type) Value {
	return UnflattenValue(t, ZeroBits(t.FlatBitCount()))
}

// AllOnesValue returns the all-ones value of type t.
func AllOnesValue(t *Type) Value {
	return UnflattenValue(t, AllOnesBits(t.FlatBitCount()))
}

// String renders v in the typed textual form, e.g. bits[8]:42 or
// (bits[1]:1, bits[4]:3).
func (v Value) String() string {
	if !v.tuple {
		return fmt.Sprintf("bits[%d]:%s", v.bits.Width(), v.bits.String())
	}
	parts := make([]string, len(v.elems))
	for i, e := range v.elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ParseValue parses the typed textual form produced by String.
func ParseValue(s string) (Value, error) {
	p := &valueParser{text: strings.TrimSpace(s)}
	v, err := p.parse(nil)
	if err != nil {
		return Value{}, fmt.Errorf("parse value %q: %w", s, err)
	}
	if rest := strings.TrimSpace(p.text[p.pos:]); rest != "" {
		return Value{}, fmt.Errorf("parse value %q: trailing text %q", s, rest)
	}
	return v, nil
}

// ParseTypedValue parses s against the expected type t. Bits leaves may be
// written as bare numbers ("42", "0xff") or in typed form.
func ParseTypedValue(s string, t *Type) (Value, error) {
	p := &valueParser{text: strings.TrimSpace(s)}
	v, err := p.parse(t)
	if err != nil {
		return Value{}, fmt.Errorf("parse value %q: %w", s, err)
	}
	if rest := strings.TrimSpace(p.text[p.pos:]); rest != "" {
		return Value{}, fmt.Errorf("parse value %q: trailing text %q", s, rest)
	}
	if !v.Type().Equal(t) {
		return Value{}, fmt.Errorf("parse value %q: got type %s, want %s", s, v.Type(), t)
	}
	return v, nil
}

type valueParser struct {
	text string
	pos  int
}

func (p *valueParser) skipSpace() {
	for p.pos < len(p.text) && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t' || p.text[p.pos] == '\n') {
		p.pos++
	}
}

func (p *valueParser) parse(t *Type) (Value, error) {
	p.skipSpace()
	if p.pos >= len(p.text) {
		return Value{}, fmt.Errorf("unexpected end of input")
	}
	if p.text[p.pos] == '(' {
		return p.parseTuple(t)
	}
	if t != nil && t.IsTuple() {
		return Value{}, fmt.Errorf("expected tuple for type %s", t)
	}
	end := p.pos
	for end < len(p.text) && p.text[end] != ',' && p.text[end] != ')' {
		end++
	}
	tok := strings.TrimSpace(p.text[p.pos:end])
	p.pos = end
	if strings.HasPrefix(tok, "bits[") {
		colon := strings.Index(tok, "]:")
		if colon < 0 {
			return Value{}, fmt.Errorf("malformed bits value %q", tok)
		}
		var width int
		if _, err := fmt.Sscanf(tok[len("bits["):colon], "%d", &width); err != nil {
			return Value{}, fmt.Errorf("malformed width in %q", tok)
		}
		b, err := ParseBits(tok[colon+2:], width)
		if err != nil {
			return Value{}, err
		}
		return BitsValue(b), nil
	}
	if t == nil {
		return Value{}, fmt.Errorf("untyped number %q", tok)
	}
	b, err := ParseBits(tok, t.Width())
	if err != nil {
		return Value{}, err
	}
	return BitsValue(b), nil
}

func (p *valueParser) parseTuple(t *Type) (Value, error) {
	p.pos++ // '('
	var elems []Value
	for i := 0; ; i++ {
		p.skipSpace()
		if p.pos < len(p.text) && p.text[p.pos] == ')' {
			p.pos++
			break
		}
		var et *Type
		if t != nil {
			if !t.IsTuple() || i >= len(t.elems) {
				return Value{}, fmt.Errorf("too many tuple elements for type %s", t)
			}
			et = t.elems[i]
		}
		e, err := p.parse(et)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, e)
		p.skipSpace()
		if p.pos < len(p.text) && p.text[p.pos] == ',' {
			p.pos++
		}
	}
	return TupleValue(elems...), nil
}
