package query

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/interval"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

// Union combines several engines. A fact proven by any member holds for the
// union, so every query is at least as precise as each member's answer.
type Union struct {
	engines []Engine
}

// NewUnion combines engines in the given order.
func NewUnion(engines ...Engine) *Union {
	return &Union{engines: engines}
}

// NewDefault returns the engine passes use: stateless facts united with
// ternary propagation.
func NewDefault() *Union {
	return NewUnion(NewStateless(), NewTernary())
}

var _ Engine = (*Union)(nil)

// Engines returns the members.
func (u *Union) Engines() []Engine { return u.engines }

// Populate populates every member and meets their statuses.
func (u *Union) Populate(f *ir.FunctionBase) (ReachedFixpoint, error) {
	status := Unchanged
	for _, e := range u.engines {
		s, err := e.Populate(f)
		if err != nil {
			return Unknown, err
		}
		status = status.Meet(s)
	}
	return status, nil
}

// IsTracked reports whether any member tracks n.
func (u *Union) IsTracked(n *ir.Node) bool {
	for _, e := range u.engines {
		if e.IsTracked(n) {
			return true
		}
	}
	return false
}

// GetTernary unites the members' known bits. Members disagreeing about a
// known bit is an analysis bug and panics.
func (u *Union) GetTernary(n *ir.Node) (ternary.Vector, bool) {
	if !u.IsTracked(n) {
		return nil, false
	}
	out := ternary.AllUnknown(n.BitCount())
	for _, e := range u.engines {
		t, ok := e.GetTernary(n)
		if !ok {
			continue
		}
		merged, err := ternary.Union(out, t)
		if err != nil {
			panic(fmt.Sprintf("query engines disagree on %s: %v", n.Name(), err))
		}
		out = merged
	}
	return out, true
}

// GetIntervals intersects the tracked members' interval sets.
func (u *Union) GetIntervals(n *ir.Node) interval.Set {
	out := interval.Maximal(n.BitCount())
	for _, e := range u.engines {
		if e.IsTracked(n) {
			out = interval.Intersect(out, e.GetIntervals(n))
		}
	}
	return out
}

// AtMostOneTrue holds if any member proves it, or if the united ternary does.
func (u *Union) AtMostOneTrue(bits []BitLocation) bool {
	for _, e := range u.engines {
		if e.AtMostOneTrue(bits) {
			return true
		}
	}
	return atMostOneTrue(u, bits)
}

// AtLeastOneTrue holds if any member proves it, or if the united ternary does.
func (u *Union) AtLeastOneTrue(bits []BitLocation) bool {
	for _, e := range u.engines {
		if e.AtLeastOneTrue(bits) {
			return true
		}
	}
	return atLeastOneTrue(u, bits)
}

// KnownEquals holds if any member proves it.
func (u *Union) KnownEquals(a, b BitLocation) bool {
	for _, e := range u.engines {
		if e.KnownEquals(a, b) {
			return true
		}
	}
	return knownEquals(u, a, b)
}

// KnownNotEquals holds if any member proves it.
func (u *Union) KnownNotEquals(a, b BitLocation) bool {
	for _, e := range u.engines {
		if e.KnownNotEquals(a, b) {
			return true
		}
	}
	return knownNotEquals(u, a, b)
}

// Implies holds if any member proves it.
func (u *Union) Implies(a, b BitLocation) bool {
	for _, e := range u.engines {
		if e.Implies(a, b) {
			return true
		}
	}
	return implies(u, a, b)
}

// ImpliedNodeValue returns the first member's answer, falling back to the
// united ternary.
func (u *Union) ImpliedNodeValue(given []Predicate, n *ir.Node) (ir.Bits, bool) {
	for _, e := range u.engines {
		if v, ok := e.ImpliedNodeValue(given, n); ok {
			return v, true
		}
	}
	t, ok := u.ImpliedNodeTernary(given, n)
	if !ok {
		return ir.Bits{}, false
	}
	return t.KnownValue()
}

// ImpliedNodeTernary unites the members' answers.
func (u *Union) ImpliedNodeTernary(given []Predicate, n *ir.Node) (ternary.Vector, bool) {
	if !u.IsTracked(n) {
		return nil, false
	}
	out, ok := impliedTernary(u, given, n)
	if !ok {
		return nil, false
	}
	for _, e := range u.engines {
		t, ok := e.ImpliedNodeTernary(given, n)
		if !ok {
			continue
		}
		merged, err := ternary.Union(out, t)
		if err != nil {
			// Contradictory predicates: nothing is implied.
			return nil, false
		}
		out = merged
	}
	return out, true
}
