// Package query provides the analyses optimization passes consult for
// bit-level facts about IR nodes.
//
// Engines are populated once per function and then queried read-only. The
// set of engines is closed: Stateless, Ternary and Union, all implementing
// Engine.
package query

import (
	"github.com/cchan/xlsynth/internal/interval"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

// ReachedFixpoint reports how an engine's Populate call ended. The values
// form a lattice ordered Unchanged > Changed > Unknown.
type ReachedFixpoint int

const (
	// Unchanged means population found nothing new.
	Unchanged ReachedFixpoint = iota + 1
	// Changed means population learned new facts and reached a fixpoint.
	Changed
	// Unknown means population stopped without knowing whether it converged.
	Unknown
)

func (r ReachedFixpoint) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case Unknown:
		return "unknown"
	}
	return "invalid"
}

// Meet combines two fixpoint statuses. Unchanged is the identity and
// Unknown is absorbing.
func (r ReachedFixpoint) Meet(o ReachedFixpoint) ReachedFixpoint {
	if r == Unknown || o == Unknown {
		return Unknown
	}
	if r == Changed || o == Changed {
		return Changed
	}
	return Unchanged
}

// BitLocation names one bit of a node's flattened value.
type BitLocation struct {
	Node *ir.Node
	Bit  int
}

// Loc is shorthand for a BitLocation.
func Loc(n *ir.Node, bit int) BitLocation { return BitLocation{Node: n, Bit: bit} }

// BitsOf returns the locations of every bit of n, LSB first.
func BitsOf(n *ir.Node) []BitLocation {
	out := make([]BitLocation, n.BitCount())
	for i := range out {
		out[i] = BitLocation{Node: n, Bit: i}
	}
	return out
}

// Predicate asserts that a bit has a given value.
type Predicate struct {
	Loc   BitLocation
	Value bool
}

// Engine answers bit-level questions about the nodes of one function.
//
// Query methods must only be called after Populate and return conservative
// answers: false means "not proven", never "proven false".
type Engine interface {
	// Populate analyzes f. It is the only mutating entry point.
	Populate(f *ir.FunctionBase) (ReachedFixpoint, error)

	// IsTracked reports whether the engine holds facts about n.
	IsTracked(n *ir.Node) bool

	// GetTernary returns known bits of n's flattened value.
	GetTernary(n *ir.Node) (ternary.Vector, bool)

	// GetIntervals returns the possible values of a bits-typed node.
	GetIntervals(n *ir.Node) interval.Set

	// AtMostOneTrue reports whether at most one of bits can be 1.
	AtMostOneTrue(bits []BitLocation) bool

	// AtLeastOneTrue reports whether at least one of bits must be 1.
	AtLeastOneTrue(bits []BitLocation) bool

	// KnownEquals reports whether a and b always hold the same value.
	KnownEquals(a, b BitLocation) bool

	// KnownNotEquals reports whether a and b always differ.
	KnownNotEquals(a, b BitLocation) bool

	// Implies reports whether a being 1 forces b to be 1.
	Implies(a, b BitLocation) bool

	// ImpliedNodeValue returns n's value when the predicates force it.
	ImpliedNodeValue(given []Predicate, n *ir.Node) (ir.Bits, bool)

	// ImpliedNodeTernary returns known bits of n under the predicates.
	ImpliedNodeTernary(given []Predicate, n *ir.Node) (ternary.Vector, bool)
}
