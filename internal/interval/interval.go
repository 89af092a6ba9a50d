// Package interval implements sets of closed unsigned ranges describing the
// possible values of a bit vector.
package interval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

// Interval is the closed range [Lo, Hi] of unsigned values.
type Interval struct {
	Lo ir.Bits
	Hi ir.Bits
}

// Precise returns the single-value interval [v, v].
func Precise(v ir.Bits) Interval { return Interval{Lo: v, Hi: v} }

// Contains reports whether v lies in the interval.
func (iv Interval) Contains(v ir.Bits) bool {
	return iv.Lo.Cmp(v) <= 0 && v.Cmp(iv.Hi) <= 0
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s]", iv.Lo, iv.Hi)
}

// Set is a sorted list of non-overlapping, non-adjacent intervals over a
// fixed bit width.
type Set struct {
	width     int
	intervals []Interval
}

// Empty returns the set with no values.
func Empty(width int) Set { return Set{width: width} }

// Maximal returns the set of every width-bit value.
func Maximal(width int) Set {
	return Set{width: width, intervals: []Interval{{Lo: ir.ZeroBits(width), Hi: ir.AllOnesBits(width)}}}
}

// Of builds a normalized set from arbitrary intervals.
func Of(width int, ivs ...Interval) Set {
	s := Set{width: width, intervals: append([]Interval(nil), ivs...)}
	s.normalize()
	return s
}

// PreciseSet returns the set holding exactly v.
func PreciseSet(v ir.Bits) Set { return Of(v.Width(), Precise(v)) }

// FromTernary returns the convex hull of the values consistent with v.
func FromTernary(v ternary.Vector) Set {
	lo, hi := v.MinMax()
	return Of(len(v), Interval{Lo: lo, Hi: hi})
}

// Width returns the bit width of the values in the set.
func (s Set) Width() int { return s.width }

// Intervals returns the normalized intervals.
func (s Set) Intervals() []Interval { return s.intervals }

// IsEmpty reports whether the set holds no values.
func (s Set) IsEmpty() bool { return len(s.intervals) == 0 }

// IsMaximal reports whether the set holds every value.
func (s Set) IsMaximal() bool {
	return len(s.intervals) == 1 &&
		s.intervals[0].Lo.IsZero() && s.intervals[0].Hi.IsAllOnes()
}

// IsPrecise reports whether the set holds exactly one value.
func (s Set) IsPrecise() bool {
	return len(s.intervals) == 1 && s.intervals[0].Lo.Equal(s.intervals[0].Hi)
}

// PreciseValue returns the single value of a precise set.
func (s Set) PreciseValue() (ir.Bits, bool) {
	if !s.IsPrecise() {
		return ir.Bits{}, false
	}
	return s.intervals[0].Lo, true
}

// Contains reports whether v is in the set.
func (s Set) Contains(v ir.Bits) bool {
	for _, iv := range s.intervals {
		if iv.Contains(v) {
			return true
		}
	}
	return false
}

// Bounds returns the smallest and largest values of a non-empty set.
func (s Set) Bounds() (ir.Bits, ir.Bits, bool) {
	if s.IsEmpty() {
		return ir.Bits{}, ir.Bits{}, false
	}
	return s.intervals[0].Lo, s.intervals[len(s.intervals)-1].Hi, true
}

func (s *Set) normalize() {
	sort.Slice(s.intervals, func(i, j int) bool {
		return s.intervals[i].Lo.Cmp(s.intervals[j].Lo) < 0
	})
	var out []Interval
	for _, iv := range s.intervals {
		if iv.Lo.Cmp(iv.Hi) > 0 {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			// Merge overlapping or adjacent ranges.
			if !last.Hi.IsAllOnes() && last.Hi.Add(ir.UBits(1, s.width)).Cmp(iv.Lo) >= 0 || last.Hi.Cmp(iv.Lo) >= 0 {
				if iv.Hi.Cmp(last.Hi) > 0 {
					last.Hi = iv.Hi
				}
				continue
			}
		}
		out = append(out, iv)
	}
	s.intervals = out
}

// Intersect returns the values present in both sets.
func Intersect(a, b Set) Set {
	if a.width != b.width {
		panic(fmt.Sprintf("interval: intersect widths %d and %d", a.width, b.width))
	}
	var out []Interval
	i, j := 0, 0
	for i < len(a.intervals) && j < len(b.intervals) {
		x, y := a.intervals[i], b.intervals[j]
		lo := x.Lo
		if y.Lo.Cmp(lo) > 0 {
			lo = y.Lo
		}
		hi := x.Hi
		if y.Hi.Cmp(hi) < 0 {
			hi = y.Hi
		}
		if lo.Cmp(hi) <= 0 {
			out = append(out, Interval{Lo: lo, Hi: hi})
		}
		if x.Hi.Cmp(y.Hi) < 0 {
			i++
		} else {
			j++
		}
	}
	return Set{width: a.width, intervals: out}
}

// Union returns the values present in either set.
func Union(a, b Set) Set {
	return Of(a.width, append(append([]Interval(nil), a.intervals...), b.intervals...)...)
}

func (s Set) String() string {
	parts := make([]string, len(s.intervals))
	for i, iv := range s.intervals {
		parts[i] = iv.String()
	}
	return fmt.Sprintf("bits[%d]{%s}", s.width, strings.Join(parts, ", "))
}
