package passes

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/query"
)

// BitSource is where a bit comes from after tracing through slices and
// concats: a constant, or a bit of some other node.
type BitSource struct {
	Constant bool
	Value    bool
	Node     *ir.Node
	Bit      int
}

func (s BitSource) String() string {
	if s.Constant {
		if s.Value {
			return "1"
		}
		return "0"
	}
	return fmt.Sprintf("%s[%d]", s.Node.Name(), s.Bit)
}

// GetBitSource traces bit of n back through bit_slice and concat nodes. A
// literal origin, or a bit the engine knows, yields a constant. It is a
// structural check only: two bits with different sources may still be equal.
func GetBitSource(n *ir.Node, bit int, qe query.Engine) BitSource {
	for {
		switch n.Op() {
		case ir.OpBitSlice:
			bit += n.Start()
			n = n.Operand(0)
			continue
		case ir.OpConcat:
			offset := 0
			found := false
			for i := n.OperandCount() - 1; i >= 0; i-- {
				op := n.Operand(i)
				if bit-offset < op.BitCount() {
					bit -= offset
					n = op
					found = true
					break
				}
				offset += op.BitCount()
			}
			if !found {
				panic(fmt.Sprintf("bit %d out of range for %s", bit, n))
			}
			continue
		case ir.OpLiteral:
			return BitSource{Constant: true, Value: n.Value().Flatten().Bit(bit)}
		}
		if n.Type().IsBits() && query.IsKnown(qe, query.Loc(n, bit)) {
			return BitSource{Constant: true, Value: query.IsOne(qe, query.Loc(n, bit))}
		}
		return BitSource{Node: n, Bit: bit}
	}
}

type matchedPair struct{ i, j int }

// pairsWithSameSource returns the index pairs (i < j) of nodes whose bit at
// the given index has the same source, in lexicographic order.
func pairsWithSameSource(nodes []*ir.Node, bit int, qe query.Engine) []matchedPair {
	sources := make([]BitSource, len(nodes))
	for i, n := range nodes {
		sources[i] = GetBitSource(n, bit, qe)
	}
	var pairs []matchedPair
	for i := range sources {
		for j := i + 1; j < len(sources); j++ {
			if sources[i] == sources[j] {
				pairs = append(pairs, matchedPair{i, j})
			}
		}
	}
	return pairs
}

func intersectPairs(a, b []matchedPair) []matchedPair {
	in := make(map[matchedPair]bool, len(b))
	for _, p := range b {
		in[p] = true
	}
	var out []matchedPair
	for _, p := range a {
		if in[p] {
			out = append(out, p)
		}
	}
	return out
}

// runOfNonDistinctCaseBits returns how many bits from start on keep at least
// one pair of cases sharing a source throughout.
func runOfNonDistinctCaseBits(cases []*ir.Node, start int, qe query.Engine) int {
	var matches []matchedPair
	i := start
	for ; i < cases[0].BitCount(); i++ {
		if i == start {
			matches = pairsWithSameSource(cases, i, qe)
		} else {
			matches = intersectPairs(pairsWithSameSource(cases, i, qe), matches)
		}
		if len(matches) == 0 {
			break
		}
	}
	return i - start
}

// runOfDistinctCaseBits returns how many bits from start on have pairwise
// distinct sources across all cases.
func runOfDistinctCaseBits(cases []*ir.Node, start int, qe query.Engine) int {
	i := start
	for i < cases[0].BitCount() && len(pairsWithSameSource(cases, i, qe)) == 0 {
		i++
	}
	return i - start
}
