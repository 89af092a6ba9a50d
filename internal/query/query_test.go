package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/ternary"
)

const sample = `package sample

fn f(x: bits[4], s: bits[2]) -> bits[4] {
  lit: bits[4] = literal(value=10)
  mask: bits[4] = literal(value=3)
  hi: bits[4] = and(x, mask)
  ored: bits[4] = or(x, lit)
  oh: bits[5] = one_hot(x, lsb_prio=true)
  sl: bits[2] = bit_slice(lit, start=1, width=2)
  cat: bits[6] = concat(sl, hi)
  picked: bits[4] = sel(s, cases=[lit, lit, mask], default=lit)
  known_sel: bits[4] = sel(sl, cases=[x, mask, lit, x])
  small: bits[1] = ult(hi, lit)
  ret r: bits[4] = xor(ored, hi)
}
`

func parse(t *testing.T, src string) *ir.FunctionBase {
	t.Helper()
	pkg, err := ir.Parse(src)
	require.NoError(t, err)
	f, err := pkg.Top()
	require.NoError(t, err)
	return f
}

func node(t *testing.T, f *ir.FunctionBase, name string) *ir.Node {
	t.Helper()
	n, ok := f.NodeByName(name)
	require.True(t, ok, "no node %q", name)
	return n
}

func TestStatelessLiterals(t *testing.T) {
	f := parse(t, sample)
	e := NewStateless()
	status, err := e.Populate(f)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, status)

	v, ok := KnownValueAsBits(e, node(t, f, "lit"))
	require.True(t, ok)
	assert.Equal(t, "10", v.String())
	assert.False(t, IsFullyKnown(e, node(t, f, "hi")))
	assert.True(t, e.GetIntervals(node(t, f, "lit")).IsPrecise())
}

func TestStatelessOneHot(t *testing.T) {
	f := parse(t, sample)
	e := NewStateless()
	oh := node(t, f, "oh")
	assert.True(t, AtMostOneBitTrue(e, oh))
	assert.True(t, AtLeastOneBitTrue(e, oh))
	assert.True(t, e.AtMostOneTrue([]BitLocation{Loc(oh, 0), Loc(oh, 3)}))
	assert.False(t, e.AtLeastOneTrue([]BitLocation{Loc(oh, 0), Loc(oh, 3)}))
	assert.False(t, AtMostOneBitTrue(e, node(t, f, "x")))
}

func TestTernaryPropagation(t *testing.T) {
	f := parse(t, sample)
	e := NewTernary()
	status, err := e.Populate(f)
	require.NoError(t, err)
	assert.Equal(t, Changed, status)

	tests := []struct {
		name string
		want string
	}{
		{"hi", "0b00XX"},
		{"ored", "0b1X1X"},
		{"sl", "0b01"},
		{"cat", "0b0100XX"},
		{"picked", "0bX01X"},
		{"known_sel", "0b0011"},
		{"small", "0b1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.GetTernary(node(t, f, tt.name))
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}

	status, err = e.Populate(f)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, status)
}

func TestTernaryOneHot(t *testing.T) {
	x := ternary.Vector{ternary.Unknown, ternary.KnownOne, ternary.Unknown}
	assert.Equal(t, "0b00XX", evaluateOneHot(x, true).String())
	assert.Equal(t, "0b0XX0", evaluateOneHot(x, false).String())
	zero := ternary.FromBits(ir.ZeroBits(3))
	assert.Equal(t, "0b1000", evaluateOneHot(zero, true).String())
}

func TestTernaryUntrackedAfterMutation(t *testing.T) {
	f := parse(t, sample)
	e := NewTernary()
	_, err := e.Populate(f)
	require.NoError(t, err)

	fresh := f.MakeLiteral(ir.UValue(1, 4), "fresh")
	assert.False(t, e.IsTracked(fresh))
	_, ok := e.GetTernary(fresh)
	assert.False(t, ok)
}

func TestPrioritySelectTernary(t *testing.T) {
	f := parse(t, `package p

fn f(s: bits[2], a: bits[4]) -> bits[4] {
  one: bits[1] = literal(value=1)
  lo: bits[1] = bit_slice(s, start=0, width=1)
  sel2: bits[2] = concat(lo, one)
  c: bits[4] = literal(value=5)
  ret p: bits[4] = priority_sel(sel2, cases=[c, a])
}
`)
	e := NewTernary()
	_, err := e.Populate(f)
	require.NoError(t, err)
	got, ok := e.GetTernary(node(t, f, "p"))
	require.True(t, ok)
	assert.Equal(t, "0b0101", got.String())
}

func TestUnionIsAtLeastAsPrecise(t *testing.T) {
	f := parse(t, sample)
	stateless, tern := NewStateless(), NewTernary()
	u := NewUnion(stateless, tern)
	_, err := u.Populate(f)
	require.NoError(t, err)

	for _, n := range f.Nodes() {
		ut, ok := u.GetTernary(n)
		require.True(t, ok)
		for _, member := range u.Engines() {
			mt, ok := member.GetTernary(n)
			if !ok {
				continue
			}
			assert.GreaterOrEqual(t, ut.KnownCount(), mt.KnownCount(), n.Name())
			for i := range mt {
				if mt[i] != ternary.Unknown {
					assert.Equal(t, mt[i], ut[i], "%s bit %d", n.Name(), i)
				}
			}
		}
	}
	oh := node(t, f, "oh")
	assert.True(t, u.AtLeastOneTrue(BitsOf(oh)))
}

func TestUnionTracksNewNodesThroughStateless(t *testing.T) {
	f := parse(t, sample)
	u := NewDefault()
	_, err := u.Populate(f)
	require.NoError(t, err)
	fresh := f.MakeLiteral(ir.UValue(6, 4), "fresh")
	v, ok := KnownValueAsBits(u, fresh)
	require.True(t, ok)
	assert.Equal(t, "6", v.String())
}

func TestImpliedNodeValue(t *testing.T) {
	f := parse(t, sample)
	u := NewDefault()
	_, err := u.Populate(f)
	require.NoError(t, err)

	hi := node(t, f, "hi")
	given := []Predicate{{Loc: Loc(hi, 0), Value: true}, {Loc: Loc(hi, 1), Value: false}}
	v, ok := u.ImpliedNodeValue(given, hi)
	require.True(t, ok)
	assert.Equal(t, "1", v.String())

	// Contradicting a known bit yields nothing.
	_, ok = u.ImpliedNodeTernary([]Predicate{{Loc: Loc(hi, 3), Value: true}}, hi)
	assert.False(t, ok)
}

func TestRelations(t *testing.T) {
	f := parse(t, sample)
	u := NewDefault()
	_, err := u.Populate(f)
	require.NoError(t, err)
	lit := node(t, f, "lit")
	x := node(t, f, "x")
	assert.True(t, u.KnownEquals(Loc(lit, 1), Loc(lit, 3)))
	assert.True(t, u.KnownNotEquals(Loc(lit, 0), Loc(lit, 1)))
	assert.True(t, u.Implies(Loc(x, 2), Loc(lit, 1)))
	assert.False(t, u.Implies(Loc(x, 2), Loc(x, 1)))
}

func TestFixpointMeet(t *testing.T) {
	assert.Equal(t, Changed, Unchanged.Meet(Changed))
	assert.Equal(t, Unknown, Changed.Meet(Unknown))
	assert.Equal(t, Unchanged, Unchanged.Meet(Unchanged))
}
