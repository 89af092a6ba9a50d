package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFunction(t *testing.T) (*FunctionBase, *Node, *Node, *Node) {
	t.Helper()
	pkg := NewPackage("test")
	f, err := pkg.AddFunction("f")
	require.NoError(t, err)
	x, err := f.AddParam("x", BitsType(8))
	require.NoError(t, err)
	y, err := f.AddParam("y", BitsType(8))
	require.NoError(t, err)
	s, err := f.AddParam("s", BitsType(1))
	require.NoError(t, err)
	return f, x, y, s
}

func TestMakeSelectDefaultRules(t *testing.T) {
	f, x, y, s := newTestFunction(t)

	_, err := f.MakeSelect(s, []*Node{x, y}, nil, "")
	require.NoError(t, err)

	_, err = f.MakeSelect(s, []*Node{x}, nil, "")
	assert.Error(t, err, "one case with a 1-bit selector needs a default")

	_, err = f.MakeSelect(s, []*Node{x, y}, x, "")
	assert.Error(t, err, "default is unreachable with a full case list")

	_, err = f.MakeSelect(s, []*Node{x, y, x}, nil, "")
	assert.Error(t, err)

	sel, err := f.MakeSelect(s, []*Node{x}, y, "")
	require.NoError(t, err)
	assert.Equal(t, 1, sel.CaseCount())
	assert.Equal(t, y, sel.Default())
	assert.Equal(t, s, sel.Selector())
}

func TestMakeTypeInference(t *testing.T) {
	f, x, y, s := newTestFunction(t)

	cat, err := f.MakeConcat([]*Node{s, x}, "")
	require.NoError(t, err)
	assert.Equal(t, "bits[9]", cat.Type().String())

	oh, err := f.MakeOneHot(x, true, "")
	require.NoError(t, err)
	assert.Equal(t, 9, oh.BitCount())

	tup, err := f.MakeTuple([]*Node{x, s}, "")
	require.NoError(t, err)
	idx, err := f.MakeTupleIndex(tup, 1, "")
	require.NoError(t, err)
	assert.True(t, idx.Type().Equal(BitsType(1)))

	_, err = f.MakeNary(OpAnd, []*Node{x, s}, "")
	assert.Error(t, err, "mismatched widths")

	_, err = f.MakeBitSlice(x, 4, 5, "")
	assert.Error(t, err)

	_, err = f.MakeOneHotSelect(s, []*Node{x, y}, "")
	assert.Error(t, err, "selector width must equal case count")
}

func TestReplaceUsesWith(t *testing.T) {
	f, x, y, s := newTestFunction(t)

	and, err := f.MakeNary(OpAnd, []*Node{x, y}, "and")
	require.NoError(t, err)
	sel, err := f.MakeSelect(s, []*Node{and, and}, nil, "sel")
	require.NoError(t, err)
	require.NoError(t, f.SetReturnValue(sel))

	require.NoError(t, f.ReplaceUsesWith(sel, x))
	assert.Equal(t, x, f.ReturnValue())
	assert.Equal(t, 0, sel.UserCount())

	require.NoError(t, f.ReplaceUsesWith(and, y))
	assert.Equal(t, []*Node{y, y}, sel.Cases())
	assert.Equal(t, 0, and.UserCount())
	assert.ElementsMatch(t, []*Node{and, sel}, y.Users())

	require.NoError(t, f.RemoveNode(sel))
	assert.True(t, sel.IsDead())
	require.NoError(t, f.RemoveNode(and))
	assert.Empty(t, y.Users())

	_, ok := f.NodeByName("sel")
	assert.False(t, ok)
}

func TestReplaceUsesWithKeepsWrapperOperand(t *testing.T) {
	f, x, _, _ := newTestFunction(t)

	not, err := f.MakeUnary(OpNot, x, "")
	require.NoError(t, err)
	require.NoError(t, f.SetReturnValue(not))

	wrapper, err := f.MakeUnary(OpNot, not, "")
	require.NoError(t, err)
	require.NoError(t, f.ReplaceUsesWith(not, wrapper))

	assert.Equal(t, wrapper, f.ReturnValue())
	assert.Equal(t, not, wrapper.Operand(0))
}

func TestReplaceUsesWithTypeMismatch(t *testing.T) {
	f, x, _, s := newTestFunction(t)
	require.NoError(t, f.SetReturnValue(x))
	assert.Error(t, f.ReplaceUsesWith(x, s))
}

func TestRemoveNodeWithUsers(t *testing.T) {
	f, x, _, _ := newTestFunction(t)
	not, err := f.MakeUnary(OpNot, x, "")
	require.NoError(t, err)
	require.NoError(t, f.SetReturnValue(not))
	assert.Error(t, f.RemoveNode(not))
	assert.Error(t, f.RemoveNode(x))
}

func TestTopoSortAfterReplacement(t *testing.T) {
	f, x, y, _ := newTestFunction(t)

	a, err := f.MakeNary(OpAnd, []*Node{x, y}, "a")
	require.NoError(t, err)
	b, err := f.MakeUnary(OpNot, a, "b")
	require.NoError(t, err)
	require.NoError(t, f.SetReturnValue(b))

	// The replacement has a higher ID than its user.
	c, err := f.MakeNary(OpOr, []*Node{x, y}, "c")
	require.NoError(t, err)
	require.NoError(t, f.ReplaceUsesWith(a, c))

	order, err := f.TopoSort()
	require.NoError(t, err)
	pos := map[string]int{}
	for i, n := range order {
		pos[n.Name()] = i
	}
	assert.Less(t, pos["c"], pos["b"])
	assert.Less(t, pos["x"], pos["c"])
}

func TestCloneIsIndependent(t *testing.T) {
	f, x, y, _ := newTestFunction(t)
	a, err := f.MakeNary(OpAnd, []*Node{x, y}, "a")
	require.NoError(t, err)
	require.NoError(t, f.SetReturnValue(a))

	c := f.Clone()
	ca := c.Node(a.ID())
	cx := c.Node(x.ID())
	require.NoError(t, c.ReplaceUsesWith(ca, cx))

	assert.Equal(t, a, f.ReturnValue())
	assert.Equal(t, cx, c.ReturnValue())
	assert.Equal(t, []*Node{a}, x.Users())
}

func TestProcStateAndNext(t *testing.T) {
	pkg := NewPackage("p")
	require.NoError(t, pkg.AddChannel(&Channel{Name: "in", Type: BitsType(8), Ops: ReceiveOnly}))
	proc, err := pkg.AddProc("counter")
	require.NoError(t, err)

	st, err := proc.AddStateElement("st", UValue(3, 8))
	require.NoError(t, err)
	assert.Equal(t, st, proc.NextState(0))

	rcv, err := proc.MakeReceive("in", nil, false, "")
	require.NoError(t, err)
	assert.Equal(t, "(bits[8], bits[1])", rcv.Type().String())

	_, err = proc.MakeSend("in", st, nil, "")
	assert.Error(t, err, "receive-only channel")

	data, err := proc.MakeTupleIndex(rcv, 0, "")
	require.NoError(t, err)
	require.NoError(t, proc.SetNextState(0, data))
	assert.True(t, data.HasImplicitUse())
	assert.Error(t, proc.RemoveNode(data))
}
