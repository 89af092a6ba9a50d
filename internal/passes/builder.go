package passes

import "github.com/cchan/xlsynth/internal/ir"

// builder wraps the function's factory methods and keeps the first error, so
// a rewrite can construct its replacement graph and check once at the end.
// After an error every method returns nil without touching the function.
type builder struct {
	f   *ir.FunctionBase
	err error
}

func (b *builder) keep(n *ir.Node, err error) *ir.Node {
	if err != nil {
		b.err = err
		return nil
	}
	return n
}

func (b *builder) literal(v ir.Value) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.f.MakeLiteral(v, "")
}

func (b *builder) zero(t *ir.Type) *ir.Node {
	return b.literal(ir.ZeroValue(t))
}

func (b *builder) slice(x *ir.Node, start, width int) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeBitSlice(x, start, width, ""))
}

func (b *builder) concat(operands ...*ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeConcat(operands, ""))
}

func (b *builder) nary(op ir.Op, operands ...*ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeNary(op, operands, ""))
}

func (b *builder) not(x *ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeUnary(ir.OpNot, x, ""))
}

func (b *builder) compare(op ir.Op, x, y *ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeCompare(op, x, y, ""))
}

func (b *builder) signExt(x *ir.Node, width int) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeExtend(ir.OpSignExt, x, width, ""))
}

func (b *builder) orReduce(x *ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeReduce(ir.OpOrReduce, x, ""))
}

func (b *builder) sel(selector *ir.Node, cases []*ir.Node, def *ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeSelect(selector, cases, def, ""))
}

// maskSel builds a one_hot_sel or priority_sel, matching op.
func (b *builder) maskSel(op ir.Op, selector *ir.Node, cases []*ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	if op == ir.OpOneHotSelect {
		return b.keep(b.f.MakeOneHotSelect(selector, cases, ""))
	}
	return b.keep(b.f.MakePrioritySelect(selector, cases, ""))
}

func (b *builder) tuple(elems []*ir.Node) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeTuple(elems, ""))
}

func (b *builder) tupleIndex(t *ir.Node, index int) *ir.Node {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.MakeTupleIndex(t, index, ""))
}

// gatherBits concatenates the bits of x at the ascending indices, taking
// contiguous runs as single slices.
func (b *builder) gatherBits(x *ir.Node, indices []int) *ir.Node {
	var pieces []*ir.Node
	for i := 0; i < len(indices); {
		j := i + 1
		for j < len(indices) && indices[j] == indices[j-1]+1 {
			j++
		}
		pieces = append(pieces, b.slice(x, indices[i], j-i))
		i = j
	}
	if len(pieces) == 1 {
		return pieces[0]
	}
	reverseNodes(pieces)
	return b.concat(pieces...)
}

func reverseNodes(nodes []*ir.Node) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}
