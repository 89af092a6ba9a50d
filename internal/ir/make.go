package ir

import "fmt"

// Factory methods. Each validates operand types, infers the result type and
// appends the node to the arena. Names are optional; an empty name yields
// "<op>.<id>".

func (f *FunctionBase) checkOperands(op Op, operands ...*Node) error {
	for _, o := range operands {
		if err := f.owns(o); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func ids(nodes []*Node) []NodeID {
	out := make([]NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

func requireBits(op Op, n *Node) error {
	if !n.typ.IsBits() {
		return fmt.Errorf("%s: operand %s must be bits, got %s", op, n.name, n.typ)
	}
	return nil
}

// AddParam adds a function parameter.
func (f *FunctionBase) AddParam(name string, t *Type) (*Node, error) {
	if f.kind != KindFunction {
		return nil, fmt.Errorf("%s %s cannot have params", f.kind, f.name)
	}
	if _, taken := f.names[name]; taken {
		return nil, fmt.Errorf("%s: duplicate param %q", f.name, name)
	}
	n := f.addNode(&Node{op: OpParam, typ: t}, name)
	f.params = append(f.params, n.id)
	return n, nil
}

// AddStateElement adds a proc state element and returns its state_read node.
// The element's next value defaults to the state read itself.
func (f *FunctionBase) AddStateElement(name string, init Value) (*Node, error) {
	if f.kind != KindProc {
		return nil, fmt.Errorf("%s %s cannot have state", f.kind, f.name)
	}
	if _, taken := f.names[name]; taken {
		return nil, fmt.Errorf("%s: duplicate state element %q", f.name, name)
	}
	n := f.addNode(&Node{op: OpStateRead, typ: init.Type(), index: len(f.stateReads)}, name)
	f.stateReads = append(f.stateReads, n.id)
	f.stateInit = append(f.stateInit, init)
	f.next = append(f.next, n.id)
	return n, nil
}

// MakeLiteral adds a literal.
func (f *FunctionBase) MakeLiteral(v Value, name string) *Node {
	return f.addNode(&Node{op: OpLiteral, typ: v.Type(), value: v}, name)
}

// MakeBitSlice adds bit_slice(x, start, width).
func (f *FunctionBase) MakeBitSlice(x *Node, start, width int, name string) (*Node, error) {
	if err := f.checkOperands(OpBitSlice, x); err != nil {
		return nil, err
	}
	if err := requireBits(OpBitSlice, x); err != nil {
		return nil, err
	}
	if start < 0 || width < 0 || start+width > x.typ.Width() {
		return nil, fmt.Errorf("bit_slice: [%d +: %d] out of range for %s", start, width, x.typ)
	}
	return f.addNode(&Node{op: OpBitSlice, typ: BitsType(width), operands: []NodeID{x.id}, start: start}, name), nil
}

// MakeConcat adds concat(operands...); operand 0 is most significant.
func (f *FunctionBase) MakeConcat(operands []*Node, name string) (*Node, error) {
	if err := f.checkOperands(OpConcat, operands...); err != nil {
		return nil, err
	}
	width := 0
	for _, o := range operands {
		if err := requireBits(OpConcat, o); err != nil {
			return nil, err
		}
		width += o.typ.Width()
	}
	return f.addNode(&Node{op: OpConcat, typ: BitsType(width), operands: ids(operands)}, name), nil
}

func sameCaseTypes(op Op, cases []*Node, def *Node) (*Type, error) {
	var t *Type
	all := cases
	if def != nil {
		all = append(append([]*Node(nil), cases...), def)
	}
	for _, c := range all {
		if t == nil {
			t = c.typ
			continue
		}
		if !c.typ.Equal(t) {
			return nil, fmt.Errorf("%s: case %s has type %s, want %s", op, c.name, c.typ, t)
		}
	}
	if t == nil {
		return nil, fmt.Errorf("%s: no cases", op)
	}
	return t, nil
}

// MakeSelect adds sel(selector, cases, default). A default is required
// exactly when the selector can take values beyond the last case.
func (f *FunctionBase) MakeSelect(selector *Node, cases []*Node, def *Node, name string) (*Node, error) {
	all := append([]*Node{selector}, cases...)
	if def != nil {
		all = append(all, def)
	}
	if err := f.checkOperands(OpSelect, all...); err != nil {
		return nil, err
	}
	if err := requireBits(OpSelect, selector); err != nil {
		return nil, err
	}
	t, err := sameCaseTypes(OpSelect, cases, def)
	if err != nil {
		return nil, err
	}
	w := selector.typ.Width()
	full := w < 63 && len(cases) == 1<<uint(w)
	if w < 63 && len(cases) > 1<<uint(w) {
		return nil, fmt.Errorf("sel: %d cases exceed selector width %d", len(cases), w)
	}
	if full && def != nil {
		return nil, fmt.Errorf("sel: default is unreachable with %d cases and selector width %d", len(cases), w)
	}
	if !full && def == nil {
		return nil, fmt.Errorf("sel: default required with %d cases and selector width %d", len(cases), w)
	}
	return f.addNode(&Node{op: OpSelect, typ: t, operands: ids(all), hasDefault: def != nil}, name), nil
}

func (f *FunctionBase) makeMaskSelect(op Op, selector *Node, cases []*Node, name string) (*Node, error) {
	all := append([]*Node{selector}, cases...)
	if err := f.checkOperands(op, all...); err != nil {
		return nil, err
	}
	if err := requireBits(op, selector); err != nil {
		return nil, err
	}
	if selector.typ.Width() != len(cases) {
		return nil, fmt.Errorf("%s: selector width %d does not match %d cases", op, selector.typ.Width(), len(cases))
	}
	t, err := sameCaseTypes(op, cases, nil)
	if err != nil {
		return nil, err
	}
	return f.addNode(&Node{op: op, typ: t, operands: ids(all)}, name), nil
}

// MakeOneHotSelect adds one_hot_sel(selector, cases).
func (f *FunctionBase) MakeOneHotSelect(selector *Node, cases []*Node, name string) (*Node, error) {
	return f.makeMaskSelect(OpOneHotSelect, selector, cases, name)
}

// MakePrioritySelect adds priority_sel(selector, cases).
func (f *FunctionBase) MakePrioritySelect(selector *Node, cases []*Node, name string) (*Node, error) {
	return f.makeMaskSelect(OpPrioritySelect, selector, cases, name)
}

// MakeOneHot adds one_hot(x); the result is one bit wider than x.
func (f *FunctionBase) MakeOneHot(x *Node, lsbPrio bool, name string) (*Node, error) {
	if err := f.checkOperands(OpOneHot, x); err != nil {
		return nil, err
	}
	if err := requireBits(OpOneHot, x); err != nil {
		return nil, err
	}
	return f.addNode(&Node{op: OpOneHot, typ: BitsType(x.typ.Width() + 1), operands: []NodeID{x.id}, lsbPrio: lsbPrio}, name), nil
}

// MakeNary adds a variadic bitwise operation.
func (f *FunctionBase) MakeNary(op Op, operands []*Node, name string) (*Node, error) {
	if !op.IsNary() {
		return nil, fmt.Errorf("%s is not a variadic op", op)
	}
	if len(operands) == 0 {
		return nil, fmt.Errorf("%s: needs at least one operand", op)
	}
	if err := f.checkOperands(op, operands...); err != nil {
		return nil, err
	}
	t := operands[0].typ
	for _, o := range operands {
		if err := requireBits(op, o); err != nil {
			return nil, err
		}
		if !o.typ.Equal(t) {
			return nil, fmt.Errorf("%s: operand %s has type %s, want %s", op, o.name, o.typ, t)
		}
	}
	return f.addNode(&Node{op: op, typ: t, operands: ids(operands)}, name), nil
}

// MakeUnary adds not or neg.
func (f *FunctionBase) MakeUnary(op Op, x *Node, name string) (*Node, error) {
	if op != OpNot && op != OpNeg {
		return nil, fmt.Errorf("%s is not a unary op", op)
	}
	if err := f.checkOperands(op, x); err != nil {
		return nil, err
	}
	if err := requireBits(op, x); err != nil {
		return nil, err
	}
	return f.addNode(&Node{op: op, typ: x.typ, operands: []NodeID{x.id}}, name), nil
}

// MakeCompare adds a comparison producing bits[1]. Equality comparisons
// accept any matching types; ordering comparisons require bits.
func (f *FunctionBase) MakeCompare(op Op, a, b *Node, name string) (*Node, error) {
	if !op.IsCompare() {
		return nil, fmt.Errorf("%s is not a comparison", op)
	}
	if err := f.checkOperands(op, a, b); err != nil {
		return nil, err
	}
	if !a.typ.Equal(b.typ) {
		return nil, fmt.Errorf("%s: operand types differ: %s vs %s", op, a.typ, b.typ)
	}
	if op != OpEq && op != OpNe {
		if err := requireBits(op, a); err != nil {
			return nil, err
		}
	}
	return f.addNode(&Node{op: op, typ: BitsType(1), operands: []NodeID{a.id, b.id}}, name), nil
}

// MakeBinary adds add, sub, shll or shrl.
func (f *FunctionBase) MakeBinary(op Op, a, b *Node, name string) (*Node, error) {
	if err := f.checkOperands(op, a, b); err != nil {
		return nil, err
	}
	if err := requireBits(op, a); err != nil {
		return nil, err
	}
	if err := requireBits(op, b); err != nil {
		return nil, err
	}
	switch op {
	case OpAdd, OpSub:
		if !a.typ.Equal(b.typ) {
			return nil, fmt.Errorf("%s: operand types differ: %s vs %s", op, a.typ, b.typ)
		}
	case OpShll, OpShrl:
	default:
		return nil, fmt.Errorf("%s is not a binary arithmetic op", op)
	}
	return f.addNode(&Node{op: op, typ: a.typ, operands: []NodeID{a.id, b.id}}, name), nil
}

// MakeExtend adds zero_ext or sign_ext to newWidth bits.
func (f *FunctionBase) MakeExtend(op Op, x *Node, newWidth int, name string) (*Node, error) {
	if op != OpZeroExt && op != OpSignExt {
		return nil, fmt.Errorf("%s is not an extend op", op)
	}
	if err := f.checkOperands(op, x); err != nil {
		return nil, err
	}
	if err := requireBits(op, x); err != nil {
		return nil, err
	}
	if newWidth < x.typ.Width() {
		return nil, fmt.Errorf("%s: new width %d narrower than operand %s", op, newWidth, x.typ)
	}
	return f.addNode(&Node{op: op, typ: BitsType(newWidth), operands: []NodeID{x.id}}, name), nil
}

// MakeTuple adds tuple(elems...).
func (f *FunctionBase) MakeTuple(elems []*Node, name string) (*Node, error) {
	if err := f.checkOperands(OpTuple, elems...); err != nil {
		return nil, err
	}
	ts := make([]*Type, len(elems))
	for i, e := range elems {
		ts[i] = e.typ
	}
	return f.addNode(&Node{op: OpTuple, typ: TupleType(ts...), operands: ids(elems)}, name), nil
}

// MakeTupleIndex adds tuple_index(t, index).
func (f *FunctionBase) MakeTupleIndex(t *Node, index int, name string) (*Node, error) {
	if err := f.checkOperands(OpTupleIndex, t); err != nil {
		return nil, err
	}
	if !t.typ.IsTuple() {
		return nil, fmt.Errorf("tuple_index: operand %s is not a tuple", t.name)
	}
	if index < 0 || index >= len(t.typ.elems) {
		return nil, fmt.Errorf("tuple_index: index %d out of range for %s", index, t.typ)
	}
	return f.addNode(&Node{op: OpTupleIndex, typ: t.typ.elems[index], operands: []NodeID{t.id}, index: index}, name), nil
}

// MakeReduce adds and_reduce, or_reduce or xor_reduce.
func (f *FunctionBase) MakeReduce(op Op, x *Node, name string) (*Node, error) {
	if !op.IsReduce() {
		return nil, fmt.Errorf("%s is not a reduction", op)
	}
	if err := f.checkOperands(op, x); err != nil {
		return nil, err
	}
	if err := requireBits(op, x); err != nil {
		return nil, err
	}
	return f.addNode(&Node{op: op, typ: BitsType(1), operands: []NodeID{x.id}}, name), nil
}

func requirePredicate(op Op, p *Node) error {
	if p != nil && !p.typ.Equal(BitsType(1)) {
		return fmt.Errorf("%s: predicate %s must be bits[1], got %s", op, p.name, p.typ)
	}
	return nil
}

// MakeReceive adds a receive on channel. A blocking receive yields the
// channel data; a non-blocking one yields (data, valid).
func (f *FunctionBase) MakeReceive(channel string, predicate *Node, blocking bool, name string) (*Node, error) {
	if f.kind != KindProc {
		return nil, fmt.Errorf("receive outside proc %s", f.name)
	}
	ch, err := f.pkg.GetChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	if ch.Ops == SendOnly {
		return nil, fmt.Errorf("receive: channel %s is send-only", channel)
	}
	if err := requirePredicate(OpReceive, predicate); err != nil {
		return nil, err
	}
	t := ch.Type
	if !blocking {
		t = TupleType(ch.Type, BitsType(1))
	}
	n := &Node{op: OpReceive, typ: t, channel: channel, blocking: blocking}
	if predicate != nil {
		if err := f.checkOperands(OpReceive, predicate); err != nil {
			return nil, err
		}
		n.operands = []NodeID{predicate.id}
		n.hasPredicate = true
	}
	return f.addNode(n, name), nil
}

// MakeSend adds a send of data on channel.
func (f *FunctionBase) MakeSend(channel string, data, predicate *Node, name string) (*Node, error) {
	if f.kind != KindProc {
		return nil, fmt.Errorf("send outside proc %s", f.name)
	}
	ch, err := f.pkg.GetChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	if ch.Ops == ReceiveOnly {
		return nil, fmt.Errorf("send: channel %s is receive-only", channel)
	}
	if err := f.checkOperands(OpSend, data); err != nil {
		return nil, err
	}
	if !data.typ.Equal(ch.Type) {
		return nil, fmt.Errorf("send: data %s has type %s, channel %s carries %s", data.name, data.typ, channel, ch.Type)
	}
	if err := requirePredicate(OpSend, predicate); err != nil {
		return nil, err
	}
	n := &Node{op: OpSend, typ: EmptyTuple(), channel: channel, operands: []NodeID{data.id}}
	if predicate != nil {
		if err := f.checkOperands(OpSend, predicate); err != nil {
			return nil, err
		}
		n.operands = append(n.operands, predicate.id)
		n.hasPredicate = true
	}
	return f.addNode(n, name), nil
}

// MakeAssert adds an assertion that fires when cond is zero.
func (f *FunctionBase) MakeAssert(cond *Node, message, label, name string) (*Node, error) {
	if err := f.checkOperands(OpAssert, cond); err != nil {
		return nil, err
	}
	if err := requirePredicate(OpAssert, cond); err != nil {
		return nil, err
	}
	return f.addNode(&Node{op: OpAssert, typ: EmptyTuple(), operands: []NodeID{cond.id}, message: message, label: label}, name), nil
}

// MakeTrace adds a trace that prints format with args when cond is one.
// Each "{}" in format is replaced by the next argument.
func (f *FunctionBase) MakeTrace(cond *Node, format string, args []*Node, name string) (*Node, error) {
	all := append([]*Node{cond}, args...)
	if err := f.checkOperands(OpTrace, all...); err != nil {
		return nil, err
	}
	if err := requirePredicate(OpTrace, cond); err != nil {
		return nil, err
	}
	return f.addNode(&Node{op: OpTrace, typ: EmptyTuple(), operands: ids(all), message: format}, name), nil
}

// AddInputPort adds a block input port. The node takes the port's name.
func (f *FunctionBase) AddInputPort(port string, t *Type) (*Node, error) {
	if f.kind != KindBlock {
		return nil, fmt.Errorf("input_port outside block %s", f.name)
	}
	if _, taken := f.names[port]; taken {
		return nil, fmt.Errorf("%s: duplicate port %q", f.name, port)
	}
	n := f.addNode(&Node{op: OpInputPort, typ: t, port: port}, port)
	f.inputPorts = append(f.inputPorts, n.id)
	return n, nil
}

// AddOutputPort adds a block output port driven by x.
func (f *FunctionBase) AddOutputPort(port string, x *Node, name string) (*Node, error) {
	if f.kind != KindBlock {
		return nil, fmt.Errorf("output_port outside block %s", f.name)
	}
	if err := f.checkOperands(OpOutputPort, x); err != nil {
		return nil, err
	}
	for _, id := range f.outputPorts {
		if f.nodes[id].port == port {
			return nil, fmt.Errorf("%s: duplicate port %q", f.name, port)
		}
	}
	n := f.addNode(&Node{op: OpOutputPort, typ: EmptyTuple(), operands: []NodeID{x.id}, port: port}, name)
	f.outputPorts = append(f.outputPorts, n.id)
	return n, nil
}

// MakeRegisterRead adds a read of register reg.
func (f *FunctionBase) MakeRegisterRead(reg string, name string) (*Node, error) {
	r, ok := f.GetRegister(reg)
	if !ok {
		return nil, fmt.Errorf("register_read: no register %q in %s", reg, f.name)
	}
	return f.addNode(&Node{op: OpRegisterRead, typ: r.Type, register: reg}, name), nil
}

// MakeRegisterWrite adds a write of data into register reg. loadEnable and
// reset are optional bits[1] operands.
func (f *FunctionBase) MakeRegisterWrite(reg string, data, loadEnable, reset *Node, name string) (*Node, error) {
	r, ok := f.GetRegister(reg)
	if !ok {
		return nil, fmt.Errorf("register_write: no register %q in %s", reg, f.name)
	}
	if err := f.checkOperands(OpRegisterWrite, data); err != nil {
		return nil, err
	}
	if !data.typ.Equal(r.Type) {
		return nil, fmt.Errorf("register_write: data %s has type %s, register %s holds %s", data.name, data.typ, reg, r.Type)
	}
	n := &Node{op: OpRegisterWrite, typ: EmptyTuple(), register: reg, operands: []NodeID{data.id}}
	if loadEnable != nil {
		if err := f.checkOperands(OpRegisterWrite, loadEnable); err != nil {
			return nil, err
		}
		if err := requirePredicate(OpRegisterWrite, loadEnable); err != nil {
			return nil, err
		}
		n.operands = append(n.operands, loadEnable.id)
		n.hasLoad = true
	}
	if reset != nil {
		if r.ResetValue == nil {
			return nil, fmt.Errorf("register_write: register %s has no reset value", reg)
		}
		if err := f.checkOperands(OpRegisterWrite, reset); err != nil {
			return nil, err
		}
		if err := requirePredicate(OpRegisterWrite, reset); err != nil {
			return nil, err
		}
		n.operands = append(n.operands, reset.id)
		n.hasReset = true
	}
	return f.addNode(n, name), nil
}
