package ir

import (
	"fmt"
	"sort"
	"strings"
)

// FunctionKind distinguishes the three kinds of function bodies.
type FunctionKind int

const (
	// KindFunction is a pure combinational function with params and a return value.
	KindFunction FunctionKind = iota + 1
	// KindProc is a stateful process communicating over channels.
	KindProc
	// KindBlock is a clocked netlist with ports and registers.
	KindBlock
)

func (k FunctionKind) String() string {
	switch k {
	case KindFunction:
		return "fn"
	case KindProc:
		return "proc"
	case KindBlock:
		return "block"
	}
	return "unknown"
}

// Register is a block register.
type Register struct {
	Name       string
	Type       *Type
	ResetValue *Value // nil when the register has no reset
	ActiveLow  bool
}

// FunctionBase holds the node arena shared by functions, procs and blocks.
// Node IDs index the arena directly; removed nodes stay in the arena as
// tombstones until the function is compacted by a clone.
type FunctionBase struct {
	kind  FunctionKind
	name  string
	pkg   *Package
	nodes []*Node
	names map[string]NodeID

	params []NodeID
	ret    NodeID

	stateReads []NodeID
	stateInit  []Value
	next       []NodeID

	registers   []*Register
	inputPorts  []NodeID
	outputPorts []NodeID
}

func newFunctionBase(kind FunctionKind, name string, pkg *Package) *FunctionBase {
	return &FunctionBase{
		kind:  kind,
		name:  name,
		pkg:   pkg,
		names: make(map[string]NodeID),
		ret:   -1,
	}
}

// Kind returns the function kind.
func (f *FunctionBase) Kind() FunctionKind { return f.kind }

// Name returns the function name.
func (f *FunctionBase) Name() string { return f.name }

// Package returns the owning package.
func (f *FunctionBase) Package() *Package { return f.pkg }

// IsFunction reports whether f is a combinational function.
func (f *FunctionBase) IsFunction() bool { return f.kind == KindFunction }

// IsProc reports whether f is a proc.
func (f *FunctionBase) IsProc() bool { return f.kind == KindProc }

// IsBlock reports whether f is a block.
func (f *FunctionBase) IsBlock() bool { return f.kind == KindBlock }

// Node returns the node with the given ID, including tombstoned nodes.
func (f *FunctionBase) Node(id NodeID) *Node { return f.nodes[id] }

// NodeByName returns the live node with the given name.
func (f *FunctionBase) NodeByName(name string) (*Node, bool) {
	id, ok := f.names[name]
	if !ok || f.nodes[id].dead {
		return nil, false
	}
	return f.nodes[id], true
}

// Nodes returns the live nodes ordered by ID.
func (f *FunctionBase) Nodes() []*Node {
	out := make([]*Node, 0, len(f.nodes))
	for _, n := range f.nodes {
		if !n.dead {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of live nodes.
func (f *FunctionBase) NodeCount() int {
	count := 0
	for _, n := range f.nodes {
		if !n.dead {
			count++
		}
	}
	return count
}

// ArenaSize returns one more than the largest node ID ever allocated.
func (f *FunctionBase) ArenaSize() int { return len(f.nodes) }

// Params returns the function parameters.
func (f *FunctionBase) Params() []*Node { return f.byIDs(f.params) }

// ReturnValue returns the function's return node, or nil.
func (f *FunctionBase) ReturnValue() *Node {
	if f.ret < 0 {
		return nil
	}
	return f.nodes[f.ret]
}

// SetReturnValue sets the function's return node.
func (f *FunctionBase) SetReturnValue(n *Node) error {
	if f.kind != KindFunction {
		return fmt.Errorf("%s %s has no return value", f.kind, f.name)
	}
	if err := f.owns(n); err != nil {
		return err
	}
	f.ret = n.id
	return nil
}

// StateReads returns the proc state elements in order.
func (f *FunctionBase) StateReads() []*Node { return f.byIDs(f.stateReads) }

// InitValue returns the initial value of state element i.
func (f *FunctionBase) InitValue(i int) Value { return f.stateInit[i] }

// NextState returns the next-state node of element i, or nil when unset.
func (f *FunctionBase) NextState(i int) *Node {
	if f.next[i] < 0 {
		return nil
	}
	return f.nodes[f.next[i]]
}

// SetNextState sets the value state element i takes after an activation.
func (f *FunctionBase) SetNextState(i int, n *Node) error {
	if i < 0 || i >= len(f.stateReads) {
		return fmt.Errorf("proc %s: state element %d out of range", f.name, i)
	}
	if err := f.owns(n); err != nil {
		return err
	}
	if want := f.nodes[f.stateReads[i]].typ; !n.typ.Equal(want) {
		return fmt.Errorf("proc %s: next state %s has type %s, want %s", f.name, n.name, n.typ, want)
	}
	f.next[i] = n.id
	return nil
}

// Registers returns the block registers in declaration order.
func (f *FunctionBase) Registers() []*Register { return f.registers }

// GetRegister looks up a register by name.
func (f *FunctionBase) GetRegister(name string) (*Register, bool) {
	for _, r := range f.registers {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// AddRegister declares a block register.
func (f *FunctionBase) AddRegister(r *Register) error {
	if f.kind != KindBlock {
		return fmt.Errorf("%s %s cannot hold registers", f.kind, f.name)
	}
	if _, ok := f.GetRegister(r.Name); ok {
		return fmt.Errorf("block %s: duplicate register %q", f.name, r.Name)
	}
	if r.ResetValue != nil && !r.ResetValue.Type().Equal(r.Type) {
		return fmt.Errorf("block %s: register %s reset value %s does not match type %s", f.name, r.Name, r.ResetValue, r.Type)
	}
	f.registers = append(f.registers, r)
	return nil
}

// InputPorts returns the block input ports in declaration order.
func (f *FunctionBase) InputPorts() []*Node { return f.byIDs(f.inputPorts) }

// OutputPorts returns the live block output ports in declaration order.
func (f *FunctionBase) OutputPorts() []*Node { return f.byIDs(f.outputPorts) }

func (f *FunctionBase) byIDs(ids []NodeID) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if !f.nodes[id].dead {
			out = append(out, f.nodes[id])
		}
	}
	return out
}

func (f *FunctionBase) owns(n *Node) error {
	if n == nil {
		return fmt.Errorf("%s: nil node", f.name)
	}
	if n.fn != f {
		return fmt.Errorf("%s: node %s belongs to %s", f.name, n.name, n.fn.name)
	}
	if n.dead {
		return fmt.Errorf("%s: node %s has been removed", f.name, n.name)
	}
	return nil
}

func (f *FunctionBase) hasImplicitUse(id NodeID) bool {
	if f.ret == id {
		return true
	}
	for _, nx := range f.next {
		if nx == id {
			return true
		}
	}
	return false
}

// addNode places n in the arena, names it and registers it with its operands.
func (f *FunctionBase) addNode(n *Node, name string) *Node {
	n.id = NodeID(len(f.nodes))
	n.fn = f
	f.nodes = append(f.nodes, n)
	if name == "" {
		name = fmt.Sprintf("%s.%d", n.op, n.id)
	}
	n.name = f.uniqueName(name)
	f.names[n.name] = n.id
	for _, op := range n.operands {
		f.nodes[op].addUser(n.id)
	}
	return n
}

func (f *FunctionBase) uniqueName(name string) string {
	if _, taken := f.names[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s__%d", name, i)
		if _, taken := f.names[candidate]; !taken {
			return candidate
		}
	}
}

// Rename gives n a new unique name. It fails if the name is taken.
func (f *FunctionBase) Rename(n *Node, name string) error {
	if n.name == name {
		return nil
	}
	if _, taken := f.names[name]; taken {
		return fmt.Errorf("%s: duplicate node name %q", f.name, name)
	}
	delete(f.names, n.name)
	n.name = name
	f.names[name] = n.id
	return nil
}

// ReplaceUsesWith rewires every use of old, including implicit uses, to
// repl. Uses inside repl itself are kept so that a replacement may wrap the
// node it replaces.
func (f *FunctionBase) ReplaceUsesWith(old, repl *Node) error {
	if old == repl {
		return nil
	}
	if err := f.owns(old); err != nil {
		return err
	}
	if err := f.owns(repl); err != nil {
		return err
	}
	if !old.typ.Equal(repl.typ) {
		return fmt.Errorf("%s: cannot replace %s (%s) with %s (%s): type mismatch",
			f.name, old.name, old.typ, repl.name, repl.typ)
	}
	for _, uid := range append([]NodeID(nil), old.users...) {
		if uid == repl.id {
			continue
		}
		user := f.nodes[uid]
		for i, op := range user.operands {
			if op == old.id {
				user.operands[i] = repl.id
			}
		}
		old.removeUser(uid)
		repl.addUser(uid)
	}
	if f.ret == old.id {
		f.ret = repl.id
	}
	for i, nx := range f.next {
		if nx == old.id {
			f.next[i] = repl.id
		}
	}
	return nil
}

// RemoveNode tombstones a node without users.
func (f *FunctionBase) RemoveNode(n *Node) error {
	if err := f.owns(n); err != nil {
		return err
	}
	if len(n.users) > 0 || f.hasImplicitUse(n.id) {
		return fmt.Errorf("%s: cannot remove %s: node still has uses", f.name, n.name)
	}
	n.dead = true
	delete(f.names, n.name)
	for _, op := range n.operands {
		f.nodes[op].removeUser(n.id)
	}
	return nil
}

// TopoSort returns the live nodes in an order where every node follows its
// operands. Ties are broken by node ID so the order is deterministic.
func (f *FunctionBase) TopoSort() ([]*Node, error) {
	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, len(f.nodes))
	order := make([]*Node, 0, len(f.nodes))
	type frame struct {
		id   NodeID
		next int
	}
	for _, root := range f.nodes {
		if root.dead || state[root.id] != unvisited {
			continue
		}
		stack := []frame{{id: root.id}}
		state[root.id] = active
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := f.nodes[top.id]
			if top.next < len(n.operands) {
				op := n.operands[top.next]
				top.next++
				switch state[op] {
				case unvisited:
					state[op] = active
					stack = append(stack, frame{id: op})
				case active:
					return nil, fmt.Errorf("%s: cycle detected through node %s", f.name, f.nodes[op].name)
				}
				continue
			}
			state[top.id] = done
			order = append(order, n)
			stack = stack[:len(stack)-1]
		}
	}
	return order, nil
}

// Clone returns a deep copy of f. Node IDs are preserved.
func (f *FunctionBase) Clone() *FunctionBase {
	c := &FunctionBase{
		kind:        f.kind,
		name:        f.name,
		pkg:         f.pkg,
		nodes:       make([]*Node, len(f.nodes)),
		names:       make(map[string]NodeID, len(f.names)),
		params:      append([]NodeID(nil), f.params...),
		ret:         f.ret,
		stateReads:  append([]NodeID(nil), f.stateReads...),
		stateInit:   append([]Value(nil), f.stateInit...),
		next:        append([]NodeID(nil), f.next...),
		registers:   append([]*Register(nil), f.registers...),
		inputPorts:  append([]NodeID(nil), f.inputPorts...),
		outputPorts: append([]NodeID(nil), f.outputPorts...),
	}
	for i, n := range f.nodes {
		cp := *n
		cp.fn = c
		cp.operands = append([]NodeID(nil), n.operands...)
		cp.users = append([]NodeID(nil), n.users...)
		c.nodes[i] = &cp
	}
	for k, v := range f.names {
		c.names[k] = v
	}
	return c
}

// Dump renders the live nodes one per line, for debugging and test failures.
func (f *FunctionBase) Dump() string {
	var sb strings.Builder
	nodes := f.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
	for _, n := range nodes {
		sb.WriteString(formatNode(n))
		sb.WriteByte('\n')
	}
	return sb.String()
}
