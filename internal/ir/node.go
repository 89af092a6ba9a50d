package ir

import "fmt"

// NodeID is a stable index into a function's node arena. IDs are never
// reused, so a NodeID stays valid after the node it names is removed.
type NodeID int

// Node is a single IR operation. Operands are stored as IDs into the owning
// function's arena; the node never owns them.
type Node struct {
	id       NodeID
	fn       *FunctionBase
	op       Op
	name     string
	typ      *Type
	operands []NodeID
	users    []NodeID
	dead     bool

	// Op-specific attributes.
	value        Value  // literal
	start        int    // bit_slice
	index        int    // tuple_index, state_read
	lsbPrio      bool   // one_hot
	hasDefault   bool   // sel
	hasPredicate bool   // receive, send
	blocking     bool   // receive
	hasLoad      bool   // register_write
	hasReset     bool   // register_write
	channel      string // receive, send
	message      string // assert message, trace format
	label        string // assert
	register     string // register_read, register_write
	port         string // input_port, output_port
}

// ID returns the node's stable arena index.
func (n *Node) ID() NodeID { return n.id }

// Op returns the operation.
func (n *Node) Op() Op { return n.op }

// Name returns the node's unique name within its function.
func (n *Node) Name() string { return n.name }

// Type returns the result type.
func (n *Node) Type() *Type { return n.typ }

// Function returns the owning function.
func (n *Node) Function() *FunctionBase { return n.fn }

// IsDead reports whether the node has been removed from its function.
func (n *Node) IsDead() bool { return n.dead }

// BitCount returns the flat bit count of the result type.
func (n *Node) BitCount() int { return n.typ.FlatBitCount() }

// OperandCount returns the number of operands.
func (n *Node) OperandCount() int { return len(n.operands) }

// Operand returns operand i.
func (n *Node) Operand(i int) *Node { return n.fn.nodes[n.operands[i]] }

// Operands returns the operand nodes in order.
func (n *Node) Operands() []*Node {
	out := make([]*Node, len(n.operands))
	for i, id := range n.operands {
		out[i] = n.fn.nodes[id]
	}
	return out
}

// Users returns the distinct live nodes that use n as an operand, ordered by ID.
func (n *Node) Users() []*Node {
	out := make([]*Node, len(n.users))
	for i, id := range n.users {
		out[i] = n.fn.nodes[id]
	}
	return out
}

// UserCount returns the number of distinct users.
func (n *Node) UserCount() int { return len(n.users) }

// HasImplicitUse reports whether n is referenced by its function outside of
// operand lists: the return value of a function or a proc next-state value.
func (n *Node) HasImplicitUse() bool {
	return n.fn.hasImplicitUse(n.id)
}

// Value returns the literal value.
func (n *Node) Value() Value { return n.value }

// Start returns the bit_slice start index.
func (n *Node) Start() int { return n.start }

// Index returns the tuple_index element index or state_read element index.
func (n *Node) Index() int { return n.index }

// LsbPriority reports whether a one_hot gives priority to the LSB.
func (n *Node) LsbPriority() bool { return n.lsbPrio }

// Selector returns operand 0 of a select-like node.
func (n *Node) Selector() *Node { return n.Operand(0) }

// Cases returns the case operands of a select-like node.
func (n *Node) Cases() []*Node {
	end := len(n.operands)
	if n.hasDefault {
		end--
	}
	out := make([]*Node, 0, end-1)
	for _, id := range n.operands[1:end] {
		out = append(out, n.fn.nodes[id])
	}
	return out
}

// Case returns case i of a select-like node.
func (n *Node) Case(i int) *Node { return n.Operand(i + 1) }

// CaseCount returns the number of cases of a select-like node.
func (n *Node) CaseCount() int {
	if n.hasDefault {
		return len(n.operands) - 2
	}
	return len(n.operands) - 1
}

// Default returns the default value of a sel, or nil.
func (n *Node) Default() *Node {
	if !n.hasDefault {
		return nil
	}
	return n.Operand(len(n.operands) - 1)
}

// Channel returns the channel name of a receive or send.
func (n *Node) Channel() string { return n.channel }

// Blocking reports whether a receive blocks when its channel is empty.
func (n *Node) Blocking() bool { return n.blocking }

// Predicate returns the predicate operand of a receive or send, or nil.
func (n *Node) Predicate() *Node {
	if !n.hasPredicate {
		return nil
	}
	return n.Operand(len(n.operands) - 1)
}

// Data returns the data operand of a send, output_port or register_write.
func (n *Node) Data() *Node { return n.Operand(0) }

// Message returns the assert message or trace format string.
func (n *Node) Message() string { return n.message }

// Label returns the assert label.
func (n *Node) Label() string { return n.label }

// TraceArgs returns the argument operands of a trace.
func (n *Node) TraceArgs() []*Node {
	return n.Operands()[1:]
}

// Register returns the register name of a register_read or register_write.
func (n *Node) Register() string { return n.register }

// LoadEnable returns the load-enable operand of a register_write, or nil.
func (n *Node) LoadEnable() *Node {
	if !n.hasLoad {
		return nil
	}
	return n.Operand(1)
}

// Reset returns the reset operand of a register_write, or nil.
func (n *Node) Reset() *Node {
	if !n.hasReset {
		return nil
	}
	return n.Operand(len(n.operands) - 1)
}

// PortName returns the port name of an input_port or output_port.
func (n *Node) PortName() string { return n.port }

func (n *Node) String() string {
	return fmt.Sprintf("%s: %s = %s(...)", n.name, n.typ, n.op)
}

func (n *Node) addUser(u NodeID) {
	for _, id := range n.users {
		if id == u {
			return
		}
	}
	n.users = append(n.users, u)
	for i := len(n.users) - 1; i > 0 && n.users[i] < n.users[i-1]; i-- {
		n.users[i], n.users[i-1] = n.users[i-1], n.users[i]
	}
}

func (n *Node) removeUser(u NodeID) {
	for i, id := range n.users {
		if id == u {
			n.users = append(n.users[:i], n.users[i+1:]...)
			return
		}
	}
}
