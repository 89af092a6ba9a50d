package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPackage renders p in the IR text format accepted by Parse.
func FormatPackage(p *Package) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n", p.name)
	if len(p.channels) > 0 {
		sb.WriteByte('\n')
		for _, ch := range p.channels {
			fmt.Fprintf(&sb, "chan %s(%s, kind=%s, ops=%s)\n", ch.Name, ch.Type, ch.Kind, ch.Ops)
		}
	}
	for _, f := range p.functions {
		sb.WriteByte('\n')
		if p.top == f.name {
			sb.WriteString("top ")
		}
		sb.WriteString(FormatFunctionBase(f))
	}
	return sb.String()
}

// FormatFunctionBase renders a single function, proc or block.
func FormatFunctionBase(f *FunctionBase) string {
	var sb strings.Builder
	switch f.kind {
	case KindFunction:
		params := make([]string, 0, len(f.params))
		for _, p := range f.Params() {
			params = append(params, fmt.Sprintf("%s: %s", p.name, p.typ))
		}
		retType := "()"
		if r := f.ReturnValue(); r != nil {
			retType = r.typ.String()
		}
		fmt.Fprintf(&sb, "fn %s(%s) -> %s {\n", f.name, strings.Join(params, ", "), retType)
	case KindProc:
		states := make([]string, 0, len(f.stateReads))
		inits := make([]string, 0, len(f.stateReads))
		for i, s := range f.StateReads() {
			states = append(states, fmt.Sprintf("%s: %s", s.name, s.typ))
			inits = append(inits, formatLiteral(f.stateInit[i]))
		}
		header := strings.Join(states, ", ")
		if len(states) > 0 {
			header += ", "
		}
		fmt.Fprintf(&sb, "proc %s(%sinit={%s}) {\n", f.name, header, strings.Join(inits, ", "))
	case KindBlock:
		fmt.Fprintf(&sb, "block %s {\n", f.name)
		for _, r := range f.registers {
			attrs := []string{r.Type.String()}
			if r.ResetValue != nil {
				attrs = append(attrs, "reset_value="+formatLiteral(*r.ResetValue))
				attrs = append(attrs, fmt.Sprintf("active_low=%t", r.ActiveLow))
			}
			fmt.Fprintf(&sb, "  reg %s(%s)\n", r.Name, strings.Join(attrs, ", "))
		}
	}

	order, err := f.TopoSort()
	if err != nil {
		order = f.Nodes()
	}
	for _, n := range order {
		if n.op == OpParam || n.op == OpStateRead {
			continue
		}
		sb.WriteString("  ")
		if f.ret == n.id {
			sb.WriteString("ret ")
		}
		sb.WriteString(formatNode(n))
		sb.WriteByte('\n')
	}
	if f.kind == KindProc {
		next := make([]string, len(f.next))
		for i, id := range f.next {
			next[i] = f.nodes[id].name
		}
		fmt.Fprintf(&sb, "  next (%s)\n", strings.Join(next, ", "))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func formatLiteral(v Value) string {
	if v.IsBits() {
		return v.Bits().String()
	}
	return v.String()
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.name
	}
	return out
}

func formatNode(n *Node) string {
	var args []string
	switch n.op {
	case OpParam, OpStateRead:
	case OpLiteral:
		args = append(args, "value="+formatLiteral(n.value))
	case OpBitSlice:
		args = append(args, n.Operand(0).name, fmt.Sprintf("start=%d", n.start), fmt.Sprintf("width=%d", n.typ.Width()))
	case OpSelect:
		args = append(args, n.Selector().name, "cases=["+strings.Join(names(n.Cases()), ", ")+"]")
		if d := n.Default(); d != nil {
			args = append(args, "default="+d.name)
		}
	case OpOneHotSelect, OpPrioritySelect:
		args = append(args, n.Selector().name, "cases=["+strings.Join(names(n.Cases()), ", ")+"]")
	case OpOneHot:
		args = append(args, n.Operand(0).name, fmt.Sprintf("lsb_prio=%t", n.lsbPrio))
	case OpZeroExt, OpSignExt:
		args = append(args, n.Operand(0).name, fmt.Sprintf("new_bit_count=%d", n.typ.Width()))
	case OpTupleIndex:
		args = append(args, n.Operand(0).name, fmt.Sprintf("index=%d", n.index))
	case OpReceive:
		args = append(args, "channel="+n.channel)
		if p := n.Predicate(); p != nil {
			args = append(args, "predicate="+p.name)
		}
		if !n.blocking {
			args = append(args, "blocking=false")
		}
	case OpSend:
		args = append(args, n.Data().name, "channel="+n.channel)
		if p := n.Predicate(); p != nil {
			args = append(args, "predicate="+p.name)
		}
	case OpAssert:
		args = append(args, n.Operand(0).name, "message="+strconv.Quote(n.message))
		if n.label != "" {
			args = append(args, "label="+strconv.Quote(n.label))
		}
	case OpTrace:
		args = append(args, n.Operand(0).name, "format="+strconv.Quote(n.message))
		if len(n.operands) > 1 {
			args = append(args, "args=["+strings.Join(names(n.TraceArgs()), ", ")+"]")
		}
	case OpInputPort:
		args = append(args, "name="+n.port)
	case OpOutputPort:
		args = append(args, n.Data().name, "name="+n.port)
	case OpRegisterRead:
		args = append(args, "register="+n.register)
	case OpRegisterWrite:
		args = append(args, n.Data().name, "register="+n.register)
		if le := n.LoadEnable(); le != nil {
			args = append(args, "load_enable="+le.name)
		}
		if r := n.Reset(); r != nil {
			args = append(args, "reset="+r.name)
		}
	default:
		args = names(n.Operands())
	}
	return fmt.Sprintf("%s: %s = %s(%s)", n.name, n.typ, n.op, strings.Join(args, ", "))
}
