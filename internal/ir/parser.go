package ir

import (
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

func lex(src string) ([]token, error) {
	var toks []token
	line, col := 1, 1
	i := 0
	advance := func(n int) {
		for k := 0; k < n; k++ {
			if src[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			advance(1)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				advance(1)
			}
		case c == '"':
			start, startLine, startCol := i, line, col
			advance(1)
			for i < len(src) && src[i] != '"' {
				if src[i] == '\\' && i+1 < len(src) {
					advance(1)
				}
				advance(1)
			}
			if i >= len(src) {
				return nil, errors.Errorf("line %d:%d: unterminated string", startLine, startCol)
			}
			advance(1)
			text, err := strconv.Unquote(src[start:i])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d:%d: bad string literal", startLine, startCol)
			}
			toks = append(toks, token{kind: tokString, text: text, line: startLine, col: startCol})
		case c == '-' && i+1 < len(src) && src[i+1] == '>':
			toks = append(toks, token{kind: tokPunct, text: "->", line: line, col: col})
			advance(2)
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			start, startLine, startCol := i, line, col
			advance(1)
			for i < len(src) && (isAlnum(src[i]) || src[i] == '_') {
				advance(1)
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], line: startLine, col: startCol})
		case strings.IndexByte("()[]{},:=", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), line: line, col: col})
			advance(1)
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if r != '_' && !unicode.IsLetter(r) {
				return nil, errors.Errorf("line %d:%d: unexpected character %q", line, col, r)
			}
			start, startLine, startCol := i, line, col
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) {
					break
				}
				for k := 0; k < size; k++ {
					advance(1)
				}
			}
			toks = append(toks, token{kind: tokIdent, text: CanonicalName(src[start:i]), line: startLine, col: startCol})
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line, col: col})
	return toks, nil
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

type parser struct {
	toks []token
	pos  int
	pkg  *Package
}

// ParseFile reads and parses an IR package file.
func ParseFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read IR file")
	}
	pkg, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return pkg, nil
}

// Parse parses a package in the IR text format.
func Parse(src string) (*Package, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if err := p.parsePackage(); err != nil {
		return nil, err
	}
	return p.pkg, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return errors.Errorf("line %d:%d: "+format, append([]interface{}{t.line, t.col}, args...)...)
}

func (p *parser) expect(text string) (token, error) {
	t := p.next()
	if t.text != text || t.kind == tokString {
		return t, p.errorf(t, "expected %q, got %s", text, t)
	}
	return t, nil
}

func (p *parser) accept(text string) bool {
	if t := p.peek(); t.text == text && t.kind != tokString {
		p.pos++
		return true
	}
	return false
}

func (p *parser) ident() (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, p.errorf(t, "expected identifier, got %s", t)
	}
	return t, nil
}

func (p *parser) integer() (int, error) {
	t := p.next()
	if t.kind != tokNumber {
		return 0, p.errorf(t, "expected number, got %s", t)
	}
	v, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf(t, "bad integer %q", t.text)
	}
	return v, nil
}

func (p *parser) parseType() (*Type, error) {
	t := p.peek()
	if p.accept("(") {
		var elems []*Type
		for !p.accept(")") {
			e, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.accept(",") {
				if _, err := p.expect(")"); err != nil {
					return nil, err
				}
				break
			}
		}
		return TupleType(elems...), nil
	}
	if _, err := p.expect("bits"); err != nil {
		return nil, p.errorf(t, "expected type, got %s", t)
	}
	if _, err := p.expect("["); err != nil {
		return nil, err
	}
	w, err := p.integer()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("]"); err != nil {
		return nil, err
	}
	return BitsType(w), nil
}

// valueText gathers the tokens of a value up to the next top-level
// separator and returns them joined.
func (p *parser) valueText() (token, string) {
	start := p.peek()
	var sb strings.Builder
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokEOF {
			break
		}
		if depth == 0 && (t.text == "," || t.text == ")" || t.text == "}") && t.kind == tokPunct {
			break
		}
		switch t.text {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		}
		sb.WriteString(t.text)
		p.pos++
	}
	return start, sb.String()
}

func (p *parser) parseValue(t *Type) (Value, error) {
	start, text := p.valueText()
	v, err := ParseTypedValue(text, t)
	if err != nil {
		return Value{}, p.errorf(start, "%v", err)
	}
	return v, nil
}

func (p *parser) parsePackage() error {
	if _, err := p.expect("package"); err != nil {
		return err
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	p.pkg = NewPackage(name.text)
	for p.peek().kind != tokEOF {
		t := p.next()
		isTop := false
		if t.text == "top" {
			isTop = true
			t = p.next()
		}
		var f *FunctionBase
		switch t.text {
		case "chan":
			if isTop {
				return p.errorf(t, "channels cannot be top")
			}
			if err := p.parseChannel(); err != nil {
				return err
			}
			continue
		case "fn":
			f, err = p.parseFunction()
		case "proc":
			f, err = p.parseProc()
		case "block":
			f, err = p.parseBlock()
		default:
			return p.errorf(t, "expected chan, fn, proc or block, got %s", t)
		}
		if err != nil {
			return err
		}
		if isTop {
			if err := p.pkg.SetTop(f.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) parseChannel() error {
	name, err := p.ident()
	if err != nil {
		return err
	}
	if _, err := p.expect("("); err != nil {
		return err
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	ch := &Channel{Name: name.text, Type: typ}
	for p.accept(",") {
		key, err := p.ident()
		if err != nil {
			return err
		}
		if _, err := p.expect("="); err != nil {
			return err
		}
		val, err := p.ident()
		if err != nil {
			return err
		}
		switch key.text {
		case "kind":
			switch val.text {
			case "streaming":
				ch.Kind = Streaming
			case "single_value":
				ch.Kind = SingleValue
			default:
				return p.errorf(val, "unknown channel kind %s", val)
			}
		case "ops":
			switch val.text {
			case "send_receive":
				ch.Ops = SendReceive
			case "send_only":
				ch.Ops = SendOnly
			case "receive_only":
				ch.Ops = ReceiveOnly
			default:
				return p.errorf(val, "unknown channel ops %s", val)
			}
		default:
			return p.errorf(key, "unknown channel attribute %s", key)
		}
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	if err := p.pkg.AddChannel(ch); err != nil {
		return p.errorf(name, "%v", err)
	}
	return nil
}

func (p *parser) parseFunction() (*FunctionBase, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	f, err := p.pkg.AddFunction(name.text)
	if err != nil {
		return nil, p.errorf(name, "%v", err)
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.accept(")") {
		pname, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := f.AddParam(pname.text, typ); err != nil {
			return nil, p.errorf(pname, "%v", err)
		}
		if !p.accept(",") {
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	if _, err := p.expect("->"); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.parseBody(f); err != nil {
		return nil, err
	}
	ret := f.ReturnValue()
	if ret == nil {
		return nil, p.errorf(name, "function %s has no ret node", f.name)
	}
	if !ret.typ.Equal(retType) {
		return nil, p.errorf(name, "function %s returns %s, declared %s", f.name, ret.typ, retType)
	}
	return f, nil
}

func (p *parser) parseProc() (*FunctionBase, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	f, err := p.pkg.AddProc(name.text)
	if err != nil {
		return nil, p.errorf(name, "%v", err)
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	type state struct {
		name token
		typ  *Type
	}
	var states []state
	for p.peek().text != "init" {
		sname, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		states = append(states, state{sname, typ})
		if _, err := p.expect(","); err != nil {
			return nil, err
		}
	}
	p.next()
	if _, err := p.expect("="); err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for i, st := range states {
		if i > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		init, err := p.parseValue(st.typ)
		if err != nil {
			return nil, err
		}
		if _, err := f.AddStateElement(st.name.text, init); err != nil {
			return nil, p.errorf(st.name, "%v", err)
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return f, p.parseBody(f)
}

func (p *parser) parseBlock() (*FunctionBase, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	f, err := p.pkg.AddBlock(name.text)
	if err != nil {
		return nil, p.errorf(name, "%v", err)
	}
	return f, p.parseBody(f)
}

func (p *parser) parseBody(f *FunctionBase) error {
	if _, err := p.expect("{"); err != nil {
		return err
	}
	for !p.accept("}") {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return p.errorf(t, "unexpected end of input in %s", f.name)
		case t.text == "reg" && p.toks[p.pos+1].kind == tokIdent:
			p.next()
			if err := p.parseRegister(f); err != nil {
				return err
			}
		case t.text == "next" && p.toks[p.pos+1].text == "(":
			p.next()
			if err := p.parseNext(f); err != nil {
				return err
			}
		default:
			if err := p.parseNode(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) parseRegister(f *FunctionBase) error {
	name, err := p.ident()
	if err != nil {
		return err
	}
	if _, err := p.expect("("); err != nil {
		return err
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	r := &Register{Name: name.text, Type: typ}
	for p.accept(",") {
		key, err := p.ident()
		if err != nil {
			return err
		}
		if _, err := p.expect("="); err != nil {
			return err
		}
		switch key.text {
		case "reset_value":
			v, err := p.parseValue(typ)
			if err != nil {
				return err
			}
			r.ResetValue = &v
		case "active_low":
			b, err := p.ident()
			if err != nil {
				return err
			}
			r.ActiveLow = b.text == "true"
		default:
			return p.errorf(key, "unknown register attribute %s", key)
		}
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	if err := f.AddRegister(r); err != nil {
		return p.errorf(name, "%v", err)
	}
	return nil
}

func (p *parser) parseNext(f *FunctionBase) error {
	if _, err := p.expect("("); err != nil {
		return err
	}
	for i := 0; !p.accept(")"); i++ {
		if i > 0 {
			if _, err := p.expect(","); err != nil {
				return err
			}
		}
		t, err := p.ident()
		if err != nil {
			return err
		}
		n, ok := f.NodeByName(t.text)
		if !ok {
			return p.errorf(t, "undefined node %s", t.text)
		}
		if err := f.SetNextState(i, n); err != nil {
			return p.errorf(t, "%v", err)
		}
	}
	return nil
}

// nodeArgs holds the parsed argument list of a node definition.
type nodeArgs struct {
	positional []token
	attrs      map[string]token
	lists      map[string][]token
	values     map[string]string
}

func (p *parser) parseArgs(typ *Type, op Op) (*nodeArgs, error) {
	args := &nodeArgs{attrs: map[string]token{}, lists: map[string][]token{}, values: map[string]string{}}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	for i := 0; !p.accept(")"); i++ {
		if i > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		t := p.next()
		if t.kind == tokIdent && p.peek().text == "=" {
			p.next()
			switch {
			case t.text == "value" && op == OpLiteral:
				_, text := p.valueText()
				args.values[t.text] = text
			case p.accept("["):
				var list []token
				for j := 0; !p.accept("]"); j++ {
					if j > 0 {
						if _, err := p.expect(","); err != nil {
							return nil, err
						}
					}
					item, err := p.ident()
					if err != nil {
						return nil, err
					}
					list = append(list, item)
				}
				args.lists[t.text] = list
			default:
				args.attrs[t.text] = p.next()
			}
			continue
		}
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected operand name, got %s", t)
		}
		args.positional = append(args.positional, t)
	}
	return args, nil
}

func lookup(f *FunctionBase, t token) (*Node, error) {
	n, ok := f.NodeByName(t.text)
	if !ok {
		return nil, errors.Errorf("line %d:%d: undefined node %s", t.line, t.col, t.text)
	}
	return n, nil
}

func lookupAll(f *FunctionBase, ts []token) ([]*Node, error) {
	out := make([]*Node, len(ts))
	for i, t := range ts {
		n, err := lookup(f, t)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (a *nodeArgs) optional(f *FunctionBase, key string) (*Node, error) {
	t, ok := a.attrs[key]
	if !ok {
		return nil, nil
	}
	return lookup(f, t)
}

func (a *nodeArgs) intAttr(key string) (int, error) {
	t, ok := a.attrs[key]
	if !ok {
		return 0, errors.Errorf("missing attribute %s", key)
	}
	return strconv.Atoi(t.text)
}

func (a *nodeArgs) boolAttr(key string, def bool) bool {
	t, ok := a.attrs[key]
	if !ok {
		return def
	}
	return t.text == "true"
}

func (p *parser) parseNode(f *FunctionBase) error {
	isRet := false
	if p.peek().text == "ret" && p.toks[p.pos+1].kind == tokIdent {
		p.next()
		isRet = true
	}
	name, err := p.ident()
	if err != nil {
		return err
	}
	if _, err := p.expect(":"); err != nil {
		return err
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if _, err := p.expect("="); err != nil {
		return err
	}
	opTok, err := p.ident()
	if err != nil {
		return err
	}
	op, ok := OpFromString(opTok.text)
	if !ok {
		return p.errorf(opTok, "unknown op %s", opTok.text)
	}
	args, err := p.parseArgs(typ, op)
	if err != nil {
		return err
	}
	n, err := buildNode(f, op, typ, args)
	if err != nil {
		return p.errorf(name, "%s: %v", name.text, err)
	}
	if !n.typ.Equal(typ) {
		return p.errorf(name, "%s: declared type %s, inferred %s", name.text, typ, n.typ)
	}
	if err := f.Rename(n, name.text); err != nil {
		return p.errorf(name, "%v", err)
	}
	if isRet {
		if err := f.SetReturnValue(n); err != nil {
			return p.errorf(name, "%v", err)
		}
	}
	return nil
}

func operand(f *FunctionBase, args *nodeArgs, i int) (*Node, error) {
	if i >= len(args.positional) {
		return nil, errors.Errorf("missing operand %d", i)
	}
	return lookup(f, args.positional[i])
}

func buildNode(f *FunctionBase, op Op, typ *Type, args *nodeArgs) (*Node, error) {
	switch op {
	case OpLiteral:
		text, ok := args.values["value"]
		if !ok {
			return nil, errors.New("literal requires value")
		}
		v, err := ParseTypedValue(text, typ)
		if err != nil {
			return nil, err
		}
		return f.MakeLiteral(v, ""), nil
	case OpBitSlice:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		start, err := args.intAttr("start")
		if err != nil {
			return nil, err
		}
		width, err := args.intAttr("width")
		if err != nil {
			return nil, err
		}
		return f.MakeBitSlice(x, start, width, "")
	case OpConcat, OpTuple, OpAnd, OpOr, OpXor, OpNand, OpNor:
		ops, err := lookupAll(f, args.positional)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpConcat:
			return f.MakeConcat(ops, "")
		case OpTuple:
			return f.MakeTuple(ops, "")
		}
		return f.MakeNary(op, ops, "")
	case OpSelect, OpOneHotSelect, OpPrioritySelect:
		sel, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		cases, err := lookupAll(f, args.lists["cases"])
		if err != nil {
			return nil, err
		}
		switch op {
		case OpOneHotSelect:
			return f.MakeOneHotSelect(sel, cases, "")
		case OpPrioritySelect:
			return f.MakePrioritySelect(sel, cases, "")
		}
		def, err := args.optional(f, "default")
		if err != nil {
			return nil, err
		}
		return f.MakeSelect(sel, cases, def, "")
	case OpOneHot:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		return f.MakeOneHot(x, args.boolAttr("lsb_prio", true), "")
	case OpNot, OpNeg:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		return f.MakeUnary(op, x, "")
	case OpEq, OpNe, OpULt, OpULe, OpUGt, OpUGe, OpAdd, OpSub, OpShll, OpShrl:
		a, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		b, err := operand(f, args, 1)
		if err != nil {
			return nil, err
		}
		if op.IsCompare() {
			return f.MakeCompare(op, a, b, "")
		}
		return f.MakeBinary(op, a, b, "")
	case OpZeroExt, OpSignExt:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		w, err := args.intAttr("new_bit_count")
		if err != nil {
			return nil, err
		}
		return f.MakeExtend(op, x, w, "")
	case OpTupleIndex:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		idx, err := args.intAttr("index")
		if err != nil {
			return nil, err
		}
		return f.MakeTupleIndex(x, idx, "")
	case OpAndReduce, OpOrReduce, OpXorReduce:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		return f.MakeReduce(op, x, "")
	case OpReceive:
		pred, err := args.optional(f, "predicate")
		if err != nil {
			return nil, err
		}
		return f.MakeReceive(args.attrs["channel"].text, pred, args.boolAttr("blocking", true), "")
	case OpSend:
		data, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		pred, err := args.optional(f, "predicate")
		if err != nil {
			return nil, err
		}
		return f.MakeSend(args.attrs["channel"].text, data, pred, "")
	case OpAssert:
		cond, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		return f.MakeAssert(cond, args.attrs["message"].text, args.attrs["label"].text, "")
	case OpTrace:
		cond, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		targs, err := lookupAll(f, args.lists["args"])
		if err != nil {
			return nil, err
		}
		return f.MakeTrace(cond, args.attrs["format"].text, targs, "")
	case OpInputPort:
		port, ok := args.attrs["name"]
		if !ok {
			return nil, errors.New("input_port requires name")
		}
		return f.AddInputPort(port.text, typ)
	case OpOutputPort:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		port, ok := args.attrs["name"]
		if !ok {
			return nil, errors.New("output_port requires name")
		}
		return f.AddOutputPort(port.text, x, "")
	case OpRegisterRead:
		return f.MakeRegisterRead(args.attrs["register"].text, "")
	case OpRegisterWrite:
		x, err := operand(f, args, 0)
		if err != nil {
			return nil, err
		}
		le, err := args.optional(f, "load_enable")
		if err != nil {
			return nil, err
		}
		rst, err := args.optional(f, "reset")
		if err != nil {
			return nil, err
		}
		return f.MakeRegisterWrite(args.attrs["register"].text, x, le, rst, "")
	}
	return nil, errors.Errorf("op %s cannot appear in a body", op)
}
