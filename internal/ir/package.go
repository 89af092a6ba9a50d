package ir

import "fmt"

// ChannelKind selects queue semantics for a channel.
type ChannelKind int

const (
	// Streaming channels are FIFOs: each value is received exactly once.
	Streaming ChannelKind = iota + 1
	// SingleValue channels hold one value; reads do not consume it and
	// writes overwrite it.
	SingleValue
)

func (k ChannelKind) String() string {
	switch k {
	case Streaming:
		return "streaming"
	case SingleValue:
		return "single_value"
	}
	return "unknown"
}

// ChannelOps restricts the direction a channel is used in.
type ChannelOps int

const (
	SendReceive ChannelOps = iota + 1
	SendOnly
	ReceiveOnly
)

func (o ChannelOps) String() string {
	switch o {
	case SendReceive:
		return "send_receive"
	case SendOnly:
		return "send_only"
	case ReceiveOnly:
		return "receive_only"
	}
	return "unknown"
}

// Channel is a named typed connection between procs or to the outside world.
// Receive-only channels are fed by the testbench; send-only channels are
// observed by it.
type Channel struct {
	Name string
	Type *Type
	Kind ChannelKind
	Ops  ChannelOps
}

// Package is a collection of channels, functions, procs and blocks.
type Package struct {
	name      string
	channels  []*Channel
	functions []*FunctionBase
	top       string
}

// NewPackage creates an empty package.
func NewPackage(name string) *Package {
	return &Package{name: name}
}

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// AddChannel declares a channel.
func (p *Package) AddChannel(ch *Channel) error {
	if _, err := p.GetChannel(ch.Name); err == nil {
		return fmt.Errorf("package %s: duplicate channel %q", p.name, ch.Name)
	}
	if ch.Kind == 0 {
		ch.Kind = Streaming
	}
	if ch.Ops == 0 {
		ch.Ops = SendReceive
	}
	p.channels = append(p.channels, ch)
	return nil
}

// GetChannel looks up a channel by name.
func (p *Package) GetChannel(name string) (*Channel, error) {
	for _, ch := range p.channels {
		if ch.Name == name {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("no channel named %q", name)
}

// Channels returns the channels in declaration order.
func (p *Package) Channels() []*Channel { return p.channels }

func (p *Package) add(kind FunctionKind, name string) (*FunctionBase, error) {
	if _, err := p.GetFunctionBase(name); err == nil {
		return nil, fmt.Errorf("package %s: duplicate %s %q", p.name, kind, name)
	}
	f := newFunctionBase(kind, name, p)
	p.functions = append(p.functions, f)
	return f, nil
}

// AddFunction creates an empty function.
func (p *Package) AddFunction(name string) (*FunctionBase, error) { return p.add(KindFunction, name) }

// AddProc creates an empty proc.
func (p *Package) AddProc(name string) (*FunctionBase, error) { return p.add(KindProc, name) }

// AddBlock creates an empty block.
func (p *Package) AddBlock(name string) (*FunctionBase, error) { return p.add(KindBlock, name) }

// GetFunctionBase looks up any function, proc or block by name.
func (p *Package) GetFunctionBase(name string) (*FunctionBase, error) {
	for _, f := range p.functions {
		if f.name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("package %s has no function, proc or block named %q", p.name, name)
}

// FunctionBases returns every function, proc and block in declaration order.
func (p *Package) FunctionBases() []*FunctionBase { return p.functions }

func (p *Package) ofKind(kind FunctionKind) []*FunctionBase {
	var out []*FunctionBase
	for _, f := range p.functions {
		if f.kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Functions returns the combinational functions.
func (p *Package) Functions() []*FunctionBase { return p.ofKind(KindFunction) }

// Procs returns the procs.
func (p *Package) Procs() []*FunctionBase { return p.ofKind(KindProc) }

// Blocks returns the blocks.
func (p *Package) Blocks() []*FunctionBase { return p.ofKind(KindBlock) }

// SetTop marks name as the package entry point.
func (p *Package) SetTop(name string) error {
	if _, err := p.GetFunctionBase(name); err != nil {
		return err
	}
	p.top = name
	return nil
}

// HasTop reports whether an entry point was explicitly marked.
func (p *Package) HasTop() bool { return p.top != "" }

// Top returns the entry point: the explicitly marked top, or the last
// declared function base when none is marked.
func (p *Package) Top() (*FunctionBase, error) {
	if p.top != "" {
		return p.GetFunctionBase(p.top)
	}
	if len(p.functions) == 0 {
		return nil, fmt.Errorf("package %s is empty", p.name)
	}
	return p.functions[len(p.functions)-1], nil
}
