package engine

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/interp"
	"github.com/cchan/xlsynth/internal/ir"
)

// ProcRuntime ticks every proc of a package over shared channel queues.
//
// Execution order within a tick is the package's declaration order. A proc
// that blocks is retried after the others until a full pass activates
// nothing, so data sent earlier in a tick is visible to procs activated
// later in the same tick.
type ProcRuntime struct {
	pkg    *ir.Package
	queues *QueueManager
	procs  []*procInstance
	clock  *Clock
}

type procInstance struct {
	f      *ir.FunctionBase
	ev     interp.Evaluator
	state  []ir.Value
	events interp.Events
}

// TickResult summarizes one tick.
type TickResult struct {
	// Activations is the number of procs that completed an activation.
	Activations int

	// Blocked lists the procs left waiting on a receive, in package order.
	Blocked []string
}

// Progressed reports whether any proc activated.
func (r TickResult) Progressed() bool { return r.Activations > 0 }

// NewProcRuntime prepares every proc of pkg for evaluation with backend.
// Proc state starts at its initial values.
func NewProcRuntime(pkg *ir.Package, backend interp.Backend) (*ProcRuntime, error) {
	r := &ProcRuntime{pkg: pkg, queues: NewQueueManager(pkg), clock: NewClock()}
	for _, f := range pkg.Procs() {
		ev, err := interp.New(backend, f)
		if err != nil {
			return nil, fmt.Errorf("prepare proc %s: %w", f.Name(), err)
		}
		r.procs = append(r.procs, &procInstance{f: f, ev: ev})
	}
	if len(r.procs) == 0 {
		return nil, newMalformedInputError("package %s has no procs", pkg.Name())
	}
	r.ResetState()
	return r, nil
}

// Queues returns the channel queues.
func (r *ProcRuntime) Queues() *QueueManager { return r.queues }

// Ticks returns the number of ticks run since the last reset.
func (r *ProcRuntime) Ticks() int64 { return r.clock.Current() }

// ResetState returns every proc to its initial state. Channel queues keep
// their contents.
func (r *ProcRuntime) ResetState() {
	for _, p := range r.procs {
		p.state = p.state[:0]
		for i := range p.f.StateReads() {
			p.state = append(p.state, p.f.InitValue(i))
		}
		p.events = interp.Events{}
	}
	r.clock.Reset()
}

// ProcNames returns the proc names in package order.
func (r *ProcRuntime) ProcNames() []string {
	names := make([]string, len(r.procs))
	for i, p := range r.procs {
		names[i] = p.f.Name()
	}
	return names
}

// Events returns the events recorded for a proc in the last tick.
func (r *ProcRuntime) Events(proc string) interp.Events {
	for _, p := range r.procs {
		if p.f.Name() == proc {
			return p.events
		}
	}
	return interp.Events{}
}

// State returns a proc's current state values.
func (r *ProcRuntime) State(proc string) []ir.Value {
	for _, p := range r.procs {
		if p.f.Name() == proc {
			return append([]ir.Value(nil), p.state...)
		}
	}
	return nil
}

// Tick activates every proc at most once.
func (r *ProcRuntime) Tick() (TickResult, error) {
	for _, p := range r.procs {
		p.events = interp.Events{}
	}
	var res TickResult
	done := make([]bool, len(r.procs))
	for progress := true; progress; {
		progress = false
		for i, p := range r.procs {
			if done[i] {
				continue
			}
			ok, err := r.activate(p)
			if err != nil {
				return res, err
			}
			if ok {
				done[i] = true
				progress = true
				res.Activations++
			}
		}
	}
	for i, p := range r.procs {
		if !done[i] {
			res.Blocked = append(res.Blocked, p.f.Name())
		}
	}
	r.clock.Advance()
	return res, nil
}

// activate evaluates one proc and commits its effects. It returns false,
// with nothing committed, when a blocking receive found no data.
func (r *ProcRuntime) activate(p *procInstance) (bool, error) {
	env := &procEnv{p: p, queues: r.queues, peeked: map[string]int{}}
	fr, err := p.ev.Evaluate(env)
	if interp.IsBlocked(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("proc %s: %w", p.f.Name(), err)
	}

	for ch, n := range env.peeked {
		q, _ := r.queues.Get(ch)
		for i := 0; i < n; i++ {
			q.Read()
		}
	}
	for _, n := range p.f.Nodes() {
		if n.Op() != ir.OpSend || !fr.Bool(n.Predicate()) {
			continue
		}
		q, err := r.queues.Get(n.Channel())
		if err != nil {
			return false, err
		}
		if err := q.Write(fr.Value(n.Data())); err != nil {
			return false, fmt.Errorf("proc %s: send %s: %w", p.f.Name(), n.Name(), err)
		}
	}
	for i := range p.state {
		if next := p.f.NextState(i); next != nil {
			p.state[i] = fr.Value(next)
		}
	}
	p.events = fr.Events
	return true, nil
}

// procEnv serves one activation. Receives peek successive queue entries and
// count them; consumption happens only if the activation completes.
type procEnv struct {
	p      *procInstance
	queues *QueueManager
	peeked map[string]int
}

func (e *procEnv) Input(n *ir.Node) (ir.Value, error) {
	if n.Op() != ir.OpStateRead {
		return ir.Value{}, newInvariantError("proc %s: %s %s has no value", e.p.f.Name(), n.Op(), n.Name())
	}
	return e.p.state[n.Index()], nil
}

func (e *procEnv) Receive(n *ir.Node) (ir.Value, bool, error) {
	q, err := e.queues.Get(n.Channel())
	if err != nil {
		return ir.Value{}, false, err
	}
	if q.Channel().Kind == ir.SingleValue {
		v, ok := q.Peek(0)
		return v, ok, nil
	}
	v, ok := q.Peek(e.peeked[n.Channel()])
	if ok {
		e.peeked[n.Channel()]++
	}
	return v, ok, nil
}
