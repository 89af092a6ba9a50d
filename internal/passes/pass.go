// Package passes implements IR-to-IR optimization passes and the pipeline
// that iterates them to a fixpoint.
//
// Every pass rewrites a function in place through the ir factory methods and
// ReplaceUsesWith; no pass mutates an existing node's operands. Nodes left
// without users are removed by DeadCodeElimination.
package passes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cchan/xlsynth/internal/ir"
)

// MaxOptLevel is the highest (and default) optimization level.
const MaxOptLevel = 3

// DefaultMaxIterations bounds the pipeline's fixpoint loop.
const DefaultMaxIterations = 100

// NarrowingEnabled reports whether rewrites that narrow selects run at the
// given level.
func NarrowingEnabled(optLevel int) bool { return optLevel >= 2 }

// SplitsEnabled reports whether rewrites that split selects into several
// nodes run at the given level.
func SplitsEnabled(optLevel int) bool { return optLevel >= 3 }

// Options configures a pass invocation.
type Options struct {
	OptLevel      int
	MaxIterations int
}

// Option mutates Options.
type Option func(*Options)

// WithOptLevel sets the optimization level.
func WithOptLevel(level int) Option {
	return func(o *Options) {
		o.OptLevel = level
	}
}

// WithMaxIterations sets the pipeline's iteration limit.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// NewOptions returns options at MaxOptLevel with opts applied.
func NewOptions(opts ...Option) Options {
	o := Options{OptLevel: MaxOptLevel, MaxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Results accumulates statistics across pass invocations.
type Results struct {
	Invocations int
	Iterations  int
	Rewrites    map[string]int
}

// NewResults returns empty results.
func NewResults() *Results {
	return &Results{Rewrites: make(map[string]int)}
}

func (r *Results) record(rewrite string) {
	if r == nil {
		return
	}
	if r.Rewrites == nil {
		r.Rewrites = make(map[string]int)
	}
	r.Rewrites[rewrite]++
}

// Total returns the number of rewrites recorded.
func (r *Results) Total() int {
	n := 0
	for _, c := range r.Rewrites {
		n += c
	}
	return n
}

// Summary renders the rewrite counts sorted by name, e.g.
// "constant_selector=2 dce=5".
func (r *Results) Summary() string {
	names := make([]string, 0, len(r.Rewrites))
	for name := range r.Rewrites {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, r.Rewrites[name])
	}
	return strings.Join(parts, " ")
}

// Pass is one IR transformation.
type Pass interface {
	// Name is a human-readable description.
	Name() string
	// ShortName identifies the pass on the command line.
	ShortName() string
	// RunOnFunctionBase transforms f and reports whether anything changed.
	RunOnFunctionBase(f *ir.FunctionBase, opts Options, res *Results) (bool, error)
}
