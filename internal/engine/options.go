package engine

import "github.com/cchan/xlsynth/internal/interp"

const (
	// DefaultMaxCyclesNoOutput is how long a block may idle between outputs.
	DefaultMaxCyclesNoOutput = 100

	// DefaultRandomSeed seeds the valid-assertion pattern.
	DefaultRandomSeed = 42

	// DefaultTracePerTicks controls how often queue sizes are logged.
	DefaultTracePerTicks = 100
)

// Options configures EvaluateProcs and RunBlock.
type Options struct {
	Backend      interp.Backend
	Top          string
	ShowTrace    bool
	FailOnAssert bool

	// Proc runs. Each entry is one run; a negative entry runs until every
	// expected output has been produced.
	Ticks         []int64
	TracePerTicks int64

	// Block runs.
	MaxCyclesNoOutput    int64
	RandomSeed           int64
	ProbInputValidAssert float64
	OutputStatsPath      string
}

// Option configures a simulation.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Backend:              interp.BackendInterpreter,
		Ticks:                []int64{-1},
		TracePerTicks:        DefaultTracePerTicks,
		MaxCyclesNoOutput:    DefaultMaxCyclesNoOutput,
		RandomSeed:           DefaultRandomSeed,
		ProbInputValidAssert: 1.0,
	}
}

func buildOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBackend selects the evaluator used for procs and blocks.
//
// Default: interp.BackendInterpreter
func WithBackend(b interp.Backend) Option {
	return func(o *Options) { o.Backend = b }
}

// WithTop names the proc or block to simulate.
func WithTop(name string) Option {
	return func(o *Options) { o.Top = name }
}

// WithShowTrace logs trace messages and memory activity.
func WithShowTrace(show bool) Option {
	return func(o *Options) { o.ShowTrace = show }
}

// WithFailOnAssert turns fired assertions into an ASSERTION_FIRED error.
func WithFailOnAssert(fail bool) Option {
	return func(o *Options) { o.FailOnAssert = fail }
}

// WithTicks sets the tick count of each proc run.
//
// Default: a single run until outputs converge (-1).
func WithTicks(ticks ...int64) Option {
	return func(o *Options) { o.Ticks = append([]int64(nil), ticks...) }
}

// WithTracePerTicks logs queue sizes for the first n ticks and every n-th
// tick after that.
func WithTracePerTicks(n int64) Option {
	return func(o *Options) { o.TracePerTicks = n }
}

// WithMaxCyclesNoOutput sets how many cycles a block may run between
// outputs.
//
// Default: 100 cycles (DefaultMaxCyclesNoOutput)
// Use WithMaxCyclesNoOutput(5) in tests that expect the block to stall.
func WithMaxCyclesNoOutput(n int64) Option {
	return func(o *Options) { o.MaxCyclesNoOutput = n }
}

// WithRandomSeed seeds the valid-assertion pattern.
func WithRandomSeed(seed int64) Option {
	return func(o *Options) { o.RandomSeed = seed }
}

// WithProbInputValidAssert sets the per-cycle probability that an idle
// ready/valid input raises valid.
//
// Default: 1.0 (valid whenever data is available)
func WithProbInputValidAssert(p float64) Option {
	return func(o *Options) { o.ProbInputValidAssert = p }
}

// WithOutputStatsPath writes the last output cycle to path after a block
// run.
func WithOutputStatsPath(path string) Option {
	return func(o *Options) { o.OutputStatsPath = path }
}
