package engine

// OutputWatchdog enforces the maximum number of consecutive cycles a block
// may run without transferring an output.
//
// Every cycle in which an output is accepted (and every reset cycle) counts
// as progress. Check is called once per cycle after outputs are processed.
//
// The watchdog is what guarantees termination of RunBlock: either the
// expected outputs drain or the idle count eventually exceeds the limit.
type OutputWatchdog struct {
	maxIdle    int64 // Maximum cycles allowed without output
	lastOutput int64 // Cycle of the most recent progress
}

// NewOutputWatchdog creates a watchdog with the given limit.
//
// maxIdle: cycles allowed between outputs.
// Typical default: 100 (configurable via WithMaxCyclesNoOutput)
func NewOutputWatchdog(maxIdle int64) *OutputWatchdog {
	return &OutputWatchdog{maxIdle: maxIdle}
}

// Observe records progress at cycle.
func (w *OutputWatchdog) Observe(cycle int64) {
	w.lastOutput = cycle
}

// Check validates the idle count at cycle against the limit.
//
// Returns a NO_OUTPUT SimError once cycle-lastOutput exceeds the limit.
func (w *OutputWatchdog) Check(cycle int64) error {
	idle := cycle - w.lastOutput
	if idle > w.maxIdle {
		return NewNoOutputError(cycle, w.maxIdle, idle)
	}
	return nil
}

// Reset clears recorded progress.
func (w *OutputWatchdog) Reset() {
	w.lastOutput = 0
}

// LastOutput returns the cycle of the most recent progress.
// Used for the output stats file and diagnostics.
func (w *OutputWatchdog) LastOutput() int64 {
	return w.lastOutput
}

// MaxIdle returns the idle limit.
func (w *OutputWatchdog) MaxIdle() int64 {
	return w.maxIdle
}
