package harness

import (
	"github.com/cchan/xlsynth/internal/engine"
)

// StatusOK is the status of a simulation that finished without error.
const StatusOK = "OK"

// StatusInternal is the status of a failure that is not a simulation error.
const StatusInternal = "INTERNAL"

// Result is the outcome of running a testbench.
type Result struct {
	Name string `json:"name"`
	Mode string `json:"mode"`

	// Pass is true when the run matched the testbench's expectation: by
	// default that it finished with StatusOK.
	Pass bool `json:"pass"`

	// Status is StatusOK, a simulation error code, or StatusInternal.
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`

	// Cycles is ticks for procs and clock cycles for blocks.
	Cycles          int64 `json:"cycles"`
	LastOutputCycle int64 `json:"last_output_cycle"`

	// Outputs holds produced values when no expectations were given.
	Outputs engine.ChannelValues `json:"-"`

	// Unconsumed holds inputs left when the outputs were complete.
	Unconsumed engine.ChannelValues `json:"-"`

	TraceMessages     []string `json:"trace_messages,omitempty"`
	AssertionMessages []string `json:"assertion_messages,omitempty"`

	// Registers is the block's final register state.
	Registers string `json:"registers,omitempty"`

	// Errors lists expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Err is the simulation error, if any.
	Err error `json:"-"`
}

// NewResult creates a result that has not run yet.
func NewResult(name, mode string) *Result {
	return &Result{
		Name:   name,
		Mode:   mode,
		Status: StatusOK,
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
