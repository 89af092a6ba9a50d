package store

import "time"

// Run status values besides the simulation error codes.
const (
	StatusOK = "OK"
)

// Simulation modes.
const (
	ModeProcs = "procs"
	ModeBlock = "block"
)

// PassRun records one optimization pipeline run over a package.
type PassRun struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	StartedAt   time.Time `json:"started_at"`
	PackageName string    `json:"package"`

	// InputHash and OutputHash fingerprint the printed package before and
	// after the pipeline.
	InputHash  string `json:"input_hash"`
	OutputHash string `json:"output_hash"`

	OptLevel   int  `json:"opt_level"`
	Changed    bool `json:"changed"`
	Iterations int  `json:"iterations"`

	// Rewrites counts applications per rule name.
	Rewrites map[string]int `json:"rewrites"`
}

// SimRun records one simulation and its verdict.
type SimRun struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	StartedAt   time.Time `json:"started_at"`
	PackageHash string    `json:"package_hash"`
	Mode        string    `json:"mode"`
	Top         string    `json:"top,omitempty"`
	Backend     string    `json:"backend"`

	// Cycles is ticks for proc runs and clock cycles for block runs.
	Cycles          int64 `json:"cycles"`
	LastOutputCycle int64 `json:"last_output_cycle"`

	// Status is StatusOK or the failing error code.
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Succeeded reports whether the run passed.
func (r SimRun) Succeeded() bool { return r.Status == StatusOK }
