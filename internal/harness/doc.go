// Package harness turns testbench descriptions into simulation runs.
//
// A testbench names an IR package, a backend, channel inputs and expected
// outputs, and for block backends a block signature and memory models. It
// can come from command-line flags or from a manifest file.
//
// # Manifest Format
//
// Manifests are YAML (.yaml, .yml) or CUE (.cue) files with the same
// fields. Unknown fields are rejected in both.
//
//	name: passthrough
//	ir: passthru.ir
//	backend: block_interpreter
//	block_signature: passthru.sig.yaml
//	inputs:
//	  in: ["bits[8]:1", "bits[8]:2"]
//	expected:
//	  out: ["1", "2"]
//	memories: ["mem=4/bits[8]:0"]
//	expect:
//	  status: OK
//	  trace_contains: ["Block passthru trace"]
//
// Relative paths resolve against the manifest's directory. Values may be
// written in typed form ("bits[8]:1") or bare when the channel's type is
// known ("1", "0xff").
//
// # Value Files
//
// Channel values come in two text formats: one value per line for a single
// channel (see ParseValues), or all channels in one file:
//
//	in : {
//	  bits[8]:1
//	  bits[8]:2
//	}
//
// # Results
//
// Simulation failures do not abort Run. They are folded into the Result's
// Status (the engine error code, or OK) so manifests can expect them, and
// a Result can be printed as a stable report for golden comparison.
package harness
