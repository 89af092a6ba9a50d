// Package engine simulates procs and blocks against channel-level test
// vectors.
//
// Two runtimes live here:
//
// Proc network:
// EvaluateProcs feeds input values into per-channel queues and ticks every
// proc of the package. A tick activates each proc at most once; a proc whose
// blocking receive finds an empty channel is retried later in the same tick
// and skipped when nothing else makes progress. Activations are
// transactional: receives, sends and the next state are committed only when
// the activation completes.
//
// Block:
// RunBlock drives a single block cycle by cycle. Channels are mapped onto
// ports through a BlockSignature. Ready/valid inputs are offered with a
// seeded random valid pattern that stays asserted until the value is
// consumed, outputs are checked against the expected values as soon as they
// are transferred, and memories described by the signature are emulated by
// MemoryModel with a one-cycle read latency.
//
// Both runtimes are deterministic: the same inputs, options and seed always
// produce the same sequence of events and the same verdict. Failures are
// reported as *SimError values carrying a Code that callers branch on.
package engine
