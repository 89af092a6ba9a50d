// Package store keeps the xlsim run history in a SQLite file.
//
// Two kinds of run are recorded, and neither is ever updated once written:
//   - pass runs (pass_runs, pass_rewrites): one optimizer pipeline run over a
//     package, the IR fingerprints before and after, and how often each
//     rewrite rule fired
//   - sim runs (sim_runs): one EvaluateProcs or RunBlock call and its verdict
//
// Both tables draw seq from NextSeq, and listings sort by seq then ID. The
// history therefore replays in command order regardless of clock skew.
//
// Open applies the connection pragmas (WAL journal, NORMAL sync, a 5s busy
// timeout, foreign keys) and migrates older files via PRAGMA user_version.
package store
