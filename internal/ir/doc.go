// Package ir is the graph model shared by the optimizer and the simulator:
// bit vectors, values, types, nodes and the functions, procs and blocks that
// own them.
//
// Nodes live in an arena owned by their function and refer to operands by
// stable NodeID. Rewrites never mutate operands of existing nodes directly;
// they build a replacement node and call ReplaceUsesWith, after which the
// old node is dead code until RemoveNode tombstones it.
//
// This package imports nothing internal.
package ir
