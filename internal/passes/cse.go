package passes

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/cchan/xlsynth/internal/ir"
)

// CommonSubexpressionElimination replaces structurally identical pure nodes
// with the first such node in topological order.
type CommonSubexpressionElimination struct{}

// NewCommonSubexpressionElimination returns the pass.
func NewCommonSubexpressionElimination() *CommonSubexpressionElimination {
	return &CommonSubexpressionElimination{}
}

var _ Pass = (*CommonSubexpressionElimination)(nil)

// Name implements Pass.
func (p *CommonSubexpressionElimination) Name() string { return "Common Subexpression Elimination" }

// ShortName implements Pass.
func (p *CommonSubexpressionElimination) ShortName() string { return "cse" }

// RunOnFunctionBase buckets nodes by structural hash and merges equal ones.
// Operands are canonicalized before their users are hashed, so chains of
// duplicates collapse in one sweep.
func (p *CommonSubexpressionElimination) RunOnFunctionBase(f *ir.FunctionBase, opts Options, res *Results) (bool, error) {
	order, err := f.TopoSort()
	if err != nil {
		return false, fmt.Errorf("cse: %w", err)
	}
	buckets := make(map[uint64][]*ir.Node)
	changed := false
	for _, n := range order {
		if n.Op().IsSideEffecting() {
			continue
		}
		h := structuralHash(n)
		var match *ir.Node
		for _, cand := range buckets[h] {
			if structurallyEqual(cand, n) {
				match = cand
				break
			}
		}
		if match == nil {
			buckets[h] = append(buckets[h], n)
			continue
		}
		if n.UserCount() == 0 && !n.HasImplicitUse() {
			continue
		}
		if err := f.ReplaceUsesWith(n, match); err != nil {
			return changed, fmt.Errorf("cse: %w", err)
		}
		changed = true
		res.record("cse")
	}
	if res != nil {
		res.Invocations++
	}
	return changed, nil
}

// structuralHash digests a node's op, type, operand IDs and attributes.
func structuralHash(n *ir.Node) uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	_, _ = h.WriteString(n.Op().String())
	_, _ = h.WriteString(n.Type().String())
	for _, o := range n.Operands() {
		writeInt(int(o.ID()))
	}
	switch n.Op() {
	case ir.OpLiteral:
		_, _ = h.WriteString(n.Value().String())
	case ir.OpBitSlice:
		writeInt(n.Start())
	case ir.OpTupleIndex:
		writeInt(n.Index())
	case ir.OpOneHot:
		if n.LsbPriority() {
			writeInt(1)
		}
	case ir.OpSelect:
		writeInt(n.CaseCount())
	}
	return h.Sum64()
}

func structurallyEqual(a, b *ir.Node) bool {
	if a.Op() != b.Op() || !a.Type().Equal(b.Type()) || a.OperandCount() != b.OperandCount() {
		return false
	}
	for i := 0; i < a.OperandCount(); i++ {
		if a.Operand(i) != b.Operand(i) {
			return false
		}
	}
	switch a.Op() {
	case ir.OpLiteral:
		return a.Value().Equal(b.Value())
	case ir.OpBitSlice:
		return a.Start() == b.Start()
	case ir.OpTupleIndex:
		return a.Index() == b.Index()
	case ir.OpOneHot:
		return a.LsbPriority() == b.LsbPriority()
	case ir.OpSelect:
		return a.CaseCount() == b.CaseCount()
	}
	return true
}
