package passes

import (
	"fmt"

	"github.com/cchan/xlsynth/internal/ir"
)

// DeadCodeElimination removes nodes whose values are never observed.
// Side-effecting nodes, parameters and ports are always kept.
type DeadCodeElimination struct{}

// NewDeadCodeElimination returns the pass.
func NewDeadCodeElimination() *DeadCodeElimination { return &DeadCodeElimination{} }

var _ Pass = (*DeadCodeElimination)(nil)

// Name implements Pass.
func (p *DeadCodeElimination) Name() string { return "Dead Code Elimination" }

// ShortName implements Pass.
func (p *DeadCodeElimination) ShortName() string { return "dce" }

// RunOnFunctionBase tombstones unused nodes, users before operands, so a
// single reverse sweep removes whole dead cones.
func (p *DeadCodeElimination) RunOnFunctionBase(f *ir.FunctionBase, opts Options, res *Results) (bool, error) {
	order, err := f.TopoSort()
	if err != nil {
		return false, fmt.Errorf("dce: %w", err)
	}
	removed := 0
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if n.Op().IsSideEffecting() || n.UserCount() > 0 || n.HasImplicitUse() {
			continue
		}
		if err := f.RemoveNode(n); err != nil {
			return removed > 0, fmt.Errorf("dce: %w", err)
		}
		removed++
		res.record("dce")
	}
	if res != nil {
		res.Invocations++
	}
	return removed > 0, nil
}
