package passes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cchan/xlsynth/internal/ir"
)

// IterationLimitError is returned when the pipeline has not reached a
// fixpoint within its iteration limit.
type IterationLimitError struct {
	Function   string
	Iterations int
	Limit      int
}

// Error implements the error interface.
func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("%s: no fixpoint after %d iterations (limit %d)", e.Function, e.Iterations, e.Limit)
}

// IsIterationLimitError reports whether err is an IterationLimitError.
func IsIterationLimitError(err error) bool {
	var le *IterationLimitError
	return errors.As(err, &le)
}

// Pipeline runs a sequence of passes repeatedly until none of them changes
// the function.
type Pipeline struct {
	passes []Pass
}

// NewPipeline returns a pipeline running passes in order.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes}
}

// DefaultPipeline runs select simplification, CSE and DCE.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		NewSelectSimplification(),
		NewCommonSubexpressionElimination(),
		NewDeadCodeElimination(),
	)
}

var _ Pass = (*Pipeline)(nil)

// Passes returns the pipeline's passes in order.
func (p *Pipeline) Passes() []Pass { return p.passes }

// Name implements Pass.
func (p *Pipeline) Name() string { return "Fixpoint Pipeline" }

// ShortName implements Pass.
func (p *Pipeline) ShortName() string { return "pipeline" }

// RunOnFunctionBase runs the pipeline without a deadline.
func (p *Pipeline) RunOnFunctionBase(f *ir.FunctionBase, opts Options, res *Results) (bool, error) {
	return p.Run(context.Background(), f, opts, res)
}

// Run iterates the passes over f to a fixpoint. The context is checked
// before every iteration.
func (p *Pipeline) Run(ctx context.Context, f *ir.FunctionBase, opts Options, res *Results) (bool, error) {
	limit := opts.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	changed := false
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return changed, fmt.Errorf("%s: %w", f.Name(), err)
		}
		if iter > limit {
			return changed, &IterationLimitError{Function: f.Name(), Iterations: iter - 1, Limit: limit}
		}
		if res != nil {
			res.Iterations++
		}
		iterChanged := false
		for _, pass := range p.passes {
			c, err := pass.RunOnFunctionBase(f, opts, res)
			if err != nil {
				return changed, fmt.Errorf("%s: %s: %w", f.Name(), pass.ShortName(), err)
			}
			iterChanged = iterChanged || c
		}
		if !iterChanged {
			slog.Debug("pipeline reached fixpoint", "function", f.Name(), "iterations", iter)
			return changed, nil
		}
		changed = true
	}
}

// RunOnPackage runs the pipeline on every function, proc and block in pkg.
func (p *Pipeline) RunOnPackage(ctx context.Context, pkg *ir.Package, opts Options, res *Results) (bool, error) {
	start := time.Now()
	changed := false
	for _, f := range pkg.FunctionBases() {
		c, err := p.Run(ctx, f, opts, res)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	slog.Info("optimized package",
		"package", pkg.Name(),
		"changed", changed,
		"elapsed", time.Since(start))
	return changed, nil
}
