package passes

import (
	"fmt"
	"log/slog"

	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/query"
	"github.com/cchan/xlsynth/internal/ternary"
)

// SelectSimplification rewrites sel, one_hot_sel, priority_sel and one_hot
// nodes into cheaper equivalent forms using bit-level facts from the
// stateless and ternary query engines.
type SelectSimplification struct{}

// NewSelectSimplification returns the pass.
func NewSelectSimplification() *SelectSimplification { return &SelectSimplification{} }

var _ Pass = (*SelectSimplification)(nil)

// Name implements Pass.
func (p *SelectSimplification) Name() string { return "Select Simplification" }

// ShortName implements Pass.
func (p *SelectSimplification) ShortName() string { return "select_simp" }

// RunOnFunctionBase makes one topological sweep over f, applying the first
// matching rewrite to each node, then splits one-hot selects until no more
// splits apply.
func (p *SelectSimplification) RunOnFunctionBase(f *ir.FunctionBase, opts Options, res *Results) (bool, error) {
	qe := query.NewDefault()
	if _, err := qe.Populate(f); err != nil {
		return false, fmt.Errorf("select simplification: %w", err)
	}
	order, err := f.TopoSort()
	if err != nil {
		return false, fmt.Errorf("select simplification: %w", err)
	}

	s := &selectSimplifier{f: f, qe: qe, optLevel: opts.OptLevel, res: res}
	changed := false
	for _, n := range order {
		if !isUsed(n) {
			continue
		}
		nodeChanged, err := s.simplify(n)
		if err != nil {
			return changed, fmt.Errorf("select simplification of %s: %w", n.Name(), err)
		}
		changed = changed || nodeChanged
	}

	if SplitsEnabled(opts.OptLevel) {
		var worklist []*ir.Node
		for _, n := range f.Nodes() {
			if n.Op() == ir.OpOneHotSelect {
				worklist = append(worklist, n)
			}
		}
		// Engine facts may be stale for nodes created above; the stateless
		// engine still answers for them.
		for len(worklist) > 0 {
			n := worklist[0]
			worklist = worklist[1:]
			if !isUsed(n) {
				continue
			}
			split, err := s.maybeSplitOneHotSelect(n)
			if err != nil {
				return changed, fmt.Errorf("splitting %s: %w", n.Name(), err)
			}
			if len(split) > 0 {
				changed = true
				worklist = append(worklist, split...)
			}
		}
	}
	if res != nil {
		res.Invocations++
	}
	return changed, nil
}

// isUsed reports whether n is live and observable. Unused nodes are left
// for dead code elimination.
func isUsed(n *ir.Node) bool {
	return !n.IsDead() && (n.UserCount() > 0 || n.HasImplicitUse())
}

type selectSimplifier struct {
	f        *ir.FunctionBase
	qe       query.Engine
	optLevel int
	res      *Results
}

func (s *selectSimplifier) build() *builder { return &builder{f: s.f} }

// replace commits a rewrite built with b.
func (s *selectSimplifier) replace(b *builder, n, repl *ir.Node, rewrite string) (bool, error) {
	if b != nil && b.err != nil {
		return false, b.err
	}
	if err := s.f.ReplaceUsesWith(n, repl); err != nil {
		return false, err
	}
	slog.Debug("select simplification", "rewrite", rewrite, "node", n.Name(), "replacement", repl.Name())
	s.res.record(rewrite)
	return true, nil
}

func (s *selectSimplifier) ternaryOf(n *ir.Node) ternary.Vector {
	if t, ok := s.qe.GetTernary(n); ok {
		return t
	}
	return ternary.AllUnknown(n.BitCount())
}

func isTwoWaySelect(n *ir.Node) bool {
	return n.Op() == ir.OpSelect && n.Selector().BitCount() == 1 && n.CaseCount() == 2
}

func allSame(nodes []*ir.Node) bool {
	for _, n := range nodes {
		if n != nodes[0] {
			return false
		}
	}
	return true
}

// simplify tries each rewrite in priority order; the first that applies wins.
func (s *selectSimplifier) simplify(n *ir.Node) (bool, error) {
	narrowing := NarrowingEnabled(s.optLevel)
	splits := SplitsEnabled(s.optLevel)

	type rule struct {
		enabled bool
		apply   func(*ir.Node) (bool, error)
	}
	rules := []rule{
		{true, s.constantSelector},
		{true, s.priorityKnownPrefix},
		{true, s.constantOneHotSelector},
		{true, s.identicalCases},
		{true, s.tupleDecomposition},
		{narrowing, s.oneHotCaseDedup},
		{splits, s.priorityAdjacentMerge},
		{narrowing, s.singleBitMux},
		{narrowing, s.mergeConsecutiveSelects},
		{splits, s.selectToMask},
		{narrowing, s.removeDeadCases},
		{splits, s.squeeze},
		{true, s.collapseCommonCase},
		{true, s.sameSelectorChain},
		{true, s.decomposeOneHot},
	}
	for _, r := range rules {
		if !r.enabled {
			continue
		}
		changed, err := r.apply(n)
		if err != nil || changed {
			return changed, err
		}
	}
	return false, nil
}

// constantSelector replaces a sel with a fully known selector by the chosen
// case, or by the default when the selector is past the last case.
func (s *selectSimplifier) constantSelector(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpSelect || !query.IsFullyKnown(s.qe, n.Selector()) {
		return false, nil
	}
	v, _ := query.KnownValueAsBits(s.qe, n.Selector())
	if !v.FitsInUint64() || v.Uint64() >= uint64(n.CaseCount()) {
		if n.Default() == nil {
			return false, fmt.Errorf("selector value %s has no case and no default", v)
		}
		return s.replace(nil, n, n.Default(), "constant_selector")
	}
	return s.replace(nil, n, n.Case(int(v.Uint64())), "constant_selector")
}

// priorityKnownPrefix resolves a priority_sel whose first possibly-set
// selector bit is known one, or whose selector is known zero. An unknown bit
// ahead of the first known one blocks the rewrite.
func (s *selectSimplifier) priorityKnownPrefix(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpPrioritySelect {
		return false, nil
	}
	sel := s.ternaryOf(n.Selector())
	for i, v := range sel {
		switch v {
		case ternary.KnownZero:
			continue
		case ternary.KnownOne:
			return s.replace(nil, n, n.Case(i), "priority_known_prefix")
		}
		return false, nil
	}
	b := s.build()
	return s.replace(b, n, b.zero(n.Type()), "priority_known_prefix")
}

// constantOneHotSelector replaces a bits-typed one_hot_sel with a known
// selector by the OR of its active cases.
func (s *selectSimplifier) constantOneHotSelector(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpOneHotSelect || !n.Type().IsBits() || !query.IsFullyKnown(s.qe, n.Selector()) {
		return false, nil
	}
	v, _ := query.KnownValueAsBits(s.qe, n.Selector())
	b := s.build()
	var repl *ir.Node
	for i := 0; i < v.Width(); i++ {
		if !v.Bit(i) {
			continue
		}
		if repl == nil {
			repl = n.Case(i)
		} else {
			repl = b.nary(ir.OpOr, repl, n.Case(i))
		}
	}
	if repl == nil {
		repl = b.zero(n.Type())
	}
	return s.replace(b, n, repl, "constant_one_hot_selector")
}

// identicalCases replaces a sel whose cases and default are one node with
// that node. A one_hot_sel or priority_sel with identical cases becomes
// sel(selector == 0, [case, 0]).
func (s *selectSimplifier) identicalCases(n *ir.Node) (bool, error) {
	switch n.Op() {
	case ir.OpSelect:
		all := n.Operands()[1:]
		if allSame(all) {
			return s.replace(nil, n, all[0], "identical_cases")
		}
	case ir.OpOneHotSelect, ir.OpPrioritySelect:
		cases := n.Cases()
		if !n.Type().IsBits() || !allSame(cases) {
			return false, nil
		}
		b := s.build()
		isZero := b.compare(ir.OpEq, n.Selector(), b.zero(n.Selector().Type()))
		repl := b.sel(isZero, []*ir.Node{cases[0], b.zero(n.Type())}, nil)
		return s.replace(b, n, repl, "identical_cases")
	}
	return false, nil
}

// tupleDecomposition turns a select over tuples into a tuple of selects.
func (s *selectSimplifier) tupleDecomposition(n *ir.Node) (bool, error) {
	if !n.Type().IsTuple() || !n.Op().IsSelectLike() {
		return false, nil
	}
	b := s.build()
	elementsAt := func(nodes []*ir.Node, i int) []*ir.Node {
		out := make([]*ir.Node, len(nodes))
		for j, x := range nodes {
			out[j] = b.tupleIndex(x, i)
		}
		return out
	}
	elems := make([]*ir.Node, len(n.Type().Elements()))
	for i := range elems {
		cases := elementsAt(n.Cases(), i)
		if n.Op() == ir.OpSelect {
			var def *ir.Node
			if d := n.Default(); d != nil {
				def = b.tupleIndex(d, i)
			}
			elems[i] = b.sel(n.Selector(), cases, def)
		} else {
			elems[i] = b.maskSel(n.Op(), n.Selector(), cases)
		}
	}
	return s.replace(b, n, b.tuple(elems), "tuple_decomposition")
}

// oneHotCaseDedup merges identical one_hot_sel cases by OR-ing their
// selector bits.
func (s *selectSimplifier) oneHotCaseDedup(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpOneHotSelect || n.CaseCount() == 0 {
		return false, nil
	}
	cases := n.Cases()
	distinct := make(map[*ir.Node]bool, len(cases))
	for _, c := range cases {
		distinct[c] = true
	}
	if len(distinct) == len(cases) {
		return false, nil
	}
	b := s.build()
	var newSelectors, newCases []*ir.Node
	index := make(map[*ir.Node]int, len(cases))
	for i, c := range cases {
		bit := b.slice(n.Selector(), i, 1)
		if j, ok := index[c]; ok {
			newSelectors[j] = b.nary(ir.OpOr, newSelectors[j], bit)
			continue
		}
		index[c] = len(newCases)
		newSelectors = append(newSelectors, bit)
		newCases = append(newCases, c)
	}
	reverseNodes(newSelectors)
	repl := b.maskSel(ir.OpOneHotSelect, b.concat(newSelectors...), newCases)
	return s.replace(b, n, repl, "one_hot_case_dedup")
}

// priorityAdjacentMerge merges runs of identical adjacent priority_sel cases
// by OR-reducing their selector bits.
func (s *selectSimplifier) priorityAdjacentMerge(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpPrioritySelect || n.CaseCount() == 0 {
		return false, nil
	}
	type selectorRange struct{ start, width int }
	ranges := []selectorRange{{0, 1}}
	newCases := []*ir.Node{n.Case(0)}
	for i := 1; i < n.CaseCount(); i++ {
		if n.Case(i) == newCases[len(newCases)-1] {
			ranges[len(ranges)-1].width++
			continue
		}
		ranges = append(ranges, selectorRange{i, 1})
		newCases = append(newCases, n.Case(i))
	}
	if len(newCases) == n.CaseCount() {
		return false, nil
	}

	b := s.build()
	var slices []*ir.Node
	var pending *selectorRange
	commit := func() {
		if pending != nil {
			slices = append(slices, b.slice(n.Selector(), pending.start, pending.width))
			pending = nil
		}
	}
	for _, r := range ranges {
		if r.width == 1 && pending != nil {
			pending.width++
			continue
		}
		commit()
		if r.width == 1 {
			pending = &selectorRange{r.start, 1}
			continue
		}
		slices = append(slices, b.orReduce(b.slice(n.Selector(), r.start, r.width)))
	}
	commit()
	reverseNodes(slices)
	repl := b.maskSel(ir.OpPrioritySelect, b.concat(slices...), newCases)
	return s.replace(b, n, repl, "priority_adjacent_merge")
}

// singleBitMux expands a one-bit two-way sel into and/or gates when a case
// is constant or is the selector itself.
func (s *selectSimplifier) singleBitMux(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpSelect || !n.Type().IsBits() || n.BitCount() != 1 ||
		n.Selector().BitCount() != 1 || n.CaseCount() != 2 {
		return false, nil
	}
	sel, onFalse, onTrue := n.Selector(), n.Case(0), n.Case(1)
	if !query.IsFullyKnown(s.qe, onFalse) && !query.IsFullyKnown(s.qe, onTrue) &&
		sel != onFalse && sel != onTrue {
		return false, nil
	}
	b := s.build()
	lhs := b.nary(ir.OpAnd, sel, onTrue)
	rhs := b.nary(ir.OpAnd, b.not(sel), onFalse)
	return s.replace(b, n, b.nary(ir.OpOr, lhs, rhs), "single_bit_mux")
}

// mergeConsecutiveSelects flattens single-use one_hot_sel (priority_sel)
// cases into the outer select of the same kind.
func (s *selectSimplifier) mergeConsecutiveSelects(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpOneHotSelect && n.Op() != ir.OpPrioritySelect {
		return false, nil
	}
	mergeable := func(c *ir.Node) bool {
		return c.Op() == n.Op() && c.UserCount() == 1 && !c.HasImplicitUse()
	}
	selector, cases := n.Selector(), n.Cases()
	found := false
	for _, c := range cases {
		found = found || mergeable(c)
	}
	if !found {
		return false, nil
	}

	b := s.build()
	var newCases, parts []*ir.Node
	unhandled := 0
	flush := func(index int) {
		if unhandled != 0 {
			parts = append(parts, b.slice(selector, index-unhandled, unhandled))
			newCases = append(newCases, cases[index-unhandled:index]...)
		}
		unhandled = 0
	}
	var zero *ir.Node
	for i, c := range cases {
		if !mergeable(c) {
			unhandled++
			continue
		}
		flush(i)
		innerSel, innerCases := c.Selector(), c.Cases()
		bit := b.slice(selector, i, 1)
		parts = append(parts, b.nary(ir.OpAnd, b.signExt(bit, len(innerCases)), innerSel))
		newCases = append(newCases, innerCases...)
		if n.Op() == ir.OpPrioritySelect {
			// The inner select yields zero when its own selector is zero.
			var innerZero *ir.Node
			if innerSel.BitCount() == 1 {
				innerZero = b.not(innerSel)
			} else {
				innerZero = b.compare(ir.OpEq, innerSel, b.zero(innerSel.Type()))
			}
			parts = append(parts, b.nary(ir.OpAnd, bit, innerZero))
			if zero == nil {
				zero = b.zero(c.Type())
			}
			newCases = append(newCases, zero)
		}
	}
	flush(len(cases))
	reverseNodes(parts)
	repl := b.maskSel(n.Op(), b.concat(parts...), newCases)
	return s.replace(b, n, repl, "merge_consecutive_selects")
}

// selectToMask rewrites a select with at most one case that is not known
// zero into an AND with a sign-extended condition.
func (s *selectSimplifier) selectToMask(n *ir.Node) (bool, error) {
	if !n.Op().IsSelectLike() {
		return false, nil
	}
	if !n.Type().IsBits() && n.OperandCount() <= 3 {
		return false, nil
	}
	const noArm = -2
	const defaultArm = -1
	arm := noArm
	var value *ir.Node
	if d := n.Default(); d != nil && !query.IsAllZeros(s.qe, d) {
		arm, value = defaultArm, d
	}
	for i, c := range n.Cases() {
		if query.IsAllZeros(s.qe, c) {
			continue
		}
		if value != nil {
			return false, nil
		}
		arm, value = i, c
	}

	b := s.build()
	if value == nil {
		return s.replace(b, n, b.zero(n.Type()), "select_to_mask")
	}

	sel := n.Selector()
	selWidth := sel.BitCount()
	var cond *ir.Node
	switch n.Op() {
	case ir.OpSelect:
		switch {
		case arm == defaultArm:
			count := b.literal(ir.UValue(uint64(n.CaseCount()), selWidth))
			cond = b.compare(ir.OpUGe, sel, count)
		case selWidth == 1 && arm == 0:
			cond = b.not(sel)
		case selWidth == 1:
			cond = sel
		default:
			cond = b.compare(ir.OpEq, sel, b.literal(ir.UValue(uint64(arm), selWidth)))
		}
	case ir.OpOneHotSelect:
		if selWidth == 1 {
			cond = sel
		} else {
			cond = b.slice(sel, arm, 1)
		}
	case ir.OpPrioritySelect:
		truncated := sel
		if selWidth != 1 {
			truncated = b.slice(sel, 0, arm+1)
		}
		if arm == 0 {
			cond = truncated
		} else {
			match := b.literal(ir.BitsValue(ir.ZeroBits(arm+1).WithBit(arm, true)))
			cond = b.compare(ir.OpEq, truncated, match)
		}
	}

	if n.Type().IsBits() {
		mask := cond
		if n.BitCount() != 1 {
			mask = b.signExt(cond, n.BitCount())
		}
		return s.replace(b, n, b.nary(ir.OpAnd, value, mask), "select_to_mask")
	}
	repl := b.sel(cond, []*ir.Node{b.zero(n.Type())}, value)
	return s.replace(b, n, repl, "select_to_mask")
}

// removeDeadCases drops one_hot_sel cases whose selector bit is known zero
// or whose value is zero, and priority_sel cases that can never be chosen
// or trail as zeros. Without splits only leading and trailing runs go.
func (s *selectSimplifier) removeDeadCases(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpOneHotSelect && n.Op() != ir.OpPrioritySelect {
		return false, nil
	}
	selector, cases := n.Selector(), n.Cases()
	if !s.qe.IsTracked(selector) {
		return false, nil
	}
	bits := s.ternaryOf(selector)
	priority := n.Op() == ir.OpPrioritySelect

	allLaterRemovable := false
	removable := func(c int) bool {
		if allLaterRemovable {
			return true
		}
		if priority && bits[c] == ternary.KnownOne {
			allLaterRemovable = true
			return false
		}
		if bits[c] == ternary.KnownZero {
			return true
		}
		return !priority && query.IsAllZeros(s.qe, cases[c])
	}
	hasRemovable := false
	var keep []int
	for i := range cases {
		if removable(i) {
			hasRemovable = true
		} else {
			keep = append(keep, i)
		}
	}
	if priority {
		for len(keep) > 0 && query.IsAllZeros(s.qe, cases[keep[len(keep)-1]]) {
			keep = keep[:len(keep)-1]
		}
	}
	if !SplitsEnabled(s.optLevel) && len(keep) > 0 && hasRemovable {
		first, last := keep[0], keep[len(keep)-1]
		keep = keep[:0]
		for i := first; i <= last; i++ {
			keep = append(keep, i)
		}
		if len(keep) == len(cases) {
			hasRemovable = false
		}
	}
	if !hasRemovable {
		return false, nil
	}

	b := s.build()
	if len(keep) == 0 {
		return s.replace(b, n, b.zero(n.Type()), "remove_dead_cases")
	}
	newCases := make([]*ir.Node, len(keep))
	for i, k := range keep {
		newCases[i] = cases[k]
	}
	repl := b.maskSel(n.Op(), b.gatherBits(selector, keep), newCases)
	return s.replace(b, n, repl, "remove_dead_cases")
}

// squeeze narrows a bits-typed sel whose leading or trailing output bits are
// known, reattaching the constant bits with a concat.
func (s *selectSimplifier) squeeze(n *ir.Node) (bool, error) {
	if n.Op() != ir.OpSelect || !n.Type().IsBits() {
		return false, nil
	}
	t, ok := s.qe.GetTernary(n)
	if !ok {
		return false, nil
	}
	width := n.BitCount()
	leading, trailing := 0, 0
	for leading < width && t.IsKnown(width-1-leading) {
		leading++
	}
	for trailing < width && t.IsKnown(trailing) {
		trailing++
	}
	if leading == 0 && trailing == 0 {
		return false, nil
	}
	b := s.build()
	_, known := t.KnownBits()
	if leading == width {
		return s.replace(b, n, b.literal(ir.BitsValue(known)), "squeeze")
	}

	middle := width - leading - trailing
	slice := func(x *ir.Node) *ir.Node { return b.slice(x, trailing, middle) }
	cases := make([]*ir.Node, n.CaseCount())
	for i, c := range n.Cases() {
		cases[i] = slice(c)
	}
	var def *ir.Node
	if d := n.Default(); d != nil {
		def = slice(d)
	}
	var parts []*ir.Node
	if leading > 0 {
		parts = append(parts, b.literal(ir.BitsValue(known.Slice(width-leading, leading))))
	}
	parts = append(parts, b.sel(n.Selector(), cases, def))
	if trailing > 0 {
		parts = append(parts, b.literal(ir.BitsValue(known.Slice(0, trailing))))
	}
	return s.replace(b, n, b.concat(parts...), "squeeze")
}

// collapseCommonCase folds two nested two-way selects that share a case into
// one select on a combined predicate p_x choosing the shared case x:
//
//	sel(p0, [sel(p1, [x, y]), x]) => sel(p0 | !p1, [y, x])
//	sel(p0, [sel(p1, [y, x]), x]) => sel(p0 | p1, [y, x])
//	sel(p0, [x, sel(p1, [x, y])]) => sel(nand(p0, p1), [y, x])
//	sel(p0, [x, sel(p1, [y, x])]) => sel(!p0 | p1, [y, x])
func (s *selectSimplifier) collapseCommonCase(n *ir.Node) (bool, error) {
	if !isTwoWaySelect(n) {
		return false, nil
	}
	p0 := n.Selector()
	b := s.build()
	var x, y, px *ir.Node
	if inner := n.Case(0); isTwoWaySelect(inner) {
		p1 := inner.Selector()
		switch n.Case(1) {
		case inner.Case(0):
			x, y = n.Case(1), inner.Case(1)
			px = b.nary(ir.OpOr, p0, b.not(p1))
		case inner.Case(1):
			x, y = n.Case(1), inner.Case(0)
			px = b.nary(ir.OpOr, p0, p1)
		}
	} else if inner := n.Case(1); isTwoWaySelect(inner) {
		p1 := inner.Selector()
		switch n.Case(0) {
		case inner.Case(0):
			x, y = n.Case(0), inner.Case(1)
			px = b.nary(ir.OpNand, p0, p1)
		case inner.Case(1):
			x, y = n.Case(0), inner.Case(0)
			px = b.nary(ir.OpOr, b.not(p0), p1)
		}
	}
	if x == nil {
		return false, nil
	}
	return s.replace(b, n, b.sel(px, []*ir.Node{y, x}, nil), "collapse_common_case")
}

// sameSelectorChain bypasses an inner two-way select that shares the outer
// select's selector:
//
//	sel(p, [sel(p, [a, b]), c]) => sel(p, [a, c])
//	sel(p, [c, sel(p, [a, b])]) => sel(p, [c, b])
func (s *selectSimplifier) sameSelectorChain(n *ir.Node) (bool, error) {
	if !isTwoWaySelect(n) {
		return false, nil
	}
	p := n.Selector()
	b := s.build()
	if inner := n.Case(0); isTwoWaySelect(inner) && inner.Selector() == p {
		return s.replace(b, n, b.sel(p, []*ir.Node{inner.Case(0), n.Case(1)}, nil), "same_selector_chain")
	}
	if inner := n.Case(1); isTwoWaySelect(inner) && inner.Selector() == p {
		return s.replace(b, n, b.sel(p, []*ir.Node{n.Case(0), inner.Case(1)}, nil), "same_selector_chain")
	}
	return false, nil
}

// decomposeOneHot handles single-bit one_hot_sel and one_hot nodes that
// reduce to simple gates, compares or a two-way select.
func (s *selectSimplifier) decomposeOneHot(n *ir.Node) (bool, error) {
	b := s.build()
	if SplitsEnabled(s.optLevel) && n.Op() == ir.OpOneHotSelect && n.Type().IsBits() &&
		n.BitCount() == 1 && n.CaseCount() == 2 {
		and0 := b.nary(ir.OpAnd, b.slice(n.Selector(), 0, 1), n.Case(0))
		and1 := b.nary(ir.OpAnd, b.slice(n.Selector(), 1, 1), n.Case(1))
		return s.replace(b, n, b.nary(ir.OpOr, and0, and1), "one_hot_decomposition")
	}
	if n.Op() != ir.OpOneHot {
		return false, nil
	}
	input := n.Operand(0)
	if NarrowingEnabled(s.optLevel) && n.BitCount() == 2 {
		return s.replace(b, n, b.concat(b.not(input), input), "one_hot_decomposition")
	}
	if query.AtMostOneBitTrue(s.qe, input) {
		isZero := b.compare(ir.OpEq, input, b.zero(input.Type()))
		return s.replace(b, n, b.concat(isZero, input), "one_hot_decomposition")
	}
	if !query.ExactlyOneBitUnknown(s.qe, input) {
		return false, nil
	}
	t := s.ternaryOf(input)
	unknown := -1
	onFalse := make([]bool, len(t))
	onTrue := make([]bool, len(t))
	for i, v := range t {
		switch v {
		case ternary.KnownOne:
			onFalse[i], onTrue[i] = true, true
		case ternary.Unknown:
			unknown = i
			onTrue[i] = true
		}
	}
	falseOut := ir.BitsFromBools(onFalse).OneHot(n.LsbPriority())
	trueOut := ir.BitsFromBools(onTrue).OneHot(n.LsbPriority())
	repl := b.sel(b.slice(input, unknown, 1),
		[]*ir.Node{b.literal(ir.BitsValue(falseOut)), b.literal(ir.BitsValue(trueOut))}, nil)
	return s.replace(b, n, repl, "one_hot_decomposition")
}

// maybeSplitOneHotSelect slices a one_hot_sel into narrower one_hot_sels at
// boundaries where the cases' bit sources change between all-distinct and
// shared, and returns the new selects.
func (s *selectSimplifier) maybeSplitOneHotSelect(n *ir.Node) ([]*ir.Node, error) {
	width := n.BitCount()
	if !n.Type().IsBits() || width == 0 || width > 64 {
		return nil, nil
	}
	cases := n.Cases()
	b := s.build()
	var slices []*ir.Node
	for start := 0; start < width; {
		run := runOfDistinctCaseBits(cases, start, s.qe)
		if run == 0 {
			run = runOfNonDistinctCaseBits(cases, start, s.qe)
		}
		if run == 0 {
			return nil, fmt.Errorf("no run of case bits at %d", start)
		}
		if run == width {
			return nil, nil
		}
		sliced := make([]*ir.Node, len(cases))
		for i, c := range cases {
			sliced[i] = b.slice(c, start, run)
		}
		slices = append(slices, b.maskSel(ir.OpOneHotSelect, n.Selector(), sliced))
		start += run
	}
	newSelects := append([]*ir.Node(nil), slices...)
	reverseNodes(slices)
	if _, err := s.replace(b, n, b.concat(slices...), "split_one_hot_select"); err != nil {
		return nil, err
	}
	return newSelects, nil
}
