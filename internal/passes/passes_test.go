package passes

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan/xlsynth/internal/interp"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/query"
)

func parseFn(t *testing.T, body string) *ir.FunctionBase {
	t.Helper()
	pkg, err := ir.Parse("package p\n\n" + body)
	require.NoError(t, err)
	f, err := pkg.Top()
	require.NoError(t, err)
	return f
}

func nodeNamed(t *testing.T, f *ir.FunctionBase, name string) *ir.Node {
	t.Helper()
	n, ok := f.NodeByName(name)
	require.True(t, ok, "no node %q", name)
	return n
}

// optimize runs the default pipeline on f and checks that the result
// computes the same function as before.
func optimize(t *testing.T, f *ir.FunctionBase, opts ...Option) *Results {
	t.Helper()
	before := f.Clone()
	res := NewResults()
	_, err := DefaultPipeline().Run(context.Background(), f, NewOptions(opts...), res)
	require.NoError(t, err, "pipeline on:\n%s", before.Dump())
	assertEquivalent(t, before, f)
	return res
}

// assertEquivalent compares two functions over every input when the params
// fit in 12 bits, and over a fixed random sample otherwise.
func assertEquivalent(t *testing.T, want, got *ir.FunctionBase) {
	t.Helper()
	params := want.Params()
	width := 0
	for _, p := range params {
		width += p.BitCount()
	}
	require.LessOrEqual(t, width, 64)

	var inputs []uint64
	if width <= 12 {
		for v := uint64(0); v < 1<<uint(width); v++ {
			inputs = append(inputs, v)
		}
	} else {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 512; i++ {
			inputs = append(inputs, rng.Uint64())
		}
	}

	wantEv := interp.NewInterpreter(want)
	gotEv := interp.NewInterpreter(got)
	for _, in := range inputs {
		args := make([]ir.Value, len(params))
		offset := 0
		for i, p := range params {
			w := p.BitCount()
			bits := ir.UBits((in>>uint(offset))&(1<<uint(w)-1), w)
			args[i] = ir.UnflattenValue(p.Type(), bits)
			offset += w
		}
		a, err := interp.Call(wantEv, args...)
		require.NoError(t, err)
		b, err := interp.Call(gotEv, args...)
		require.NoError(t, err, "optimized:\n%s", got.Dump())
		require.True(t, a.Equal(b), "args %v: want %s, got %s\noptimized:\n%s", args, a, b, got.Dump())
	}
}

func TestConstantSelector(t *testing.T) {
	f := parseFn(t, `fn f(a: bits[4], b: bits[4]) -> bits[4] {
  s: bits[2] = literal(value=1)
  ret r: bits[4] = sel(s, cases=[a, b], default=a)
}`)
	res := optimize(t, f)
	assert.Equal(t, 1, res.Rewrites["constant_selector"])
	assert.Same(t, nodeNamed(t, f, "b"), f.ReturnValue())
	assert.Equal(t, 2, f.NodeCount())
}

func TestConstantOneHotSelector(t *testing.T) {
	f := parseFn(t, `fn f(x: bits[4], y: bits[4]) -> bits[4] {
  s: bits[2] = literal(value=2)
  ret r: bits[4] = one_hot_sel(s, cases=[x, y])
}`)
	res := optimize(t, f)
	assert.Equal(t, 1, res.Rewrites["constant_one_hot_selector"])
	assert.Same(t, nodeNamed(t, f, "y"), f.ReturnValue())
}

func TestCollapseCommonCaseTruthTable(t *testing.T) {
	f := parseFn(t, `fn f(p0: bits[1], p1: bits[1], x: bits[2], y: bits[2]) -> bits[2] {
  inner: bits[2] = sel(p1, cases=[y, x])
  ret r: bits[2] = sel(p0, cases=[inner, x])
}`)
	res := optimize(t, f)
	assert.Equal(t, 1, res.Rewrites["collapse_common_case"])

	ret := f.ReturnValue()
	require.Equal(t, ir.OpSelect, ret.Op())
	pred := ret.Selector()
	require.Equal(t, ir.OpOr, pred.Op())
	assert.ElementsMatch(t, []*ir.Node{nodeNamed(t, f, "p0"), nodeNamed(t, f, "p1")}, pred.Operands())
	assert.Equal(t, []*ir.Node{nodeNamed(t, f, "y"), nodeNamed(t, f, "x")}, ret.Cases())

	ev := interp.NewInterpreter(f)
	x, y := ir.UValue(1, 2), ir.UValue(2, 2)
	for _, tc := range []struct {
		p0, p1 bool
		want   ir.Value
	}{
		{false, false, y},
		{false, true, x},
		{true, false, x},
		{true, true, x},
	} {
		got, err := interp.Call(ev, ir.BoolValue(tc.p0), ir.BoolValue(tc.p1), x, y)
		require.NoError(t, err)
		assert.True(t, tc.want.Equal(got), "p0=%v p1=%v: got %s", tc.p0, tc.p1, got)
	}
}

func TestRewrites(t *testing.T) {
	tests := []struct {
		name    string
		ir      string
		rewrite string
	}{
		{
			name:    "priority known prefix",
			rewrite: "priority_known_prefix",
			ir: `fn f(x: bits[1], a: bits[2], b: bits[2], c: bits[2]) -> bits[2] {
  one: bits[1] = literal(value=1)
  zero: bits[1] = literal(value=0)
  s: bits[3] = concat(x, one, zero)
  ret r: bits[2] = priority_sel(s, cases=[a, b, c])
}`,
		},
		{
			name:    "identical sel cases",
			rewrite: "identical_cases",
			ir: `fn f(s: bits[2], a: bits[3]) -> bits[3] {
  ret r: bits[3] = sel(s, cases=[a, a, a, a])
}`,
		},
		{
			name:    "identical one_hot_sel cases",
			rewrite: "identical_cases",
			ir: `fn f(s: bits[2], a: bits[3]) -> bits[3] {
  ret r: bits[3] = one_hot_sel(s, cases=[a, a])
}`,
		},
		{
			name:    "tuple select",
			rewrite: "tuple_decomposition",
			ir: `fn f(p: bits[1], a: bits[2], b: bits[2]) -> (bits[2], bits[2]) {
  t1: (bits[2], bits[2]) = tuple(a, b)
  t2: (bits[2], bits[2]) = tuple(b, a)
  ret r: (bits[2], bits[2]) = sel(p, cases=[t1, t2])
}`,
		},
		{
			name:    "one_hot_sel duplicate cases",
			rewrite: "one_hot_case_dedup",
			ir: `fn f(s: bits[3], a: bits[2], b: bits[2]) -> bits[2] {
  ret r: bits[2] = one_hot_sel(s, cases=[a, b, a])
}`,
		},
		{
			name:    "priority_sel adjacent cases",
			rewrite: "priority_adjacent_merge",
			ir: `fn f(s: bits[3], a: bits[2], b: bits[2]) -> bits[2] {
  ret r: bits[2] = priority_sel(s, cases=[a, a, b])
}`,
		},
		{
			name:    "single bit mux",
			rewrite: "single_bit_mux",
			ir: `fn f(p: bits[1], q: bits[1]) -> bits[1] {
  z: bits[1] = literal(value=0)
  ret r: bits[1] = sel(p, cases=[z, q])
}`,
		},
		{
			name:    "nested one_hot_sel",
			rewrite: "merge_consecutive_selects",
			ir: `fn f(s: bits[2], t: bits[2], a: bits[2], b: bits[2], c: bits[2]) -> bits[2] {
  inner: bits[2] = one_hot_sel(t, cases=[a, b])
  ret r: bits[2] = one_hot_sel(s, cases=[inner, c])
}`,
		},
		{
			name:    "nested priority_sel",
			rewrite: "merge_consecutive_selects",
			ir: `fn f(s: bits[2], t: bits[2], a: bits[2], b: bits[2], c: bits[2]) -> bits[2] {
  inner: bits[2] = priority_sel(t, cases=[a, b])
  ret r: bits[2] = priority_sel(s, cases=[inner, c])
}`,
		},
		{
			name:    "single nonzero case",
			rewrite: "select_to_mask",
			ir: `fn f(s: bits[2], a: bits[2]) -> bits[2] {
  z: bits[2] = literal(value=0)
  ret r: bits[2] = sel(s, cases=[z, a, z, z])
}`,
		},
		{
			name:    "single nonzero default",
			rewrite: "select_to_mask",
			ir: `fn f(s: bits[2], a: bits[2]) -> bits[2] {
  z: bits[2] = literal(value=0)
  ret r: bits[2] = sel(s, cases=[z, z, z], default=a)
}`,
		},
		{
			name:    "known zero selector bit",
			rewrite: "remove_dead_cases",
			ir: `fn f(x: bits[1], a: bits[2], b: bits[2]) -> bits[2] {
  zero: bits[1] = literal(value=0)
  s: bits[2] = concat(zero, x)
  ret r: bits[2] = one_hot_sel(s, cases=[a, b])
}`,
		},
		{
			name:    "known leading bits",
			rewrite: "squeeze",
			ir: `fn f(p: bits[1], a: bits[2], b: bits[2]) -> bits[4] {
  k: bits[2] = literal(value=2)
  ca: bits[4] = concat(k, a)
  cb: bits[4] = concat(k, b)
  ret r: bits[4] = sel(p, cases=[ca, cb])
}`,
		},
		{
			name:    "same selector chain",
			rewrite: "same_selector_chain",
			ir: `fn f(p: bits[1], a: bits[2], b: bits[2], c: bits[2]) -> bits[2] {
  inner: bits[2] = sel(p, cases=[a, b])
  ret r: bits[2] = sel(p, cases=[inner, c])
}`,
		},
		{
			name:    "collapse common first case",
			rewrite: "collapse_common_case",
			ir: `fn f(p0: bits[1], p1: bits[1], x: bits[2], y: bits[2]) -> bits[2] {
  inner: bits[2] = sel(p1, cases=[x, y])
  ret r: bits[2] = sel(p0, cases=[inner, x])
}`,
		},
		{
			name:    "collapse common second case nand",
			rewrite: "collapse_common_case",
			ir: `fn f(p0: bits[1], p1: bits[1], x: bits[2], y: bits[2]) -> bits[2] {
  inner: bits[2] = sel(p1, cases=[x, y])
  ret r: bits[2] = sel(p0, cases=[x, inner])
}`,
		},
		{
			name:    "collapse common second case",
			rewrite: "collapse_common_case",
			ir: `fn f(p0: bits[1], p1: bits[1], x: bits[2], y: bits[2]) -> bits[2] {
  inner: bits[2] = sel(p1, cases=[y, x])
  ret r: bits[2] = sel(p0, cases=[x, inner])
}`,
		},
		{
			name:    "one bit one_hot",
			rewrite: "one_hot_decomposition",
			ir: `fn f(x: bits[1]) -> bits[2] {
  ret r: bits[2] = one_hot(x, lsb_prio=true)
}`,
		},
		{
			name:    "one_hot of at most one set bit",
			rewrite: "one_hot_decomposition",
			ir: `fn f(x: bits[3]) -> bits[4] {
  m: bits[3] = literal(value=1)
  low: bits[3] = and(x, m)
  ret r: bits[4] = one_hot(low, lsb_prio=false)
}`,
		},
		{
			name:    "one_hot with one unknown bit",
			rewrite: "one_hot_decomposition",
			ir: `fn f(q: bits[1]) -> bits[4] {
  k: bits[2] = literal(value=2)
  c: bits[3] = concat(k, q)
  ret r: bits[4] = one_hot(c, lsb_prio=true)
}`,
		},
		{
			name:    "one bit two case one_hot_sel",
			rewrite: "one_hot_decomposition",
			ir: `fn f(s: bits[2], a: bits[1], b: bits[1]) -> bits[1] {
  ret r: bits[1] = one_hot_sel(s, cases=[a, b])
}`,
		},
		{
			name:    "split on shared low bits",
			rewrite: "split_one_hot_select",
			ir: `fn f(s: bits[2], a: bits[2], b: bits[2], c: bits[2]) -> bits[4] {
  ca: bits[4] = concat(a, c)
  cb: bits[4] = concat(b, c)
  ret r: bits[4] = one_hot_sel(s, cases=[ca, cb])
}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseFn(t, tt.ir)
			res := optimize(t, f)
			assert.Positive(t, res.Rewrites[tt.rewrite], "rewrites: %s", res.Summary())

			changed, err := DefaultPipeline().RunOnFunctionBase(f, NewOptions(), NewResults())
			require.NoError(t, err)
			assert.False(t, changed, "second run changed:\n%s", f.Dump())
		})
	}
}

func TestPriorityUnknownPrefixIsKept(t *testing.T) {
	f := parseFn(t, `fn f(x: bits[1], a: bits[2], b: bits[2]) -> bits[2] {
  one: bits[1] = literal(value=1)
  s: bits[2] = concat(one, x)
  ret r: bits[2] = priority_sel(s, cases=[a, b])
}`)
	res := optimize(t, f)
	assert.Zero(t, res.Rewrites["priority_known_prefix"])
	assert.Equal(t, ir.OpPrioritySelect, f.ReturnValue().Op())
}

func TestOptLevelGatesNarrowing(t *testing.T) {
	const src = `fn f(p: bits[1], q: bits[1]) -> bits[1] {
  z: bits[1] = literal(value=0)
  ret r: bits[1] = sel(p, cases=[z, q])
}`
	f := parseFn(t, src)
	res := optimize(t, f, WithOptLevel(1))
	assert.Zero(t, res.Total())
	assert.Equal(t, ir.OpSelect, f.ReturnValue().Op())

	f = parseFn(t, src)
	res = optimize(t, f, WithOptLevel(2))
	assert.Equal(t, 1, res.Rewrites["single_bit_mux"])
}

func TestOptLevelGatesSplits(t *testing.T) {
	const src = `fn f(s: bits[2], a: bits[2], b: bits[2], c: bits[2]) -> bits[4] {
  ca: bits[4] = concat(a, c)
  cb: bits[4] = concat(b, c)
  ret r: bits[4] = one_hot_sel(s, cases=[ca, cb])
}`
	f := parseFn(t, src)
	res := optimize(t, f, WithOptLevel(2))
	assert.Zero(t, res.Rewrites["split_one_hot_select"])
	assert.Equal(t, ir.OpOneHotSelect, f.ReturnValue().Op())
}

func TestCommonSubexpressionAndDeadCode(t *testing.T) {
	f := parseFn(t, `fn f(a: bits[4], b: bits[4]) -> bits[4] {
  x1: bits[4] = and(a, b)
  x2: bits[4] = and(a, b)
  ret r: bits[4] = or(x1, x2)
}`)
	res := optimize(t, f)
	assert.Equal(t, "cse=1 dce=1", res.Summary())
	ret := f.ReturnValue()
	assert.Equal(t, []*ir.Node{nodeNamed(t, f, "x1"), nodeNamed(t, f, "x1")}, ret.Operands())
	_, ok := f.NodeByName("x2")
	assert.False(t, ok)
}

func TestDeadCodeElimination(t *testing.T) {
	f := parseFn(t, `fn f(a: bits[4]) -> bits[4] {
  unused: bits[4] = not(a)
  ret r: bits[4] = neg(a)
}`)
	res := NewResults()
	changed, err := NewDeadCodeElimination().RunOnFunctionBase(f, NewOptions(), res)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, res.Rewrites["dce"])
	assert.Equal(t, 2, f.NodeCount())
}

func TestIterationLimit(t *testing.T) {
	f := parseFn(t, `fn f(a: bits[4], b: bits[4]) -> bits[4] {
  s: bits[2] = literal(value=1)
  ret r: bits[4] = sel(s, cases=[a, b], default=a)
}`)
	_, err := DefaultPipeline().Run(context.Background(), f, NewOptions(WithMaxIterations(1)), NewResults())
	require.Error(t, err)
	assert.True(t, IsIterationLimitError(err))
	assert.Contains(t, err.Error(), "no fixpoint after 1 iterations")
}

func TestPipelineHonorsContext(t *testing.T) {
	f := parseFn(t, `fn f(a: bits[4]) -> bits[4] {
  ret r: bits[4] = not(a)
}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DefaultPipeline().Run(ctx, f, NewOptions(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOnPackage(t *testing.T) {
	pkg, err := ir.Parse(`package p

fn g(a: bits[4], b: bits[4]) -> bits[4] {
  s: bits[1] = literal(value=0)
  ret r: bits[4] = sel(s, cases=[a, b])
}

fn h(a: bits[4]) -> bits[4] {
  ret r: bits[4] = not(a)
}
`)
	require.NoError(t, err)
	res := NewResults()
	changed, err := DefaultPipeline().RunOnPackage(context.Background(), pkg, NewOptions(), res)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, res.Rewrites["constant_selector"])
}

func TestBitSource(t *testing.T) {
	f := parseFn(t, `fn f(a: bits[4], b: bits[2]) -> bits[5] {
  k: bits[1] = literal(value=1)
  sl: bits[2] = bit_slice(a, start=1, width=2)
  ret c: bits[5] = concat(k, sl, b)
}`)
	qe := query.NewDefault()
	_, err := qe.Populate(f)
	require.NoError(t, err)
	c := nodeNamed(t, f, "c")
	assert.Equal(t, "b[0]", GetBitSource(c, 0, qe).String())
	assert.Equal(t, "a[1]", GetBitSource(c, 2, qe).String())
	assert.Equal(t, "a[2]", GetBitSource(c, 3, qe).String())
	assert.Equal(t, "1", GetBitSource(c, 4, qe).String())
}
