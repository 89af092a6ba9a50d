package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchan/xlsynth/internal/engine"
	"github.com/cchan/xlsynth/internal/harness"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Backend              string
	BlockSignature       string
	Ticks                []string
	MaxCyclesNoOutput    int64
	InputsForChannels    []string
	ExpectedForChannels  []string
	InputsForAll         string
	ExpectedForAll       string
	Manifest             string
	ModelMemories        []string
	RandomSeed           int64
	ProbInputValidAssert float64
	ShowTrace            bool
	FailOnAssert         bool
	Timeout              time.Duration
	OutputStatsPath      string
	Top                  string
	TracePerTicks        int64
	Database             string

	// Recorder overrides the run recorder (for testing).
	Recorder *harness.Recorder
}

// EvalResult is the eval command's JSON payload.
type EvalResult struct {
	*harness.Result
	RunID string `json:"run_id,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval [ir-file]",
		Short: "Simulate procs or a block against channel values",
		Long: `Simulate the procs of an IR package, or a ready/valid block described
by a block signature, feeding input channel values and checking the
produced outputs against expected values.

Inputs and expected outputs come either from one file per channel
(--inputs_for_channels=in=in.txt, one value per line) or from a single
file covering all channels (--inputs_for_all_channels). A manifest
(--manifest) replaces every other input flag.

Exit codes:
  0 - Simulation matched expectations
  1 - Simulation failed (mismatch, assertion, no output, deadlock)
  2 - Command error (bad flags, unreadable files)

Examples:
  xlsim eval design.ir --ticks 10 --inputs_for_channels in=in.txt
  xlsim eval design.ir --backend block_jit --block_signature design.sig.yaml \
      --inputs_for_all_channels in.txt --expected_outputs_for_all_channels out.txt
  xlsim eval --manifest bench.yaml --db runs.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Backend, "backend", harness.BackendSerialJIT, "serial_jit, ir_interpreter, block_interpreter or block_jit")
	f.StringVar(&opts.BlockSignature, "block_signature", "", "block signature YAML (block backends)")
	f.StringSliceVar(&opts.Ticks, "ticks", []string{"-1"}, "comma-separated tick counts, one run each; -1 runs until all outputs are produced")
	f.Int64Var(&opts.MaxCyclesNoOutput, "max_cycles_no_output", engine.DefaultMaxCyclesNoOutput, "block cycles allowed without producing an output")
	f.StringSliceVar(&opts.InputsForChannels, "inputs_for_channels", nil, "channel=file pairs of input values")
	f.StringSliceVar(&opts.ExpectedForChannels, "expected_outputs_for_channels", nil, "channel=file pairs of expected output values")
	f.StringVar(&opts.InputsForAll, "inputs_for_all_channels", "", "file of input values for all channels")
	f.StringVar(&opts.ExpectedForAll, "expected_outputs_for_all_channels", "", "file of expected output values for all channels")
	f.StringVar(&opts.Manifest, "manifest", "", "YAML or CUE testbench manifest")
	f.StringSliceVar(&opts.ModelMemories, "model_memories", nil, "name=size/initial_value memories to emulate (block backends)")
	f.Int64Var(&opts.RandomSeed, "random_seed", defaultRandomSeed(), "seed for the input valid pattern (env "+EnvRandomSeed+")")
	f.Float64Var(&opts.ProbInputValidAssert, "prob_input_valid_assert", 1.0, "probability an input valid is asserted on a cycle")
	f.BoolVar(&opts.ShowTrace, "show_trace", false, "log every produced value and trace message")
	f.BoolVar(&opts.FailOnAssert, "fail_on_assert", false, "fail when an assertion fires")
	f.DurationVar(&opts.Timeout, "timeout", defaultTimeout(), "abort the simulation after this long; 0 disables (env "+EnvTimeoutSeconds+" in seconds)")
	f.StringVar(&opts.OutputStatsPath, "output_stats_path", "", "write block run statistics to this file")
	f.StringVar(&opts.Top, "top", "", "block or proc to simulate instead of the package top")
	f.Int64Var(&opts.TracePerTicks, "trace_per_ticks", engine.DefaultTracePerTicks, "log queue sizes every this many ticks")
	f.StringVar(&opts.Database, "db", defaultDatabase(), "record the run in this SQLite database (env "+EnvDatabase+")")

	return cmd
}

func runEval(opts *EvalOptions, args []string, cmd *cobra.Command) error {
	out := formatterFor(cmd, opts.RootOptions)

	tb, err := buildTestbench(opts, args)
	if err != nil {
		_ = out.Error(ErrCodeBadArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res, err := tb.Run(ctx)
	if err != nil {
		_ = out.Error(ErrCodeBadArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid testbench", err)
	}

	payload := EvalResult{Result: res}
	recorder, closeStore, err := openRecorder(opts.Database, opts.Recorder)
	if err != nil {
		return err
	}
	defer closeStore()
	if recorder != nil {
		run, err := recorder.RecordSim(ctx, tb, res)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record sim run", err)
		}
		payload.RunID = run.ID
	}

	if !res.Pass {
		slog.Debug("simulation failed", "status", res.Status, "errors", res.Errors)
		_ = out.Failure(payload, res.Report(), res.Status, res.Message, res.Details)
		return NewExitError(ExitFailure, fmt.Sprintf("simulation failed: %s", strings.Join(res.Errors, "; ")))
	}
	return out.Success(payload, res.Report())
}

// buildTestbench resolves flags, or the manifest, into a testbench.
func buildTestbench(opts *EvalOptions, args []string) (*harness.Testbench, error) {
	if opts.Manifest != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--manifest names its own IR file")
		}
		m, err := harness.LoadManifest(opts.Manifest)
		if err != nil {
			return nil, err
		}
		return m.Testbench()
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("One (and only one) IR file must be given.")
	}
	mode, _, err := harness.ParseBackend(opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("Unrecognized backend choice.")
	}
	if mode == store.ModeBlock && opts.BlockSignature == "" {
		return nil, fmt.Errorf("Block evaluation requires --block_signature.")
	}
	if len(opts.InputsForChannels) > 0 && opts.InputsForAll != "" {
		return nil, fmt.Errorf("Only one of --inputs_for_channels and --inputs_for_all_channels may be given.")
	}
	if len(opts.ExpectedForChannels) > 0 && opts.ExpectedForAll != "" {
		return nil, fmt.Errorf("Only one of --expected_outputs_for_channels and --expected_outputs_for_all_channels may be given.")
	}
	if opts.ProbInputValidAssert < 0 || opts.ProbInputValidAssert > 1 {
		return nil, fmt.Errorf("--prob_input_valid_assert must be in [0, 1]")
	}

	ticks, err := parseTicks(opts.Ticks)
	if err != nil {
		return nil, err
	}
	var max int64
	for _, t := range ticks {
		if t > 0 {
			max += t
		}
	}
	if mode == store.ModeBlock {
		max = 0
	}

	pkg, err := ir.ParseFile(args[0])
	if err != nil {
		return nil, err
	}
	tb := &harness.Testbench{
		Name:        pkg.Name(),
		Package:     pkg,
		BackendName: opts.Backend,
	}
	if opts.BlockSignature != "" {
		if tb.Signature, err = harness.LoadBlockSignature(opts.BlockSignature); err != nil {
			return nil, err
		}
	}
	if tb.Inputs, err = loadValues(opts.InputsForChannels, opts.InputsForAll, max); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if tb.Expected, err = loadValues(opts.ExpectedForChannels, opts.ExpectedForAll, max); err != nil {
		return nil, fmt.Errorf("expected outputs: %w", err)
	}
	if tb.Memories, err = harness.ParseMemoryModels(opts.ModelMemories); err != nil {
		return nil, err
	}

	tb.Options = []engine.Option{
		engine.WithMaxCyclesNoOutput(opts.MaxCyclesNoOutput),
		engine.WithRandomSeed(opts.RandomSeed),
		engine.WithProbInputValidAssert(opts.ProbInputValidAssert),
		engine.WithShowTrace(opts.ShowTrace),
		engine.WithFailOnAssert(opts.FailOnAssert),
		engine.WithTracePerTicks(opts.TracePerTicks),
	}
	if mode == store.ModeProcs {
		tb.Options = append(tb.Options, engine.WithTicks(ticks...))
	}
	if opts.Top != "" {
		tb.Options = append(tb.Options, engine.WithTop(opts.Top))
	}
	if opts.OutputStatsPath != "" {
		tb.Options = append(tb.Options, engine.WithOutputStatsPath(opts.OutputStatsPath))
	}
	return tb, nil
}

func parseTicks(raw []string) ([]int64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("--ticks must be specified.")
	}
	ticks := make([]int64, 0, len(raw))
	for _, s := range raw {
		t, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Couldn't parse run description in --ticks: %s", s)
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

func loadValues(perChannel []string, all string, max int64) (engine.ChannelValues, error) {
	switch {
	case len(perChannel) > 0:
		return harness.LoadChannelFiles(perChannel, max)
	case all != "":
		return harness.ParseChannelValuesFile(all, max)
	}
	return engine.ChannelValues{}, nil
}
