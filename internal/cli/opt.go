package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cchan/xlsynth/internal/harness"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/passes"
)

// OptOptions holds flags for the opt command.
type OptOptions struct {
	*RootOptions
	OptLevel      int
	MaxIterations int
	Output        string
	Database      string

	// Recorder overrides the run recorder (for testing).
	Recorder *harness.Recorder
}

// OptResult is the opt command's JSON payload.
type OptResult struct {
	Package    string         `json:"package"`
	Changed    bool           `json:"changed"`
	Iterations int            `json:"iterations"`
	Rewrites   map[string]int `json:"rewrites"`
	InputHash  string         `json:"input_hash"`
	OutputHash string         `json:"output_hash"`
	RunID      string         `json:"run_id,omitempty"`
	IR         string         `json:"ir,omitempty"`
}

// NewOptCommand creates the opt command.
func NewOptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "opt <ir-file>",
		Short: "Run the optimization pipeline on an IR package",
		Long: `Run select simplification, CSE and DCE to a fixpoint on every
function, proc and block of an IR package and print the optimized IR.

Exit codes:
  0 - Pipeline finished
  1 - Pipeline failed (e.g. iteration limit reached)
  2 - Command error (unreadable or malformed IR)

Examples:
  xlsim opt design.ir
  xlsim opt design.ir --opt_level 1 -o design.opt.ir
  xlsim opt design.ir --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpt(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.OptLevel, "opt_level", passes.MaxOptLevel, "optimization level (0-3)")
	cmd.Flags().IntVar(&opts.MaxIterations, "max_iterations", passes.DefaultMaxIterations, "pipeline fixpoint iteration limit")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the optimized IR here instead of stdout")
	cmd.Flags().StringVar(&opts.Database, "db", defaultDatabase(), "record the run in this SQLite database (env "+EnvDatabase+")")

	return cmd
}

func runOpt(opts *OptOptions, path string, cmd *cobra.Command) error {
	out := formatterFor(cmd, opts.RootOptions)
	if opts.OptLevel < 0 || opts.OptLevel > passes.MaxOptLevel {
		return NewExitError(ExitCommandError, fmt.Sprintf("--opt_level must be in [0, %d]", passes.MaxOptLevel))
	}

	pkg, err := ir.ParseFile(path)
	if err != nil {
		_ = out.Error(ErrCodeParse, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to parse IR", err)
	}

	passOpts := passes.NewOptions(
		passes.WithOptLevel(opts.OptLevel),
		passes.WithMaxIterations(opts.MaxIterations),
	)
	res := passes.NewResults()
	inputHash := ir.PackageFingerprint(pkg)

	changed, err := passes.DefaultPipeline().RunOnPackage(cmd.Context(), pkg, passOpts, res)
	if err != nil {
		_ = out.Error(ErrCodePipeline, err.Error(), nil)
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}
	slog.Info("pipeline finished", "package", pkg.Name(), "rewrites", res.Summary())

	result := OptResult{
		Package:    pkg.Name(),
		Changed:    changed,
		Iterations: res.Iterations,
		Rewrites:   res.Rewrites,
		InputHash:  inputHash,
		OutputHash: ir.PackageFingerprint(pkg),
	}
	text := ir.FormatPackage(pkg)

	recorder, closeStore, err := openRecorder(opts.Database, opts.Recorder)
	if err != nil {
		return err
	}
	defer closeStore()
	if recorder != nil {
		run, err := recorder.RecordPass(cmd.Context(), harness.PassRecord{
			Package:    pkg.Name(),
			InputHash:  inputHash,
			OutputHash: result.OutputHash,
			Options:    passOpts,
			Changed:    changed,
			Results:    res,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record pass run", err)
		}
		result.RunID = run.ID
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return out.Success(result, fmt.Sprintf("wrote %s (%d rewrites: %s)", opts.Output, res.Total(), res.Summary()))
	}
	result.IR = text
	return out.Success(result, text)
}
