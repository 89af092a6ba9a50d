package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cchan/xlsynth/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Failed   bool
	ID       string
}

// RunsResult is the runs command's JSON payload.
type RunsResult struct {
	PassRuns []store.PassRun `json:"pass_runs"`
	SimRuns  []store.SimRun  `json:"sim_runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded optimization and simulation runs",
		Long: `List the runs recorded by opt, eval and test in a SQLite run history,
oldest first.

Exit codes:
  0 - Success
  1 - --id given and the run was not found
  2 - Command error (missing or unreadable database)

Examples:
  xlsim runs --db runs.db
  xlsim runs --db runs.db --failed
  xlsim runs --db runs.db --id 0190d7a4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", defaultDatabase(), "SQLite run history (env "+EnvDatabase+")")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only list failed simulation runs")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single simulation run")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	out := formatterFor(cmd, opts.RootOptions)
	if opts.Database == "" {
		_ = out.Error(ErrCodeBadArgs, "--db is required", nil)
		return NewExitError(ExitCommandError, "--db is required")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()
	ctx := cmd.Context()

	if opts.ID != "" {
		run, found, err := st.ReadSimRun(ctx, opts.ID)
		if err != nil {
			_ = out.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if !found {
			msg := fmt.Sprintf("run %s not found", opts.ID)
			_ = out.Error(ErrCodeBadArgs, msg, nil)
			return NewExitError(ExitFailure, msg)
		}
		return out.Success(run, formatSimRun(run))
	}

	result := RunsResult{}
	if !opts.Failed {
		if result.PassRuns, err = st.ReadPassRuns(ctx); err != nil {
			_ = out.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read pass runs", err)
		}
	}
	if result.SimRuns, err = st.ReadSimRuns(ctx, opts.Failed); err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read sim runs", err)
	}
	return out.Success(result, formatRuns(result))
}

func formatRuns(r RunsResult) string {
	if len(r.PassRuns) == 0 && len(r.SimRuns) == 0 {
		return "No runs recorded."
	}
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	if len(r.PassRuns) > 0 {
		fmt.Fprintln(tw, "SEQ\tID\tPACKAGE\tOPT\tCHANGED\tITERATIONS\tREWRITES")
		for _, run := range r.PassRuns {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\t%d\t%s\n",
				run.Seq, run.ID, run.PackageName, run.OptLevel, run.Changed, run.Iterations, formatRewrites(run.Rewrites))
		}
		fmt.Fprintln(tw)
	}
	if len(r.SimRuns) > 0 {
		fmt.Fprintln(tw, "SEQ\tID\tMODE\tBACKEND\tTOP\tCYCLES\tSTATUS")
		for _, run := range r.SimRuns {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
				run.Seq, run.ID, run.Mode, run.Backend, run.Top, run.Cycles, run.Status)
		}
	}
	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func formatRewrites(rewrites map[string]int) string {
	if len(rewrites) == 0 {
		return "-"
	}
	names := make([]string, 0, len(rewrites))
	for name := range rewrites {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, rewrites[name])
	}
	return strings.Join(parts, ",")
}

func formatSimRun(run store.SimRun) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %s\n", run.ID)
	fmt.Fprintf(&sb, "seq: %d\n", run.Seq)
	fmt.Fprintf(&sb, "started_at: %s\n", run.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&sb, "package_hash: %s\n", run.PackageHash)
	fmt.Fprintf(&sb, "mode: %s\n", run.Mode)
	fmt.Fprintf(&sb, "backend: %s\n", run.Backend)
	if run.Top != "" {
		fmt.Fprintf(&sb, "top: %s\n", run.Top)
	}
	fmt.Fprintf(&sb, "cycles: %d\n", run.Cycles)
	fmt.Fprintf(&sb, "last_output_cycle: %d\n", run.LastOutputCycle)
	fmt.Fprintf(&sb, "status: %s\n", run.Status)
	if run.Message != "" {
		fmt.Fprintf(&sb, "message: %s\n", run.Message)
	}
	keys := make([]string, 0, len(run.Details))
	for k := range run.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s\n", k, run.Details[k])
	}
	return sb.String()
}
