package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Environment variables that provide flag defaults.
const (
	EnvDatabase       = "XLSIM_DB"
	EnvRandomSeed     = "XLSIM_RANDOM_SEED"
	EnvTimeoutSeconds = "XLSIM_TIMEOUT_SECONDS"
)

// NewRootCommand creates the root command for the xlsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "xlsim",
		Short: "xlsim - optimize and simulate hardware IR",
		Long: `Optimize IR packages with the select-simplification pipeline and
simulate proc networks or ready/valid blocks against expected channel values.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(cmd, opts)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewOptCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// configureLogging sends slog output to the command's stderr.
func configureLogging(cmd *cobra.Command, opts *RootOptions) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Flag defaults read the live environment: env caches os.Environ on first
// use otherwise, hiding variables set after start-up.
func init() {
	env.Unload()
}

func defaultDatabase() string {
	return env.Str(EnvDatabase)
}

func defaultRandomSeed() int64 {
	return env.Int64(EnvRandomSeed, 42)
}

func defaultTimeout() time.Duration {
	return env.DurationSeconds(EnvTimeoutSeconds, 0)
}

func formatterFor(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
