package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cchan/xlsynth/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // manifest filter (glob pattern)
	Database string

	// Recorder overrides the run recorder (for testing).
	Recorder *harness.Recorder
}

// ManifestResult holds the result of a single manifest.
type ManifestResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Status string   `json:"status,omitempty"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Manifests []ManifestResult `json:"manifests"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <manifest-or-dir>...",
		Short: "Run testbench manifests",
		Long: `Run every YAML or CUE testbench manifest found in the given files and
directories. A manifest passes when its run meets the manifest's
expectation and, if golden/<manifest>.golden exists next to it, the run
report matches the golden file. Block signature files (*.sig.yaml) are
skipped.

Exit codes:
  0 - All manifests passed
  1 - One or more manifests failed
  2 - Command error (invalid paths, etc.)

Examples:
  xlsim test ./testbenches
  xlsim test ./testbenches --filter "fifo-*"
  xlsim test ./testbenches --update
  xlsim test ./testbenches --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter manifests by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", defaultDatabase(), "record every run in this SQLite database (env "+EnvDatabase+")")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	var files []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("path not found: %s", p))
		}
		found, err := findManifestFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find manifests", err)
		}
		files = append(files, found...)
	}

	recorder, closeStore, err := openRecorder(opts.Database, opts.Recorder)
	if err != nil {
		return err
	}
	defer closeStore()

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Manifests: []ManifestResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No manifests found.")
		return nil
	}

	result := TestResult{
		Manifests: make([]ManifestResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		mr := runManifest(file, opts, recorder, cmd)
		if opts.Format != "json" {
			printManifestResult(cmd, mr)
		}
		result.Manifests = append(result.Manifests, mr)
		if mr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findManifestFiles returns the manifests under path, sorted.
func findManifestFiles(path string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		base := filepath.Base(p)
		ext := filepath.Ext(base)
		if ext != ".yaml" && ext != ".yml" && ext != ".cue" {
			return nil
		}
		name := strings.TrimSuffix(base, ext)
		if strings.HasSuffix(name, ".sig") {
			return nil
		}

		if filter != "" {
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})

	sort.Strings(files)
	return files, err
}

// runManifest loads, runs and checks one manifest.
func runManifest(path string, opts *TestOptions, recorder *harness.Recorder, cmd *cobra.Command) ManifestResult {
	mr := ManifestResult{Name: manifestName(path), Path: path}
	fail := func(format string, args ...any) ManifestResult {
		mr.Pass = false
		mr.Errors = append(mr.Errors, fmt.Sprintf(format, args...))
		return mr
	}

	m, err := harness.LoadManifest(path)
	if err != nil {
		return fail("failed to load manifest: %v", err)
	}
	mr.Name = m.Name

	tb, err := m.Testbench()
	if err != nil {
		return fail("failed to build testbench: %v", err)
	}
	res, err := tb.Run(cmd.Context())
	if err != nil {
		return fail("execution failed: %v", err)
	}
	mr.Status = res.Status
	mr.Pass = res.Pass
	mr.Errors = append(mr.Errors, res.Errors...)

	if recorder != nil {
		if _, err := recorder.RecordSim(cmd.Context(), tb, res); err != nil {
			return fail("failed to record run: %v", err)
		}
	}

	goldenPath := goldenFilePath(path)
	report := []byte(res.Report())
	if opts.Update {
		if err := writeGoldenFile(goldenPath, report); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		return mr
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return mr
	}
	if err != nil {
		return fail("golden comparison failed: %v", err)
	}
	if !bytes.Equal(golden, report) {
		return fail("report does not match golden file (run with --update to regenerate)")
	}
	return mr
}

func manifestName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath returns the path to the golden file for a manifest.
func goldenFilePath(manifest string) string {
	return filepath.Join(filepath.Dir(manifest), "golden", manifestName(manifest)+".golden")
}

func writeGoldenFile(path string, report []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printManifestResult(cmd *cobra.Command, mr ManifestResult) {
	w := cmd.OutOrStdout()
	if mr.Pass {
		fmt.Fprintf(w, "✓ %s\n", mr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", mr.Name)
	for _, e := range mr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}
	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d manifest(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d manifest(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d manifest(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All manifests passed")
	return nil
}
