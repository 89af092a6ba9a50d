package harness

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Report renders a result as stable text for golden comparison. Elapsed
// times are left out.
func (r *Result) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name: %s\n", r.Name)
	fmt.Fprintf(&sb, "mode: %s\n", r.Mode)
	fmt.Fprintf(&sb, "status: %s\n", r.Status)
	fmt.Fprintf(&sb, "pass: %t\n", r.Pass)
	fmt.Fprintf(&sb, "cycles: %d\n", r.Cycles)
	fmt.Fprintf(&sb, "last_output_cycle: %d\n", r.LastOutputCycle)
	if r.Message != "" {
		sb.WriteString("message:\n")
		writeIndented(&sb, r.Message)
	}
	if len(r.Details) > 0 {
		sb.WriteString("details:\n")
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, r.Details[k])
		}
	}
	if len(r.Outputs) > 0 {
		sb.WriteString("outputs:\n")
		writeIndented(&sb, r.Outputs.String())
	}
	if len(r.Unconsumed) > 0 {
		sb.WriteString("unconsumed:\n")
		writeIndented(&sb, r.Unconsumed.String())
	}
	if r.Registers != "" {
		fmt.Fprintf(&sb, "registers: %s\n", r.Registers)
	}
	writeList(&sb, "trace", r.TraceMessages)
	writeList(&sb, "assertions", r.AssertionMessages)
	writeList(&sb, "errors", r.Errors)
	return sb.String()
}

func writeIndented(sb *strings.Builder, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title)
	sb.WriteString(":\n")
	for _, item := range items {
		sb.WriteString("  - ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
}

// AssertGolden compares a result's report against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, res *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(res.Report()))
}
