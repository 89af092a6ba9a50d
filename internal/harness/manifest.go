package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/cchan/xlsynth/internal/engine"
	"github.com/cchan/xlsynth/internal/ir"
	"github.com/cchan/xlsynth/internal/store"
)

// Manifest is a testbench stored in a YAML or CUE file.
type Manifest struct {
	// Name identifies the testbench in reports and golden files.
	Name string `yaml:"name" json:"name"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// IR is the path of the IR package.
	IR string `yaml:"ir" json:"ir"`

	Top     string `yaml:"top,omitempty" json:"top,omitempty"`
	Backend string `yaml:"backend" json:"backend"`

	// Ticks lists run lengths; a negative entry runs to convergence.
	Ticks []int64 `yaml:"ticks,omitempty" json:"ticks,omitempty"`

	// BlockSignature is the path of the block signature YAML.
	BlockSignature string `yaml:"block_signature,omitempty" json:"block_signature,omitempty"`

	Inputs   map[string][]string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Expected map[string][]string `yaml:"expected,omitempty" json:"expected,omitempty"`

	// Memories are "name=size/initial_value" descriptors.
	Memories []string `yaml:"memories,omitempty" json:"memories,omitempty"`

	MaxCyclesNoOutput    int64   `yaml:"max_cycles_no_output,omitempty" json:"max_cycles_no_output,omitempty"`
	RandomSeed           *int64  `yaml:"random_seed,omitempty" json:"random_seed,omitempty"`
	ProbInputValidAssert float64 `yaml:"prob_input_valid_assert,omitempty" json:"prob_input_valid_assert,omitempty"`
	FailOnAssert         bool    `yaml:"fail_on_assert,omitempty" json:"fail_on_assert,omitempty"`
	ShowTrace            bool    `yaml:"show_trace,omitempty" json:"show_trace,omitempty"`

	Expect Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`

	// dir is where relative paths resolve.
	dir string
}

// LoadManifest reads a manifest, choosing the decoder by extension.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m *Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		m, err = decodeYAMLManifest(data)
	case ".cue":
		m, err = decodeCUEManifest(data, path)
	default:
		return nil, fmt.Errorf("manifest %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.dir = filepath.Dir(path)
	if err := validateManifest(m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

func decodeYAMLManifest(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty manifest")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &m, nil
}

func decodeCUEManifest(data []byte, path string) (*Manifest, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("manifest must be concrete: %w", err)
	}

	known := manifestFields()
	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("manifest must be a struct: %w", err)
	}
	for iter.Next() {
		label := iter.Selector().String()
		if !known[label] {
			return nil, fmt.Errorf("field %s not found in type harness.Manifest", label)
		}
	}

	var m Manifest
	if err := v.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &m, nil
}

// manifestFields returns the top-level keys a manifest may use.
func manifestFields() map[string]bool {
	known := map[string]bool{}
	t := reflect.TypeOf(Manifest{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			known[name] = true
		}
	}
	return known
}

func validateManifest(m *Manifest) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.IR == "" {
		return fmt.Errorf("ir is required")
	}
	mode, _, err := ParseBackend(m.Backend)
	if err != nil {
		return err
	}
	if mode == store.ModeBlock && m.BlockSignature == "" {
		return fmt.Errorf("block evaluation requires block_signature")
	}
	if mode != store.ModeBlock && len(m.Memories) > 0 {
		return fmt.Errorf("Only block interpreter supports memory models")
	}
	if m.ProbInputValidAssert < 0 || m.ProbInputValidAssert > 1 {
		return fmt.Errorf("prob_input_valid_assert must be in [0, 1]")
	}
	return nil
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.dir, path)
}

// Testbench loads everything the manifest points at.
func (m *Manifest) Testbench() (*Testbench, error) {
	pkg, err := ir.ParseFile(m.resolve(m.IR))
	if err != nil {
		return nil, err
	}
	tb := &Testbench{
		Name:        m.Name,
		Package:     pkg,
		BackendName: m.Backend,
		Expect:      m.Expect,
	}

	types := channelTypes(pkg)
	if m.BlockSignature != "" {
		tb.Signature, err = LoadBlockSignature(m.resolve(m.BlockSignature))
		if err != nil {
			return nil, err
		}
		for _, p := range tb.Signature.DataPorts {
			types[p.Name] = ir.BitsType(p.Width)
		}
		for _, ch := range tb.Signature.DataChannels {
			if t, ok := types[ch.DataPort]; ok {
				types[ch.Name] = t
			}
		}
	}

	if tb.Inputs, err = parseManifestValues(m.Inputs, types); err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	if tb.Expected, err = parseManifestValues(m.Expected, types); err != nil {
		return nil, fmt.Errorf("expected: %w", err)
	}
	if tb.Memories, err = ParseMemoryModels(m.Memories); err != nil {
		return nil, err
	}
	tb.Options = m.options()
	return tb, nil
}

func (m *Manifest) options() []engine.Option {
	var opts []engine.Option
	if m.Top != "" {
		opts = append(opts, engine.WithTop(m.Top))
	}
	if len(m.Ticks) > 0 {
		opts = append(opts, engine.WithTicks(m.Ticks...))
	}
	if m.MaxCyclesNoOutput > 0 {
		opts = append(opts, engine.WithMaxCyclesNoOutput(m.MaxCyclesNoOutput))
	}
	if m.RandomSeed != nil {
		opts = append(opts, engine.WithRandomSeed(*m.RandomSeed))
	}
	if m.ProbInputValidAssert > 0 {
		opts = append(opts, engine.WithProbInputValidAssert(m.ProbInputValidAssert))
	}
	if m.FailOnAssert {
		opts = append(opts, engine.WithFailOnAssert(true))
	}
	if m.ShowTrace {
		opts = append(opts, engine.WithShowTrace(true))
	}
	return opts
}

func channelTypes(pkg *ir.Package) map[string]*ir.Type {
	types := map[string]*ir.Type{}
	for _, ch := range pkg.Channels() {
		types[ch.Name] = ch.Type
	}
	return types
}

// parseManifestValues parses value strings, using the channel's type for
// bare numbers when it is known.
func parseManifestValues(in map[string][]string, types map[string]*ir.Type) (engine.ChannelValues, error) {
	out := make(engine.ChannelValues, len(in))
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := make([]ir.Value, 0, len(in[name]))
		for i, text := range in[name] {
			var v ir.Value
			var err error
			if t, ok := types[name]; ok {
				v, err = ir.ParseTypedValue(text, t)
			} else {
				v, err = ir.ParseValue(text)
			}
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			values = append(values, v)
		}
		out[name] = values
	}
	return out, nil
}
