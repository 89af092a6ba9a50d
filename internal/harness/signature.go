package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cchan/xlsynth/internal/engine"
)

// ParseBlockSignature decodes a YAML block signature. Unknown fields are
// rejected so misspelled port keys fail loudly.
func ParseBlockSignature(data []byte) (*engine.BlockSignature, error) {
	var sig engine.BlockSignature
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sig); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty block signature")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSignature(&sig); err != nil {
		return nil, fmt.Errorf("invalid block signature: %w", err)
	}
	return &sig, nil
}

// LoadBlockSignature reads and validates a block signature file.
func LoadBlockSignature(path string) (*engine.BlockSignature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read block signature: %w", err)
	}
	sig, err := ParseBlockSignature(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

func validateSignature(sig *engine.BlockSignature) error {
	for i, p := range sig.DataPorts {
		if p.Name == "" {
			return fmt.Errorf("data_ports[%d]: name is required", i)
		}
		if p.Direction != engine.DirectionInput && p.Direction != engine.DirectionOutput {
			return fmt.Errorf("data_ports[%d]: unknown direction %q", i, p.Direction)
		}
	}
	for i, ch := range sig.DataChannels {
		if ch.Name == "" {
			return fmt.Errorf("data_channels[%d]: name is required", i)
		}
		switch ch.Ops {
		case engine.OpsSendOnly, engine.OpsReceiveOnly, engine.OpsSendReceive:
		default:
			return fmt.Errorf("data_channels[%d]: unknown ops %q", i, ch.Ops)
		}
		switch ch.FlowControl {
		case engine.FlowReadyValid, engine.FlowNone, "":
		default:
			return fmt.Errorf("data_channels[%d]: unknown flow_control %q", i, ch.FlowControl)
		}
	}
	for i, ram := range sig.Rams {
		if ram.Name == "" {
			return fmt.Errorf("rams[%d]: name is required", i)
		}
		if ram.Kind != engine.Ram1RW && ram.Kind != engine.Ram1R1W {
			return fmt.Errorf("rams[%d]: unknown kind %q", i, ram.Kind)
		}
	}
	return nil
}
