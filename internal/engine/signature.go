package engine

import "sort"

// BlockSignature describes how a block's ports implement channels, resets
// and RAMs. It is loaded from YAML by the harness.
type BlockSignature struct {
	ModuleName   string             `yaml:"module_name" json:"module_name"`
	Reset        ResetSignature     `yaml:"reset,omitempty" json:"reset,omitempty"`
	DataPorts    []PortSignature    `yaml:"data_ports" json:"data_ports"`
	DataChannels []ChannelSignature `yaml:"data_channels,omitempty" json:"data_channels,omitempty"`
	Rams         []RamSignature     `yaml:"rams,omitempty" json:"rams,omitempty"`
}

// ResetSignature names the reset port. An empty name means no reset.
type ResetSignature struct {
	Name      string `yaml:"name" json:"name"`
	ActiveLow bool   `yaml:"active_low" json:"active_low"`
}

// Port directions.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// PortSignature is one data port of the block.
type PortSignature struct {
	Name      string `yaml:"name" json:"name"`
	Direction string `yaml:"direction" json:"direction"`
	Width     int    `yaml:"width" json:"width"`
}

// Channel ops and flow control names.
const (
	OpsSendOnly    = "send_only"
	OpsReceiveOnly = "receive_only"
	OpsSendReceive = "send_receive"

	FlowReadyValid = "ready_valid"
	FlowNone       = "none"
)

// ChannelSignature maps a channel onto block ports.
type ChannelSignature struct {
	Name        string `yaml:"name" json:"name"`
	Ops         string `yaml:"ops" json:"ops"`
	FlowControl string `yaml:"flow_control" json:"flow_control"`
	DataPort    string `yaml:"data_port" json:"data_port"`
	ReadyPort   string `yaml:"ready_port,omitempty" json:"ready_port,omitempty"`
	ValidPort   string `yaml:"valid_port,omitempty" json:"valid_port,omitempty"`
}

// RAM kinds.
const (
	Ram1RW  = "1rw"
	Ram1R1W = "1r1w"
)

// RamSignature names the ports of a RAM. A 1RW RAM shares Address between
// reads and writes; a 1R1W RAM uses the separate read and write addresses.
type RamSignature struct {
	Name         string `yaml:"name" json:"name"`
	Kind         string `yaml:"kind" json:"kind"`
	Address      string `yaml:"address,omitempty" json:"address,omitempty"`
	ReadAddress  string `yaml:"read_address,omitempty" json:"read_address,omitempty"`
	ReadEnable   string `yaml:"read_enable" json:"read_enable"`
	ReadData     string `yaml:"read_data" json:"read_data"`
	WriteAddress string `yaml:"write_address,omitempty" json:"write_address,omitempty"`
	WriteEnable  string `yaml:"write_enable" json:"write_enable"`
	WriteData    string `yaml:"write_data" json:"write_data"`
}

// RamPorts are the six port names a memory model is wired to.
type RamPorts struct {
	ReadAddress  string
	ReadEnable   string
	ReadData     string
	WriteAddress string
	WriteEnable  string
	WriteData    string
}

// Ports resolves the RAM's port names for its kind.
func (r RamSignature) Ports() (RamPorts, error) {
	p := RamPorts{
		ReadEnable:  r.ReadEnable,
		ReadData:    r.ReadData,
		WriteEnable: r.WriteEnable,
		WriteData:   r.WriteData,
	}
	switch r.Kind {
	case Ram1RW:
		p.ReadAddress, p.WriteAddress = r.Address, r.Address
	case Ram1R1W:
		p.ReadAddress, p.WriteAddress = r.ReadAddress, r.WriteAddress
	default:
		return RamPorts{}, newMalformedInputError("Ram '%s' does not include read/write info", r.Name)
	}
	return p, nil
}

// RamPortMap resolves every RAM in the signature, keyed by RAM name.
func (s *BlockSignature) RamPortMap() (map[string]RamPorts, error) {
	out := make(map[string]RamPorts, len(s.Rams))
	for _, r := range s.Rams {
		p, err := r.Ports()
		if err != nil {
			return nil, err
		}
		out[r.Name] = p
	}
	return out, nil
}

// ChannelInfo is a channel as seen from the block's ports.
type ChannelInfo struct {
	Name       string
	Width      int
	Input      bool
	ReadyValid bool
	DataPort   string
	ReadyPort  string
	ValidPort  string
}

// InterpretBlockSignature maps every external channel of sig onto its ports
// and checks it against the provided values: every input channel needs
// input values, every output channel expected values, and no value file may
// name a channel without ports. A signature without channels describes a
// function; each data port then acts as a channel without flow control.
func InterpretBlockSignature(sig *BlockSignature, inputs, expected ChannelValues) (map[string]ChannelInfo, error) {
	ports := make(map[string]PortSignature, len(sig.DataPorts))
	for _, p := range sig.DataPorts {
		ports[p.Name] = p
	}

	infos := map[string]ChannelInfo{}
	for _, ch := range sig.DataChannels {
		if ch.Ops == OpsSendReceive {
			continue
		}
		if ch.DataPort == "" && ch.ReadyPort == "" && ch.ValidPort == "" {
			return nil, newMalformedInputError("Channel '%s' has no associated ports", ch.Name)
		}
		data, ok := ports[ch.DataPort]
		if !ok {
			return nil, newMalformedInputError("Channel '%s' names its data port as '%s' but no such port exists.",
				ch.Name, ch.DataPort)
		}
		info := ChannelInfo{
			Name:       ch.Name,
			Width:      data.Width,
			ReadyValid: ch.FlowControl == FlowReadyValid,
			DataPort:   ch.DataPort,
		}
		switch ch.Ops {
		case OpsSendOnly:
			info.Input = false
		case OpsReceiveOnly:
			info.Input = true
		default:
			return nil, newInvariantError("channel '%s' has unknown ops %q", ch.Name, ch.Ops)
		}
		if info.ReadyValid {
			if ch.ReadyPort == "" {
				return nil, newMalformedInputError("Ready/valid channel '%s' has no ready port.", ch.Name)
			}
			if ch.ValidPort == "" {
				return nil, newMalformedInputError("Ready/valid channel '%s' has no valid port.", ch.Name)
			}
			info.ReadyPort, info.ValidPort = ch.ReadyPort, ch.ValidPort
		}
		infos[ch.Name] = info
	}

	if len(infos) == 0 {
		for _, p := range sig.DataPorts {
			infos[p.Name] = ChannelInfo{
				Name:     p.Name,
				Width:    p.Width,
				Input:    p.Direction == DirectionInput,
				DataPort: p.Name,
			}
		}
	}

	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if infos[name].Input {
			if _, ok := inputs[name]; !ok {
				return nil, &SimError{Code: ErrCodeMalformedInput, Message: "missing input values", Channel: name}
			}
		} else if _, ok := expected[name]; !ok {
			return nil, &SimError{Code: ErrCodeMalformedInput, Message: "missing expected output values", Channel: name}
		}
	}

	for _, name := range inputs.Names() {
		if _, ok := infos[name]; !ok {
			return nil, newMalformedInputError(
				"Channel %s should not be in channel inputs file, as there are no corresponding ports", name)
		}
	}
	for _, name := range expected.Names() {
		if _, ok := infos[name]; !ok {
			return nil, newMalformedInputError(
				"Channel %s should not be in channel outputs file, as there are no corresponding ports", name)
		}
	}
	return infos, nil
}
