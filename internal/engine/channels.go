package engine

import (
	"sort"
	"strings"

	"github.com/cchan/xlsynth/internal/ir"
)

// ChannelValues maps channel (or port) names to value sequences.
type ChannelValues map[string][]ir.Value

// Names returns the channel names in sorted order.
func (cv ChannelValues) Names() []string {
	names := make([]string, 0, len(cv))
	for name := range cv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy whose slices can be consumed independently.
func (cv ChannelValues) Clone() ChannelValues {
	out := make(ChannelValues, len(cv))
	for name, vs := range cv {
		out[name] = append([]ir.Value(nil), vs...)
	}
	return out
}

// String renders the values in the all-channels text format:
//
//	in : {
//	  bits[8]:1
//	  bits[8]:2
//	}
//
// Channels appear in sorted order.
func (cv ChannelValues) String() string {
	var sb strings.Builder
	for _, name := range cv.Names() {
		sb.WriteString(name)
		sb.WriteString(" : {\n")
		for _, v := range cv[name] {
			sb.WriteString("  ")
			sb.WriteString(v.String())
			sb.WriteString("\n")
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
