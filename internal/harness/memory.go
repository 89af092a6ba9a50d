package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cchan/xlsynth/internal/engine"
	"github.com/cchan/xlsynth/internal/ir"
)

// ParseMemoryModels parses "name=size/initial_value" descriptors, for
// example "mem=1024/bits[32]:0".
func ParseMemoryModels(args []string) (map[string]engine.MemoryInit, error) {
	out := make(map[string]engine.MemoryInit, len(args))
	for _, arg := range args {
		split := strings.Split(arg, "=")
		if len(split) != 2 {
			return nil, fmt.Errorf("Format of argument should be memory=size/initial_value")
		}
		model := strings.Split(split[1], "/")
		if len(model) != 2 {
			return nil, fmt.Errorf("Format of memory model should be size/initial_value")
		}
		size, err := strconv.ParseInt(model[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("Size should be an integer")
		}
		initial, err := ir.ParseValue(model[1])
		if err != nil {
			return nil, fmt.Errorf("memory %s: %w", split[0], err)
		}
		out[split[0]] = engine.MemoryInit{Size: size, Initial: initial}
	}
	return out, nil
}
