package harness

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cchan/xlsynth/internal/engine"
	"github.com/cchan/xlsynth/internal/ir"
)

// ParseValues parses one typed value per line. Blank lines are skipped.
// When max is positive at most max values are returned.
func ParseValues(text string, max int64) ([]ir.Value, error) {
	var values []ir.Value
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if max > 0 && int64(len(values)) >= max {
			break
		}
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		v, err := ir.ParseValue(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return values, nil
}

// ParseValuesFile reads a one-value-per-line file.
func ParseValuesFile(path string, max int64) ([]ir.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}
	values, err := ParseValues(string(data), max)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// ParseChannelFilenames splits "channel=file" arguments.
func ParseChannelFilenames(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		split := strings.Split(arg, "=")
		if len(split) != 2 {
			return nil, fmt.Errorf("Format of argument should be channel=file")
		}
		out[split[0]] = split[1]
	}
	return out, nil
}

// LoadChannelFiles reads one values file per "channel=file" argument.
func LoadChannelFiles(args []string, max int64) (engine.ChannelValues, error) {
	files, err := ParseChannelFilenames(args)
	if err != nil {
		return nil, err
	}
	out := make(engine.ChannelValues, len(files))
	for channel, path := range files {
		values, err := ParseValuesFile(path, max)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", channel, err)
		}
		out[channel] = values
	}
	return out, nil
}

// ParseChannelValues parses the all-channels format written by
// engine.ChannelValues.String. When max is positive each channel keeps at
// most max values.
func ParseChannelValues(text string, max int64) (engine.ChannelValues, error) {
	out := engine.ChannelValues{}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	current := ""
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		if current == "" {
			name, ok := strings.CutSuffix(s, "{")
			name = strings.TrimSpace(name)
			name, hasColon := strings.CutSuffix(name, ":")
			name = strings.TrimSpace(name)
			if !ok || !hasColon || !ir.IsIdentifier(name) {
				return nil, fmt.Errorf("line %d: expected 'CHANNEL : {', got %q", line, s)
			}
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("line %d: channel %s listed twice", line, name)
			}
			out[name] = []ir.Value{}
			current = name
			continue
		}
		if s == "}" {
			current = ""
			continue
		}
		if max > 0 && int64(len(out[current])) >= max {
			continue
		}
		v, err := ir.ParseValue(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out[current] = append(out[current], v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read channel values: %w", err)
	}
	if current != "" {
		return nil, fmt.Errorf("channel %s: missing closing '}'", current)
	}
	return out, nil
}

// ParseChannelValuesFile reads an all-channels file.
func ParseChannelValuesFile(path string, max int64) (engine.ChannelValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel values file: %w", err)
	}
	values, err := ParseChannelValues(string(data), max)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}
