package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spvis/spvis-go/pkg/wire"
)

// ErrInvalidParams marks a step whose parameters could not be used. Such a
// step fails whatever its expectation.
var ErrInvalidParams = errors.New("invalid step parameters")

// params gives typed access to a step's parameters.
type params map[string]any

func paramError(key string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParams, key, fmt.Sprintf(format, args...))
}

func (p params) has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p params) float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, paramError(key, "not a number: %q", n)
		}
		return f, nil
	}
	return 0, paramError(key, "not a number: %v", v)
}

func (p params) requireFloat(key string) (float64, error) {
	if !p.has(key) {
		return 0, paramError(key, "required")
	}
	return p.float(key, 0)
}

func (p params) int(key string, def int) (int, error) {
	if !p.has(key) {
		return def, nil
	}
	f, err := p.float(key, 0)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, paramError(key, "not an integer: %v", f)
	}
	return int(f), nil
}

func (p params) string(key string, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	return valueToString(v), nil
}

func (p params) requireString(key string) (string, error) {
	s, err := p.string(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", paramError(key, "required")
	}
	return s, nil
}

func (p params) bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, paramError(key, "not a boolean: %q", b)
		}
		return parsed, nil
	}
	return false, paramError(key, "not a boolean: %v", v)
}

func (p params) floats(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, nil
	}
	switch list := v.(type) {
	case []float64:
		return list, nil
	case []any:
		out := make([]float64, len(list))
		for i, item := range list {
			f, err := params{key: item}.float(key, 0)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, paramError(key, "not a list of numbers")
}

func (p params) duration(key string) (time.Duration, error) {
	v, ok := p[key]
	if !ok {
		return 0, paramError(key, "required")
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, paramError(key, "%v", err)
		}
		return parsed, nil
	case int:
		return time.Duration(d) * time.Millisecond, nil
	case float64:
		return time.Duration(d * float64(time.Millisecond)), nil
	}
	return 0, paramError(key, "not a duration: %v", v)
}

func (p params) darkMode(key string, def wire.DarkMode) (wire.DarkMode, error) {
	if !p.has(key) {
		return def, nil
	}
	s, _ := p.string(key, "")
	m, err := wire.ParseDarkMode(s)
	if err != nil {
		return 0, paramError(key, "%v", err)
	}
	return m, nil
}

func (p params) usageMode(key string, def wire.UsageMode) (wire.UsageMode, error) {
	if !p.has(key) {
		return def, nil
	}
	s, _ := p.string(key, "")
	u, err := wire.ParseUsageMode(s)
	if err != nil {
		return 0, paramError(key, "%v", err)
	}
	return u, nil
}

// exposure reads the integration_ms and averaging pair.
func (p params) exposure(defMs float64, defAvg int) (float64, int, error) {
	ms, err := p.float("integration_ms", defMs)
	if err != nil {
		return 0, 0, err
	}
	avg, err := p.int("averaging", defAvg)
	if err != nil {
		return 0, 0, err
	}
	return ms, avg, nil
}
