package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spvis/spvis-go/pkg/wire"
)

// Parameter returns a device parameter in the library's string form.
func (m *Manager) Parameter(ctx context.Context, index int, kind wire.ParameterKind) (string, error) {
	c := call{
		op:     wire.OpGetParameter,
		index:  index,
		active: true,
		validate: func(*handle) error {
			if !kind.IsValid() {
				return invalid(wire.StatusInvalidParameter, "unknown parameter %d", kind)
			}
			return nil
		},
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (string, error) {
		return m.transport.Parameter(ctx, h.index, kind)
	})
}

// PixelCount returns the number of detector pixels.
func (m *Manager) PixelCount(ctx context.Context, index int) (int, error) {
	s, err := m.Parameter(ctx, index, wire.ParameterPixelCount)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, &Error{Op: wire.OpGetParameter, Index: index, Kind: wire.StatusUnknown,
			Err: fmt.Errorf("bad pixel count %q", s)}
	}
	return n, nil
}

// WavelengthRange returns the wavelengths of the first and last pixel in nm.
func (m *Manager) WavelengthRange(ctx context.Context, index int) (float64, float64, error) {
	var out [2]float64
	for i, kind := range []wire.ParameterKind{wire.ParameterStartWavelength, wire.ParameterEndWavelength} {
		s, err := m.Parameter(ctx, index, kind)
		if err != nil {
			return 0, 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, 0, &Error{Op: wire.OpGetParameter, Index: index, Kind: wire.StatusUnknown,
				Err: fmt.Errorf("bad %s %q", kind, s)}
		}
		out[i] = v
	}
	return out[0], out[1], nil
}

// DeviceError returns the device's own diagnostic text.
func (m *Manager) DeviceError(ctx context.Context, index int) (string, error) {
	c := call{op: wire.OpCheckError, index: index, active: true}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (string, error) {
		return m.transport.DeviceError(ctx, h.index)
	})
}
