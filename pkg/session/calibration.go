package session

import (
	"context"
	"math"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/wire"
)

// CalibrateWithLamp measures a standard lamp of known spectral radiance.
// lampSpectrum and lampWavelengths must be non-empty and of equal length,
// and the dark mode must subtract a dark spectrum.
func (m *Manager) CalibrateWithLamp(ctx context.Context, index int, mode wire.DarkMode,
	integrationMs float64, averaging int, lampSpectrum, lampWavelengths []float64) error {
	c := call{
		op:            wire.OpLampCalibration,
		index:         index,
		active:        true,
		timeout:       m.config.acquisitionTimeout(integrationMs, averaging),
		integrationMs: integrationMs,
		averaging:     averaging,
		validate: func(*handle) error {
			if len(lampSpectrum) == 0 || len(lampSpectrum) != len(lampWavelengths) {
				return invalid(wire.StatusInvalidArrayLength, "lamp spectrum has %d values for %d wavelengths",
					len(lampSpectrum), len(lampWavelengths))
			}
			if !mode.Subtracts() {
				return invalid(wire.StatusInvalidParameter, "lamp calibration requires dark subtraction, got %s", mode)
			}
			return validateExposure(integrationMs, averaging)
		},
	}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		return m.transport.CalibrateWithLamp(ctx, h.index, mode, integrationMs, averaging,
			lampSpectrum, lampWavelengths)
	})
}

// ReadCalibration loads a calibration file into the device and returns
// the profile it contains. It replaces any previous calibration.
func (m *Manager) ReadCalibration(ctx context.Context, index int, path string) (*calibration.Profile, error) {
	c := call{
		op:     wire.OpReadCalibration,
		index:  index,
		active: true,
		validate: func(*handle) error {
			if path == "" {
				return invalid(wire.StatusFileNotFound, "empty calibration path")
			}
			return nil
		},
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (*calibration.Profile, error) {
		p, err := m.transport.ReadCalibration(ctx, h.index, path)
		if err != nil {
			return nil, err
		}
		if err := h.commit(ctx, func(h *handle) {
			h.calibration = p
			h.settings.CalibrationPath = path
		}); err != nil {
			return nil, err
		}
		return p, nil
	})
}

// Calibration returns the profile last loaded with ReadCalibration, or nil.
func (m *Manager) Calibration(index int) (*calibration.Profile, error) {
	h, err := m.lookup(wire.OpReadCalibration, index)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calibration, nil
}

// SaveCalibration writes the device's calibration for a usage mode. A path
// ending in .txt names the file; any other path is a directory in which the
// file is named after the device serial number. The written path is returned.
func (m *Manager) SaveCalibration(ctx context.Context, index int, usage wire.UsageMode, path string) (string, error) {
	c := call{
		op:     wire.OpSaveCalibration,
		index:  index,
		active: true,
		validate: func(*handle) error {
			if !usage.IsValid() {
				return invalid(wire.StatusInvalidParameter, "unknown usage mode %d", usage)
			}
			return nil
		},
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (string, error) {
		written, err := m.transport.SaveCalibration(ctx, h.index, usage, path)
		if err != nil {
			return "", err
		}
		if err := h.commit(ctx, func(h *handle) { h.settings.CalibrationPath = written }); err != nil {
			return "", err
		}
		return written, nil
	})
}

// SetZoomFactor sets the overall spectrum scaling factor.
func (m *Manager) SetZoomFactor(ctx context.Context, index int, factor float64) error {
	c := call{
		op:     wire.OpSetZoomFactor,
		index:  index,
		active: true,
		validate: func(*handle) error {
			if !(factor > 0) || math.IsInf(factor, 0) {
				return invalid(wire.StatusInvalidOpticalParameter, "zoom factor %g must be positive and finite", factor)
			}
			return nil
		},
	}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		if err := m.transport.SetZoomFactor(ctx, h.index, factor); err != nil {
			return err
		}
		return h.commit(ctx, func(h *handle) { h.settings.ZoomFactor = factor })
	})
}

// ZoomFactor returns the device's scaling factor.
func (m *Manager) ZoomFactor(ctx context.Context, index int) (float64, error) {
	c := call{op: wire.OpGetZoomFactor, index: index, active: true}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (float64, error) {
		return m.transport.ZoomFactor(ctx, h.index)
	})
}
