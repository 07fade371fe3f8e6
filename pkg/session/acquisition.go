package session

import (
	"context"

	"github.com/spvis/spvis-go/pkg/wire"
)

// AutoDark acquires dark spectra for every integration time up to
// maxIntegrationMs.
func (m *Manager) AutoDark(ctx context.Context, index int, maxIntegrationMs float64) error {
	c := call{
		op:      wire.OpAutoDark,
		index:   index,
		active:  true,
		timeout: m.config.AutoTimeout,
		validate: func(*handle) error {
			return validateExposure(maxIntegrationMs, 1)
		},
	}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		return m.transport.AutoDark(ctx, h.index, maxIntegrationMs)
	})
}

// OnceDark acquires a single dark spectrum used by DarkModeSingle.
func (m *Manager) OnceDark(ctx context.Context, index int, integrationMs float64, averaging int) error {
	c := call{
		op:            wire.OpOnceDark,
		index:         index,
		active:        true,
		timeout:       m.config.acquisitionTimeout(integrationMs, averaging),
		integrationMs: integrationMs,
		averaging:     averaging,
		validate: func(*handle) error {
			return validateExposure(integrationMs, averaging)
		},
	}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		return m.transport.OnceDark(ctx, h.index, integrationMs, averaging)
	})
}

// AutoIntegration lets the device choose integration settings that reach
// the target saturation (0 < targetSaturation <= 1). The chosen settings are
// returned and become the device's current settings.
func (m *Manager) AutoIntegration(ctx context.Context, index int, targetSaturation float64) (float64, int, error) {
	type settings struct {
		ms  float64
		avg int
	}
	c := call{
		op:      wire.OpAutoIntegration,
		index:   index,
		active:  true,
		timeout: m.config.AutoTimeout,
		validate: func(*handle) error {
			if !(targetSaturation > 0 && targetSaturation <= 1) {
				return invalid(wire.StatusInvalidSaturation, "target saturation %g outside (0, 1]", targetSaturation)
			}
			return nil
		},
	}
	s, err := invoke(m, ctx, c, func(ctx context.Context, h *handle) (settings, error) {
		ms, avg, err := m.transport.AutoIntegration(ctx, h.index, targetSaturation)
		if err != nil {
			return settings{}, err
		}
		if err := h.commit(ctx, func(h *handle) {
			h.settings.IntegrationMs = ms
			h.settings.Averaging = avg
		}); err != nil {
			return settings{}, err
		}
		return settings{ms, avg}, nil
	})
	return s.ms, s.avg, err
}

// SetIntegration applies manual integration settings. If auto-max limits
// have been set, the settings must not exceed them.
func (m *Manager) SetIntegration(ctx context.Context, index int, integrationMs float64, averaging int) error {
	c := call{
		op:            wire.OpSetIntegration,
		index:         index,
		active:        true,
		integrationMs: integrationMs,
		averaging:     averaging,
	}
	c.validate = func(h *handle) error {
		if err := validateExposure(integrationMs, averaging); err != nil {
			return err
		}
		h.mu.Lock()
		limits := h.settings
		h.mu.Unlock()
		if limits.MaxIntegrationMs > 0 && integrationMs > limits.MaxIntegrationMs {
			return invalid(wire.StatusInvalidIntegrationTime, "integration time %gms above limit %gms",
				integrationMs, limits.MaxIntegrationMs)
		}
		if limits.MaxAveraging > 0 && averaging > limits.MaxAveraging {
			return invalid(wire.StatusInvalidAveragingCount, "averaging count %d above limit %d",
				averaging, limits.MaxAveraging)
		}
		return nil
	}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		if err := m.transport.SetIntegration(ctx, h.index, integrationMs, averaging); err != nil {
			return err
		}
		return h.commit(ctx, func(h *handle) {
			h.settings.IntegrationMs = integrationMs
			h.settings.Averaging = averaging
		})
	})
}

// Saturation acquires a spectrum and returns its peak as a fraction of
// the detector's full scale.
func (m *Manager) Saturation(ctx context.Context, index int, integrationMs float64, averaging int) (float64, error) {
	c := call{
		op:            wire.OpGetSaturation,
		index:         index,
		active:        true,
		timeout:       m.config.acquisitionTimeout(integrationMs, averaging),
		integrationMs: integrationMs,
		averaging:     averaging,
		validate: func(*handle) error {
			return validateExposure(integrationMs, averaging)
		},
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (float64, error) {
		return m.transport.Saturation(ctx, h.index, integrationMs, averaging)
	})
}

// SetAutoMaxLimits bounds the settings AutoIntegration may choose. The
// device may clamp the limits; the applied values are returned.
func (m *Manager) SetAutoMaxLimits(ctx context.Context, index int, maxIntegrationMs float64, maxAveraging int) (float64, int, error) {
	type limits struct {
		ms  float64
		avg int
	}
	c := call{
		op:     wire.OpSetAutoMaxIntegration,
		index:  index,
		active: true,
		validate: func(*handle) error {
			return validateExposure(maxIntegrationMs, maxAveraging)
		},
	}
	l, err := invoke(m, ctx, c, func(ctx context.Context, h *handle) (limits, error) {
		ms, avg, err := m.transport.SetAutoMaxLimits(ctx, h.index, maxIntegrationMs, maxAveraging)
		if err != nil {
			return limits{}, err
		}
		if err := h.commit(ctx, func(h *handle) {
			h.settings.MaxIntegrationMs = ms
			h.settings.MaxAveraging = avg
		}); err != nil {
			return limits{}, err
		}
		return limits{ms, avg}, nil
	})
	return l.ms, l.avg, err
}

// Spectrum acquires one spectrum with one value per pixel.
func (m *Manager) Spectrum(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int) ([]float64, error) {
	c := call{
		op:            wire.OpGetSpectrum,
		index:         index,
		active:        true,
		timeout:       m.config.acquisitionTimeout(integrationMs, averaging),
		integrationMs: integrationMs,
		averaging:     averaging,
		validate: func(*handle) error {
			if err := validateDarkMode(mode); err != nil {
				return err
			}
			return validateExposure(integrationMs, averaging)
		},
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) ([]float64, error) {
		return m.transport.Spectrum(ctx, h.index, mode, integrationMs, averaging)
	})
}

// Shutter opens or closes the device shutter.
func (m *Manager) Shutter(ctx context.Context, index int, open bool) error {
	c := call{op: wire.OpShutter, index: index, active: true}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		return m.transport.Shutter(ctx, h.index, open)
	})
}
