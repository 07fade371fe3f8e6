package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

// MeasurementResult is one completed acquisition cycle.
type MeasurementResult struct {
	ID        uuid.UUID
	Index     int
	Serial    string
	Timestamp time.Time

	// Spectrum has one value per pixel; Wavelengths gives each pixel's
	// wavelength in nm.
	Spectrum    []float64
	Wavelengths []float64

	IntegrationMs float64
	Averaging     int
	DarkMode      wire.DarkMode

	// Saturation is the spectrum peak as a fraction of full scale.
	Saturation float64

	// Duration is the time the device spent on the cycle.
	Duration time.Duration
}

// Peak returns the wavelength and value of the spectrum maximum.
func (r *MeasurementResult) Peak() (float64, float64) {
	if len(r.Spectrum) == 0 {
		return 0, 0
	}
	i := floats.MaxIdx(r.Spectrum)
	var wl float64
	if i < len(r.Wavelengths) {
		wl = r.Wavelengths[i]
	}
	return wl, r.Spectrum[i]
}

// Metric is a quantity derived from a measurement. Values is set for
// array metrics, Value otherwise.
type Metric struct {
	ID     wire.Metric
	Value  float64
	Values []float64
}

// Measure runs one full acquisition cycle and returns its result. The
// result is kept for MeasureDerived.
func (m *Manager) Measure(ctx context.Context, index int, req device.MeasurementRequest) (*MeasurementResult, error) {
	c := call{
		op:            wire.OpMeasure,
		index:         index,
		active:        true,
		timeout:       m.config.acquisitionTimeout(req.IntegrationMs, req.Averaging),
		integrationMs: req.IntegrationMs,
		averaging:     req.Averaging,
		validate: func(*handle) error {
			return validateRequest(req)
		},
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (*MeasurementResult, error) {
		return m.measure(ctx, h, req)
	})
}

func (m *Manager) measure(ctx context.Context, h *handle, req device.MeasurementRequest) (*MeasurementResult, error) {
	meas, err := m.transport.Measure(ctx, h.index, req)
	if err != nil {
		return nil, err
	}

	res := &MeasurementResult{
		ID:            uuid.New(),
		Index:         h.index,
		Timestamp:     time.Now(),
		Spectrum:      meas.Spectrum,
		Wavelengths:   meas.Wavelengths,
		IntegrationMs: meas.IntegrationMs,
		Averaging:     meas.Averaging,
		DarkMode:      req.DarkMode,
		Saturation:    meas.Saturation,
		Duration:      meas.Duration,
	}
	if err := h.commit(ctx, func(h *handle) {
		res.Serial = h.serial
		h.last = res
		h.settings.IntegrationMs = meas.IntegrationMs
		h.settings.Averaging = meas.Averaging
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// LastMeasurement returns the most recent Measure result, or nil.
func (m *Manager) LastMeasurement(index int) (*MeasurementResult, error) {
	h, err := m.lookup(wire.OpMeasure, index)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, nil
}

// MeasureDerived returns a quantity derived from a measurement. With a
// request it first runs a new acquisition cycle; without one it uses the
// last measurement and fails with ErrNoMeasurement if there is none.
func (m *Manager) MeasureDerived(ctx context.Context, index int, metric wire.Metric, req *device.MeasurementRequest) (Metric, error) {
	c := call{
		op:     wire.OpMeasureData,
		index:  index,
		active: true,
	}
	if req != nil {
		c.timeout = m.config.acquisitionTimeout(req.IntegrationMs, req.Averaging)
		c.integrationMs = req.IntegrationMs
		c.averaging = req.Averaging
	}
	c.validate = func(h *handle) error {
		if !metric.IsValid() {
			return invalid(wire.StatusInvalidParameter, "unknown metric %d", metric)
		}
		if req != nil {
			return validateRequest(*req)
		}
		h.mu.Lock()
		measured := h.last != nil
		h.mu.Unlock()
		if !measured {
			return &Error{Op: c.op, Index: index, Kind: wire.StatusInvalidParameter, Err: ErrNoMeasurement}
		}
		return nil
	}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (Metric, error) {
		if req != nil {
			if _, err := m.measure(ctx, h, *req); err != nil {
				return Metric{}, err
			}
		}
		v, vs, err := m.transport.MeasureData(ctx, h.index, metric)
		if err != nil {
			return Metric{}, err
		}
		return Metric{ID: metric, Value: v, Values: vs}, nil
	})
}
