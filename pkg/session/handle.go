package session

import (
	"context"
	"sync"

	"github.com/spvis/spvis-go/pkg/calibration"
)

// Settings are the values last applied to a device through the Manager.
// Zero values mean "never set".
type Settings struct {
	LicensePath      string  `json:"licensePath,omitempty" yaml:"license,omitempty"`
	CalibrationPath  string  `json:"calibrationPath,omitempty" yaml:"calibration,omitempty"`
	IntegrationMs    float64 `json:"integrationMs,omitempty" yaml:"integration_ms,omitempty"`
	Averaging        int     `json:"averaging,omitempty" yaml:"averaging,omitempty"`
	MaxIntegrationMs float64 `json:"maxIntegrationMs,omitempty" yaml:"max_integration_ms,omitempty"`
	MaxAveraging     int     `json:"maxAveraging,omitempty" yaml:"max_averaging,omitempty"`
	ZoomFactor       float64 `json:"zoomFactor,omitempty" yaml:"zoom,omitempty"`
}

// DeviceState describes one handle.
type DeviceState struct {
	Index          int
	Serial         string
	Active         bool
	Closed         bool
	HasCalibration bool
	HasMeasurement bool
	LastError      string
	Settings       Settings
}

// handle is one opened spectrometer.
type handle struct {
	index int

	// callMu is held for the duration of a device call when the transport
	// is multiplexed.
	callMu sync.Mutex

	// mu guards the fields below. It is never held across a device call.
	mu          sync.Mutex
	closed      bool
	active      bool
	serial      string
	calibration *calibration.Profile
	settings    Settings
	last        *MeasurementResult
	lastErr     string
}

func (h *handle) isActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *handle) setLastError(msg string) {
	h.mu.Lock()
	h.lastErr = msg
	h.mu.Unlock()
}

func (h *handle) update(fn func(h *handle)) {
	h.mu.Lock()
	fn(h)
	h.mu.Unlock()
}

// commit applies fn like update, unless the caller of the running device
// call has given up.
func (h *handle) commit(ctx context.Context, fn func(h *handle)) error {
	return commit(ctx, func() { h.update(fn) })
}

func (h *handle) state() DeviceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return DeviceState{
		Index:          h.index,
		Serial:         h.serial,
		Active:         h.active,
		Closed:         h.closed,
		HasCalibration: h.calibration != nil,
		HasMeasurement: h.last != nil,
		LastError:      h.lastErr,
		Settings:       h.settings,
	}
}
