// Package device defines the boundary between the session manager and a
// spectrometer library.
//
// A Transport is a blocking request/response channel to the vendor library.
// Each method corresponds to one library call. Vendor status codes are
// returned as *StatusError; any other error means the call did not reach the
// device or its outcome is unknown.
package device

import (
	"context"
	"time"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Transport is the spectrometer library as seen by the session manager.
//
// Implementations need not validate arguments beyond what the library does;
// the session manager checks indices and parameter ranges before calling.
type Transport interface {
	// Init opens all attached devices and returns their count. If it fails
	// after opening some devices, it returns that count with the error.
	Init(ctx context.Context) (int, error)

	// Done closes one device.
	Done(ctx context.Context, index int) error

	// DoneAll closes every device opened by Init.
	DoneAll(ctx context.Context) error

	// Activate unlocks a device with a license file.
	Activate(ctx context.Context, index int, licensePath string) error

	// SerialNumber returns the device's serial number. It works on devices
	// that have not been activated.
	SerialNumber(ctx context.Context, index int) (string, error)

	// Parameter returns a device parameter in its string form.
	Parameter(ctx context.Context, index int, kind wire.ParameterKind) (string, error)

	// AutoDark acquires a dark spectrum for every integration time up to maxIntegrationMs.
	AutoDark(ctx context.Context, index int, maxIntegrationMs float64) error

	// OnceDark acquires a single dark spectrum with the given settings.
	OnceDark(ctx context.Context, index int, integrationMs float64, averaging int) error

	// AutoIntegration searches for settings reaching the target saturation.
	AutoIntegration(ctx context.Context, index int, saturation float64) (integrationMs float64, averaging int, err error)

	// SetIntegration applies manual integration settings.
	SetIntegration(ctx context.Context, index int, integrationMs float64, averaging int) error

	// Saturation acquires a spectrum and returns its peak as a fraction of full scale.
	Saturation(ctx context.Context, index int, integrationMs float64, averaging int) (float64, error)

	// SetAutoMaxLimits bounds AutoIntegration. The device may clamp the
	// limits and returns the values it applied.
	SetAutoMaxLimits(ctx context.Context, index int, maxIntegrationMs float64, maxAveraging int) (float64, int, error)

	// Spectrum acquires one spectrum.
	Spectrum(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int) ([]float64, error)

	// CalibrateWithLamp measures a standard lamp of known spectral radiance.
	CalibrateWithLamp(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int,
		lampSpectrum, lampWavelengths []float64) error

	// ReadCalibration loads a calibration file into the device.
	ReadCalibration(ctx context.Context, index int, path string) (*calibration.Profile, error)

	// SaveCalibration writes the device's calibration and returns the file written.
	SaveCalibration(ctx context.Context, index int, usage wire.UsageMode, path string) (string, error)

	// SetZoomFactor sets the overall spectrum scaling factor.
	SetZoomFactor(ctx context.Context, index int, factor float64) error

	// ZoomFactor returns the current scaling factor.
	ZoomFactor(ctx context.Context, index int) (float64, error)

	// Measure runs one full acquisition cycle.
	Measure(ctx context.Context, index int, req MeasurementRequest) (*Measurement, error)

	// MeasureData returns a quantity derived from the last measurement.
	// Array metrics return values; scalar metrics return value.
	MeasureData(ctx context.Context, index int, metric wire.Metric) (value float64, values []float64, err error)

	// DeviceError returns the device's own diagnostic text.
	DeviceError(ctx context.Context, index int) (string, error)

	// Shutter opens or closes the device shutter.
	Shutter(ctx context.Context, index int, open bool) error
}

// Multiplexer is implemented by transports that can serve calls on
// different device indices concurrently.
type Multiplexer interface {
	Multiplexed() bool
}

// IsMultiplexed reports whether t declares concurrent per-device calls.
func IsMultiplexed(t Transport) bool {
	m, ok := t.(Multiplexer)
	return ok && m.Multiplexed()
}

// MeasurementRequest are the settings of one full acquisition cycle.
type MeasurementRequest struct {
	IntegrationMs   float64
	Averaging       int
	DarkMode        wire.DarkMode

	// AuxCompensation applies the auxiliary lamp correction. Transports
	// without loaded aux factors reject it with INVALID_PARAMETER.
	AuxCompensation bool
	SmoothingWindow int
}

// Measurement is what the device reports for one acquisition cycle.
type Measurement struct {
	Wavelengths   []float64
	Spectrum      []float64
	IntegrationMs float64
	Averaging     int
	Saturation    float64
	Duration      time.Duration
}
