package wire

// HelloParams opens a bridge session.
type HelloParams struct {
	Version string `cbor:"1,keyasint"`
	Client  string `cbor:"2,keyasint,omitempty"`
}

// HelloResult is the bridge's answer to Hello. Multiplexed is set when the
// bridge serves requests for different devices concurrently.
type HelloResult struct {
	Version     string `cbor:"1,keyasint"`
	Bridge      string `cbor:"2,keyasint,omitempty"`
	Multiplexed bool   `cbor:"3,keyasint,omitempty"`
}

// InitResult reports how many devices were opened. It is also present on a
// failed Init when some devices were opened before the failure.
type InitResult struct {
	DeviceCount int `cbor:"1,keyasint"`
}

// PathParams names a file on the bridge host.
type PathParams struct {
	Path      string    `cbor:"1,keyasint"`
	UsageMode UsageMode `cbor:"2,keyasint,omitempty"`
}

// PathResult returns a file path written on the bridge host.
type PathResult struct {
	Path string `cbor:"1,keyasint"`
}

// SerialResult carries a device serial number.
type SerialResult struct {
	Serial string `cbor:"1,keyasint"`
}

// ParameterParams selects a device parameter.
type ParameterParams struct {
	Kind ParameterKind `cbor:"1,keyasint"`
}

// ParameterResult carries a device parameter in the library's string form.
type ParameterResult struct {
	Value string `cbor:"1,keyasint"`
}

// AcquisitionParams are the exposure settings shared by the acquisition calls.
type AcquisitionParams struct {
	DarkMode      DarkMode `cbor:"1,keyasint,omitempty"`
	IntegrationMs float64  `cbor:"2,keyasint"`
	Averaging     int      `cbor:"3,keyasint,omitempty"`
}

// AutoIntegrationParams asks for settings reaching a target saturation.
type AutoIntegrationParams struct {
	Saturation float64 `cbor:"1,keyasint"`
}

// IntegrationResult carries integration settings chosen or clamped by the device.
type IntegrationResult struct {
	IntegrationMs float64 `cbor:"1,keyasint"`
	Averaging     int     `cbor:"2,keyasint"`
}

// ValueResult carries a single floating point value.
type ValueResult struct {
	Value float64 `cbor:"1,keyasint"`
}

// ValuesResult carries an array such as a spectrum.
type ValuesResult struct {
	Values []float64 `cbor:"1,keyasint"`
}

// LampCalibrationParams calibrates against a standard lamp.
type LampCalibrationParams struct {
	DarkMode        DarkMode  `cbor:"1,keyasint"`
	IntegrationMs   float64   `cbor:"2,keyasint"`
	Averaging       int       `cbor:"3,keyasint"`
	LampSpectrum    []float64 `cbor:"4,keyasint"`
	LampWavelengths []float64 `cbor:"5,keyasint"`
}

// CalibrationResult is a calibration profile loaded on the bridge host.
type CalibrationResult struct {
	Serial       string    `cbor:"1,keyasint,omitempty"`
	UsageMode    UsageMode `cbor:"2,keyasint,omitempty"`
	Wavelengths  []float64 `cbor:"3,keyasint"`
	LampSpectrum []float64 `cbor:"4,keyasint"`
}

// ZoomParams sets the overall spectrum scaling factor.
type ZoomParams struct {
	Factor float64 `cbor:"1,keyasint"`
}

// MeasureParams runs one full acquisition cycle.
type MeasureParams struct {
	IntegrationMs float64  `cbor:"1,keyasint"`
	Averaging     int      `cbor:"2,keyasint"`
	DarkMode      DarkMode `cbor:"3,keyasint,omitempty"`
	Aux           bool     `cbor:"4,keyasint,omitempty"`
	Smoothing     int      `cbor:"5,keyasint,omitempty"`
}

// MetricParams selects a derived quantity.
type MetricParams struct {
	Metric Metric `cbor:"1,keyasint"`
}

// MetricResult carries a derived quantity. Values is set for array metrics.
type MetricResult struct {
	Value  float64   `cbor:"1,keyasint,omitempty"`
	Values []float64 `cbor:"2,keyasint,omitempty"`
}

// MessageResult carries diagnostic text.
type MessageResult struct {
	Message string `cbor:"1,keyasint"`
}

// ShutterParams opens or closes the shutter.
type ShutterParams struct {
	Open bool `cbor:"1,keyasint"`
}

// MeasureResult is the outcome of one full acquisition cycle.
type MeasureResult struct {
	Wavelengths   []float64 `cbor:"1,keyasint"`
	Spectrum      []float64 `cbor:"2,keyasint"`
	IntegrationMs float64   `cbor:"3,keyasint"`
	Averaging     int       `cbor:"4,keyasint"`
	Saturation    float64   `cbor:"5,keyasint"`
	DurationMs    float64   `cbor:"6,keyasint,omitempty"`
}
