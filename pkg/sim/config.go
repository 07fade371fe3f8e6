package sim

import (
	"fmt"
	"math"
)

// FullScale is the detector's saturation level in counts.
const FullScale = 65535

// Source gives the relative spectral power (0..1) of the light falling on
// a simulated detector at a wavelength in nm.
type Source func(wavelengthNm float64) float64

// Planck returns a blackbody source at the given temperature, normalized
// to 1 at its peak within [fromNm, toNm].
func Planck(kelvin, fromNm, toNm float64) Source {
	const (
		h = 6.62607015e-34
		c = 2.99792458e8
		k = 1.380649e-23
	)
	radiance := func(nm float64) float64 {
		l := nm * 1e-9
		return 1 / (math.Pow(l, 5) * (math.Exp(h*c/(l*k*kelvin)) - 1))
	}
	peakNm := 2.897771955e-3 / kelvin * 1e9
	peakNm = math.Min(math.Max(peakNm, fromNm), toNm)
	norm := radiance(peakNm)
	return func(nm float64) float64 {
		return radiance(nm) / norm
	}
}

// Gaussian returns a narrow-band source such as an LED.
func Gaussian(centerNm, fwhmNm float64) Source {
	sigma := fwhmNm / (2 * math.Sqrt(2*math.Ln2))
	return func(nm float64) float64 {
		d := (nm - centerNm) / sigma
		return math.Exp(-d * d / 2)
	}
}

// DeviceSpec describes one simulated spectrometer.
type DeviceSpec struct {
	Serial     string
	Model      string
	DeviceType string

	Pixels          int
	StartWavelength float64
	EndWavelength   float64

	MinIntegrationMs float64
	MaxIntegrationMs float64
	MaxAveraging     int

	// DarkLevel is the mean dark signal in counts; Noise is the standard
	// deviation of a single read in counts.
	DarkLevel float64
	Noise     float64

	// Responsivity is the signal in counts per ms at the source peak.
	Responsivity float64

	// Source is the light seen by the detector while the shutter is open.
	Source Source
}

// Config configures a simulated library.
type Config struct {
	Devices []DeviceSpec

	// SleepScale is the fraction of each exposure actually slept.
	SleepScale float64

	// Seed makes the detector noise reproducible.
	Seed uint64

	// FailInitAt makes Init fail at the device with this 1-based position,
	// leaving the devices before it open. Zero disables the failure.
	FailInitAt int
}

// DefaultDeviceSpec returns a spec for the n-th default device (from 1).
func DefaultDeviceSpec(n int) DeviceSpec {
	return DeviceSpec{
		Serial:           fmt.Sprintf("SIM-%04d", n),
		Model:            "SPVIS-VIS",
		DeviceType:       "LC-SPV1",
		Pixels:           2048,
		StartWavelength:  340,
		EndWavelength:    1020,
		MinIntegrationMs: 0.1,
		MaxIntegrationMs: 65000,
		MaxAveraging:     100,
		DarkLevel:        1500,
		Noise:            8,
		Responsivity:     400,
		Source:           Planck(2856, 340, 1020),
	}
}

// DefaultConfig returns a Config with two default devices.
func DefaultConfig() Config {
	return Config{
		Devices:    []DeviceSpec{DefaultDeviceSpec(1), DefaultDeviceSpec(2)},
		SleepScale: 1,
		Seed:       1,
	}
}

func (s *DeviceSpec) wavelengths() []float64 {
	wl := make([]float64, s.Pixels)
	if s.Pixels == 1 {
		wl[0] = s.StartWavelength
		return wl
	}
	step := (s.EndWavelength - s.StartWavelength) / float64(s.Pixels-1)
	for i := range wl {
		wl[i] = s.StartWavelength + float64(i)*step
	}
	return wl
}
