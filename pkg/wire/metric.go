package wire

import (
	"fmt"
	"strconv"
)

// Metric identifies a quantity derived from the most recent measurement.
// The numeric values are the library's test data item numbers.
type Metric uint16

const (
	MetricTotalEnergy         Metric = 0
	MetricLuminousFlux        Metric = 1
	MetricTristimulusX        Metric = 2
	MetricTristimulusY        Metric = 3
	MetricTristimulusZ        Metric = 4
	MetricChromaticityX       Metric = 5
	MetricChromaticityY       Metric = 6
	MetricCIE1960U            Metric = 7
	MetricCIE1960V            Metric = 8
	MetricCIE1976UPrime       Metric = 9
	MetricCIE1976VPrime       Metric = 10
	MetricCCT                 Metric = 11
	MetricDuv                 Metric = 12
	MetricPeakWavelength      Metric = 13
	MetricFWHM                Metric = 14
	MetricPeakEnergy          Metric = 15
	MetricPeakPixelValue      Metric = 16
	MetricPixelPeakWavelength Metric = 17
	MetricPixelPeakEnergy     Metric = 18
	MetricDominantExists      Metric = 19
	MetricDominantWavelength  Metric = 20
	MetricPurity              Metric = 21
	MetricRa                  Metric = 31

	// MetricR1 through MetricR15 are consecutive (32..46).
	MetricR1  Metric = 32
	MetricR15 Metric = 46

	MetricWavelengths Metric = 801
	MetricResponse    Metric = 802

	MetricIntegrationTime Metric = 901
	MetricAveraging       Metric = 902
	MetricSaturation      Metric = 903
	MetricDuration        Metric = 904
	MetricDarkMode        Metric = 905
)

var metricNames = map[Metric]string{
	MetricTotalEnergy:         "total_energy",
	MetricLuminousFlux:        "luminous_flux",
	MetricTristimulusX:        "X",
	MetricTristimulusY:        "Y",
	MetricTristimulusZ:        "Z",
	MetricChromaticityX:       "cie_x",
	MetricChromaticityY:       "cie_y",
	MetricCIE1960U:            "cie_u",
	MetricCIE1960V:            "cie_v",
	MetricCIE1976UPrime:       "cie_u_prime",
	MetricCIE1976VPrime:       "cie_v_prime",
	MetricCCT:                 "cct",
	MetricDuv:                 "duv",
	MetricPeakWavelength:      "peak_wavelength",
	MetricFWHM:                "fwhm",
	MetricPeakEnergy:          "peak_energy",
	MetricPeakPixelValue:      "peak_pixel_value",
	MetricPixelPeakWavelength: "pixel_peak_wavelength",
	MetricPixelPeakEnergy:     "pixel_peak_energy",
	MetricDominantExists:      "dominant_exists",
	MetricDominantWavelength:  "dominant_wavelength",
	MetricPurity:              "purity",
	MetricRa:                  "ra",
	MetricWavelengths:         "wavelengths",
	MetricResponse:            "response",
	MetricIntegrationTime:     "integration_time",
	MetricAveraging:           "averaging",
	MetricSaturation:          "saturation",
	MetricDuration:            "duration",
	MetricDarkMode:            "dark_mode",
}

// String returns the metric name.
func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	if m >= MetricR1 && m <= MetricR15 {
		return fmt.Sprintf("r%d", m-MetricR1+1)
	}
	return fmt.Sprintf("metric(%d)", uint16(m))
}

// IsValid returns true if the metric is one the library defines.
func (m Metric) IsValid() bool {
	if _, ok := metricNames[m]; ok {
		return true
	}
	return m >= MetricR1 && m <= MetricR15
}

// IsArray returns true if the metric is returned as an array rather than a
// scalar.
func (m Metric) IsArray() bool {
	return m == MetricWavelengths || m == MetricResponse
}

// ParseMetric accepts a metric name ("peak_wavelength", "r9") or its number.
func ParseMetric(s string) (Metric, error) {
	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		m := Metric(n)
		if !m.IsValid() {
			return 0, fmt.Errorf("unknown metric %d", n)
		}
		return m, nil
	}
	for m, name := range metricNames {
		if name == s {
			return m, nil
		}
	}
	for m := MetricR1; m <= MetricR15; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}
