package sim

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/spvis/spvis-go/pkg/wire"
)

// derive computes a metric from a measurement. Colorimetric metrics are
// not simulated.
func (m *measurement) derive(metric wire.Metric) (float64, []float64, error) {
	switch metric {
	case wire.MetricTotalEnergy:
		if len(m.spectrum) < 2 {
			return 0, nil, nil
		}
		return integrate.Trapezoidal(m.wavelengths, m.spectrum), nil, nil
	case wire.MetricPeakWavelength:
		return m.wavelengths[floats.MaxIdx(m.spectrum)], nil, nil
	case wire.MetricFWHM:
		return fwhm(m.wavelengths, m.spectrum), nil, nil
	case wire.MetricPeakEnergy:
		return floats.Max(m.spectrum), nil, nil
	case wire.MetricPeakPixelValue:
		return floats.Max(m.raw), nil, nil
	case wire.MetricPixelPeakWavelength:
		return m.wavelengths[floats.MaxIdx(m.raw)], nil, nil
	case wire.MetricPixelPeakEnergy:
		return m.spectrum[floats.MaxIdx(m.raw)], nil, nil
	case wire.MetricWavelengths:
		return 0, append([]float64(nil), m.wavelengths...), nil
	case wire.MetricResponse:
		return 0, append([]float64(nil), m.spectrum...), nil
	case wire.MetricIntegrationTime:
		return m.intMs, nil, nil
	case wire.MetricAveraging:
		return float64(m.avg), nil, nil
	case wire.MetricSaturation:
		return m.saturation, nil, nil
	case wire.MetricDuration:
		return float64(m.duration.Microseconds()) / 1000, nil, nil
	case wire.MetricDarkMode:
		return float64(m.darkMode), nil, nil
	}
	if metric.IsValid() {
		return 0, nil, fail(wire.StatusInvalidParameter, "%s not available", metric)
	}
	return 0, nil, fail(wire.StatusInvalidParameter, "unknown metric %d", metric)
}

// fwhm returns the full width at half maximum of the main peak, with
// linear interpolation between pixels.
func fwhm(wl, s []float64) float64 {
	if len(s) < 3 {
		return 0
	}
	p := floats.MaxIdx(s)
	half := s[p] / 2
	if half <= 0 {
		return 0
	}

	left := wl[0]
	for i := p; i > 0; i-- {
		if s[i-1] < half {
			left = cross(wl[i-1], wl[i], s[i-1], s[i], half)
			break
		}
	}
	right := wl[len(wl)-1]
	for i := p; i < len(s)-1; i++ {
		if s[i+1] < half {
			right = cross(wl[i], wl[i+1], s[i], s[i+1], half)
			break
		}
	}
	return right - left
}

func cross(x0, x1, y0, y1, y float64) float64 {
	if y1 == y0 {
		return x0
	}
	return x0 + (y-y0)*(x1-x0)/(y1-y0)
}
