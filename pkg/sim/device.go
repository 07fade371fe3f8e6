package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/wire"
)

// simDevice is the state of one simulated spectrometer.
type simDevice struct {
	spec        DeviceSpec
	wavelengths []float64
	darkPattern []float64
	lightShape  []float64

	mu       sync.Mutex
	rng      *rand.Rand
	open     bool
	active   bool
	shutter  bool
	autoDark float64 // largest integration time covered by AutoDark
	onceDark float64 // integration time of the OnceDark spectrum
	intMs    float64
	avg      int
	maxMs    float64
	maxAvg   int
	zoom     float64
	profile  *calibration.Profile
	gain     []float64
	last     *measurement
	lastErr  string
}

type measurement struct {
	wavelengths []float64
	counts      []float64 // dark-handled counts before calibration
	raw         []float64 // raw counts including dark
	spectrum    []float64 // reported spectrum
	intMs       float64
	avg         int
	darkMode    wire.DarkMode
	saturation  float64
	duration    time.Duration
}

func newSimDevice(spec DeviceSpec, seed uint64) *simDevice {
	d := &simDevice{
		spec:        spec,
		wavelengths: spec.wavelengths(),
		rng:         rand.New(rand.NewPCG(seed, uint64(len(spec.Serial)))),
	}
	d.darkPattern = make([]float64, spec.Pixels)
	d.lightShape = make([]float64, spec.Pixels)
	for i, wl := range d.wavelengths {
		d.darkPattern[i] = spec.DarkLevel + 0.02*spec.DarkLevel*math.Sin(float64(i)/17)
		if spec.Source != nil {
			d.lightShape[i] = math.Max(spec.Source(wl), 0)
		}
	}
	d.reset()
	return d
}

// reset returns the device to its power-on state.
func (d *simDevice) reset() {
	d.active = false
	d.shutter = true
	d.autoDark = 0
	d.onceDark = 0
	d.intMs = 10
	d.avg = 1
	d.maxMs = d.spec.MaxIntegrationMs
	d.maxAvg = d.spec.MaxAveraging
	d.zoom = 1
	d.profile = nil
	d.gain = nil
	d.last = nil
	d.lastErr = ""
}

// expose returns the raw counts of one acquisition, clipped at FullScale.
func (d *simDevice) expose(intMs float64, avg int, light bool) []float64 {
	raw := make([]float64, d.spec.Pixels)
	sigma := d.spec.Noise / math.Sqrt(float64(max(avg, 1)))
	darkScale := 1 + intMs/10000
	for i := range raw {
		v := d.darkPattern[i] * darkScale
		if light && d.shutter {
			v += d.spec.Responsivity * intMs * d.lightShape[i]
		}
		v += d.rng.NormFloat64() * sigma
		raw[i] = math.Min(math.Max(v, 0), FullScale)
	}
	return raw
}

// dark returns the dark spectrum for mode, or an error status if none has
// been acquired for the integration time.
func (d *simDevice) dark(mode wire.DarkMode, intMs float64, avg int) ([]float64, wire.Status) {
	switch mode {
	case wire.DarkModeRaw:
		return nil, wire.StatusSuccess
	case wire.DarkModeAuto:
		if d.autoDark < intMs {
			return nil, wire.StatusInvalidParameter
		}
	case wire.DarkModeSingle:
		if d.onceDark != intMs {
			return nil, wire.StatusInvalidParameter
		}
	default:
		return nil, wire.StatusInvalidParameter
	}
	return d.expose(intMs, avg, false), wire.StatusSuccess
}

// acquire runs one exposure and applies dark handling and zoom.
func (d *simDevice) acquire(mode wire.DarkMode, intMs float64, avg int) (raw, counts []float64, st wire.Status) {
	dark, st := d.dark(mode, intMs, avg)
	if st != wire.StatusSuccess {
		return nil, nil, st
	}
	raw = d.expose(intMs, avg, true)
	counts = make([]float64, len(raw))
	copy(counts, raw)
	if dark != nil {
		floats.Sub(counts, dark)
	}
	floats.Scale(d.zoom, counts)
	return raw, counts, wire.StatusSuccess
}

// lightPerMs returns the noise-free signal in counts per ms at each pixel.
func (d *simDevice) lightPerMs() []float64 {
	out := make([]float64, len(d.lightShape))
	copy(out, d.lightShape)
	floats.Scale(d.spec.Responsivity*d.zoom, out)
	return out
}

func saturationOf(raw []float64) float64 {
	if len(raw) == 0 {
		return 0
	}
	return floats.Max(raw) / FullScale
}

// wait simulates exposure time.
func wait(ctx context.Context, scale, intMs float64, avg int) error {
	d := time.Duration(scale * intMs * float64(max(avg, 1)) * float64(time.Millisecond))
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
