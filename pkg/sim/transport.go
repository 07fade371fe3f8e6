package sim

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Transport is a simulated spectrometer library.
type Transport struct {
	config  Config
	devices []*simDevice

	mu     sync.Mutex
	opened int
}

// New creates a simulated library with the configured devices.
func New(config Config) *Transport {
	t := &Transport{config: config}
	for i, spec := range config.Devices {
		t.devices = append(t.devices, newSimDevice(spec, config.Seed+uint64(i)))
	}
	return t
}

// Multiplexed reports that simulated devices can be used concurrently.
func (t *Transport) Multiplexed() bool { return true }

// Specs returns the specs of the simulated devices.
func (t *Transport) Specs() []DeviceSpec {
	specs := make([]DeviceSpec, len(t.devices))
	for i, d := range t.devices {
		specs[i] = d.spec
	}
	return specs
}

func fail(st wire.Status, format string, args ...any) error {
	return device.NewStatusError(st, format, args...)
}

// use locks device index and checks that it is open and, if required, active.
func (t *Transport) use(index int, needActive bool) (*simDevice, func(), error) {
	if index < 0 || index >= len(t.devices) {
		return nil, nil, fail(wire.StatusIndexOutOfRange, "no device %d", index)
	}
	d := t.devices[index]
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, nil, fail(wire.StatusIndexOutOfRange, "device %d not open", index)
	}
	if needActive && !d.active {
		d.mu.Unlock()
		return nil, nil, fail(wire.StatusInvalidActivation, "device %d not activated", index)
	}
	return d, d.mu.Unlock, nil
}

// record keeps err's message for DeviceError and returns err.
func (d *simDevice) record(err error) error {
	if err != nil {
		d.lastErr = err.Error()
	}
	return err
}

// Init opens all devices.
func (t *Transport) Init(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.devices)
	var err error
	if at := t.config.FailInitAt; at > 0 && at <= n {
		n = at - 1
		err = fail(wire.StatusUnknown, "device %d did not respond", n)
	}
	for i := 0; i < n; i++ {
		d := t.devices[i]
		d.mu.Lock()
		if !d.open {
			d.open = true
			d.reset()
		}
		d.mu.Unlock()
	}
	t.opened = n
	return n, err
}

// Done closes one device.
func (t *Transport) Done(ctx context.Context, index int) error {
	d, unlock, err := t.use(index, false)
	if err != nil {
		return err
	}
	defer unlock()
	d.open = false
	d.reset()
	return nil
}

// DoneAll closes every device.
func (t *Transport) DoneAll(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.devices {
		d.mu.Lock()
		d.open = false
		d.reset()
		d.mu.Unlock()
	}
	t.opened = 0
	return nil
}

// Activate checks a license file against the device.
func (t *Transport) Activate(ctx context.Context, index int, licensePath string) error {
	d, unlock, err := t.use(index, false)
	if err != nil {
		return err
	}
	defer unlock()

	lic, err := ReadLicense(licensePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return d.record(fail(wire.StatusFileNotFound, "license %s not found", licensePath))
		}
		return d.record(fail(wire.StatusInvalidActivation, "%v", err))
	}
	if lic.DeviceType != "" && lic.DeviceType != d.spec.DeviceType {
		return d.record(fail(wire.StatusInvalidDeviceType, "license for %s, device is %s",
			lic.DeviceType, d.spec.DeviceType))
	}
	if lic.Serial != "" && lic.Serial != d.spec.Serial {
		return d.record(fail(wire.StatusInvalidDeviceID, "license for %s, device is %s",
			lic.Serial, d.spec.Serial))
	}
	d.active = true
	return nil
}

// SerialNumber returns the device serial number.
func (t *Transport) SerialNumber(ctx context.Context, index int) (string, error) {
	d, unlock, err := t.use(index, false)
	if err != nil {
		return "", err
	}
	defer unlock()
	return d.spec.Serial, nil
}

// Parameter returns a device parameter.
func (t *Transport) Parameter(ctx context.Context, index int, kind wire.ParameterKind) (string, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return "", err
	}
	defer unlock()

	switch kind {
	case wire.ParameterModel:
		return d.spec.Model, nil
	case wire.ParameterPixelCount:
		return strconv.Itoa(d.spec.Pixels), nil
	case wire.ParameterStartWavelength:
		return strconv.FormatFloat(d.spec.StartWavelength, 'f', 3, 64), nil
	case wire.ParameterEndWavelength:
		return strconv.FormatFloat(d.spec.EndWavelength, 'f', 3, 64), nil
	}
	return "", d.record(fail(wire.StatusInvalidParameter, "unknown parameter %d", kind))
}

func (d *simDevice) checkExposure(intMs float64, avg int) error {
	if intMs < d.spec.MinIntegrationMs || intMs > d.spec.MaxIntegrationMs {
		return d.record(fail(wire.StatusInvalidIntegrationTime, "integration time %gms outside [%g, %g]",
			intMs, d.spec.MinIntegrationMs, d.spec.MaxIntegrationMs))
	}
	if avg < 1 || avg > d.spec.MaxAveraging {
		return d.record(fail(wire.StatusInvalidAveragingCount, "averaging %d outside [1, %d]",
			avg, d.spec.MaxAveraging))
	}
	return nil
}

// AutoDark acquires dark spectra up to maxIntegrationMs.
func (t *Transport) AutoDark(ctx context.Context, index int, maxIntegrationMs float64) error {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := d.checkExposure(maxIntegrationMs, 1); err != nil {
		return err
	}
	if err := wait(ctx, t.config.SleepScale, maxIntegrationMs, 2); err != nil {
		return err
	}
	d.autoDark = maxIntegrationMs
	return nil
}

// OnceDark acquires one dark spectrum.
func (t *Transport) OnceDark(ctx context.Context, index int, integrationMs float64, averaging int) error {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := d.checkExposure(integrationMs, averaging); err != nil {
		return err
	}
	if err := wait(ctx, t.config.SleepScale, integrationMs, averaging); err != nil {
		return err
	}
	d.onceDark = integrationMs
	return nil
}

// AutoIntegration finds settings that reach the target saturation.
func (t *Transport) AutoIntegration(ctx context.Context, index int, saturation float64) (float64, int, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	if !(saturation > 0 && saturation <= 1) {
		return 0, 0, d.record(fail(wire.StatusInvalidSaturation, "saturation %g outside (0, 1]", saturation))
	}

	peak := 0.0
	for _, v := range d.lightShape {
		peak = math.Max(peak, v)
	}
	perMs := d.spec.Responsivity * peak
	target := saturation*FullScale - d.spec.DarkLevel
	if !d.shutter || perMs <= 0 || target <= 0 {
		return 0, 0, d.record(fail(wire.StatusAutoIntegrationFailed, "no signal to adjust on"))
	}

	ms := target / perMs
	if ms > d.maxMs {
		return 0, 0, d.record(fail(wire.StatusAutoIntegrationFailed,
			"target needs %.1fms, limit is %gms", ms, d.maxMs))
	}
	ms = math.Max(ms, d.spec.MinIntegrationMs)
	ms = math.Round(ms*10) / 10
	avg := int(math.Ceil(200 / ms))
	avg = min(max(avg, 1), d.maxAvg)

	if err := wait(ctx, t.config.SleepScale, ms, 5); err != nil {
		return 0, 0, err
	}
	d.intMs, d.avg = ms, avg
	return ms, avg, nil
}

// SetIntegration applies manual integration settings.
func (t *Transport) SetIntegration(ctx context.Context, index int, integrationMs float64, averaging int) error {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := d.checkExposure(integrationMs, averaging); err != nil {
		return err
	}
	d.intMs, d.avg = integrationMs, averaging
	return nil
}

// Saturation returns the raw peak as a fraction of full scale.
func (t *Transport) Saturation(ctx context.Context, index int, integrationMs float64, averaging int) (float64, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := d.checkExposure(integrationMs, averaging); err != nil {
		return 0, err
	}
	if err := wait(ctx, t.config.SleepScale, integrationMs, averaging); err != nil {
		return 0, err
	}
	return saturationOf(d.expose(integrationMs, averaging, true)), nil
}

// SetAutoMaxLimits bounds AutoIntegration, clamped to the model's limits.
func (t *Transport) SetAutoMaxLimits(ctx context.Context, index int, maxIntegrationMs float64, maxAveraging int) (float64, int, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	if maxIntegrationMs < d.spec.MinIntegrationMs {
		return 0, 0, d.record(fail(wire.StatusInvalidIntegrationTime, "limit %gms below minimum %gms",
			maxIntegrationMs, d.spec.MinIntegrationMs))
	}
	if maxAveraging < 1 {
		return 0, 0, d.record(fail(wire.StatusInvalidAveragingCount, "averaging limit %d", maxAveraging))
	}
	d.maxMs = math.Min(maxIntegrationMs, d.spec.MaxIntegrationMs)
	d.maxAvg = min(maxAveraging, d.spec.MaxAveraging)
	return d.maxMs, d.maxAvg, nil
}

// Spectrum acquires one spectrum in counts.
func (t *Transport) Spectrum(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int) ([]float64, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := d.checkExposure(integrationMs, averaging); err != nil {
		return nil, err
	}
	if err := wait(ctx, t.config.SleepScale, integrationMs, averaging); err != nil {
		return nil, err
	}
	_, counts, st := d.acquire(mode, integrationMs, averaging)
	if st != wire.StatusSuccess {
		return nil, d.record(fail(st, "no %s dark spectrum for %gms", mode, integrationMs))
	}
	return counts, nil
}

// CalibrateWithLamp measures the current source as a standard lamp of the
// given radiance and derives a per-pixel radiance gain.
func (t *Transport) CalibrateWithLamp(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int,
	lampSpectrum, lampWavelengths []float64) error {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return err
	}
	defer unlock()

	if len(lampSpectrum) == 0 || len(lampSpectrum) != len(lampWavelengths) {
		return d.record(fail(wire.StatusInvalidArrayLength, "%d lamp values for %d wavelengths",
			len(lampSpectrum), len(lampWavelengths)))
	}
	if !mode.Subtracts() {
		return d.record(fail(wire.StatusInvalidParameter, "lamp calibration needs dark subtraction"))
	}
	if err := d.checkExposure(integrationMs, averaging); err != nil {
		return err
	}
	radiance, err := resample(lampWavelengths, lampSpectrum, d.wavelengths)
	if err != nil {
		return d.record(fail(wire.StatusInvalidOpticalParameter, "%v", err))
	}
	if err := wait(ctx, t.config.SleepScale, integrationMs, averaging); err != nil {
		return err
	}
	_, counts, st := d.acquire(mode, integrationMs, averaging)
	if st != wire.StatusSuccess {
		return d.record(fail(st, "no %s dark spectrum for %gms", mode, integrationMs))
	}

	gain := make([]float64, len(counts))
	for i, c := range counts {
		if perMs := c / integrationMs; perMs > 0 {
			gain[i] = radiance[i] / perMs
		}
	}
	profile, err := calibration.NewProfile(d.spec.Serial, wire.UsageModeRadiance, d.wavelengths, radiance)
	if err != nil {
		return d.record(fail(wire.StatusInvalidOpticalParameter, "%v", err))
	}
	d.profile, d.gain = profile, gain
	return nil
}

// resample interpolates ys given at xs onto at.
func resample(xs, ys, at []float64) ([]float64, error) {
	if len(xs) == 1 {
		out := make([]float64, len(at))
		for i := range out {
			out[i] = ys[0]
		}
		return out, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	out := make([]float64, len(at))
	for i, x := range at {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// ReadCalibration loads a calibration file. The gain is derived from the
// device's noise-free response to its source.
func (t *Transport) ReadCalibration(ctx context.Context, index int, path string) (*calibration.Profile, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := calibration.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, d.record(fail(wire.StatusFileNotFound, "calibration %s not found", path))
		}
		return nil, d.record(fail(wire.StatusInvalidParameter, "calibration %s: %v", path, err))
	}
	if p.Serial != "" && p.Serial != d.spec.Serial {
		return nil, d.record(fail(wire.StatusInvalidDeviceID, "calibration for %s, device is %s",
			p.Serial, d.spec.Serial))
	}
	radiance, err := resample(p.Wavelengths, p.StandardLampSpectrum, d.wavelengths)
	if err != nil {
		return nil, d.record(fail(wire.StatusInvalidOpticalParameter, "%v", err))
	}
	perMs := d.lightPerMs()
	gain := make([]float64, len(radiance))
	for i := range gain {
		if perMs[i] > 0 {
			gain[i] = radiance[i] / perMs[i]
		}
	}
	d.profile, d.gain = p, gain
	return p, nil
}

// SaveCalibration writes the current calibration profile.
func (t *Transport) SaveCalibration(ctx context.Context, index int, usage wire.UsageMode, path string) (string, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return "", err
	}
	defer unlock()

	if !usage.IsValid() {
		return "", d.record(fail(wire.StatusInvalidParameter, "unknown usage mode %d", usage))
	}
	if d.profile == nil {
		return "", d.record(fail(wire.StatusInvalidParameter, "device has no calibration"))
	}
	p := *d.profile
	p.Serial = d.spec.Serial
	p.UsageMode = usage

	target := calibration.ResolvePath(path, d.spec.Serial)
	if err := calibration.Save(target, &p); err != nil {
		return "", d.record(fail(wire.StatusFileNotFound, "%v", err))
	}
	return target, nil
}

// SetZoomFactor sets the spectrum scaling factor.
func (t *Transport) SetZoomFactor(ctx context.Context, index int, factor float64) error {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return err
	}
	defer unlock()

	if !(factor > 0) || math.IsInf(factor, 0) {
		return d.record(fail(wire.StatusInvalidOpticalParameter, "zoom factor %g", factor))
	}
	d.zoom = factor
	return nil
}

// ZoomFactor returns the spectrum scaling factor.
func (t *Transport) ZoomFactor(ctx context.Context, index int) (float64, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return d.zoom, nil
}

// Measure runs one full acquisition cycle. The spectrum is in radiance
// units when the device is calibrated and in counts otherwise.
func (t *Transport) Measure(ctx context.Context, index int, req device.MeasurementRequest) (*device.Measurement, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := d.checkExposure(req.IntegrationMs, req.Averaging); err != nil {
		return nil, err
	}
	if req.SmoothingWindow < 0 {
		return nil, d.record(fail(wire.StatusInvalidParameter, "smoothing window %d", req.SmoothingWindow))
	}
	if req.AuxCompensation {
		return nil, d.record(fail(wire.StatusInvalidParameter, "aux compensation requested but no aux factors loaded"))
	}

	start := time.Now()
	if err := wait(ctx, t.config.SleepScale, req.IntegrationMs, req.Averaging); err != nil {
		return nil, err
	}
	raw, counts, st := d.acquire(req.DarkMode, req.IntegrationMs, req.Averaging)
	if st != wire.StatusSuccess {
		return nil, d.record(fail(st, "no %s dark spectrum for %gms", req.DarkMode, req.IntegrationMs))
	}

	spectrum := smooth(counts, req.SmoothingWindow)
	if d.gain != nil {
		for i := range spectrum {
			spectrum[i] = spectrum[i] / req.IntegrationMs * d.gain[i]
		}
	}
	exposure := time.Duration(req.IntegrationMs * float64(req.Averaging) * float64(time.Millisecond))

	d.intMs, d.avg = req.IntegrationMs, req.Averaging
	d.last = &measurement{
		wavelengths: d.wavelengths,
		counts:      counts,
		raw:         raw,
		spectrum:    spectrum,
		intMs:       req.IntegrationMs,
		avg:         req.Averaging,
		darkMode:    req.DarkMode,
		saturation:  saturationOf(raw),
		duration:    max(time.Since(start), exposure),
	}

	return &device.Measurement{
		Wavelengths:   append([]float64(nil), d.wavelengths...),
		Spectrum:      append([]float64(nil), spectrum...),
		IntegrationMs: req.IntegrationMs,
		Averaging:     req.Averaging,
		Saturation:    d.last.saturation,
		Duration:      d.last.duration,
	}, nil
}

// smooth applies a centered moving average of the given half width.
func smooth(in []float64, window int) []float64 {
	out := make([]float64, len(in))
	if window <= 0 {
		copy(out, in)
		return out
	}
	for i := range in {
		lo, hi := max(i-window, 0), min(i+window, len(in)-1)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += in[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// MeasureData returns a quantity derived from the last measurement.
func (t *Transport) MeasureData(ctx context.Context, index int, metric wire.Metric) (float64, []float64, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return 0, nil, err
	}
	defer unlock()

	if d.last == nil {
		return 0, nil, d.record(fail(wire.StatusInvalidParameter, "no measurement"))
	}
	v, vs, err := d.last.derive(metric)
	return v, vs, d.record(err)
}

// DeviceError returns the last failure recorded by the device.
func (t *Transport) DeviceError(ctx context.Context, index int) (string, error) {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return "", err
	}
	defer unlock()

	if d.lastErr == "" {
		return "OK", nil
	}
	return d.lastErr, nil
}

// Shutter opens or closes the shutter.
func (t *Transport) Shutter(ctx context.Context, index int, open bool) error {
	d, unlock, err := t.use(index, true)
	if err != nil {
		return err
	}
	defer unlock()
	d.shutter = open
	return nil
}

// String describes the simulated library.
func (t *Transport) String() string {
	return fmt.Sprintf("sim(%d devices)", len(t.devices))
}

var (
	_ device.Transport   = (*Transport)(nil)
	_ device.Multiplexer = (*Transport)(nil)
)

// Opened returns the number of devices opened by the last Init.
func (t *Transport) Opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}
