package sim

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SleepScale = 0
	return cfg
}

func statusOf(t *testing.T, err error) wire.Status {
	t.Helper()
	require.Error(t, err)
	st, ok := device.StatusOf(err)
	require.True(t, ok, "not a status error: %v", err)
	return st
}

// openActive opens all devices and activates device 0.
func openActive(t *testing.T, tr *Transport) {
	t.Helper()
	ctx := context.Background()
	_, err := tr.Init(ctx)
	require.NoError(t, err)

	lic := filepath.Join(t.TempDir(), "license.lic")
	require.NoError(t, WriteLicense(lic, tr.Specs()[0]))
	require.NoError(t, tr.Activate(ctx, 0, lic))
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("AllDevices", func(t *testing.T) {
		tr := New(testConfig())
		n, err := tr.Init(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, tr.Opened())
		assert.True(t, tr.Multiplexed())
	})

	t.Run("Partial", func(t *testing.T) {
		cfg := testConfig()
		cfg.FailInitAt = 2
		tr := New(cfg)
		n, err := tr.Init(ctx)
		assert.Equal(t, 1, n)
		assert.Equal(t, wire.StatusUnknown, statusOf(t, err))

		_, err = tr.SerialNumber(ctx, 1)
		assert.Equal(t, wire.StatusIndexOutOfRange, statusOf(t, err))
	})

	t.Run("DoneClosesDevice", func(t *testing.T) {
		tr := New(testConfig())
		_, err := tr.Init(ctx)
		require.NoError(t, err)
		require.NoError(t, tr.Done(ctx, 0))
		_, err = tr.SerialNumber(ctx, 0)
		assert.Equal(t, wire.StatusIndexOutOfRange, statusOf(t, err))

		require.NoError(t, tr.DoneAll(ctx))
		assert.Equal(t, 0, tr.Opened())
	})
}

func TestActivate(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	_, err := tr.Init(ctx)
	require.NoError(t, err)
	dir := t.TempDir()
	spec := tr.Specs()[0]

	err = tr.Activate(ctx, 0, filepath.Join(dir, "missing.lic"))
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))

	wrongSerial := spec
	wrongSerial.Serial = "OTHER"
	path := filepath.Join(dir, "serial.lic")
	require.NoError(t, WriteLicense(path, wrongSerial))
	assert.Equal(t, wire.StatusInvalidDeviceID, statusOf(t, tr.Activate(ctx, 0, path)))

	wrongType := spec
	wrongType.DeviceType = "LC-OTHER"
	path = filepath.Join(dir, "type.lic")
	require.NoError(t, WriteLicense(path, wrongType))
	assert.Equal(t, wire.StatusInvalidDeviceType, statusOf(t, tr.Activate(ctx, 0, path)))

	_, err = tr.Parameter(ctx, 0, wire.ParameterPixelCount)
	assert.Equal(t, wire.StatusInvalidActivation, statusOf(t, err))

	path = filepath.Join(dir, "good.lic")
	require.NoError(t, WriteLicense(path, spec))
	require.NoError(t, tr.Activate(ctx, 0, path))

	px, err := tr.Parameter(ctx, 0, wire.ParameterPixelCount)
	require.NoError(t, err)
	assert.Equal(t, "2048", px)

	msg, err := tr.DeviceError(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, msg, "LC-OTHER")
}

func TestSpectrum(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	openActive(t, tr)

	raw, err := tr.Spectrum(ctx, 0, wire.DarkModeRaw, 10, 1)
	require.NoError(t, err)
	assert.Len(t, raw, 2048)

	_, err = tr.Spectrum(ctx, 0, wire.DarkModeAuto, 10, 1)
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))

	require.NoError(t, tr.AutoDark(ctx, 0, 100))
	dark, err := tr.Spectrum(ctx, 0, wire.DarkModeAuto, 10, 1)
	require.NoError(t, err)
	assert.Less(t, floats.Min(dark), floats.Min(raw))

	_, err = tr.Spectrum(ctx, 0, wire.DarkModeSingle, 10, 1)
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))
	require.NoError(t, tr.OnceDark(ctx, 0, 10, 1))
	_, err = tr.Spectrum(ctx, 0, wire.DarkModeSingle, 10, 1)
	require.NoError(t, err)

	_, err = tr.Spectrum(ctx, 0, wire.DarkModeRaw, 70000, 1)
	assert.Equal(t, wire.StatusInvalidIntegrationTime, statusOf(t, err))
}

func TestSaturation(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	openActive(t, tr)

	sat, err := tr.Saturation(ctx, 0, 10000, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sat)

	require.NoError(t, tr.Shutter(ctx, 0, false))
	sat, err = tr.Saturation(ctx, 0, 10, 1)
	require.NoError(t, err)
	assert.Less(t, sat, 0.05)

	_, _, err = tr.AutoIntegration(ctx, 0, 0.8)
	assert.Equal(t, wire.StatusAutoIntegrationFailed, statusOf(t, err))
}

func TestAutoIntegration(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	openActive(t, tr)

	ms, avg, err := tr.AutoIntegration(ctx, 0, 0.8)
	require.NoError(t, err)
	assert.Greater(t, ms, 0.0)
	assert.GreaterOrEqual(t, avg, 1)

	sat, err := tr.Saturation(ctx, 0, ms, avg)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, sat, 0.02)

	limMs, limAvg, err := tr.SetAutoMaxLimits(ctx, 0, 1e6, 1000)
	require.NoError(t, err)
	assert.Equal(t, 65000.0, limMs)
	assert.Equal(t, 100, limAvg)

	_, _, err = tr.SetAutoMaxLimits(ctx, 0, 50, 5)
	require.NoError(t, err)
	_, _, err = tr.AutoIntegration(ctx, 0, 0.8)
	assert.Equal(t, wire.StatusAutoIntegrationFailed, statusOf(t, err))
}

func TestMeasureMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Devices[0].Source = Gaussian(550, 20)
	tr := New(cfg)
	openActive(t, tr)

	_, _, err := tr.MeasureData(ctx, 0, wire.MetricPeakWavelength)
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))

	require.NoError(t, tr.AutoDark(ctx, 0, 100))
	meas, err := tr.Measure(ctx, 0, device.MeasurementRequest{
		IntegrationMs: 75,
		Averaging:     4,
		DarkMode:      wire.DarkModeAuto,
	})
	require.NoError(t, err)
	assert.Len(t, meas.Spectrum, 2048)
	assert.Len(t, meas.Wavelengths, 2048)
	assert.InDelta(t, (1500*1.0075+30000)/FullScale, meas.Saturation, 0.02)

	peak, _, err := tr.MeasureData(ctx, 0, wire.MetricPeakWavelength)
	require.NoError(t, err)
	assert.InDelta(t, 550, peak, 1)

	width, _, err := tr.MeasureData(ctx, 0, wire.MetricFWHM)
	require.NoError(t, err)
	assert.InDelta(t, 20, width, 1)

	_, wl, err := tr.MeasureData(ctx, 0, wire.MetricWavelengths)
	require.NoError(t, err)
	assert.Equal(t, meas.Wavelengths, wl)

	avg, _, err := tr.MeasureData(ctx, 0, wire.MetricAveraging)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)

	_, _, err = tr.MeasureData(ctx, 0, wire.MetricCCT)
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))
}

func TestMeasureRejectsAuxCompensation(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	openActive(t, tr)

	_, err := tr.Measure(ctx, 0, device.MeasurementRequest{
		IntegrationMs:   20,
		Averaging:       1,
		AuxCompensation: true,
	})
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))

	msg, err := tr.DeviceError(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, msg, "aux")

	// Nothing was measured.
	_, _, err = tr.MeasureData(ctx, 0, wire.MetricPeakWavelength)
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))

	_, err = tr.Measure(ctx, 0, device.MeasurementRequest{IntegrationMs: 20, Averaging: 1})
	require.NoError(t, err)
}

func TestCalibration(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	openActive(t, tr)
	dir := t.TempDir()

	_, err := tr.SaveCalibration(ctx, 0, wire.UsageModeRadiance, dir)
	assert.Equal(t, wire.StatusInvalidParameter, statusOf(t, err))

	err = tr.CalibrateWithLamp(ctx, 0, wire.DarkModeAuto, 100, 4, []float64{2}, []float64{300, 1100})
	assert.Equal(t, wire.StatusInvalidArrayLength, statusOf(t, err))

	require.NoError(t, tr.AutoDark(ctx, 0, 200))
	require.NoError(t, tr.CalibrateWithLamp(ctx, 0, wire.DarkModeAuto, 100, 4,
		[]float64{2, 2}, []float64{300, 1100}))

	req := device.MeasurementRequest{IntegrationMs: 100, Averaging: 4, DarkMode: wire.DarkModeAuto}
	meas, err := tr.Measure(ctx, 0, req)
	require.NoError(t, err)
	assert.InDelta(t, 2, floats.Sum(meas.Spectrum)/float64(len(meas.Spectrum)), 0.05)

	path, err := tr.SaveCalibration(ctx, 0, wire.UsageModeRadiance, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Sp_SIM-0001.txt"), path)

	p, err := tr.ReadCalibration(ctx, 0, path)
	require.NoError(t, err)
	assert.Equal(t, "SIM-0001", p.Serial)
	assert.Equal(t, 2048, p.Len())

	meas, err = tr.Measure(ctx, 0, req)
	require.NoError(t, err)
	assert.InDelta(t, 2, floats.Sum(meas.Spectrum)/float64(len(meas.Spectrum)), 0.05)

	_, err = tr.ReadCalibration(ctx, 0, filepath.Join(dir, "nope.txt"))
	assert.Equal(t, wire.StatusFileNotFound, statusOf(t, err))
}

func TestZoomFactor(t *testing.T) {
	ctx := context.Background()
	tr := New(testConfig())
	openActive(t, tr)

	assert.Equal(t, wire.StatusInvalidOpticalParameter, statusOf(t, tr.SetZoomFactor(ctx, 0, 0)))
	assert.Equal(t, wire.StatusInvalidOpticalParameter, statusOf(t, tr.SetZoomFactor(ctx, 0, -1)))
	require.NoError(t, tr.SetZoomFactor(ctx, 0, 2.5))
	z, err := tr.ZoomFactor(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.5, z)
}

func TestContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.SleepScale = 1
	tr := New(cfg)
	openActive(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Spectrum(ctx, 0, wire.DarkModeRaw, 1000, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSmooth(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, smooth([]float64{1, 2, 3}, 0))
	assert.Equal(t, []float64{1.5, 2, 2.5}, smooth([]float64{1, 2, 3}, 1))
}
