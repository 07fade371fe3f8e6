package sequence

import (
	"context"
	"strconv"
	"time"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Output keys.
const (
	OutputCount          = "count"
	OutputSerial         = "serial"
	OutputValue          = "value"
	OutputPath           = "path"
	OutputPoints         = "points"
	OutputStartNm        = "start_nm"
	OutputEndNm          = "end_nm"
	OutputIntegrationMs  = "integration_ms"
	OutputAveraging      = "averaging"
	OutputPixels         = "pixels"
	OutputSaturation     = "saturation"
	OutputPeakWavelength = "peak_wavelength"
	OutputPeakValue      = "peak_value"
	OutputDurationMs     = "duration_ms"
	OutputMeasurementID  = "measurement_id"
	OutputMessage        = "message"
)

// handler runs one action on the device at index.
type handler func(ctx context.Context, r *Runner, index int, p params) (map[string]any, error)

var actions map[string]handler

func init() {
	actions = map[string]handler{
		"init":             handleInit,
		"device_info":      handleDeviceInfo,
		"activate":         handleActivate,
		"parameter":        handleParameter,
		"read_calibration": handleReadCalibration,
		"save_calibration": handleSaveCalibration,
		"auto_dark":        handleAutoDark,
		"once_dark":        handleOnceDark,
		"auto_integration": handleAutoIntegration,
		"set_integration":  handleSetIntegration,
		"saturation":       handleSaturation,
		"set_auto_max":     handleSetAutoMax,
		"spectrum":         handleSpectrum,
		"calibrate_lamp":   handleCalibrateLamp,
		"set_zoom":         handleSetZoom,
		"shutter":          handleShutter,
		"measure":          handleMeasure,
		"metric":           handleMetric,
		"last_error":       handleLastError,
		"wait":             handleWait,
		"done":             handleDone,
		"done_all":         handleDoneAll,
	}
}

// Actions returns the names of all supported actions.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	return names
}

func handleInit(ctx context.Context, r *Runner, _ int, _ params) (map[string]any, error) {
	n, err := r.manager.Init(ctx)
	return map[string]any{OutputCount: n}, err
}

func handleDeviceInfo(ctx context.Context, r *Runner, index int, _ params) (map[string]any, error) {
	serial, err := r.manager.DeviceInfo(ctx, index)
	if err != nil {
		return nil, err
	}
	return map[string]any{OutputSerial: serial}, nil
}

func handleActivate(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	license, err := p.requireString("license")
	if err != nil {
		return nil, err
	}
	return nil, r.manager.Activate(ctx, index, license)
}

func handleParameter(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	name, err := p.requireString("name")
	if err != nil {
		return nil, err
	}
	kind, err := wire.ParseParameterKind(name)
	if err != nil {
		return nil, paramError("name", "%v", err)
	}
	v, err := r.manager.Parameter(ctx, index, kind)
	if err != nil {
		return nil, err
	}
	out := map[string]any{OutputValue: v}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		out[OutputValue] = f
	}
	return out, nil
}

func handleReadCalibration(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	path, err := p.requireString("path")
	if err != nil {
		return nil, err
	}
	prof, err := r.manager.ReadCalibration(ctx, index, path)
	if err != nil {
		return nil, err
	}
	start, end := prof.Range()
	return map[string]any{
		OutputPoints:  prof.Len(),
		OutputStartNm: start,
		OutputEndNm:   end,
	}, nil
}

func handleSaveCalibration(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	path, err := p.requireString("path")
	if err != nil {
		return nil, err
	}
	usage, err := p.usageMode("usage", wire.UsageModeRadiance)
	if err != nil {
		return nil, err
	}
	written, err := r.manager.SaveCalibration(ctx, index, usage, path)
	if err != nil {
		return nil, err
	}
	return map[string]any{OutputPath: written}, nil
}

func handleAutoDark(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	maxMs, err := p.float("max_integration_ms", r.config.IntegrationMs)
	if err != nil {
		return nil, err
	}
	return nil, r.manager.AutoDark(ctx, index, maxMs)
}

func handleOnceDark(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	ms, avg, err := p.exposure(r.config.IntegrationMs, r.config.Averaging)
	if err != nil {
		return nil, err
	}
	return nil, r.manager.OnceDark(ctx, index, ms, avg)
}

func handleAutoIntegration(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	target, err := p.float("saturation", 0.8)
	if err != nil {
		return nil, err
	}
	ms, avg, err := r.manager.AutoIntegration(ctx, index, target)
	if err != nil {
		return nil, err
	}
	return map[string]any{OutputIntegrationMs: ms, OutputAveraging: avg}, nil
}

func handleSetIntegration(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	ms, avg, err := p.exposure(r.config.IntegrationMs, r.config.Averaging)
	if err != nil {
		return nil, err
	}
	return nil, r.manager.SetIntegration(ctx, index, ms, avg)
}

func handleSaturation(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	ms, avg, err := p.exposure(r.config.IntegrationMs, r.config.Averaging)
	if err != nil {
		return nil, err
	}
	v, err := r.manager.Saturation(ctx, index, ms, avg)
	if err != nil {
		return nil, err
	}
	return map[string]any{OutputValue: v}, nil
}

func handleSetAutoMax(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	maxMs, err := p.requireFloat("max_integration_ms")
	if err != nil {
		return nil, err
	}
	maxAvg, err := p.int("max_averaging", 1)
	if err != nil {
		return nil, err
	}
	ms, avg, err := r.manager.SetAutoMaxLimits(ctx, index, maxMs, maxAvg)
	if err != nil {
		return nil, err
	}
	return map[string]any{OutputIntegrationMs: ms, OutputAveraging: avg}, nil
}

func handleSpectrum(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	mode, err := p.darkMode("dark", wire.DarkModeRaw)
	if err != nil {
		return nil, err
	}
	ms, avg, err := p.exposure(r.config.IntegrationMs, r.config.Averaging)
	if err != nil {
		return nil, err
	}
	spectrum, err := r.manager.Spectrum(ctx, index, mode, ms, avg)
	if err != nil {
		return nil, err
	}
	peak := 0.0
	for _, v := range spectrum {
		peak = max(peak, v)
	}
	return map[string]any{OutputPixels: len(spectrum), OutputValue: peak}, nil
}

func handleCalibrateLamp(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	mode, err := p.darkMode("dark", wire.DarkModeAuto)
	if err != nil {
		return nil, err
	}
	ms, avg, err := p.exposure(r.config.IntegrationMs, r.config.Averaging)
	if err != nil {
		return nil, err
	}

	var spectrum, wavelengths []float64
	if p.has("lamp_file") {
		path, _ := p.string("lamp_file", "")
		prof, err := calibration.Load(path)
		if err != nil {
			return nil, paramError("lamp_file", "%v", err)
		}
		spectrum, wavelengths = prof.StandardLampSpectrum, prof.Wavelengths
	} else {
		if spectrum, err = p.floats("lamp_spectrum"); err != nil {
			return nil, err
		}
		if wavelengths, err = p.floats("lamp_wavelengths"); err != nil {
			return nil, err
		}
	}

	return nil, r.manager.CalibrateWithLamp(ctx, index, mode, ms, avg, spectrum, wavelengths)
}

func handleSetZoom(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	factor, err := p.requireFloat("factor")
	if err != nil {
		return nil, err
	}
	return nil, r.manager.SetZoomFactor(ctx, index, factor)
}

func handleShutter(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	open, err := p.bool("open", true)
	if err != nil {
		return nil, err
	}
	return nil, r.manager.Shutter(ctx, index, open)
}

func measurementRequest(r *Runner, p params) (device.MeasurementRequest, error) {
	var req device.MeasurementRequest
	var err error
	if req.IntegrationMs, req.Averaging, err = p.exposure(r.config.IntegrationMs, r.config.Averaging); err != nil {
		return req, err
	}
	if req.DarkMode, err = p.darkMode("dark", wire.DarkModeAuto); err != nil {
		return req, err
	}
	if req.AuxCompensation, err = p.bool("aux", false); err != nil {
		return req, err
	}
	if req.SmoothingWindow, err = p.int("smoothing", 0); err != nil {
		return req, err
	}
	return req, nil
}

func handleMeasure(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	req, err := measurementRequest(r, p)
	if err != nil {
		return nil, err
	}
	m, err := r.manager.Measure(ctx, index, req)
	if err != nil {
		return nil, err
	}
	wl, peak := m.Peak()
	return map[string]any{
		OutputValue:          m.Saturation,
		OutputSaturation:     m.Saturation,
		OutputPeakWavelength: wl,
		OutputPeakValue:      peak,
		OutputPixels:         len(m.Spectrum),
		OutputIntegrationMs:  m.IntegrationMs,
		OutputAveraging:      m.Averaging,
		OutputDurationMs:     float64(m.Duration) / float64(time.Millisecond),
		OutputMeasurementID:  m.ID.String(),
	}, nil
}

// handleMetric reads a derived quantity. With integration_ms set it measures
// first; otherwise it uses the last measurement.
func handleMetric(ctx context.Context, r *Runner, index int, p params) (map[string]any, error) {
	name, err := p.requireString("metric")
	if err != nil {
		return nil, err
	}
	metric, err := wire.ParseMetric(name)
	if err != nil {
		return nil, paramError("metric", "%v", err)
	}

	var req *device.MeasurementRequest
	if p.has("integration_ms") {
		mr, err := measurementRequest(r, p)
		if err != nil {
			return nil, err
		}
		req = &mr
	}

	v, err := r.manager.MeasureDerived(ctx, index, metric, req)
	if err != nil {
		return nil, err
	}
	if metric.IsArray() {
		return map[string]any{OutputPoints: len(v.Values)}, nil
	}
	return map[string]any{OutputValue: v.Value}, nil
}

func handleLastError(_ context.Context, r *Runner, index int, _ params) (map[string]any, error) {
	msg, err := r.manager.LastError(index)
	if err != nil {
		return nil, err
	}
	return map[string]any{OutputMessage: msg}, nil
}

func handleWait(ctx context.Context, _ *Runner, _ int, p params) (map[string]any, error) {
	d, err := p.duration("duration")
	if err != nil {
		return nil, err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func handleDone(ctx context.Context, r *Runner, index int, _ params) (map[string]any, error) {
	return nil, r.manager.Done(ctx, index)
}

func handleDoneAll(ctx context.Context, r *Runner, _ int, _ params) (map[string]any, error) {
	return nil, r.manager.DoneAll(ctx)
}
