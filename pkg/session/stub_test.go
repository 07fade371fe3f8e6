package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

// stubTransport records calls so tests can assert the device was (not) contacted.
type stubTransport struct {
	mock.Mock
	multiplexed bool
}

func (s *stubTransport) Multiplexed() bool { return s.multiplexed }

func (s *stubTransport) Init(ctx context.Context) (int, error) {
	args := s.Called()
	return args.Int(0), args.Error(1)
}

func (s *stubTransport) Done(ctx context.Context, index int) error {
	return s.Called(index).Error(0)
}

func (s *stubTransport) DoneAll(ctx context.Context) error {
	return s.Called().Error(0)
}

func (s *stubTransport) Activate(ctx context.Context, index int, licensePath string) error {
	return s.Called(index, licensePath).Error(0)
}

func (s *stubTransport) SerialNumber(ctx context.Context, index int) (string, error) {
	args := s.Called(index)
	return args.String(0), args.Error(1)
}

func (s *stubTransport) Parameter(ctx context.Context, index int, kind wire.ParameterKind) (string, error) {
	args := s.Called(index, kind)
	return args.String(0), args.Error(1)
}

func (s *stubTransport) AutoDark(ctx context.Context, index int, maxIntegrationMs float64) error {
	return s.Called(index, maxIntegrationMs).Error(0)
}

func (s *stubTransport) OnceDark(ctx context.Context, index int, integrationMs float64, averaging int) error {
	return s.Called(index, integrationMs, averaging).Error(0)
}

func (s *stubTransport) AutoIntegration(ctx context.Context, index int, saturation float64) (float64, int, error) {
	args := s.Called(index, saturation)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (s *stubTransport) SetIntegration(ctx context.Context, index int, integrationMs float64, averaging int) error {
	return s.Called(index, integrationMs, averaging).Error(0)
}

func (s *stubTransport) Saturation(ctx context.Context, index int, integrationMs float64, averaging int) (float64, error) {
	args := s.Called(index, integrationMs, averaging)
	return args.Get(0).(float64), args.Error(1)
}

func (s *stubTransport) SetAutoMaxLimits(ctx context.Context, index int, maxIntegrationMs float64, maxAveraging int) (float64, int, error) {
	args := s.Called(index, maxIntegrationMs, maxAveraging)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (s *stubTransport) Spectrum(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int) ([]float64, error) {
	args := s.Called(index, mode, integrationMs, averaging)
	v, _ := args.Get(0).([]float64)
	return v, args.Error(1)
}

func (s *stubTransport) CalibrateWithLamp(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int,
	lampSpectrum, lampWavelengths []float64) error {
	return s.Called(index, mode, integrationMs, averaging, lampSpectrum, lampWavelengths).Error(0)
}

func (s *stubTransport) ReadCalibration(ctx context.Context, index int, path string) (*calibration.Profile, error) {
	args := s.Called(index, path)
	p, _ := args.Get(0).(*calibration.Profile)
	return p, args.Error(1)
}

func (s *stubTransport) SaveCalibration(ctx context.Context, index int, usage wire.UsageMode, path string) (string, error) {
	args := s.Called(index, usage, path)
	return args.String(0), args.Error(1)
}

func (s *stubTransport) SetZoomFactor(ctx context.Context, index int, factor float64) error {
	return s.Called(index, factor).Error(0)
}

func (s *stubTransport) ZoomFactor(ctx context.Context, index int) (float64, error) {
	args := s.Called(index)
	return args.Get(0).(float64), args.Error(1)
}

func (s *stubTransport) Measure(ctx context.Context, index int, req device.MeasurementRequest) (*device.Measurement, error) {
	args := s.Called(index, req)
	m, _ := args.Get(0).(*device.Measurement)
	return m, args.Error(1)
}

func (s *stubTransport) MeasureData(ctx context.Context, index int, metric wire.Metric) (float64, []float64, error) {
	args := s.Called(index, metric)
	vs, _ := args.Get(1).([]float64)
	return args.Get(0).(float64), vs, args.Error(2)
}

func (s *stubTransport) DeviceError(ctx context.Context, index int) (string, error) {
	args := s.Called(index)
	return args.String(0), args.Error(1)
}

func (s *stubTransport) Shutter(ctx context.Context, index int, open bool) error {
	return s.Called(index, open).Error(0)
}

var _ device.Transport = (*stubTransport)(nil)
