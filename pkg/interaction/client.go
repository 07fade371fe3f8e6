package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/version"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// DefaultTimeout bounds a request whose context carries no deadline.
const DefaultTimeout = 30 * time.Second

// RequestSender sends encoded requests over a connection.
type RequestSender interface {
	Send(data []byte) error
}

// Client is a device.Transport that forwards every call to a bridge.
type Client struct {
	mu sync.RWMutex

	sender  RequestSender
	timeout time.Duration

	nextMsgID uint32

	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	logger log.Logger
	connID string

	bridge      string
	multiplexed bool
	closed      bool
	closeErr    error
}

// NewClient creates a new interaction client.
func NewClient(sender RequestSender) *Client {
	return &Client{
		sender:  sender,
		timeout: DefaultTimeout,
		pending: make(map[uint32]chan *wire.Response),
		logger:  log.NoopLogger{},
	}
}

// SetTimeout sets the timeout for requests without a context deadline.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetLogger configures wire-level event logging.
func (c *Client) SetLogger(logger log.Logger, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = log.OrNoop(logger)
	c.connID = connID
}

// Multiplexed reports whether the bridge serves devices concurrently, as
// announced in its Hello result.
func (c *Client) Multiplexed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.multiplexed
}

// Bridge returns the bridge name announced in its Hello result.
func (c *Client) Bridge() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bridge
}

// Close fails all pending requests and rejects new ones.
func (c *Client) Close() error {
	c.fail(ErrClientClosed)
	return nil
}

// fail closes the client with cause.
func (c *Client) fail(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = cause
	c.mu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := atomic.AddUint32(&c.nextMsgID, 1); id != 0 {
			return id
		}
	}
}

// register adds a pending request. It fails once the client is closed;
// fail sets closed before it sweeps the pending map.
func (c *Client) register(id uint32) (chan *wire.Response, error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	c.mu.RLock()
	closed, closeErr := c.closed, c.closeErr
	c.mu.RUnlock()
	if closed {
		return nil, closeErr
	}

	ch := make(chan *wire.Response, 1)
	c.pending[id] = ch
	return ch, nil
}

// HandleResponse delivers a response to the request waiting for it.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, exists := c.pending[resp.MessageID]
	if exists {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !exists {
		return ErrUnexpectedReply
	}

	c.logMessage(log.DirectionIn, resp.MessageID, nil, &resp.Status)
	ch <- resp
	return nil
}

// call sends one request and decodes the result into out (may be nil).
func (c *Client) call(ctx context.Context, op wire.Operation, index int, params, out any) error {
	c.mu.RLock()
	if c.closed {
		err := c.closeErr
		c.mu.RUnlock()
		return err
	}
	timeout := c.timeout
	c.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	id := c.nextMessageID()
	data, err := wire.EncodeRequest(id, op, index, params)
	if err != nil {
		return err
	}

	respCh, err := c.register(id)
	if err != nil {
		return err
	}
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.logMessage(log.DirectionOut, id, &op, nil)
	if err := c.sender.Send(data); err != nil {
		return fmt.Errorf("send %s: %w", op, err)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, ErrRequestTimeout)
		}
		return ctx.Err()
	case resp, ok := <-respCh:
		if !ok {
			c.mu.RLock()
			err := c.closeErr
			c.mu.RUnlock()
			return err
		}
		if !resp.IsSuccess() {
			// Partial results (Init) are still decoded.
			if out != nil {
				_ = resp.DecodeResult(out)
			}
			return &device.StatusError{Status: resp.Status, Message: resp.Message}
		}
		if out != nil {
			return resp.DecodeResult(out)
		}
		return nil
	}
}

func (c *Client) logMessage(dir log.Direction, id uint32, op *wire.Operation, status *wire.Status) {
	c.mu.RLock()
	logger, connID := c.logger, c.connID
	c.mu.RUnlock()

	typ := log.MessageTypeRequest
	if status != nil {
		typ = log.MessageTypeResponse
	}
	logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: connID,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		LocalRole: log.RoleClient,
		Message: &log.MessageEvent{
			Type:      typ,
			MessageID: id,
			Operation: op,
			Status:    status,
		},
	})
}

// Hello announces the client's protocol version and records the bridge's
// capabilities.
func (c *Client) Hello(ctx context.Context, clientName string) (*wire.HelloResult, error) {
	var res wire.HelloResult
	err := c.call(ctx, wire.OpHello, 0, &wire.HelloParams{Version: version.Current, Client: clientName}, &res)
	if err != nil {
		return nil, err
	}
	if err := version.CheckPeer(res.Version); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	c.mu.Lock()
	c.bridge = res.Bridge
	c.multiplexed = res.Multiplexed
	c.mu.Unlock()
	return &res, nil
}

// Init implements device.Transport.
func (c *Client) Init(ctx context.Context) (int, error) {
	var res wire.InitResult
	err := c.call(ctx, wire.OpInit, 0, nil, &res)
	return res.DeviceCount, err
}

// Done implements device.Transport.
func (c *Client) Done(ctx context.Context, index int) error {
	return c.call(ctx, wire.OpDone, index, nil, nil)
}

// DoneAll implements device.Transport.
func (c *Client) DoneAll(ctx context.Context) error {
	return c.call(ctx, wire.OpDoneAll, 0, nil, nil)
}

// Activate implements device.Transport.
func (c *Client) Activate(ctx context.Context, index int, licensePath string) error {
	return c.call(ctx, wire.OpActivate, index, &wire.PathParams{Path: licensePath}, nil)
}

// SerialNumber implements device.Transport.
func (c *Client) SerialNumber(ctx context.Context, index int) (string, error) {
	var res wire.SerialResult
	err := c.call(ctx, wire.OpGetList, index, nil, &res)
	return res.Serial, err
}

// Parameter implements device.Transport.
func (c *Client) Parameter(ctx context.Context, index int, kind wire.ParameterKind) (string, error) {
	var res wire.ParameterResult
	err := c.call(ctx, wire.OpGetParameter, index, &wire.ParameterParams{Kind: kind}, &res)
	return res.Value, err
}

// AutoDark implements device.Transport.
func (c *Client) AutoDark(ctx context.Context, index int, maxIntegrationMs float64) error {
	return c.call(ctx, wire.OpAutoDark, index, &wire.AcquisitionParams{IntegrationMs: maxIntegrationMs}, nil)
}

// OnceDark implements device.Transport.
func (c *Client) OnceDark(ctx context.Context, index int, integrationMs float64, averaging int) error {
	return c.call(ctx, wire.OpOnceDark, index,
		&wire.AcquisitionParams{IntegrationMs: integrationMs, Averaging: averaging}, nil)
}

// AutoIntegration implements device.Transport.
func (c *Client) AutoIntegration(ctx context.Context, index int, saturation float64) (float64, int, error) {
	var res wire.IntegrationResult
	err := c.call(ctx, wire.OpAutoIntegration, index, &wire.AutoIntegrationParams{Saturation: saturation}, &res)
	return res.IntegrationMs, res.Averaging, err
}

// SetIntegration implements device.Transport.
func (c *Client) SetIntegration(ctx context.Context, index int, integrationMs float64, averaging int) error {
	return c.call(ctx, wire.OpSetIntegration, index,
		&wire.AcquisitionParams{IntegrationMs: integrationMs, Averaging: averaging}, nil)
}

// Saturation implements device.Transport.
func (c *Client) Saturation(ctx context.Context, index int, integrationMs float64, averaging int) (float64, error) {
	var res wire.ValueResult
	err := c.call(ctx, wire.OpGetSaturation, index,
		&wire.AcquisitionParams{IntegrationMs: integrationMs, Averaging: averaging}, &res)
	return res.Value, err
}

// SetAutoMaxLimits implements device.Transport.
func (c *Client) SetAutoMaxLimits(ctx context.Context, index int, maxIntegrationMs float64, maxAveraging int) (float64, int, error) {
	var res wire.IntegrationResult
	err := c.call(ctx, wire.OpSetAutoMaxIntegration, index,
		&wire.AcquisitionParams{IntegrationMs: maxIntegrationMs, Averaging: maxAveraging}, &res)
	return res.IntegrationMs, res.Averaging, err
}

// Spectrum implements device.Transport.
func (c *Client) Spectrum(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int) ([]float64, error) {
	var res wire.ValuesResult
	err := c.call(ctx, wire.OpGetSpectrum, index,
		&wire.AcquisitionParams{DarkMode: mode, IntegrationMs: integrationMs, Averaging: averaging}, &res)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// CalibrateWithLamp implements device.Transport.
func (c *Client) CalibrateWithLamp(ctx context.Context, index int, mode wire.DarkMode, integrationMs float64, averaging int,
	lampSpectrum, lampWavelengths []float64) error {
	return c.call(ctx, wire.OpLampCalibration, index, &wire.LampCalibrationParams{
		DarkMode:        mode,
		IntegrationMs:   integrationMs,
		Averaging:       averaging,
		LampSpectrum:    lampSpectrum,
		LampWavelengths: lampWavelengths,
	}, nil)
}

// ReadCalibration implements device.Transport.
func (c *Client) ReadCalibration(ctx context.Context, index int, path string) (*calibration.Profile, error) {
	var res wire.CalibrationResult
	if err := c.call(ctx, wire.OpReadCalibration, index, &wire.PathParams{Path: path}, &res); err != nil {
		return nil, err
	}
	p, err := calibration.NewProfile(res.Serial, res.UsageMode, res.Wavelengths, res.LampSpectrum)
	if err != nil {
		return nil, device.NewStatusError(wire.StatusInvalidArrayLength, "bridge returned %v", err)
	}
	return p, nil
}

// SaveCalibration implements device.Transport.
func (c *Client) SaveCalibration(ctx context.Context, index int, usage wire.UsageMode, path string) (string, error) {
	var res wire.PathResult
	err := c.call(ctx, wire.OpSaveCalibration, index, &wire.PathParams{Path: path, UsageMode: usage}, &res)
	return res.Path, err
}

// SetZoomFactor implements device.Transport.
func (c *Client) SetZoomFactor(ctx context.Context, index int, factor float64) error {
	return c.call(ctx, wire.OpSetZoomFactor, index, &wire.ZoomParams{Factor: factor}, nil)
}

// ZoomFactor implements device.Transport.
func (c *Client) ZoomFactor(ctx context.Context, index int) (float64, error) {
	var res wire.ValueResult
	err := c.call(ctx, wire.OpGetZoomFactor, index, nil, &res)
	return res.Value, err
}

// Measure implements device.Transport.
func (c *Client) Measure(ctx context.Context, index int, req device.MeasurementRequest) (*device.Measurement, error) {
	var res wire.MeasureResult
	err := c.call(ctx, wire.OpMeasure, index, &wire.MeasureParams{
		IntegrationMs: req.IntegrationMs,
		Averaging:     req.Averaging,
		DarkMode:      req.DarkMode,
		Aux:           req.AuxCompensation,
		Smoothing:     req.SmoothingWindow,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &device.Measurement{
		Wavelengths:   res.Wavelengths,
		Spectrum:      res.Spectrum,
		IntegrationMs: res.IntegrationMs,
		Averaging:     res.Averaging,
		Saturation:    res.Saturation,
		Duration:      time.Duration(res.DurationMs * float64(time.Millisecond)),
	}, nil
}

// MeasureData implements device.Transport.
func (c *Client) MeasureData(ctx context.Context, index int, metric wire.Metric) (float64, []float64, error) {
	var res wire.MetricResult
	if err := c.call(ctx, wire.OpMeasureData, index, &wire.MetricParams{Metric: metric}, &res); err != nil {
		return 0, nil, err
	}
	return res.Value, res.Values, nil
}

// DeviceError implements device.Transport.
func (c *Client) DeviceError(ctx context.Context, index int) (string, error) {
	var res wire.MessageResult
	err := c.call(ctx, wire.OpCheckError, index, nil, &res)
	return res.Message, err
}

// Shutter implements device.Transport.
func (c *Client) Shutter(ctx context.Context, index int, open bool) error {
	return c.call(ctx, wire.OpShutter, index, &wire.ShutterParams{Open: open}, nil)
}

var (
	_ device.Transport   = (*Client)(nil)
	_ device.Multiplexer = (*Client)(nil)
)
