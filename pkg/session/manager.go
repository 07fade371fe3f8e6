package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Manager owns a session with the spectrometer library.
type Manager struct {
	transport   device.Transport
	config      Config
	logger      *slog.Logger
	events      log.Logger
	sessionID   string
	multiplexed bool

	// lifecycle is held shared by device calls and exclusively by Init and DoneAll.
	lifecycle sync.RWMutex

	// busMu serializes device calls on transports that are not multiplexed.
	busMu sync.Mutex

	// mu guards initialized and handles. It is never held across a device call.
	mu          sync.Mutex
	initialized bool
	handles     []*handle
}

// New creates a Manager for the given transport.
func New(transport device.Transport, config Config) *Manager {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.AutoTimeout <= 0 {
		config.AutoTimeout = defaults.AutoTimeout
	}
	if config.AcquisitionFactor <= 0 {
		config.AcquisitionFactor = defaults.AcquisitionFactor
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		transport:   transport,
		config:      config,
		logger:      logger,
		events:      log.OrNoop(config.ProtocolLogger),
		sessionID:   uuid.NewString(),
		multiplexed: device.IsMultiplexed(transport),
	}
	m.logger = m.logger.With("session", m.sessionID)
	return m
}

// SessionID returns the unique ID of this Manager, as found in its events.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Multiplexed reports whether calls on different devices run concurrently.
func (m *Manager) Multiplexed() bool {
	return m.multiplexed
}

// Initialized reports whether Init has succeeded (fully or partially) and
// DoneAll has not been called since.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// DeviceCount returns the number of handles opened by Init, including
// handles closed since with Done.
func (m *Manager) DeviceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Init opens all attached devices and returns their count.
//
// If the library fails after opening some devices, the session is
// initialized with those devices and Init returns their count together
// with the error. Calling Init on an initialized session returns the current
// count without contacting the library.
func (m *Manager) Init(ctx context.Context) (int, error) {
	m.lifecycle.Lock()

	m.mu.Lock()
	if m.initialized {
		n := len(m.handles)
		m.mu.Unlock()
		m.lifecycle.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	c := call{op: wire.OpInit, index: -1}
	start := time.Now()
	count, err := run(ctx, m.config.Timeout, m.lifecycle.Unlock, func(ctx context.Context) (int, error) {
		n, err := m.transport.Init(ctx)
		if n <= 0 {
			if err != nil {
				return 0, err
			}
			n = 0
		}
		handles := make([]*handle, n)
		for i := range handles {
			handles[i] = &handle{index: i}
		}
		if cerr := commit(ctx, func() {
			m.mu.Lock()
			m.initialized = true
			m.handles = handles
			m.mu.Unlock()
		}); cerr != nil {
			m.abandonInit(ctx, n)
			return 0, cerr
		}

		m.emitState(log.StateEntitySession, nil, "UNINITIALIZED", "INITIALIZED",
			fmt.Sprintf("%d devices", n))
		return n, err
	})
	m.recordCall(c, nil, start, err, false)

	if err != nil {
		if count > 0 {
			m.logger.Warn("session partially initialized", "devices", count, "error", err)
		}
		return count, newError(c.op, c.index, err)
	}
	m.logger.Info("session initialized", "devices", count)
	return count, nil
}

// abandonInit closes the n devices opened by an Init whose caller stopped
// waiting, so the library is not left holding handles the session never
// recorded.
func (m *Manager) abandonInit(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.Timeout)
	defer cancel()
	if err := m.transport.DoneAll(ctx); err != nil {
		m.logger.Warn("closing devices of abandoned init failed", "devices", n, "error", err)
		return
	}
	m.logger.Warn("init finished after its caller gave up, devices closed", "devices", n)
}

// Done closes one device. Later calls on the index fail with
// IndexOutOfRange.
func (m *Manager) Done(ctx context.Context, index int) error {
	return m.do(ctx, call{op: wire.OpDone, index: index}, func(ctx context.Context, h *handle) error {
		if err := m.transport.Done(ctx, h.index); err != nil {
			return err
		}
		h.update(func(h *handle) {
			h.closed = true
			h.active = false
		})
		m.emitState(log.StateEntityDevice, log.Index(h.index), "OPEN", "CLOSED", "")
		m.logger.Info("device closed", "index", h.index)
		return nil
	})
}

// DoneAll closes every device and ends the session. It is a no-op on an
// uninitialized session.
//
// If the library's DoneAll fails, each device still open is closed
// individually and the failures are combined. The session ends either way.
func (m *Manager) DoneAll(ctx context.Context) error {
	m.lifecycle.Lock()

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		m.lifecycle.Unlock()
		return nil
	}
	handles := m.handles
	m.mu.Unlock()

	c := call{op: wire.OpDoneAll, index: -1}
	start := time.Now()
	_, err := run(ctx, m.config.Timeout, m.lifecycle.Unlock, func(ctx context.Context) (struct{}, error) {
		err := m.transport.DoneAll(ctx)
		if err != nil {
			m.logger.Warn("DoneAll failed, closing devices individually", "error", err)
			for _, h := range handles {
				if h.isClosed() {
					continue
				}
				if cerr := m.transport.Done(ctx, h.index); cerr != nil {
					err = multierr.Append(err, fmt.Errorf("device %d: %w", h.index, cerr))
				}
			}
		}
		for _, h := range handles {
			h.update(func(h *handle) {
				h.closed = true
				h.active = false
			})
		}
		m.mu.Lock()
		m.initialized = false
		m.handles = nil
		m.mu.Unlock()

		m.emitState(log.StateEntitySession, nil, "INITIALIZED", "UNINITIALIZED", "")
		return struct{}{}, err
	})
	m.recordCall(c, nil, start, err, false)

	if err != nil {
		return newError(c.op, c.index, err)
	}
	m.logger.Info("session closed")
	return nil
}

// Activate unlocks a device with a license file. Activating an active
// device with the same license again succeeds without contacting the device.
func (m *Manager) Activate(ctx context.Context, index int, licensePath string) error {
	c := call{
		op:    wire.OpActivate,
		index: index,
		validate: func(*handle) error {
			if licensePath == "" {
				return invalid(wire.StatusFileNotFound, "empty license path")
			}
			return nil
		},
	}
	return m.do(ctx, c, func(ctx context.Context, h *handle) error {
		h.mu.Lock()
		same := h.active && h.settings.LicensePath == licensePath
		h.mu.Unlock()
		if same {
			return nil
		}

		if err := m.transport.Activate(ctx, h.index, licensePath); err != nil {
			return err
		}
		if err := h.commit(ctx, func(h *handle) {
			h.active = true
			h.settings.LicensePath = licensePath
		}); err != nil {
			return err
		}
		m.emitState(log.StateEntityDevice, log.Index(h.index), "INACTIVE", "ACTIVE", "")
		m.logger.Info("device activated", "index", h.index)
		return nil
	})
}

// DeviceInfo returns the serial number of a device. It does not require
// the device to be activated.
func (m *Manager) DeviceInfo(ctx context.Context, index int) (string, error) {
	c := call{op: wire.OpGetList, index: index}
	return invoke(m, ctx, c, func(ctx context.Context, h *handle) (string, error) {
		h.mu.Lock()
		serial := h.serial
		h.mu.Unlock()
		if serial != "" {
			return serial, nil
		}

		serial, err := m.transport.SerialNumber(ctx, h.index)
		if err != nil {
			return "", err
		}
		if err := h.commit(ctx, func(h *handle) { h.serial = serial }); err != nil {
			return "", err
		}
		return serial, nil
	})
}

// LastError returns the message of the most recent failure on a device, or
// "" if none. It never waits for an in-flight call.
func (m *Manager) LastError(index int) (string, error) {
	h, err := m.lookup(wire.OpCheckError, index)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr, nil
}

// Devices returns the state of every handle.
func (m *Manager) Devices() []DeviceState {
	m.mu.Lock()
	handles := m.handles
	m.mu.Unlock()

	states := make([]DeviceState, 0, len(handles))
	for _, h := range handles {
		states = append(states, h.state())
	}
	return states
}

// Snapshot returns the applied settings of every open device that has a
// known serial number, keyed by serial.
func (m *Manager) Snapshot() map[string]Settings {
	out := make(map[string]Settings)
	for _, s := range m.Devices() {
		if s.Closed || s.Serial == "" {
			continue
		}
		out[s.Serial] = s.Settings
	}
	return out
}

// Restore re-applies saved settings to a device: license, auto-max
// limits, integration, zoom factor and calibration file, in that order.
// It stops at the first failure.
func (m *Manager) Restore(ctx context.Context, index int, s Settings) error {
	if s.LicensePath != "" {
		if err := m.Activate(ctx, index, s.LicensePath); err != nil {
			return err
		}
	}
	if s.MaxIntegrationMs > 0 && s.MaxAveraging > 0 {
		if _, _, err := m.SetAutoMaxLimits(ctx, index, s.MaxIntegrationMs, s.MaxAveraging); err != nil {
			return err
		}
	}
	if s.IntegrationMs > 0 && s.Averaging > 0 {
		if err := m.SetIntegration(ctx, index, s.IntegrationMs, s.Averaging); err != nil {
			return err
		}
	}
	if s.ZoomFactor > 0 {
		if err := m.SetZoomFactor(ctx, index, s.ZoomFactor); err != nil {
			return err
		}
	}
	if s.CalibrationPath != "" {
		if _, err := m.ReadCalibration(ctx, index, s.CalibrationPath); err != nil {
			return err
		}
	}
	return nil
}
