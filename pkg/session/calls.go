package session

import (
	"context"
	"sync"
	"time"

	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/wire"
)

// call describes one device operation for invoke.
type call struct {
	op    wire.Operation
	index int

	// active requires the device to be activated.
	active bool

	// validate checks the arguments before the device is contacted.
	validate func(h *handle) error

	// timeout overrides Config.Timeout.
	timeout time.Duration

	// Exposure settings, recorded in call events.
	integrationMs float64
	averaging     int
}

// lookup returns the open handle at index.
func (m *Manager) lookup(op wire.Operation, index int) (*handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, &Error{Op: op, Index: index, Kind: wire.StatusIndexOutOfRange, Err: ErrNotInitialized}
	}
	if index < 0 || index >= len(m.handles) {
		return nil, &Error{Op: op, Index: index, Kind: wire.StatusIndexOutOfRange,
			Err: ErrIndexOutOfRange}
	}
	h := m.handles[index]
	if h.isClosed() {
		return nil, &Error{Op: op, Index: index, Kind: wire.StatusIndexOutOfRange, Err: ErrDeviceClosed}
	}
	return h, nil
}

// lockDevice waits until the device may be called and returns the unlock function.
func (m *Manager) lockDevice(h *handle) func() {
	if m.multiplexed {
		h.callMu.Lock()
		return h.callMu.Unlock
	}
	m.busMu.Lock()
	return m.busMu.Unlock
}

// do runs an operation without a result.
func (m *Manager) do(ctx context.Context, c call, fn func(ctx context.Context, h *handle) error) error {
	_, err := invoke(m, ctx, c, func(ctx context.Context, h *handle) (struct{}, error) {
		return struct{}{}, fn(ctx, h)
	})
	return err
}

// invoke checks the call order and arguments, then runs fn with the device
// locked and the call's timeout applied.
func invoke[T any](m *Manager, ctx context.Context, c call, fn func(ctx context.Context, h *handle) (T, error)) (T, error) {
	var zero T

	m.lifecycle.RLock()
	h, err := m.lookup(c.op, c.index)
	if err != nil {
		m.lifecycle.RUnlock()
		return zero, m.reject(c, nil, err)
	}
	if c.active && !h.isActive() {
		m.lifecycle.RUnlock()
		return zero, m.reject(c, h, &Error{Op: c.op, Index: c.index, Kind: wire.StatusInvalidActivation,
			Err: ErrNotActivated})
	}
	if c.validate != nil {
		if err := c.validate(h); err != nil {
			m.lifecycle.RUnlock()
			return zero, m.reject(c, h, newError(c.op, c.index, err))
		}
	}

	unlock := m.lockDevice(h)
	if h.isClosed() {
		unlock()
		m.lifecycle.RUnlock()
		return zero, m.reject(c, nil, &Error{Op: c.op, Index: c.index, Kind: wire.StatusIndexOutOfRange,
			Err: ErrDeviceClosed})
	}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = m.config.Timeout
	}
	release := func() {
		unlock()
		m.lifecycle.RUnlock()
	}

	start := time.Now()
	v, err := run(ctx, timeout, release, func(ctx context.Context) (T, error) {
		return fn(ctx, h)
	})
	if err != nil {
		e := newError(c.op, c.index, err)
		h.setLastError(e.Error())
		m.recordCall(c, h, start, e, false)
		return zero, e
	}
	m.recordCall(c, h, start, nil, false)
	return v, nil
}

// outcome arbitrates between a worker applying the result of a device
// call and the caller that stopped waiting for it. Whichever locks first
// wins: a result applied before the timeout is returned to the caller,
// and a result arriving after it is dropped.
type outcome struct {
	mu        sync.Mutex
	applied   bool
	abandoned bool
}

type outcomeKey struct{}

// commit runs apply unless the caller of the enclosing call has given up,
// in which case it returns the context error and leaves the session
// untouched.
func commit(ctx context.Context, apply func()) error {
	o, _ := ctx.Value(outcomeKey{}).(*outcome)
	if o == nil {
		apply()
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.abandoned {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}
	apply()
	o.applied = true
	return nil
}

// abandon marks the call as given up. It reports false if the worker has
// already applied its result.
func (o *outcome) abandon() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.applied {
		return false
	}
	o.abandoned = true
	return true
}

// run calls fn in its own goroutine and waits for it or for the timeout.
// release is called once fn returns, so a device stays locked until the
// transport gives up even if the caller has stopped waiting. State changes
// fn makes through commit are skipped once the caller has given up.
func run[T any](ctx context.Context, timeout time.Duration, release func(), fn func(ctx context.Context) (T, error)) (T, error) {
	o := &outcome{}
	ctx, cancel := context.WithTimeout(context.WithValue(ctx, outcomeKey{}, o), timeout)

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
		release()
		cancel()
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		if !o.abandon() {
			r := <-done
			return r.v, r.err
		}
		var zero T
		return zero, ctx.Err()
	}
}

// reject records a call refused before reaching the device.
func (m *Manager) reject(c call, h *handle, err error) error {
	if h != nil {
		h.setLastError(err.Error())
	}
	m.recordCall(c, h, time.Time{}, err, true)
	return err
}

func (m *Manager) recordCall(c call, h *handle, start time.Time, err error, local bool) {
	status := KindOf(err)
	var dur time.Duration
	if !start.IsZero() {
		dur = time.Since(start)
	}

	event := log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Direction: log.DirectionOut,
		Layer:     log.LayerService,
		Category:  log.CategoryCall,
		LocalRole: log.RoleClient,
		Call: &log.CallEvent{
			Operation:     c.op,
			Status:        status,
			Duration:      dur,
			Local:         local,
			IntegrationMs: c.integrationMs,
			Averaging:     c.averaging,
		},
	}
	if c.index >= 0 {
		event.DeviceIndex = log.Index(c.index)
	}
	if h != nil {
		h.mu.Lock()
		event.Serial = h.serial
		h.mu.Unlock()
	}
	m.events.Log(event)

	if err != nil {
		m.logger.Warn("device call failed", "op", c.op.String(), "index", c.index,
			"status", status.String(), "local", local, "error", err)
		return
	}
	m.logger.Debug("device call", "op", c.op.String(), "index", c.index, "duration", dur)
}

func (m *Manager) emitState(entity log.StateEntity, index *int, from, to, reason string) {
	m.events.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   m.sessionID,
		Layer:       log.LayerService,
		Category:    log.CategoryState,
		LocalRole:   log.RoleClient,
		DeviceIndex: index,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
