// Package session manages the lifecycle of spectrometer handles and the
// measurement calls made on them.
//
// A Manager wraps a device.Transport. It opens the attached devices with
// Init, tracks which handles are open and activated, rejects calls that
// violate the call order before they reach the device, and reports every
// failure as an *Error carrying a vendor status kind:
//
//	m := session.New(transport, session.DefaultConfig())
//	n, err := m.Init(ctx)
//	...
//	err = m.Activate(ctx, 0, "/etc/spvis/license.lic")
//	res, err := m.Measure(ctx, 0, device.MeasurementRequest{
//	    IntegrationMs: 100,
//	    Averaging:     3,
//	    DarkMode:      wire.DarkModeAuto,
//	})
//	...
//	defer m.DoneAll(ctx)
//
// # Concurrency
//
// All methods are safe for concurrent use. At most one call is in flight per
// device. Transports that do not implement device.Multiplexer get one call
// in flight for the whole session. Init and DoneAll wait for in-flight calls.
//
// LastError never waits for a device.
package session
