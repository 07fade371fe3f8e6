// Package target opens the device.Transport a command-line tool works
// against: a remote bridge given by address, a bridge found over mDNS by
// one of its serial numbers, or a built-in simulator.
package target

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/discovery"
	"github.com/spvis/spvis-go/pkg/interaction"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/sim"
	"github.com/spvis/spvis-go/pkg/transport"
)

// Options selects and configures the target.
type Options struct {
	// Bridge is a bridge address host:port. Empty with an empty Serial
	// selects the simulator.
	Bridge string

	// Serial finds the bridge advertising this serial number.
	Serial string

	// TLS connects to the bridge with TLS 1.3. Insecure skips certificate
	// verification and Fingerprint pins the bridge certificate.
	TLS         bool
	Insecure    bool
	Fingerprint string

	// ClientName is sent to the bridge in Hello.
	ClientName string

	// Timeout bounds the dial and each bridge round trip.
	Timeout time.Duration

	// Devices, SleepScale and LicenseDir configure the simulator. Without a
	// LicenseDir the licenses go to a temporary directory removed on Close.
	Devices    int
	SleepScale float64
	LicenseDir string
}

// Target is an opened transport.
type Target struct {
	Transport device.Transport

	// Address is the bridge address, empty for the simulator.
	Address string

	// Licenses are the simulator's license files, one per device.
	Licenses []string

	close func() error
}

// Open connects to the target selected by opts. events receives wire-level
// events of a bridge connection and may be nil.
func Open(ctx context.Context, opts Options, logger *slog.Logger, events log.Logger) (*Target, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	address := opts.Bridge
	if address == "" && opts.Serial != "" {
		svc, err := findBridge(ctx, opts.Serial)
		if err != nil {
			return nil, err
		}
		address = svc.Address()
		logger.Info("bridge discovered", "name", svc.InstanceName, "address", address)
	}

	if address != "" {
		return dial(ctx, address, opts, logger, events)
	}
	return Simulator(opts)
}

func findBridge(ctx context.Context, serial string) (*discovery.BridgeService, error) {
	browser := discovery.NewBrowser(discovery.DefaultBrowserConfig())
	defer browser.Stop()

	ctx, cancel := context.WithTimeout(ctx, discovery.BrowseTimeout)
	defer cancel()
	svc, err := browser.FindSerial(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("find bridge for %s: %w", serial, err)
	}
	return svc, nil
}

func dial(ctx context.Context, address string, opts Options, logger *slog.Logger, events log.Logger) (*Target, error) {
	dc := interaction.DialConfig{
		ClientName:     opts.ClientName,
		Timeout:        opts.Timeout,
		Logger:         logger,
		ProtocolLogger: events,
	}
	if opts.TLS {
		dc.TLSConfig = &transport.TLSConfig{
			InsecureSkipVerify: opts.Insecure,
			Fingerprint:        opts.Fingerprint,
		}
	}
	conn, err := interaction.Dial(ctx, address, dc)
	if err != nil {
		return nil, err
	}
	return &Target{Transport: conn, Address: address, close: conn.Close}, nil
}

// Simulator creates a simulated library with opts.Devices default devices
// and writes a license file for each.
func Simulator(opts Options) (*Target, error) {
	simCfg := sim.DefaultConfig()
	simCfg.Devices = nil
	for i := 1; i <= opts.Devices; i++ {
		simCfg.Devices = append(simCfg.Devices, sim.DefaultDeviceSpec(i))
	}
	simCfg.SleepScale = opts.SleepScale
	tr := sim.New(simCfg)

	dir := opts.LicenseDir
	cleanup := func() error { return nil }
	if dir == "" {
		tmp, err := os.MkdirTemp("", "spvis-licenses-")
		if err != nil {
			return nil, err
		}
		dir = tmp
		cleanup = func() error { return os.RemoveAll(tmp) }
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	t := &Target{Transport: tr, close: cleanup}
	for _, spec := range tr.Specs() {
		p := filepath.Join(dir, spec.Serial+".lic")
		if err := sim.WriteLicense(p, spec); err != nil {
			_ = cleanup()
			return nil, err
		}
		t.Licenses = append(t.Licenses, p)
	}
	return t, nil
}

// Describe writes a short description of the target.
func (t *Target) Describe(w io.Writer) {
	if t.Address != "" {
		fmt.Fprintf(w, "Connected to bridge %s\n", t.Address)
		return
	}
	fmt.Fprintln(w, "Using the built-in simulator")
	for _, p := range t.Licenses {
		fmt.Fprintf(w, "  license: %s\n", p)
	}
}

// Vars returns sequence variables for the simulator's license files:
// license_0, license_1, ... and license for the first device.
func (t *Target) Vars() map[string]any {
	vars := make(map[string]any, len(t.Licenses)+1)
	for i, p := range t.Licenses {
		vars["license_"+strconv.Itoa(i)] = p
	}
	if len(t.Licenses) > 0 {
		vars["license"] = t.Licenses[0]
	}
	return vars
}

// Close releases the connection or removes temporary license files.
func (t *Target) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}
