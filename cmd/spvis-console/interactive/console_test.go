package interactive

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/discovery"
	"github.com/spvis/spvis-go/pkg/persistence"
	"github.com/spvis/spvis-go/pkg/session"
	"github.com/spvis/spvis-go/pkg/sim"
	"github.com/spvis/spvis-go/pkg/wire"
)

type fixture struct {
	console  *Console
	out      *bytes.Buffer
	licenses []string
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.SleepScale = 0
	tr := sim.New(cfg)

	dir := t.TempDir()
	var licenses []string
	for _, spec := range tr.Specs() {
		p := filepath.Join(dir, spec.Serial+".lic")
		require.NoError(t, sim.WriteLicense(p, spec))
		licenses = append(licenses, p)
	}

	out := &bytes.Buffer{}
	m := session.New(tr, session.DefaultConfig())
	store := persistence.NewSettingsStore(filepath.Join(dir, "settings.json"))
	return &fixture{console: newConsole(m, store, out), out: out, licenses: licenses, dir: dir}
}

// run executes a line and returns what it printed.
func (f *fixture) run(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	quit := f.console.Execute(context.Background(), line)
	assert.False(t, quit, line)
	return f.out.String()
}

func TestConsoleSessionCommands(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "init")
	assert.Contains(t, out, "2 device(s) found")
	assert.Contains(t, out, "[0] SIM-0001")
	assert.Contains(t, out, "[1] SIM-0002")

	assert.Contains(t, f.run(t, "error 0"), "Last error: (none)")
	assert.Contains(t, f.run(t, "measure 0"), "measure failed [INVALID_ACTIVATION]")
	assert.Contains(t, f.run(t, "error 0"), "not activated")

	assert.Contains(t, f.run(t, "activate 0 "+f.licenses[0]), "Device 0 activated")
	assert.Contains(t, f.run(t, "info 0"), "Serial: SIM-0001")
	assert.Contains(t, f.run(t, "param 0 pixels"), "2048")
	assert.Contains(t, f.run(t, "error 0 device"), "Last error: OK")

	out = f.run(t, "devices")
	assert.Contains(t, out, "SIM-0001")
	assert.Contains(t, out, "active")

	assert.Contains(t, f.run(t, "done 1"), "Device 1 closed")
	assert.Contains(t, f.run(t, "devices"), "closed")
	assert.Contains(t, f.run(t, "doneall"), "All devices closed")
	assert.Contains(t, f.run(t, "devices"), "No devices")
}

func TestConsoleAcquisition(t *testing.T) {
	f := newFixture(t)
	f.run(t, "init")
	f.run(t, "activate 0 "+f.licenses[0])

	assert.Contains(t, f.run(t, "setint 0 12 3"), "Integration set to 12ms x3")
	assert.Contains(t, f.run(t, "automax 0 500 5"), "Auto limits:")
	assert.Contains(t, f.run(t, "autodark 0 200"), "up to 200ms")
	assert.Contains(t, f.run(t, "oncedark 0 100 1"), "at 100ms x1")
	assert.Contains(t, f.run(t, "sat 0 100"), "Saturation:")
	assert.Contains(t, f.run(t, "autoint 0 0.5"), "Integration:")
	assert.Contains(t, f.run(t, "spectrum 0 single 100 1"), "2048 pixels")
	assert.Contains(t, f.run(t, "shutter 0 close"), "Shutter close")
	assert.Contains(t, f.run(t, "shutter 0 open"), "Shutter open")

	assert.Contains(t, f.run(t, "metric 0 peak_wavelength"), "metric failed [INVALID_PARAMETER]")

	out := f.run(t, "measure 0 50 2 auto")
	assert.Contains(t, out, "Measurement ")
	assert.Contains(t, out, "2048 pixels, 50ms x2, dark AUTO_DARK")
	assert.Contains(t, out, "Peak:")

	assert.Contains(t, f.run(t, "metric 0 peak_wavelength"), "peak_wavelength:")
	assert.Contains(t, f.run(t, "metric 0 801"), "2048 values")
	assert.Contains(t, f.run(t, "metric 0 cct"), "failed [INVALID_PARAMETER]")
}

func TestConsoleCalibration(t *testing.T) {
	f := newFixture(t)
	f.run(t, "init")
	f.run(t, "activate 0 "+f.licenses[0])

	wl := []float64{300, 600, 900, 1100}
	lamp, err := calibration.NewProfile("", wire.UsageModeRadiance, wl, []float64{0.2, 1, 0.8, 0.5})
	require.NoError(t, err)
	lampPath := filepath.Join(f.dir, "lamp.txt")
	require.NoError(t, calibration.Save(lampPath, lamp))

	f.run(t, "autodark 0 200")
	assert.Contains(t, f.run(t, "calibrate 0 "+lampPath+" auto 100 1"), "Calibrated against 4 lamp points")

	calPath := filepath.Join(f.dir, "cal", "sim1.txt")
	out := f.run(t, "savecal 0 radiance "+calPath)
	require.Contains(t, out, "Calibration written to ")
	written := strings.TrimSpace(strings.TrimPrefix(out, "Calibration written to "))

	assert.Contains(t, f.run(t, "readcal 0 "+written), "Calibration loaded: SIM-0001")

	assert.Contains(t, f.run(t, "zoom 0 2.5"), "Zoom factor: 2.5")
	assert.Contains(t, f.run(t, "zoom 0"), "Zoom factor: 2.5")
}

func TestConsoleSaveRestore(t *testing.T) {
	f := newFixture(t)
	f.run(t, "init")
	f.run(t, "activate 0 "+f.licenses[0])
	f.run(t, "setint 0 12 3")

	assert.Contains(t, f.run(t, "save"), "Saved settings of")

	f.run(t, "doneall")
	f.run(t, "init")
	out := f.run(t, "restore")
	assert.Contains(t, out, "Restored: SIM-0001, SIM-0002")
	assert.NotContains(t, out, "No saved settings")
	out = f.run(t, "devices")
	assert.Contains(t, out, "12ms x3")
	assert.Contains(t, out, "active")

	assert.Contains(t, f.run(t, "forget SIM-0001"), "Forgot SIM-0001")
	out = f.run(t, "restore")
	assert.Contains(t, out, "Restored: SIM-0002")
	assert.Contains(t, out, "No saved settings: SIM-0001")
}

func TestConsoleWithoutStore(t *testing.T) {
	f := newFixture(t)
	f.console.store = nil
	assert.Contains(t, f.run(t, "save"), "no settings file configured")
	assert.Contains(t, f.run(t, "restore"), "no settings file configured")
}

func TestConsoleUsageErrors(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.run(t, "activate"), "Usage: activate <i> <license>")
	assert.Contains(t, f.run(t, "activate 0"), "Usage: activate <i> <license>")
	assert.Contains(t, f.run(t, "setint x 10"), "invalid device index")
	assert.Contains(t, f.run(t, "sat 0 fast"), "invalid number")
	assert.Contains(t, f.run(t, "shutter 0 ajar"), "Usage: shutter")
	assert.Contains(t, f.run(t, "param 0 colour"), "param failed")
	assert.Contains(t, f.run(t, "frobnicate"), "Unknown command: frobnicate")
	assert.Contains(t, f.run(t, "measure 5"), "measure failed [INDEX_OUT_OF_RANGE]")
	assert.Empty(t, f.run(t, "   "))
}

func TestConsoleQuit(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.console.Execute(context.Background(), "quit"))
	assert.Contains(t, f.out.String(), "Exiting...")
}

func TestConsoleDiscover(t *testing.T) {
	f := newFixture(t)

	f.console.browse = func(ctx context.Context) ([]*discovery.BridgeService, error) {
		return []*discovery.BridgeService{{
			InstanceName: "lab-bridge",
			Port:         7431,
			Addresses:    []string{"192.168.1.20"},
			Version:      "1.0",
			DeviceCount:  2,
			Serials:      []string{"SIM-0001", "SIM-0002"},
		}}, nil
	}
	out := f.run(t, "discover")
	assert.Contains(t, out, "Found 1 bridge(s)")
	assert.Contains(t, out, "lab-bridge  192.168.1.20:7431  v1.0  2 device(s)  [SIM-0001, SIM-0002]")

	f.console.browse = func(ctx context.Context) ([]*discovery.BridgeService, error) { return nil, nil }
	assert.Contains(t, f.run(t, "discover"), "No bridges found")

	f.console.browse = func(ctx context.Context) ([]*discovery.BridgeService, error) {
		return nil, errors.New("no multicast")
	}
	assert.Contains(t, f.run(t, "discover"), "discover failed: no multicast")
}
