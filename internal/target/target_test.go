package target

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spvis/spvis-go/pkg/interaction"
	"github.com/spvis/spvis-go/pkg/sim"
	"github.com/spvis/spvis-go/pkg/transport"
)

func TestSimulatorWritesLicenses(t *testing.T) {
	tgt, err := Simulator(Options{
		Devices:    3,
		LicenseDir: filepath.Join(t.TempDir(), "licenses"),
	})
	require.NoError(t, err)
	defer tgt.Close()

	require.Len(t, tgt.Licenses, 3)
	lic, err := sim.ReadLicense(tgt.Licenses[2])
	require.NoError(t, err)
	assert.Equal(t, "SIM-0003", lic.Serial)

	ctx := context.Background()
	n, err := tgt.Transport.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, tgt.Transport.Activate(ctx, 0, tgt.Licenses[0]))

	var buf bytes.Buffer
	tgt.Describe(&buf)
	assert.Contains(t, buf.String(), "built-in simulator")
	assert.Contains(t, buf.String(), tgt.Licenses[0])
}

func TestSimulatorTempDirRemoved(t *testing.T) {
	tgt, err := Simulator(Options{Devices: 1})
	require.NoError(t, err)
	require.Len(t, tgt.Licenses, 1)

	dir := filepath.Dir(tgt.Licenses[0])
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, tgt.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestVars(t *testing.T) {
	tgt := &Target{Licenses: []string{"/a.lic", "/b.lic"}}
	assert.Equal(t, map[string]any{
		"license":   "/a.lic",
		"license_0": "/a.lic",
		"license_1": "/b.lic",
	}, tgt.Vars())

	assert.Empty(t, (&Target{}).Vars())
}

func TestOpenSelectsSimulator(t *testing.T) {
	tgt, err := Open(context.Background(), Options{Devices: 2}, nil, nil)
	require.NoError(t, err)
	defer tgt.Close()

	assert.Empty(t, tgt.Address)
	assert.Len(t, tgt.Licenses, 2)
}

func TestOpenDialsBridge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	simCfg := sim.DefaultConfig()
	simCfg.SleepScale = 0
	srv := interaction.NewServer(sim.New(simCfg), interaction.ServerConfig{Name: "test-bridge"})
	ts, err := transport.NewServer(transport.ServerConfig{
		Address:   "127.0.0.1:0",
		OnMessage: srv.Handler(ctx),
	})
	require.NoError(t, err)
	require.NoError(t, ts.Start(ctx))
	defer ts.Stop()

	addr := ts.Addr().String()
	tgt, err := Open(ctx, Options{Bridge: addr, ClientName: "target-test", Timeout: 5 * time.Second}, nil, nil)
	require.NoError(t, err)
	defer tgt.Close()

	assert.Equal(t, addr, tgt.Address)
	n, err := tgt.Transport.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var buf bytes.Buffer
	tgt.Describe(&buf)
	assert.Equal(t, "Connected to bridge "+addr+"\n", buf.String())
}
