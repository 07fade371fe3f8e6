package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spvis/spvis-go/pkg/cert"
	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/interaction"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/session"
	"github.com/spvis/spvis-go/pkg/sim"
	"github.com/spvis/spvis-go/pkg/transport"
)

func testConfig(t *testing.T) Config {
	cfg := defaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.SleepScale = 0
	cfg.Advertise = false
	cfg.LicenseDir = filepath.Join(t.TempDir(), "licenses")
	return cfg
}

func startTestBridge(t *testing.T, cfg Config) *bridge {
	t.Helper()
	b, err := newBridge(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, b.start(context.Background()))
	return b
}

func TestBridgeServesSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProtocolLog = filepath.Join(t.TempDir(), "bridge"+log.FileExt)
	b := startTestBridge(t, cfg)

	ctx := context.Background()
	conn, err := interaction.Dial(ctx, b.server.Addr().String(), interaction.DialConfig{ClientName: "test"})
	require.NoError(t, err)

	m := session.New(conn, session.DefaultConfig())
	n, err := m.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.Activate(ctx, 0, filepath.Join(cfg.LicenseDir, "SIM-0001.lic")))
	serial, err := m.DeviceInfo(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "SIM-0001", serial)

	res, err := m.Measure(ctx, 0, device.MeasurementRequest{IntegrationMs: 20, Averaging: 1})
	require.NoError(t, err)
	assert.Len(t, res.Spectrum, 2048)

	require.NoError(t, conn.Close())
	require.NoError(t, b.stop())
	assert.Zero(t, b.sim.Opened(), "stop closes devices left open by clients")

	r, err := log.NewReader(cfg.ProtocolLog)
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)

	var requests int
	for _, e := range events {
		if e.Message != nil && e.Message.Type == log.MessageTypeRequest {
			assert.Equal(t, log.RoleBridge, e.LocalRole)
			requests++
		}
	}
	assert.GreaterOrEqual(t, requests, 4, "hello, init, activate, measure")
}

func TestBridgeTLS(t *testing.T) {
	cfg := testConfig(t)
	cfg.TLS = true
	b := startTestBridge(t, cfg)
	defer b.stop()
	assert.True(t, b.server.TLS())

	conn, err := interaction.Dial(context.Background(), b.server.Addr().String(), interaction.DialConfig{
		TLSConfig: &transport.TLSConfig{InsecureSkipVerify: true},
	})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, cfg.Name, conn.Bridge())
}

func TestBridgeCertificatePinning(t *testing.T) {
	cfg := testConfig(t)
	cfg.TLS = true
	cfg.CertDir = filepath.Join(t.TempDir(), "cert")
	b := startTestBridge(t, cfg)
	fingerprint := b.fingerprint
	require.NotEmpty(t, fingerprint)

	ctx := context.Background()
	conn, err := interaction.Dial(ctx, b.server.Addr().String(), interaction.DialConfig{
		TLSConfig: &transport.TLSConfig{Fingerprint: fingerprint},
	})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// Wrong pin is rejected during the handshake.
	other, err := transport.GenerateSelfSigned([]string{"localhost"}, time.Hour)
	require.NoError(t, err)
	_, err = interaction.Dial(ctx, b.server.Addr().String(), interaction.DialConfig{
		TLSConfig: &transport.TLSConfig{Fingerprint: cert.Fingerprint(other.Leaf)},
		Timeout:   2 * time.Second,
	})
	assert.Error(t, err)
	require.NoError(t, b.stop())

	// A restart reuses the stored certificate.
	b2 := startTestBridge(t, cfg)
	defer b2.stop()
	assert.Equal(t, fingerprint, b2.fingerprint)
}

func TestBridgeDeviceCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.Devices = 3
	b, err := newBridge(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	specs := b.sim.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "SIM-0003", specs[2].Serial)

	paths, err := b.writeLicenses(cfg.LicenseDir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	lic, err := sim.ReadLicense(paths[2])
	require.NoError(t, err)
	assert.Equal(t, "SIM-0003", lic.Serial)

	cfg.Devices = -1
	_, err = newBridge(cfg, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestAnnouncingTransport(t *testing.T) {
	simCfg := sim.DefaultConfig()
	simCfg.SleepScale = 0
	tr := sim.New(simCfg)

	var announced [][]string
	at := &announcingTransport{Transport: tr, announce: func(serials []string) {
		announced = append(announced, serials)
	}}
	assert.True(t, device.IsMultiplexed(at))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n, err := at.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, at.DoneAll(ctx))

	require.Len(t, announced, 2)
	assert.Equal(t, []string{"SIM-0001", "SIM-0002"}, announced[0])
	assert.Empty(t, announced[1])
}

func TestAnnounceWithoutAdvertiser(t *testing.T) {
	b, err := newBridge(testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	b.announce([]string{"SIM-0001"})
	assert.NoError(t, b.stop())
}
