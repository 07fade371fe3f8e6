package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/spvis/spvis-go/pkg/cert"
	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/discovery"
	"github.com/spvis/spvis-go/pkg/interaction"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/sim"
	"github.com/spvis/spvis-go/pkg/transport"
	"github.com/spvis/spvis-go/pkg/version"
)

// bridge hosts a simulated library behind the bridge protocol.
type bridge struct {
	cfg    Config
	logger *slog.Logger

	sim       *sim.Transport
	server    *transport.Server
	advertise *discovery.Advertiser
	events    *log.FileLogger

	// fingerprint of the served certificate, empty without TLS.
	fingerprint string

	cancel context.CancelFunc
}

func newBridge(cfg Config, logger *slog.Logger) (*bridge, error) {
	if cfg.Devices < 0 {
		return nil, fmt.Errorf("device count must not be negative, got %d", cfg.Devices)
	}

	simCfg := sim.DefaultConfig()
	simCfg.Devices = nil
	for i := 1; i <= cfg.Devices; i++ {
		simCfg.Devices = append(simCfg.Devices, sim.DefaultDeviceSpec(i))
	}
	simCfg.SleepScale = cfg.SleepScale
	simCfg.Seed = cfg.Seed

	return &bridge{
		cfg:    cfg,
		logger: logger,
		sim:    sim.New(simCfg),
	}, nil
}

// writeLicenses writes one license file per simulated device into dir.
func (b *bridge) writeLicenses(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for _, spec := range b.sim.Specs() {
		p := filepath.Join(dir, spec.Serial+".lic")
		if err := sim.WriteLicense(p, spec); err != nil {
			return paths, fmt.Errorf("write license for %s: %w", spec.Serial, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// certificate loads the bridge certificate from CertDir, creating it on
// first use. Without a CertDir a fresh certificate is made per start.
func (b *bridge) certificate() (tls.Certificate, error) {
	var store cert.Store = cert.NewMemoryStore()
	if b.cfg.CertDir != "" {
		store = cert.NewFileStore(b.cfg.CertDir)
	}
	c, created, err := cert.LoadOrCreate(store, cert.RenewBefore, func() (tls.Certificate, error) {
		return transport.GenerateSelfSigned(b.cfg.TLSHosts, b.cfg.CertValidity)
	})
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("bridge certificate: %w", err)
	}
	b.fingerprint = cert.Fingerprint(c.Leaf)
	b.logger.Info("bridge certificate",
		"fingerprint", b.fingerprint,
		"created", created,
		"expires", c.Leaf.NotAfter.Format(time.DateOnly))
	return c, nil
}

func (b *bridge) start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	if b.cfg.LicenseDir != "" {
		paths, err := b.writeLicenses(b.cfg.LicenseDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			b.logger.Info("license written", "path", p)
		}
	}

	var protocolLogger log.Logger
	if b.cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(b.cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		b.events = fl
		protocolLogger = fl
		b.logger.Info("protocol logging enabled", "path", fl.Path())
	}

	var tlsCfg *transport.TLSConfig
	if b.cfg.TLS {
		c, err := b.certificate()
		if err != nil {
			return err
		}
		tlsCfg = &transport.TLSConfig{Certificate: c}
	}

	if b.cfg.Advertise {
		b.advertise = discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Interface: b.cfg.Interface,
			TTL:       discovery.DefaultTTL,
		})
	}

	var lib device.Transport = b.sim
	if b.advertise != nil {
		lib = &announcingTransport{Transport: b.sim, announce: b.announce}
	}

	handler := interaction.NewServer(lib, interaction.ServerConfig{
		Name:           b.cfg.Name,
		Logger:         b.logger,
		ProtocolLogger: protocolLogger,
	})

	srv, err := transport.NewServer(transport.ServerConfig{
		Address:   b.cfg.Address,
		TLSConfig: tlsCfg,
		Logger:    protocolLogger,
		OnMessage: handler.Handler(ctx),
		OnConnect: func(conn *transport.ServerConn) {
			b.logger.Info("client connected", "conn", conn.ConnID(), "remote", conn.RemoteAddr())
		},
		OnDisconnect: func(conn *transport.ServerConn) {
			b.logger.Info("client disconnected", "conn", conn.ConnID())
		},
		OnError: func(conn *transport.ServerConn, err error) {
			b.logger.Warn("connection error", "conn", conn.ConnID(), "error", err)
		},
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	b.server = srv
	b.logger.Info("bridge listening", "address", srv.Addr(), "tls", srv.TLS(), "devices", len(b.sim.Specs()))

	if b.advertise != nil {
		err := b.advertise.Advertise(&discovery.BridgeInfo{
			Name:    b.cfg.Name,
			Port:    uint16(srv.Port()),
			Version: version.Current,
			Host:    hostname(),
		})
		if err != nil {
			b.logger.Warn("mDNS advertising failed", "error", err)
			b.advertise = nil
		} else {
			b.logger.Info("advertising over mDNS", "service", discovery.ServiceType, "name", b.cfg.Name)
		}
	}
	return nil
}

// announce publishes the devices found by the last Init.
func (b *bridge) announce(serials []string) {
	if b.advertise == nil {
		return
	}
	if err := b.advertise.Update(len(serials), serials); err != nil {
		b.logger.Warn("mDNS update failed", "error", err)
		return
	}
	b.logger.Debug("mDNS records updated", "devices", len(serials))
}

// stop shuts the bridge down and closes every device still open.
func (b *bridge) stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.advertise != nil {
		b.advertise.Stop()
	}

	var err error
	if b.server != nil {
		err = multierr.Append(err, b.server.Stop())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if b.sim.Opened() > 0 {
		err = multierr.Append(err, b.sim.DoneAll(ctx))
	}

	if b.events != nil {
		written, dropped := b.events.Stats()
		b.logger.Info("protocol log closed", "events", written, "dropped", dropped)
		err = multierr.Append(err, b.events.Close())
	}
	return err
}

// announcingTransport reports the serial numbers of the devices found by
// each successful Init.
type announcingTransport struct {
	device.Transport

	mu       sync.Mutex
	announce func(serials []string)
}

func (t *announcingTransport) Multiplexed() bool {
	return device.IsMultiplexed(t.Transport)
}

func (t *announcingTransport) Init(ctx context.Context) (int, error) {
	n, err := t.Transport.Init(ctx)
	if err != nil {
		return n, err
	}

	serials := make([]string, 0, n)
	for i := range n {
		sn, err := t.Transport.SerialNumber(ctx, i)
		if err != nil {
			break
		}
		serials = append(serials, sn)
	}

	t.mu.Lock()
	t.announce(serials)
	t.mu.Unlock()
	return n, nil
}

func (t *announcingTransport) DoneAll(ctx context.Context) error {
	err := t.Transport.DoneAll(ctx)
	t.mu.Lock()
	t.announce(nil)
	t.mu.Unlock()
	return err
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
