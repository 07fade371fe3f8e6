// Command spvis-bridge serves simulated spectrometers over the bridge
// protocol.
//
// Clients (spvis-console, spvis-run or any session.Manager using
// interaction.Dial) connect over TCP, optionally TLS 1.3, and issue library
// calls that are executed against the simulator. The bridge advertises
// itself over mDNS as _spvis._tcp so clients can find it by serial number.
//
// Usage:
//
//	spvis-bridge [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-address string       Listen address (default ":7431")
//	-name string          Bridge instance name (default "spvis-bridge")
//	-devices int          Number of simulated spectrometers (default 2)
//	-sleep-scale float    Fraction of each exposure actually slept (default 1)
//	-license-dir string   Write a license file per simulated device here
//	-tls                  Serve TLS 1.3 with a self-signed certificate
//	-cert-dir string      Keep the bridge certificate here across restarts
//	-advertise            Advertise over mDNS (default true)
//	-interface string     Network interface for mDNS (default: all)
//	-protocol-log string  Write protocol events to this .splog file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Every setting can also be given in the YAML file or as an SPVIS_BRIDGE_*
// environment variable. Flags win over the environment, which wins over the
// file.
//
// Examples:
//
//	# Two fast simulated devices, licenses in ./licenses
//	spvis-bridge -sleep-scale 0 -license-dir ./licenses
//
//	# TLS bridge with a protocol capture
//	spvis-bridge -tls -protocol-log bridge.splog
//
//	# Stable certificate; clients pin the logged fingerprint
//	spvis-bridge -tls -cert-dir /var/lib/spvis
//	spvis-console -bridge lab:7431 -tls -fingerprint AB:CD:...
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spvis/spvis-go/internal/config"
	"github.com/spvis/spvis-go/pkg/discovery"
)

// Config holds the bridge configuration.
type Config struct {
	Address      string        `yaml:"address" env:"SPVIS_BRIDGE_ADDRESS"`
	Name         string        `yaml:"name" env:"SPVIS_BRIDGE_NAME"`
	Devices      int           `yaml:"devices" env:"SPVIS_BRIDGE_DEVICES"`
	SleepScale   float64       `yaml:"sleep_scale" env:"SPVIS_BRIDGE_SLEEP_SCALE"`
	Seed         uint64        `yaml:"seed" env:"SPVIS_BRIDGE_SEED"`
	LicenseDir   string        `yaml:"license_dir" env:"SPVIS_BRIDGE_LICENSE_DIR"`
	TLS          bool          `yaml:"tls" env:"SPVIS_BRIDGE_TLS"`
	TLSHosts     []string      `yaml:"tls_hosts" env:"SPVIS_BRIDGE_TLS_HOSTS"`
	CertValidity time.Duration `yaml:"cert_validity" env:"SPVIS_BRIDGE_CERT_VALIDITY"`
	CertDir      string        `yaml:"cert_dir" env:"SPVIS_BRIDGE_CERT_DIR"`
	Advertise    bool          `yaml:"advertise" env:"SPVIS_BRIDGE_ADVERTISE"`
	Interface    string        `yaml:"interface" env:"SPVIS_BRIDGE_INTERFACE"`
	ProtocolLog  string        `yaml:"protocol_log" env:"SPVIS_BRIDGE_PROTOCOL_LOG"`
	LogLevel     string        `yaml:"log_level" env:"SPVIS_BRIDGE_LOG_LEVEL"`
}

func defaultConfig() Config {
	return Config{
		Address:      ":7431",
		Name:         "spvis-bridge",
		Devices:      2,
		SleepScale:   1,
		Seed:         1,
		TLSHosts:     []string{"localhost", "127.0.0.1"},
		CertValidity: 365 * 24 * time.Hour,
		Advertise:    true,
		LogLevel:     "info",
	}
}

func main() {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("spvis-bridge", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path (YAML)")
	fs.StringVar(&cfg.Address, "address", cfg.Address, "Listen address")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Bridge instance name")
	fs.IntVar(&cfg.Devices, "devices", cfg.Devices, "Number of simulated spectrometers")
	fs.Float64Var(&cfg.SleepScale, "sleep-scale", cfg.SleepScale, "Fraction of each exposure actually slept")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Detector noise seed")
	fs.StringVar(&cfg.LicenseDir, "license-dir", cfg.LicenseDir, "Write a license file per simulated device here")
	fs.BoolVar(&cfg.TLS, "tls", cfg.TLS, "Serve TLS 1.3 with a self-signed certificate")
	fs.StringVar(&cfg.CertDir, "cert-dir", cfg.CertDir, "Keep the bridge certificate here across restarts")
	fs.BoolVar(&cfg.Advertise, "advertise", cfg.Advertise, "Advertise over mDNS")
	fs.StringVar(&cfg.Interface, "interface", cfg.Interface, "Network interface for mDNS (default: all)")
	fs.StringVar(&cfg.ProtocolLog, "protocol-log", cfg.ProtocolLog, "Write protocol events to this .splog file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	if err := config.ParseFlags(fs, os.Args[1:], configPath, &cfg); err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}
	if err := discovery.ValidateInstanceName(cfg.Name); err != nil {
		config.Exitf("Invalid bridge name: %v", err)
	}

	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}

	b, err := newBridge(cfg, logger)
	if err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.start(ctx); err != nil {
		b.stop()
		config.Exitf("Failed to start bridge: %v", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := b.stop(); err != nil {
		logger.Error("shutdown", "error", err)
		os.Exit(1)
	}
}
