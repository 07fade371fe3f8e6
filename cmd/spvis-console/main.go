// Command spvis-console is an interactive shell for spectrometers.
//
// The console drives a session.Manager either against a built-in simulator
// or against a remote spvis-bridge. A bridge is given by address or found by
// the serial number of one of its devices over mDNS.
//
// Usage:
//
//	spvis-console [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-bridge string        Bridge address host:port (default: local simulator)
//	-serial string        Find the bridge advertising this serial over mDNS
//	-tls                  Connect to the bridge with TLS 1.3
//	-insecure             Skip bridge certificate verification
//	-fingerprint string   Pin the bridge certificate by its SHA-256 fingerprint
//	-devices int          Simulated devices when no bridge is used (default 2)
//	-license-dir string   Where the simulator writes its license files
//	-settings string      Settings file for save/restore
//	-restore              Restore saved settings right after init
//	-timeout duration     Default call timeout (default 10s)
//	-protocol-log string  Write session events to this .splog file
//	-log-level string     Log level: debug, info, warn, error (default "warn")
//
// Examples:
//
//	# Local simulator
//	spvis-console -settings ~/.spvis/settings.json
//
//	# Remote bridge found by serial number
//	spvis-console -serial SIM-0001 -tls -insecure
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spvis/spvis-go/cmd/spvis-console/interactive"
	"github.com/spvis/spvis-go/internal/config"
	"github.com/spvis/spvis-go/internal/target"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/persistence"
	"github.com/spvis/spvis-go/pkg/session"
)

// Config holds the console configuration.
type Config struct {
	Bridge      string        `yaml:"bridge" env:"SPVIS_CONSOLE_BRIDGE"`
	Serial      string        `yaml:"serial" env:"SPVIS_CONSOLE_SERIAL"`
	TLS         bool          `yaml:"tls" env:"SPVIS_CONSOLE_TLS"`
	Insecure    bool          `yaml:"insecure" env:"SPVIS_CONSOLE_INSECURE"`
	Fingerprint string        `yaml:"fingerprint" env:"SPVIS_CONSOLE_FINGERPRINT"`
	Devices     int           `yaml:"devices" env:"SPVIS_CONSOLE_DEVICES"`
	SleepScale  float64       `yaml:"sleep_scale" env:"SPVIS_CONSOLE_SLEEP_SCALE"`
	LicenseDir  string        `yaml:"license_dir" env:"SPVIS_CONSOLE_LICENSE_DIR"`
	Settings    string        `yaml:"settings" env:"SPVIS_CONSOLE_SETTINGS"`
	Restore     bool          `yaml:"restore" env:"SPVIS_CONSOLE_RESTORE"`
	Timeout     time.Duration `yaml:"timeout" env:"SPVIS_CONSOLE_TIMEOUT"`
	ProtocolLog string        `yaml:"protocol_log" env:"SPVIS_CONSOLE_PROTOCOL_LOG"`
	LogLevel    string        `yaml:"log_level" env:"SPVIS_CONSOLE_LOG_LEVEL"`
}

func defaultConfig() Config {
	return Config{
		Devices:    2,
		SleepScale: 1,
		Timeout:    session.DefaultConfig().Timeout,
		LogLevel:   "warn",
	}
}

func main() {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("spvis-console", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path (YAML)")
	fs.StringVar(&cfg.Bridge, "bridge", cfg.Bridge, "Bridge address host:port (default: local simulator)")
	fs.StringVar(&cfg.Serial, "serial", cfg.Serial, "Find the bridge advertising this serial over mDNS")
	fs.BoolVar(&cfg.TLS, "tls", cfg.TLS, "Connect to the bridge with TLS 1.3")
	fs.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "Skip bridge certificate verification")
	fs.StringVar(&cfg.Fingerprint, "fingerprint", cfg.Fingerprint, "Pin the bridge certificate by its SHA-256 fingerprint")
	fs.IntVar(&cfg.Devices, "devices", cfg.Devices, "Simulated devices when no bridge is used")
	fs.Float64Var(&cfg.SleepScale, "sleep-scale", cfg.SleepScale, "Fraction of each simulated exposure actually slept")
	fs.StringVar(&cfg.LicenseDir, "license-dir", cfg.LicenseDir, "Where the simulator writes its license files")
	fs.StringVar(&cfg.Settings, "settings", cfg.Settings, "Settings file for save/restore")
	fs.BoolVar(&cfg.Restore, "restore", cfg.Restore, "Restore saved settings right after init")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Default call timeout")
	fs.StringVar(&cfg.ProtocolLog, "protocol-log", cfg.ProtocolLog, "Write session events to this .splog file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	if err := config.ParseFlags(fs, os.Args[1:], configPath, &cfg); err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	var events *log.FileLogger
	if cfg.ProtocolLog != "" {
		if events, err = log.NewFileLogger(cfg.ProtocolLog); err != nil {
			config.Exitf("Failed to open protocol log: %v", err)
		}
		defer events.Close()
	}

	var protocol log.Logger
	if events != nil {
		protocol = events
	}
	tgt, err := target.Open(ctx, target.Options{
		Bridge:      cfg.Bridge,
		Serial:      cfg.Serial,
		TLS:         cfg.TLS,
		Insecure:    cfg.Insecure,
		Fingerprint: cfg.Fingerprint,
		ClientName:  "spvis-console",
		Timeout:     cfg.Timeout,
		Devices:     cfg.Devices,
		SleepScale:  cfg.SleepScale,
		LicenseDir:  cfg.LicenseDir,
	}, logger, protocol)
	if err != nil {
		config.Exitf("Failed to connect: %v", err)
	}
	defer tgt.Close()

	sessCfg := session.DefaultConfig()
	sessCfg.Logger = logger
	sessCfg.Timeout = cfg.Timeout
	sessCfg.ProtocolLogger = protocol
	m := session.New(tgt.Transport, sessCfg)

	var store *persistence.SettingsStore
	if cfg.Settings != "" {
		store = persistence.NewSettingsStore(cfg.Settings)
	}

	console, err := interactive.New(m, store)
	if err != nil {
		config.Exitf("Failed to start console: %v", err)
	}
	tgt.Describe(console.Stdout())

	if cfg.Restore {
		for _, line := range []string{"init", "restore"} {
			console.Execute(ctx, line)
		}
	}

	console.Run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if m.Initialized() {
		if err := m.DoneAll(shutdown); err != nil {
			logger.Warn("closing devices", "error", err)
		}
	}
}
