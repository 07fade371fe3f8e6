// Command spvis-run runs measurement sequences from YAML files.
//
// Each sequence gets a fresh session against the same target: a built-in
// simulator, a bridge given by address, or a bridge found over mDNS by one
// of its serial numbers. Devices left open by a sequence are closed before
// the next one starts.
//
// Usage:
//
//	spvis-run [flags] <sequence.yaml|dir>...
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
//	-sleep-scale float    Fraction of each simulated exposure actually slept (default 1)
//	-license-dir string   Where the simulator writes its license files
//	-var key=value        Set a sequence variable (repeatable)
//	-integration float    Integration time for steps that omit it (default 100)
//	-averaging int        Averaging for steps that omit it (default 1)
//	-timeout duration     Default call timeout (default 10s)
//	-format string        Report format: text, json, junit (default "text")
//	-verbose              Report every step with its outputs
//	-fail-fast            Stop after the first failed sequence
//	-protocol-log string  Write session events to this .splog file
//	-log-level string     Log level: debug, info, warn, error (default "warn")
//
// With the simulator, the variables license, license_0, license_1, ...
// name the generated license files.
//
// Examples:
//
//	# Run a sequence against the simulator without waiting on exposures
//	spvis-run -sleep-scale 0 lamp-check.yaml
//
//	# Run a directory of sequences against a bridge, JUnit output for CI
//	spvis-run -bridge lab-pc:7431 -format junit -var license=/opt/spvis/a.spt ./sequences
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spvis/spvis-go/internal/config"
	"github.com/spvis/spvis-go/pkg/session"
)

// Config holds the runner configuration.
type Config struct {
	Bridge        string            `yaml:"bridge" env:"SPVIS_RUN_BRIDGE"`
	Serial        string            `yaml:"serial" env:"SPVIS_RUN_SERIAL"`
	TLS           bool              `yaml:"tls" env:"SPVIS_RUN_TLS"`
	Insecure      bool              `yaml:"insecure" env:"SPVIS_RUN_INSECURE"`
	Fingerprint   string            `yaml:"fingerprint" env:"SPVIS_RUN_FINGERPRINT"`
	Devices       int               `yaml:"devices" env:"SPVIS_RUN_DEVICES"`
	SleepScale    float64           `yaml:"sleep_scale" env:"SPVIS_RUN_SLEEP_SCALE"`
	LicenseDir    string            `yaml:"license_dir" env:"SPVIS_RUN_LICENSE_DIR"`
	Vars          map[string]string `yaml:"vars" env:"SPVIS_RUN_VARS"`
	IntegrationMs float64           `yaml:"integration_ms" env:"SPVIS_RUN_INTEGRATION_MS"`
	Averaging     int               `yaml:"averaging" env:"SPVIS_RUN_AVERAGING"`
	Timeout       time.Duration     `yaml:"timeout" env:"SPVIS_RUN_TIMEOUT"`
	Format        string            `yaml:"format" env:"SPVIS_RUN_FORMAT"`
	Verbose       bool              `yaml:"verbose" env:"SPVIS_RUN_VERBOSE"`
	FailFast      bool              `yaml:"fail_fast" env:"SPVIS_RUN_FAIL_FAST"`
	ProtocolLog   string            `yaml:"protocol_log" env:"SPVIS_RUN_PROTOCOL_LOG"`
	LogLevel      string            `yaml:"log_level" env:"SPVIS_RUN_LOG_LEVEL"`
}

func defaultConfig() Config {
	return Config{
		Devices:       2,
		SleepScale:    1,
		IntegrationMs: 100,
		Averaging:     1,
		Timeout:       session.DefaultConfig().Timeout,
		Format:        "text",
		LogLevel:      "warn",
	}
}

// varFlag collects repeated -var key=value flags.
type varFlag struct {
	vars *map[string]string
}

func (f varFlag) String() string {
	if f.vars == nil || *f.vars == nil {
		return ""
	}
	parts := make([]string, 0, len(*f.vars))
	for k, v := range *f.vars {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f varFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if *f.vars == nil {
		*f.vars = make(map[string]string)
	}
	(*f.vars)[key] = value
	return nil
}

func main() {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("spvis-run", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spvis-run [flags] <sequence.yaml|dir>...")
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "Configuration file path (YAML)")
	fs.StringVar(&cfg.Bridge, "bridge", cfg.Bridge, "Bridge address host:port (default: local simulator)")
	fs.StringVar(&cfg.Serial, "serial", cfg.Serial, "Find the bridge advertising this serial over mDNS")
	fs.BoolVar(&cfg.TLS, "tls", cfg.TLS, "Connect to the bridge with TLS 1.3")
	fs.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "Skip bridge certificate verification")
	fs.StringVar(&cfg.Fingerprint, "fingerprint", cfg.Fingerprint, "Pin the bridge certificate by its SHA-256 fingerprint")
	fs.IntVar(&cfg.Devices, "devices", cfg.Devices, "Simulated devices when no bridge is used")
	fs.Float64Var(&cfg.SleepScale, "sleep-scale", cfg.SleepScale, "Fraction of each simulated exposure actually slept")
	fs.StringVar(&cfg.LicenseDir, "license-dir", cfg.LicenseDir, "Where the simulator writes its license files")
	fs.Var(varFlag{&cfg.Vars}, "var", "Set a sequence variable key=value (repeatable)")
	fs.Float64Var(&cfg.IntegrationMs, "integration", cfg.IntegrationMs, "Integration time in ms for steps that omit it")
	fs.IntVar(&cfg.Averaging, "averaging", cfg.Averaging, "Averaging for steps that omit it")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Default call timeout")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Report format: text, json, junit")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Report every step with its outputs")
	fs.BoolVar(&cfg.FailFast, "fail-fast", cfg.FailFast, "Stop after the first failed sequence")
	fs.StringVar(&cfg.ProtocolLog, "protocol-log", cfg.ProtocolLog, "Write session events to this .splog file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	if err := config.ParseFlags(fs, os.Args[1:], configPath, &cfg); err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	passed, err := run(ctx, cfg, fs.Args(), os.Stdout, logger)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	if !passed {
		os.Exit(1)
	}
}
