// Package config loads command configuration from a YAML file and SPVIS_*
// environment variables.
//
// Commands start from their defaults, apply the optional file, then the
// environment, and finally command-line flags:
//
//	cfg := defaultConfig()
//	fs := flag.NewFlagSet("spvis-run", flag.ExitOnError)
//	path := fs.String("config", "", "Configuration file path")
//	fs.Float64Var(&cfg.IntegrationMs, "integration", cfg.IntegrationMs, "...")
//	if err := config.ParseFlags(fs, os.Args[1:], path, &cfg); err != nil { ... }
//
// Fields carry yaml and env tags. Env tags must not set envDefault, or the
// default would overwrite a value read from the file.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrNoConfigFile is returned by Load when the named file does not exist.
var ErrNoConfigFile = errors.New("config file not found")

// Load fills target from the YAML file at path (skipped when path is empty)
// and then from the environment. Unknown YAML keys are rejected.
func Load(path string, target any) error {
	if path != "" {
		if err := LoadFile(path, target); err != nil {
			return err
		}
	}
	return ParseEnv(target)
}

// LoadFile decodes the YAML file at path into target.
func LoadFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoConfigFile, path)
	}
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseFlags parses args into fs, loads the file named by *path and the
// environment into target, then parses args again so that flags bound to
// target's fields take precedence.
func ParseFlags(fs *flag.FlagSet, args []string, path *string, target any) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := Load(*path, target); err != nil {
		return err
	}
	return fs.Parse(args)
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
