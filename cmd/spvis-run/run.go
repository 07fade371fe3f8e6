package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spvis/spvis-go/internal/reporter"
	"github.com/spvis/spvis-go/internal/target"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/sequence"
	"github.com/spvis/spvis-go/pkg/session"
)

// loadSequences loads sequence files and directories in argument order.
func loadSequences(paths []string) ([]*sequence.Sequence, error) {
	var seqs []*sequence.Sequence
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			dir, err := sequence.LoadDirectory(p)
			if err != nil {
				return nil, err
			}
			if len(dir) == 0 {
				return nil, fmt.Errorf("%s: no sequences", p)
			}
			seqs = append(seqs, dir...)
			continue
		}
		seq, err := sequence.Load(p)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

// parseVars decodes -var values as YAML scalars, so numbers and booleans
// keep their type.
func parseVars(raw map[string]string) (map[string]any, error) {
	vars := make(map[string]any, len(raw))
	for k, s := range raw {
		var v any
		if err := yaml.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("var %s: %w", k, err)
		}
		if v == nil {
			v = s
		}
		vars[k] = v
	}
	return vars, nil
}

// run executes every sequence and writes the report to out. It reports
// whether all sequences passed; the error is for setup failures.
func run(ctx context.Context, cfg Config, paths []string, out io.Writer, logger *slog.Logger) (bool, error) {
	rep, err := reporter.New(cfg.Format, out, cfg.Verbose)
	if err != nil {
		return false, err
	}
	seqs, err := loadSequences(paths)
	if err != nil {
		return false, err
	}
	overrides, err := parseVars(cfg.Vars)
	if err != nil {
		return false, err
	}

	var protocol log.Logger
	if cfg.ProtocolLog != "" {
		events, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return false, fmt.Errorf("open protocol log: %w", err)
		}
		defer events.Close()
		protocol = events
	}

	tgt, err := target.Open(ctx, target.Options{
		Bridge:      cfg.Bridge,
		Serial:      cfg.Serial,
		TLS:         cfg.TLS,
		Insecure:    cfg.Insecure,
		Fingerprint: cfg.Fingerprint,
		ClientName:  "spvis-run",
		Timeout:     cfg.Timeout,
		Devices:     cfg.Devices,
		SleepScale:  cfg.SleepScale,
		LicenseDir:  cfg.LicenseDir,
	}, logger, protocol)
	if err != nil {
		return false, err
	}
	defer tgt.Close()

	vars := tgt.Vars()
	for k, v := range overrides {
		vars[k] = v
	}

	runName := tgt.Address
	if runName == "" {
		runName = "simulator"
	}
	result := &reporter.Run{Name: runName}
	start := time.Now()

	for _, seq := range seqs {
		if ctx.Err() != nil {
			break
		}
		sessCfg := session.DefaultConfig()
		sessCfg.Logger = logger
		sessCfg.Timeout = cfg.Timeout
		sessCfg.ProtocolLogger = protocol
		m := session.New(tgt.Transport, sessCfg)

		runner := sequence.NewRunner(m, sequence.Config{
			Logger:        logger,
			Vars:          vars,
			IntegrationMs: cfg.IntegrationMs,
			Averaging:     cfg.Averaging,
		})
		res := runner.Run(ctx, seq)
		result.Results = append(result.Results, res)

		// ctx may already be cancelled here.
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		if err := m.DoneAll(closeCtx); err != nil {
			logger.Warn("closing devices", "sequence", seq.Name, "error", err)
		}
		cancel()

		if !res.Passed && cfg.FailFast {
			break
		}
	}
	result.Duration = time.Since(start)

	rep.ReportRun(result)
	return result.FailCount() == 0 && len(result.Results) == len(seqs), nil
}
