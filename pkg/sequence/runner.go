package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"time"

	"github.com/spvis/spvis-go/pkg/session"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Config configures a Runner.
type Config struct {
	// Logger receives one line per step (optional).
	Logger *slog.Logger

	// Vars override the sequence's own vars.
	Vars map[string]any

	// IntegrationMs and Averaging are used by steps that omit them.
	IntegrationMs float64
	Averaging     int

	// OnStep is called after each step (optional).
	OnStep func(*StepResult)
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		IntegrationMs: 100,
		Averaging:     1,
	}
}

// Runner executes sequences against a session.
type Runner struct {
	manager *session.Manager
	config  Config
	logger  *slog.Logger
}

// NewRunner creates a runner for m.
func NewRunner(m *session.Manager, config Config) *Runner {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.IntegrationMs <= 0 {
		config.IntegrationMs = 100
	}
	if config.Averaging <= 0 {
		config.Averaging = 1
	}
	return &Runner{manager: m, config: config, logger: logger}
}

// Run executes the steps of seq in order and stops at the first step that
// does not meet its expectation.
func (r *Runner) Run(ctx context.Context, seq *Sequence) *Result {
	result := &Result{
		Sequence:  seq,
		StartTime: time.Now(),
		Vars:      make(map[string]any),
	}
	maps.Copy(result.Vars, seq.Vars)
	maps.Copy(result.Vars, r.config.Vars)

	r.logger.Info("sequence started", "name", seq.Name, "steps", len(seq.Steps))

	result.Passed = true
	for i := range seq.Steps {
		sr := r.runStep(ctx, &seq.Steps[i], i, result.Vars)
		result.Steps = append(result.Steps, sr)
		if r.config.OnStep != nil {
			r.config.OnStep(sr)
		}
		if !sr.Passed {
			result.Passed = false
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(result.StartTime)
	if result.Passed && len(result.Steps) < len(seq.Steps) {
		result.Passed = false
	}
	r.logger.Info("sequence finished", "name", seq.Name, "passed", result.Passed, "duration", result.Duration)
	return result
}

func (r *Runner) runStep(ctx context.Context, step *Step, index int, vars map[string]any) *StepResult {
	sr := &StepResult{Step: step, Index: index}
	start := time.Now()
	defer func() { sr.Duration = time.Since(start) }()

	fail := func(format string, args ...any) *StepResult {
		sr.Passed = false
		sr.Failure = fmt.Sprintf(format, args...)
		r.logger.Warn("step failed", "step", index+1, "action", step.Action, "reason", sr.Failure)
		return sr
	}

	h, ok := actions[step.Action]
	if !ok {
		return fail("unknown action %q", step.Action)
	}
	want, err := step.Expect.status()
	if err != nil {
		return fail("%v", err)
	}

	if step.Timeout != "" {
		d, err := time.ParseDuration(step.Timeout)
		if err != nil {
			return fail("invalid timeout: %v", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p := params(interpolateParams(step.Params, vars))
	device, err := p.int("index", 0)
	if err != nil {
		return fail("%v", err)
	}

	outputs, err := h(ctx, r, device, p)
	sr.Outputs = outputs
	sr.Error = err
	sr.Status = session.KindOf(err)

	if errors.Is(err, ErrInvalidParams) {
		return fail("%v", err)
	}
	maps.Copy(vars, outputs)

	r.logger.Debug("step done", "step", index+1, "action", step.Action, "index", device,
		"status", sr.Status, "outputs", outputs)

	if sr.Status != want {
		if err != nil {
			return fail("status %s, want %s: %v", sr.Status, want, err)
		}
		return fail("status %s, want %s", sr.Status, want)
	}
	if want != wire.StatusSuccess {
		sr.Passed = true
		return sr
	}
	if msg := checkOutputs(step.Expect, outputs); msg != "" {
		return fail("%s", msg)
	}

	sr.Passed = true
	return sr
}

// checkOutputs returns a description of the first unmet output expectation.
func checkOutputs(e Expect, outputs map[string]any) string {
	if e.Count != nil {
		got, ok := outputs[OutputCount].(int)
		if !ok || got != *e.Count {
			return fmt.Sprintf("count %v, want %d", outputs[OutputCount], *e.Count)
		}
	}

	if e.Min != nil || e.Max != nil {
		v, ok := numeric(outputs[OutputValue])
		if !ok {
			return fmt.Sprintf("value %v is not numeric", outputs[OutputValue])
		}
		if e.Min != nil && v < *e.Min {
			return fmt.Sprintf("value %g below min %g", v, *e.Min)
		}
		if e.Max != nil && v > *e.Max {
			return fmt.Sprintf("value %g above max %g", v, *e.Max)
		}
	}

	for key, want := range e.Outputs {
		got, ok := outputs[key]
		if !ok {
			return fmt.Sprintf("missing output %s", key)
		}
		if !equalValues(got, want) {
			return fmt.Sprintf("%s = %v, want %v", key, got, want)
		}
	}
	return ""
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// equalValues compares an output with a YAML value, treating numbers of
// different types as equal when their values are.
func equalValues(got, want any) bool {
	if a, ok := numeric(got); ok {
		if b, ok := numeric(want); ok {
			return a == b
		}
	}
	if reflect.DeepEqual(got, want) {
		return true
	}
	return valueToString(got) == valueToString(want)
}
