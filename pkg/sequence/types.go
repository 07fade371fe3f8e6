package sequence

import (
	"fmt"
	"time"

	"github.com/spvis/spvis-go/pkg/wire"
)

// Sequence is a measurement sequence loaded from YAML.
type Sequence struct {
	// Name identifies the sequence.
	Name string `yaml:"name"`

	// Description explains what the sequence does.
	Description string `yaml:"description,omitempty"`

	// Vars are initial variables for {{ name }} references.
	Vars map[string]any `yaml:"vars,omitempty"`

	// Steps are the actions to execute in order.
	Steps []Step `yaml:"steps"`
}

// Step is a single action in a sequence.
type Step struct {
	// Action is the action to perform (e.g., "activate", "measure").
	Action string `yaml:"action"`

	// Params are parameters for the action.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect defines the expected outcome.
	Expect Expect `yaml:"expect,omitempty"`

	// Timeout bounds the step (e.g., "30s"). Empty uses the session's
	// own per-operation timeouts.
	Timeout string `yaml:"timeout,omitempty"`

	// Description explains what this step does.
	Description string `yaml:"description,omitempty"`
}

// Expect is what a step must produce to pass.
type Expect struct {
	// Status is the expected kind name, e.g. "INVALID_ACTIVATION".
	// Empty means SUCCESS.
	Status string `yaml:"status,omitempty"`

	// Count is the expected device count of an init step.
	Count *int `yaml:"count,omitempty"`

	// Min and Max bound the step's numeric "value" output.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Outputs lists outputs that must equal the given values.
	Outputs map[string]any `yaml:"outputs,omitempty"`
}

// status returns the expected status.
func (e Expect) status() (wire.Status, error) {
	if e.Status == "" {
		return wire.StatusSuccess, nil
	}
	s, ok := wire.ParseStatus(e.Status)
	if !ok {
		return 0, fmt.Errorf("unknown status %q", e.Status)
	}
	return s, nil
}

// Result is the outcome of a sequence run.
type Result struct {
	// Sequence is the sequence that was run.
	Sequence *Sequence

	// Passed is true when every step met its expectation.
	Passed bool

	// Steps has one entry per executed step.
	Steps []*StepResult

	// Vars holds the variables at the end of the run.
	Vars map[string]any

	StartTime time.Time
	Duration  time.Duration
}

// Failed returns the step that stopped the run, or nil.
func (r *Result) Failed() *StepResult {
	for _, s := range r.Steps {
		if !s.Passed {
			return s
		}
	}
	return nil
}

// StepResult is the outcome of a single step.
type StepResult struct {
	// Step is the step that was executed.
	Step *Step

	// Index is the position of the step (0-based).
	Index int

	// Status is the kind the step ended with.
	Status wire.Status

	// Error is the error returned by the operation, if any.
	Error error

	// Outputs are the values the step produced.
	Outputs map[string]any

	// Passed is true when the expectation was met.
	Passed bool

	// Failure describes the unmet expectation.
	Failure string

	Duration time.Duration
}

// LoadError provides details about a sequence loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Step is the 1-based step number, or 0.
	Step int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Step > 0 {
		msg = fmt.Sprintf("step %d: %s", e.Step, msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
