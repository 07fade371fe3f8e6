package reporter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spvis/spvis-go/internal/reporter"
	"github.com/spvis/spvis-go/pkg/sequence"
	"github.com/spvis/spvis-go/pkg/wire"
)

func createResult(name string, passed bool) *sequence.Result {
	seq := &sequence.Sequence{
		Name: name,
		Steps: []sequence.Step{
			{Action: "init"},
			{Action: "measure"},
			{Action: "done_all"},
		},
	}
	res := &sequence.Result{
		Sequence: seq,
		Passed:   passed,
		Duration: 120 * time.Millisecond,
		Steps: []*sequence.StepResult{
			{
				Step:     &seq.Steps[0],
				Index:    0,
				Status:   wire.StatusSuccess,
				Passed:   true,
				Outputs:  map[string]any{"count": 2},
				Duration: 10 * time.Millisecond,
			},
		},
	}
	if passed {
		res.Steps = append(res.Steps,
			&sequence.StepResult{
				Step:    &seq.Steps[1],
				Index:   1,
				Status:  wire.StatusSuccess,
				Passed:  true,
				Outputs: map[string]any{"value": 0.42, "spectrum": []float64{1, 2, 3}},
			},
			&sequence.StepResult{Step: &seq.Steps[2], Index: 2, Status: wire.StatusSuccess, Passed: true},
		)
		return res
	}
	res.Steps = append(res.Steps, &sequence.StepResult{
		Step:    &seq.Steps[1],
		Index:   1,
		Status:  wire.StatusInvalidActivation,
		Error:   errors.New("device not activated"),
		Failure: "status INVALID_ACTIVATION, want SUCCESS: device not activated",
	})
	return res
}

func createRun() *reporter.Run {
	return &reporter.Run{
		Name: "simulator",
		Results: []*sequence.Result{
			createResult("lamp-check", true),
			createResult("dark-<check>", false),
		},
		Duration: 300 * time.Millisecond,
	}
}

func TestRunCounts(t *testing.T) {
	run := createRun()
	if run.PassCount() != 1 || run.FailCount() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", run.PassCount(), run.FailCount())
	}
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewTextReporter(&buf, false).ReportRun(createRun())
	output := buf.String()

	for _, want := range []string{
		"=== Run: simulator ===",
		"[PASS] lamp-check - 3/3 steps",
		"[FAIL] dark-<check> - 2/3 steps",
		"Step 2 (measure): status INVALID_ACTIVATION",
		"Total:   2",
		"Passed:  1",
		"Failed:  1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "[PASS] Step 1") {
		t.Error("step details without verbose")
	}
}

func TestTextReporterVerbose(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewTextReporter(&buf, true).ReportSequence(createResult("lamp-check", true))
	output := buf.String()

	for _, want := range []string{
		"[PASS] Step 1: init SUCCESS",
		"count = 2",
		"[PASS] Step 2: measure SUCCESS",
		"spectrum = [3 values, 1 .. 3]",
		"value = 0.42",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJSONReporter(&buf, true).ReportRun(createRun())

	var result reporter.JSONRunResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if result.Name != "simulator" || result.Total != 2 || result.Passed != 1 || result.Failed != 1 {
		t.Errorf("unexpected summary %+v", result)
	}
	if len(result.Sequences) != 2 {
		t.Fatalf("Expected 2 sequences, got %d", len(result.Sequences))
	}
	failed := result.Sequences[1]
	if failed.Status != "failed" {
		t.Errorf("Expected failed, got %s", failed.Status)
	}
	if len(failed.Steps) != 2 || failed.Steps[1].Kind != "INVALID_ACTIVATION" {
		t.Errorf("unexpected steps %+v", failed.Steps)
	}
	if failed.Steps[1].Failure == "" {
		t.Error("missing failure text")
	}
}

func TestJSONReporterSingleSequence(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJSONReporter(&buf, false).ReportSequence(createResult("lamp-check", true))

	var js reporter.JSONSequenceResult
	if err := json.Unmarshal(buf.Bytes(), &js); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if js.Name != "lamp-check" || js.Status != "passed" || len(js.Steps) != 3 {
		t.Errorf("unexpected result %+v", js)
	}
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJUnitReporter(&buf).ReportRun(createRun())
	output := buf.String()

	if !strings.HasPrefix(output, `<?xml version="1.0"`) {
		t.Error("Missing XML header")
	}
	for _, want := range []string{
		`<testsuite name="simulator" tests="2" failures="1"`,
		`<testcase name="lamp-check" classname="simulator"`,
		`<testcase name="dark-&lt;check&gt;"`,
		`<failure message="status INVALID_ACTIVATION, want SUCCESS: device not activated">`,
		"Step 1 (init): SUCCESS",
		"</testsuite>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "text", "json", "junit"} {
		if _, err := reporter.New(format, &bytes.Buffer{}, false); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	if _, err := reporter.New("xml", &bytes.Buffer{}, false); err == nil {
		t.Error("expected error for unknown format")
	}
}
