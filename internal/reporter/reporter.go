// Package reporter formats sequence run results.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spvis/spvis-go/pkg/sequence"
)

// Run is the outcome of running one or more sequences.
type Run struct {
	// Name labels the run, e.g. the target address.
	Name string

	Results  []*sequence.Result
	Duration time.Duration
}

// PassCount returns the number of passed sequences.
func (r *Run) PassCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// FailCount returns the number of failed sequences.
func (r *Run) FailCount() int {
	return len(r.Results) - r.PassCount()
}

// Reporter formats and outputs run results.
type Reporter interface {
	// ReportRun reports all sequences of a run.
	ReportRun(run *Run)

	// ReportSequence reports a single sequence.
	ReportSequence(result *sequence.Result)
}

// New returns the reporter for format: "text", "json" or "junit".
func New(format string, w io.Writer, verbose bool) (Reporter, error) {
	switch format {
	case "", "text":
		return NewTextReporter(w, verbose), nil
	case "json":
		return NewJSONReporter(w, verbose), nil
	case "junit":
		return NewJUnitReporter(w), nil
	}
	return nil, fmt.Errorf("unknown report format %q (use text, json or junit)", format)
}

func stepFailure(sr *sequence.StepResult) string {
	if sr.Failure != "" {
		return sr.Failure
	}
	if sr.Error != nil {
		return sr.Error.Error()
	}
	return ""
}

// TextReporter outputs human-readable text reports.
type TextReporter struct {
	writer  io.Writer
	verbose bool
}

// NewTextReporter creates a new text reporter. Verbose output lists every
// step with its outputs.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{
		writer:  w,
		verbose: verbose,
	}
}

// ReportRun reports run results in text format.
func (r *TextReporter) ReportRun(run *Run) {
	fmt.Fprintf(r.writer, "\n=== Run: %s ===\n", run.Name)
	fmt.Fprintf(r.writer, "Duration: %s\n\n", run.Duration.Round(time.Millisecond))

	for _, res := range run.Results {
		r.ReportSequence(res)
	}

	fmt.Fprintf(r.writer, "\n--- Summary ---\n")
	fmt.Fprintf(r.writer, "Total:   %d\n", len(run.Results))
	fmt.Fprintf(r.writer, "Passed:  %d\n", run.PassCount())
	fmt.Fprintf(r.writer, "Failed:  %d\n", run.FailCount())
}

// ReportSequence reports a single sequence in text format.
func (r *TextReporter) ReportSequence(result *sequence.Result) {
	status := "PASS"
	if !result.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(r.writer, "[%s] %s - %d/%d steps (%s)\n", status, result.Sequence.Name,
		len(result.Steps), len(result.Sequence.Steps), result.Duration.Round(time.Millisecond))

	if failed := result.Failed(); failed != nil && !r.verbose {
		fmt.Fprintf(r.writer, "       Step %d (%s): %s\n", failed.Index+1, failed.Step.Action, stepFailure(failed))
	}

	if !r.verbose {
		return
	}
	for _, sr := range result.Steps {
		stepStatus := "PASS"
		if !sr.Passed {
			stepStatus = "FAIL"
		}
		fmt.Fprintf(r.writer, "    [%s] Step %d: %s %s (%s)\n",
			stepStatus, sr.Index+1, sr.Step.Action, sr.Status, sr.Duration.Round(time.Millisecond))
		if !sr.Passed {
			fmt.Fprintf(r.writer, "           %s\n", stepFailure(sr))
		}
		for _, key := range sortedKeys(sr.Outputs) {
			fmt.Fprintf(r.writer, "           %s = %s\n", key, formatValue(sr.Outputs[key]))
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// formatValue shortens arrays to their length and end points.
func formatValue(v any) string {
	if vs, ok := v.([]float64); ok {
		switch len(vs) {
		case 0:
			return "[]"
		case 1:
			return fmt.Sprintf("[%g]", vs[0])
		}
		return fmt.Sprintf("[%d values, %g .. %g]", len(vs), vs[0], vs[len(vs)-1])
	}
	return fmt.Sprint(v)
}

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: w,
		pretty: pretty,
	}
}

// JSONRunResult is the JSON representation of run results.
type JSONRunResult struct {
	Name      string               `json:"name"`
	Duration  string               `json:"duration"`
	Total     int                  `json:"total"`
	Passed    int                  `json:"passed"`
	Failed    int                  `json:"failed"`
	Sequences []JSONSequenceResult `json:"sequences"`
}

// JSONSequenceResult is the JSON representation of a sequence result.
type JSONSequenceResult struct {
	Name     string           `json:"name"`
	Status   string           `json:"status"`
	Duration string           `json:"duration"`
	Steps    []JSONStepResult `json:"steps,omitempty"`
	Vars     map[string]any   `json:"vars,omitempty"`
}

// JSONStepResult is the JSON representation of a step result.
type JSONStepResult struct {
	Index    int            `json:"index"`
	Action   string         `json:"action"`
	Status   string         `json:"status"`
	Kind     string         `json:"kind"`
	Duration string         `json:"duration"`
	Failure  string         `json:"failure,omitempty"`
	Outputs  map[string]any `json:"outputs,omitempty"`
}

// ReportRun reports run results in JSON format.
func (r *JSONReporter) ReportRun(run *Run) {
	jr := JSONRunResult{
		Name:      run.Name,
		Duration:  run.Duration.Round(time.Millisecond).String(),
		Total:     len(run.Results),
		Passed:    run.PassCount(),
		Failed:    run.FailCount(),
		Sequences: make([]JSONSequenceResult, 0, len(run.Results)),
	}
	for _, res := range run.Results {
		jr.Sequences = append(jr.Sequences, sequenceToJSON(res))
	}
	r.writeJSON(jr)
}

// ReportSequence reports a single sequence in JSON format.
func (r *JSONReporter) ReportSequence(result *sequence.Result) {
	r.writeJSON(sequenceToJSON(result))
}

func sequenceToJSON(result *sequence.Result) JSONSequenceResult {
	status := "passed"
	if !result.Passed {
		status = "failed"
	}
	js := JSONSequenceResult{
		Name:     result.Sequence.Name,
		Status:   status,
		Duration: result.Duration.Round(time.Millisecond).String(),
		Vars:     result.Vars,
	}
	for _, sr := range result.Steps {
		stepStatus := "passed"
		if !sr.Passed {
			stepStatus = "failed"
		}
		js.Steps = append(js.Steps, JSONStepResult{
			Index:    sr.Index,
			Action:   sr.Step.Action,
			Status:   stepStatus,
			Kind:     sr.Status.String(),
			Duration: sr.Duration.Round(time.Millisecond).String(),
			Failure:  sr.Failure,
			Outputs:  sr.Outputs,
		})
	}
	return js
}

func (r *JSONReporter) writeJSON(v any) {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		fmt.Fprintf(r.writer, `{"error": "failed to marshal: %s"}`+"\n", err)
		return
	}

	fmt.Fprintln(r.writer, string(data))
}

// JUnitReporter outputs JUnit XML for CI integration. Each sequence is a
// test case.
type JUnitReporter struct {
	writer io.Writer
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

// ReportRun reports run results in JUnit XML format.
func (r *JUnitReporter) ReportRun(run *Run) {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	fmt.Fprintf(&b, `<testsuite name="%s" tests="%d" failures="%d" time="%.3f">`,
		escapeXML(run.Name), len(run.Results), run.FailCount(), run.Duration.Seconds())
	b.WriteString("\n")

	for _, res := range run.Results {
		fmt.Fprintf(&b, `  <testcase name="%s" classname="%s" time="%.3f">`,
			escapeXML(res.Sequence.Name), escapeXML(run.Name), res.Duration.Seconds())
		b.WriteString("\n")

		if failed := res.Failed(); failed != nil {
			fmt.Fprintf(&b, `    <failure message="%s">`, escapeXML(stepFailure(failed)))
			b.WriteString("\n      <![CDATA[")
			for _, sr := range res.Steps {
				fmt.Fprintf(&b, "Step %d (%s): %s", sr.Index+1, sr.Step.Action, sr.Status)
				if !sr.Passed {
					fmt.Fprintf(&b, ": %s", stepFailure(sr))
				}
				b.WriteString("\n")
			}
			b.WriteString("]]>\n")
			b.WriteString("    </failure>\n")
		} else if !res.Passed {
			b.WriteString(`    <failure message="sequence did not complete"/>`)
			b.WriteString("\n")
		}

		b.WriteString("  </testcase>\n")
	}

	b.WriteString("</testsuite>\n")
	fmt.Fprint(r.writer, b.String())
}

// ReportSequence reports one sequence wrapped in a minimal test suite.
func (r *JUnitReporter) ReportSequence(result *sequence.Result) {
	r.ReportRun(&Run{
		Name:     result.Sequence.Name,
		Results:  []*sequence.Result{result},
		Duration: result.Duration,
	})
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
