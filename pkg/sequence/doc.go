// Package sequence loads measurement sequences from YAML and runs them
// against a session.Manager.
//
// A sequence is a list of steps. Each step names an action (one per session
// operation plus wait), its parameters and the expected outcome:
//
//	name: lamp-check
//	vars:
//	  license: /opt/spvis/LDA-G40090129.spt
//	steps:
//	  - action: init
//	    expect: {count: 1}
//	  - action: activate
//	    params: {license: "{{ license }}"}
//	  - action: measure
//	    params: {integration_ms: 100, averaging: 5}
//	    expect: {min: 0.05, max: 0.95}
//	  - action: metric
//	    params: {metric: peak_wavelength}
//	  - action: done_all
//
// expect.status names the kind a step must end with (default SUCCESS), so
// a step can assert a failure such as INVALID_ACTIVATION. Step outputs
// (serial, path, value, ...) are stored as variables and can be referenced
// from later parameters with {{ name }}. The first unmet expectation stops
// the run.
package sequence
