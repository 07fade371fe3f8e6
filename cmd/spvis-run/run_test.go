package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spvis/spvis-go/internal/reporter"
	"github.com/spvis/spvis-go/pkg/log"
)

const lampCheck = `
name: lamp-check
steps:
  - action: init
    expect: {count: 2}
  - action: activate
    params: {license: "{{ license }}"}
  - action: auto_dark
    params: {max_integration_ms: 200}
  - action: measure
    params: {integration_ms: "{{ ms }}", averaging: 2}
  - action: metric
    params: {metric: peak_wavelength}
    expect: {min: 340, max: 1020}
`

const secondDevice = `
name: second-device
steps:
  - action: init
  - action: activate
    params: {index: 1, license: "{{ license_1 }}"}
  - action: device_info
    params: {index: 1}
    expect: {outputs: {serial: SIM-0002}}
`

const wrongLicense = `
name: wrong-license
steps:
  - action: init
  - action: activate
    params: {index: 1, license: "{{ license_0 }}"}
`

func writeSequence(t *testing.T, dir, name, doc string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(doc), 0644))
	return p
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.SleepScale = 0
	cfg.Vars = map[string]string{"ms": "50"}
	return cfg
}

func TestRunPasses(t *testing.T) {
	dir := t.TempDir()
	lamp := writeSequence(t, dir, "lamp.yaml", lampCheck)
	second := writeSequence(t, dir, "second.yaml", secondDevice)

	var out bytes.Buffer
	passed, err := run(context.Background(), testConfig(), []string{lamp, second}, &out, nil)
	require.NoError(t, err)
	assert.True(t, passed, out.String())
	assert.Contains(t, out.String(), "[PASS] lamp-check - 5/5 steps")
	assert.Contains(t, out.String(), "[PASS] second-device - 3/3 steps")
	assert.Contains(t, out.String(), "=== Run: simulator ===")
}

func TestRunDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, "a.yaml", lampCheck)
	writeSequence(t, dir, "b.yaml", wrongLicense)
	writeSequence(t, dir, "notes.txt", "ignored")

	cfg := testConfig()
	cfg.Format = "json"
	var out bytes.Buffer
	passed, err := run(context.Background(), cfg, []string{dir}, &out, nil)
	require.NoError(t, err)
	assert.False(t, passed)

	var res reporter.JSONRunResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Sequences, 2)
	assert.Equal(t, "wrong-license", res.Sequences[1].Name)
	assert.Equal(t, "INVALID_DEVICE_ID", res.Sequences[1].Steps[1].Kind)
}

func TestRunFailFast(t *testing.T) {
	dir := t.TempDir()
	bad := writeSequence(t, dir, "bad.yaml", wrongLicense)
	good := writeSequence(t, dir, "good.yaml", secondDevice)

	cfg := testConfig()
	cfg.FailFast = true
	var out bytes.Buffer
	passed, err := run(context.Background(), cfg, []string{bad, good}, &out, nil)
	require.NoError(t, err)
	assert.False(t, passed)
	assert.Contains(t, out.String(), "Total:   1")
	assert.NotContains(t, out.String(), "second-device")
}

func TestRunWritesProtocolLog(t *testing.T) {
	dir := t.TempDir()
	lamp := writeSequence(t, dir, "lamp.yaml", lampCheck)

	cfg := testConfig()
	cfg.ProtocolLog = filepath.Join(dir, "run"+log.FileExt)
	passed, err := run(context.Background(), cfg, []string{lamp}, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	require.True(t, passed)

	r, err := log.NewReader(cfg.ProtocolLog)
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestRunSetupErrors(t *testing.T) {
	dir := t.TempDir()
	lamp := writeSequence(t, dir, "lamp.yaml", lampCheck)
	ctx := context.Background()

	_, err := run(ctx, testConfig(), []string{filepath.Join(dir, "missing.yaml")}, &bytes.Buffer{}, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Format = "html"
	_, err = run(ctx, cfg, []string{lamp}, &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "unknown report format")

	invalid := writeSequence(t, dir, "invalid.yaml", "name: x\nsteps:\n  - action: fly\n")
	_, err = run(ctx, testConfig(), []string{invalid}, &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "unknown action fly")

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0755))
	_, err = run(ctx, testConfig(), []string{empty}, &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "no sequences")
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars(map[string]string{
		"ms":      "12.5",
		"avg":     "3",
		"enabled": "true",
		"path":    "/tmp/a.lic",
		"blank":   "",
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, vars["ms"])
	assert.Equal(t, 3, vars["avg"])
	assert.Equal(t, true, vars["enabled"])
	assert.Equal(t, "/tmp/a.lic", vars["path"])
	assert.Equal(t, "", vars["blank"])
}

func TestVarFlag(t *testing.T) {
	var vars map[string]string
	f := varFlag{&vars}
	require.NoError(t, f.Set("a=1"))
	require.NoError(t, f.Set("path=/x=y"))
	assert.Equal(t, map[string]string{"a": "1", "path": "/x=y"}, vars)
	assert.Error(t, f.Set("novalue"))
	assert.Error(t, f.Set("=1"))
}
