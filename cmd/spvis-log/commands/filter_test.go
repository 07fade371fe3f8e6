package commands

import (
	"path/filepath"
	"testing"

	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/wire"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return events
}

func TestFilterBySession(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered"+log.FileExt)

	n, err := RunFilter(path, FilterOptions{Output: out, SessionID: "sess-1111-2222"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 events, got %d", n)
	}
	for _, e := range readAll(t, out) {
		if e.SessionID != "sess-1111-2222" {
			t.Errorf("unexpected session %s", e.SessionID)
		}
	}
}

func TestFilterByOperationAndDevice(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered"+log.FileExt)

	n, err := RunFilter(path, FilterOptions{Output: out, Operation: "measure", DeviceIndex: "1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	events := readAll(t, out)
	if events[0].Call == nil || events[0].Call.Status != wire.StatusInvalidActivation {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestFilterFailedOnly(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered"+log.FileExt)

	n, err := RunFilter(path, FilterOptions{Output: out, FailedOnly: true, Layer: "service"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
}

func TestFilterByTimeRange(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered"+log.FileExt)

	n, err := RunFilter(path, FilterOptions{
		Output:    out,
		TimeStart: "2026-01-28T10:15:32Z",
		TimeEnd:   "2026-01-28T10:15:33Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 events, got %d", n)
	}

	n, err = RunFilter(path, FilterOptions{Output: out, TimeStart: "2026-01-28T10:16:00Z"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 events, got %d", n)
	}
}

func TestBuildFilterErrors(t *testing.T) {
	cases := []FilterOptions{
		{DeviceIndex: "x"},
		{DeviceIndex: "-1"},
		{Operation: "Subscribe"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
		{Layer: "zone"},
		{Direction: "up"},
		{Category: "snapshot"},
	}
	for _, opts := range cases {
		if _, err := BuildFilter(opts); err == nil {
			t.Errorf("BuildFilter(%+v): expected error", opts)
		}
	}
}
