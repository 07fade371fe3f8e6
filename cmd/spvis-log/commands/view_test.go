package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/wire"
)

func TestFormatFrameEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[sess:sess-111]",
		"IN ",
		"TRANSPORT Frame",
		"Size: 7 bytes",
		"Data: a10102",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatMessageEvents(t *testing.T) {
	events := sampleEvents()

	var buf bytes.Buffer
	formatEvent(&buf, events[1])
	output := buf.String()
	for _, want := range []string{"WIRE REQUEST dev=0", "MessageID: 7", "Operation: Measure"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in request output, got:\n%s", want, output)
		}
	}

	buf.Reset()
	formatEvent(&buf, events[2])
	output = buf.String()
	for _, want := range []string{"RESPONSE", "Status: SUCCESS (0)", "Duration: 1.500ms"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in response output, got:\n%s", want, output)
		}
	}
}

func TestFormatCallEvent(t *testing.T) {
	events := sampleEvents()

	var buf bytes.Buffer
	formatEvent(&buf, events[3])
	output := buf.String()
	for _, want := range []string{"SERVICE Call dev=0 sn=SIM-0001", "Operation: Measure", "Duration: 2.000ms", "Integration: 100ms x1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}

	buf.Reset()
	formatEvent(&buf, events[4])
	output = buf.String()
	if !strings.Contains(output, "INVALID_ACTIVATION") || !strings.Contains(output, "local") {
		t.Errorf("expected local rejection, got:\n%s", output)
	}
	if strings.Contains(output, "Duration:") {
		t.Errorf("local call should not print a duration, got:\n%s", output)
	}
}

func TestFormatStateAndError(t *testing.T) {
	events := sampleEvents()

	var buf bytes.Buffer
	formatEvent(&buf, events[5])
	output := buf.String()
	for _, want := range []string{"Entity: DEVICE", "open -> closed", "Reason: Done"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}

	buf.Reset()
	formatEvent(&buf, events[6])
	output = buf.String()
	for _, want := range []string{"Error", "Message: connection lost", "Context: readLoop"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Wire"); err != nil || l != log.LayerWire {
		t.Errorf("ParseLayerFlag(Wire) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("session"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("call"); err != nil || c != log.CategoryCall {
		t.Errorf("ParseCategoryFlag(call) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("control"); err == nil {
		t.Error("expected error for unknown category")
	}
	if op, err := ParseOperationFlag("measuredata"); err != nil || op != wire.OpMeasureData {
		t.Errorf("ParseOperationFlag(measuredata) = %v, %v", op, err)
	}
	if _, err := ParseOperationFlag("Unknown"); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[sess:"); got != 7 {
		t.Errorf("expected 7 events, got %d", got)
	}

	layer := log.LayerService
	buf.Reset()
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[sess:"); got != 4 {
		t.Errorf("expected 4 service events, got %d", got)
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{FailedOnly: true}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if got := strings.Count(output, "[sess:"); got != 2 {
		t.Errorf("expected 2 failed events, got %d:\n%s", got, output)
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{DeviceIndex: log.Index(1)}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if !strings.Contains(buf.String(), "sn=SIM-0002") || strings.Contains(buf.String(), "SIM-0001") {
		t.Errorf("expected only device 1, got:\n%s", buf.String())
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("does-not-exist"+log.FileExt, ViewFilter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
