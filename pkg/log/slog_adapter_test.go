package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/spvis/spvis-go/pkg/wire"
)

func logJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsCallEvent(t *testing.T) {
	entry := logJSON(t, Event{
		Timestamp:   time.Now(),
		SessionID:   "sess-1",
		Layer:       LayerService,
		Category:    CategoryCall,
		DeviceIndex: Index(0),
		Call: &CallEvent{
			Operation:     wire.OpGetSpectrum,
			Status:        wire.StatusSuccess,
			IntegrationMs: 50,
			Averaging:     2,
		},
	})

	if entry["session_id"] != "sess-1" {
		t.Errorf("session_id: got %v", entry["session_id"])
	}
	if entry["operation"] != "GetSpectrum" {
		t.Errorf("operation: got %v", entry["operation"])
	}
	if entry["status"] != "SUCCESS" {
		t.Errorf("status: got %v", entry["status"])
	}
	if entry["device"] != float64(0) {
		t.Errorf("device: got %v", entry["device"])
	}
	if entry["integration_ms"] != float64(50) {
		t.Errorf("integration_ms: got %v", entry["integration_ms"])
	}
}

func TestSlogAdapterLogsErrorEvent(t *testing.T) {
	code := int(wire.StatusFileNotFound)
	entry := logJSON(t, Event{
		Timestamp: time.Now(),
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerService,
			Message: "license missing",
			Code:    &code,
			Context: "Activate",
		},
	})

	if entry["error_msg"] != "license missing" {
		t.Errorf("error_msg: got %v", entry["error_msg"])
	}
	if entry["error_code"] != float64(-24) {
		t.Errorf("error_code: got %v", entry["error_code"])
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	entry := logJSON(t, Event{
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityDevice,
			OldState: "INACTIVE",
			NewState: "ACTIVE",
		},
	})
	if entry["new_state"] != "ACTIVE" || entry["entity"] != "DEVICE" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
