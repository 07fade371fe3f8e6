package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExt)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

// sampleEvents is a short bridge exchange followed by the session's view of it.
func sampleEvents() []log.Event {
	measure := wire.OpMeasure
	ok := wire.StatusSuccess
	took := 1500 * time.Microsecond
	return []log.Event{
		{
			Timestamp: testTime,
			SessionID: "sess-1111-2222",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryMessage,
			Frame:     log.NewFrameEvent([]byte{0xa1, 0x01, 0x02}),
		},
		{
			Timestamp:   testTime.Add(time.Millisecond),
			SessionID:   "sess-1111-2222",
			Direction:   log.DirectionIn,
			Layer:       log.LayerWire,
			Category:    log.CategoryMessage,
			LocalRole:   log.RoleBridge,
			RemoteAddr:  "192.168.1.20:50123",
			DeviceIndex: log.Index(0),
			Message:     &log.MessageEvent{Type: log.MessageTypeRequest, MessageID: 7, Operation: &measure},
		},
		{
			Timestamp:   testTime.Add(3 * time.Millisecond),
			SessionID:   "sess-1111-2222",
			Direction:   log.DirectionOut,
			Layer:       log.LayerWire,
			Category:    log.CategoryMessage,
			LocalRole:   log.RoleBridge,
			DeviceIndex: log.Index(0),
			Message:     &log.MessageEvent{Type: log.MessageTypeResponse, MessageID: 7, Status: &ok, ProcessingTime: &took},
		},
		{
			Timestamp:   testTime.Add(4 * time.Millisecond),
			SessionID:   "sess-3333-4444",
			Direction:   log.DirectionOut,
			Layer:       log.LayerService,
			Category:    log.CategoryCall,
			DeviceIndex: log.Index(0),
			Serial:      "SIM-0001",
			Call: &log.CallEvent{
				Operation:     wire.OpMeasure,
				Status:        wire.StatusSuccess,
				Duration:      2 * time.Millisecond,
				IntegrationMs: 100,
				Averaging:     1,
			},
		},
		{
			Timestamp:   testTime.Add(5 * time.Millisecond),
			SessionID:   "sess-3333-4444",
			Direction:   log.DirectionOut,
			Layer:       log.LayerService,
			Category:    log.CategoryCall,
			DeviceIndex: log.Index(1),
			Serial:      "SIM-0002",
			Call: &log.CallEvent{
				Operation: wire.OpMeasure,
				Status:    wire.StatusInvalidActivation,
				Local:     true,
			},
		},
		{
			Timestamp: testTime.Add(6 * time.Millisecond),
			SessionID: "sess-3333-4444",
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityDevice,
				OldState: "open",
				NewState: "closed",
				Reason:   "Done",
			},
		},
		{
			Timestamp: testTime.Add(7 * time.Millisecond),
			SessionID: "sess-3333-4444",
			Layer:     log.LayerService,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerService, Message: "connection lost", Context: "readLoop"},
		},
	}
}
