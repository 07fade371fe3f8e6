package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/spvis/spvis-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()
	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return events
}

func testEvents(base time.Time) []Event {
	op := wire.OpGetSpectrum
	bad := wire.StatusInvalidParameter
	return []Event{
		{Timestamp: base, SessionID: "a", Layer: LayerService, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntitySession, NewState: "INITIALIZED"}},
		{Timestamp: base.Add(time.Second), SessionID: "a", Layer: LayerService, Category: CategoryCall,
			DeviceIndex: Index(0), Serial: "SIM-0001",
			Call: &CallEvent{Operation: wire.OpMeasure, Status: wire.StatusSuccess}},
		{Timestamp: base.Add(2 * time.Second), SessionID: "a", Layer: LayerService, Category: CategoryCall,
			DeviceIndex: Index(1), Serial: "SIM-0002",
			Call: &CallEvent{Operation: wire.OpMeasure, Status: wire.StatusInvalidActivation, Local: true}},
		{Timestamp: base.Add(3 * time.Second), SessionID: "b", Direction: DirectionIn, Layer: LayerWire,
			Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeRequest, MessageID: 1, Operation: &op}},
		{Timestamp: base.Add(4 * time.Second), SessionID: "b", Direction: DirectionOut, Layer: LayerWire,
			Category: CategoryMessage,
			Message: &MessageEvent{Type: MessageTypeResponse, MessageID: 1, Status: &bad}},
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	path := createTestLogFile(t, testEvents(time.Now()))

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var n int
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		n++
	}
	if n != 5 {
		t.Errorf("got %d events, want 5", n)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Now()
	path := createTestLogFile(t, testEvents(base))

	call := CategoryCall
	wireLayer := LayerWire
	measure := wire.OpMeasure
	get := wire.OpGetSpectrum
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"session", Filter{SessionID: "b"}, 2},
		{"category", Filter{Category: &call}, 2},
		{"layer", Filter{Layer: &wireLayer}, 2},
		{"device", Filter{DeviceIndex: Index(1)}, 1},
		{"serial", Filter{Serial: "SIM-0001"}, 1},
		{"operation call", Filter{Operation: &measure}, 2},
		{"operation message", Filter{Operation: &get}, 1},
		{"failed", Filter{FailedOnly: true}, 2},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{Category: &call, FailedOnly: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(readAll(t, path, tt.filter)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing"+FileExt)); err == nil {
		t.Error("expected error for missing file")
	}
}
