package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/spvis/spvis-go/pkg/wire"
)

func TestEncodeDecodeCallEvent(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	event := Event{
		Timestamp:   ts,
		SessionID:   "sess-1",
		Direction:   DirectionOut,
		Layer:       LayerService,
		Category:    CategoryCall,
		DeviceIndex: Index(1),
		Serial:      "SIM-0002",
		Call: &CallEvent{
			Operation:     wire.OpMeasure,
			Status:        wire.StatusInvalidIntegrationTime,
			Duration:      1500 * time.Millisecond,
			IntegrationMs: 120,
			Averaging:     4,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", got.Timestamp, ts)
	}
	if got.DeviceIndex == nil || *got.DeviceIndex != 1 {
		t.Errorf("DeviceIndex: got %v, want 1", got.DeviceIndex)
	}
	if got.Call == nil {
		t.Fatal("Call is nil")
	}
	if got.Call.Status != wire.StatusInvalidIntegrationTime {
		t.Errorf("Status: got %v", got.Call.Status)
	}
	if got.Call.Duration != 1500*time.Millisecond {
		t.Errorf("Duration: got %v", got.Call.Duration)
	}
	if got.Call.Averaging != 4 {
		t.Errorf("Averaging: got %d", got.Call.Averaging)
	}
}

func TestEncodeDecodeMessageEvent(t *testing.T) {
	op := wire.OpGetSpectrum
	st := wire.StatusSuccess
	pt := 3 * time.Millisecond
	event := Event{
		Timestamp: time.Now(),
		SessionID: "conn-7",
		LocalRole: RoleBridge,
		Layer:     LayerWire,
		Message: &MessageEvent{
			Type:           MessageTypeResponse,
			MessageID:      42,
			Operation:      &op,
			Status:         &st,
			ProcessingTime: &pt,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if got.LocalRole != RoleBridge {
		t.Errorf("LocalRole: got %v", got.LocalRole)
	}
	if got.Message == nil || got.Message.MessageID != 42 {
		t.Fatalf("Message: got %+v", got.Message)
	}
	if *got.Message.Operation != wire.OpGetSpectrum {
		t.Errorf("Operation: got %v", *got.Message.Operation)
	}
	if *got.Message.ProcessingTime != pt {
		t.Errorf("ProcessingTime: got %v", *got.Message.ProcessingTime)
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	small := NewFrameEvent([]byte{1, 2, 3})
	if small.Size != 7 || small.Truncated || len(small.Data) != 3 {
		t.Errorf("small frame: got %+v", small)
	}

	big := NewFrameEvent(make([]byte, 4096))
	if big.Size != 4100 {
		t.Errorf("Size: got %d, want 4100", big.Size)
	}
	if !big.Truncated || len(big.Data) != MaxFrameData {
		t.Errorf("big frame not truncated: len=%d truncated=%v", len(big.Data), big.Truncated)
	}
}

func TestStringers(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerService.String(), "SERVICE"},
		{CategoryCall.String(), "CALL"},
		{RoleClient.String(), "CLIENT"},
		{MessageTypeRequest.String(), "REQUEST"},
		{StateEntityDevice.String(), "DEVICE"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestEventStreamTruncated(t *testing.T) {
	var buf bytes.Buffer
	w := newEventWriter(&buf)
	for i := range 2 {
		if err := w.write(Event{SessionID: "sess-1", DeviceIndex: Index(i), Category: CategoryCall}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	// Drop the tail of the second record, as a crash mid-write would.
	data := buf.Bytes()[:buf.Len()-2]
	r := newEventReader(bytes.NewReader(data))

	first, err := r.read()
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if first.DeviceIndex == nil || *first.DeviceIndex != 0 {
		t.Errorf("first DeviceIndex: got %v, want 0", first.DeviceIndex)
	}
	_, err = r.read()
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("truncated record: got %v, want a decode error", err)
	}
}
