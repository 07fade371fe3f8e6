package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/spvis/spvis-go/pkg/wire"
)

// Filter specifies criteria for filtering events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// SessionID filters by exact session ID match.
	SessionID string

	// Direction filters by message direction.
	Direction *Direction

	// Layer filters by layer.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time

	// DeviceIndex filters by addressed device.
	DeviceIndex *int

	// Serial filters by device serial number.
	Serial string

	// Operation filters call and request events by operation.
	Operation *wire.Operation

	// FailedOnly keeps only error events and calls with a non-success status.
	FailedOnly bool
}

// Matches returns true if the event matches all filter criteria.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.DeviceIndex != nil && (event.DeviceIndex == nil || *event.DeviceIndex != *f.DeviceIndex) {
		return false
	}
	if f.Serial != "" && event.Serial != f.Serial {
		return false
	}
	if f.Operation != nil {
		op, ok := event.operation()
		if !ok || op != *f.Operation {
			return false
		}
	}
	if f.FailedOnly && !event.Failed() {
		return false
	}
	return true
}

func (e Event) operation() (wire.Operation, bool) {
	switch {
	case e.Call != nil:
		return e.Call.Operation, true
	case e.Message != nil && e.Message.Operation != nil:
		return *e.Message.Operation, true
	}
	return 0, false
}

// Failed reports whether the event records a failure.
func (e Event) Failed() bool {
	switch {
	case e.Error != nil:
		return true
	case e.Call != nil:
		return e.Call.Status.IsError()
	case e.Message != nil && e.Message.Status != nil:
		return e.Message.Status.IsError()
	}
	return false
}

// Reader reads events from a capture file.
type Reader struct {
	file   *os.File
	events *eventReader
	filter Filter
}

// NewReader creates a Reader that reads all events from the file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that reads events matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:   f,
		events: newEventReader(f),
		filter: filter,
	}, nil
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	for {
		event, err := r.events.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// ReadAll returns the remaining matching events.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
