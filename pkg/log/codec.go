package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// A capture file is a plain sequence of CBOR items, one per Event, with
// no header or index. A file cut short by a crash reads back up to its
// last complete event.
var (
	captureEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})

	// Captures from other spvis versions may carry fields this one
	// does not know.
	captureDec = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	mode, err := opts.EncMode()
	if err != nil {
		panic("log: capture encoding: " + err.Error())
	}
	return mode
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	mode, err := opts.DecMode()
	if err != nil {
		panic("log: capture decoding: " + err.Error())
	}
	return mode
}

// EncodeEvent returns the capture record for one event.
func EncodeEvent(event Event) ([]byte, error) {
	return captureEnc.Marshal(event)
}

// DecodeEvent parses a single capture record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := captureDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// eventWriter appends capture records to a stream.
type eventWriter struct {
	enc *cbor.Encoder
}

func newEventWriter(w io.Writer) *eventWriter {
	return &eventWriter{enc: captureEnc.NewEncoder(w)}
}

func (w *eventWriter) write(event Event) error {
	return w.enc.Encode(event)
}

// eventReader reads capture records from a stream until io.EOF.
type eventReader struct {
	dec *cbor.Decoder
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{dec: captureDec.NewDecoder(r)}
}

func (r *eventReader) read() (Event, error) {
	var event Event
	if err := r.dec.Decode(&event); err != nil {
		return Event{}, err
	}
	return event, nil
}
