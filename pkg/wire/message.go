package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Request is a call from a bridge client to the bridge.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, never 0
//	  2: operation,    // uint8
//	  3: index,        // device index (absent for Hello/Init/DoneAll)
//	  4: params        // embedded CBOR, operation specific
//	}
type Request struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Operation Operation       `cbor:"2,keyasint"`
	Index     int             `cbor:"3,keyasint,omitempty"`
	Params    cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("messageId 0 is reserved")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	return nil
}

// Response answers one Request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // matches the request
//	  2: status,       // vendor status code, 0 = success
//	  3: result,       // embedded CBOR, operation specific
//	  4: message       // diagnostic text for failures
//	}
type Response struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Status    Status          `cbor:"2,keyasint"`
	Result    cbor.RawMessage `cbor:"3,keyasint,omitempty"`
	Message   string          `cbor:"4,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}
