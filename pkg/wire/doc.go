// Package wire defines the CBOR wire format of the spvis bridge protocol and
// the status codes shared by every spectrometer transport.
//
// The bridge carries calls to a vendor spectrometer library that runs on a
// separate host. Each call is one Request answered by exactly one Response.
//
// # Message Types
//
//   - Request: caller to bridge, names an Operation and a device index
//   - Response: bridge to caller, carries a Status and an optional result
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. Operation parameters and results
// travel as embedded CBOR (cbor.RawMessage) and are decoded into the
// per-operation structs defined in payload.go.
//
// # Status Codes
//
// Status values are the vendor library's integer return codes. A negative
// value is a failure; StatusSuccess is zero.
package wire
