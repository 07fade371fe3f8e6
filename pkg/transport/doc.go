// Package transport carries bridge messages between a spectrometer host and
// its clients.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│   TLS 1.3 (optional)           │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Frames are limited to 1 MiB so a full spectrum with its wavelength axis fits
// in a single message.
//
// When TLS is enabled, only TLS 1.3 is accepted and the ALPN protocol must be
// the one derived from the bridge protocol version (see package version).
// Bridges on a trusted lab network may run plain TCP.
package transport
