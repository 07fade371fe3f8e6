// Package log provides structured event capture for spectrometer sessions.
//
// This package defines the Logger interface and Event types for recording
// what happened at each layer (transport, wire, service). It is separate from
// operational logging (slog): event capture provides a complete
// machine-readable trace of device calls for debugging and lab records.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/spvis/lab1.splog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw bridge frames (FrameEvent)
//   - Wire: decoded bridge requests and responses (MessageEvent)
//   - Service: device calls (CallEvent) and state changes (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .splog extension.
// The spvis-log tool views, filters and summarizes them.
package log
