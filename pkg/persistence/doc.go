// Package persistence keeps spectrometer settings across sessions.
//
// Settings are stored in one JSON file keyed by serial number, so a device
// gets its license, calibration, integration and zoom back regardless of the
// index it was enumerated at. session.Manager.Snapshot produces the entries
// and session.Manager.Restore applies them.
package persistence
