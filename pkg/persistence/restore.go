package persistence

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/spvis/spvis-go/pkg/session"
)

// RestoreResult reports which devices got their saved settings back.
type RestoreResult struct {
	// Restored lists the serials whose settings were applied.
	Restored []string

	// Unknown lists open devices without a saved entry.
	Unknown []string
}

// RestoreAll applies saved settings to every open device of m, matching by
// serial number. Serials not read yet are fetched with DeviceInfo. A device
// that fails does not stop the others; all failures are returned together.
func (s *SettingsStore) RestoreAll(ctx context.Context, m *session.Manager) (*RestoreResult, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &SettingsState{}
	}

	result := &RestoreResult{}
	var errs error
	for _, dev := range m.Devices() {
		if dev.Closed {
			continue
		}
		serial := dev.Serial
		if serial == "" {
			serial, err = m.DeviceInfo(ctx, dev.Index)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("device %d: %w", dev.Index, err))
				continue
			}
		}

		saved, ok := state.Devices[serial]
		if !ok {
			result.Unknown = append(result.Unknown, serial)
			continue
		}
		if err := m.Restore(ctx, dev.Index, saved.Settings); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("device %d (%s): %w", dev.Index, serial, err))
			continue
		}
		result.Restored = append(result.Restored, serial)
	}
	return result, errs
}
