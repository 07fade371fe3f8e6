package session

import (
	"log/slog"
	"time"

	"github.com/spvis/spvis-go/pkg/log"
)

// Config configures a Manager.
type Config struct {
	// Logger is used for operational logging. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives call and state change events. Nil disables it.
	ProtocolLogger log.Logger

	// Timeout bounds every device call.
	Timeout time.Duration

	// AutoTimeout bounds AutoDark and AutoIntegration, which step through
	// many exposures on the device.
	AutoTimeout time.Duration

	// AcquisitionFactor scales the exposure time (integration × averaging)
	// added to Timeout for calls that acquire spectra.
	AcquisitionFactor float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		AutoTimeout:       60 * time.Second,
		AcquisitionFactor: 2,
	}
}

func (c Config) acquisitionTimeout(integrationMs float64, averaging int) time.Duration {
	exposure := c.AcquisitionFactor * integrationMs * float64(max(averaging, 1))
	return c.Timeout + time.Duration(exposure*float64(time.Millisecond))
}
