package session

import (
	"math"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

func validateExposure(integrationMs float64, averaging int) error {
	if !(integrationMs > 0) || math.IsInf(integrationMs, 0) {
		return invalid(wire.StatusInvalidIntegrationTime, "integration time %gms must be positive", integrationMs)
	}
	if averaging < 1 {
		return invalid(wire.StatusInvalidAveragingCount, "averaging count %d must be at least 1", averaging)
	}
	return nil
}

func validateDarkMode(mode wire.DarkMode) error {
	if !mode.IsValid() {
		return invalid(wire.StatusInvalidParameter, "unknown dark mode %d", mode)
	}
	return nil
}

func validateRequest(req device.MeasurementRequest) error {
	if err := validateExposure(req.IntegrationMs, req.Averaging); err != nil {
		return err
	}
	if err := validateDarkMode(req.DarkMode); err != nil {
		return err
	}
	if req.SmoothingWindow < 0 {
		return invalid(wire.StatusInvalidParameter, "smoothing window %d is negative", req.SmoothingWindow)
	}
	return nil
}
