package interactive

import (
	"context"
	"fmt"

	"github.com/spvis/spvis-go/pkg/calibration"
	"github.com/spvis/spvis-go/pkg/wire"
)

func (c *Console) cmdCalibrate(ctx context.Context, args []string) error {
	const syntax = "calibrate <i> <lamp-file> [dark] [ms] [avg]"
	idx, err := parseIndex(args, syntax)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage(syntax)
	}
	lamp, err := calibration.Load(args[1])
	if err != nil {
		return fmt.Errorf("lamp file: %w", err)
	}
	mode := wire.DarkModeAuto
	if len(args) > 2 {
		if mode, err = wire.ParseDarkMode(args[2]); err != nil {
			return err
		}
	}
	ms, avg, err := exposureArgs(args, 3)
	if err != nil {
		return err
	}

	if err := c.m.CalibrateWithLamp(ctx, idx, mode, ms, avg, lamp.StandardLampSpectrum, lamp.Wavelengths); err != nil {
		return err
	}
	lo, hi := lamp.Range()
	fmt.Fprintf(c.out, "Calibrated against %d lamp points (%.0f-%.0fnm)\n", lamp.Len(), lo, hi)
	return nil
}

func (c *Console) cmdReadCalibration(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "readcal <i> <path>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("readcal <i> <path>")
	}
	prof, err := c.m.ReadCalibration(ctx, idx, args[1])
	if err != nil {
		return err
	}
	lo, hi := prof.Range()
	fmt.Fprintf(c.out, "Calibration loaded: %s, %s, %d points (%.0f-%.0fnm)\n",
		prof.Serial, prof.UsageMode, prof.Len(), lo, hi)
	return nil
}

func (c *Console) cmdSaveCalibration(ctx context.Context, args []string) error {
	const syntax = "savecal <i> <radiance|flux|luminous_flux|illuminance> [path]"
	idx, err := parseIndex(args, syntax)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage(syntax)
	}
	usageMode, err := wire.ParseUsageMode(args[1])
	if err != nil {
		return err
	}
	var path string
	if len(args) > 2 {
		path = args[2]
	}
	written, err := c.m.SaveCalibration(ctx, idx, usageMode, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Calibration written to %s\n", written)
	return nil
}

func (c *Console) cmdZoom(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "zoom <i> [factor]")
	if err != nil {
		return err
	}
	if len(args) > 1 {
		factor, err := floatArg(args, 1, 0)
		if err != nil {
			return err
		}
		if err := c.m.SetZoomFactor(ctx, idx, factor); err != nil {
			return err
		}
	}
	factor, err := c.m.ZoomFactor(ctx, idx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Zoom factor: %g\n", factor)
	return nil
}
