package interactive

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

func (c *Console) cmdAutoDark(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "autodark <i> <max-ms>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("autodark <i> <max-ms>")
	}
	maxMs, err := floatArg(args, 1, 0)
	if err != nil {
		return err
	}
	if err := c.m.AutoDark(ctx, idx, maxMs); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Dark spectra acquired up to %gms\n", maxMs)
	return nil
}

func (c *Console) cmdOnceDark(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "oncedark <i> [ms] [avg]")
	if err != nil {
		return err
	}
	ms, avg, err := exposureArgs(args, 1)
	if err != nil {
		return err
	}
	if err := c.m.OnceDark(ctx, idx, ms, avg); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Dark spectrum acquired at %gms x%d\n", ms, avg)
	return nil
}

func (c *Console) cmdAutoIntegration(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "autoint <i> [saturation]")
	if err != nil {
		return err
	}
	target, err := floatArg(args, 1, 0.8)
	if err != nil {
		return err
	}
	ms, avg, err := c.m.AutoIntegration(ctx, idx, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Integration: %gms x%d\n", ms, avg)
	return nil
}

func (c *Console) cmdSetIntegration(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "setint <i> <ms> [avg]")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("setint <i> <ms> [avg]")
	}
	ms, avg, err := exposureArgs(args, 1)
	if err != nil {
		return err
	}
	if err := c.m.SetIntegration(ctx, idx, ms, avg); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Integration set to %gms x%d\n", ms, avg)
	return nil
}

func (c *Console) cmdAutoMax(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "automax <i> <ms> <avg>")
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return usage("automax <i> <ms> <avg>")
	}
	ms, avg, err := exposureArgs(args, 1)
	if err != nil {
		return err
	}
	gotMs, gotAvg, err := c.m.SetAutoMaxLimits(ctx, idx, ms, avg)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Auto limits: %gms x%d\n", gotMs, gotAvg)
	return nil
}

func (c *Console) cmdSaturation(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "sat <i> [ms] [avg]")
	if err != nil {
		return err
	}
	ms, avg, err := exposureArgs(args, 1)
	if err != nil {
		return err
	}
	sat, err := c.m.Saturation(ctx, idx, ms, avg)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saturation: %.1f%%\n", sat*100)
	return nil
}

func (c *Console) cmdSpectrum(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "spectrum <i> [raw|auto|single] [ms] [avg]")
	if err != nil {
		return err
	}
	mode := wire.DarkModeRaw
	if len(args) > 1 {
		if mode, err = wire.ParseDarkMode(args[1]); err != nil {
			return err
		}
	}
	ms, avg, err := exposureArgs(args, 2)
	if err != nil {
		return err
	}
	values, err := c.m.Spectrum(ctx, idx, mode, ms, avg)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(c.out, "Empty spectrum")
		return nil
	}
	fmt.Fprintf(c.out, "%d pixels, min %.1f, max %.1f (pixel %d), mean %.1f\n",
		len(values), floats.Min(values), floats.Max(values), floats.MaxIdx(values),
		floats.Sum(values)/float64(len(values)))
	return nil
}

func (c *Console) cmdShutter(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "shutter <i> <open|close>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("shutter <i> <open|close>")
	}
	var open bool
	switch strings.ToLower(args[1]) {
	case "open":
		open = true
	case "close", "closed":
	default:
		return usage("shutter <i> <open|close>")
	}
	if err := c.m.Shutter(ctx, idx, open); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Shutter %s\n", strings.ToLower(args[1]))
	return nil
}

func (c *Console) cmdMeasure(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "measure <i> [ms] [avg] [dark]")
	if err != nil {
		return err
	}
	ms, avg, err := exposureArgs(args, 1)
	if err != nil {
		return err
	}
	req := device.MeasurementRequest{IntegrationMs: ms, Averaging: avg}
	if len(args) > 3 {
		if req.DarkMode, err = wire.ParseDarkMode(args[3]); err != nil {
			return err
		}
	}

	res, err := c.m.Measure(ctx, idx, req)
	if err != nil {
		return err
	}
	wl, peak := res.Peak()
	fmt.Fprintf(c.out, "Measurement %s\n", res.ID)
	fmt.Fprintf(c.out, "  %d pixels, %gms x%d, dark %s\n", len(res.Spectrum), res.IntegrationMs, res.Averaging, res.DarkMode)
	fmt.Fprintf(c.out, "  Peak: %.4g at %.1fnm\n", peak, wl)
	fmt.Fprintf(c.out, "  Saturation: %.1f%%, took %s\n", res.Saturation*100, formatMs(res.Duration))
	return nil
}

func (c *Console) cmdMetric(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "metric <i> <name|number>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("metric <i> <name|number>")
	}
	id, err := wire.ParseMetric(args[1])
	if err != nil {
		return err
	}
	v, err := c.m.MeasureDerived(ctx, idx, id, nil)
	if err != nil {
		return err
	}
	if id.IsArray() {
		if len(v.Values) == 0 {
			fmt.Fprintf(c.out, "%s: []\n", id)
			return nil
		}
		fmt.Fprintf(c.out, "%s: %d values, %g .. %g\n", id, len(v.Values), v.Values[0], v.Values[len(v.Values)-1])
		return nil
	}
	fmt.Fprintf(c.out, "%s: %g\n", id, v.Value)
	return nil
}
