package interactive

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spvis/spvis-go/pkg/wire"
)

func (c *Console) cmdInit(ctx context.Context) error {
	n, err := c.m.Init(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d device(s) found\n", n)
	for i := range n {
		serial, err := c.m.DeviceInfo(ctx, i)
		if err != nil {
			fmt.Fprintf(c.out, "  [%d] serial unavailable: %v\n", i, err)
			continue
		}
		fmt.Fprintf(c.out, "  [%d] %s\n", i, serial)
	}
	return nil
}

func (c *Console) cmdDone(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "done <i>")
	if err != nil {
		return err
	}
	if err := c.m.Done(ctx, idx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Device %d closed\n", idx)
	return nil
}

func (c *Console) cmdDoneAll(ctx context.Context) error {
	if err := c.m.DoneAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "All devices closed")
	return nil
}

func (c *Console) cmdActivate(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "activate <i> <license>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("activate <i> <license>")
	}
	if err := c.m.Activate(ctx, idx, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Device %d activated\n", idx)
	return nil
}

func (c *Console) cmdInfo(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "info <i>")
	if err != nil {
		return err
	}
	serial, err := c.m.DeviceInfo(ctx, idx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Serial: %s\n", serial)
	return nil
}

func (c *Console) cmdDevices() {
	states := c.m.Devices()
	if len(states) == 0 {
		fmt.Fprintln(c.out, "No devices (run 'init')")
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDX\tSERIAL\tSTATE\tINTEGRATION\tZOOM\tCAL\tLAST ERROR")
	for _, s := range states {
		state := "open"
		switch {
		case s.Closed:
			state = "closed"
		case s.Active:
			state = "active"
		}
		integration := "-"
		if s.Settings.IntegrationMs > 0 {
			integration = fmt.Sprintf("%gms x%d", s.Settings.IntegrationMs, s.Settings.Averaging)
		}
		zoom := "-"
		if s.Settings.ZoomFactor > 0 {
			zoom = fmt.Sprintf("%g", s.Settings.ZoomFactor)
		}
		cal := "no"
		if s.HasCalibration {
			cal = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Index, s.Serial, state, integration, zoom, cal, s.LastError)
	}
	tw.Flush()
}

func (c *Console) cmdParam(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "param <i> <pixels|model|start|end>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("param <i> <pixels|model|start|end>")
	}
	kind, err := wire.ParseParameterKind(args[1])
	if err != nil {
		return err
	}
	v, err := c.m.Parameter(ctx, idx, kind)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s\n", kind, v)
	return nil
}

func (c *Console) cmdError(ctx context.Context, args []string) error {
	idx, err := parseIndex(args, "error <i> [device]")
	if err != nil {
		return err
	}

	var msg string
	if len(args) > 1 && strings.EqualFold(args[1], "device") {
		msg, err = c.m.DeviceError(ctx, idx)
	} else {
		msg, err = c.m.LastError(idx)
	}
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "(none)"
	}
	fmt.Fprintf(c.out, "Last error: %s\n", msg)
	return nil
}
