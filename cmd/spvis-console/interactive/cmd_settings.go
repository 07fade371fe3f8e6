package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spvis/spvis-go/pkg/discovery"
)

var errNoStore = errors.New("no settings file configured (start with -settings)")

func (c *Console) cmdSave() error {
	if c.store == nil {
		return errNoStore
	}
	snapshot := c.m.Snapshot()
	if len(snapshot) == 0 {
		fmt.Fprintln(c.out, "Nothing to save (no device with a known serial)")
		return nil
	}
	if err := c.store.SaveSnapshot(snapshot); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved settings of %d device(s) to %s\n", len(snapshot), c.store.Path())
	return nil
}

func (c *Console) cmdRestore(ctx context.Context) error {
	if c.store == nil {
		return errNoStore
	}
	res, err := c.store.RestoreAll(ctx, c.m)
	if res != nil {
		if len(res.Restored) > 0 {
			fmt.Fprintf(c.out, "Restored: %s\n", strings.Join(res.Restored, ", "))
		}
		if len(res.Unknown) > 0 {
			fmt.Fprintf(c.out, "No saved settings: %s\n", strings.Join(res.Unknown, ", "))
		}
	}
	return err
}

func (c *Console) cmdForget(args []string) error {
	if c.store == nil {
		return errNoStore
	}
	if len(args) < 1 {
		return usage("forget <serial>")
	}
	if err := c.store.Forget(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Forgot %s\n", args[0])
	return nil
}

func (c *Console) cmdDiscover(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, discovery.BrowseTimeout)
	defer cancel()

	fmt.Fprintln(c.out, "Browsing for bridges...")
	start := time.Now()
	services, err := c.browse(ctx)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Fprintln(c.out, "No bridges found")
		return nil
	}
	fmt.Fprintf(c.out, "Found %d bridge(s) in %s:\n", len(services), formatMs(time.Since(start)))
	for _, svc := range services {
		fmt.Fprintf(c.out, "  %s  %s  v%s  %d device(s)", svc.InstanceName, svc.Address(), svc.Version, svc.DeviceCount)
		if len(svc.Serials) > 0 {
			fmt.Fprintf(c.out, "  [%s]", strings.Join(svc.Serials, ", "))
		}
		fmt.Fprintln(c.out)
	}
	return nil
}
