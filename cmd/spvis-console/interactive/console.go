// Package interactive provides the interactive command-line interface
// for spvis-console.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/spvis/spvis-go/pkg/discovery"
	"github.com/spvis/spvis-go/pkg/persistence"
	"github.com/spvis/spvis-go/pkg/session"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Defaults applied when a command omits its exposure arguments.
const (
	DefaultIntegrationMs = 100
	DefaultAveraging     = 1
)

// errUsage marks a command invoked with wrong arguments.
var errUsage = errors.New("usage")

// Console runs shell commands against a session manager.
type Console struct {
	m     *session.Manager
	store *persistence.SettingsStore
	rl    *readline.Instance
	out   io.Writer

	// browse finds bridges for the discover command.
	browse func(ctx context.Context) ([]*discovery.BridgeService, error)
}

// New creates a console reading commands through readline. store may be nil,
// which disables save and restore.
func New(m *session.Manager, store *persistence.SettingsStore) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "spvis> ",
		HistoryLimit:    500,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(m, store, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(m *session.Manager, store *persistence.SettingsStore, out io.Writer) *Console {
	return &Console{
		m:      m,
		store:  store,
		out:    out,
		browse: discovery.FindAll,
	}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop. It returns when the user quits,
// input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			return
		}

		if quit := c.Execute(ctx, line); quit {
			return
		}
	}
}

// Execute runs one command line and reports whether the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()

	case "init":
		err = c.cmdInit(ctx)
	case "done":
		err = c.cmdDone(ctx, args)
	case "doneall":
		err = c.cmdDoneAll(ctx)
	case "activate":
		err = c.cmdActivate(ctx, args)
	case "info":
		err = c.cmdInfo(ctx, args)
	case "devices", "ls":
		c.cmdDevices()
	case "param":
		err = c.cmdParam(ctx, args)
	case "error":
		err = c.cmdError(ctx, args)

	case "autodark":
		err = c.cmdAutoDark(ctx, args)
	case "oncedark":
		err = c.cmdOnceDark(ctx, args)
	case "autoint":
		err = c.cmdAutoIntegration(ctx, args)
	case "setint":
		err = c.cmdSetIntegration(ctx, args)
	case "automax":
		err = c.cmdAutoMax(ctx, args)
	case "sat":
		err = c.cmdSaturation(ctx, args)
	case "spectrum":
		err = c.cmdSpectrum(ctx, args)
	case "shutter":
		err = c.cmdShutter(ctx, args)
	case "measure", "m":
		err = c.cmdMeasure(ctx, args)
	case "metric":
		err = c.cmdMetric(ctx, args)

	case "calibrate":
		err = c.cmdCalibrate(ctx, args)
	case "readcal":
		err = c.cmdReadCalibration(ctx, args)
	case "savecal":
		err = c.cmdSaveCalibration(ctx, args)
	case "zoom":
		err = c.cmdZoom(ctx, args)

	case "save":
		err = c.cmdSave()
	case "restore":
		err = c.cmdRestore(ctx)
	case "forget":
		err = c.cmdForget(args)
	case "discover":
		err = c.cmdDiscover(ctx)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return false
	}

	if err != nil {
		c.printError(cmd, err)
	}
	return false
}

func (c *Console) printError(cmd string, err error) {
	if errors.Is(err, errUsage) {
		fmt.Fprintf(c.out, "Usage: %s\n", strings.TrimPrefix(err.Error(), "usage: "))
		return
	}
	if kind := session.KindOf(err); kind != wire.StatusUnknown {
		fmt.Fprintf(c.out, "%s failed [%s]: %v\n", cmd, kind, err)
		return
	}
	fmt.Fprintf(c.out, "%s failed: %v\n", cmd, err)
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Spectrometer Console Commands:
  Session:
    init                          - Open all attached spectrometers
    done <i> | doneall            - Close one or all devices
    activate <i> <license>        - Unlock a device with its license file
    info <i>                      - Show serial number
    devices                       - List open devices and their settings
    param <i> <pixels|model|start|end> - Read a device parameter
    error <i> [device]            - Last error (or the device's own error text)

  Acquisition:
    autodark <i> <max-ms>         - Dark spectra up to an integration time
    oncedark <i> [ms] [avg]       - One dark spectrum for the given settings
    autoint <i> [saturation]      - Find integration for a target saturation
    setint <i> <ms> [avg]         - Set integration time and averaging
    automax <i> <ms> <avg>        - Bound the automatic integration search
    sat <i> [ms] [avg]            - Acquire and report saturation
    spectrum <i> [raw|auto|single] [ms] [avg] - Acquire a raw spectrum
    shutter <i> <open|close>      - Operate the shutter
    measure <i> [ms] [avg] [dark] - Full measurement cycle
    metric <i> <name|number>      - Derived value of the last measurement

  Calibration:
    calibrate <i> <lamp-file> [dark] [ms] [avg] - Calibrate against a standard lamp
    readcal <i> <path>            - Load a calibration file
    savecal <i> <usage> [path]    - Write the calibration file
    zoom <i> [factor]             - Show or set the zoom factor

  Settings:
    save                          - Save settings of all open devices
    restore                       - Re-apply saved settings by serial
    forget <serial>               - Remove saved settings
    discover                      - Browse for bridges over mDNS

    quit                          - Exit`)
}

func completer() *readline.PrefixCompleter {
	index := func(items ...readline.PrefixCompleterInterface) readline.PrefixCompleterInterface {
		return readline.PcItemDynamic(func(string) []string { return []string{"0", "1", "2", "3"} }, items...)
	}
	darkModes := []readline.PrefixCompleterInterface{
		readline.PcItem("raw"), readline.PcItem("auto"), readline.PcItem("single"),
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("init"),
		readline.PcItem("done", index()),
		readline.PcItem("doneall"),
		readline.PcItem("activate", index()),
		readline.PcItem("info", index()),
		readline.PcItem("devices"),
		readline.PcItem("param", index(
			readline.PcItem("pixels"), readline.PcItem("model"),
			readline.PcItem("start"), readline.PcItem("end"),
		)),
		readline.PcItem("error", index(readline.PcItem("device"))),
		readline.PcItem("autodark", index()),
		readline.PcItem("oncedark", index()),
		readline.PcItem("autoint", index()),
		readline.PcItem("setint", index()),
		readline.PcItem("automax", index()),
		readline.PcItem("sat", index()),
		readline.PcItem("spectrum", index(darkModes...)),
		readline.PcItem("shutter", index(readline.PcItem("open"), readline.PcItem("close"))),
		readline.PcItem("measure", index()),
		readline.PcItem("metric", index()),
		readline.PcItem("calibrate", index()),
		readline.PcItem("readcal", index()),
		readline.PcItem("savecal", index(
			readline.PcItem("radiance"), readline.PcItem("flux"),
			readline.PcItem("luminous_flux"), readline.PcItem("illuminance"),
		)),
		readline.PcItem("zoom", index()),
		readline.PcItem("save"),
		readline.PcItem("restore"),
		readline.PcItem("forget"),
		readline.PcItem("discover"),
		readline.PcItem("quit"),
	)
}

// Argument helpers.

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func parseIndex(args []string, syntax string) (int, error) {
	if len(args) == 0 {
		return 0, usage(syntax)
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid device index %q", args[0])
	}
	return idx, nil
}

func floatArg(args []string, i int, def float64) (float64, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	return v, nil
}

func intArg(args []string, i int, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", args[i])
	}
	return v, nil
}

// exposureArgs reads "[ms] [avg]" starting at args[i].
func exposureArgs(args []string, i int) (float64, int, error) {
	ms, err := floatArg(args, i, DefaultIntegrationMs)
	if err != nil {
		return 0, 0, err
	}
	avg, err := intArg(args, i+1, DefaultAveraging)
	if err != nil {
		return 0, 0, err
	}
	return ms, avg, nil
}

func formatMs(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 1, 64) + "ms"
}
