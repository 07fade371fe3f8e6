// Command spvis-log is a tool for viewing and analyzing spectrometer session
// capture files.
//
// Capture files are written by spvis-bridge, spvis-console and spvis-run when
// started with the -protocol-log flag.
//
// Usage:
//
//	spvis-log <command> [flags] <file.splog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	spvis-log view bridge.splog
//
//	# View only failed calls of device 1
//	spvis-log view -failed -device 1 session.splog
//
//	# Export to CSV
//	spvis-log export -format csv -o calls.csv session.splog
//
//	# Keep only Measure calls and save to a new file
//	spvis-log filter -op Measure -o measure.splog session.splog
//
//	# Show statistics
//	spvis-log stats session.splog
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/spvis/spvis-go/cmd/spvis-log/commands"
)

const usage = `spvis-log - Spectrometer Session Log Analyzer

Usage:
  spvis-log <command> [flags] <file.splog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "spvis-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// logPath parses args and returns the single positional log file argument.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func newFlagSet(name, synopsis, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "spvis-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, synopsis, usageLine)
		fs.PrintDefaults()
	}
	return fs
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "spvis-log view [flags] <file.splog>")

	layer := fs.String("layer", "", "Filter by layer (transport, wire, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, call, state, error)")
	device := fs.String("device", "", "Filter by device index")
	failed := fs.Bool("failed", false, "Show only errors and failed calls")

	path := logPath(fs, args)

	filter := commands.ViewFilter{FailedOnly: *failed}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if *device != "" {
		idx, err := strconv.Atoi(*device)
		if err != nil || idx < 0 {
			fail(fmt.Errorf("invalid device index: %s", *device))
		}
		filter.DeviceIndex = &idx
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format", "spvis-log export [flags] <file.splog>")

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path := logPath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "spvis-log filter [flags] <file.splog>")

	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	fs.StringVar(&opts.SessionID, "session-id", "", "Filter by session or connection ID")
	fs.StringVar(&opts.DeviceIndex, "device", "", "Filter by device index")
	fs.StringVar(&opts.Serial, "serial", "", "Filter by device serial number")
	fs.StringVar(&opts.Operation, "op", "", "Filter by operation (e.g. Measure)")
	fs.BoolVar(&opts.FailedOnly, "failed", false, "Keep only errors and failed calls")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, service)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, call, state, error)")

	path := logPath(fs, args)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "spvis-log stats - Show statistics about the log file\n\nUsage:\n  spvis-log stats <file.splog>\n\n")
	}

	path := logPath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
