package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spvis/spvis-go/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	switch format {
	case "jsonl", "csv":
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

var csvHeader = []string{
	"timestamp", "session_id", "direction", "layer", "category",
	"device_index", "serial", "type", "message_id", "operation", "status", "duration_us",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return cw.Error()
}

func csvRow(event log.Event) []string {
	eventType := "unknown"
	var msgID, op, status, duration string
	switch {
	case event.Frame != nil:
		eventType = "frame"
	case event.Message != nil:
		eventType = event.Message.Type.String()
		msgID = strconv.FormatUint(uint64(event.Message.MessageID), 10)
		if event.Message.Operation != nil {
			op = event.Message.Operation.String()
		}
		if event.Message.Status != nil {
			status = event.Message.Status.String()
		}
		if event.Message.ProcessingTime != nil {
			duration = strconv.FormatInt(event.Message.ProcessingTime.Microseconds(), 10)
		}
	case event.Call != nil:
		eventType = "call"
		op = event.Call.Operation.String()
		status = event.Call.Status.String()
		duration = strconv.FormatInt(event.Call.Duration.Microseconds(), 10)
	case event.StateChange != nil:
		eventType = "state"
	case event.Error != nil:
		eventType = "error"
	}

	index := ""
	if event.DeviceIndex != nil {
		index = strconv.Itoa(*event.DeviceIndex)
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.SessionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		index,
		event.Serial,
		eventType,
		msgID,
		op,
		status,
		duration,
	}
}
