package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
	if got := lines[3]["SessionID"]; got != "sess-3333-4444" {
		t.Errorf("SessionID = %v", got)
	}
	if got := lines[3]["Serial"]; got != "SIM-0001" {
		t.Errorf("Serial = %v", got)
	}
	if _, ok := lines[3]["Call"].(map[string]any); !ok {
		t.Errorf("expected Call object, got %v", lines[3]["Call"])
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 8 {
		t.Fatalf("expected header + 7 rows, got %d", len(records))
	}
	if records[0][0] != "timestamp" || len(records[0]) != len(csvHeader) {
		t.Errorf("unexpected header: %v", records[0])
	}

	request := records[2]
	if request[7] != "REQUEST" || request[8] != "7" || request[9] != "Measure" || request[5] != "0" {
		t.Errorf("unexpected request row: %v", request)
	}

	response := records[3]
	if response[10] != "SUCCESS" || response[11] != "1500" {
		t.Errorf("unexpected response row: %v", response)
	}

	call := records[5]
	if call[7] != "call" || call[6] != "SIM-0002" || call[10] != "INVALID_ACTIVATION" {
		t.Errorf("unexpected call row: %v", call)
	}

	state := records[6]
	if state[7] != "state" || state[5] != "" {
		t.Errorf("unexpected state row: %v", state)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
