package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func compareRecord(name string, discrepant bool) Record {
	return Record{
		Name:       name,
		Kind:       KindCompare,
		Discrepant: discrepant,
		Result: map[string]any{
			"full_check_time":        1200,
			"incremental_check_time": 40,
		},
	}
}

func TestConsoleTextVerdicts(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text")

	if err := sink.Write(compareRecord("clean", false)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := sink.Write(compareRecord("drifted", true)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "CONSISTENT") || !strings.Contains(lines[0], "clean") {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "DISCREPANCY") || !strings.Contains(lines[1], "drifted") {
		t.Fatalf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[0], "full=1200ms") || !strings.Contains(lines[0], "incremental=40ms") {
		t.Fatalf("timing summary missing: %q", lines[0])
	}
}

func TestConsoleBenchmarkVerdict(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text")

	record := Record{Name: "bench", Kind: KindBenchmark, Result: map[string]any{}}
	if err := sink.Write(record); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "BENCHMARKED") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestConsoleJSONAggregatesOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "json")

	if err := sink.Write(compareRecord("one", false)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("json sink wrote before Close: %q", buf.String())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	var records []Record
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(records) != 1 || records[0].Name != "one" {
		t.Fatalf("unexpected records: %+v", records)
	}
}
