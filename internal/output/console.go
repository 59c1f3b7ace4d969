package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type ConsoleSink struct {
	writer  io.Writer
	format  string // "text", "json"
	mu      sync.Mutex
	records []Record // for JSON array output
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		s.records = append(s.records, r)
		return nil
	}

	name := r.Name
	if name == "" {
		name = "(unnamed)"
	}
	verdict := color.GreenString("CONSISTENT")
	if r.Kind == KindBenchmark {
		verdict = color.CyanString("BENCHMARKED")
	} else if r.Discrepant {
		verdict = color.RedString("DISCREPANCY")
	}

	line := fmt.Sprintf("%s  %s", verdict, name)
	if timing := timingSummary(r.Result); timing != "" {
		line += "  " + timing
	}
	_, err := fmt.Fprintln(s.writer, line)
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format != "json" {
		return nil
	}
	encoder := json.NewEncoder(s.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s.records)
}

func timingSummary(result map[string]any) string {
	if result == nil {
		return ""
	}
	parts := ""
	if full, ok := result["full_check_time"]; ok {
		parts = fmt.Sprintf("full=%vms", full)
	}
	if incremental, ok := result["incremental_check_time"]; ok {
		if parts != "" {
			parts += " "
		}
		parts += fmt.Sprintf("incremental=%vms", incremental)
	}
	if parts == "" {
		return ""
	}
	return "(" + parts + ")"
}
