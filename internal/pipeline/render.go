package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/finsent/internal/model"
)

// Output formats
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Renderer writes the fact table and the run summary
type Renderer struct {
	format  string
	summary bool
}

// NewRenderer creates a renderer; an empty format is inferred from the output path
func NewRenderer(cfg model.OutputConfig) *Renderer {
	return &Renderer{format: strings.ToLower(cfg.Format), summary: cfg.Summary}
}

// Format resolves the output format for path
func (r *Renderer) Format(path string) (string, error) {
	if r.format != "" {
		switch r.format {
		case FormatCSV, FormatJSON, FormatJSONL:
			return r.format, nil
		}
		return "", fmt.Errorf("unknown output format %q (want csv, json or jsonl)", r.format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return FormatCSV, nil
	}
}

// Write renders facts to w in the given format
func (r *Renderer) Write(w io.Writer, format string, facts []model.ExtractedFact) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(model.FactColumns); err != nil {
			return err
		}
		for _, f := range facts {
			if err := cw.Write(f.Record()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		if facts == nil {
			facts = []model.ExtractedFact{}
		}
		data, err := json.MarshalIndent(facts, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal facts: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, f := range facts {
			if err := enc.Encode(f); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// RenderFile writes the fact table to path and, when enabled, the run summary next to it.
// It returns the written paths.
func (r *Renderer) RenderFile(path string, result *Result) ([]string, error) {
	format, err := r.Format(path)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, func(w io.Writer) error {
		return r.Write(w, format, result.Facts)
	}); err != nil {
		return nil, fmt.Errorf("render facts: %w", err)
	}
	paths := []string{path}

	if r.summary {
		summaryPath := SummaryPath(path)
		if err := writeAtomic(summaryPath, func(w io.Writer) error {
			data, err := json.MarshalIndent(result.Summary, "", "  ")
			if err != nil {
				return err
			}
			_, err = w.Write(append(data, '\n'))
			return err
		}); err != nil {
			return nil, fmt.Errorf("render summary: %w", err)
		}
		paths = append(paths, summaryPath)
	}
	return paths, nil
}

// SummaryPath returns "<path without extension>.summary.json"
func SummaryPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".summary.json"
}

// RenderSummary prints a human-readable run summary
func (r *Renderer) RenderSummary(w io.Writer, summary model.RunSummary) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Extraction Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Run:         %s\n", summary.RunID)
	fmt.Fprintf(w, "  Filings:     %d\n", summary.Filings)
	fmt.Fprintf(w, "\n")
	for _, s := range summary.Sections {
		fmt.Fprintf(w, "  %-8s  processed %-5d skipped %-5d failed %-4d rows %-6d fls %d\n",
			s.Item, s.Processed, s.Skipped, s.Failed, s.Rows, s.FLS)
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Rows:        %d\n", summary.Rows)
	fmt.Fprintf(w, "  Duplicates:  %d\n", summary.Duplicates)
	fmt.Fprintf(w, "  Failures:    %d\n", len(summary.Failures))
	fmt.Fprintf(w, "  Elapsed:     %v\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
}

// writeAtomic writes through a temporary file in the target directory
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
