package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/finsent/internal/model"
)

func TestRenderer_Format(t *testing.T) {
	tests := []struct {
		format string
		path   string
		want   string
	}{
		{"", "out.csv", FormatCSV},
		{"", "out.json", FormatJSON},
		{"", "out.jsonl", FormatJSONL},
		{"", "out", FormatCSV},
		{"JSONL", "out.csv", FormatJSONL},
	}
	for _, tt := range tests {
		got, err := NewRenderer(model.OutputConfig{Format: tt.format}).Format(tt.path)
		if err != nil {
			t.Errorf("Format(%q, %q) error: %v", tt.format, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Format(%q, %q) = %s, want %s", tt.format, tt.path, got, tt.want)
		}
	}

	if _, err := NewRenderer(model.OutputConfig{Format: "parquet"}).Format("out.csv"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestRenderer_WriteCSV(t *testing.T) {
	var out strings.Builder
	facts := aarFacts()[:1]
	facts[0].Sentence = `Net income, "adjusted", rose.`

	if err := NewRenderer(model.OutputConfig{}).Write(&out, FormatCSV, facts); err != nil {
		t.Fatal(err)
	}
	want := "Sentence,Metric,Item,Year,CIK,Company,FLS\n" +
		`"Net income, ""adjusted"", rose.",Revenue,item_1A,2020,1750,AAR CORP,FLS` + "\n"
	if out.String() != want {
		t.Errorf("unexpected CSV:\n%s", out.String())
	}
}

func TestRenderer_WriteJSON(t *testing.T) {
	r := NewRenderer(model.OutputConfig{})

	var out strings.Builder
	if err := r.Write(&out, FormatJSON, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("empty table should render as [], got %q", out.String())
	}

	out.Reset()
	if err := r.Write(&out, FormatJSONL, aarFacts()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	var first model.ExtractedFact
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(aarFacts()[0], first); diff != "" {
		t.Errorf("first line mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_RenderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "fls_with_metrics.csv")
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &Result{
		Facts: aarFacts(),
		Summary: model.RunSummary{
			RunID:      "run-1",
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
			Filings:    1,
			Rows:       4,
		},
	}

	paths, err := NewRenderer(model.OutputConfig{Summary: true}).RenderFile(path, result)
	if err != nil {
		t.Fatalf("RenderFile() error: %v", err)
	}
	wantPaths := []string{path, filepath.Join(dir, "out", "fls_with_metrics.summary.json")}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.RunID != "run-1" || summary.Rows != 4 || summary.Duration() != 1500*time.Millisecond {
		t.Errorf("unexpected summary: %+v", summary)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestRenderer_RenderSummary(t *testing.T) {
	var out strings.Builder
	NewRenderer(model.OutputConfig{}).RenderSummary(&out, model.RunSummary{
		RunID:    "run-1",
		Filings:  2,
		Sections: []model.SectionStats{{Item: model.SectionMDA, Processed: 2, Rows: 5, FLS: 1}},
		Rows:     5,
	})
	for _, want := range []string{"Extraction Complete", "run-1", "item_7", "Rows:        5"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary is missing %q:\n%s", want, out.String())
		}
	}
}
