package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/finsent/internal/model"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func wantAMD() model.FilingRecord {
	return model.FilingRecord{
		CIK:            "2488",
		Company:        "ADVANCED MICRO DEVICES INC",
		Year:           2020,
		Filename:       "2488_10K_2020.htm",
		PeriodOfReport: "2020-12-26",
		Sections: map[model.Section]string{
			model.SectionRiskFactors: "Risks.",
			model.SectionMDA:         "Net income rose.",
			model.SectionMarketRisk:  "",
		},
	}
}

func TestRegistry_ReadFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "filings.json",
			content: `[{"cik": 2488, "company": "ADVANCED MICRO DEVICES INC", "year": "2020", "filename": "2488_10K_2020.htm", "period_of_report": "2020-12-26", "item_1A": "Risks.", "item_7": "Net income rose.", "item_7A": null}]`,
		},
		{
			name: "filings.jsonl",
			content: `{"cik": "2488", "company": "ADVANCED MICRO DEVICES INC", "year": 2020, "filename": "2488_10K_2020.htm", "period_of_report": "2020-12-26", "item_1A": "Risks.", "item_7": "Net income rose."}
`,
		},
		{
			name: "filings.CSV",
			content: "\ufeffCIK,Company,Year,Filename,Period_of_Report,Item_1A,Item_7,Item_7A\n" +
				"2488,ADVANCED MICRO DEVICES INC,2020.0,2488_10K_2020.htm,2020-12-26,Risks.,Net income rose.,\n",
		},
	}

	registry := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.ReadFile(writeTemp(t, tt.name, tt.content))
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			if diff := cmp.Diff([]model.FilingRecord{wantAMD()}, got); diff != "" {
				t.Errorf("ReadFile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistry_ReadFile_Errors(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name    string
		content string
	}{
		{"filings.parquet", "PAR1"},
		{"missing_year.json", `[{"cik": "1", "item_7": "text"}]`},
		{"bad_year.jsonl", `{"cik": "1", "year": "FY20"}`},
		{"fractional_year.json", `[{"cik": "1", "year": 2020.5}]`},
		{"missing_cik.csv", "company,year\nACME,2020\n"},
		{"blank_cik.csv", "cik,year\n ,2020\n"},
		{"truncated.jsonl", `{"cik": "1", "year": 2020}` + "\n" + `{"cik": "2",`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := registry.ReadFile(writeTemp(t, tt.name, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRegistry_FindReader(t *testing.T) {
	registry := NewRegistry()
	for path, want := range map[string]string{
		"a.json":   "json",
		"a.jsonl":  "jsonl",
		"a.ndjson": "jsonl",
		"a.csv":    "csv",
	} {
		reader, err := registry.FindReader(path)
		if err != nil {
			t.Errorf("FindReader(%q) error: %v", path, err)
			continue
		}
		if reader.Name() != want {
			t.Errorf("FindReader(%q) = %s, want %s", path, reader.Name(), want)
		}
	}
}

func TestReadIdentifiers(t *testing.T) {
	path := writeTemp(t, "cik.csv", strings.Join([]string{
		"CIK",
		"# S&P 500 sample",
		"0000066740",
		"",
		"91142,A. O. Smith",
		`"0000066740"`,
		"1750",
	}, "\n"))

	got, err := ReadIdentifiers(path)
	if err != nil {
		t.Fatalf("ReadIdentifiers() error: %v", err)
	}
	want := []string{"66740", "91142", "1750"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadIdentifiers() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ReadIdentifiers(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNormalizeCIK(t *testing.T) {
	for in, want := range map[string]string{
		"0000066740": "66740",
		" 1750 ":     "1750",
		"0000":       "0",
		"":           "",
	} {
		if got := NormalizeCIK(in); got != want {
			t.Errorf("NormalizeCIK(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterByCIK(t *testing.T) {
	filings := []model.FilingRecord{{CIK: "1750"}, {CIK: "0000002488"}, {CIK: "66740"}}

	got := FilterByCIK(filings, []string{"2488", "0000066740"})
	var ciks []string
	for _, f := range got {
		ciks = append(ciks, f.CIK)
	}
	if diff := cmp.Diff([]string{"0000002488", "66740"}, ciks); diff != "" {
		t.Errorf("FilterByCIK() mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinCompanies(t *testing.T) {
	path := writeTemp(t, "metadata.csv",
		"CIK,Company,Period of Report\n"+
			"1750,AAR CORP,2020-05-31\n"+
			"0000002488,ADVANCED MICRO DEVICES INC,2020-12-26\n"+
			"1750,AAR CORP (RENAMED),2021-05-31\n")

	companies, err := LoadCompanies(path)
	if err != nil {
		t.Fatalf("LoadCompanies() error: %v", err)
	}
	want := map[string]string{"1750": "AAR CORP", "2488": "ADVANCED MICRO DEVICES INC"}
	if diff := cmp.Diff(want, companies); diff != "" {
		t.Errorf("LoadCompanies() mismatch (-want +got):\n%s", diff)
	}

	filings := []model.FilingRecord{{CIK: "2488"}, {CIK: "1750", Company: "AAR"}, {CIK: "9"}}
	if filled := JoinCompanies(filings, companies); filled != 1 {
		t.Errorf("expected 1 filled, got %d", filled)
	}
	if filings[0].Company != "ADVANCED MICRO DEVICES INC" || filings[1].Company != "AAR" || filings[2].Company != "" {
		t.Errorf("unexpected join result: %+v", filings)
	}

	if _, err := LoadCompanies(writeTemp(t, "bad.csv", "CIK,Ticker\n1,X\n")); err == nil {
		t.Error("expected an error without a Company column")
	}
}
