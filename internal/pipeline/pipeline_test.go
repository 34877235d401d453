package pipeline

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/finsent/internal/match"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/ppiankov/finsent/internal/nlp"
	"github.com/ppiankov/finsent/internal/rules"
	"github.com/ppiankov/finsent/internal/worker"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPipeline(t *testing.T, a nlp.Analyzer, workers int) *Pipeline {
	t.Helper()
	tables, err := rules.Default()
	if err != nil {
		t.Fatalf("rules.Default() error: %v", err)
	}
	return New(a, tables, Options{Workers: workers, Logger: zaptest.NewLogger(t)})
}

func aar() model.FilingRecord {
	return model.FilingRecord{
		CIK:     "1750",
		Company: "AAR CORP",
		Year:    2020,
		Sections: map[model.Section]string{
			model.SectionRiskFactors: "Net\nincome rose in 2021. The weather was mild.",
			model.SectionMDA:         "Sales in the next year may rise. EPS was flat in 2019.",
			model.SectionMarketRisk:  "",
		},
	}
}

func aarFacts() []model.ExtractedFact {
	row := func(sentence string, metric model.MetricLabel, item model.Section, fls model.FLSLabel) model.ExtractedFact {
		return model.ExtractedFact{Sentence: sentence, Metric: metric, Item: item, Year: 2020, CIK: "1750", Company: "AAR CORP", FLS: fls}
	}
	return []model.ExtractedFact{
		row("Net income rose in 2021.", model.MetricRevenue, model.SectionRiskFactors, model.LabelFLS),
		row("Net income rose in 2021.", model.MetricNetIncome, model.SectionRiskFactors, model.LabelFLS),
		row("Sales in the next year may rise.", model.MetricRevenue, model.SectionMDA, model.LabelFLS),
		row("EPS was flat in 2019.", model.MetricEPS, model.SectionMDA, model.LabelNonFLS),
	}
}

func TestPipeline_Process(t *testing.T) {
	p := newPipeline(t, nlp.NewStaticAnalyzer(), 2)

	result, err := p.Process(context.Background(), []model.FilingRecord{aar()})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if diff := cmp.Diff(aarFacts(), result.Facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}

	summary := result.Summary
	if summary.RunID == "" || summary.Filings != 1 || summary.Rows != 4 || summary.Duplicates != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(summary.Sections) != 3 {
		t.Fatalf("expected 3 section stats, got %d", len(summary.Sections))
	}
	wantStats := []model.SectionStats{
		{Item: model.SectionRiskFactors, Processed: 1, Rows: 2, FLS: 2},
		{Item: model.SectionMDA, Processed: 1, Rows: 2, FLS: 1},
		{Item: model.SectionMarketRisk, Skipped: 1},
	}
	for i := range summary.Sections {
		summary.Sections[i].Elapsed = 0
	}
	if diff := cmp.Diff(wantStats, summary.Sections); diff != "" {
		t.Errorf("section stats mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Process_SectionOrder(t *testing.T) {
	tables, err := rules.Default()
	if err != nil {
		t.Fatal(err)
	}
	p := New(nlp.NewStaticAnalyzer(), tables, Options{Sections: []model.Section{model.SectionMDA}})

	result, err := p.Process(context.Background(), []model.FilingRecord{aar()})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range result.Facts {
		if f.Item != model.SectionMDA {
			t.Errorf("unexpected section %s", f.Item)
		}
	}
	if len(result.Facts) != 2 {
		t.Errorf("expected 2 rows, got %d", len(result.Facts))
	}
}

// Feeding the same filing twice yields the same distinct rows as feeding it once
func TestPipeline_Process_Dedupe(t *testing.T) {
	p := newPipeline(t, nlp.NewStaticAnalyzer(), 4)

	result, err := p.Process(context.Background(), []model.FilingRecord{aar(), aar()})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if diff := cmp.Diff(aarFacts(), result.Facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
	if result.Summary.Duplicates != 4 {
		t.Errorf("expected 4 duplicates, got %d", result.Summary.Duplicates)
	}
}

// Output order follows input order whatever the worker count
func TestPipeline_Process_Deterministic(t *testing.T) {
	var filings []model.FilingRecord
	for i, cik := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		f := aar()
		f.CIK = cik
		f.Year = 2015 + i
		filings = append(filings, f)
	}

	serial, err := newPipeline(t, nlp.NewStaticAnalyzer(), 1).Process(context.Background(), filings)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := newPipeline(t, nlp.NewStaticAnalyzer(), 8).Process(context.Background(), filings)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(serial.Facts, parallel.Facts); diff != "" {
		t.Errorf("worker count changed the output (-serial +parallel):\n%s", diff)
	}
}

func TestPipeline_Process_EmptyInput(t *testing.T) {
	p := newPipeline(t, nlp.NewStaticAnalyzer(), 2)

	filings := []model.FilingRecord{
		{CIK: "1", Year: 2020},
		{CIK: "2", Year: 2020, Sections: map[model.Section]string{model.SectionMDA: "   "}},
	}
	result, err := p.Process(context.Background(), filings)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(result.Facts) != 0 {
		t.Errorf("expected no rows, got %v", result.Facts)
	}
	for _, s := range result.Summary.Sections {
		if s.Skipped != 2 || s.Failed != 0 {
			t.Errorf("%s: unexpected stats %+v", s.Item, s)
		}
	}

	result, err = p.Process(context.Background(), nil)
	if err != nil || len(result.Facts) != 0 {
		t.Errorf("Process(nil) = %v, %v", result, err)
	}
}

// panicAnalyzer panics on text containing "boom"
type panicAnalyzer struct {
	nlp.Analyzer
}

func (a panicAnalyzer) Sentences(text string) iter.Seq[nlp.Sentence] {
	if strings.Contains(text, "boom") {
		panic("tokenizer state corrupted")
	}
	return a.Analyzer.Sentences(text)
}

func TestPipeline_Process_FailureIsolation(t *testing.T) {
	p := newPipeline(t, panicAnalyzer{nlp.NewStaticAnalyzer()}, 2)

	bad := aar()
	bad.CIK = "66740"
	bad.Sections = map[model.Section]string{model.SectionMDA: "boom"}

	result, err := p.Process(context.Background(), []model.FilingRecord{bad, aar()})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if diff := cmp.Diff(aarFacts(), result.Facts); diff != "" {
		t.Errorf("healthy filing rows mismatch (-want +got):\n%s", diff)
	}
	if len(result.Summary.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", result.Summary.Failures)
	}
	failure := result.Summary.Failures[0]
	if failure.CIK != "66740" || failure.Item != model.SectionMDA || !strings.Contains(failure.Error, worker.ErrPanic.Error()) {
		t.Errorf("unexpected failure: %+v", failure)
	}
	if result.Summary.Sections[1].Failed != 1 {
		t.Errorf("expected the MD&A section to count the failure: %+v", result.Summary.Sections[1])
	}
}

func TestPipeline_Process_InvariantAborts(t *testing.T) {
	doc := `
version: 1
metrics:
  - name: eps
    label: EPS
    phrases: [eps]
fls:
  intent:
    - name: next
      patterns:
        - tokens:
            - text: [next]
  year:
    name: code
    patterns:
      - tokens:
          - regex: "[A-Z]"
            length: 4
`
	tables, err := rules.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	p := New(nlp.NewStaticAnalyzer(), tables, Options{Logger: zaptest.NewLogger(t)})

	filing := model.FilingRecord{
		CIK:      "1750",
		Year:     2020,
		Sections: map[model.Section]string{model.SectionMDA: "EPS for FORM 10-K."},
	}
	_, err = p.Process(context.Background(), []model.FilingRecord{filing})
	if !errors.Is(err, match.ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestPipeline_Process_Cancelled(t *testing.T) {
	p := newPipeline(t, nlp.NewStaticAnalyzer(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, []model.FilingRecord{aar()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDedupe(t *testing.T) {
	facts := aarFacts()
	in := append(append([]model.ExtractedFact{}, facts...), facts[2], facts[0])

	got, removed := Dedupe(in)
	if diff := cmp.Diff(facts, got); diff != "" {
		t.Errorf("Dedupe() mismatch (-want +got):\n%s", diff)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	// Rows differing only by FLS label are distinct
	changed := facts[0]
	changed.FLS = model.LabelNonFLS
	if got, _ := Dedupe([]model.ExtractedFact{facts[0], changed}); len(got) != 2 {
		t.Errorf("expected 2 distinct rows, got %d", len(got))
	}
}
