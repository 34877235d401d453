package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/finsent/internal/model"
)

// mockExtractor emits one row per filing, fails on CIK "bad" and panics on CIK "boom"
type mockExtractor struct{}

func (m *mockExtractor) ExtractSection(ctx context.Context, filing model.FilingRecord, section model.Section) ([]model.ExtractedFact, error) {
	switch filing.CIK {
	case "bad":
		return nil, errors.New("malformed section")
	case "boom":
		panic("nil tokens")
	}
	return []model.ExtractedFact{{
		Sentence: filing.Text(section),
		Item:     section,
		Year:     filing.Year,
		CIK:      filing.CIK,
	}}, nil
}

func filings(ciks ...string) []model.FilingRecord {
	out := make([]model.FilingRecord, len(ciks))
	for i, cik := range ciks {
		out[i] = model.FilingRecord{
			CIK:      cik,
			Year:     2020,
			Sections: map[model.Section]string{model.SectionMDA: "text of " + cik},
		}
	}
	return out
}

func TestBatchProcessor_ProcessSection(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 3)

	ciks := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	results := processor.ProcessSection(context.Background(), model.SectionMDA, filings(ciks...))

	if len(results) != len(ciks) {
		t.Fatalf("expected %d results, got %d", len(ciks), len(results))
	}
	for i, result := range results {
		if result.Index != i {
			t.Errorf("result %d has index %d; results must be ordered by filing", i, result.Index)
		}
		if result.Error != nil {
			t.Errorf("unexpected error: %v", result.Error)
		}
		if len(result.Rows) != 1 || result.Rows[0].CIK != ciks[i] {
			t.Errorf("result %d: unexpected rows %v", i, result.Rows)
		}
	}
}

func TestBatchProcessor_ProcessSection_Isolation(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2)

	results := processor.ProcessSection(context.Background(), model.SectionMDA, filings("1", "bad", "boom", "4"))
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	if results[0].GetError() != nil || results[3].GetError() != nil {
		t.Error("healthy filings must not be affected by failing ones")
	}
	if results[1].GetError() == nil || !strings.Contains(results[1].GetError().Error(), "malformed") {
		t.Errorf("expected extractor error, got %v", results[1].GetError())
	}
	if !errors.Is(results[2].GetError(), ErrPanic) {
		t.Errorf("expected ErrPanic, got %v", results[2].GetError())
	}
	if results[2].Filing.CIK != "boom" || results[2].Section != model.SectionMDA {
		t.Errorf("panic result lost its filing: %+v", results[2])
	}
}

func TestBatchProcessor_ProcessSection_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2)

	results := processor.ProcessSection(context.Background(), model.SectionMDA, nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessSection_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessSection(ctx, model.SectionMDA, filings("1", "2", "3"))
	if len(results) != 0 {
		t.Errorf("expected no results from a cancelled batch, got %d", len(results))
	}
}

func TestSectionResult_GetError(t *testing.T) {
	err := errors.New("test error")
	result := &SectionResult{Error: err}

	if result.GetError() != err {
		t.Errorf("expected error %v, got %v", err, result.GetError())
	}
}
