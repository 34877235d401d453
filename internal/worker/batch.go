package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"

	"github.com/ppiankov/finsent/internal/model"
)

// ErrPanic marks a job that panicked; the panic is confined to its filing
var ErrPanic = errors.New("section job panicked")

// Extractor labels the sentences of one section of one filing
type Extractor interface {
	ExtractSection(ctx context.Context, filing model.FilingRecord, section model.Section) ([]model.ExtractedFact, error)
}

// SectionJob extracts one filing's section
type SectionJob struct {
	Index     int // Position of the filing in the batch
	Filing    model.FilingRecord
	Section   model.Section
	Extractor Extractor
}

// Execute runs the extractor, converting a panic into an error result
func (j *SectionJob) Execute(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &SectionResult{
				Index:   j.Index,
				Filing:  j.Filing,
				Section: j.Section,
				Error:   fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack()),
			}
		}
	}()

	rows, err := j.Extractor.ExtractSection(ctx, j.Filing, j.Section)
	return &SectionResult{
		Index:   j.Index,
		Filing:  j.Filing,
		Section: j.Section,
		Rows:    rows,
		Error:   err,
	}
}

// SectionResult holds the rows one job produced
type SectionResult struct {
	Index   int
	Filing  model.FilingRecord
	Section model.Section
	Rows    []model.ExtractedFact
	Error   error
}

// GetError returns the error from the section result
func (r *SectionResult) GetError() error {
	return r.Error
}

// BatchProcessor runs one section over many filings concurrently
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessSection extracts section from every filing. Each job produces its
// own rows; results come back ordered by filing index so the caller can
// merge them deterministically. Jobs skipped because ctx was cancelled are
// missing from the result.
func (b *BatchProcessor) ProcessSection(ctx context.Context, section model.Section, filings []model.FilingRecord) []*SectionResult {
	if len(filings) == 0 {
		return []*SectionResult{}
	}

	pool := NewPool(ctx, min(b.concurrency, len(filings)))
	pool.Start()

	for i, filing := range filings {
		job := &SectionJob{
			Index:     i,
			Filing:    filing,
			Section:   section,
			Extractor: b.extractor,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	sectionResults := make([]*SectionResult, len(results))
	for i, result := range results {
		sectionResults[i] = result.(*SectionResult)
	}
	slices.SortFunc(sectionResults, func(a, b *SectionResult) int {
		return a.Index - b.Index
	})

	return sectionResults
}
