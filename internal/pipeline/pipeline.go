// Package pipeline drives metric and forward-looking-statement extraction
// over a batch of filings and assembles the deduplicated fact table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/finsent/internal/extract"
	"github.com/ppiankov/finsent/internal/match"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/ppiankov/finsent/internal/nlp"
	"github.com/ppiankov/finsent/internal/rules"
	"github.com/ppiankov/finsent/internal/worker"
	"go.uber.org/zap"
)

// Options configures a Pipeline
type Options struct {
	Sections []model.Section // Processing order; defaults to model.DefaultSections()
	Workers  int             // Concurrent filings per section; at least 1
	Logger   *zap.Logger
}

// Pipeline orchestrates the extraction of labeled sentences
type Pipeline struct {
	analyzer nlp.Analyzer
	metrics  *extract.MetricClassifier
	fls      *extract.FLSClassifier
	sections []model.Section
	workers  int
	logger   *zap.Logger
}

// New creates a pipeline over compiled rule tables
func New(analyzer nlp.Analyzer, tables *rules.Tables, opts Options) *Pipeline {
	sections := opts.Sections
	if len(sections) == 0 {
		sections = model.DefaultSections()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		analyzer: analyzer,
		metrics:  extract.NewMetricClassifier(tables),
		fls:      extract.NewFLSClassifier(tables, analyzer),
		sections: sections,
		workers:  max(opts.Workers, 1),
		logger:   logger,
	}
}

// Result is the fact table of a run and its summary
type Result struct {
	Facts   []model.ExtractedFact
	Summary model.RunSummary
}

// ExtractSection returns one row per (sentence, metric) of a filing section.
// FLS labels are attached later by Process. Empty or missing text yields no rows.
func (p *Pipeline) ExtractSection(ctx context.Context, filing model.FilingRecord, section model.Section) ([]model.ExtractedFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []model.ExtractedFact
	for _, labeled := range p.metrics.Extract(p.analyzer, filing.Text(section)) {
		sentence := extract.CleanSentence(labeled.Text)
		if sentence == "" {
			continue
		}
		for _, metric := range labeled.Labels {
			rows = append(rows, model.ExtractedFact{
				Sentence: sentence,
				Metric:   metric,
				Item:     section,
				Year:     filing.Year,
				CIK:      filing.CIK,
				Company:  filing.Company,
			})
		}
	}
	return rows, nil
}

// Process runs every configured section over the filings, in section order.
// A filing that fails in one section is recorded and skipped; invariant
// violations and cancellation abort the run.
func (p *Pipeline) Process(ctx context.Context, filings []model.FilingRecord) (*Result, error) {
	summary := model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Filings:   len(filings),
	}
	processor := worker.NewBatchProcessor(p, p.workers)
	labels := make(flsMemo)

	var all []model.ExtractedFact
	for _, section := range p.sections {
		start := time.Now()
		stats := model.SectionStats{Item: section}

		results := processor.ProcessSection(ctx, section, filings)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", section, err)
		}

		var rows []model.ExtractedFact
		for _, result := range results {
			if err := result.GetError(); err != nil {
				if errors.Is(err, match.ErrInvariant) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, fmt.Errorf("%s cik %s: %w", section, result.Filing.CIK, err)
				}
				stats.Failed++
				summary.Failures = append(summary.Failures, model.Failure{
					CIK:   result.Filing.CIK,
					Year:  result.Filing.Year,
					Item:  section,
					Error: err.Error(),
				})
				p.logger.Warn("skipping filing",
					zap.String("section", string(section)),
					zap.String("cik", result.Filing.CIK),
					zap.Int("year", result.Filing.Year),
					zap.Error(err))
				continue
			}
			if len(result.Rows) == 0 {
				stats.Skipped++
				continue
			}
			stats.Processed++
			rows = append(rows, result.Rows...)
		}

		if err := p.labelFLS(ctx, rows, labels); err != nil {
			return nil, fmt.Errorf("%s: %w", section, err)
		}
		for _, row := range rows {
			if row.FLS == model.LabelFLS {
				stats.FLS++
			}
		}
		stats.Rows = len(rows)
		stats.Elapsed = time.Since(start)
		summary.Sections = append(summary.Sections, stats)
		all = append(all, rows...)

		p.logger.Info(fmt.Sprintf("Finished extracting sentences for %s", section),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
			zap.Int("rows", stats.Rows),
			zap.Duration("elapsed", stats.Elapsed))
	}

	facts, duplicates := Dedupe(all)
	summary.Rows = len(facts)
	summary.Duplicates = duplicates
	summary.FinishedAt = time.Now().UTC()

	return &Result{Facts: facts, Summary: summary}, nil
}

type flsKey struct {
	sentence string
	year     int
}

// flsMemo caches decisions per (sentence, fiscal year) across sections
type flsMemo map[flsKey]model.FLSLabel

// labelFLS sets the FLS label of every row in place
func (p *Pipeline) labelFLS(ctx context.Context, rows []model.ExtractedFact, memo flsMemo) error {
	for i := range rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		key := flsKey{sentence: rows[i].Sentence, year: rows[i].Year}
		label, ok := memo[key]
		if !ok {
			d, err := p.fls.ClassifyText(key.sentence, key.year)
			if err != nil {
				return fmt.Errorf("cik %s: %w", rows[i].CIK, err)
			}
			label = d.Label
			memo[key] = label
		}
		rows[i].FLS = label
	}
	return nil
}

// Dedupe removes exact duplicate rows, keeping the first occurrence in order.
// It returns the distinct rows and the number removed.
func Dedupe(facts []model.ExtractedFact) ([]model.ExtractedFact, int) {
	seen := make(map[model.ExtractedFact]struct{}, len(facts))
	unique := make([]model.ExtractedFact, 0, len(facts))
	for _, f := range facts {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}
	return unique, len(facts) - len(unique)
}
