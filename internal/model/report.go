package model

import "time"

// RunSummary describes one extraction run
// It is written next to the fact table and never affects the rows themselves
type RunSummary struct {
	RunID      string         `json:"run_id"`      // UUID of the run
	StartedAt  time.Time      `json:"started_at"`  // When processing started
	FinishedAt time.Time      `json:"finished_at"` // When the final merge completed
	Filings    int            `json:"filings"`     // Filing records in the batch
	Sections   []SectionStats `json:"sections"`    // Per-section breakdown, in processing order

	Rows       int `json:"rows"`       // Rows after deduplication
	Duplicates int `json:"duplicates"` // Exact duplicate rows removed

	Failures []Failure `json:"failures,omitempty"` // Isolated per-filing failures
}

// SectionStats counts what happened to one narrative section across the batch
type SectionStats struct {
	Item      Section       `json:"item"`
	Processed int           `json:"processed"` // Filings that produced at least one row
	Skipped   int           `json:"skipped"`   // Filings with no matched sentence (empty or missing text included)
	Failed    int           `json:"failed"`    // Filings whose processing failed
	Rows      int           `json:"rows"`      // Rows before global deduplication
	FLS       int           `json:"fls"`       // Rows labeled FLS
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Failure records a filing/section unit that could not be processed
type Failure struct {
	CIK   string  `json:"cik"`
	Year  int     `json:"year"`
	Item  Section `json:"item"`
	Error string  `json:"error"`
}

// Duration returns the wall time of the run
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
