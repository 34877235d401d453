package model

import (
	"fmt"
	"strconv"
)

// MetricLabel names the financial metric a sentence discusses
type MetricLabel string

const (
	MetricRevenue           MetricLabel = "Revenue"
	MetricNetIncome         MetricLabel = "Net Income"
	MetricEBIT              MetricLabel = "EBIT"
	MetricEPS               MetricLabel = "EPS"
	MetricCashFlowOperating MetricLabel = "Cash Flow (Operating)"
	MetricCashFlowInvesting MetricLabel = "Cash Flow (Investing)"
	MetricCashFlowFinancing MetricLabel = "Cash Flow (Financing)"
)

// MetricLabels returns every metric label in canonical order
func MetricLabels() []MetricLabel {
	return []MetricLabel{
		MetricRevenue,
		MetricNetIncome,
		MetricEBIT,
		MetricEPS,
		MetricCashFlowOperating,
		MetricCashFlowInvesting,
		MetricCashFlowFinancing,
	}
}

// Rank returns the position of the label in canonical order, or -1 if unknown
func (m MetricLabel) Rank() int {
	for i, l := range MetricLabels() {
		if l == m {
			return i
		}
	}
	return -1
}

// ParseMetricLabel validates a metric label by its display name
func ParseMetricLabel(raw string) (MetricLabel, error) {
	m := MetricLabel(raw)
	if m.Rank() < 0 {
		return "", fmt.Errorf("unknown metric label %q", raw)
	}
	return m, nil
}

// FLSLabel marks whether a sentence is a forward-looking statement
type FLSLabel string

const (
	LabelFLS    FLSLabel = "FLS"
	LabelNonFLS FLSLabel = "Non-FLS"
)

// ExtractedFact is one output row: a sentence tagged with one metric and its FLS label
type ExtractedFact struct {
	Sentence string      `json:"sentence"` // Cleaned sentence text
	Metric   MetricLabel `json:"metric"`   // Metric discussed in the sentence
	Item     Section     `json:"item"`     // Section the sentence came from
	Year     int         `json:"year"`     // Fiscal year of the filing
	CIK      string      `json:"cik"`
	Company  string      `json:"company"`
	FLS      FLSLabel    `json:"fls"`
}

// FactColumns are the tabular output columns, in order
var FactColumns = []string{"Sentence", "Metric", "Item", "Year", "CIK", "Company", "FLS"}

// Record returns the fact as a row matching FactColumns
func (f ExtractedFact) Record() []string {
	return []string{
		f.Sentence,
		string(f.Metric),
		string(f.Item),
		strconv.Itoa(f.Year),
		f.CIK,
		f.Company,
		string(f.FLS),
	}
}
