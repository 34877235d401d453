package model

import "fmt"

// Section identifies a narrative part of a 10-K filing
type Section string

const (
	SectionRiskFactors Section = "item_1A" // Item 1A. Risk Factors
	SectionMDA         Section = "item_7"  // Item 7. Management's Discussion and Analysis
	SectionMarketRisk  Section = "item_7A" // Item 7A. Quantitative and Qualitative Disclosures About Market Risk
)

// DefaultSections returns the narrative sections processed by default, in processing order
func DefaultSections() []Section {
	return []Section{SectionRiskFactors, SectionMDA, SectionMarketRisk}
}

// Title returns the human-readable section title
func (s Section) Title() string {
	switch s {
	case SectionRiskFactors:
		return "Risk Factors"
	case SectionMDA:
		return "Management's Discussion and Analysis"
	case SectionMarketRisk:
		return "Market Risk"
	default:
		return string(s)
	}
}

// ParseSection validates a section identifier
func ParseSection(raw string) (Section, error) {
	switch s := Section(raw); s {
	case SectionRiskFactors, SectionMDA, SectionMarketRisk:
		return s, nil
	}
	return "", fmt.Errorf("unknown section %q (want item_1A, item_7 or item_7A)", raw)
}

// FilingRecord is one annual report with the raw text of its narrative sections
type FilingRecord struct {
	CIK            string             `json:"cik"`                        // SEC Central Index Key
	Company        string             `json:"company"`                    // Registrant name
	Year           int                `json:"year"`                       // Fiscal year of the report
	Filename       string             `json:"filename,omitempty"`         // Source document name in the corpus
	PeriodOfReport string             `json:"period_of_report,omitempty"` // e.g. "2020-12-31"
	Sections       map[Section]string `json:"sections"`                   // Raw section text keyed by item
}

// Text returns the raw text of a section (empty if the section is missing)
func (f FilingRecord) Text(s Section) string {
	if f.Sections == nil {
		return ""
	}
	return f.Sections[s]
}
