package extract

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/finsent/internal/match"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/ppiankov/finsent/internal/nlp"
	"github.com/ppiankov/finsent/internal/rules"
)

// Decision is the outcome of the forward-looking-statement policy
type Decision struct {
	Label model.FLSLabel
	Rule  string // Rule that decided; empty when nothing fired
	Years []int  // Year literals found by the fallback rule
}

// FLSClassifier labels sentences as forward-looking or not.
//
// The intent rules (temporal reference, future-intent verb) are checked
// together first. The year rule is a fallback: it is only consulted when
// no intent rule fired, so a sentence like "next year we expect ..." is
// never decided by a year literal it also contains.
type FLSClassifier struct {
	intent   *match.RuleSet
	year     *match.RuleSet
	analyzer nlp.Analyzer
}

// NewFLSClassifier creates a classifier; the analyzer is used by ClassifyText
func NewFLSClassifier(tables *rules.Tables, analyzer nlp.Analyzer) *FLSClassifier {
	return &FLSClassifier{
		intent:   tables.FLS.Intent,
		year:     tables.FLS.Year,
		analyzer: analyzer,
	}
}

// Decide applies the policy to an analyzed sentence
func (c *FLSClassifier) Decide(s nlp.Sentence, fiscalYear int) (Decision, error) {
	if span, ok := c.intent.Fires(s); ok {
		return Decision{Label: model.LabelFLS, Rule: span.Rule}, nil
	}

	spans := c.year.Match(s)
	if len(spans) == 0 {
		return Decision{Label: model.LabelNonFLS}, nil
	}

	d := Decision{Label: model.LabelNonFLS, Rule: spans[0].Rule}
	latest := 0
	for _, span := range spans {
		year, err := strconv.Atoi(span.Text)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: year literal %q: %v", match.ErrInvariant, span.Text, err)
		}
		d.Years = append(d.Years, year)
		latest = max(latest, year)
	}
	if latest > fiscalYear {
		d.Label = model.LabelFLS
	}
	return d, nil
}

// Classify returns only the label
func (c *FLSClassifier) Classify(s nlp.Sentence, fiscalYear int) (model.FLSLabel, error) {
	d, err := c.Decide(s, fiscalYear)
	if err != nil {
		return "", err
	}
	return d.Label, nil
}

// ClassifyText analyzes text as one sentence and decides it
func (c *FLSClassifier) ClassifyText(text string, fiscalYear int) (Decision, error) {
	return c.Decide(c.analyzer.Analyze(text), fiscalYear)
}
