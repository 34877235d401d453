// Package extract labels sentences with the financial metrics they discuss
// and whether they are forward-looking statements.
package extract

import (
	"github.com/ppiankov/finsent/internal/match"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/ppiankov/finsent/internal/nlp"
	"github.com/ppiankov/finsent/internal/rules"
)

// LabeledSentence is a sentence with a non-empty metric label set
type LabeledSentence struct {
	Text   string
	Labels []model.MetricLabel
}

// MetricClassifier tags sentences with metric labels
type MetricClassifier struct {
	tables   rules.Metrics
	matchers []match.Matcher
}

// NewMetricClassifier creates a classifier over compiled rule tables
func NewMetricClassifier(tables *rules.Tables) *MetricClassifier {
	return &MetricClassifier{
		tables:   tables.Metrics,
		matchers: tables.Metrics.Matchers(),
	}
}

// Classify runs every metric rule and returns the distinct labels in canonical order.
// There is no precedence between rules; Cash Flow spans carry the label of
// the sub-pattern that fired.
func (c *MetricClassifier) Classify(s nlp.Sentence) []model.MetricLabel {
	all := model.MetricLabels()
	found := make([]bool, len(all))
	for _, m := range c.matchers {
		for _, span := range m.Match(s) {
			label, ok := c.tables.Label(span)
			if !ok {
				continue
			}
			if r := label.Rank(); r >= 0 {
				found[r] = true
			}
		}
	}

	var labels []model.MetricLabel
	for i, ok := range found {
		if ok {
			labels = append(labels, all[i])
		}
	}
	return labels
}

// Extract segments text and keeps sentences that match at least one metric
func (c *MetricClassifier) Extract(a nlp.Analyzer, text string) []LabeledSentence {
	var out []LabeledSentence
	for s := range a.Sentences(text) {
		labels := c.Classify(s)
		if len(labels) == 0 {
			continue
		}
		out = append(out, LabeledSentence{Text: s.Text, Labels: labels})
	}
	return out
}
