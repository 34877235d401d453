package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/finsent/internal/match"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/ppiankov/finsent/internal/nlp"
)

func TestDefault_CompilesOnce(t *testing.T) {
	a, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	b, _ := Default()
	if a != b {
		t.Error("expected Default() to return the same tables on every call")
	}

	if got := a.Metrics.Tokens.Rules(); strings.Join(got, ",") != "revenue,cash_flow" {
		t.Errorf("token rules = %v", got)
	}
	if got := a.Metrics.Phrases.Rules(); strings.Join(got, ",") != "net_income,ebit,eps" {
		t.Errorf("phrase rules = %v", got)
	}
	if got := a.FLS.Intent.Rules(); strings.Join(got, ",") != "temporal_reference,future_intent_verb" {
		t.Errorf("intent rules = %v", got)
	}
}

func TestDefault_CashFlowLabels(t *testing.T) {
	tables, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		s    nlp.Sentence
		want model.MetricLabel
	}{
		{
			name: "operating with connective",
			s: nlp.NewSentence("cash flow from operations",
				nlp.NewToken("cash", "", "NN"),
				nlp.NewToken("flow", "", "NN"),
				nlp.NewToken("from", "", "IN"),
				nlp.NewToken("operations", "operation", "NNS")),
			want: model.MetricCashFlowOperating,
		},
		{
			name: "abbreviation",
			s:    nlp.NewSentence("CFFO", nlp.NewToken("CFFO", "", "NNP")),
			want: model.MetricCashFlowOperating,
		},
		{
			name: "investing with verb and preposition",
			s: nlp.NewSentence("cash used in investing",
				nlp.NewToken("cash", "", "NN"),
				nlp.NewToken("used", "use", "VBN"),
				nlp.NewToken("in", "", "IN"),
				nlp.NewToken("investing", "invest", "VBG")),
			want: model.MetricCashFlowInvesting,
		},
		{
			name: "financing adjacent",
			s: nlp.NewSentence("cash financing",
				nlp.NewToken("cash", "", "NN"),
				nlp.NewToken("financing", "finance", "NN")),
			want: model.MetricCashFlowFinancing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := tables.Metrics.Tokens.Match(tt.s)
			if len(spans) != 1 {
				t.Fatalf("expected one span, got %v", spans)
			}
			got, ok := tables.Metrics.Label(spans[0])
			if !ok || got != tt.want {
				t.Errorf("Label(%v) = %q, %v; want %q", spans[0], got, ok, tt.want)
			}
		})
	}
}

func TestDefault_RuleLabelFallback(t *testing.T) {
	tables, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := tables.Metrics.Label(match.Span{Rule: "net_income", Pattern: "bottom line"}); !ok || got != model.MetricNetIncome {
		t.Errorf("net_income label = %q, %v", got, ok)
	}
	if got, ok := tables.Metrics.Label(match.Span{Rule: "revenue", Pattern: "revenue"}); !ok || got != model.MetricRevenue {
		t.Errorf("revenue label = %q, %v", got, ok)
	}
	if _, ok := tables.Metrics.Label(match.Span{Rule: "unknown"}); ok {
		t.Error("expected no label for an unknown rule")
	}
}

func TestLoad_Invalid(t *testing.T) {
	const fls = `
fls:
  intent:
    - name: next
      patterns:
        - tokens:
            - text: [next]
  year:
    name: year
    patterns:
      - tokens:
          - regex: "[1-2][0-9]{3}"
            length: 4
`
	const metric = `
metrics:
  - name: eps
    label: EPS
    phrases: [eps]
`

	tests := map[string]string{
		"empty document":    ``,
		"bad version":       "version: 2\n" + metric + fls,
		"unknown field":     "version: 1\nextra: true\n" + metric + fls,
		"no metrics":        "version: 1\n" + fls,
		"unknown label":     "version: 1\nmetrics:\n  - name: eps\n    label: Margin\n    phrases: [eps]\n" + fls,
		"phrases and rules": "version: 1\nmetrics:\n  - name: eps\n    label: EPS\n    phrases: [eps]\n    patterns:\n      - tokens:\n          - lower: [eps]\n" + fls,
		"unlabeled pattern": "version: 1\nmetrics:\n  - name: cf\n    patterns:\n      - tokens:\n          - lower: [cfo]\n" + fls,
		"two predicates":    "version: 1\nmetrics:\n  - name: cf\n    label: EPS\n    patterns:\n      - tokens:\n          - lower: [cfo]\n            text: [CFO]\n" + fls,
		"pos without lemma": "version: 1\nmetrics:\n  - name: cf\n    label: EPS\n    patterns:\n      - tokens:\n          - lower: [cfo]\n            pos: VERB\n" + fls,
		"all optional":      "version: 1\nmetrics:\n  - name: cf\n    label: EPS\n    patterns:\n      - tokens:\n          - lower: [cfo]\n            optional: true\n" + fls,
		"missing year rule": "version: 1\n" + metric + "fls:\n  intent:\n    - name: next\n      patterns:\n        - tokens:\n            - text: [next]\n",
		"multi-token year":  "version: 1\n" + metric + "fls:\n  intent:\n    - name: next\n      patterns:\n        - tokens:\n            - text: [next]\n  year:\n    name: year\n    patterns:\n      - tokens:\n          - text: [FY]\n          - regex: \"[0-9]\"\n            length: 4\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			if !errors.Is(err, match.ErrInvalidRule) {
				t.Errorf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestLoad_Minimal(t *testing.T) {
	doc := `
version: 1
metrics:
  - name: eps
    label: EPS
    phrases: [EPS, earnings per share]
fls:
  intent:
    - name: next
      patterns:
        - tokens:
            - text: [next]
  year:
    name: year
    patterns:
      - tokens:
          - regex: "[1-2][0-9][0-9][0-9]"
            length: 4
`
	tables, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tables.Metrics.Tokens != nil {
		t.Error("expected no token rules")
	}
	if n := len(tables.Metrics.Matchers()); n != 1 {
		t.Errorf("expected 1 matcher, got %d", n)
	}
}
