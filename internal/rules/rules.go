// Package rules holds the metric and forward-looking-statement rule tables.
//
// Tables are declared in YAML (default.yaml is embedded), validated and
// compiled once into immutable matchers that any number of goroutines can
// share.
package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ppiankov/finsent/internal/match"
	"github.com/ppiankov/finsent/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the YAML document layout
type File struct {
	Version int          `yaml:"version"`
	Metrics []MetricRule `yaml:"metrics"`
	FLS     FLSRules     `yaml:"fls"`
}

// MetricRule is one metric rule group: either a phrase vocabulary or token patterns
type MetricRule struct {
	Name     string        `yaml:"name"`
	Label    string        `yaml:"label"`
	Phrases  []string      `yaml:"phrases"`
	Patterns []PatternSpec `yaml:"patterns"`
}

// FLSRules declares the intent rules (checked together) and the year fallback rule
type FLSRules struct {
	Intent []RuleSpec `yaml:"intent"`
	Year   RuleSpec   `yaml:"year"`
}

// RuleSpec is a named group of token patterns
type RuleSpec struct {
	Name     string        `yaml:"name"`
	Patterns []PatternSpec `yaml:"patterns"`
}

// PatternSpec is an ordered token sequence; Label overrides the rule label
type PatternSpec struct {
	ID     string      `yaml:"id"`
	Label  string      `yaml:"label"`
	Tokens []TokenSpec `yaml:"tokens"`
}

// TokenSpec declares exactly one predicate
type TokenSpec struct {
	Text     []string `yaml:"text"`
	Lower    []string `yaml:"lower"`
	Lemma    []string `yaml:"lemma"`
	POS      string   `yaml:"pos"`
	Regex    string   `yaml:"regex"`
	Length   int      `yaml:"length"`
	Optional bool     `yaml:"optional"`
}

// Tables are the compiled, read-only rule tables
type Tables struct {
	Metrics Metrics
	FLS     FLS
}

// Metrics holds the metric matchers and the label of every rule and pattern
type Metrics struct {
	Tokens  *match.RuleSet
	Phrases *match.PhraseMatcher
	labels  map[labelKey]model.MetricLabel
}

type labelKey struct {
	rule    string
	pattern string
}

// FLS holds the combined intent matcher and the year-literal fallback
type FLS struct {
	Intent *match.RuleSet
	Year   *match.RuleSet
}

// Matchers returns the non-nil metric matchers
func (m Metrics) Matchers() []match.Matcher {
	var out []match.Matcher
	if m.Tokens != nil {
		out = append(out, m.Tokens)
	}
	if m.Phrases != nil {
		out = append(out, m.Phrases)
	}
	return out
}

// Label resolves a span to its metric label: the pattern label if declared, otherwise the rule label
func (m Metrics) Label(span match.Span) (model.MetricLabel, bool) {
	if l, ok := m.labels[labelKey{span.Rule, span.Pattern}]; ok {
		return l, true
	}
	l, ok := m.labels[labelKey{rule: span.Rule}]
	return l, ok
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the embedded tables, compiled on first use
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = Load(bytes.NewReader(defaultYAML))
	})
	return defaultTables, defaultErr
}

// LoadFile reads and compiles a rule file
func LoadFile(path string) (*Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules: %w", err)
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Load decodes a rule document strictly and compiles it
func Load(r io.Reader) (*Tables, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty rule document", match.ErrInvalidRule)
		}
		return nil, fmt.Errorf("%w: %v", match.ErrInvalidRule, err)
	}
	return Compile(f)
}

// Compile validates a rule document and builds its matchers
func Compile(f File) (*Tables, error) {
	if f.Version != 1 {
		return nil, fmt.Errorf("%w: unsupported rule version %d", match.ErrInvalidRule, f.Version)
	}

	metrics, err := compileMetrics(f.Metrics)
	if err != nil {
		return nil, err
	}

	intent, err := compileRuleSet(f.FLS.Intent)
	if err != nil {
		return nil, fmt.Errorf("fls intent: %w", err)
	}

	if err := checkYearRule(f.FLS.Year); err != nil {
		return nil, err
	}
	year, err := compileRuleSet([]RuleSpec{f.FLS.Year})
	if err != nil {
		return nil, fmt.Errorf("fls year: %w", err)
	}

	return &Tables{
		Metrics: metrics,
		FLS:     FLS{Intent: intent, Year: year},
	}, nil
}

func compileMetrics(specs []MetricRule) (Metrics, error) {
	if len(specs) == 0 {
		return Metrics{}, fmt.Errorf("%w: no metric rules", match.ErrInvalidRule)
	}

	m := Metrics{labels: make(map[labelKey]model.MetricLabel)}
	var tokenRules []match.Rule
	var phraseRules []match.PhraseRule
	names := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if spec.Name == "" {
			return Metrics{}, fmt.Errorf("%w: metric rule without a name", match.ErrInvalidRule)
		}
		// token and phrase rules share one label namespace
		if names[spec.Name] {
			return Metrics{}, fmt.Errorf("%w: duplicate metric rule %q", match.ErrInvalidRule, spec.Name)
		}
		names[spec.Name] = true

		if (len(spec.Phrases) == 0) == (len(spec.Patterns) == 0) {
			return Metrics{}, fmt.Errorf("%w: metric rule %q must declare either phrases or patterns", match.ErrInvalidRule, spec.Name)
		}

		if spec.Label != "" {
			label, err := model.ParseMetricLabel(spec.Label)
			if err != nil {
				return Metrics{}, fmt.Errorf("%w: metric rule %q: %v", match.ErrInvalidRule, spec.Name, err)
			}
			m.labels[labelKey{rule: spec.Name}] = label
		}

		if len(spec.Phrases) > 0 {
			if spec.Label == "" {
				return Metrics{}, fmt.Errorf("%w: phrase rule %q has no label", match.ErrInvalidRule, spec.Name)
			}
			phraseRules = append(phraseRules, match.PhraseRule{Name: spec.Name, Phrases: spec.Phrases})
			continue
		}

		rule, err := compileRule(RuleSpec{Name: spec.Name, Patterns: spec.Patterns})
		if err != nil {
			return Metrics{}, err
		}
		for i, p := range spec.Patterns {
			if p.Label == "" {
				if spec.Label == "" {
					return Metrics{}, fmt.Errorf("%w: metric rule %q pattern %q has no label", match.ErrInvalidRule, spec.Name, rule.Patterns[i].ID)
				}
				continue
			}
			label, err := model.ParseMetricLabel(p.Label)
			if err != nil {
				return Metrics{}, fmt.Errorf("%w: metric rule %q: %v", match.ErrInvalidRule, spec.Name, err)
			}
			m.labels[labelKey{spec.Name, rule.Patterns[i].ID}] = label
		}
		tokenRules = append(tokenRules, rule)
	}

	var err error
	if len(tokenRules) > 0 {
		if m.Tokens, err = match.NewRuleSet(tokenRules...); err != nil {
			return Metrics{}, err
		}
	}
	if len(phraseRules) > 0 {
		if m.Phrases, err = match.NewPhraseMatcher(phraseRules...); err != nil {
			return Metrics{}, err
		}
	}
	return m, nil
}

func compileRuleSet(specs []RuleSpec) (*match.RuleSet, error) {
	rules := make([]match.Rule, 0, len(specs))
	for _, spec := range specs {
		r, err := compileRule(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return match.NewRuleSet(rules...)
}

// compileRule assigns generated pattern IDs up front so labels can refer to them
func compileRule(spec RuleSpec) (match.Rule, error) {
	rule := match.Rule{Name: spec.Name}
	for i, ps := range spec.Patterns {
		id := ps.ID
		if id == "" {
			id = fmt.Sprintf("%s#%d", spec.Name, i)
		}
		elements := make([]match.Element, 0, len(ps.Tokens))
		for j, ts := range ps.Tokens {
			p, err := compilePredicate(ts)
			if err != nil {
				return match.Rule{}, fmt.Errorf("rule %q pattern %q token %d: %w", spec.Name, id, j, err)
			}
			elements = append(elements, match.Element{Predicate: p, Optional: ts.Optional})
		}
		pattern, err := match.NewPattern(id, elements...)
		if err != nil {
			return match.Rule{}, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		rule.Patterns = append(rule.Patterns, pattern)
	}
	return rule, nil
}

func compilePredicate(ts TokenSpec) (match.Predicate, error) {
	kinds := 0
	for _, set := range []bool{len(ts.Text) > 0, len(ts.Lower) > 0, len(ts.Lemma) > 0, ts.Regex != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("%w: token must declare exactly one of text, lower, lemma, regex (got %d)", match.ErrInvalidRule, kinds)
	}
	if ts.POS != "" && len(ts.Lemma) == 0 {
		return nil, fmt.Errorf("%w: pos is only valid with lemma", match.ErrInvalidRule)
	}
	if ts.Length != 0 && ts.Regex == "" {
		return nil, fmt.Errorf("%w: length is only valid with regex", match.ErrInvalidRule)
	}

	switch {
	case len(ts.Text) > 0:
		return match.NewTextIn(ts.Text...)
	case len(ts.Lower) > 0:
		return match.NewLowerIn(ts.Lower...)
	case len(ts.Lemma) > 0:
		return match.NewLemmaIn(ts.POS, ts.Lemma...)
	default:
		return match.NewRegexLen(ts.Regex, ts.Length)
	}
}

// The year rule's spans are parsed as integers, so every pattern must be a
// single required regex token.
func checkYearRule(spec RuleSpec) error {
	if spec.Name == "" || len(spec.Patterns) == 0 {
		return fmt.Errorf("%w: fls year rule is missing", match.ErrInvalidRule)
	}
	for _, p := range spec.Patterns {
		if len(p.Tokens) != 1 || p.Tokens[0].Regex == "" || p.Tokens[0].Optional {
			return fmt.Errorf("%w: fls year rule %q must be a single regex token", match.ErrInvalidRule, spec.Name)
		}
	}
	return nil
}
