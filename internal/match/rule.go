package match

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ppiankov/finsent/internal/nlp"
)

// Span is a matched token window: the engine's only output unit
type Span struct {
	Rule    string // Name of the rule that produced the match
	Pattern string // ID of the owned pattern that fired
	Start   int    // First token index
	End     int    // One past the last token index
	Text    string // Surface text of the window
}

// Matcher finds every match of its rules in a sentence
type Matcher interface {
	Match(s nlp.Sentence) []Span
}

// Rule is a named set of patterns; a match by any owned pattern satisfies it
type Rule struct {
	Name     string
	Patterns []Pattern
}

// RuleSet is an ordered, immutable collection of rules
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates rules and freezes them.
// Patterns without an ID are named "<rule>#<n>".
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: rule set has no rules", ErrInvalidRule)
	}

	names := make(map[string]bool, len(rules))
	frozen := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: rule without a name", ErrInvalidRule)
		}
		if names[r.Name] {
			return nil, fmt.Errorf("%w: duplicate rule %q", ErrInvalidRule, r.Name)
		}
		names[r.Name] = true

		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("%w: rule %q has no patterns", ErrInvalidRule, r.Name)
		}

		ids := make(map[string]bool, len(r.Patterns))
		patterns := make([]Pattern, len(r.Patterns))
		for i, p := range r.Patterns {
			if len(p.variants) == 0 {
				return nil, fmt.Errorf("%w: rule %q pattern %d was not built with NewPattern", ErrInvalidRule, r.Name, i)
			}
			if p.ID == "" {
				p.ID = fmt.Sprintf("%s#%d", r.Name, i)
			}
			if ids[p.ID] {
				return nil, fmt.Errorf("%w: rule %q has duplicate pattern %q", ErrInvalidRule, r.Name, p.ID)
			}
			ids[p.ID] = true
			patterns[i] = p
		}
		frozen = append(frozen, Rule{Name: r.Name, Patterns: patterns})
	}

	return &RuleSet{rules: frozen}, nil
}

// Rules returns the rule names in order
func (rs *RuleSet) Rules() []string {
	names := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		names[i] = r.Name
	}
	return names
}

// Match scans every contiguous window for every pattern variant of every rule.
// All matches are returned, ordered by rule, pattern and start index;
// overlapping matches of different rules or patterns are all kept.
func (rs *RuleSet) Match(s nlp.Sentence) []Span {
	var spans []Span
	for _, r := range rs.rules {
		for _, p := range r.Patterns {
			spans = append(spans, matchPattern(r.Name, p, s)...)
		}
	}
	return spans
}

// Fires reports the first match, stopping as soon as one is found
func (rs *RuleSet) Fires(s nlp.Sentence) (Span, bool) {
	toks := s.Tokens
	for _, r := range rs.rules {
		for _, p := range r.Patterns {
			for _, v := range p.variants {
				for start := 0; start+len(v) <= len(toks); start++ {
					if matchAt(v, toks, start) {
						end := start + len(v)
						return Span{Rule: r.Name, Pattern: p.ID, Start: start, End: end, Text: s.Span(start, end)}, true
					}
				}
			}
		}
	}
	return Span{}, false
}

// matchPattern collects windows accepted by any variant; variants that
// collapse onto the same window are reported once
func matchPattern(rule string, p Pattern, s nlp.Sentence) []Span {
	toks := s.Tokens
	var spans []Span
	var seen map[[2]int]bool
	if len(p.variants) > 1 {
		seen = make(map[[2]int]bool)
	}

	for _, v := range p.variants {
		for start := 0; start+len(v) <= len(toks); start++ {
			if !matchAt(v, toks, start) {
				continue
			}
			end := start + len(v)
			if seen != nil {
				key := [2]int{start, end}
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			spans = append(spans, Span{Rule: rule, Pattern: p.ID, Start: start, End: end, Text: s.Span(start, end)})
		}
	}

	if len(p.variants) > 1 {
		slices.SortFunc(spans, func(a, b Span) int {
			return cmp.Or(a.Start-b.Start, a.End-b.End)
		})
	}
	return spans
}
