package match

import (
	"fmt"
	"strings"

	"github.com/ppiankov/finsent/internal/nlp"
)

// PhraseRule is a named vocabulary of fixed phrases ("net income", "bottom line")
type PhraseRule struct {
	Name    string
	Phrases []string
}

type phraseEntry struct {
	rule   string
	id     string   // lowercase words joined by single spaces
	words  []string // lowercase words; words[0] is the index key
	ruleNo int
}

// PhraseMatcher matches fixed multi-word phrases case-insensitively.
//
// Phrases are indexed by their first word, so each token position only
// compares the phrases that can start there.
type PhraseMatcher struct {
	rules   []string
	byFirst map[string][]phraseEntry
}

// NewPhraseMatcher splits every phrase on whitespace, lowercases it and builds the index
func NewPhraseMatcher(rules ...PhraseRule) (*PhraseMatcher, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: phrase matcher has no rules", ErrInvalidRule)
	}

	m := &PhraseMatcher{byFirst: make(map[string][]phraseEntry)}
	names := make(map[string]bool, len(rules))
	for n, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: phrase rule without a name", ErrInvalidRule)
		}
		if names[r.Name] {
			return nil, fmt.Errorf("%w: duplicate phrase rule %q", ErrInvalidRule, r.Name)
		}
		names[r.Name] = true
		if len(r.Phrases) == 0 {
			return nil, fmt.Errorf("%w: phrase rule %q has no phrases", ErrInvalidRule, r.Name)
		}

		seen := make(map[string]bool, len(r.Phrases))
		for _, phrase := range r.Phrases {
			words := strings.Fields(strings.ToLower(phrase))
			if len(words) == 0 {
				return nil, fmt.Errorf("%w: phrase rule %q has an empty phrase", ErrInvalidRule, r.Name)
			}
			key := strings.Join(words, " ")
			if seen[key] {
				continue
			}
			seen[key] = true
			m.byFirst[words[0]] = append(m.byFirst[words[0]], phraseEntry{
				rule:   r.Name,
				id:     key,
				words:  words,
				ruleNo: n,
			})
		}
		m.rules = append(m.rules, r.Name)
	}
	return m, nil
}

// Rules returns the phrase rule names in order
func (m *PhraseMatcher) Rules() []string {
	return append([]string(nil), m.rules...)
}

// Match returns a span for every phrase occurrence, ordered by rule then start index.
// The span's Pattern is the matched phrase.
func (m *PhraseMatcher) Match(s nlp.Sentence) []Span {
	byRule := make([][]Span, len(m.rules))
	toks := s.Tokens
	for start, tok := range toks {
		for _, e := range m.byFirst[tok.Lower] {
			end := start + len(e.words)
			if end > len(toks) || !wordsAt(e.words, toks, start) {
				continue
			}
			byRule[e.ruleNo] = append(byRule[e.ruleNo], Span{
				Rule:    e.rule,
				Pattern: e.id,
				Start:   start,
				End:     end,
				Text:    s.Span(start, end),
			})
		}
	}

	var spans []Span
	for _, rs := range byRule {
		spans = append(spans, rs...)
	}
	return spans
}

func wordsAt(words []string, toks []nlp.Token, start int) bool {
	for i, w := range words {
		if toks[start+i].Lower != w {
			return false
		}
	}
	return true
}

// tokenRule turns a phrase rule into an equivalent token Rule of LowerEq
// predicates. Repeated phrases collapse into one pattern as in NewPhraseMatcher.
func (r PhraseRule) tokenRule() (Rule, error) {
	rule := Rule{Name: r.Name}
	seen := make(map[string]bool, len(r.Phrases))
	for _, phrase := range r.Phrases {
		words := strings.Fields(strings.ToLower(phrase))
		key := strings.Join(words, " ")
		if seen[key] {
			continue
		}
		seen[key] = true

		elements := make([]Element, 0, len(words))
		for _, w := range words {
			p, err := NewLowerEq(w)
			if err != nil {
				return Rule{}, err
			}
			elements = append(elements, Required(p))
		}
		pattern, err := NewPattern(key, elements...)
		if err != nil {
			return Rule{}, err
		}
		rule.Patterns = append(rule.Patterns, pattern)
	}
	return rule, nil
}
