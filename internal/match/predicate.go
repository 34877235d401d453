// Package match evaluates named token-pattern rules against analyzed sentences.
//
// Rules are compiled once into immutable RuleSets and PhraseMatchers; all
// evaluation is read-only and safe to share across goroutines.
package match

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/finsent/internal/nlp"
)

var (
	// ErrInvalidRule marks a rule table that cannot be compiled
	ErrInvalidRule = errors.New("invalid rule")

	// ErrInvariant marks a runtime condition that rule compilation should have ruled out
	ErrInvariant = errors.New("matching invariant violated")
)

// Predicate accepts or rejects a single token. Implementations are pure.
type Predicate interface {
	Accept(tok nlp.Token) bool
	String() string
}

type wordSet map[string]struct{}

func newWordSet(words []string, fold bool) (wordSet, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty word set", ErrInvalidRule)
	}
	set := make(wordSet, len(words))
	for _, w := range words {
		if w == "" {
			return nil, fmt.Errorf("%w: empty word in set", ErrInvalidRule)
		}
		if fold {
			w = strings.ToLower(w)
		}
		set[w] = struct{}{}
	}
	return set, nil
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

func (s wordSet) String() string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	slices.Sort(words)
	return "[" + strings.Join(words, " ") + "]"
}

// TextIn accepts tokens whose surface text is in the set (case-sensitive)
type TextIn struct {
	set wordSet
}

// NewTextIn builds a case-sensitive surface-text predicate
func NewTextIn(words ...string) (*TextIn, error) {
	set, err := newWordSet(words, false)
	if err != nil {
		return nil, err
	}
	return &TextIn{set: set}, nil
}

func (p *TextIn) Accept(tok nlp.Token) bool { return p.set.has(tok.Text) }
func (p *TextIn) String() string            { return "text in " + p.set.String() }

// LowerIn accepts tokens whose lowercase form is in the set
type LowerIn struct {
	set wordSet
}

// NewLowerIn builds a case-insensitive word predicate
func NewLowerIn(words ...string) (*LowerIn, error) {
	set, err := newWordSet(words, true)
	if err != nil {
		return nil, err
	}
	return &LowerIn{set: set}, nil
}

func (p *LowerIn) Accept(tok nlp.Token) bool { return p.set.has(tok.Lower) }
func (p *LowerIn) String() string            { return "lower in " + p.set.String() }

// LowerEq accepts tokens whose lowercase form equals one word; phrase patterns are made of these
type LowerEq struct {
	word string
}

// NewLowerEq builds a single-word case-insensitive predicate
func NewLowerEq(word string) (*LowerEq, error) {
	if word == "" {
		return nil, fmt.Errorf("%w: empty phrase word", ErrInvalidRule)
	}
	return &LowerEq{word: strings.ToLower(word)}, nil
}

func (p *LowerEq) Accept(tok nlp.Token) bool { return tok.Lower == p.word }
func (p *LowerEq) String() string            { return "lower = " + p.word }

// LemmaIn accepts tokens whose lemma is in the set and, when POS is set,
// whose coarse part of speech equals it
type LemmaIn struct {
	set wordSet
	pos string
}

// NewLemmaIn builds a lemma predicate; pos may be empty to accept any part of speech
func NewLemmaIn(pos string, lemmas ...string) (*LemmaIn, error) {
	set, err := newWordSet(lemmas, false)
	if err != nil {
		return nil, err
	}
	return &LemmaIn{set: set, pos: pos}, nil
}

func (p *LemmaIn) Accept(tok nlp.Token) bool {
	if p.pos != "" && tok.POS != p.pos {
		return false
	}
	return p.set.has(tok.Lemma)
}

func (p *LemmaIn) String() string {
	if p.pos == "" {
		return "lemma in " + p.set.String()
	}
	return "lemma in " + p.set.String() + " pos = " + p.pos
}

// RegexLen accepts tokens whose surface text contains a regex match and whose
// length in characters is exactly Length
type RegexLen struct {
	re     *regexp.Regexp
	length int
}

// NewRegexLen compiles the expression; length must be positive
func NewRegexLen(expr string, length int) (*RegexLen, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty regex", ErrInvalidRule)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: regex length must be positive, got %d", ErrInvalidRule, length)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %q: %v", ErrInvalidRule, expr, err)
	}
	return &RegexLen{re: re, length: length}, nil
}

func (p *RegexLen) Accept(tok nlp.Token) bool {
	return utf8.RuneCountInString(tok.Text) == p.length && p.re.MatchString(tok.Text)
}

func (p *RegexLen) String() string {
	return fmt.Sprintf("regex /%s/ length = %d", p.re.String(), p.length)
}
