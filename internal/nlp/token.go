// Package nlp turns raw filing text into sentences of annotated tokens.
//
// The core matching engines only ever see the Token and Sentence types
// defined here; how they were produced is behind the Analyzer interface.
package nlp

import (
	"iter"
	"strings"
)

// Token is one annotated word or punctuation symbol of a sentence
type Token struct {
	Text  string // Surface text as it appears in the sentence
	Lower string // Lowercase form of Text
	Lemma string // Dictionary base form ("expects" -> "expect")
	Tag   string // Fine-grained Penn Treebank tag (VBZ, NNS, CD, ...)
	POS   string // Coarse universal part of speech (VERB, NOUN, NUM, ...)
	Index int    // Position in the sentence, 0-based
}

// Sentence is an ordered run of tokens plus the text it was built from
type Sentence struct {
	Text   string
	Tokens []Token
}

// Len returns the number of tokens
func (s Sentence) Len() int {
	return len(s.Tokens)
}

// Span returns the surface text of tokens [start, end) joined by single spaces
func (s Sentence) Span(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s.Tokens) {
		end = len(s.Tokens)
	}
	if start >= end {
		return ""
	}
	parts := make([]string, 0, end-start)
	for _, t := range s.Tokens[start:end] {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

// Analyzer performs sentence segmentation, tokenization, POS tagging and lemmatization.
// Implementations must be stateless and safe for concurrent use.
type Analyzer interface {
	// Sentences segments text and analyzes each sentence lazily.
	// Empty or unusable text yields no sentences.
	Sentences(text string) iter.Seq[Sentence]

	// Analyze treats text as a single sentence.
	Analyze(text string) Sentence
}

// NewToken builds a token from its surface text, lemma and Penn tag.
// An empty lemma defaults to the lowercase form.
func NewToken(text, lemma, tag string) Token {
	lower := strings.ToLower(text)
	if lemma == "" {
		lemma = lower
	}
	return Token{
		Text:  text,
		Lower: lower,
		Lemma: lemma,
		Tag:   tag,
		POS:   CoarsePOS(tag),
	}
}

// NewSentence assembles a sentence and assigns token indexes
func NewSentence(text string, tokens ...Token) Sentence {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		if t.Lower == "" {
			t.Lower = strings.ToLower(t.Text)
		}
		if t.Lemma == "" {
			t.Lemma = t.Lower
		}
		if t.POS == "" {
			t.POS = CoarsePOS(t.Tag)
		}
		t.Index = i
		out[i] = t
	}
	return Sentence{Text: text, Tokens: out}
}
