package nlp

import (
	"iter"
	"regexp"
	"strings"
)

var (
	wordRE     = regexp.MustCompile(`[A-Za-z]+(?:['’][A-Za-z]+)?|\d+(?:[.,]\d+)*|[^\sA-Za-z\d]`)
	sentenceRE = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
)

// StaticAnalyzer serves pre-analyzed sentences for fixtures and tests.
//
// Sentences registered with Add are returned verbatim (matched on their
// trimmed text). Anything else falls back to a plain tokenizer that splits
// on terminal punctuation, lowercases tokens and leaves lemma equal to the
// lowercase form with no tag.
type StaticAnalyzer struct {
	known map[string]Sentence
}

// NewStaticAnalyzer registers the given sentences
func NewStaticAnalyzer(sentences ...Sentence) *StaticAnalyzer {
	a := &StaticAnalyzer{known: make(map[string]Sentence, len(sentences))}
	for _, s := range sentences {
		a.Add(s)
	}
	return a
}

// Add registers a pre-analyzed sentence. Not safe to call concurrently with analysis.
func (a *StaticAnalyzer) Add(s Sentence) {
	a.known[strings.TrimSpace(s.Text)] = s
}

// Sentences splits on terminal punctuation and analyzes each piece
func (a *StaticAnalyzer) Sentences(text string) iter.Seq[Sentence] {
	return func(yield func(Sentence) bool) {
		for _, piece := range splitSentences(text) {
			if !yield(a.Analyze(piece)) {
				return
			}
		}
	}
}

// Analyze returns the registered sentence for text, or a plain tokenization
func (a *StaticAnalyzer) Analyze(text string) Sentence {
	if s, ok := a.known[strings.TrimSpace(text)]; ok {
		return s
	}
	words := wordRE.FindAllString(text, -1)
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, NewToken(w, "", ""))
	}
	return NewSentence(text, tokens...)
}

// splitSentences keeps the terminator with its sentence and drops blank pieces
func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRE.FindAllStringIndex(text, -1) {
		if piece := strings.TrimSpace(text[last:loc[1]]); piece != "" {
			out = append(out, piece)
		}
		last = loc[1]
	}
	if piece := strings.TrimSpace(text[last:]); piece != "" {
		out = append(out, piece)
	}
	return out
}
