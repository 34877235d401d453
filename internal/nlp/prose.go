package nlp

import (
	"fmt"
	"iter"
	"strings"

	"github.com/jdkato/prose/v2"
)

// ProseAnalyzer segments and tags English text with prose and lemmatizes
// tokens with a POS-aware Lemmatizer.
//
// The tagging model is loaded once and shared read-only by every call.
type ProseAnalyzer struct {
	model      *prose.Model
	lemmatizer *Lemmatizer
}

// NewProseAnalyzer loads the tagging model and the lemma dictionary
func NewProseAnalyzer() (*ProseAnalyzer, error) {
	lemmatizer, err := NewLemmatizer()
	if err != nil {
		return nil, err
	}
	return NewProseAnalyzerWithLemmatizer(lemmatizer)
}

// NewProseAnalyzerWithLemmatizer uses an existing lemmatizer
func NewProseAnalyzerWithLemmatizer(lemmatizer *Lemmatizer) (*ProseAnalyzer, error) {
	doc, err := prose.NewDocument("",
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("load tagging model: %w", err)
	}
	return &ProseAnalyzer{model: doc.Model, lemmatizer: lemmatizer}, nil
}

// Sentences segments text into sentences; each one is tokenized and tagged
// only when the consumer asks for it
func (a *ProseAnalyzer) Sentences(text string) iter.Seq[Sentence] {
	return func(yield func(Sentence) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		doc, err := prose.NewDocument(text,
			prose.UsingModel(a.model),
			prose.WithTokenization(false),
			prose.WithTagging(false),
			prose.WithExtraction(false),
		)
		if err != nil {
			return
		}

		for _, s := range doc.Sentences() {
			if strings.TrimSpace(s.Text) == "" {
				continue
			}
			if !yield(a.Analyze(s.Text)) {
				return
			}
		}
	}
}

// Analyze tokenizes, tags and lemmatizes text as one sentence
func (a *ProseAnalyzer) Analyze(text string) Sentence {
	if strings.TrimSpace(text) == "" {
		return Sentence{Text: text}
	}

	doc, err := prose.NewDocument(text,
		prose.UsingModel(a.model),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return Sentence{Text: text}
	}

	ptoks := doc.Tokens()
	tokens := make([]Token, 0, len(ptoks))
	for _, pt := range ptoks {
		lower := strings.ToLower(pt.Text)
		tokens = append(tokens, Token{
			Text:  pt.Text,
			Lower: lower,
			Lemma: a.lemmatizer.Lemma(lower, pt.Tag),
			Tag:   pt.Tag,
			POS:   CoarsePOS(pt.Tag),
		})
	}
	return NewSentence(text, tokens...)
}
