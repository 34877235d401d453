package nlp

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Dictionary resolves word forms to base forms
type Dictionary interface {
	InDict(word string) bool
	LemmaLower(word string) string
}

// Lemmatizer assigns lemmas using the part-of-speech tag of each token.
//
// Verbs go through the English dictionary first and the suffix rules for
// their tag second. Plural nouns are singularized by rule. Everything else,
// including gerunds the tagger left as nouns ("funding", "financing"), keeps
// its lowercase form.
type Lemmatizer struct {
	dict Dictionary
}

// NewLemmatizer loads the English golem dictionary
func NewLemmatizer() (*Lemmatizer, error) {
	dict, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemma dictionary: %w", err)
	}
	return &Lemmatizer{dict: dict}, nil
}

// NewLemmatizerWithDictionary uses a custom dictionary; nil means rules only
func NewLemmatizerWithDictionary(dict Dictionary) *Lemmatizer {
	return &Lemmatizer{dict: dict}
}

// Lemma returns the base form of a lowercase word given its Penn tag
func (l *Lemmatizer) Lemma(lower, tag string) string {
	if lower == "" || !isWord(lower) {
		return lower
	}

	switch {
	case IsVerbTag(tag):
		return l.verb(lower, tag)
	case tag == "NNS" || tag == "NNPS":
		return singular(lower)
	}
	return lower
}

func (l *Lemmatizer) verb(lower, tag string) string {
	if l.dict != nil && l.dict.InDict(lower) {
		if lemma := l.dict.LemmaLower(lower); lemma != "" {
			return lemma
		}
	}
	return verbRules(lower, tag)
}

type desinence struct {
	suffix      string
	replacement string
}

var pastDesinences = []desinence{
	{"ied", "y"},
	{"ed", ""},
}

// Suffix rules per inflected verb tag, checked in order; first match wins.
// Base forms (VB, VBP) have no entry and are returned unchanged.
var verbDesinences = map[string][]desinence{
	"VBZ": {
		{"ies", "y"},
		{"sses", "ss"},
		{"shes", "sh"},
		{"ches", "ch"},
		{"xes", "x"},
		{"s", ""},
	},
	"VBD": pastDesinences,
	"VBN": pastDesinences,
	"VBG": {
		{"ing", ""},
	},
}

func verbRules(word, tag string) string {
	for _, d := range verbDesinences[tag] {
		if !strings.HasSuffix(word, d.suffix) || len(word) <= len(d.suffix)+2 {
			continue
		}
		stem := strings.TrimSuffix(word, d.suffix) + d.replacement
		if d.suffix == "ing" || d.suffix == "ed" {
			stem = undouble(stem)
		}
		return stem
	}
	return word
}

// undouble turns "plann" into "plan"; "ll", "ss" and "zz" endings are kept
func undouble(stem string) string {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'l', 's', 'z':
		return stem
	}
	if isVowel(stem[n-1]) {
		return stem
	}
	return stem[:n-1]
}

func singular(word string) string {
	switch {
	case len(word) <= 3:
		return word
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "zzes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "s"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func isWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && c != '-' && c != '\'' {
			return false
		}
	}
	return true
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
