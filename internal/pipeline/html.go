package pipeline

import (
	"regexp"
	"strings"

	"github.com/ppiankov/finsent/internal/model"
	"golang.org/x/net/html"
)

var markupRE = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*[\s/>]`)

// HasMarkup reports whether text looks like an HTML fragment
func HasMarkup(text string) bool {
	return markupRE.MatchString(text)
}

// VisibleText returns the text nodes of an HTML fragment separated by spaces,
// skipping script, style, noscript and iframe content. Text without markup is
// returned unchanged.
func VisibleText(text string) (string, error) {
	if !HasMarkup(text) {
		return text, nil
	}
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return "", err
	}
	return extractVisibleText(doc), nil
}

// StripHTML replaces the section text of every filing that contains markup
// with its visible text. Filings whose markup cannot be parsed keep the raw text.
func StripHTML(filings []model.FilingRecord) {
	for i := range filings {
		for section, text := range filings[i].Sections {
			visible, err := VisibleText(text)
			if err != nil {
				continue
			}
			filings[i].Sections[section] = visible
		}
	}
}

func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.TrimSpace(buf.String())
}
