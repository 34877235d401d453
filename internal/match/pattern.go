package match

import (
	"fmt"

	"github.com/ppiankov/finsent/internal/nlp"
)

// maxOptional bounds fixed-length expansion of a single pattern (2^n variants)
const maxOptional = 6

// Element is one position of a pattern
type Element struct {
	Predicate Predicate
	Optional  bool // The position may be absent
}

// Required wraps a predicate as a mandatory element
func Required(p Predicate) Element { return Element{Predicate: p} }

// Optional wraps a predicate as an element that may be skipped
func Optional(p Predicate) Element { return Element{Predicate: p, Optional: true} }

// Pattern is an ordered sequence of elements matched against contiguous tokens.
//
// Optional elements are expanded at construction into every fixed-length
// variant, so matching always compares windows whose length equals the
// variant length.
type Pattern struct {
	ID       string
	Elements []Element

	variants [][]Predicate
}

// NewPattern validates elements and expands optional positions
func NewPattern(id string, elements ...Element) (Pattern, error) {
	if len(elements) == 0 {
		return Pattern{}, fmt.Errorf("%w: pattern %q has no elements", ErrInvalidRule, id)
	}

	optional := 0
	for i, el := range elements {
		if el.Predicate == nil {
			return Pattern{}, fmt.Errorf("%w: pattern %q element %d has no predicate", ErrInvalidRule, id, i)
		}
		if el.Optional {
			optional++
		}
	}
	if optional == len(elements) {
		return Pattern{}, fmt.Errorf("%w: pattern %q has only optional elements", ErrInvalidRule, id)
	}
	if optional > maxOptional {
		return Pattern{}, fmt.Errorf("%w: pattern %q has %d optional elements (max %d)", ErrInvalidRule, id, optional, maxOptional)
	}

	return Pattern{
		ID:       id,
		Elements: elements,
		variants: expand(elements),
	}, nil
}

// Variants returns the fixed-length predicate sequences the pattern matches
func (p Pattern) Variants() [][]Predicate {
	return p.variants
}

func expand(elements []Element) [][]Predicate {
	variants := [][]Predicate{nil}
	for _, el := range elements {
		next := make([][]Predicate, 0, len(variants)*2)
		for _, v := range variants {
			with := make([]Predicate, len(v), len(v)+1)
			copy(with, v)
			next = append(next, append(with, el.Predicate))
			if el.Optional {
				next = append(next, v)
			}
		}
		variants = next
	}
	return variants
}

// matchAt reports whether the predicate sequence accepts tokens starting at start
func matchAt(preds []Predicate, toks []nlp.Token, start int) bool {
	for i, p := range preds {
		if !p.Accept(toks[start+i]) {
			return false
		}
	}
	return true
}
