package conditions

import (
	"fmt"
	"slices"
	"strings"
)

type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

func ParseCombinator(s string) (Combinator, error) {
	switch Combinator(strings.ToLower(strings.TrimSpace(s))) {
	case And:
		return And, nil
	case Or:
		return Or, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCombinator, s)
}

// Element is either a predicate or a combinator, never both.
type Element struct {
	Predicate  *Predicate
	Combinator Combinator
}

func (e Element) IsPredicate() bool { return e.Predicate != nil }

func (e Element) clone() Element {
	if e.Predicate == nil {
		return Element{Combinator: e.Combinator}
	}
	p := e.Predicate.Clone()
	return Element{Predicate: &p}
}

// Expression is a frozen alternating sequence P (OP P)*. It is never mutated
// after construction; accessors return copies.
type Expression struct {
	elements []Element
}

func (e Expression) Len() int { return len(e.elements) }

func (e Expression) IsZero() bool { return len(e.elements) == 0 }

func (e Expression) Elements() []Element {
	out := make([]Element, len(e.elements))
	for i, el := range e.elements {
		out[i] = el.clone()
	}
	return out
}

func (e Expression) Predicates() []Predicate {
	var out []Predicate
	for _, el := range e.elements {
		if el.IsPredicate() {
			out = append(out, el.Predicate.Clone())
		}
	}
	return out
}

func (e Expression) Combinators() []Combinator {
	var out []Combinator
	for _, el := range e.elements {
		if !el.IsPredicate() {
			out = append(out, el.Combinator)
		}
	}
	return out
}

func (e Expression) SideChannelNames() []string {
	var names []string
	for _, p := range e.Predicates() {
		for _, name := range p.SideChannelNames() {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// HasKind reports whether any predicate of the given kind is present.
func (e Expression) HasKind(kind Kind) bool {
	for _, el := range e.elements {
		if el.IsPredicate() && el.Predicate.Kind == kind {
			return true
		}
	}
	return false
}

// Draft accumulates elements while enforcing alternation. Freeze copies the
// content into an Expression; the draft may keep growing afterwards without
// affecting frozen copies.
type Draft struct {
	elements []Element
}

func (d *Draft) Len() int { return len(d.elements) }

func (d *Draft) expectsPredicate() bool {
	return len(d.elements)%2 == 0
}

func (d *Draft) AddPredicate(p Predicate) error {
	if !d.expectsPredicate() {
		return fmt.Errorf("%w: expected combinator at position %d", ErrOutOfOrder, len(d.elements))
	}
	if err := p.Validate(); err != nil {
		return err
	}
	c := p.Clone()
	d.elements = append(d.elements, Element{Predicate: &c})
	return nil
}

func (d *Draft) AddCombinator(c Combinator) error {
	if d.expectsPredicate() {
		return fmt.Errorf("%w: expected predicate at position %d", ErrOutOfOrder, len(d.elements))
	}
	if c != And && c != Or {
		return fmt.Errorf("%w: %q", ErrInvalidCombinator, c)
	}
	d.elements = append(d.elements, Element{Combinator: c})
	return nil
}

func (d *Draft) Freeze() (Expression, error) {
	if len(d.elements) == 0 {
		return Expression{}, ErrEmptyExpression
	}
	if d.expectsPredicate() {
		return Expression{}, fmt.Errorf("%w: expression ends with a combinator", ErrOutOfOrder)
	}
	frozen := make([]Element, len(d.elements))
	for i, el := range d.elements {
		frozen[i] = el.clone()
	}
	return Expression{elements: frozen}, nil
}

// NewExpression builds an expression from alternating elements.
func NewExpression(elements ...Element) (Expression, error) {
	var d Draft
	for _, el := range elements {
		var err error
		if el.IsPredicate() {
			err = d.AddPredicate(*el.Predicate)
		} else {
			err = d.AddCombinator(el.Combinator)
		}
		if err != nil {
			return Expression{}, err
		}
	}
	return d.Freeze()
}

func PredicateElement(p Predicate) Element { return Element{Predicate: &p} }

func CombinatorElement(c Combinator) Element { return Element{Combinator: c} }
