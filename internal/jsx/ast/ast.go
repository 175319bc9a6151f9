// Package ast defines the four JSX node kinds the parser produces and the
// emitter consumes.
package ast

// Node is any of Element, Fragment, Text, or Expression.
type Node interface {
	jsxNode()
}

// AttrValueKind distinguishes how an attribute's value was written.
type AttrValueKind int

const (
	// NoValue marks a boolean attribute, e.g. `disabled`.
	NoValue AttrValueKind = iota
	DoubleQuote
	SingleQuote
	AttrExpression
)

// Attribute is a single JSX attribute. Spread attributes are represented
// with Name beginning "...", in which case Value holds the spread
// expression and Kind is AttrExpression.
type Attribute struct {
	Name  string
	Kind  AttrValueKind
	Value string
}

// IsSpread reports whether this attribute is a `{...expr}` spread.
func (a Attribute) IsSpread() bool {
	return len(a.Name) >= 3 && a.Name[:3] == "..."
}

// Element is a tag with attributes and children, e.g. <div class="x">{y}</div>.
type Element struct {
	Tag        string
	Attributes []Attribute
	Children   []Node
}

// Fragment is a bare <>...</> grouping with no tag of its own.
type Fragment struct {
	Children []Node
}

// Text is a run of literal, non-JSX, non-expression source text.
type Text string

// Expression is a `{...}` interpolation; its value is the text between the
// braces, unparsed.
type Expression string

func (Element) jsxNode()    {}
func (Fragment) jsxNode()   {}
func (Text) jsxNode()       {}
func (Expression) jsxNode() {}
