package emit

import (
	"strconv"
	"strings"

	"github.com/queryrun/query/internal/jsx/ast"
)

// maxRecursionDepth caps expression-triggered recursive precompilation
// (§4.11.2's Expression case can itself contain JSX) to guard against
// pathological nesting in hostile or accidental input.
const maxRecursionDepth = 64

// Node renders a single AST node to the tagged-template source fragment the
// runtime evaluates at request time. depth tracks recursive precompile
// calls triggered by expressions that themselves contain JSX.
func Node(n ast.Node, depth int) (string, error) {
	if depth > maxRecursionDepth {
		return "", errTooDeep
	}

	switch v := n.(type) {
	case ast.Element:
		return emitElement(v, depth)
	case ast.Fragment:
		return emitChildren(v.Children, depth)
	case ast.Text:
		return string(v), nil
	case ast.Expression:
		return emitExpression(v, depth)
	default:
		return "", nil
	}
}

var errTooDeep = strDeepErr{}

type strDeepErr struct{}

func (strDeepErr) Error() string { return "jsx emitter: recursion depth exceeded" }

func emitChildren(children []ast.Node, depth int) (string, error) {
	var b strings.Builder
	for _, c := range children {
		s, err := Node(c, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func isComponentTag(tag string) bool {
	if tag == "" {
		return false
	}
	c := tag[0]
	return (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
}

func emitElement(el ast.Element, depth int) (string, error) {
	if isComponentTag(el.Tag) {
		return emitComponent(el, depth)
	}

	attrs, err := emitAttributes(el.Attributes)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(strings.ToLower(el.Tag))
	b.WriteString(attrs)

	if isVoidElement(el.Tag) {
		b.WriteString("/>")
		return b.String(), nil
	}

	b.WriteByte('>')
	children, err := emitChildren(el.Children, depth)
	if err != nil {
		return "", err
	}
	b.WriteString(children)
	b.WriteString("</")
	b.WriteString(strings.ToLower(el.Tag))
	b.WriteByte('>')
	return b.String(), nil
}

// emitAttributes renders the attribute list, inserting a leading space
// before each attribute (including spreads), matching the source spacing
// convention `<tag attr1 attr2>`.
func emitAttributes(attrs []ast.Attribute) (string, error) {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteByte(' ')
		if a.IsSpread() {
			b.WriteString("${__jsxSpread(")
			b.WriteString(a.Value)
			b.WriteString(")}")
			continue
		}

		name := normalizeAttrName(a.Name)
		switch a.Kind {
		case ast.NoValue:
			b.WriteString(name)
		case ast.DoubleQuote:
			b.WriteString(name)
			b.WriteString(`="`)
			b.WriteString(a.Value)
			b.WriteByte('"')
		case ast.SingleQuote:
			b.WriteString(name)
			b.WriteString(`='`)
			b.WriteString(a.Value)
			b.WriteByte('\'')
		case ast.AttrExpression:
			b.WriteString(name)
			b.WriteString(`="${`)
			b.WriteString(a.Value)
			b.WriteString(`}"`)
		}
	}
	return b.String(), nil
}

// emitComponent renders a component element as a call into the runtime
// bridge, preserving attribute insertion order as an array of single-key
// object literals so the host can reconstruct a props object deterministically.
func emitComponent(el ast.Element, depth int) (string, error) {
	var attrLiterals []string
	for _, a := range el.Attributes {
		if a.IsSpread() {
			attrLiterals = append(attrLiterals, "{\"...\": "+a.Value+"}")
			continue
		}
		key := strconv.Quote(a.Name)
		switch a.Kind {
		case ast.NoValue:
			attrLiterals = append(attrLiterals, "{"+key+": true}")
		case ast.DoubleQuote, ast.SingleQuote:
			attrLiterals = append(attrLiterals, "{"+key+": "+strconv.Quote(a.Value)+"}")
		case ast.AttrExpression:
			attrLiterals = append(attrLiterals, "{"+key+": ("+a.Value+")}")
		}
	}

	children, err := emitChildren(el.Children, depth)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("${__jsxComponent(")
	b.WriteString(el.Tag)
	b.WriteString(", [")
	b.WriteString(strings.Join(attrLiterals, ", "))
	b.WriteString("], `")
	b.WriteString(children)
	b.WriteString("`)}")
	return b.String(), nil
}

func emitExpression(e ast.Expression, depth int) (string, error) {
	text := string(e)
	if strings.Contains(text, "<") {
		rewritten, err := Precompile(text, depth+1)
		if err != nil {
			return "", err
		}
		text = rewritten
	}
	return "${" + text + "}", nil
}
