// Package parser builds a structural AST (see internal/jsx/ast) out of a
// single JSX span as located by internal/jsx/extractor. It is a recursive-
// descent parser over raw text, not tokens: there is no lexer stage because
// JSX's grammar is simple enough to walk directly.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/queryrun/query/internal/jsx/ast"
)

// Parse parses a single JSX span (an Element or a Fragment) and returns its
// root node.
func Parse(src string) (ast.Node, error) {
	p := &parser{src: src}
	node, err := p.parseElementOrFragment()
	if err != nil {
		return nil, err
	}
	return node, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("jsx parser at byte %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) byte {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

// parseElementOrFragment expects the cursor to sit on the opening '<' of
// either a fragment (`<>`) or a named element (`<tag`).
func (p *parser) parseElementOrFragment() (ast.Node, error) {
	if !p.eof() && p.peek() == '<' && p.peekAt(1) == '>' {
		return p.parseFragment()
	}
	return p.parseElement()
}

func (p *parser) parseFragment() (ast.Node, error) {
	p.pos += 2 // consume "<>"
	children, err := p.parseChildren("")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(p.src[p.pos:], "</>") {
		return nil, p.errf("unterminated fragment, expected </>")
	}
	p.pos += 3
	return ast.Fragment{Children: children}, nil
}

func (p *parser) parseElement() (ast.Node, error) {
	if p.peek() != '<' {
		return nil, p.errf("expected '<' to start element")
	}
	p.pos++

	tag := p.parseName()
	if tag == "" {
		return nil, p.errf("expected tag name")
	}

	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if strings.HasPrefix(p.src[p.pos:], "/>") {
		p.pos += 2
		return ast.Element{Tag: tag, Attributes: attrs}, nil
	}
	if p.peek() != '>' {
		return nil, p.errf("expected '>' or '/>' after attributes of <%s>", tag)
	}
	p.pos++

	if strings.EqualFold(tag, "script") {
		closeIdx := strings.Index(p.src[p.pos:], "</script>")
		if closeIdx < 0 {
			return nil, p.errf("unterminated <script>")
		}
		content := p.src[p.pos : p.pos+closeIdx]
		p.pos += closeIdx + len("</script>")
		var children []ast.Node
		if content != "" {
			children = []ast.Node{ast.Text(content)}
		}
		return ast.Element{Tag: tag, Attributes: attrs, Children: children}, nil
	}

	children, err := p.parseChildren(tag)
	if err != nil {
		return nil, err
	}

	closeTag := "</" + tag + ">"
	if !strings.HasPrefix(p.src[p.pos:], closeTag) {
		return nil, p.errf("mismatched closing tag, expected %s", closeTag)
	}
	p.pos += len(closeTag)

	return ast.Element{Tag: tag, Attributes: attrs, Children: children}, nil
}

// parseChildren consumes nodes until it sees the closing tag for
// enclosingTag (or "</>"), without consuming the closer itself.
func (p *parser) parseChildren(enclosingTag string) ([]ast.Node, error) {
	var children []ast.Node
	var textStart = p.pos

	flushText := func(end int) {
		if end > textStart {
			text := p.src[textStart:end]
			if strings.TrimSpace(text) != "" || strings.ContainsAny(text, "\n") {
				children = append(children, ast.Text(trimEdgeWhitespace(text)))
			}
		}
	}

	for !p.eof() {
		if p.peek() == '<' {
			if p.peekAt(1) == '/' {
				flushText(p.pos)
				return children, nil
			}
			flushText(p.pos)
			child, err := p.parseElementOrFragment()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
			textStart = p.pos
			continue
		}
		if p.peek() == '{' {
			flushText(p.pos)
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			children = append(children, expr)
			textStart = p.pos
			continue
		}
		p.pos++
	}

	return nil, p.errf("unterminated children of <%s>", enclosingTag)
}

// parseExpression captures the balanced-brace text of a `{...}` expression,
// tracking string literals so braces inside them don't affect depth.
func (p *parser) parseExpression() (ast.Expression, error) {
	if p.peek() != '{' {
		return "", p.errf("expected '{'")
	}
	start := p.pos + 1
	depth := 1
	p.pos++

	var inString bool
	var stringChar byte
	var escaped bool

	for !p.eof() {
		c := p.peek()
		if inString {
			if !escaped && c == stringChar {
				inString = false
			}
			escaped = c == '\\' && !escaped
			p.pos++
			continue
		}
		switch c {
		case '"', '\'', '`':
			inString = true
			stringChar = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				text := p.src[start:p.pos]
				p.pos++
				return ast.Expression(text), nil
			}
		}
		p.pos++
	}
	return "", p.errf("unclosed expression")
}

func (p *parser) parseName() string {
	start := p.pos
	if p.eof() {
		return ""
	}
	c := rune(p.peek())
	if !unicode.IsLetter(c) && c != '_' && c != '$' {
		return ""
	}
	p.pos++
	for !p.eof() {
		c := rune(p.peek())
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '$' || c == '-' || c == '.' || c == ':' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) skipWhitespace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// parseAttributes consumes `name`, `name="..."`, `name='...'`,
// `name={expr}`, and `{...expr}` spreads up to (but not including) the
// closing '>' or '/>'.
func (p *parser) parseAttributes() ([]ast.Attribute, error) {
	var attrs []ast.Attribute
	for {
		p.skipWhitespace()
		if p.eof() {
			return nil, p.errf("unterminated tag attributes")
		}
		if p.peek() == '>' || strings.HasPrefix(p.src[p.pos:], "/>") {
			return attrs, nil
		}
		if p.peek() == '{' {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			spreadExpr := strings.TrimSpace(string(expr))
			spreadExpr = strings.TrimPrefix(spreadExpr, "...")
			attrs = append(attrs, ast.Attribute{Name: "...", Kind: ast.AttrExpression, Value: spreadExpr})
			continue
		}

		name := p.parseName()
		if name == "" {
			return nil, p.errf("expected attribute name")
		}

		p.skipWhitespace()
		if p.peek() != '=' {
			attrs = append(attrs, ast.Attribute{Name: name, Kind: ast.NoValue})
			continue
		}
		p.pos++ // consume '='
		p.skipWhitespace()

		switch p.peek() {
		case '"':
			val, err := p.parseQuoted('"')
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, ast.Attribute{Name: name, Kind: ast.DoubleQuote, Value: val})
		case '\'':
			val, err := p.parseQuoted('\'')
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, ast.Attribute{Name: name, Kind: ast.SingleQuote, Value: val})
		case '{':
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, ast.Attribute{Name: name, Kind: ast.AttrExpression, Value: string(expr)})
		default:
			return nil, p.errf("expected attribute value after '=' for %q", name)
		}
	}
}

func (p *parser) parseQuoted(quote byte) (string, error) {
	if p.peek() != quote {
		return "", p.errf("expected quote %c", quote)
	}
	p.pos++
	start := p.pos
	escaped := false
	for !p.eof() {
		c := p.peek()
		if !escaped && c == quote {
			val := p.src[start:p.pos]
			p.pos++
			return val, nil
		}
		escaped = c == '\\' && !escaped
		p.pos++
	}
	return "", p.errf("unterminated string literal")
}

func trimEdgeWhitespace(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}
