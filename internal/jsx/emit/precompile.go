package emit

import (
	"fmt"
	"strings"

	"github.com/queryrun/query/internal/jsx/extractor"
	"github.com/queryrun/query/internal/jsx/parser"
)

const stringHTMLPrefix = "StringHTML("

// Precompile rewrites every top-level JSX span in src into a tagged-
// template expression that renders HTML at request time. depth is the
// current expression-recursion depth (0 for a top-level call); nested
// JSX found inside an interpolated expression is re-precompiled one level
// deeper.
func Precompile(src string, depth int) (string, error) {
	masked, placeholders := maskStringHTML(src)

	spans := extractor.Extract(masked)
	if len(spans) == 0 {
		return restoreStringHTML(removeEmptySentinel(masked), placeholders), nil
	}

	var b strings.Builder
	cursor := 0
	for _, span := range spans {
		b.WriteString(masked[cursor:span.Start])

		root, err := parser.Parse(span.Text)
		if err != nil {
			return "", fmt.Errorf("parsing jsx span at byte %d: %w", span.Start, err)
		}

		rendered, err := Node(root, depth)
		if err != nil {
			return "", err
		}

		wrapped := "`" + rendered + "`"
		if containsArrayOp(span.Text) {
			wrapped = "${__jsxTemplate(" + wrapped + ")}"
		}
		b.WriteString(wrapped)

		cursor = span.End
	}
	b.WriteString(masked[cursor:])

	out := removeEmptySentinel(b.String())
	return restoreStringHTML(out, placeholders), nil
}

func containsArrayOp(s string) bool {
	return strings.Contains(s, ".map(") || strings.Contains(s, ".filter(") || strings.Contains(s, ".reduce(")
}

func removeEmptySentinel(s string) string {
	return strings.ReplaceAll(s, "${}", "")
}

// maskStringHTML replaces each StringHTML(...) call, located by a balanced-
// paren scan from its opening parenthesis, with a unique placeholder token
// so span extraction and emission never touch its interior. restoreStringHTML
// undoes the substitution once rewriting is complete.
func maskStringHTML(src string) (string, map[string]string) {
	placeholders := make(map[string]string)
	var b strings.Builder
	i := 0
	n := 0
	for i < len(src) {
		idx := strings.Index(src[i:], stringHTMLPrefix)
		if idx < 0 {
			b.WriteString(src[i:])
			break
		}
		start := i + idx
		b.WriteString(src[i:start])

		end, ok := matchParen(src, start+len(stringHTMLPrefix)-1)
		if !ok {
			b.WriteString(src[start:])
			break
		}

		call := src[start : end+1]
		token := fmt.Sprintf("\x00JSXSTRINGHTML%d\x00", n)
		n++
		placeholders[token] = call
		b.WriteString(token)
		i = end + 1
	}
	return b.String(), placeholders
}

// matchParen returns the index of the ')' balancing the '(' at openParen,
// treating quoted/templated string contents as opaque.
func matchParen(src string, openParen int) (int, bool) {
	depth := 0
	inString := false
	var stringChar byte
	escaped := false
	for i := openParen; i < len(src); i++ {
		c := src[i]
		if inString {
			if !escaped && c == stringChar {
				inString = false
			}
			escaped = c == '\\' && !escaped
			continue
		}
		switch c {
		case '"', '\'', '`':
			inString = true
			stringChar = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func restoreStringHTML(src string, placeholders map[string]string) string {
	for token, call := range placeholders {
		src = strings.ReplaceAll(src, token, call)
	}
	return src
}
