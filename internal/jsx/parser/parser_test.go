package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryrun/query/internal/jsx/ast"
)

func TestParse_SimpleElement(t *testing.T) {
	node, err := Parse(`<div>Hello World</div>`)
	require.NoError(t, err)

	el, ok := node.(ast.Element)
	require.True(t, ok)
	require.Equal(t, "div", el.Tag)
	require.Len(t, el.Children, 1)
	require.Equal(t, ast.Text("Hello World"), el.Children[0])
}

func TestParse_AttributesVariants(t *testing.T) {
	node, err := Parse(`<input type="text" disabled value={x} />`)
	require.NoError(t, err)

	el := node.(ast.Element)
	require.Equal(t, "input", el.Tag)
	require.Len(t, el.Attributes, 3)

	require.Equal(t, "type", el.Attributes[0].Name)
	require.Equal(t, ast.DoubleQuote, el.Attributes[0].Kind)
	require.Equal(t, "text", el.Attributes[0].Value)

	require.Equal(t, "disabled", el.Attributes[1].Name)
	require.Equal(t, ast.NoValue, el.Attributes[1].Kind)

	require.Equal(t, "value", el.Attributes[2].Name)
	require.Equal(t, ast.AttrExpression, el.Attributes[2].Kind)
	require.Equal(t, "x", el.Attributes[2].Value)
}

func TestParse_SpreadAttribute(t *testing.T) {
	node, err := Parse(`<div {...rest}>x</div>`)
	require.NoError(t, err)

	el := node.(ast.Element)
	require.Len(t, el.Attributes, 1)
	require.True(t, el.Attributes[0].IsSpread())
	require.Equal(t, "rest", el.Attributes[0].Value)
}

func TestParse_Fragment(t *testing.T) {
	node, err := Parse(`<>{a}{b}</>`)
	require.NoError(t, err)

	frag, ok := node.(ast.Fragment)
	require.True(t, ok)
	require.Len(t, frag.Children, 2)
	require.Equal(t, ast.Expression("a"), frag.Children[0])
	require.Equal(t, ast.Expression("b"), frag.Children[1])
}

func TestParse_NestedElements(t *testing.T) {
	node, err := Parse(`<ul><li>a</li><li>b</li></ul>`)
	require.NoError(t, err)

	el := node.(ast.Element)
	require.Equal(t, "ul", el.Tag)
	require.Len(t, el.Children, 2)
	for _, c := range el.Children {
		_, ok := c.(ast.Element)
		require.True(t, ok)
	}
}

func TestParse_ScriptChildIsOpaqueText(t *testing.T) {
	node, err := Parse("<script>const a = '<div>';</script>")
	require.NoError(t, err)

	el := node.(ast.Element)
	require.Equal(t, "script", el.Tag)
	require.Len(t, el.Children, 1)
	require.Equal(t, ast.Text("const a = '<div>';"), el.Children[0])
}

func TestParse_MismatchedClosingTagErrors(t *testing.T) {
	_, err := Parse(`<div>x</span>`)
	require.Error(t, err)
}

func TestParse_ExpressionWithNestedBraces(t *testing.T) {
	node, err := Parse(`<div>{ {a: 1, b: {c: 2}}.a }</div>`)
	require.NoError(t, err)

	el := node.(ast.Element)
	require.Len(t, el.Children, 1)
	expr, ok := el.Children[0].(ast.Expression)
	require.True(t, ok)
	require.Contains(t, string(expr), "b: {c: 2}")
}
