package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_SimpleElement(t *testing.T) {
	src := `function App() { return <div>Hello World</div>; }`
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, "<div>Hello World</div>", spans[0].Text)
}

func TestExtract_Fragment(t *testing.T) {
	src := "<>{xs.map(x => <li>{x}</li>)}</>"
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, src, spans[0].Text)
}

func TestExtract_SelfClosing(t *testing.T) {
	src := `<input type="text" />`
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, src, spans[0].Text)
}

func TestExtract_NestedElements(t *testing.T) {
	src := `<div><span>a</span><span>b</span></div>`
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, src, spans[0].Text)
}

func TestExtract_AttributeWithAngleBracketLikeText(t *testing.T) {
	src := `<div title="a < b">ok</div>`
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, src, spans[0].Text)
}

func TestExtract_ScriptOpaqueContent(t *testing.T) {
	src := `<script>const a = document.querySelector("<div>");</script>`
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, src, spans[0].Text)
}

func TestExtract_InvalidOpeningIsSkipped(t *testing.T) {
	src := `a < b and <div>ok</div>`
	spans := Extract(src)
	require.Len(t, spans, 1)
	require.Equal(t, "<div>ok</div>", spans[0].Text)
}

func TestExtract_MultipleTopLevelSpans(t *testing.T) {
	src := `const a = <div>A</div>; const b = <span>B</span>;`
	spans := Extract(src)
	require.Len(t, spans, 2)
	require.Equal(t, "<div>A</div>", spans[0].Text)
	require.Equal(t, "<span>B</span>", spans[1].Text)
}
