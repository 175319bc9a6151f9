package emit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrecompile_SimpleElementWithExpressions(t *testing.T) {
	src := "const el = <div className={c}>{x}</div>;"
	out, err := Precompile(src, 0)
	require.NoError(t, err)
	require.Equal(t, "const el = `<div class=\"${c}\">${x}</div>`;", out)
}

func TestPrecompile_FragmentWithMap(t *testing.T) {
	src := "<>{xs.map(x => <li>{x}</li>)}</>"
	out, err := Precompile(src, 0)
	require.NoError(t, err)
	require.Equal(t, "${__jsxTemplate(`${xs.map(x => `<li>${x}</li>`)}`)}", out)
}

func TestPrecompile_VoidElementSelfCloses(t *testing.T) {
	src := `<img src={url} />`
	out, err := Precompile(src, 0)
	require.NoError(t, err)
	require.Equal(t, "`<img src=\"${url}\"/>`", out)
}

func TestPrecompile_ComponentTag(t *testing.T) {
	src := `<Card title="Hi">{body}</Card>`
	out, err := Precompile(src, 0)
	require.NoError(t, err)
	require.Equal(t, "`${__jsxComponent(Card, [{\"title\": \"Hi\"}], `${body}`)}`", out)
}

func TestPrecompile_PreservesNonJSXText(t *testing.T) {
	src := "before <span>ok</span> after"
	out, err := Precompile(src, 0)
	require.NoError(t, err)
	require.Equal(t, "before `<span>ok</span>` after", out)
}

func TestPrecompile_StringHTMLSurvivesUntouched(t *testing.T) {
	src := `<div>{StringHTML("<b>raw</b>")}</div>`
	out, err := Precompile(src, 0)
	require.NoError(t, err)
	require.Contains(t, out, `StringHTML("<b>raw</b>")`)
}

func TestSanitizePage_StripsScriptTags(t *testing.T) {
	out := SanitizePage(`<div>ok<script>alert(1)</script></div>`)
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "ok")
}

func TestNormalizeAttrName(t *testing.T) {
	require.Equal(t, "class", normalizeAttrName("className"))
	require.Equal(t, "for", normalizeAttrName("htmlFor"))
	require.Equal(t, "viewBox", normalizeAttrName("viewBox"))
	require.Equal(t, "customattr", normalizeAttrName("customAttr"))
}
