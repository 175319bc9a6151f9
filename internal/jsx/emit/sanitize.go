package emit

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// JSX expressions interpolate into rendered HTML without the author having
// written any escaping themselves (§4.11's Expression case inlines `${expr}`
// verbatim); a page policy strips anything that could turn an interpolated
// value into script execution before the response leaves the server.
var (
	pageSanitizerOnce sync.Once
	pageSanitizer     *bluemonday.Policy
)

func pagePolicy() *bluemonday.Policy {
	pageSanitizerOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowStandardURLs()
		p.AllowRelativeURLs(true)
		p.AllowElements(
			"a", "abbr", "address", "article", "aside", "b", "blockquote", "br",
			"button", "caption", "cite", "code", "col", "colgroup", "dd", "del",
			"details", "dfn", "div", "dl", "dt", "em", "fieldset", "figcaption",
			"figure", "footer", "form", "h1", "h2", "h3", "h4", "h5", "h6",
			"header", "hr", "i", "img", "input", "label", "legend", "li", "main",
			"mark", "nav", "ol", "option", "p", "pre", "s", "section", "select",
			"small", "span", "strong", "sub", "summary", "sup", "table", "tbody",
			"td", "textarea", "tfoot", "th", "thead", "time", "tr", "u", "ul",
		)
		p.AllowAttrs("class", "id", "title", "role", "style").Globally()
		p.AllowAttrs("href", "target", "rel").OnElements("a")
		p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
		p.AllowAttrs("type", "name", "value", "placeholder", "disabled", "required", "checked").OnElements("input", "button", "select", "option", "textarea")
		p.AllowDataURIImages()
		pageSanitizer = p
	})
	return pageSanitizer
}

// SanitizePage strips disallowed markup (script tags, event handlers,
// javascript: URLs) from a fully rendered JSX page before it is written to
// the response. It is a hardening layer over interpolation, not a
// substitute for authors writing safe templates.
func SanitizePage(html string) string {
	return pagePolicy().Sanitize(html)
}
