package emit

import "strings"

// voidElements is the standard HTML/SVG self-closing tag set; elements with
// these tags always emit as <tag .../> regardless of how they were written
// in source.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
	"circle": true, "ellipse": true, "line": true, "path": true,
	"polygon": true, "polyline": true, "rect": true, "stop": true,
	"use": true,
}

// attrNameTable maps camelCase JSX attribute names to their canonical
// HTML/SVG attribute name. Names absent from this table are lowercased;
// names present in preservedCamelCase are emitted unchanged.
var attrNameTable = map[string]string{
	"className":         "class",
	"htmlFor":            "for",
	"xlinkHref":          "href",
	"xlinkActuate":       "xlink:actuate",
	"xlinkArcrole":       "xlink:arcrole",
	"xlinkRole":          "xlink:role",
	"xlinkShow":          "xlink:show",
	"xlinkTitle":         "xlink:title",
	"xlinkType":          "xlink:type",
	"xmlBase":            "xml:base",
	"xmlLang":            "xml:lang",
	"xmlSpace":           "xml:space",
	"clipPath":           "clip-path",
	"fillOpacity":        "fill-opacity",
	"fillRule":           "fill-rule",
	"fontFamily":         "font-family",
	"fontSize":           "font-size",
	"fontWeight":         "font-weight",
	"markerEnd":          "marker-end",
	"markerMid":          "marker-mid",
	"markerStart":        "marker-start",
	"stopColor":          "stop-color",
	"stopOpacity":        "stop-opacity",
	"strokeDasharray":    "stroke-dasharray",
	"strokeLinecap":      "stroke-linecap",
	"strokeLinejoin":     "stroke-linejoin",
	"strokeMiterlimit":   "stroke-miterlimit",
	"strokeOpacity":      "stroke-opacity",
	"strokeWidth":        "stroke-width",
	"textAnchor":         "text-anchor",
	"vectorEffect":       "vector-effect",
	"acceptCharset":      "accept-charset",
	"crossOrigin":        "crossorigin",
	"httpEquiv":          "http-equiv",
	"referrerPolicy":     "referrerpolicy",
}

// preservedCamelCase names keep their JSX casing rather than being
// lowercased, typically SVG/ARIA attributes whose spec casing is
// significant.
var preservedCamelCase = map[string]bool{
	"viewBox": true, "preserveAspectRatio": true, "patternUnits": true,
	"patternContentUnits": true, "gradientUnits": true, "gradientTransform": true,
	"spreadMethod": true, "tabIndex": true, "contentEditable": true,
}

// normalizeAttrName applies the camelCase-to-canonical table, falling back
// to lowercasing unrecognized names.
func normalizeAttrName(name string) string {
	if canonical, ok := attrNameTable[name]; ok {
		return canonical
	}
	if preservedCamelCase[name] {
		return name
	}
	return strings.ToLower(name)
}

func isVoidElement(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}
