// Package pathmatch implements the dispatcher's template matching (§4.4):
// given a concrete request path and the stored function templates for a
// method, find the most specific template that matches.
package pathmatch

import (
	"sort"
	"strings"
)

// Candidate is one stored function's route template.
type Candidate struct {
	Method string
	Path   string
}

// Normalize strips a trailing slash from non-root paths, per §4.4.
func Normalize(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

// Match finds the best-fit template among candidates for method+path.
// Exact string matches win outright; otherwise templates are scanned in
// lexicographically descending order and the first all-segments match
// (literal or `:param`) wins.
func Match(candidates []Candidate, method, path string) (Candidate, bool) {
	path = Normalize(path)

	var sameMethod []Candidate
	for _, c := range candidates {
		if c.Method == method {
			sameMethod = append(sameMethod, c)
		}
	}

	for _, c := range sameMethod {
		if c.Path == path {
			return c, true
		}
	}

	sort.Slice(sameMethod, func(i, j int) bool {
		return sameMethod[i].Path > sameMethod[j].Path
	})

	pathSegs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, c := range sameMethod {
		tmplSegs := strings.Split(strings.TrimPrefix(c.Path, "/"), "/")
		if len(tmplSegs) != len(pathSegs) {
			continue
		}
		if segmentsMatch(tmplSegs, pathSegs) {
			return c, true
		}
	}

	return Candidate{}, false
}

func segmentsMatch(tmplSegs, pathSegs []string) bool {
	for i, t := range tmplSegs {
		if t == pathSegs[i] {
			continue
		}
		if strings.HasPrefix(t, ":") {
			continue
		}
		return false
	}
	return true
}
