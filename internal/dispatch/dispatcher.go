// Package dispatch implements the request dispatcher (§4.3): resolving an
// incoming HTTP request to a stored function, invoking it inside a fresh JS
// context, and caching cacheable GET responses.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/cache"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/config"
	"github.com/queryrun/query/internal/dispatch/multipart"
	"github.com/queryrun/query/internal/dispatch/pathmatch"
	"github.com/queryrun/query/internal/dispatch/query"
	"github.com/queryrun/query/internal/jsruntime"
	"github.com/queryrun/query/internal/jsx/emit"
	"github.com/queryrun/query/internal/metrics"
)

// Dispatcher resolves requests against the function catalog and runs the
// matched function in a fresh JS context per request.
type Dispatcher struct {
	cat     *catalog.Catalog
	runtime config.RuntimeConfig
	appMode bool
}

// New builds a Dispatcher. cat supplies function/asset storage, runtime
// configures every per-request jsruntime.Host, and appMode controls the
// "/pages" path prefixing described in §4.3.
func New(cat *catalog.Catalog, runtime config.RuntimeConfig, appMode bool) *Dispatcher {
	return &Dispatcher{cat: cat, runtime: runtime, appMode: appMode}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	method := r.Method
	rawPath := r.URL.Path
	requestKey := method + rawPath + "?" + r.URL.RawQuery
	responseKey := "res-" + requestKey

	if method == http.MethodGet {
		if body, headers, ok := lookupResponseCache(responseKey); ok {
			writeResponse(w, http.StatusOK, headers, body, true)
			return
		}
	}

	path := d.rewritePath(rawPath)

	claims := auth.ClaimsFromContext(ctx)

	fn, matchedPath, err := d.resolveFunction(ctx, method, path)
	if err != nil {
		if err == catalog.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		log.Error().Err(err).Str("path", path).Msg("resolving function")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	bridgeReq, err := d.buildBridgeRequest(r, claims)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("building bridge request")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	host := jsruntime.NewHost(d.runtime, query.HostFunc(d.cat, claims))

	start := time.Now()
	resp, err := host.Run(ctx, string(fn.Bytes), bridgeReq)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordFunctionInvocation(matchedPath, "js", "error", duration)
		log.Error().Err(err).Str("path", matchedPath).Msg("function execution failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	metrics.RecordFunctionInvocation(matchedPath, "js", "ok", duration)

	if method == http.MethodGet && resp.Status >= 200 && resp.Status < 300 {
		maybeCacheResponse(responseKey, resp)
	}

	writeResponse(w, resp.Status, resp.Headers, resp.Body, false)
}

// rewritePath applies the app-mode route rewrite: paths that target
// neither "/api" nor "/_/" get "/pages" prepended; "/_/function" loses
// its prefix; an empty path resolves to "/".
func (d *Dispatcher) rewritePath(path string) string {
	if path == "" {
		path = "/"
	}

	if strings.HasPrefix(path, "/_/function") {
		path = strings.TrimPrefix(path, "/_/function")
		if path == "" {
			path = "/"
		}
		return path
	}

	if !d.appMode {
		return path
	}

	if strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/_/") {
		return path
	}

	return "/pages" + path
}

// resolveFunction finds the active function serving method+path, using the
// path cache to skip re-scanning the catalog's route templates and the
// function cache to skip re-reading function source from SQLite.
func (d *Dispatcher) resolveFunction(ctx context.Context, method, path string) (*catalog.Function, string, error) {
	pathCache := cache.Get(cache.Path)
	pathCacheKey := method + ":" + path

	matchedPath := path
	if cached, ok := pathCache.Get(pathCacheKey); ok {
		matchedPath = string(cached)
	} else {
		fns, err := d.cat.ListFunctions(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("listing functions: %w", err)
		}

		var candidates []pathmatch.Candidate
		for _, fn := range fns {
			if fn.Active {
				candidates = append(candidates, pathmatch.Candidate{Method: fn.Method, Path: fn.Path})
			}
		}

		match, ok := pathmatch.Match(candidates, method, path)
		if !ok {
			return nil, "", catalog.ErrNotFound
		}
		matchedPath = match.Path
		pathCache.Insert(pathCacheKey, []byte(matchedPath))
	}

	functionCache := cache.Get(cache.Function)
	functionCacheKey := method + ":" + matchedPath
	if cached, ok := functionCache.Get(functionCacheKey); ok {
		return &catalog.Function{Method: method, Path: matchedPath, Active: true, Bytes: cached}, matchedPath, nil
	}

	fn, err := d.cat.GetFunction(ctx, method, matchedPath)
	if err != nil {
		return nil, "", err
	}

	precompiled, err := emit.Precompile(string(fn.Bytes), 0)
	if err != nil {
		return nil, "", fmt.Errorf("precompiling jsx: %w", err)
	}
	fn.Bytes = []byte(precompiled)

	functionCache.Insert(functionCacheKey, fn.Bytes)
	return fn, matchedPath, nil
}

// buildBridgeRequest assembles the jsruntime.Request per §4.3 step 6:
// header map, multipart-normalized body, and an absolute URL with the
// scheme inferred from the host.
func (d *Dispatcher) buildBridgeRequest(r *http.Request, claims *auth.Claims) (jsruntime.Request, error) {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return jsruntime.Request{}, fmt.Errorf("reading body: %w", err)
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		normalized, err := multipart.Normalize(bytes.NewReader(body), contentType)
		if err != nil {
			return jsruntime.Request{}, fmt.Errorf("normalizing multipart body: %w", err)
		}
		body = normalized
	}

	return jsruntime.Request{
		Headers: headers,
		Method:  r.Method,
		URL:     absoluteURL(r),
		Body:    body,
	}, nil
}

func absoluteURL(r *http.Request) string {
	scheme := "https"
	host := r.Host
	hostOnly := host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		hostOnly = host[:i]
	}
	if hostOnly == "localhost" || hostOnly == "0.0.0.0" || hostOnly == "127.0.0.1" {
		scheme = "http"
	}
	uri := r.URL.RequestURI()
	return scheme + "://" + host + uri
}

type cachedResponse struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers"`
	Body      []byte            `json:"body"`
	ExpiresAt int64             `json:"expires_at"`
}

var maxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

// maybeCacheResponse inserts resp into the function-response cache when it
// carries a query-cache-control: max-age=N header, computing and storing
// query-cache-expires-at alongside it.
func maybeCacheResponse(responseKey string, resp *jsruntime.Response) {
	control := resp.Headers["query-cache-control"]
	m := maxAgePattern.FindStringSubmatch(control)
	if m == nil {
		return
	}
	maxAge, err := strconv.Atoi(m[1])
	if err != nil || maxAge <= 0 {
		return
	}

	expiresAt := time.Now().Add(time.Duration(maxAge) * time.Second)

	headers := make(map[string]string, len(resp.Headers)+1)
	for k, v := range resp.Headers {
		headers[k] = v
	}
	headers["query-cache-expires-at"] = strconv.FormatInt(expiresAt.UnixMilli(), 10)

	entry := cachedResponse{
		Status:    resp.Status,
		Headers:   headers,
		Body:      resp.Body,
		ExpiresAt: expiresAt.Unix(),
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return
	}

	cache.Get(cache.FunctionResponse).Insert(responseKey, encoded)
}

// lookupResponseCache returns a still-fresh cached response, if any.
func lookupResponseCache(responseKey string) (body []byte, headers map[string]string, ok bool) {
	raw, found := cache.Get(cache.FunctionResponse).Get(responseKey)
	if !found {
		return nil, nil, false
	}

	var entry cachedResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, nil, false
	}
	if time.Now().Unix() > entry.ExpiresAt {
		cache.Get(cache.FunctionResponse).Remove(responseKey)
		return nil, nil, false
	}

	return entry.Body, entry.Headers, true
}

func writeResponse(w http.ResponseWriter, status int, headers map[string]string, body []byte, cacheHit bool) {
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	if cacheHit {
		w.Header().Set("query-cache-hit", "true")
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
