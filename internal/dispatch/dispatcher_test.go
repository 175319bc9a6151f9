package dispatch

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryrun/query/internal/cache"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/config"
	"github.com/queryrun/query/internal/jsruntime"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cfg := config.Default()
	cfg.Database.DataDir = t.TempDir()

	cat, err := catalog.Open(context.Background(), &cfg.Database, cfg.Auth)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

var testCacheInit sync.Once

func initTestCaches() {
	testCacheInit.Do(func() {
		cfg := config.Default()
		cache.Init(&cfg.Cache)
	})
}

func TestRewritePath_AppModePrependsPages(t *testing.T) {
	d := &Dispatcher{appMode: true}
	require.Equal(t, "/pages/home", d.rewritePath("/home"))
}

func TestRewritePath_APIPrefixUntouched(t *testing.T) {
	d := &Dispatcher{appMode: true}
	require.Equal(t, "/api/widgets", d.rewritePath("/api/widgets"))
}

func TestRewritePath_UnderscorePrefixUntouched(t *testing.T) {
	d := &Dispatcher{appMode: true}
	require.Equal(t, "/_/assets/logo.png", d.rewritePath("/_/assets/logo.png"))
}

func TestRewritePath_FunctionPrefixStripped(t *testing.T) {
	d := &Dispatcher{appMode: false}
	require.Equal(t, "/foo", d.rewritePath("/_/function/foo"))
}

func TestRewritePath_EmptyPathBecomesRoot(t *testing.T) {
	d := &Dispatcher{appMode: true}
	require.Equal(t, "/pages/", d.rewritePath(""))
}

func TestRewritePath_NonAppModeLeavesPathAlone(t *testing.T) {
	d := &Dispatcher{appMode: false}
	require.Equal(t, "/home", d.rewritePath("/home"))
}

func TestAbsoluteURL_LocalhostIsHTTP(t *testing.T) {
	r := httptest.NewRequest("GET", "http://localhost:8090/widgets?x=1", nil)
	require.Equal(t, "http://localhost:8090/widgets?x=1", absoluteURL(r))
}

func TestAbsoluteURL_OtherHostIsHTTPS(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/widgets", nil)
	require.Equal(t, "https://example.com/widgets", absoluteURL(r))
}

func TestMaybeCacheResponse_StoresUnderMaxAge(t *testing.T) {
	initTestCaches()

	resp := &jsruntime.Response{
		Status:  200,
		Headers: map[string]string{"query-cache-control": "max-age=60"},
		Body:    []byte(`{"ok":true}`),
	}
	maybeCacheResponse("res-test-key", resp)

	body, headers, ok := lookupResponseCache("res-test-key")
	require.True(t, ok)
	require.Equal(t, []byte(`{"ok":true}`), body)
	require.Equal(t, "max-age=60", headers["query-cache-control"])
	require.NotEmpty(t, headers["query-cache-expires-at"])
}

func TestMaybeCacheResponse_NoControlHeaderSkipsInsert(t *testing.T) {
	initTestCaches()

	resp := &jsruntime.Response{Status: 200, Headers: map[string]string{}, Body: []byte("x")}
	maybeCacheResponse("res-uncached-key", resp)

	_, _, ok := lookupResponseCache("res-uncached-key")
	require.False(t, ok)
}

func TestResolveFunction_PrecompilesJSX(t *testing.T) {
	initTestCaches()
	cat := newTestCatalog(t)
	ctx := context.Background()

	src := "export default function() { const el = <div className={c}>{x}</div>; }"
	require.NoError(t, cat.PutFunction(ctx, "GET", "/jsx-widget", []byte(src)))

	d := &Dispatcher{cat: cat}
	fn, matched, err := d.resolveFunction(ctx, "GET", "/jsx-widget")
	require.NoError(t, err)
	require.Equal(t, "/jsx-widget", matched)
	require.Contains(t, string(fn.Bytes), "`<div class=\"${c}\">${x}</div>`")
	require.NotContains(t, string(fn.Bytes), "<div className")
}

func TestResolveFunction_PlainJSUnaffectedByPrecompile(t *testing.T) {
	initTestCaches()
	cat := newTestCatalog(t)
	ctx := context.Background()

	src := "export default function() { return 1 < 2; }"
	require.NoError(t, cat.PutFunction(ctx, "GET", "/plain-js", []byte(src)))

	d := &Dispatcher{cat: cat}
	fn, _, err := d.resolveFunction(ctx, "GET", "/plain-js")
	require.NoError(t, err)
	require.Equal(t, src, string(fn.Bytes))
}
