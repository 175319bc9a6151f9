package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/queryrun/query/internal/cache"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/storage"
)

// BuilderHandlers serves POST|DELETE /function-builder and
// POST /plugin-builder, invalidating the function and path caches so a
// dispatched request never observes stale bytes after a write (§5's
// "catalog writes must both commit and invalidate" discipline).
type BuilderHandlers struct {
	cat     *catalog.Catalog
	plugins *storage.PluginStore
}

func NewBuilderHandlers(cat *catalog.Catalog, backend storage.Backend) *BuilderHandlers {
	return &BuilderHandlers{cat: cat, plugins: storage.NewPluginStore(backend)}
}

type functionBuilderRequest struct {
	Active   bool   `json:"active"`
	Function []byte `json:"function"`
	Method   string `json:"method"`
	Path     string `json:"path"`
}

func (h *BuilderHandlers) PutFunction(w http.ResponseWriter, r *http.Request) {
	var req functionBuilderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Method == "" || req.Path == "" {
		BadRequest(w, r, "method and path are required")
		return
	}

	if err := h.cat.PutFunction(r.Context(), req.Method, req.Path, req.Function); err != nil {
		InternalError(w, r, "failed to store function")
		return
	}

	invalidateFunction(req.Method, req.Path)

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BuilderHandlers) DeleteFunction(w http.ResponseWriter, r *http.Request) {
	var req functionBuilderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Method == "" || req.Path == "" {
		BadRequest(w, r, "method and path are required")
		return
	}

	if err := h.cat.DeleteFunction(r.Context(), req.Method, req.Path); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(w, r, "function not found")
			return
		}
		InternalError(w, r, "failed to delete function")
		return
	}

	invalidateFunction(req.Method, req.Path)

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// invalidateFunction drops every cache entry a dispatched request could
// have populated for method+path: the function cache (keyed by the literal
// template) and the path cache (keyed by every concrete request path that
// previously resolved to it — which the cache does not track, so instead
// the path cache is cleared wholesale on any function write).
func invalidateFunction(method, path string) {
	cache.Get(cache.Function).Remove(method + ":" + path)
	cache.Get(cache.Path).Clear()
}

type pluginBuilderRequest struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
	// SHA256, if set, must match the uploaded bytes.
	SHA256 string `json:"sha256"`
	Data   []byte `json:"data"`
}

// PutPlugin stores an uploaded plugin binary on the configured storage
// backend (under plugins/<name>, optionally compressed) and records
// its name/tag/sha256 in function.db's plugin table. The GitHub-fetch
// workflow original_source's plugin.rs drives (RepoURL/URL-based installs)
// is out of scope; this endpoint only accepts bytes directly.
func (h *BuilderHandlers) PutPlugin(w http.ResponseWriter, r *http.Request) {
	var req pluginBuilderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Name == "" {
		BadRequest(w, r, "name is required")
		return
	}

	sum, err := h.plugins.Store(r.Context(), req.Name, req.Data, req.SHA256)
	if err != nil {
		if errors.Is(err, storage.ErrChecksum) {
			BadRequest(w, r, "sha256 does not match uploaded data")
			return
		}
		InternalError(w, r, "failed to store plugin")
		return
	}

	tag := req.Tag
	if tag == "" {
		tag = "local"
	}

	// url/repo_url are schema holdovers from the GitHub-fetch installer;
	// a direct upload has neither, so it records its own storage key.
	plugin := catalog.Plugin{
		Name:    req.Name,
		Tag:     tag,
		URL:     "upload://" + req.Name,
		SHA256:  sum,
		RepoURL: "upload://" + req.Name,
	}
	if err := h.cat.PutPlugin(r.Context(), plugin); err != nil {
		InternalError(w, r, "failed to record plugin metadata")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
