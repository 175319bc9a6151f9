package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/dispatch/query"
)

// QueryHandlers serves the SQL query API (§4.8).
type QueryHandlers struct {
	cat *catalog.Catalog
}

func NewQueryHandlers(cat *catalog.Catalog) *QueryHandlers {
	return &QueryHandlers{cat: cat}
}

// Query handles GET and POST /query. Authentication is attached by auth.Middleware
// upstream; Execute itself enforces the write/admin requirements.
func (h *QueryHandlers) Query(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	resp, err := query.Execute(r.Context(), h.cat, claims, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

func (h *QueryHandlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrWriteRequired):
		Forbidden(w, r, "token does not permit write access")
	case errors.Is(err, query.ErrConfigRequiresAdmin):
		Forbidden(w, r, "queries against the config database require an admin token")
	case errors.Is(err, query.ErrUnknownDB):
		BadRequest(w, r, "db_name must be \"config\" or \"function\"")
	default:
		InternalError(w, r, err.Error())
	}
}
