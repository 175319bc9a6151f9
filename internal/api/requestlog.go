package api

import (
	"net/http"
	"strconv"

	"github.com/queryrun/query/internal/dispatch/requestlog"
)

// RequestLogHandlers serves GET /request-log, an admin-only view over the
// in-memory ring buffer of recently handled requests.
type RequestLogHandlers struct {
	store *requestlog.Store
}

func NewRequestLogHandlers(store *requestlog.Store) *RequestLogHandlers {
	return &RequestLogHandlers{store: store}
}

// List handles GET /request-log?method=&path=&status=&limit=&offset=.
func (h *RequestLogHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := requestlog.FilterOptions{
		Method: q.Get("method"),
		Path:   q.Get("path"),
	}
	if v := q.Get("status"); v != "" {
		opts.Status, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	JSON(w, http.StatusOK, h.store.List(opts))
}
