package api

import (
	"net/http"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/config"
	"github.com/queryrun/query/internal/dispatch"
	"github.com/queryrun/query/internal/dispatch/requestlog"
	"github.com/queryrun/query/internal/metrics"
	"github.com/queryrun/query/internal/storage"
)

// NewRouter builds the full HTTP surface (§6): the management endpoints
// mounted on an http.ServeMux, wrapped in the standard middleware chain,
// falling back to the function dispatcher for everything else.
func NewRouter(cat *catalog.Catalog, cfg *config.Config, pluginBackend storage.Backend, limiter *dispatch.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", metrics.Handler())

	queryHandlers := NewQueryHandlers(cat)
	mux.Handle("GET /query", requireAuth(cat, queryHandlers.Query))
	mux.Handle("POST /query", requireAuth(cat, queryHandlers.Query))

	userHandlers := NewUserHandlers(cat, cfg.Auth.Password)
	mux.Handle("GET /user", requireAdmin(cat, userHandlers.List))
	mux.Handle("POST /user", requireAdmin(cat, userHandlers.Create))
	mux.Handle("PUT /user", requireAdmin(cat, userHandlers.Update))
	mux.Handle("DELETE /user", requireAdmin(cat, userHandlers.Delete))
	mux.Handle("POST /user/token/value", http.HandlerFunc(userHandlers.IssueUserTokenValue))

	tokenHandlers := NewNamedTokenHandlers(cat)
	mux.Handle("GET /token", requireAdmin(cat, tokenHandlers.List))
	mux.Handle("POST /token", requireAdmin(cat, tokenHandlers.Create))
	mux.Handle("DELETE /token", requireAdmin(cat, tokenHandlers.Delete))

	builderHandlers := NewBuilderHandlers(cat, pluginBackend)
	mux.Handle("POST /function-builder", requireWrite(cat, builderHandlers.PutFunction))
	mux.Handle("DELETE /function-builder", requireWrite(cat, builderHandlers.DeleteFunction))
	mux.Handle("POST /plugin-builder", requireWrite(cat, builderHandlers.PutPlugin))

	logStore := requestlog.NewStore(cfg.Server.RequestLogSize)
	mux.Handle("GET /request-log", requireAdmin(cat, NewRequestLogHandlers(logStore).List))

	dispatcher := dispatch.New(cat, cfg.Runtime, cfg.Server.AppMode)
	mux.Handle("/", dispatcher)

	var handler http.Handler = mux
	handler = requestlog.Middleware(logStore)(handler)
	handler = limiter.Middleware(handler)
	handler = dispatch.MaxBodySizeMiddleware(cfg.Server.MaxBodySize)(handler)
	handler = dispatch.CORSMiddleware(cfg.Server.CORS)(handler)
	handler = dispatch.MetricsMiddleware(handler)
	handler = dispatch.LoggingMiddleware(handler)
	handler = dispatch.RequestIDMiddleware(handler)
	handler = dispatch.RecoveryMiddleware(handler)

	return handler
}

func requireAuth(cat *catalog.Catalog, fn http.HandlerFunc) http.Handler {
	return auth.RequireAuth(cat.Config.DB)(fn)
}

func requireWrite(cat *catalog.Catalog, fn http.HandlerFunc) http.Handler {
	return auth.RequireWrite(cat.Config.DB)(fn)
}

// requireAdmin layers an admin check on top of RequireAuth; auth.Middleware
// has no admin-only mode of its own, since only these management routes
// need it.
func requireAdmin(cat *catalog.Catalog, fn http.HandlerFunc) http.Handler {
	return auth.RequireAuth(cat.Config.DB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if claims == nil || !claims.Admin {
			Forbidden(w, r, "admin access required")
			return
		}
		fn(w, r)
	}))
}
