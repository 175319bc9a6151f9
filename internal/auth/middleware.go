package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
)

// MiddlewareConfig configures the bearer-token middleware.
type MiddlewareConfig struct {
	DB             *sql.DB // config database, holding user_token and named_token
	RequireAuth    bool
	RequireWrite   bool
	AllowAnonymous bool
}

// Middleware extracts and validates the bearer token against the config
// database, attaching the resulting claims to the request context. It does
// not attach a User.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)

			if token == "" {
				if cfg.RequireAuth && !cfg.AllowAnonymous {
					http.Error(w, `{"error":"authentication required","code":"UNAUTHORIZED"}`, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			validate := ValidateToken
			if cfg.RequireWrite {
				validate = ValidateWrite
			}

			claims, err := validate(r.Context(), cfg.DB, token)
			if err != nil {
				if cfg.RequireAuth {
					writeAuthError(w, err)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWriteRequired):
		http.Error(w, `{"error":"write access required","code":"FORBIDDEN"}`, http.StatusForbidden)
	case errors.Is(err, ErrAdminRequired):
		http.Error(w, `{"error":"admin access required","code":"FORBIDDEN"}`, http.StatusForbidden)
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenInactive):
		http.Error(w, `{"error":"token has expired or is inactive","code":"INVALID_TOKEN"}`, http.StatusUnauthorized)
	default:
		http.Error(w, `{"error":"invalid token","code":"INVALID_TOKEN"}`, http.StatusUnauthorized)
	}
}

// RequireAuth builds middleware that rejects requests without a valid token.
func RequireAuth(db *sql.DB) func(http.Handler) http.Handler {
	return Middleware(MiddlewareConfig{DB: db, RequireAuth: true})
}

// RequireWrite builds middleware that rejects requests without a valid,
// write-capable token.
func RequireWrite(db *sql.DB) func(http.Handler) http.Handler {
	return Middleware(MiddlewareConfig{DB: db, RequireAuth: true, RequireWrite: true})
}

// OptionalAuth builds middleware that attaches claims when present but
// never rejects the request.
func OptionalAuth(db *sql.DB) func(http.Handler) http.Handler {
	return Middleware(MiddlewareConfig{DB: db, RequireAuth: false, AllowAnonymous: true})
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
