package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/config"
)

// UserHandlers serves GET|POST|PUT|DELETE /user and POST /user/token/value
// (§6). Named tokens are served by NamedTokenHandlers.
type UserHandlers struct {
	cat      *catalog.Catalog
	password config.PasswordConfig
}

func NewUserHandlers(cat *catalog.Catalog, password config.PasswordConfig) *UserHandlers {
	return &UserHandlers{cat: cat, password: password}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}

// Create handles POST /user. The route is mounted behind requireAdmin, so
// only admin callers reach it; the create_user config option is not read.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		BadRequest(w, r, "email and password are required")
		return
	}

	if err := auth.ValidatePassword(req.Password, h.password); err != nil {
		BadRequest(w, r, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		InternalError(w, r, "failed to hash password")
		return
	}

	id, err := h.cat.CreateUser(r.Context(), req.Email, hash, req.Admin)
	if err != nil {
		InternalError(w, r, "failed to create user")
		return
	}

	JSON(w, http.StatusCreated, map[string]any{"uuid": id, "email": req.Email, "admin": req.Admin})
}

// List handles GET /user.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.cat.ListUsers(r.Context())
	if err != nil {
		InternalError(w, r, "failed to list users")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"data": users})
}

type updateUserRequest struct {
	UUID   string `json:"uuid"`
	Active bool   `json:"active"`
}

// Update handles PUT /user: currently only the active flag is mutable
// here, since email/password changes go through dedicated flows.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.UUID == "" {
		BadRequest(w, r, "uuid is required")
		return
	}

	if err := h.cat.UpdateUserActive(r.Context(), req.UUID, req.Active); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(w, r, "user not found")
			return
		}
		InternalError(w, r, "failed to update user")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

type deleteUserRequest struct {
	UUID string `json:"uuid"`
}

// Delete handles DELETE /user.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.UUID == "" {
		BadRequest(w, r, "uuid is required")
		return
	}

	if err := h.cat.DeleteUser(r.Context(), req.UUID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(w, r, "user not found")
			return
		}
		InternalError(w, r, "failed to delete user")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

type issueTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IssueUserTokenValue handles POST /user/token/value: given valid email and
// password credentials, it issues the user's token through IssueUserToken
// (no expiry, write access) and returns it. It does not return a token
// issued earlier unchanged: each call re-issues and replaces it.
func (h *UserHandlers) IssueUserTokenValue(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}

	userUUID, hash, _, active, err := h.cat.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, catalog.ErrNotFound) {
		Unauthorized(w, r, "invalid credentials")
		return
	}
	if err != nil {
		InternalError(w, r, "failed to look up user")
		return
	}
	if !active {
		Unauthorized(w, r, "user is not active")
		return
	}

	if err := auth.VerifyPassword(req.Password, hash); err != nil {
		Unauthorized(w, r, "invalid credentials")
		return
	}

	token, err := h.cat.IssueUserToken(r.Context(), userUUID, 0, true)
	if err != nil {
		InternalError(w, r, "failed to issue token")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"token": token})
}

type issueNamedTokenRequest struct {
	Name  string `json:"name"`
	Write bool   `json:"write"`
	TTL   int64  `json:"ttl_seconds,omitempty"`
}

// NamedTokenHandlers serves GET|POST|DELETE /token (admin-only).
type NamedTokenHandlers struct {
	cat *catalog.Catalog
}

func NewNamedTokenHandlers(cat *catalog.Catalog) *NamedTokenHandlers {
	return &NamedTokenHandlers{cat: cat}
}

func (h *NamedTokenHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req issueNamedTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Name == "" {
		BadRequest(w, r, "name is required")
		return
	}

	token, err := h.cat.IssueNamedToken(r.Context(), req.Name, time.Duration(req.TTL)*time.Second, req.Write)
	if err != nil {
		InternalError(w, r, "failed to issue named token")
		return
	}

	JSON(w, http.StatusCreated, map[string]string{"token": token})
}

// List handles GET /token.
func (h *NamedTokenHandlers) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.cat.ListNamedTokens(r.Context())
	if err != nil {
		InternalError(w, r, "failed to list named tokens")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"data": names})
}

type deleteNamedTokenRequest struct {
	Name string `json:"name"`
}

// Delete handles DELETE /token.
func (h *NamedTokenHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteNamedTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid JSON body")
		return
	}
	if req.Name == "" {
		BadRequest(w, r, "name is required")
		return
	}

	if err := h.cat.DeleteNamedToken(r.Context(), req.Name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(w, r, "named token not found")
			return
		}
		InternalError(w, r, "failed to delete named token")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
