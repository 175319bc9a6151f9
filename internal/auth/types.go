// Package auth validates Query's bearer tokens against the config database
// and carries the resulting claims through the request context.
package auth

import (
	"context"
	"time"
)

// User is a row from the config database's user table.
type User struct {
	UUID      string    `json:"uuid"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Claims describes the subject and capabilities carried by a validated
// token, whether issued to a user or to a named (service) token.
type Claims struct {
	Subject string // user uuid (Issuer == IssuerUserToken) or named-token name (Issuer == IssuerNamedToken)
	Issuer  string
	Exp     int64
	Iat     int64
	Write   bool
	Admin   bool
}

const (
	IssuerUserToken  = "user_token"
	IssuerNamedToken = "token"
)

// IsUser reports whether the claims belong to a user token rather than a
// named token.
func (c *Claims) IsUser() bool {
	return c.Issuer == IssuerUserToken
}

type contextKey string

const (
	userContextKey   contextKey = "auth_user"
	claimsContextKey contextKey = "auth_claims"
)

func UserFromContext(ctx context.Context) *User {
	if user, ok := ctx.Value(userContextKey).(*User); ok {
		return user
	}
	return nil
}

func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}

func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func IsAuthenticated(ctx context.Context) bool {
	return ClaimsFromContext(ctx) != nil
}
