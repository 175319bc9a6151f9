package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInactive = errors.New("token is not active")
	ErrWriteRequired = errors.New("token does not permit write access")
	ErrAdminRequired = errors.New("token does not belong to an admin user")
)

// ValidateToken looks up token in both user_token and named_token and
// returns its claims, matching the spec's validity rule: a token is valid
// while it is active and either its expiration date is in the future or
// equal to the date it was last (re)issued, meaning it never expires.
func ValidateToken(ctx context.Context, db *sql.DB, token string) (*Claims, error) {
	claims, err := lookupUserToken(ctx, db, token)
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	claims, err = lookupNamedToken(ctx, db, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return claims, nil
}

// ValidateWrite validates the token and additionally requires write access.
func ValidateWrite(ctx context.Context, db *sql.DB, token string) (*Claims, error) {
	claims, err := ValidateToken(ctx, db, token)
	if err != nil {
		return nil, err
	}
	if !claims.Write {
		return nil, ErrWriteRequired
	}
	return claims, nil
}

// ValidateIsAdmin validates the token and additionally requires it to
// belong to an admin user. Named tokens are never admin.
func ValidateIsAdmin(ctx context.Context, db *sql.DB, token string) (*Claims, error) {
	claims, err := ValidateToken(ctx, db, token)
	if err != nil {
		return nil, err
	}
	if !claims.Admin {
		return nil, ErrAdminRequired
	}
	return claims, nil
}

func lookupUserToken(ctx context.Context, db *sql.DB, token string) (*Claims, error) {
	var (
		userUUID       string
		expirationDate int64
		active         bool
		write          bool
		updatedAt      int64
		admin          bool
	)

	err := db.QueryRowContext(ctx, `
		SELECT ut.user_uuid, ut.expiration_date, ut.active, ut.write, ut.updated_at, u.admin
		FROM user_token ut
		JOIN user u ON u.uuid = ut.user_uuid
		WHERE ut.token = ?
	`, token).Scan(&userUUID, &expirationDate, &active, &write, &updatedAt, &admin)
	if err != nil {
		return nil, err
	}

	if !active {
		return nil, ErrTokenInactive
	}
	if !isCurrentlyValid(expirationDate, updatedAt) {
		return nil, ErrTokenExpired
	}

	return &Claims{
		Subject: userUUID,
		Issuer:  IssuerUserToken,
		Exp:     expirationDate,
		Iat:     updatedAt,
		Write:   write,
		Admin:   admin,
	}, nil
}

func lookupNamedToken(ctx context.Context, db *sql.DB, token string) (*Claims, error) {
	var (
		name           string
		expirationDate int64
		active         bool
		write          bool
		updatedAt      int64
	)

	err := db.QueryRowContext(ctx, `
		SELECT name, expiration_date, active, write, updated_at
		FROM named_token
		WHERE token = ?
	`, token).Scan(&name, &expirationDate, &active, &write, &updatedAt)
	if err != nil {
		return nil, err
	}

	if !active {
		return nil, ErrTokenInactive
	}
	if !isCurrentlyValid(expirationDate, updatedAt) {
		return nil, ErrTokenExpired
	}

	return &Claims{
		Subject: name,
		Issuer:  IssuerNamedToken,
		Exp:     expirationDate,
		Iat:     updatedAt,
		Write:   write,
		Admin:   false,
	}, nil
}

// isCurrentlyValid implements the spec's disjunction: a token issued with
// exp == iat never expires; otherwise it is valid until its expiration date.
func isCurrentlyValid(expirationDate, updatedAt int64) bool {
	if expirationDate == updatedAt {
		return true
	}
	return expirationDate > time.Now().Unix()
}
