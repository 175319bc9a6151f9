package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Function is a row from the function database's function table.
type Function struct {
	Path      string
	Method    string
	Active    bool
	Bytes     []byte
	UpdatedAt time.Time
}

// GetFunction fetches the active function registered for method+path.
func (c *Catalog) GetFunction(ctx context.Context, method, path string) (*Function, error) {
	var fn Function
	var bytesStr string
	var updatedAt string
	err := c.Function.QueryRowContext(ctx, `
		SELECT path, method, active, function, updated_at
		FROM function WHERE method = ? AND path = ? AND active = 1
	`, method, path).Scan(&fn.Path, &fn.Method, &fn.Active, &bytesStr, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying function: %w", err)
	}
	fn.Bytes = []byte(bytesStr)
	fn.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
	return &fn, nil
}

// ListFunctions returns every function record, active or not.
func (c *Catalog) ListFunctions(ctx context.Context) ([]Function, error) {
	rows, err := c.Function.QueryContext(ctx, `SELECT path, method, active, function, updated_at FROM function ORDER BY path, method`)
	if err != nil {
		return nil, fmt.Errorf("listing functions: %w", err)
	}
	defer rows.Close()

	var out []Function
	for rows.Next() {
		var fn Function
		var bytesStr, updatedAt string
		if err := rows.Scan(&fn.Path, &fn.Method, &fn.Active, &bytesStr, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning function: %w", err)
		}
		fn.Bytes = []byte(bytesStr)
		fn.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
		out = append(out, fn)
	}
	return out, rows.Err()
}

// PutFunction upserts a function record. Any prior active record for the
// same method+path is deactivated, since the unique index keys on
// (method, path, active).
func (c *Catalog) PutFunction(ctx context.Context, method, path string, body []byte) error {
	return c.Function.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE function SET active = 0 WHERE method = ? AND path = ? AND active = 1
		`, method, path); err != nil {
			return fmt.Errorf("deactivating prior function: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO function (path, method, active, function) VALUES (?, ?, 1, ?)
		`, path, method, string(body)); err != nil {
			return fmt.Errorf("inserting function: %w", err)
		}
		return nil
	})
}

// DeleteFunction deactivates the function registered for method+path.
func (c *Catalog) DeleteFunction(ctx context.Context, method, path string) error {
	res, err := c.Function.ExecContext(ctx, `
		UPDATE function SET active = 0 WHERE method = ? AND path = ? AND active = 1
	`, method, path)
	if err != nil {
		return fmt.Errorf("deactivating function: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Asset is a row from the function database's asset table.
type Asset struct {
	Name     string
	MimeType string
	Data     []byte
	SHA256   string
}

func (c *Catalog) GetAsset(ctx context.Context, name string) (*Asset, error) {
	var a Asset
	var data string
	err := c.Function.QueryRowContext(ctx, `
		SELECT name, mime_type, data, sha256 FROM asset WHERE name = ?
	`, name).Scan(&a.Name, &a.MimeType, &data, &a.SHA256)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying asset: %w", err)
	}
	a.Data = []byte(data)
	return &a, nil
}

// PutAsset inserts or replaces an asset, computing its sha256 from data.
func (c *Catalog) PutAsset(ctx context.Context, name, mimeType string, data []byte) (*Asset, error) {
	sum := sha256.Sum256(data)
	hexSum := hex.EncodeToString(sum[:])

	_, err := c.Function.ExecContext(ctx, `
		INSERT INTO asset (name, mime_type, data, sha256) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET mime_type = excluded.mime_type, data = excluded.data, sha256 = excluded.sha256
	`, name, mimeType, string(data), hexSum)
	if err != nil {
		return nil, fmt.Errorf("upserting asset: %w", err)
	}

	return &Asset{Name: name, MimeType: mimeType, Data: data, SHA256: hexSum}, nil
}

func (c *Catalog) DeleteAsset(ctx context.Context, name string) error {
	res, err := c.Function.ExecContext(ctx, `DELETE FROM asset WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Plugin is a row from the function database's plugin table.
type Plugin struct {
	Name        string
	Tag         string
	URL         string
	SHA256      string
	RepoURL     string
	PublishedAt time.Time
}

func (c *Catalog) GetPlugin(ctx context.Context, name string) (*Plugin, error) {
	var p Plugin
	var publishedAt string
	err := c.Function.QueryRowContext(ctx, `
		SELECT name, tag, url, sha256, repo_url, published_at FROM plugin WHERE name = ?
	`, name).Scan(&p.Name, &p.Tag, &p.URL, &p.SHA256, &p.RepoURL, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plugin: %w", err)
	}
	p.PublishedAt, _ = time.Parse("2006-01-02 15:04:05", publishedAt)
	return &p, nil
}

func (c *Catalog) PutPlugin(ctx context.Context, p Plugin) error {
	_, err := c.Function.ExecContext(ctx, `
		INSERT INTO plugin (name, tag, url, sha256, repo_url) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET tag = excluded.tag, url = excluded.url, sha256 = excluded.sha256, repo_url = excluded.repo_url
	`, p.Name, p.Tag, p.URL, p.SHA256, p.RepoURL)
	if err != nil {
		return fmt.Errorf("upserting plugin: %w", err)
	}
	return nil
}

// CreateUser inserts a new user with an already-hashed password.
func (c *Catalog) CreateUser(ctx context.Context, email, passwordHash string, admin bool) (string, error) {
	id := uuid.New().String()
	_, err := c.Config.ExecContext(ctx, `
		INSERT INTO user (uuid, email, password_hash, admin, active) VALUES (?, ?, ?, ?, 1)
	`, id, email, passwordHash, admin)
	if err != nil {
		return "", fmt.Errorf("inserting user: %w", err)
	}
	return id, nil
}

// UserByEmail fetches a user row for login, including the password hash.
func (c *Catalog) UserByEmail(ctx context.Context, email string) (userUUID, passwordHash string, admin, active bool, err error) {
	err = c.Config.QueryRowContext(ctx, `
		SELECT uuid, password_hash, admin, active FROM user WHERE email = ?
	`, email).Scan(&userUUID, &passwordHash, &admin, &active)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return
}

// IssueUserToken creates (or replaces) the one token row belonging to a
// user, signing it via the catalog's token() scalar function so the claims
// and the stored expiration_date/updated_at columns agree from the start.
func (c *Catalog) IssueUserToken(ctx context.Context, userUUID string, ttl time.Duration, write bool) (string, error) {
	now := time.Now().Unix()
	exp := now
	if ttl > 0 {
		exp = now + int64(ttl.Seconds())
	}

	var token string
	err := c.Config.QueryRowContext(ctx, `
		INSERT INTO user_token (user_uuid, token, expiration_date, active, write, updated_at)
		VALUES (?, token('{"sub":"' || ? || '","exp":' || ? || ',"iat":' || ? || ',"iss":"user_token"}'), ?, 1, ?, ?)
		ON CONFLICT(user_uuid) DO UPDATE SET
			expiration_date = excluded.expiration_date,
			write = excluded.write,
			updated_at = excluded.updated_at,
			token = token('{"sub":"' || ? || '","exp":' || ? || ',"iat":' || ? || ',"iss":"user_token"}')
		RETURNING token
	`, userUUID, userUUID, exp, now, exp, boolToInt(write), now, userUUID, exp, now).Scan(&token)
	if err != nil {
		return "", fmt.Errorf("issuing user token: %w", err)
	}
	return token, nil
}

// IssueNamedToken creates (or replaces) a named (service) token.
func (c *Catalog) IssueNamedToken(ctx context.Context, name string, ttl time.Duration, write bool) (string, error) {
	now := time.Now().Unix()
	exp := now
	if ttl > 0 {
		exp = now + int64(ttl.Seconds())
	}

	var token string
	err := c.Config.QueryRowContext(ctx, `
		INSERT INTO named_token (name, token, expiration_date, active, write, updated_at)
		VALUES (?, token('{"sub":"' || ? || '","exp":' || ? || ',"iat":' || ? || ',"iss":"token"}'), ?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			expiration_date = excluded.expiration_date,
			write = excluded.write,
			updated_at = excluded.updated_at,
			token = token('{"sub":"' || ? || '","exp":' || ? || ',"iat":' || ? || ',"iss":"token"}')
		RETURNING token
	`, name, name, exp, now, exp, boolToInt(write), now, name, exp, now).Scan(&token)
	if err != nil {
		return "", fmt.Errorf("issuing named token: %w", err)
	}
	return token, nil
}

// SetConfigOption updates a capability flag. Deletes are rejected by the
// _config_option_no_delete trigger; this only ever updates.
func (c *Catalog) SetConfigOption(ctx context.Context, name, value string) error {
	_, err := c.Config.ExecContext(ctx, `
		INSERT INTO config_option (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("setting config option %q: %w", name, err)
	}
	return nil
}

func (c *Catalog) ConfigOption(ctx context.Context, name string) (string, error) {
	var value string
	err := c.Config.QueryRowContext(ctx, `SELECT value FROM config_option WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying config option %q: %w", name, err)
	}
	return value, nil
}

// ListUsers returns every user row, omitting password hashes.
func (c *Catalog) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := c.Config.QueryContext(ctx, `SELECT uuid, email, admin, active FROM user ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UUID, &u.Email, &u.Admin, &u.Active); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUserActive sets a user's active flag, used to suspend/reinstate
// an account without losing its token history.
func (c *Catalog) UpdateUserActive(ctx context.Context, userUUID string, active bool) error {
	res, err := c.Config.ExecContext(ctx, `UPDATE user SET active = ? WHERE uuid = ?`, boolToInt(active), userUUID)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user; its user_token row cascades per the schema's
// ON DELETE CASCADE.
func (c *Catalog) DeleteUser(ctx context.Context, userUUID string) error {
	res, err := c.Config.ExecContext(ctx, `DELETE FROM user WHERE uuid = ?`, userUUID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNamedTokens returns every named (service) token's metadata, never
// including the token value itself.
func (c *Catalog) ListNamedTokens(ctx context.Context) ([]string, error) {
	rows, err := c.Config.QueryContext(ctx, `SELECT name FROM named_token ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing named tokens: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning named token: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DeleteNamedToken revokes a named token.
func (c *Catalog) DeleteNamedToken(ctx context.Context, name string) error {
	res, err := c.Config.ExecContext(ctx, `DELETE FROM named_token WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting named token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
