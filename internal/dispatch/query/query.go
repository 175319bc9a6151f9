// Package query implements the SQL query API (§4.8): accepting a
// {db_name, query, params} request, discriminating SELECT from mutation,
// enforcing write/admin permission, rewriting named parameters to
// positional placeholders, coercing parameter values, and shaping the
// response.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/catalog"
)

// DBName selects which catalog database a query runs against.
type DBName string

const (
	DBConfig   DBName = "config"
	DBFunction DBName = "function"
)

// Request is the decoded {db_name, query, params?} request body.
type Request struct {
	DBName string          `json:"db_name"`
	Query  string          `json:"query"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is either {"data": [...rows]} for a SELECT or
// {"data": [{"success": true}]} for a mutation.
type Response struct {
	Data []catalog.Row `json:"data"`
}

var selectPattern = regexp.MustCompile(`(?is)^\s*(SELECT|WITH\s+RECURSIVE\b.*\bSELECT)\b`)

// IsSelect reports whether query is a read statement per the spec's
// discriminator regex.
func IsSelect(query string) bool {
	return selectPattern.MatchString(query)
}

var (
	ErrConfigRequiresAdmin = fmt.Errorf("queries against the config database require an admin token")
	ErrUnknownDB           = fmt.Errorf("unknown db_name")
)

// Execute authorizes and runs req against one of cat's two databases,
// returning the shaped response body.
func Execute(ctx context.Context, cat *catalog.Catalog, claims *auth.Claims, req Request) (*Response, error) {
	isSelect := IsSelect(req.Query)

	if !isSelect && (claims == nil || !claims.Write) {
		return nil, auth.ErrWriteRequired
	}

	var db *catalog.DB
	switch DBName(req.DBName) {
	case DBConfig:
		if claims == nil || !claims.Admin {
			return nil, ErrConfigRequiresAdmin
		}
		db = cat.Config
	case DBFunction:
		db = cat.Function
	default:
		return nil, ErrUnknownDB
	}

	stmt, args, err := rewrite(req.Query, req.Params)
	if err != nil {
		return nil, fmt.Errorf("preparing query: %w", err)
	}

	if isSelect {
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, fmt.Errorf("executing query: %w", err)
		}
		defer rows.Close()

		data, err := catalog.ScanRows(rows)
		if err != nil {
			return nil, err
		}
		return &Response{Data: data}, nil
	}

	if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("executing mutation: %w", err)
	}
	return &Response{Data: []catalog.Row{{"success": true}}}, nil
}

// rewrite decodes params (positional array or named object) and, for the
// named form, rewrites each `:name`/`@name`/`$name` occurrence outside
// single-quoted string literals into a positional `?`, returning the
// rewritten query text alongside the ordered argument list.
func rewrite(query string, raw json.RawMessage) (string, []any, error) {
	if len(raw) == 0 {
		return query, nil, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return query, nil, nil
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return "", nil, fmt.Errorf("decoding positional params: %w", err)
		}
		args := make([]any, len(arr))
		for i, v := range arr {
			args[i] = coerce(v)
		}
		return query, args, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, fmt.Errorf("decoding named params: %w", err)
	}
	return rewriteNamed(query, obj)
}

// rewriteNamed scans query left to right, tracking single-quoted string
// literal context, and replaces any `:name`/`@name`/`$name` token found
// outside a literal with `?`, appending the matching coerced value.
func rewriteNamed(query string, params map[string]json.RawMessage) (string, []any, error) {
	var b strings.Builder
	var args []any

	inString := false
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if inString {
			b.WriteRune(c)
			if c == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					b.WriteRune(runes[i+1])
					i++
					continue
				}
				inString = false
			}
			continue
		}

		if c == '\'' {
			inString = true
			b.WriteRune(c)
			continue
		}

		if c == ':' || c == '@' || c == '$' {
			name, width := scanIdentifier(runes[i+1:])
			if width > 0 {
				raw, ok := params[string(c)+name]
				if !ok {
					return "", nil, fmt.Errorf("missing value for named parameter %q", string(c)+name)
				}
				b.WriteByte('?')
				args = append(args, coerce(raw))
				i += width
				continue
			}
		}

		b.WriteRune(c)
	}

	return b.String(), args, nil
}

func scanIdentifier(rest []rune) (string, int) {
	n := 0
	for n < len(rest) {
		c := rest[n]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
		if !isAlnum {
			break
		}
		n++
	}
	return string(rest[:n]), n
}

// coerce maps a JSON-decoded parameter value to its SQL-bound equivalent
// per the spec: null, bool, integer, float, and text pass through (the
// sqlite driver handles those natively); a JSON array of byte values
// becomes a blob; objects become NULL.
func coerce(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	switch val := v.(type) {
	case nil:
		return nil
	case bool, string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case []any:
		bytes, ok := asByteArray(val)
		if ok {
			return bytes
		}
		return nil
	case map[string]any:
		return nil
	default:
		return nil
	}
}

func asByteArray(arr []any) ([]byte, bool) {
	out := make([]byte, len(arr))
	for i, elem := range arr {
		n, ok := elem.(float64)
		if !ok || n < 0 || n > 255 || n != float64(byte(n)) {
			return nil, false
		}
		out[i] = byte(n)
	}
	return out, true
}
