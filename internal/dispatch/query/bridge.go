package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/catalog"
)

// HostFunc adapts Execute to the jsruntime.QueryFunc signature the ___query
// bridge calls: a JS-callable function taking a db name, SQL text, and a
// JSON-encoded params value, running under the claims of the function that
// invoked it.
func HostFunc(cat *catalog.Catalog, claims *auth.Claims) func(ctx context.Context, dbName, sql, paramsJSON string) (string, error) {
	return func(ctx context.Context, dbName, sqlText, paramsJSON string) (string, error) {
		req := Request{DBName: dbName, Query: sqlText}
		if paramsJSON != "" {
			req.Params = json.RawMessage(paramsJSON)
		}

		resp, err := Execute(ctx, cat, claims, req)
		if err != nil {
			return "", err
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return "", fmt.Errorf("encoding query response: %w", err)
		}
		return string(out), nil
	}
}
