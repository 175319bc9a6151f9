package catalog

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"modernc.org/sqlite"
)

// tokenSecret is read once at process start and never rotated.
var (
	tokenSecretMu sync.RWMutex
	tokenSecret   string
)

// SetTokenSecret installs the process-wide signing secret used by the
// token() scalar function. Safe to call once during startup, before any
// catalog connection is opened.
func SetTokenSecret(secret string) {
	tokenSecretMu.Lock()
	defer tokenSecretMu.Unlock()
	tokenSecret = secret
}

func getTokenSecret() string {
	tokenSecretMu.RLock()
	defer tokenSecretMu.RUnlock()
	return tokenSecret
}

var registerOnce sync.Once

// RegisterScalarFunctions installs uuid(), regexp(), valid_json(), token(),
// base64_encode()/base64_decode() and not_allowed() on the sqlite driver so
// every connection opened afterwards sees them. Idempotent.
func RegisterScalarFunctions() {
	registerOnce.Do(func() {
		sqlite.MustRegisterDeterministicScalarFunction("uuid", 0, sqlUUID)
		sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, sqlRegexp)
		sqlite.MustRegisterDeterministicScalarFunction("valid_json", 1, sqlValidJSON)
		sqlite.MustRegisterDeterministicScalarFunction("token", 1, sqlToken)
		sqlite.MustRegisterDeterministicScalarFunction("base64_encode", 1, sqlBase64Encode)
		sqlite.MustRegisterDeterministicScalarFunction("base64_decode", 1, sqlBase64Decode)
		sqlite.MustRegisterDeterministicScalarFunction("not_allowed", 1, sqlNotAllowed)
	})
}

func sqlUUID(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return uuid.New().String(), nil
}

// regexpCache memoizes compiled patterns process-wide, across statements
// and connections; a pattern that fails to compile is not cached.
var regexpCache sync.Map // map[string]*regexp.Regexp

func sqlRegexp(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regexp: pattern must be text")
	}
	text, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("regexp: subject must be text")
	}

	re, err := compiledRegexp(pattern)
	if err != nil {
		return nil, err
	}

	return re.MatchString(text), nil
}

func compiledRegexp(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexpCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regexp: %w", err)
	}

	actual, _ := regexpCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

func sqlValidJSON(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok := args[0].(string)
	if !ok {
		return false, nil
	}
	return json.Valid([]byte(text)), nil
}

func sqlToken(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	claimsJSON, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("token: claims must be text")
	}

	secret := getTokenSecret()
	if secret == "" {
		return nil, fmt.Errorf("token: signing secret is not configured")
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal([]byte(claimsJSON), &claims); err != nil {
		return nil, fmt.Errorf("token: invalid claims: %w", err)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	return signed, nil
}

func sqlBase64Encode(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("base64_encode: argument must be text")
	}
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}

func sqlBase64Decode(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("base64_decode: argument must be text")
	}
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("base64_decode: %w", err)
	}
	return string(decoded), nil
}

func sqlNotAllowed(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	message, _ := args[0].(string)
	return nil, fmt.Errorf("%s", message)
}
