// Package config provides configuration management for Query.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration structure for Query.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
}

// StorageConfig backs plugin binary storage (§6.1): plugin bytes live
// under Path in plugins/<name>, optionally gzip/zstd compressed,
// while function.db's plugin table keeps only the name/sha256/tag metadata.
type StorageConfig struct {
	Path        string `mapstructure:"path"`
	Compression string `mapstructure:"compression"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	CORS CORSConfig `mapstructure:"cors"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// MaxBodySize caps request bodies in bytes.
	MaxBodySize int64 `mapstructure:"max_body_size"`

	TLS *TLSConfig `mapstructure:"tls"`

	RateLimit RateLimitRule `mapstructure:"rate_limit"`

	// AppMode prepends "/pages" to request paths that target neither
	// "/api" nor "/_/", letting a project serve page functions without
	// every route carrying an explicit prefix.
	AppMode bool `mapstructure:"app_mode"`

	// RequestLogSize is the capacity of the in-memory ring buffer backing
	// the admin-only recent-requests view. 0 or a negative value falls back
	// to the store's default of 1000 entries; request logging is always on.
	RequestLogSize int `mapstructure:"request_log_size"`
}

// RateLimitRule caps the number of requests a single client may make
// within Window, enforced by the dispatcher's RateLimiter, keyed by the
// X-Real-IP header, else X-Forwarded-For, else the connection's remote
// address.
type RateLimitRule struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `mapstructure:"exposed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// TLSConfig holds TLS settings.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig holds settings for the two SQLite-backed catalog files:
// config.db (users/tokens/options) and function.db (functions/assets/plugins).
type DatabaseConfig struct {
	// DataDir is the directory holding config.db, function.db and the
	// .primary marker file.
	DataDir string `mapstructure:"data_dir"`

	WALMode         bool          `mapstructure:"wal_mode"`
	CacheSize       int           `mapstructure:"cache_size"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	ForeignKeys     bool          `mapstructure:"foreign_keys"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ConfigDBPath returns the path to the users/tokens/options database.
func (d DatabaseConfig) ConfigDBPath() string {
	return filepath.Join(d.DataDir, "config.db")
}

// FunctionDBPath returns the path to the functions/assets/plugins database.
func (d DatabaseConfig) FunctionDBPath() string {
	return filepath.Join(d.DataDir, "function.db")
}

// PrimaryMarkerPath returns the path to the .primary marker file; its
// absence signals a non-primary replica that must skip cache-write
// side-effects.
func (d DatabaseConfig) PrimaryMarkerPath() string {
	return filepath.Join(d.DataDir, ".primary")
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// TokenSecret signs user/named tokens. Read once at process start.
	TokenSecret string `mapstructure:"token_secret"`

	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`

	Password PasswordConfig `mapstructure:"password"`
}

// PasswordConfig holds password complexity requirements.
type PasswordConfig struct {
	MinLength        int  `mapstructure:"min_length"`
	RequireUppercase bool `mapstructure:"require_uppercase"`
	RequireLowercase bool `mapstructure:"require_lowercase"`
	RequireNumber    bool `mapstructure:"require_number"`
	RequireSpecial   bool `mapstructure:"require_special"`
}

// CacheKindConfig tunes one named cache.
type CacheKindConfig struct {
	MaxCapacity int64         `mapstructure:"max_capacity"`
	TimeToIdle  time.Duration `mapstructure:"time_to_idle"`
	TimeToLive  time.Duration `mapstructure:"time_to_live"`
}

// CacheConfig tunes the four named caches (asset, function, path,
// function response) plus the shared per-entry byte cap.
type CacheConfig struct {
	Asset            CacheKindConfig `mapstructure:"asset"`
	Function         CacheKindConfig `mapstructure:"function"`
	Path             CacheKindConfig `mapstructure:"path"`
	FunctionResponse CacheKindConfig `mapstructure:"function_response"`

	// FileMaxCapacity is the per-entry byte cap; inserts above it are
	// silently dropped.
	FileMaxCapacity int64 `mapstructure:"file_max_capacity"`
}

// RuntimeConfig tunes the embedded JS runtime host.
type RuntimeConfig struct {
	// StackSizeKB is the configured per-context JS stack size. The
	// jsruntime host does not apply it to the VMs it creates.
	StackSizeKB int `mapstructure:"stack_size_kb"`

	// GCThresholdMB is the configured heap size for forced GC passes. The
	// jsruntime host does not apply it to the VMs it creates.
	GCThresholdMB int `mapstructure:"gc_threshold_mb"`

	// NetPoolIdleTimeout bounds how long idle connections in the shared
	// ___fetcher HTTP client pool are kept alive.
	NetPoolIdleTimeout time.Duration `mapstructure:"net_pool_idle_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Caller    bool   `mapstructure:"caller"`
	Timestamp bool   `mapstructure:"timestamp"`
	Output    string `mapstructure:"output"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return s.Host + ":" + itoa(s.Port)
}

// itoa converts int to string without importing strconv.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	negative := i < 0
	if negative {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if negative {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
