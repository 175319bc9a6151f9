package config

import "time"

// Default configuration values.
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8090
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	DefaultMaxBodySize  = 10 * 1024 * 1024 // 10MB

	DefaultDataDir      = "data"
	DefaultCacheSize    = -64000 // 64MB
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1 // single-writer SQLite
	DefaultMaxIdleConns = 1

	DefaultMinPassword = 8

	DefaultAssetCacheMaxCapacity    = 25 * 1024 * 1024 // 25MiB
	DefaultAssetCacheTTI            = 24 * time.Hour
	DefaultAssetCacheTTL            = 30 * 24 * time.Hour
	DefaultFunctionCacheMaxCapacity = 10 * 1024 * 1024
	DefaultFunctionCacheTTI         = time.Hour
	DefaultFunctionCacheTTL         = 24 * time.Hour
	DefaultPathCacheMaxCapacity     = 5000 // entries, weight 1 each
	DefaultPathCacheTTI             = time.Hour
	DefaultPathCacheTTL             = 24 * time.Hour
	DefaultResponseCacheMaxCapacity = 25 * 1024 * 1024
	DefaultResponseCacheTTI         = time.Hour
	DefaultResponseCacheTTL         = 24 * time.Hour
	DefaultCacheFileMaxCapacity     = 2 * 1024 * 1024 // per-entry cap

	DefaultGCThresholdMB      = 20
	DefaultStackSizeKB        = 512
	DefaultNetPoolIdleTimeout = 90 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultRateLimitMax    = 120
	DefaultRateLimitWindow = time.Minute

	DefaultStoragePath        = "data/plugins"
	DefaultStorageCompression = "gzip"

	DefaultRequestLogSize = 1000
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxBodySize:  DefaultMaxBodySize,
			CORS: CORSConfig{
				Enabled:          true,
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
				ExposedHeaders:   []string{"X-Request-ID"},
				AllowCredentials: false,
				MaxAge:           12 * time.Hour,
			},
			RateLimit: RateLimitRule{
				Max:    DefaultRateLimitMax,
				Window: DefaultRateLimitWindow,
			},
			RequestLogSize: DefaultRequestLogSize,
		},
		Database: DatabaseConfig{
			DataDir:         DefaultDataDir,
			WALMode:         true,
			CacheSize:       DefaultCacheSize,
			BusyTimeout:     DefaultBusyTimeout,
			ForeignKeys:     true,
			MaxOpenConns:    DefaultMaxOpenConns,
			MaxIdleConns:    DefaultMaxIdleConns,
			ConnMaxLifetime: 0,
		},
		Auth: AuthConfig{
			Password: PasswordConfig{
				MinLength: DefaultMinPassword,
			},
		},
		Cache: CacheConfig{
			Asset: CacheKindConfig{
				MaxCapacity: DefaultAssetCacheMaxCapacity,
				TimeToIdle:  DefaultAssetCacheTTI,
				TimeToLive:  DefaultAssetCacheTTL,
			},
			Function: CacheKindConfig{
				MaxCapacity: DefaultFunctionCacheMaxCapacity,
				TimeToIdle:  DefaultFunctionCacheTTI,
				TimeToLive:  DefaultFunctionCacheTTL,
			},
			Path: CacheKindConfig{
				MaxCapacity: DefaultPathCacheMaxCapacity,
				TimeToIdle:  DefaultPathCacheTTI,
				TimeToLive:  DefaultPathCacheTTL,
			},
			FunctionResponse: CacheKindConfig{
				MaxCapacity: DefaultResponseCacheMaxCapacity,
				TimeToIdle:  DefaultResponseCacheTTI,
				TimeToLive:  DefaultResponseCacheTTL,
			},
			FileMaxCapacity: DefaultCacheFileMaxCapacity,
		},
		Runtime: RuntimeConfig{
			StackSizeKB:        DefaultStackSizeKB,
			GCThresholdMB:      DefaultGCThresholdMB,
			NetPoolIdleTimeout: DefaultNetPoolIdleTimeout,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			Caller:    false,
			Timestamp: true,
		},
		Storage: StorageConfig{
			Path:        DefaultStoragePath,
			Compression: DefaultStorageCompression,
		},
	}
}
