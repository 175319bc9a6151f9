package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingRequired = errors.New("missing required configuration")
)

type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *Config
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "QUERY"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDocumentedEnvVars(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("query")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/query")
		v.AddConfigPath("/etc/query")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	expandEnvInConfig(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	return Load(LoadOptions{ConfigFile: path})
}

func LoadWithDefaults() (*Config, error) {
	return Load(LoadOptions{})
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("server.max_body_size", cfg.Server.MaxBodySize)
	v.SetDefault("server.request_log_size", cfg.Server.RequestLogSize)

	v.SetDefault("server.cors.enabled", cfg.Server.CORS.Enabled)
	v.SetDefault("server.cors.allowed_origins", cfg.Server.CORS.AllowedOrigins)
	v.SetDefault("server.cors.allowed_methods", cfg.Server.CORS.AllowedMethods)
	v.SetDefault("server.cors.allowed_headers", cfg.Server.CORS.AllowedHeaders)
	v.SetDefault("server.cors.exposed_headers", cfg.Server.CORS.ExposedHeaders)
	v.SetDefault("server.cors.allow_credentials", cfg.Server.CORS.AllowCredentials)
	v.SetDefault("server.cors.max_age", cfg.Server.CORS.MaxAge)

	v.SetDefault("database.data_dir", cfg.Database.DataDir)
	v.SetDefault("database.wal_mode", cfg.Database.WALMode)
	v.SetDefault("database.cache_size", cfg.Database.CacheSize)
	v.SetDefault("database.busy_timeout", cfg.Database.BusyTimeout)
	v.SetDefault("database.foreign_keys", cfg.Database.ForeignKeys)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)

	v.SetDefault("auth.password.min_length", cfg.Auth.Password.MinLength)
	v.SetDefault("auth.password.require_uppercase", cfg.Auth.Password.RequireUppercase)
	v.SetDefault("auth.password.require_lowercase", cfg.Auth.Password.RequireLowercase)
	v.SetDefault("auth.password.require_number", cfg.Auth.Password.RequireNumber)
	v.SetDefault("auth.password.require_special", cfg.Auth.Password.RequireSpecial)

	v.SetDefault("cache.asset.max_capacity", cfg.Cache.Asset.MaxCapacity)
	v.SetDefault("cache.asset.time_to_idle", cfg.Cache.Asset.TimeToIdle)
	v.SetDefault("cache.asset.time_to_live", cfg.Cache.Asset.TimeToLive)
	v.SetDefault("cache.function.max_capacity", cfg.Cache.Function.MaxCapacity)
	v.SetDefault("cache.function.time_to_idle", cfg.Cache.Function.TimeToIdle)
	v.SetDefault("cache.function.time_to_live", cfg.Cache.Function.TimeToLive)
	v.SetDefault("cache.path.max_capacity", cfg.Cache.Path.MaxCapacity)
	v.SetDefault("cache.path.time_to_idle", cfg.Cache.Path.TimeToIdle)
	v.SetDefault("cache.path.time_to_live", cfg.Cache.Path.TimeToLive)
	v.SetDefault("cache.function_response.max_capacity", cfg.Cache.FunctionResponse.MaxCapacity)
	v.SetDefault("cache.function_response.time_to_idle", cfg.Cache.FunctionResponse.TimeToIdle)
	v.SetDefault("cache.function_response.time_to_live", cfg.Cache.FunctionResponse.TimeToLive)
	v.SetDefault("cache.file_max_capacity", cfg.Cache.FileMaxCapacity)

	v.SetDefault("runtime.stack_size_kb", cfg.Runtime.StackSizeKB)
	v.SetDefault("runtime.gc_threshold_mb", cfg.Runtime.GCThresholdMB)
	v.SetDefault("runtime.net_pool_idle_timeout", cfg.Runtime.NetPoolIdleTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.caller", cfg.Logging.Caller)
	v.SetDefault("logging.timestamp", cfg.Logging.Timestamp)

	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.compression", cfg.Storage.Compression)
}

// bindDocumentedEnvVars binds the externally documented QUERY_* variable
// names that don't fall out of the automatic dotted-key replacement
// (the spec names them explicitly, independent of our internal nesting).
func bindDocumentedEnvVars(v *viper.Viper) {
	_ = v.BindEnv("auth.token_secret", "QUERY_SERVER_TOKEN_SECRET")
	_ = v.BindEnv("auth.admin_email", "QUERY_SERVER_ADMIN_EMAIL")
	_ = v.BindEnv("auth.admin_password", "QUERY_SERVER_ADMIN_PASSWORD")
	_ = v.BindEnv("server.port", "QUERY_SERVER_PORT")

	_ = v.BindEnv("cache.asset.max_capacity", "QUERY_ASSET_CACHE_MAX_CAPACITY")
	_ = v.BindEnv("cache.asset.time_to_idle", "QUERY_ASSET_CACHE_TIME_TO_IDLE")
	_ = v.BindEnv("cache.asset.time_to_live", "QUERY_ASSET_CACHE_TIME_TO_LIVE")
	_ = v.BindEnv("cache.function.max_capacity", "QUERY_FUNCTION_CACHE_MAX_CAPACITY")
	_ = v.BindEnv("cache.function.time_to_idle", "QUERY_FUNCTION_CACHE_TIME_TO_IDLE")
	_ = v.BindEnv("cache.function.time_to_live", "QUERY_FUNCTION_CACHE_TIME_TO_LIVE")
	_ = v.BindEnv("cache.path.max_capacity", "QUERY_PATH_CACHE_MAX_CAPACITY")
	_ = v.BindEnv("cache.path.time_to_idle", "QUERY_PATH_CACHE_TIME_TO_IDLE")
	_ = v.BindEnv("cache.path.time_to_live", "QUERY_PATH_CACHE_TIME_TO_LIVE")
	_ = v.BindEnv("cache.function_response.max_capacity", "QUERY_FUNCTION_RESPONSE_CACHE_MAX_CAPACITY")
	_ = v.BindEnv("cache.function_response.time_to_idle", "QUERY_FUNCTION_RESPONSE_CACHE_TIME_TO_IDLE")
	_ = v.BindEnv("cache.function_response.time_to_live", "QUERY_FUNCTION_RESPONSE_CACHE_TIME_TO_LIVE")
	_ = v.BindEnv("cache.file_max_capacity", "QUERY_CACHE_FILE_MAX_CAPACITY")

	_ = v.BindEnv("runtime.gc_threshold_mb", "QUERY_RUNTIME_GC_THRESHOLD_MB")
	_ = v.BindEnv("runtime.net_pool_idle_timeout", "QUERY_RUNTIME_NET_POOL_IDLE_TIMEOUT")

	_ = v.BindEnv("storage.path", "QUERY_STORAGE_PATH")
	_ = v.BindEnv("storage.compression", "QUERY_STORAGE_COMPRESSION")
}

func expandEnvInConfig(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envVar := val[2 : len(val)-1]
			if envVal := os.Getenv(envVar); envVal != "" {
				v.Set(key, envVal)
			}
		}
	}
}

func ConfigFilePath(customPath string) (string, error) {
	if customPath != "" {
		absPath, err := filepath.Abs(customPath)
		if err != nil {
			return "", fmt.Errorf("resolving config path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", absPath)
		}
		return absPath, nil
	}

	searchPaths := []string{
		"query.yaml",
		"query.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "query", "query.yaml"),
		"/etc/query/query.yaml",
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", ErrConfigNotFound
}
