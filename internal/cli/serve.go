package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/queryrun/query/internal/api"
	"github.com/queryrun/query/internal/cache"
	"github.com/queryrun/query/internal/catalog"
	"github.com/queryrun/query/internal/config"
	"github.com/queryrun/query/internal/dispatch"
	"github.com/queryrun/query/internal/metrics"
	"github.com/queryrun/query/internal/storage"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Query server",
	Long: `Start the Query server: opens config.db and function.db in the
configured data directory, initializes the weighted response/path/function
caches, and serves the SQL query API, management endpoints, and dispatched
user functions on one HTTP listener.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		log.Warn().Err(err).Msg("loading config failed, using defaults")
		cfg = config.Default()
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Open(ctx, &cfg.Database, cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog")
	}
	defer cat.Close()

	cache.Init(&cfg.Cache)
	defer cache.CloseAll()

	pluginBackend, err := storage.NewBackend(storage.BackendConfig{
		Path:        cfg.Storage.Path,
		Compression: cfg.Storage.Compression,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize plugin storage backend")
	}

	limiter := dispatch.NewRateLimiter(cfg.Server.RateLimit)
	defer limiter.Stop()

	handler := api.NewRouter(cat, cfg, pluginBackend, limiter)

	go reportStats(ctx, cat)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", "http://"+cfg.Server.Address()).Bool("app_mode", cfg.Server.AppMode).Msg("query server starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server error")
		return err
	}

	<-ctx.Done()
	return nil
}

// reportStats periodically exports connection-pool and cache occupancy to
// Prometheus until ctx is canceled at shutdown.
func reportStats(ctx context.Context, cat *catalog.Catalog) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			configStats := cat.Config.Stats()
			metrics.UpdateDBStats("config", configStats.OpenConnections, configStats.InUse, configStats.Idle)

			functionStats := cat.Function.Stats()
			metrics.UpdateDBStats("function", functionStats.OpenConnections, functionStats.InUse, functionStats.Idle)

			for _, kind := range []cache.Kind{cache.Asset, cache.Function, cache.Path, cache.FunctionResponse} {
				metrics.RecordCacheStats(kind.String(), int64(cache.Get(kind).Len()))
			}
		}
	}
}
