package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sitegate/sitegate/internal/admission"
	"github.com/sitegate/sitegate/internal/config"
	errwrap "github.com/sitegate/sitegate/internal/errors"
	"github.com/sitegate/sitegate/internal/mail"
	"github.com/sitegate/sitegate/internal/observability"
	"github.com/sitegate/sitegate/internal/server"
	"github.com/sitegate/sitegate/internal/server/handlers"
	servermw "github.com/sitegate/sitegate/internal/server/middleware"
	"github.com/sitegate/sitegate/internal/store"
)

var (
	serverPort int
	serverHost string
)

// redisHealthChecker verifies counter store connectivity
type redisHealthChecker struct {
	store *admission.RedisStore
}

func (c redisHealthChecker) CheckHealth(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// storeHealthChecker verifies document store connectivity
type storeHealthChecker struct {
	store *store.Store
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with admission control and graceful shutdown.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server, close store connections,
and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid configuration")
		}

		// Initialize server logger
		observability.InitServerLogger(appName, cfg.Logging.Level)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}

		// Initialize metrics
		if err := observability.InitMetrics(appName, metricsPort); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics",
				zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}

		// Flags are bound into viper, so the loaded config already reflects
		// --host/--port overrides.
		host := cfg.Server.Host
		port := cfg.Server.Port

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", host),
			zap.Int("port", port),
			zap.Int("metrics_port", metricsPort))

		// Shared counter store backing all admission decisions
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		counterStore := admission.NewRedisStore(redisClient, cfg.Redis.Timeout)

		// Document store for contact messages and products
		db, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			observability.ServerLogger.Error("Failed to open store", zap.Error(err))
			return errwrap.WrapDatabase(cmd.Context(), err, "store initialization failed")
		}
		if err := db.Migrate(cmd.Context()); err != nil {
			observability.ServerLogger.Error("Failed to migrate store", zap.Error(err))
			return errwrap.WrapDatabase(cmd.Context(), err, "store migration failed")
		}

		// Admission control core
		gate, err := admission.NewGate(counterStore, admission.GateConfig{
			Global:     admission.Quota{Capacity: cfg.Admission.Global.Capacity, Window: cfg.Admission.Global.Window},
			PerAddress: admission.Quota{Capacity: cfg.Admission.PerAddress.Capacity, Window: cfg.Admission.PerAddress.Window},
			PerDevice:  admission.Quota{Capacity: cfg.Admission.PerDevice.Capacity, Window: cfg.Admission.PerDevice.Window},
		}, nil)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid rate limit configuration")
		}

		blacklist, err := admission.NewBlacklist(counterStore, admission.BlacklistConfig{
			Threshold: cfg.Admission.AbuseThreshold,
			Window:    cfg.Admission.AbuseWindow,
			BanTTL:    cfg.Admission.BanTTL,
		}, nil)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid blacklist configuration")
		}

		interceptor := &servermw.Interceptor{
			Blacklist:         blacklist,
			Gate:              gate,
			ProtectedPrefixes: cfg.Admission.ProtectedPrefixes,
			ContactPath:       cfg.Admission.ContactPath,
		}

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("redis", redisHealthChecker{store: counterStore})
		hm.RegisterChecker("store", storeHealthChecker{store: db})
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})

		// Create server
		srv := server.New(host, port, server.Options{
			Interceptor: interceptor,
			Store:       db,
			Mailer:      mail.NewLogMailer(),
			Contact:     cfg.Contact,
			AdminToken:  cfg.Admin.Token,
		})

		// Get shutdown timeout from config
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close store connections
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing store connections...")
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error", zap.Error(err))
			}
			if err := redisClient.Close(); err != nil {
				observability.ServerLogger.Warn("Redis close returned error", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// Quota and blacklist changes need a restart; the interceptor holds
			// the values it was built with.
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", host),
				zap.Int("port", port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background. Listen returns nil after a
		// completed graceful shutdown; forward that too so the command exits.
		go func() {
			err := signals.Listen(cmd.Context())
			if err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
			}
			errChan <- err
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
