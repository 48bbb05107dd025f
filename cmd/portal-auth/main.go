// @title        SAFE Portal Auth API
// @version      1.0
// @description  Identity and session core of the SAFE healthcare portal.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/safehealth/portal/internal/api"
	"github.com/safehealth/portal/internal/core/ports"
	"github.com/safehealth/portal/internal/core/roleroute"
	"github.com/safehealth/portal/internal/core/service"
	"github.com/safehealth/portal/internal/infrastructure/db/mongo"
	"github.com/safehealth/portal/internal/infrastructure/db/redis"
	"github.com/safehealth/portal/internal/infrastructure/queue"
	"github.com/safehealth/portal/internal/pkg/config"
	"github.com/safehealth/portal/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-auth",
		Short: "SAFE portal identity and session API",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDev(),
		Service: "portal-auth",
	})

	creds, err := service.NewCredentialService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid credential configuration")
	}

	// Mongo connects lazily on the first request that needs it.
	conn := mongo.NewManager(
		mongo.Dialer(mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.ConnectTimeout,
		}),
		mongo.EnsureUserIndexes,
		log.With().Str("component", "mongo").Logger(),
	)
	users := mongo.NewAuthRepository(conn)

	var (
		rdb     *goredis.Client
		limiter ports.LoginLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		limiter = redis.NewLoginLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockWindow)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttling enabled")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, login throttling disabled")
	}

	audit := queue.NewDispatcher(cfg.Audit.Workers, mongo.NewAuthEventRepository(conn), log.With().Str("component", "audit").Logger())
	audit.Start(ctx)

	auth := service.NewAuthService(users, creds, service.AuthOptions{
		Policy: service.PasswordPolicy{
			MinLength:      cfg.Password.MinLength,
			RequireUpper:   cfg.Password.RequireUpper,
			RequireLower:   cfg.Password.RequireLower,
			RequireDigit:   cfg.Password.RequireDigit,
			RequireSpecial: cfg.Password.RequireSpecial,
		},
		Limiter: limiter,
		Events:  audit,
		Routes:  roleroute.New(),
	}, log.With().Str("component", "auth").Logger())

	e := api.NewRouter(api.Deps{
		Auth:     auth,
		Verifier: creds,
		Users:    users,
		Store:    conn,
		Redis:    rdb,
		Log:      log,
		Metrics:  true,
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	audit.Close()
	if err := conn.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("backing store close failed")
	}
	log.Info().Msg("server stopped")
	return nil
}
