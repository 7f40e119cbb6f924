package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/govpass/govpass/internal/audit"
	"github.com/govpass/govpass/internal/cache"
	"github.com/govpass/govpass/internal/config"
	healthctrl "github.com/govpass/govpass/internal/http/controllers/health"
	oauthctrl "github.com/govpass/govpass/internal/http/controllers/oauth"
	oidcctrl "github.com/govpass/govpass/internal/http/controllers/oidc"
	"github.com/govpass/govpass/internal/http/router"
	oauthsvc "github.com/govpass/govpass/internal/http/services/oauth"
	jwtx "github.com/govpass/govpass/internal/jwt"
	"github.com/govpass/govpass/internal/observability/logger"
	"github.com/govpass/govpass/internal/rate"
	"github.com/govpass/govpass/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer logger.Sync()
	log := logger.L().With(logger.Op("serve"))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	st, err := store.New(ctx, store.Config{
		Driver:       cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	if applied, err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	} else if applied > 0 {
		log.Info("applied migrations", logger.Int("count", applied))
	}

	// Flow-state cache
	ca, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer ca.Close()

	// Signing key
	issuer, err := buildIssuer(cfg, log)
	if err != nil {
		return err
	}

	// Audit trail
	auditLog := audit.New(st.Audit())

	// Rate limiting
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Driver == "redis" {
			limiter = rate.NewRedisLimiter(rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			}), cfg.Cache.Redis.Prefix, cfg.Rate.MaxRequests, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	services := oauthsvc.NewServices(oauthsvc.Deps{
		Store:      st,
		Cache:      ca,
		Issuer:     issuer,
		Audit:      auditLog,
		CookieName: cfg.OAuth.SessionCookie,
		UIBaseURL:  cfg.OAuth.UIBaseURL,
		CodeTTL:    cfg.CodeTTL(),
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})

	handler := router.New(router.Deps{
		OAuth:       oauthctrl.NewControllers(services),
		OIDC:        oidcctrl.NewControllers(issuer),
		Health:      healthctrl.NewController(st, ca),
		RateLimiter: limiter,
		CORSOrigins: []string{"*"},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("issuer", issuer.Iss))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return auditLog.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildIssuer loads the configured RSA key, or generates an ephemeral one
// for development. An ephemeral key invalidates every outstanding ID token
// on restart, so production must configure jwt.key_file.
func buildIssuer(cfg *config.Config, log *zap.Logger) (*jwtx.Issuer, error) {
	var issuer *jwtx.Issuer

	if cfg.JWT.KeyFile != "" {
		key, err := jwtx.LoadPrivateKey(cfg.JWT.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("jwt key: %w", err)
		}
		issuer = jwtx.NewIssuer(cfg.JWT.Issuer, key)
	} else {
		key, err := jwtx.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("jwt keygen: %w", err)
		}
		issuer = jwtx.NewIssuer(cfg.JWT.Issuer, key)
		log.Warn("no jwt.key_file configured, using an ephemeral signing key")
	}

	issuer.IDTokenTTL = cfg.IDTokenTTL()
	return issuer, nil
}
