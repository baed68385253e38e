package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/wholikeme/internal/app"
	"github.com/oggyb/wholikeme/internal/auth"
	"github.com/oggyb/wholikeme/internal/cache"
	"github.com/oggyb/wholikeme/internal/config"
	"github.com/oggyb/wholikeme/internal/db"
	"github.com/oggyb/wholikeme/internal/logger"
	"github.com/oggyb/wholikeme/internal/observability"
	"github.com/oggyb/wholikeme/internal/push"
	"github.com/oggyb/wholikeme/internal/server"
	"github.com/oggyb/wholikeme/internal/service/crush"
	"github.com/oggyb/wholikeme/internal/service/notify"
	"github.com/oggyb/wholikeme/internal/service/user"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, cfg, log)

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	sender, err := push.NewSender(ctx, cfg)
	if err != nil {
		log.Warn("push disabled", "provider", cfg.Push.Provider, "err", err)
		sender = push.NoopSender{}
	}

	appCtx := app.New(database, redisCache, log, sender, cfg)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		log.Warn("AUTH_JWT_SECRET not set, /api trusts the userId sent by clients")
	}

	health := server.NewHealth(log, map[string]server.Check{
		"db":    server.PingDB(database),
		"redis": redisCache.Ping,
	})

	router := server.NewRouter(appCtx, verifier, health,
		user.NewRegistrar(appCtx),
		crush.NewRegistrar(appCtx),
		notify.NewRegistrar(appCtx),
	)
	httpServer := server.NewHTTPServer(appCtx, router)
	grpcServer := server.NewGRPCServer(health)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		health.Run(gctx, 10*time.Second)
		return nil
	})

	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpServer.Addr, "push", sender.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(cfg, grpcServer)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "err", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
