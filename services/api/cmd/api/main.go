package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/common"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/services/api/internal/config"
	"github.com/Skotchmaster/storefront/services/api/internal/httpserver"
	"github.com/Skotchmaster/storefront/services/api/internal/ratelimit"
	"github.com/Skotchmaster/storefront/services/api/internal/repo"
	"github.com/Skotchmaster/storefront/services/api/internal/search"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)

	gormRepo := &repo.GormRepo{DB: gdb}
	if err := gormRepo.Migrate(ctx); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}
	defer publisher.Close()

	accounts := &service.AccountService{
		Repo:      gormRepo,
		Events:    publisher,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.AccessTokenTTL,
	}
	catalog := &service.CatalogService{Repo: gormRepo, Events: publisher}
	carts := &service.CartService{Repo: gormRepo, Events: publisher}

	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := search.NewClient(esCtx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		esCancel()
		if err != nil {
			logger.Warn("search_disabled", "error", err)
		} else {
			catalog.Search = client
			if n, err := catalog.ReindexAll(ctx); err != nil {
				logger.Warn("search_reindex_failed", "error", err)
			} else {
				logger.Info("search_reindexed", "products", n)
			}
		}
	}

	var limiter ratelimit.Limiter = ratelimit.Nop{}
	if cfg.RedisAddr != "" {
		rdb := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		defer rdb.Close()
		limiter = &ratelimit.RedisLimiter{
			Client: rdb,
			Prefix: "login_attempts:",
			Limit:  cfg.LoginRateLimit,
			Window: cfg.LoginRateWindow,
		}
	}

	if cfg.SeedAdmin.Enabled() {
		if _, err := accounts.EnsureAdmin(ctx, cfg.SeedAdmin.Username, cfg.SeedAdmin.Email, cfg.SeedAdmin.Password); err != nil {
			logger.Error("seed_admin_failed", "error", err)
		} else {
			logger.Info("seed_admin_ready", "username", cfg.SeedAdmin.Username)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(common.Common()...)
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Users:        &httpserver.UsersHTTP{Svc: accounts},
		Products:     &httpserver.ProductsHTTP{Svc: catalog},
		Carts:        &httpserver.CartsHTTP{Svc: carts},
		Admin:        &httpserver.AdminHTTP{Accounts: accounts, Catalog: catalog},
		JWTSecret:    cfg.JWTSecret,
		AccountCheck: accounts.AccountState,
		LoginLimiter: limiter,
		DB:           gdb,
	})

	go func() {
		logger.Info("api_starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("api_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_error", "error", err)
	}
	logger.Info("api_stopped")
}
