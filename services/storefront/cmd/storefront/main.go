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

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/common"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/config"
	"github.com/Skotchmaster/storefront/services/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
	"github.com/Skotchmaster/storefront/services/storefront/internal/web"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(common.Common()...)
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		API:            apiclient.NewClient(cfg.APIURL, cfg.APITimeout),
		Sessions:       session.NewStore(cfg.SessionKey, cfg.CookieSecure),
		Renderer:       renderer,
		CSRFKey:        cfg.CSRFKey,
		CookieSecure:   cfg.CookieSecure,
		TrustedOrigins: cfg.TrustedOrigins,
	})

	go func() {
		logger.Info("storefront_starting", "port", cfg.Port, "api_url", cfg.APIURL)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("storefront_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_error", "error", err)
	}
	logger.Info("storefront_stopped")
}
