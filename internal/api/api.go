package api

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	middleware "github.com/oapi-codegen/echo-middleware"
	"go.uber.org/zap"

	"github.com/signinable/signind/internal/controller"
	"github.com/signinable/signind/internal/storage"
	"github.com/signinable/signind/internal/util"
)

const shutdownTimeout = 5 * time.Second

type API struct {
	server           *echo.Echo
	controller       *controller.Controller
	log              *zap.SugaredLogger
	gracefulTimeout  time.Duration
	apiKeyRepository storage.APIKeyRepository
	cleanupFuncs     []func()
}

func NewAPI(c *controller.Controller, l *zap.SugaredLogger, sc *util.ServerConfig, apiKeyRepository storage.APIKeyRepository, cleanupFuncs []func()) *API {
	e := echo.New()

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(l)

	return &API{
		server:           e,
		controller:       c,
		log:              l,
		gracefulTimeout:  sc.GracefulTimeout,
		apiKeyRepository: apiKeyRepository,
		cleanupFuncs:     cleanupFuncs,
	}
}

func (a *API) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	swagger, err := GetSwagger()
	if err != nil {
		a.log.Fatalf("Failed to build OpenAPI specification: %v", err)
	}
	swagger.Servers = nil

	a.server.Use(APIKeyAuthMiddleware(a.apiKeyRepository))
	a.server.Use(echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a)))
	a.server.Use(middleware.OapiRequestValidator(swagger))

	controller.RegisterHandlersWithBaseURL(a.server, a.controller, "/api")

	a.ListenGracefulShutdown(ctx)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infof("Listening on: %s", a.server.Server.Addr)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("shutdown: %v", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	longShutdown := make(chan struct{}, 1)

	go func() {
		time.Sleep(a.gracefulTimeout)
		longShutdown <- struct{}{}
	}()

	select {
	case <-shutdownCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			a.log.Info("server shutdown completed")
		} else {
			a.log.Errorf("server shutdown: %v", ctx.Err())
		}
	case <-longShutdown:
		a.log.Infof("finished")
	}
}
