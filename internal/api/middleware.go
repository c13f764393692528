package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

const ClientIDContextKey = "client_id"

// APIKeyAuthMiddleware checks the X-API-Key header against the key
// repository and stashes the owning client id in the echo context. The ping
// route stays open for health checks.
func APIKeyAuthMiddleware(apiKeyRepo storage.APIKeyRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/api/ping" {
				return next(c)
			}

			apiKey := c.Request().Header.Get(models.MwAPIKeyHeader)
			if apiKey == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "API key is missing")
			}

			foundAPIKey, err := apiKeyRepo.GetAPIKey(c.Request().Context(), apiKey)
			if err != nil {
				if errors.Is(err, storage.ErrAPIKeyNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid API key")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Error validating API key")
			}

			c.Set(ClientIDContextKey, foundAPIKey.ClientID)

			return next(c)
		}
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
