package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/signinable/signind/internal/service"
)

type errorResponse struct {
	Reason string `json:"reason"`
}

// ErrorHandler maps session-manager outcomes to HTTP statuses. Every
// authentication rejection becomes an opaque 401; the specific cause is not
// leaked to the caller.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		switch {
		case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrInvalidSignature):
			writeJSON(log, c, http.StatusUnauthorized, "not authenticated")
			return
		case errors.Is(err, service.ErrRestrictionViolated):
			writeJSON(log, c, http.StatusForbidden, "restriction violated")
			return
		case errors.Is(err, service.ErrNothingToSignout):
			writeJSON(log, c, http.StatusNotFound, "nothing to sign out")
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			if he.Code == http.StatusInternalServerError {
				log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
			}
			reason, ok := he.Message.(string)
			if !ok {
				reason = http.StatusText(he.Code)
			}
			writeJSON(log, c, he.Code, reason)
			return
		}

		log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		writeJSON(log, c, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(log *zap.SugaredLogger, c echo.Context, status int, reason string) {
	if err := c.JSON(status, errorResponse{Reason: reason}); err != nil {
		log.Errorw("failed to write json response", "error", err)
	}
}
