package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/service"
	"github.com/signinable/signind/internal/storage"
)

type Controller struct {
	log      *zap.SugaredLogger
	users    storage.UserRepository
	sessions *service.Manager[models.User]
}

func NewController(log *zap.SugaredLogger, users storage.UserRepository, sessions *service.Manager[models.User]) *Controller {
	return &Controller{
		log:      log,
		users:    users,
		sessions: sessions,
	}
}

func RegisterHandlersWithBaseURL(e *echo.Echo, c *Controller, base string) {
	g := e.Group(base)
	g.GET("/ping", c.CheckServer)
	g.POST("/signins", c.CreateSignin)
	g.POST("/signins/current/refresh", c.RefreshSignin)
	g.DELETE("/signins/current", c.DeleteSignin)
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/signins). The owner is taken on faith from the request body:
// credential verification belongs to the caller behind the API key, not to
// this service.
func (c *Controller) CreateSignin(ctx echo.Context) error {
	var req models.SigninRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OwnerGUID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "owner_guid is required")
	}

	user, err := c.getOrCreateUser(ctx, req.OwnerGUID)
	if err != nil {
		return err
	}

	bearer, err := c.sessions.Signin(ctx.Request().Context(), *user, requestFingerprint(ctx), req.CustomData)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, models.SigninResponse{BearerToken: bearer})
}

// (POST /api/signins/current/refresh).
func (c *Controller) RefreshSignin(ctx echo.Context) error {
	var req models.AuthenticateRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, bearer, err := c.sessions.Authenticate(ctx.Request().Context(), req.BearerToken, requestFingerprint(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.AuthenticateResponse{
		OwnerGUID:   user.GUID,
		BearerToken: bearer,
	})
}

// (DELETE /api/signins/current).
func (c *Controller) DeleteSignin(ctx echo.Context) error {
	var req models.SignoutRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.sessions.Signout(ctx.Request().Context(), req.BearerToken, requestFingerprint(ctx)); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) getOrCreateUser(ctx echo.Context, guid string) (*models.User, error) {
	reqCtx := ctx.Request().Context()

	user, err := c.users.GetUserByGUID(reqCtx, guid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, err
	}

	user, err = c.users.CreateUser(reqCtx, guid)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func requestFingerprint(ctx echo.Context) models.Fingerprint {
	return models.Fingerprint{
		IP:        ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
		Referer:   ctx.Request().Referer(),
	}
}
