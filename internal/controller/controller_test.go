package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signinable/signind/internal/api"
	"github.com/signinable/signind/internal/controller"
	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/service"
	"github.com/signinable/signind/internal/storage/memory"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	log := zap.NewNop().Sugar()

	users := memory.NewUserStore()
	signins := memory.NewSigninStore(log)

	sessions, err := service.NewManager(service.Config[models.User]{
		OwnerType:  "User",
		OwnerID:    func(u models.User) string { return u.GUID },
		Secret:     []byte("test-secret"),
		RefreshTTL: 2 * time.Hour,
	}, signins, controller.NewUserResolver(users), service.WithLogger[models.User](log))
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = api.ErrorHandler(log)
	controller.RegisterHandlersWithBaseURL(e, controller.NewController(log, users, sessions), "/api")
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSigninFlow(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/signins", `{"owner_guid":"u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var signinResp models.SigninResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signinResp))
	require.NotEmpty(t, signinResp.BearerToken)

	rec = doJSON(e, http.MethodPost, "/api/signins/current/refresh", `{"bearer_token":"`+signinResp.BearerToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var authResp models.AuthenticateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authResp))
	require.Equal(t, "u1", authResp.OwnerGUID)
	require.Equal(t, signinResp.BearerToken, authResp.BearerToken)

	rec = doJSON(e, http.MethodDelete, "/api/signins/current", `{"bearer_token":"`+signinResp.BearerToken+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Second signout is a no-op, reported as not found.
	rec = doJSON(e, http.MethodDelete, "/api/signins/current", `{"bearer_token":"`+signinResp.BearerToken+`"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSigninRequiresOwner(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/signins", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/signins/current/refresh", `{"bearer_token":"blablabla"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// The rejection reason stays opaque.
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "not authenticated", resp["reason"])
}
