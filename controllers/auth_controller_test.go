package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRememberLoginRejectsEmptyToken(t *testing.T) {
	controller := NewAuthController(nil, nil, nil)

	c, rec := postJSON(t, "/api/auth/remember-login", `{}`)
	require.NoError(t, controller.RememberLogin(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRememberLoginRejectsUnknownToken(t *testing.T) {
	// No Redis in unit tests: retrieval fails, which must surface as an
	// authentication failure, never as a session
	controller := NewAuthController(nil, nil, nil)

	c, rec := postJSON(t, "/api/auth/remember-login", `{"rememberToken":"no-such-token"}`)
	require.NoError(t, controller.RememberLogin(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
