package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"veloce/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubAuth struct{}

func (stubAuth) Authenticate(token string) (string, error) {
	if token == "good" {
		return "admin@veloce.store", nil
	}
	return "", errors.New("unauthorized")
}

func newApp(t *testing.T) *fiber.App {
	app := fiber.New()
	app.Get("/api/secret", middleware.AdminAPI(stubAuth{}, zaptest.NewLogger(t)), func(c *fiber.Ctx) error {
		return c.SendString(middleware.AdminEmail(c))
	})
	app.Get("/admin.html", middleware.AdminPage(stubAuth{}, "/admin/login"), func(c *fiber.Ctx) error {
		return c.SendString("dashboard")
	})
	app.Post("/login", func(c *fiber.Ctx) error {
		middleware.SetSessionCookie(c, "good", time.Now().Add(time.Hour), true)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		middleware.ClearSessionCookie(c, false)
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookie})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAdminAPI(t *testing.T) {
	app := newApp(t)

	resp := get(t, app, "/api/secret", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = get(t, app, "/api/secret", "forged")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = get(t, app, "/api/secret", "good")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminPageRedirects(t *testing.T) {
	app := newApp(t)

	resp := get(t, app, "/admin.html", "")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get("Location"))

	resp = get(t, app, "/admin.html", "good")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionCookieAttributes(t *testing.T) {
	app := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
	require.NoError(t, err)
	set := resp.Header.Get("Set-Cookie")
	assert.Contains(t, set, middleware.SessionCookie+"=good")
	assert.Contains(t, set, "HttpOnly")
	assert.Contains(t, strings.ToLower(set), "samesite=lax")
	assert.Contains(t, set, "path=/")
	assert.Contains(t, set, "secure")

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/logout", nil), -1)
	require.NoError(t, err)
	cleared := resp.Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.True(t, cleared[0].Expires.Before(time.Now()))
}
