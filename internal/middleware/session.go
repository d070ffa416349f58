package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SessionCookie is the name of the administrator session cookie.
const SessionCookie = "admin_token"

// localsAdminEmail is the Fiber locals key carrying the verified identity.
const localsAdminEmail = "admin_email"

// Authenticator verifies a session credential and returns its identity.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// AdminAPI rejects requests without a valid administrator session with
// 401 before any handler runs.
func AdminAPI(auth Authenticator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, err := auth.Authenticate(c.Cookies(SessionCookie))
		if err != nil {
			log.Debug("Rejected admin API request", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals(localsAdminEmail, email)
		return c.Next()
	}
}

// AdminPage redirects browser navigation without a valid administrator
// session to loginPath.
func AdminPage(auth Authenticator, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, err := auth.Authenticate(c.Cookies(SessionCookie))
		if err != nil {
			return c.Redirect(loginPath, fiber.StatusFound)
		}
		c.Locals(localsAdminEmail, email)
		return c.Next()
	}
}

// AdminEmail returns the identity stored by AdminAPI or AdminPage.
func AdminEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(localsAdminEmail).(string)
	return email
}

// SetSessionCookie stores token in an HTTP-only, same-site cookie scoped to
// the whole origin.
func SetSessionCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
	})
}

// ClearSessionCookie overwrites the session cookie with an expired value.
func ClearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
	})
}
