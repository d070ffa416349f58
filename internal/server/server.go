// Package server assembles the Fiber application: middleware, API routes,
// the admin page gate and static files.
package server

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"veloce/internal/handlers"
	"veloce/internal/middleware"
	"veloce/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// LoginPath is where unauthenticated admin page loads are redirected.
const LoginPath = "/admin/login"

// bodyLimit leaves room for product image uploads.
const bodyLimit = 10 * 1024 * 1024

// Options are the settings the application needs from the configuration.
type Options struct {
	UploadDir          string
	StaticDir          string
	CookieSecure       bool
	CORSAllowLocalhost bool
	// RequestLog enables the per-request access log.
	RequestLog bool

	SMTPHasUser bool
	SMTPHasPass bool
	BrokerSet   bool
}

// Deps are the services the routes are wired to.
type Deps struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Orders   *services.OrderService
	Contact  handlers.ContactNotifier
	Mail     handlers.MailStatus
	Log      *zap.Logger
}

// New builds the application.
func New(opts Options, deps Deps) *fiber.App {
	log := deps.Log
	app := fiber.New(fiber.Config{
		AppName:               "veloce",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(logger.New())
	}
	if opts.CORSAllowLocalhost {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     "http://localhost",
			AllowOriginsFunc: isLocalOrigin,
			AllowCredentials: true,
		}))
	}

	adminAPI := middleware.AdminAPI(deps.Auth, log)
	api := app.Group("/api")

	handlers.NewSystemHandler(deps.Mail, opts.SMTPHasUser, opts.SMTPHasPass, opts.BrokerSet).RegisterRoutes(app, api)
	handlers.NewAuthHandler(deps.Auth, opts.CookieSecure, log).RegisterRoutes(api, adminAPI)
	handlers.NewProductHandler(deps.Products, log).RegisterRoutes(api, adminAPI)
	handlers.NewOrderHandler(deps.Orders, log).RegisterRoutes(api, adminAPI)
	handlers.NewContactHandler(deps.Contact, log).RegisterRoutes(api)
	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	})

	if opts.UploadDir != "" {
		app.Static(services.UploadsPath, opts.UploadDir)
	}
	if opts.StaticDir != "" {
		registerPages(app, opts.StaticDir, middleware.AdminPage(deps.Auth, LoginPath))
	}
	return app
}

// registerPages serves the storefront and the gated admin pages. The login
// page and its assets stay public.
func registerPages(app *fiber.App, dir string, gate fiber.Handler) {
	app.Get(LoginPath, func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(dir, "admin", "login", "index.html"))
	})
	app.Get("/admin.html", gate, func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(dir, "admin.html"))
	})
	app.Use("/admin", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), LoginPath) {
			return c.Next()
		}
		return gate(c)
	})
	app.Static("/admin", filepath.Join(dir, "admin"))
	app.Static("/", dir)

	// Storefront client-side routes.
	app.Get("*", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(dir, "index.html"))
	})
}

// isLocalOrigin allows localhost and 127.0.0.1 on any scheme and port.
func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
		return true
	}
	return false
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(code).JSON(fiber.Map{"error": "Internal server error"})
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
