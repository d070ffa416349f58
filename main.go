package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veloce/internal/config"
	"veloce/internal/database"
	"veloce/internal/logger"
	"veloce/internal/notify"
	"veloce/internal/repositories"
	"veloce/internal/server"
	"veloce/internal/services"
	"veloce/internal/storage"
	"veloce/pkg/rabbitmq"
	"veloce/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	shutdownTimeout   = 10 * time.Second
	smtpVerifyTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	a, err := newApplication(cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if a.mail.Configured() {
		go a.verifyMail()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", cfg.Port), zap.String("env", cfg.Env))
		errCh <- a.app.Listen(cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	if err := a.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("Error during Fiber shutdown", zap.Error(err))
	}
	log.Info("Server gracefully stopped")
	return nil
}

// application owns every long-lived resource of the server.
type application struct {
	cfg        *config.Config
	log        *zap.Logger
	app        *fiber.App
	db         *gorm.DB
	mq         *rabbitmq.Client
	mail       *notify.SMTPSender
	dispatcher *notify.Dispatcher
}

func newApplication(cfg *config.Config, log *zap.Logger) (*application, error) {
	a := &application{cfg: cfg, log: log}

	productRepo, orderRepo, err := a.openRepositories()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Seed {
		if err := seedProducts(context.Background(), productRepo, log); err != nil {
			a.close()
			return nil, err
		}
	}

	authService, err := newAuthService(cfg.Admin, log)
	if err != nil {
		a.close()
		return nil, err
	}

	images, err := storage.NewLocalImageStore(cfg.UploadDir)
	if err != nil {
		a.close()
		return nil, err
	}

	a.mail = notify.NewSMTPSender(cfg.SMTP)
	a.dispatcher = notify.NewDispatcher(a.mail, cfg.SMTP.From, cfg.SMTP.NotifyEmail, log)

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		if a.mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log); err != nil {
			log.Warn("RabbitMQ unavailable, order events disabled", zap.Error(err))
		} else {
			events = a.mq
			if _, err := a.mq.ConsumeOrderEvents(rabbitmq.LogOrderEvent(log.Named("order-events"))); err != nil {
				log.Warn("Failed to start order event consumer", zap.Error(err))
			}
		}
	}

	a.app = server.New(server.Options{
		UploadDir:          images.Dir(),
		StaticDir:          cfg.StaticDir,
		CookieSecure:       cfg.Admin.CookieSecure,
		CORSAllowLocalhost: cfg.CORSAllowLocalhost,
		RequestLog:         !cfg.IsProduction(),
		SMTPHasUser:        cfg.SMTP.User != "",
		SMTPHasPass:        cfg.SMTP.Pass != "",
		BrokerSet:          a.mq != nil,
	}, server.Deps{
		Auth:     authService,
		Products: services.NewProductService(productRepo, images, log),
		Orders:   services.NewOrderService(orderRepo, a.dispatcher, events, log),
		Contact:  a.dispatcher,
		Mail:     a.mail,
		Log:      log,
	})
	return a, nil
}

func (a *application) openRepositories() (repositories.ProductRepository, repositories.OrderRepository, error) {
	if a.cfg.Database.Driver == "memory" {
		a.log.Warn("Using in-memory repositories; data is lost on restart")
		return repositories.NewMemoryProductRepository(), repositories.NewMemoryOrderRepository(), nil
	}

	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	a.db = db
	a.log.Info("Database ready", zap.String("driver", a.cfg.Database.Driver))
	return repositories.NewGORMProductRepository(db), repositories.NewGORMOrderRepository(db), nil
}

func newAuthService(cfg config.AdminConfig, log *zap.Logger) (*services.AuthService, error) {
	hasher := token.NewBcryptHasher(0)
	hash, err := services.ResolveAdminHash(hasher, cfg.PasswordHash, cfg.Password)
	if err != nil {
		return nil, err
	}
	codec, err := token.New(cfg.TokenFormat, cfg.JWTSecret, token.Options{})
	if err != nil {
		return nil, err
	}
	log.Info("Admin session gate ready",
		zap.String("token_format", codec.Name()),
		zap.Bool("admin_configured", cfg.Email != "" && hash != ""),
	)
	return services.NewAuthService(codec, hasher, services.AuthConfig{
		AdminEmail:   cfg.Email,
		PasswordHash: hash,
		SessionTTL:   cfg.SessionTTL,
	}, log), nil
}

func (a *application) verifyMail() {
	ctx, cancel := context.WithTimeout(context.Background(), smtpVerifyTimeout)
	defer cancel()
	if err := a.mail.Verify(ctx); err != nil {
		a.log.Warn("SMTP verify failed", zap.String("host", a.cfg.SMTP.Host), zap.Error(err))
		return
	}
	a.log.Info("SMTP transporter ready", zap.String("host", a.cfg.SMTP.Host))
}

// close waits for background mail and releases connections.
func (a *application) close() {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			a.log.Warn("Failed to close RabbitMQ client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.log.Warn("Failed to close database", zap.Error(err))
		}
	}
}
