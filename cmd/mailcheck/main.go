// Command mailcheck verifies the configured SMTP transport and sends a test
// email to the operator address.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"veloce/internal/config"
	"veloce/internal/logger"
	"veloce/internal/notify"

	"go.uber.org/zap"
)

func main() {
	to := flag.String("to", "", "recipient address (default NOTIFY_EMAIL)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

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

	err = run(cfg, log, *to, *timeout)
	log.Sync() //nolint:errcheck
	if err != nil {
		fmt.Fprintf(os.Stderr, "mailcheck: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, to string, timeout time.Duration) error {
	recipient := to
	if recipient == "" {
		recipient = cfg.SMTP.NotifyEmail
	}

	sender := notify.NewSMTPSender(cfg.SMTP)
	if !sender.Configured() {
		return errors.New("SMTP_USER and SMTP_PASS must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("Verifying SMTP transport", zap.String("host", cfg.SMTP.Host), zap.Int("port", cfg.SMTP.Port), zap.Bool("secure", cfg.SMTP.Secure))
	if err := sender.Verify(ctx); err != nil {
		log.Error("SMTP verify failed", zap.Error(err))
		return err
	}

	err := sender.Send(ctx, notify.Message{
		From:    cfg.SMTP.From,
		To:      recipient,
		Subject: "Veloce SMTP test",
		Text:    "This is a test email from the Veloce storefront.",
		HTML:    "<p>This is a test email from the Veloce storefront.</p>",
	})
	if err != nil {
		log.Error("Test email failed", zap.Error(err))
		return err
	}
	log.Info("Test email sent", zap.String("to", recipient))
	return nil
}
