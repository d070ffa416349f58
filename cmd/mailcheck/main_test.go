package main

import (
	"testing"
	"time"

	"veloce/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRunRequiresCredentials(t *testing.T) {
	cfg := &config.Config{SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587}}
	err := run(cfg, zaptest.NewLogger(t), "", time.Second)
	assert.ErrorContains(t, err, "SMTP_USER and SMTP_PASS must be set")
}

func TestRunReportsVerifyFailure(t *testing.T) {
	cfg := &config.Config{SMTP: config.SMTPConfig{
		Host: "127.0.0.1", Port: 1, User: "u", Pass: "p",
		From: "shop@veloce.store", NotifyEmail: "ops@veloce.store",
	}}
	assert.Error(t, run(cfg, zaptest.NewLogger(t), "", 2*time.Second))
}
