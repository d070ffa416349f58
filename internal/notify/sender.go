// Package notify delivers best-effort operator emails for placed orders and
// contact-form submissions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"veloce/internal/config"

	"github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned by a Sender that has no mail transport.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through an SMTP server. The underlying client is built on
// first use and reused afterwards. Sends are serialised over it; a caller
// waiting for the transport gives up when its context is done.
type SMTPSender struct {
	cfg config.SMTPConfig

	mu     sync.Mutex
	client *mail.Client
	// busy holds a token while a connection is in use.
	busy chan struct{}
}

// NewSMTPSender returns a sender for cfg. No connection is made.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, busy: make(chan struct{}, 1)}
}

// Configured reports whether credentials are present.
func (s *SMTPSender) Configured() bool {
	return s.cfg.Configured()
}

// Active reports whether the client has been built.
func (s *SMTPSender) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Send delivers msg, building the client if this is the first send.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	c, err := s.getClient()
	if err != nil {
		return err
	}
	m, err := buildMsg(msg)
	if err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// Verify dials the server and authenticates without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	c, err := s.getClient()
	if err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("failed to verify SMTP transport: %w", err)
	}
	return c.Close()
}

func (s *SMTPSender) acquire(ctx context.Context) error {
	select {
	case s.busy <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail transport busy: %w", ctx.Err())
	}
}

func (s *SMTPSender) release() {
	<-s.busy
}

func (s *SMTPSender) getClient() (*mail.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	if !s.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Pass),
	}
	if s.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	s.client = c
	return c, nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}
