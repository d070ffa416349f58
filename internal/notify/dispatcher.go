package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"veloce/internal/apperrors"
	"veloce/internal/models"

	"go.uber.org/zap"
)

// sendTimeout bounds a single notification, including the wait for a busy
// transport.
const sendTimeout = 30 * time.Second

// Dispatcher addresses notifications to the operator and hands them to a
// Sender. Order notifications are fire-and-forget; contact notifications are
// delivered synchronously so the caller can report a transport failure.
type Dispatcher struct {
	sender   Sender
	from     string
	operator string
	log      *zap.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A nil sender behaves like an
// unconfigured transport.
func NewDispatcher(sender Sender, from, operator string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, from: from, operator: operator, log: log}
}

// OrderPlaced sends the order notification in the background. Failures are
// logged and dropped; they never reach the caller.
func (d *Dispatcher) OrderPlaced(order models.Order) {
	msg, err := OrderMessage(d.from, d.operator, order)
	if err != nil {
		d.log.Error("Failed to build order email", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		err := d.send(ctx, msg)
		switch {
		case errors.Is(err, ErrNotConfigured):
			d.log.Info("[EMAIL NOTICE] SMTP credentials not set, skipping order email",
				zap.Int64("order_id", order.ID), zap.String("subject", msg.Subject), zap.String("body", msg.Text))
		case err != nil:
			d.log.Error("Email send failed", zap.Int64("order_id", order.ID), zap.Error(err))
		default:
			d.log.Info("Order email sent", zap.Int64("order_id", order.ID))
		}
	}()
}

// Contact mails a contact-form submission. It reports whether the message was
// delivered; an unconfigured transport is not an error, a failed send is.
func (d *Dispatcher) Contact(ctx context.Context, c models.ContactMessage) (bool, error) {
	msg, err := ContactMessage(d.from, d.operator, c)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	err = d.send(ctx, msg)
	if errors.Is(err, ErrNotConfigured) {
		d.log.Info("[EMAIL NOTICE] SMTP credentials not set, contact payload logged",
			zap.String("subject", msg.Subject), zap.String("reply_to", msg.ReplyTo), zap.String("body", msg.Text))
		return false, nil
	}
	if err != nil {
		d.log.Error("Email send failed", zap.String("subject", msg.Subject), zap.Error(err))
		return false, fmt.Errorf("%w: %w", apperrors.ErrNotification, err)
	}
	return true, nil
}

// Wait blocks until background sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	if d.sender == nil {
		return ErrNotConfigured
	}
	return d.sender.Send(ctx, msg)
}
