package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// OrderEventsQueue is the durable queue order events are published to.
const OrderEventsQueue = "order_events"

// Event types.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the JSON body of a message on OrderEventsQueue.
type OrderEvent struct {
	Type       string          `json:"type"`
	OrderID    int64           `json:"order_id"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Customer   string          `json:"customer,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// channel is the subset of *amqp.Channel the client uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
	log     *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares OrderEventsQueue.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c, err := newClient(ch, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func newClient(ch channel, log *zap.Logger) (*Client, error) {
	if _, err := declareQueue(ch); err != nil {
		ch.Close()
		return nil, err
	}
	log.Info("RabbitMQ client connected", zap.String("queue", OrderEventsQueue))
	return &Client{channel: ch, log: log}, nil
}

func declareQueue(ch channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		OrderEventsQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", OrderEventsQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishOrderEvent publishes ev as a persistent JSON message.
func (c *Client) PublishOrderEvent(ev OrderEvent) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",               // default exchange
		OrderEventsQueue, // routing key: the queue name
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         ev.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}

	c.log.Debug("Order event published", zap.String("type", ev.Type), zap.Int64("order_id", ev.OrderID))
	return nil
}

// DecodeOrderEvent parses a message body published by PublishOrderEvent.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode order event: %w", err)
	}
	if ev.Type == "" || ev.OrderID == 0 {
		return ev, errors.New("order event is missing type or order_id")
	}
	return ev, nil
}

// ConsumeOrderEvents delivers every message on OrderEventsQueue to handler
// until the channel closes. Undecodable messages are dropped; handler errors
// requeue the message. The returned channel is closed when consumption stops.
func (c *Client) ConsumeOrderEvents(handler func(OrderEvent) error) (<-chan struct{}, error) {
	if c.channel == nil {
		return nil, errors.New("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel)
	if err != nil {
		return nil, err
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
	}()
	return done, nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(OrderEvent) error) {
	ev, err := DecodeOrderEvent(msg.Body)
	if err != nil {
		c.log.Warn("Dropping malformed order event", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.log.Error("Failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	if err := handler(ev); err != nil {
		c.log.Error("Error processing order event", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.log.Error("Failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.Error("Failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
	}
}

// LogOrderEvent returns a handler that records each event and succeeds.
func LogOrderEvent(log *zap.Logger) func(OrderEvent) error {
	return func(ev OrderEvent) error {
		log.Info("Order event",
			zap.String("type", ev.Type),
			zap.Int64("order_id", ev.OrderID),
			zap.String("status", ev.Status),
			zap.String("total", ev.Total.StringFixed(2)),
			zap.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	}
}
