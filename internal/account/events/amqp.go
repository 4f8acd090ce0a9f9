package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"
)

// Channel is the subset of *amqp.Channel used by the relay.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPRelay republishes hub events to a fanout exchange, routed by kind.
type AMQPRelay struct {
	Hub      *Hub
	Channel  Channel
	Exchange string
	Logger   *slog.Logger

	conn   *amqp.Connection
	cancel func()
	doneCh chan struct{}
}

// DialAMQP connects to url, retrying a few times, and declares exchange as
// a durable fanout exchange.
func DialAMQP(url, exchange string, retries int, delay time.Duration) (*amqp.Connection, *amqp.Channel, error) {
	const op = "events.DialAMQP"

	var conn *amqp.Connection
	var err error
	for range max(retries, 1) {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(delay)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, ch, nil
}

// NewAMQPRelay dials url and returns a relay ready to Start.
func NewAMQPRelay(hub *Hub, url, exchange string, logger *slog.Logger) (*AMQPRelay, error) {
	conn, ch, err := DialAMQP(url, exchange, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &AMQPRelay{Hub: hub, Channel: ch, Exchange: exchange, Logger: logger, conn: conn}, nil
}

// Start subscribes to every audience and forwards in the background.
func (r *AMQPRelay) Start() {
	events, cancel := r.Hub.Subscribe(AllAudiences)
	r.cancel = cancel
	r.doneCh = make(chan struct{})

	go func() {
		defer close(r.doneCh)
		for e := range events {
			if err := r.publish(e); err != nil {
				r.Logger.Error("failed to relay event",
					slog.String("kind", string(e.Kind)),
					slog.Any("error", err),
				)
			}
		}
	}()
	r.Logger.Info("amqp event relay started", slog.String("exchange", r.Exchange))
}

func (r *AMQPRelay) publish(e Event) error {
	const op = "events.AMQPRelay.publish"
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.Channel.Publish(
		r.Exchange,
		string(e.Kind),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    e.ID,
			Timestamp:    e.At,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop drains the subscription and closes the channel and connection.
func (r *AMQPRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.doneCh
	}
	_ = r.Channel.Close()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.Logger.Info("amqp event relay stopped")
}
