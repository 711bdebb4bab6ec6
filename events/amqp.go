/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange used when none is configured.
const DefaultExchange = "personstore"

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

var _ amqpChannel = (*amqp.Channel)(nil)

// amqpDialer opens a channel together with whatever owns it, usually the connection.
type amqpDialer func() (amqpChannel, io.Closer, error)

// AMQPPublisher publishes events to a durable topic exchange with the event type
// as routing key. Publisher confirms are not requested. When the broker closes
// the channel or the connection, the next Publish dials again.
type AMQPPublisher struct {
	mu       sync.Mutex
	dial     amqpDialer
	conn     io.Closer
	ch       amqpChannel
	closing  chan *amqp.Error
	exchange string
	closed   bool
}

var _ Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to url, opens a channel and declares the exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	return newAMQPPublisher(func() (amqpChannel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to open amqp channel: %w", err)
		}
		return ch, conn, nil
	}, exchange)
}

func newAMQPPublisher(dial amqpDialer, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &AMQPPublisher{dial: dial, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials, declares the exchange and starts watching for closure. Callers hold mu.
func (p *AMQPPublisher) connect() error {
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.ch, p.conn = ch, conn
	p.closing = ch.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// release closes the current channel and connection. Callers hold mu.
func (p *AMQPPublisher) release() error {
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	p.ch, p.conn, p.closing = nil, nil, nil
	return err
}

// broken reports whether the broker has closed the current channel.
func (p *AMQPPublisher) broken() bool {
	if p.ch == nil {
		return true
	}
	select {
	case <-p.closing:
		return true
	default:
		return false
	}
}

// Exchange returns the exchange name.
func (p *AMQPPublisher) Exchange() string {
	return p.exchange
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         payload,
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return amqp.ErrClosed
	}

	for attempt := 0; ; attempt++ {
		if p.broken() {
			_ = p.release()
			if err := p.connect(); err != nil {
				return fmt.Errorf("failed to reconnect to amqp broker: %w", err)
			}
		}
		err := p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
		if err == nil || attempt > 0 || !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		// closed between the check and the publish; the notification may not have arrived yet
		_ = p.release()
	}
}

// Close closes the channel and the connection. Later publishes fail with amqp.ErrClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.release()
}
