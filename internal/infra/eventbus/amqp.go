package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-shortlink/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	errPublishNacked    = errors.New("broker nacked publish")
	errDeliveriesClosed = errors.New("delivery channel closed")
)

// Compile-time interface checks
var (
	_ Publisher     = (*AMQPPublisher)(nil)
	_ Subscriber    = (*AMQPSubscriber)(nil)
	_ QueueDeclarer = (*Connection)(nil)
)

// AMQPPublisher publishes persistent messages through a confirm-mode channel.
type AMQPPublisher struct {
	conn *Connection

	mu       sync.Mutex
	ch       *amqp.Channel
	declared map[string]bool
}

// NewAMQPPublisher creates a publisher on conn.
func NewAMQPPublisher(conn *Connection) *AMQPPublisher {
	return &AMQPPublisher{conn: conn}
}

// Publish sends msg to queue through the default exchange and waits for the broker
// confirm.
func (p *AMQPPublisher) Publish(ctx context.Context, queue string, msg Message) error {
	const op = "eventbus.AMQPPublisher.Publish"

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(queue)
	if err != nil {
		return err
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    ts,
		Body:         msg.Body,
	})
	if err != nil {
		p.reset()
		return domain.Transient(op, err)
	}

	select {
	case <-conf.Done():
		if !conf.Acked() {
			return domain.Transient(op, errPublishNacked)
		}
		return nil
	case <-ctx.Done():
		p.reset()
		return domain.Transient(op, ctx.Err())
	}
}

// channel returns the cached confirm-mode channel, opening one if needed. Caller holds mu.
func (p *AMQPPublisher) channel(queue string) (*amqp.Channel, error) {
	const op = "eventbus.AMQPPublisher.channel"

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return nil, err
		}
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			return nil, domain.Transient(op, err)
		}
		p.ch = ch
		p.declared = make(map[string]bool)
	}

	if !p.declared[queue] {
		if err := declareQueue(p.ch, queue, p.conn.cfg.DeadLetter); err != nil {
			p.reset()
			return nil, domain.Transient(op, err)
		}
		p.declared[queue] = true
	}

	return p.ch, nil
}

// reset drops the cached channel so the next publish opens a fresh one. Caller holds mu.
func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		p.ch.Close()
	}
	p.ch = nil
}

// Close closes the cached channel.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// AMQPSubscriber consumes a durable queue with manual acknowledgement.
type AMQPSubscriber struct {
	conn   *Connection
	logger *zap.Logger
}

// NewAMQPSubscriber creates a subscriber on conn.
func NewAMQPSubscriber(conn *Connection, logger *zap.Logger) *AMQPSubscriber {
	return &AMQPSubscriber{conn: conn, logger: logger}
}

// Consume calls handler for each delivery until ctx is done. When the channel or
// connection drops it waits the reconnect delay and resumes; unacknowledged
// messages are redelivered by the broker.
func (s *AMQPSubscriber) Consume(ctx context.Context, queue string, handler Handler) error {
	for {
		err := s.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Warn("consumer interrupted, resuming",
			zap.String("queue", queue),
			zap.Duration("retry_in", s.conn.cfg.ReconnectDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.conn.cfg.ReconnectDelay):
		}
	}
}

func (s *AMQPSubscriber) consumeOnce(ctx context.Context, queue string, handler Handler) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareQueue(ch, queue, s.conn.cfg.DeadLetter); err != nil {
		return err
	}
	if err := ch.Qos(s.conn.cfg.Prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	s.logger.Info("consuming", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			handler(ctx, &amqpDelivery{d: d})
		}
	}
}

type amqpDelivery struct {
	d amqp.Delivery
}

func (a *amqpDelivery) ID() string        { return a.d.MessageId }
func (a *amqpDelivery) Body() []byte      { return a.d.Body }
func (a *amqpDelivery) Redelivered() bool { return a.d.Redelivered }
func (a *amqpDelivery) Ack() error        { return a.d.Ack(false) }

func (a *amqpDelivery) Reject(requeue bool) error {
	return a.d.Reject(requeue)
}
