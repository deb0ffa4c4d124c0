package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-shortlink/internal/domain"
	"go-shortlink/pkg/retry"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("rabbitmq connection is not open")

// ConnectionConfig configures a RabbitMQ connection and the queues declared on it.
type ConnectionConfig struct {
	URL             string
	Name            string
	ReconnectDelay  time.Duration
	StartupAttempts int
	// DeadLetter routes rejected-and-discarded messages to "<queue>.dead".
	DeadLetter bool
	Prefetch   int
}

// Connection owns a RabbitMQ connection. A supervisor goroutine redials with a fixed
// delay whenever the broker drops it, until Close is called.
type Connection struct {
	cfg    ConnectionConfig
	logger *zap.Logger

	mu   sync.RWMutex
	conn *amqp.Connection

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Dial connects to RabbitMQ, retrying up to cfg.StartupAttempts times with
// cfg.ReconnectDelay between attempts, then starts the reconnect supervisor.
func Dial(ctx context.Context, cfg ConnectionConfig, logger *zap.Logger) (*Connection, error) {
	const op = "eventbus.Dial"

	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	c := &Connection{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "rabbitmq")),
	}

	if err := retry.Startup(ctx, c.logger, "rabbitmq", cfg.StartupAttempts, cfg.ReconnectDelay, c.connect); err != nil {
		return nil, domain.Transient(op, err)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.supervise()
	c.logger.Info("rabbitmq connected")

	return c, nil
}

func (c *Connection) connect(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat:  10 * time.Second,
		Properties: amqp.Table{"connection_name": c.cfg.Name},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Connection) supervise() {
	defer c.wg.Done()

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.ctx.Done():
			return
		case amqpErr := <-closed:
			if c.ctx.Err() != nil {
				return
			}
			fields := []zap.Field{zap.Duration("retry_in", c.cfg.ReconnectDelay)}
			if amqpErr != nil {
				fields = append(fields, zap.Error(amqpErr))
			}
			c.logger.Warn("rabbitmq connection lost, reconnecting", fields...)

			if err := retry.Forever(c.ctx, c.logger, "rabbitmq", c.cfg.ReconnectDelay, c.connect); err != nil {
				return
			}
			c.logger.Info("rabbitmq connection restored")
		}
	}
}

// IsConnected reports whether the underlying connection is currently open.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Channel opens a new channel on the current connection.
func (c *Connection) Channel() (*amqp.Channel, error) {
	const op = "eventbus.Connection.Channel"

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, domain.Transient(op, ErrNotConnected)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, domain.Transient(op, err)
	}
	return ch, nil
}

// DeclareDurableQueue declares name as a durable queue, with its dead-letter queue
// when configured.
func (c *Connection) DeclareDurableQueue(ctx context.Context, name string) error {
	const op = "eventbus.Connection.DeclareDurableQueue"

	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareQueue(ch, name, c.cfg.DeadLetter); err != nil {
		return domain.Transient(op, err)
	}
	return nil
}

// Close stops the supervisor and closes the connection.
func (c *Connection) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

func declareQueue(ch *amqp.Channel, name string, deadLetter bool) error {
	var args amqp.Table
	if deadLetter {
		dead := name + DeadLetterSuffix
		if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
			return err
		}
		args = amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dead,
		}
	}
	_, err := ch.QueueDeclare(name, true, false, false, false, args)
	return err
}
