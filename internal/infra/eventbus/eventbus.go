package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const timestampMetadataKey = "timestamp"

// Compile-time interface checks
var (
	_ Publisher     = (*EventBus)(nil)
	_ Subscriber    = (*EventBus)(nil)
	_ QueueDeclarer = (*EventBus)(nil)
)

// EventBus is an in-process event channel on Watermill Go channels. Nothing is
// retained: a message published while a topic has no subscriber is lost, so callers
// wait for WaitForSubscriber before publishing. A nacked message is redelivered to
// the same consumer.
type EventBus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu         sync.Mutex
	deliveries map[string]int
	subscribed map[string]chan struct{}
}

// NewEventBus creates a new in-process event bus.
func NewEventBus(logger watermill.LoggerAdapter) *EventBus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 100,
			Persistent:          false,
		},
		logger,
	)

	return &EventBus{
		pubsub:     pubsub,
		logger:     logger,
		deliveries: make(map[string]int),
		subscribed: make(map[string]chan struct{}),
	}
}

// DeclareDurableQueue is a no-op; Go channel topics exist on first use.
func (b *EventBus) DeclareDurableQueue(ctx context.Context, name string) error {
	return nil
}

// Publish publishes msg on the queue topic.
func (b *EventBus) Publish(ctx context.Context, queue string, msg Message) error {
	id := msg.ID
	if id == "" {
		id = watermill.NewUUID()
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	wm := message.NewMessage(id, msg.Body)
	wm.Metadata.Set(timestampMetadataKey, ts.Format(time.RFC3339Nano))
	return b.pubsub.Publish(queue, wm)
}

// Consume delivers queue messages to handler one at a time until ctx is done.
func (b *EventBus) Consume(ctx context.Context, queue string, handler Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, queue)
	if err != nil {
		return err
	}
	b.markSubscribed(queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handler(ctx, &busDelivery{
				bus:         b,
				queue:       queue,
				msg:         msg,
				redelivered: b.markDelivered(msg.UUID) > 1,
			})
		}
	}
}

// Close closes the event bus.
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}

// WaitForSubscriber blocks until a consumer has subscribed to queue or ctx is done.
func (b *EventBus) WaitForSubscriber(ctx context.Context, queue string) error {
	b.mu.Lock()
	ready := b.subscribedLocked(queue)
	b.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *EventBus) subscribedLocked(queue string) chan struct{} {
	ch, ok := b.subscribed[queue]
	if !ok {
		ch = make(chan struct{})
		b.subscribed[queue] = ch
	}
	return ch
}

func (b *EventBus) markSubscribed(queue string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.subscribedLocked(queue)
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (b *EventBus) markDelivered(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliveries[id]++
	return b.deliveries[id]
}

func (b *EventBus) forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.deliveries, id)
}

type busDelivery struct {
	bus         *EventBus
	queue       string
	msg         *message.Message
	redelivered bool
}

func (d *busDelivery) ID() string        { return d.msg.UUID }
func (d *busDelivery) Body() []byte      { return d.msg.Payload }
func (d *busDelivery) Redelivered() bool { return d.redelivered }

func (d *busDelivery) Ack() error {
	d.bus.forget(d.msg.UUID)
	d.msg.Ack()
	return nil
}

func (d *busDelivery) Reject(requeue bool) error {
	if requeue {
		d.msg.Nack()
		return nil
	}

	if err := d.bus.pubsub.Publish(d.queue+DeadLetterSuffix, d.msg.Copy()); err != nil {
		d.bus.logger.Error("failed to dead-letter message", err, watermill.LogFields{
			"uuid":  d.msg.UUID,
			"queue": d.queue,
		})
	}
	return d.Ack()
}
