package eventbus

import (
	"context"
	"time"
)

// DeadLetterSuffix names the queue that receives rejected-and-discarded messages.
const DeadLetterSuffix = ".dead"

// Message is a payload handed to a Publisher.
type Message struct {
	ID        string
	Body      []byte
	Timestamp time.Time
}

// Publisher enqueues messages on a durable queue. Publish returns once the broker
// has accepted the message.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
}

// Delivery is one received message. Exactly one of Ack or Reject must be called.
type Delivery interface {
	ID() string
	Body() []byte
	Redelivered() bool
	Ack() error
	// Reject with requeue=true returns the message to the queue for redelivery;
	// requeue=false drops it (dead-lettered when the queue has a dead-letter target).
	Reject(requeue bool) error
}

// Handler processes one delivery and settles it.
type Handler func(ctx context.Context, d Delivery)

// Subscriber consumes a queue until ctx is done, calling handler for each delivery
// in turn.
type Subscriber interface {
	Consume(ctx context.Context, queue string, handler Handler) error
}

// QueueDeclarer declares durable queues ahead of use.
type QueueDeclarer interface {
	DeclareDurableQueue(ctx context.Context, name string) error
}
