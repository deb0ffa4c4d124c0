package eventbus

import (
	"context"
	"sync"
	"time"

	"go-shortlink/internal/infra/metrics"
	"go-shortlink/internal/shared/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 1024
	defaultWorkers        = 1
	defaultPublishTimeout = 5 * time.Second
)

// ForwarderConfig sizes the publish queue.
type ForwarderConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

// Forwarder moves click events off the request path onto the event channel.
// Events wait in a bounded buffer; when it is full the incoming event is dropped.
// Publish failures are logged and counted, never retried.
type Forwarder struct {
	publisher Publisher
	queue     string
	cfg       ForwarderConfig
	logger    *zap.Logger

	events chan events.ClickEvent

	// mu makes the stopped check and the buffer send in Submit atomic with respect to Stop.
	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewForwarder creates a forwarder publishing to queue.
func NewForwarder(publisher Publisher, queue string, cfg ForwarderConfig, logger *zap.Logger) *Forwarder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	return &Forwarder{
		publisher: publisher,
		queue:     queue,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "click_forwarder")),
		events:    make(chan events.ClickEvent, cfg.QueueSize),
	}
}

// Submit enqueues evt without blocking. It returns false when the event was dropped.
func (f *Forwarder) Submit(evt events.ClickEvent) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.stopped {
		metrics.ClickEventsDropped.Inc()
		return false
	}

	select {
	case f.events <- evt:
		metrics.ClickQueueDepth.Inc()
		return true
	default:
		metrics.ClickEventsDropped.Inc()
		f.logger.Warn("click queue full, dropping event",
			zap.String("short_code", evt.ShortCode),
			zap.Int("queue_size", f.cfg.QueueSize),
		)
		return false
	}
}

// Start launches the publish workers.
func (f *Forwarder) Start(ctx context.Context) {
	f.ctx, f.cancel = context.WithCancel(ctx)
	for i := 0; i < f.cfg.Workers; i++ {
		f.wg.Add(1)
		go f.run()
	}
	f.logger.Info("click forwarder started",
		zap.String("queue", f.queue),
		zap.Int("workers", f.cfg.Workers),
	)
}

// Stop stops the workers and publishes whatever is still buffered.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()

	drained := 0
	for {
		select {
		case evt := <-f.events:
			f.publish(evt)
			drained++
		default:
			f.logger.Info("click forwarder stopped", zap.Int("drained", drained))
			return
		}
	}
}

func (f *Forwarder) run() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		case evt := <-f.events:
			f.publish(evt)
		}
	}
}

func (f *Forwarder) publish(evt events.ClickEvent) {
	metrics.ClickQueueDepth.Dec()

	body, err := evt.Encode()
	if err != nil {
		metrics.ClickEventsPublished.WithLabelValues("error").Inc()
		f.logger.Error("failed to encode click event", zap.String("short_code", evt.ShortCode), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.PublishTimeout)
	defer cancel()

	msg := Message{
		ID:        uuid.NewString(),
		Body:      body,
		Timestamp: evt.Timestamp,
	}
	if err := f.publisher.Publish(ctx, f.queue, msg); err != nil {
		metrics.ClickEventsPublished.WithLabelValues("error").Inc()
		f.logger.Error("failed to publish click event",
			zap.String("short_code", evt.ShortCode),
			zap.String("event_id", msg.ID),
			zap.Error(err),
		)
		return
	}

	metrics.ClickEventsPublished.WithLabelValues("ok").Inc()
	f.logger.Debug("published click event",
		zap.String("short_code", evt.ShortCode),
		zap.String("event_id", msg.ID),
	)
}
