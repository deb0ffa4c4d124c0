// Package ingestor consumes click events from the event channel and persists them
// as click records. Each delivery is acknowledged only after its record is stored;
// payloads that can never be stored are discarded, infrastructure failures are
// requeued.
package ingestor

import (
	"context"
	"errors"
	"time"

	"go-shortlink/internal/domain"
	"go-shortlink/internal/infra/eventbus"
	"go-shortlink/internal/infra/metrics"
	"go-shortlink/internal/shared/events"

	"go.uber.org/zap"
)

const (
	defaultRequeueDelay   = time.Second
	defaultPersistTimeout = 5 * time.Second
)

// ClickWriter persists click records.
type ClickWriter interface {
	Insert(ctx context.Context, record *domain.ClickRecord) (string, error)
}

// Enricher fills derived click attributes.
type Enricher interface {
	Enrich(record *domain.ClickRecord)
}

// Config tunes settlement.
type Config struct {
	// RequeueDelay is waited before a requeue so a failing store is not hammered.
	RequeueDelay   time.Duration
	PersistTimeout time.Duration
}

// Ingestor runs the ingestion state machine over deliveries.
type Ingestor struct {
	store    ClickWriter
	enricher Enricher
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an Ingestor. enricher may be nil.
func New(store ClickWriter, enricher Enricher, cfg Config, logger *zap.Logger) *Ingestor {
	if cfg.RequeueDelay <= 0 {
		cfg.RequeueDelay = defaultRequeueDelay
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	return &Ingestor{
		store:    store,
		enricher: enricher,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "ingestor")),
		now:      time.Now,
	}
}

// Run consumes queue until ctx is done.
func (i *Ingestor) Run(ctx context.Context, sub eventbus.Subscriber, queue string) error {
	i.logger.Info("ingestor consuming", zap.String("queue", queue))
	err := sub.Consume(ctx, queue, i.Handle)
	i.logger.Info("ingestor stopped", zap.String("queue", queue))
	return err
}

// Handle processes d and settles it according to the outcome.
func (i *Ingestor) Handle(ctx context.Context, d eventbus.Delivery) {
	start := i.now()
	outcome := i.Process(ctx, d)

	var settleErr error
	switch outcome.State {
	case StateAcked:
		settleErr = d.Ack()
	case StateRejectedDiscard:
		settleErr = d.Reject(false)
	case StateRejectedRequeue:
		select {
		case <-ctx.Done():
		case <-time.After(i.cfg.RequeueDelay):
		}
		settleErr = d.Reject(true)
	}

	metrics.IngestOutcomesTotal.WithLabelValues(outcome.label()).Inc()
	metrics.IngestDuration.Observe(i.now().Sub(start).Seconds())

	fields := []zap.Field{
		zap.String("message_id", d.ID()),
		zap.String("event_id", outcome.EventID),
		zap.String("short_code", outcome.ShortCode),
		zap.String("outcome", outcome.label()),
		zap.Bool("redelivered", d.Redelivered()),
	}
	if settleErr != nil {
		// The broker redelivers unsettled messages once the channel closes.
		i.logger.Error("failed to settle delivery", append(fields, zap.Error(settleErr))...)
	}

	switch outcome.State {
	case StateAcked:
		i.logger.Debug("click event persisted", fields...)
	case StateRejectedDiscard:
		i.logger.Warn("click event discarded",
			append(fields, zap.Stringer("stage", outcome.Stage), zap.Error(outcome.Err))...)
	case StateRejectedRequeue:
		i.logger.Warn("click event requeued",
			append(fields, zap.Stringer("stage", outcome.Stage), zap.Error(outcome.Err))...)
	}
}

// Process runs d through Receiving, Validating and Persisting and returns the
// terminal outcome. It does not settle d.
func (i *Ingestor) Process(ctx context.Context, d eventbus.Delivery) Outcome {
	out := Outcome{State: StateIdle}

	out.Stage = StateReceiving
	evt, err := events.DecodeClickEvent(d.Body())
	if err != nil {
		return out.reject(StateRejectedDiscard, err)
	}
	out.ShortCode = evt.ShortCode

	out.Stage = StateValidating
	record := normalize(d.ID(), evt)
	out.EventID = record.EventID
	if err := record.Validate(); err != nil {
		return out.reject(StateRejectedDiscard, domain.Permanent("ingestor.validate", err))
	}

	out.Stage = StatePersisting
	if i.enricher != nil {
		i.enricher.Enrich(record)
	}

	persistCtx, cancel := context.WithTimeout(ctx, i.cfg.PersistTimeout)
	defer cancel()

	_, err = i.store.Insert(persistCtx, record)
	switch {
	case err == nil:
		out.State = StateAcked
	case errors.Is(err, domain.ErrDuplicateRecord):
		out.State = StateAcked
		out.Duplicate = true
	case errors.Is(err, domain.ErrPermanentData):
		return out.reject(StateRejectedDiscard, err)
	default:
		return out.reject(StateRejectedRequeue, err)
	}
	return out
}

func (o Outcome) reject(state State, err error) Outcome {
	o.State = state
	o.Err = err
	return o
}

// normalize maps the wire event to a click record. Blank and "unknown" optional
// fields become null. The message id is the dedupe key when the publisher set a
// usable one.
func normalize(messageID string, evt events.ClickEvent) *domain.ClickRecord {
	record := &domain.ClickRecord{
		ShortCode:      evt.ShortCode,
		OccurredAt:     evt.Timestamp.UTC(),
		IPAddress:      domain.NormalizeOptional(evt.IPAddress),
		UserAgent:      domain.NormalizeOptional(evt.UserAgent),
		Referer:        domain.NormalizeOptional(evt.Referer),
		DestinationURL: domain.NormalizeOptional(evt.DestinationURL),
	}
	record.EventID = messageID
	if record.EventID == "" || len(record.EventID) > domain.MaxEventIDLength {
		record.EventID = domain.DeriveEventID(record.ShortCode, record.OccurredAt, record.IPAddress, record.UserAgent)
	}
	return record
}
