package ingestor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-shortlink/internal/domain"
	"go-shortlink/internal/infra/eventbus"
	"go-shortlink/internal/infra/metrics"
	"go-shortlink/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validPayload = `{
	"shortCode": "abc1234",
	"timestamp": "2026-04-01T10:00:00Z",
	"ipAddress": "203.0.113.9",
	"userAgent": "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
	"referer": "unknown",
	"destinationUrl": "https://example.com/landing"
}`

type fakeDelivery struct {
	id          string
	body        []byte
	redelivered bool

	mu       sync.Mutex
	acked    bool
	rejected bool
	requeued bool
}

func newDelivery(id, body string) *fakeDelivery {
	return &fakeDelivery{id: id, body: []byte(body)}
}

func (d *fakeDelivery) ID() string        { return d.id }
func (d *fakeDelivery) Body() []byte      { return d.body }
func (d *fakeDelivery) Redelivered() bool { return d.redelivered }

func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *fakeDelivery) Reject(requeue bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejected = true
	d.requeued = requeue
	return nil
}

type stubEnricher struct{}

func (stubEnricher) Enrich(r *domain.ClickRecord) {
	r.CountryCode = "US"
	r.DeviceType = "Mobile"
	r.TrafficSource = "Direct"
}

func newIngestor(store ClickWriter) *Ingestor {
	return New(store, stubEnricher{}, Config{RequeueDelay: time.Millisecond}, zap.NewNop())
}

func TestProcess_ValidEvent_PersistsAndAcks(t *testing.T) {
	// Arrange
	store := new(testutil.MockClickStore)
	var stored *domain.ClickRecord
	store.On("Insert", mock.Anything, mock.AnythingOfType("*domain.ClickRecord")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.ClickRecord) }).
		Return("rec-1", nil).Once()
	sut := newIngestor(store)

	// Act
	out := sut.Process(context.Background(), newDelivery("msg-1", validPayload))

	// Assert
	assert.Equal(t, StateAcked, out.State)
	assert.Equal(t, StatePersisting, out.Stage)
	assert.False(t, out.Duplicate)
	assert.NoError(t, out.Err)
	assert.Equal(t, "msg-1", out.EventID)
	require.NotNil(t, stored)
	assert.Equal(t, "msg-1", stored.EventID)
	assert.Equal(t, "abc1234", stored.ShortCode)
	assert.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), stored.OccurredAt)
	assert.Nil(t, stored.Referer, "unknown sentinel becomes null")
	assert.Equal(t, "203.0.113.9", *stored.IPAddress)
	assert.Equal(t, "Mobile", stored.DeviceType)
	store.AssertExpectations(t)
}

func TestProcess_WithoutMessageID_DerivesEventID(t *testing.T) {
	// Arrange
	store := new(testutil.MockClickStore)
	store.On("Insert", mock.Anything, mock.Anything).Return("rec-1", nil)
	sut := newIngestor(store)

	// Act
	first := sut.Process(context.Background(), newDelivery("", validPayload))
	second := sut.Process(context.Background(), newDelivery("", validPayload))

	// Assert
	require.Equal(t, StateAcked, first.State)
	assert.NotEmpty(t, first.EventID)
	assert.Equal(t, first.EventID, second.EventID)
}

func TestProcess_MalformedPayload_Discards(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `not json`},
		{name: "json array", body: `[1,2,3]`},
		{name: "wrong field type", body: `{"shortCode": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			store := new(testutil.MockClickStore)
			sut := newIngestor(store)

			// Act
			out := sut.Process(context.Background(), newDelivery("m", tt.body))

			// Assert
			assert.Equal(t, StateRejectedDiscard, out.State)
			assert.Equal(t, StateReceiving, out.Stage)
			assert.ErrorIs(t, out.Err, domain.ErrPermanentData)
			store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestProcess_InvalidRecord_Discards(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing short code", body: `{"timestamp":"2026-04-01T10:00:00Z"}`},
		{name: "short code too short", body: `{"shortCode":"ab","timestamp":"2026-04-01T10:00:00Z"}`},
		{name: "missing timestamp", body: `{"shortCode":"abc1234"}`},
		{name: "bad ip", body: `{"shortCode":"abc1234","timestamp":"2026-04-01T10:00:00Z","ipAddress":"999.1.1.1"}`},
		{name: "bad destination", body: `{"shortCode":"abc1234","timestamp":"2026-04-01T10:00:00Z","destinationUrl":"ftp://x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			store := new(testutil.MockClickStore)
			sut := newIngestor(store)

			// Act
			out := sut.Process(context.Background(), newDelivery("m", tt.body))

			// Assert
			assert.Equal(t, StateRejectedDiscard, out.State)
			assert.Equal(t, StateValidating, out.Stage)
			assert.ErrorIs(t, out.Err, domain.ErrPermanentData)
			store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestProcess_StoreErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantState     State
		wantDuplicate bool
	}{
		{name: "duplicate is acked", err: domain.ErrDuplicateRecord, wantState: StateAcked, wantDuplicate: true},
		{name: "permanent is discarded", err: domain.Permanent("store", errors.New("check violation")), wantState: StateRejectedDiscard},
		{name: "transient is requeued", err: domain.Transient("store", errors.New("connection refused")), wantState: StateRejectedRequeue},
		{name: "unclassified is requeued", err: errors.New("boom"), wantState: StateRejectedRequeue},
		{name: "timeout is requeued", err: context.DeadlineExceeded, wantState: StateRejectedRequeue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			store := new(testutil.MockClickStore)
			store.On("Insert", mock.Anything, mock.Anything).Return("", tt.err).Once()
			sut := newIngestor(store)

			// Act
			out := sut.Process(context.Background(), newDelivery("m", validPayload))

			// Assert
			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, StatePersisting, out.Stage)
			assert.Equal(t, tt.wantDuplicate, out.Duplicate)
		})
	}
}

func TestHandle_SettlesPerOutcome(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		storeErr     error
		wantAcked    bool
		wantRejected bool
		wantRequeued bool
	}{
		{name: "persisted", body: validPayload, wantAcked: true},
		{name: "malformed", body: `{oops`, wantRejected: true},
		{name: "transient", body: validPayload, storeErr: domain.Transient("store", errors.New("down")), wantRejected: true, wantRequeued: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			store := new(testutil.MockClickStore)
			store.On("Insert", mock.Anything, mock.Anything).Return("rec", tt.storeErr).Maybe()
			sut := newIngestor(store)
			d := newDelivery("m", tt.body)

			// Act
			sut.Handle(context.Background(), d)

			// Assert
			assert.Equal(t, tt.wantAcked, d.acked)
			assert.Equal(t, tt.wantRejected, d.rejected)
			assert.Equal(t, tt.wantRequeued, d.requeued)
		})
	}
}

func TestHandle_RecordsOutcomeMetric(t *testing.T) {
	// Arrange
	store := new(testutil.MockClickStore)
	sut := newIngestor(store)
	counter := metrics.IngestOutcomesTotal.WithLabelValues("rejected_discard")
	before := promtestutil.ToFloat64(counter)

	// Act
	sut.Handle(context.Background(), newDelivery("m", `not json`))

	// Assert
	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateValidating.Terminal())
	assert.True(t, StateAcked.Terminal())
	assert.True(t, StateRejectedDiscard.Terminal())
	assert.True(t, StateRejectedRequeue.Terminal())
	assert.Equal(t, "rejected_requeue", StateRejectedRequeue.String())
}

// recordingStore collects persisted records and fails the first failures inserts.
type recordingStore struct {
	mu       sync.Mutex
	records  []*domain.ClickRecord
	failures int
}

func (s *recordingStore) Insert(_ context.Context, r *domain.ClickRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return "", domain.Transient("store", errors.New("database is locked"))
	}
	s.records = append(s.records, r)
	return r.EventID, nil
}

func (s *recordingStore) codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.ShortCode)
	}
	return out
}

func TestRun_PoisonMessageDoesNotBlockQueue(t *testing.T) {
	// Arrange
	bus := eventbus.NewEventBus(eventbus.NewZapLoggerAdapter(zap.NewNop()))
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := &recordingStore{}
	sut := newIngestor(store)
	go func() { _ = sut.Run(ctx, bus, "clicks") }()

	dead := make(chan eventbus.Delivery, 1)
	go func() {
		_ = bus.Consume(ctx, "clicks"+eventbus.DeadLetterSuffix, func(_ context.Context, d eventbus.Delivery) {
			_ = d.Ack()
			dead <- d
		})
	}()
	require.NoError(t, bus.WaitForSubscriber(ctx, "clicks"))
	require.NoError(t, bus.WaitForSubscriber(ctx, "clicks"+eventbus.DeadLetterSuffix))

	// Act
	require.NoError(t, bus.Publish(ctx, "clicks", eventbus.Message{ID: "poison", Body: []byte(`not json`)}))
	require.NoError(t, bus.Publish(ctx, "clicks", eventbus.Message{ID: "good", Body: []byte(validPayload)}))

	// Assert
	require.Eventually(t, func() bool { return len(store.codes()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"abc1234"}, store.codes())
	select {
	case d := <-dead:
		assert.Equal(t, "poison", d.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("poison message was not dead-lettered")
	}
}

func TestRun_TransientFailureIsRedeliveredAndPersisted(t *testing.T) {
	// Arrange
	bus := eventbus.NewEventBus(eventbus.NewZapLoggerAdapter(zap.NewNop()))
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := &recordingStore{failures: 2}
	sut := newIngestor(store)
	go func() { _ = sut.Run(ctx, bus, "clicks") }()
	require.NoError(t, bus.WaitForSubscriber(ctx, "clicks"))

	// Act
	require.NoError(t, bus.Publish(ctx, "clicks", eventbus.Message{ID: "retry", Body: []byte(validPayload)}))

	// Assert
	require.Eventually(t, func() bool { return len(store.codes()) == 1 }, 2*time.Second, 10*time.Millisecond)
}
