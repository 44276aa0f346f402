package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"greenhouse/backend/services/telemetry-service/internal/decoder"
	"greenhouse/backend/services/telemetry-service/internal/gate"
	"greenhouse/backend/services/telemetry-service/internal/latest"
	"greenhouse/backend/services/telemetry-service/internal/metrics"
	"greenhouse/backend/services/telemetry-service/internal/models"
	"greenhouse/backend/services/telemetry-service/internal/repository"
)

type fakeStore struct {
	mu     sync.Mutex
	rows   []models.Measurement
	err    error
	nextID int64
}

func (s *fakeStore) Insert(_ context.Context, m *models.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	m.ID = s.nextID
	s.rows = append(s.rows, *m)
	return nil
}

func (s *fakeStore) inserted() []models.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Measurement(nil), s.rows...)
}

type fakePublisher struct {
	published []models.Measurement
}

func (p *fakePublisher) Publish(m models.Measurement) { p.published = append(p.published, m) }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestPipeline(store Store, interval time.Duration) (*Pipeline, *clock, *latest.MemoryStore, *fakePublisher) {
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := latest.NewMemoryStore(0)
	pub := &fakePublisher{}
	p := NewPipeline(PipelineDeps{
		Store:   store,
		Gate:    gate.New(interval, gate.ScopeDevice),
		Latest:  cache,
		Live:    pub,
		Metrics: metrics.NewIngest(),
		Logger:  zap.NewNop(),
	})
	p.now = c.Now
	return p, c, cache, pub
}

func TestHandleStoresValidPayload(t *testing.T) {
	store := &fakeStore{}
	p, c, cache, pub := newTestPipeline(store, time.Minute)
	invoked := c.now

	m, outcome, err := p.Handle(context.Background(), SourceMQTT, "greenhouse/gh-1", []byte(`{"device_id":"gh-1","air_temp":21.5,"soil":"n/a"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)

	rows := store.inserted()
	require.Len(t, rows, 1)
	assert.Equal(t, "gh-1", rows[0].DeviceID)
	assert.False(t, rows[0].Time.Before(invoked))
	require.NotNil(t, rows[0].AirTemp)
	assert.Nil(t, rows[0].Soil)
	assert.Equal(t, int64(1), m.ID)

	cached, err := cache.Get(context.Background(), "gh-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(1), cached.ID)
	require.Len(t, pub.published, 1)
}

func TestHandleRejectsMalformedWithoutStorage(t *testing.T) {
	store := &fakeStore{}
	p, _, _, pub := newTestPipeline(store, time.Minute)

	for _, payload := range []string{`{"air_temp":21}`, `[1,2,3]`, ``, `not json`} {
		_, outcome, err := p.Handle(context.Background(), SourceMQTT, "greenhouse/x", []byte(payload))
		assert.Equal(t, OutcomeRejected, outcome, payload)
		assert.ErrorIs(t, err, decoder.ErrMalformedPayload, payload)
	}
	assert.Empty(t, store.inserted())
	assert.Empty(t, pub.published)
}

func TestHandleGatesBySpacing(t *testing.T) {
	store := &fakeStore{}
	p, c, _, _ := newTestPipeline(store, 60*time.Second)
	start := c.now
	payload := []byte(`{"device_id":"gh-1","air_temp":20}`)

	outcomes := []Outcome{}
	for _, offset := range []time.Duration{0, 30 * time.Second, 61 * time.Second} {
		c.now = start.Add(offset)
		_, outcome, _ := p.Handle(context.Background(), SourceMQTT, "greenhouse/gh-1", payload)
		outcomes = append(outcomes, outcome)
	}

	assert.Equal(t, []Outcome{OutcomeStored, OutcomeGated, OutcomeStored}, outcomes)
	rows := store.inserted()
	require.Len(t, rows, 2)
	assert.Equal(t, start, rows[0].Time)
	assert.Equal(t, start.Add(61*time.Second), rows[1].Time)
}

func TestHandleGatedReturnsRateLimited(t *testing.T) {
	p, _, _, _ := newTestPipeline(&fakeStore{}, time.Minute)
	payload := []byte(`{"device_id":"gh-1"}`)

	_, _, err := p.Handle(context.Background(), SourceHTTP, "", payload)
	require.NoError(t, err)
	_, _, err = p.Handle(context.Background(), SourceHTTP, "", payload)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestHandleStorageFailureIsReported(t *testing.T) {
	store := &fakeStore{err: errors.Join(repository.ErrStorageUnavailable, errors.New("dial tcp: refused"))}
	p, _, cache, pub := newTestPipeline(store, time.Minute)

	_, outcome, err := p.Handle(context.Background(), SourceMQTT, "greenhouse/gh-1", []byte(`{"device_id":"gh-1"}`))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	all, _ := cache.All(context.Background())
	assert.Empty(t, all)
	assert.Empty(t, pub.published)
}

func TestHandleMessageNeverPanicsOnGarbage(t *testing.T) {
	store := &fakeStore{}
	p, _, _, _ := newTestPipeline(store, time.Minute)

	assert.NotPanics(t, func() {
		p.HandleMessage(context.Background(), "greenhouse/x", []byte{0xff, 0x00})
		p.HandleMessage(context.Background(), "greenhouse/x", []byte(`{"device_id":"gh-9"}`))
	})
	assert.Len(t, store.inserted(), 1)
}

func TestSubscriberFeedsPipeline(t *testing.T) {
	store := &fakeStore{}
	p, _, _, _ := newTestPipeline(store, time.Minute)

	session := newFakeSession()
	broker := newFakeBroker(session)
	sub := NewSubscriber(broker.dial, p.HandleMessage, SubscriberConfig{Topic: "greenhouse/#", Backoff: 10 * time.Millisecond}, zap.NewNop())
	startSubscriber(t, sub)

	waitSession(t, broker)
	require.Eventually(t, sub.Connected, time.Second, 5*time.Millisecond)

	session.deliver("greenhouse/gh-1", `{"device_id":"gh-1","light":900}`)
	session.deliver("greenhouse/gh-1", `{"device_id":"gh-1","light":901}`)
	session.deliver("greenhouse/gh-2", `{"air_temp":1}`)

	rows := store.inserted()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Light)
	assert.InDelta(t, 900, *rows[0].Light, 1e-9)
}

func TestHandleLogsSamplesWithoutReadings(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewPipeline(PipelineDeps{
		Store:   &fakeStore{},
		Gate:    gate.New(0, gate.ScopeDevice),
		Metrics: metrics.NewIngest(),
		Logger:  zap.New(core),
	})

	_, _, err := p.Handle(context.Background(), SourceHTTP, "", []byte(`{"device_id":"gh-1"}`))
	require.NoError(t, err)
	_, _, err = p.Handle(context.Background(), SourceHTTP, "", []byte(`{"device_id":"gh-1","soil":40}`))
	require.NoError(t, err)

	stored := logs.FilterMessage("stored measurement").All()
	require.Len(t, stored, 2)
	assert.Equal(t, true, stored[0].ContextMap()["no_readings"])
	assert.Equal(t, false, stored[1].ContextMap()["no_readings"])
}
