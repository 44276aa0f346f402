package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"greenhouse/backend/services/telemetry-service/internal/decoder"
	"greenhouse/backend/services/telemetry-service/internal/metrics"
	"greenhouse/backend/services/telemetry-service/internal/models"
)

// Message sources.
const (
	SourceMQTT = "mqtt"
	SourceHTTP = "http"
)

// Outcome is what happened to one message.
type Outcome string

const (
	OutcomeStored   Outcome = "stored"
	OutcomeRejected Outcome = "rejected"
	OutcomeGated    Outcome = "gated"
	OutcomeFailed   Outcome = "failed"
)

// ErrRateLimited marks a sample dropped by the write gate.
var ErrRateLimited = errors.New("ingest: rate limited")

// Store persists measurements.
type Store interface {
	Insert(ctx context.Context, m *models.Measurement) error
}

// Gate decides whether a sample may be written.
type Gate interface {
	Admit(deviceID string, now time.Time) bool
}

// LatestWriter receives every stored measurement for the latest-reading cache.
type LatestWriter interface {
	Put(ctx context.Context, m models.Measurement) error
}

// Publisher receives every stored measurement for the live feed.
type Publisher interface {
	Publish(m models.Measurement)
}

// PipelineDeps are the collaborators of a Pipeline. Latest, Live and Metrics
// are optional.
type PipelineDeps struct {
	Store   Store
	Gate    Gate
	Latest  LatestWriter
	Live    Publisher
	Metrics *metrics.Ingest
	Logger  *zap.Logger
}

// Pipeline runs decode, gate and persist for one message at a time.
type Pipeline struct {
	store   Store
	gate    Gate
	latest  LatestWriter
	live    Publisher
	metrics *metrics.Ingest
	logger  *zap.Logger
	now     func() time.Time
}

// NewPipeline returns a pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:   deps.Store,
		gate:    deps.Gate,
		latest:  deps.Latest,
		live:    deps.Live,
		metrics: deps.Metrics,
		logger:  logger.Named("pipeline"),
		now:     time.Now,
	}
}

// Handle processes one message. Failures are logged and counted here; the
// returned error only lets synchronous callers such as POST /data pick a
// status code. Rejections wrap decoder.ErrMalformedPayload and gated samples
// return ErrRateLimited.
func (p *Pipeline) Handle(ctx context.Context, source, topic string, payload []byte) (*models.Measurement, Outcome, error) {
	draft, err := decoder.Decode(topic, payload)
	if err != nil {
		var rej *decoder.Rejection
		reason := "unknown"
		if errors.As(err, &rej) {
			reason = string(rej.Reason)
		}
		p.logger.Warn("rejected payload",
			zap.String("source", source),
			zap.String("topic", topic),
			zap.String("reason", reason),
			zap.Int("bytes", len(payload)),
			zap.Error(err))
		p.metrics.Rejection(reason)
		p.metrics.Message(source, string(OutcomeRejected))
		return nil, OutcomeRejected, err
	}

	if len(draft.Dropped) > 0 {
		p.logger.Warn("ignored non-numeric fields",
			zap.String("device_id", draft.DeviceID),
			zap.Strings("fields", draft.Dropped))
		p.metrics.DroppedFields(draft.Dropped)
	}

	now := p.now().UTC()
	if !p.gate.Admit(draft.DeviceID, now) {
		p.logger.Debug("sample gated", zap.String("source", source), zap.String("device_id", draft.DeviceID))
		p.metrics.Message(source, string(OutcomeGated))
		return nil, OutcomeGated, ErrRateLimited
	}

	m := draft.Measurement()
	m.Time = now

	start := time.Now()
	err = p.store.Insert(ctx, m)
	p.metrics.InsertDuration(time.Since(start))
	if err != nil {
		p.logger.Error("failed to store measurement",
			zap.String("source", source),
			zap.String("device_id", m.DeviceID),
			zap.Error(err))
		p.metrics.Message(source, string(OutcomeFailed))
		return nil, OutcomeFailed, err
	}

	p.metrics.Message(source, string(OutcomeStored))
	p.logger.Debug("stored measurement",
		zap.String("source", source),
		zap.String("device_id", m.DeviceID),
		zap.Int64("id", m.ID),
		zap.Bool("no_readings", m.Empty()))

	if p.latest != nil {
		if err := p.latest.Put(ctx, *m); err != nil {
			p.logger.Warn("failed to update latest reading", zap.String("device_id", m.DeviceID), zap.Error(err))
		}
	}
	if p.live != nil {
		p.live.Publish(*m)
	}
	return m, OutcomeStored, nil
}

// HandleMessage adapts Handle to the subscriber's callback signature.
func (p *Pipeline) HandleMessage(ctx context.Context, topic string, payload []byte) {
	_, _, _ = p.Handle(ctx, SourceMQTT, topic, payload)
}
