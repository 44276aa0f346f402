package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"greenhouse/backend/services/telemetry-service/internal/latest"
	"greenhouse/backend/services/telemetry-service/internal/models"
	"greenhouse/backend/services/telemetry-service/internal/repository"
)

// DefaultLimit is used when the caller gives no limit.
const DefaultLimit = 1000

// ErrInvalidArgument is returned for bad query parameters.
var ErrInvalidArgument = repository.ErrInvalidArgument

// Repository is the storage used by the query service.
type Repository interface {
	Latest(ctx context.Context, deviceID string) (*models.Measurement, error)
	Recent(ctx context.Context, deviceID string, limit int) ([]models.Measurement, error)
	DistinctDevices(ctx context.Context) ([]string, error)
	LatestPerDevice(ctx context.Context, since time.Time) ([]models.Measurement, error)
}

// Reading is the API shape of one measurement.
type Reading struct {
	DeviceID  string   `json:"device_id,omitempty"`
	Time      string   `json:"time"`
	AirTemp   *float64 `json:"air_temp"`
	AirHum    *float64 `json:"air_hum"`
	AirPress  *float64 `json:"air_press"`
	Gas       *float64 `json:"gas"`
	WaterTemp *float64 `json:"water_temp"`
	Soil      *float64 `json:"soil"`
	Light     *float64 `json:"light"`
}

// NewReading shapes m for the API; time is RFC 3339 in UTC.
func NewReading(m models.Measurement, withDevice bool) Reading {
	r := Reading{
		Time:      m.Time.UTC().Format(time.RFC3339Nano),
		AirTemp:   m.AirTemp,
		AirHum:    m.AirHum,
		AirPress:  m.AirPress,
		Gas:       m.Gas,
		WaterTemp: m.WaterTemp,
		Soil:      m.Soil,
		Light:     m.Light,
	}
	if withDevice {
		r.DeviceID = m.DeviceID
	}
	return r
}

// QueryService serves the read path.
type QueryService struct {
	repo      Repository
	cache     latest.Store
	latestTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewQueryService returns service instance. cache may be nil.
func NewQueryService(repo Repository, cache latest.Store, latestTTL time.Duration, logger *zap.Logger) *QueryService {
	return &QueryService{
		repo:      repo,
		cache:     cache,
		latestTTL: latestTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// ParseLimit validates the limit query parameter. Blank means DefaultLimit.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", ErrInvalidArgument)
	}
	if n < repository.MinRecentLimit || n > repository.MaxRecentLimit {
		return 0, fmt.Errorf("%w: limit must be between %d and %d",
			ErrInvalidArgument, repository.MinRecentLimit, repository.MaxRecentLimit)
	}
	return n, nil
}

// Recent returns up to limit readings of deviceID, oldest first.
func (s *QueryService) Recent(ctx context.Context, deviceID string, limit int) ([]Reading, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidArgument)
	}
	rows, err := s.repo.Recent(ctx, deviceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Reading, 0, len(rows))
	for _, m := range rows {
		out = append(out, NewReading(m, false))
	}
	return out, nil
}

// Latest returns the newest reading of deviceID or nil. The cache is
// consulted first and refilled from storage on a miss.
func (s *QueryService) Latest(ctx context.Context, deviceID string) (*Reading, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidArgument)
	}

	if s.cache != nil {
		m, err := s.cache.Get(ctx, deviceID)
		if err != nil {
			s.logger.Warn("latest cache read failed", zap.String("device_id", deviceID), zap.Error(err))
		} else if m != nil {
			r := NewReading(*m, true)
			return &r, nil
		}
	}

	m, err := s.repo.Latest(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, *m); err != nil {
			s.logger.Warn("latest cache fill failed", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	r := NewReading(*m, true)
	return &r, nil
}

// Devices lists devices with stored readings.
func (s *QueryService) Devices(ctx context.Context) ([]string, error) {
	return s.repo.DistinctDevices(ctx)
}

// LatestAll maps every recently active device to its newest reading. It
// reads the cache and falls back to storage when the cache is unavailable.
func (s *QueryService) LatestAll(ctx context.Context) (map[string]Reading, error) {
	out := map[string]Reading{}
	if s.cache != nil {
		all, err := s.cache.All(ctx)
		if err == nil {
			for id, m := range all {
				out[id] = NewReading(m, true)
			}
			return out, nil
		}
		s.logger.Warn("latest cache scan failed, reading storage", zap.Error(err))
	}

	rows, err := s.repo.LatestPerDevice(ctx, s.now().Add(-s.latestTTL))
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.DeviceID] = NewReading(m, true)
	}
	return out, nil
}

// Warm loads the newest reading of every recently active device into the
// cache. Called once at startup.
func (s *QueryService) Warm(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	rows, err := s.repo.LatestPerDevice(ctx, s.now().Add(-s.latestTTL))
	if err != nil {
		return 0, err
	}
	var errs []error
	for _, m := range rows {
		if err := s.cache.Put(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return len(rows) - len(errs), errors.Join(errs...)
}
