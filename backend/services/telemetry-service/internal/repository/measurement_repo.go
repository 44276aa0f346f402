package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

// Bounds accepted by Recent.
const (
	MinRecentLimit = 1
	MaxRecentLimit = 5000
)

const defaultQueryTimeout = 5 * time.Second

const measurementColumns = `id, device_id, time, air_temp, air_hum, air_press, gas, water_temp, soil, light`

// MeasurementRepository persists and reads greenhouse samples. Every call
// takes a pooled connection for its own duration and is bounded by the
// configured query timeout.
type MeasurementRepository struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time
}

// NewMeasurementRepository returns repository.
func NewMeasurementRepository(db *sql.DB, timeout time.Duration) *MeasurementRepository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &MeasurementRepository{db: db, timeout: timeout, now: time.Now}
}

func (r *MeasurementRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Insert stores one sample. A zero Time is replaced with the current UTC
// time; the assigned id is written back into m.
func (r *MeasurementRepository) Insert(ctx context.Context, m *models.Measurement) error {
	if m == nil || strings.TrimSpace(m.DeviceID) == "" {
		return fmt.Errorf("insert measurement: %w: device_id is required", ErrInvalidArgument)
	}
	if m.Time.IsZero() {
		m.Time = r.now().UTC()
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO measurements (device_id, time, air_temp, air_hum, air_press, gas, water_temp, soil, light)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		m.DeviceID,
		m.Time,
		m.AirTemp,
		m.AirHum,
		m.AirPress,
		m.Gas,
		m.WaterTemp,
		m.Soil,
		m.Light,
	).Scan(&m.ID)
	return classify("insert measurement", err)
}

// Latest returns the newest sample of a device, or nil when it has none.
func (r *MeasurementRepository) Latest(ctx context.Context, deviceID string) (*models.Measurement, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + measurementColumns + `
		FROM measurements
		WHERE device_id = $1
		ORDER BY time DESC, id DESC
		LIMIT 1`

	m, err := scanMeasurement(r.db.QueryRowContext(ctx, query, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("latest measurement", err)
	}
	return m, nil
}

// Recent returns up to limit newest samples of a device, ordered oldest first.
func (r *MeasurementRepository) Recent(ctx context.Context, deviceID string, limit int) ([]models.Measurement, error) {
	if limit < MinRecentLimit || limit > MaxRecentLimit {
		return nil, fmt.Errorf("recent measurements: %w: limit %d outside [%d, %d]",
			ErrInvalidArgument, limit, MinRecentLimit, MaxRecentLimit)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + measurementColumns + `
		FROM measurements
		WHERE device_id = $1
		ORDER BY time DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, classify("recent measurements", err)
	}
	defer rows.Close()

	out := make([]models.Measurement, 0, limit)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, classify("recent measurements", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("recent measurements", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DistinctDevices lists every device that has stored samples, sorted.
func (r *MeasurementRepository) DistinctDevices(ctx context.Context) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `SELECT DISTINCT device_id FROM measurements ORDER BY device_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify("distinct devices", err)
	}
	defer rows.Close()

	devices := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classify("distinct devices", err)
		}
		devices = append(devices, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("distinct devices", err)
	}
	return devices, nil
}

// LatestPerDevice returns the newest sample of every device written after since.
func (r *MeasurementRepository) LatestPerDevice(ctx context.Context, since time.Time) ([]models.Measurement, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT DISTINCT ON (device_id) ` + measurementColumns + `
		FROM measurements
		WHERE time >= $1
		ORDER BY device_id, time DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, classify("latest per device", err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, classify("latest per device", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("latest per device", err)
	}
	return out, nil
}

// Ping checks that the database answers.
func (r *MeasurementRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return classify("ping", r.db.PingContext(ctx))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row scanner) (*models.Measurement, error) {
	var m models.Measurement
	err := row.Scan(
		&m.ID,
		&m.DeviceID,
		&m.Time,
		&m.AirTemp,
		&m.AirHum,
		&m.AirPress,
		&m.Gas,
		&m.WaterTemp,
		&m.Soil,
		&m.Light,
	)
	if err != nil {
		return nil, err
	}
	m.Time = m.Time.UTC()
	return &m, nil
}
