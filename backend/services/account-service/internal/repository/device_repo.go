package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"greenhouse/backend/services/account-service/internal/models"
)

// DeviceRepository manages the one-device-per-user registry.
type DeviceRepository struct {
	conn
}

// NewDeviceRepository returns repository instance.
func NewDeviceRepository(db *sql.DB, timeout time.Duration) *DeviceRepository {
	return &DeviceRepository{conn: newConn(db, timeout)}
}

// Get returns the device registered by userID, or nil when there is none.
func (r *DeviceRepository) Get(ctx context.Context, userID int64) (*models.DeviceView, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT ud.device_name, ud.device_uid, p.id, p.name
		FROM user_devices ud
		LEFT JOIN plants p ON p.id = ud.plant_id
		WHERE ud.user_id = $1
	`
	var (
		view      models.DeviceView
		plantID   sql.NullInt64
		plantName sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&view.DeviceName, &view.DeviceUID, &plantID, &plantName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if plantID.Valid {
		view.PlantID = &plantID.Int64
	}
	if plantName.Valid {
		view.PlantName = &plantName.String
	}
	return &view, nil
}

// Upsert registers the device of d.UserID, replacing any previous one.
func (r *DeviceRepository) Upsert(ctx context.Context, d *models.UserDevice) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO user_devices (user_id, device_name, device_uid, plant_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			device_name = EXCLUDED.device_name,
			device_uid = EXCLUDED.device_uid,
			plant_id = EXCLUDED.plant_id
		RETURNING created_at
	`
	var plantID any
	if d.PlantID != nil {
		plantID = *d.PlantID
	}
	err := r.db.QueryRowContext(ctx, query, d.UserID, d.DeviceName, d.DeviceUID, plantID).Scan(&d.CreatedAt)
	if pgCode(err) == foreignKeyViolation {
		return fmt.Errorf("upsert device of user %d: %w", d.UserID, ErrUnknownReference)
	}
	return err
}

// Delete removes the device of userID. Deleting a missing row is not an error.
func (r *DeviceRepository) Delete(ctx context.Context, userID int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM user_devices WHERE user_id = $1`, userID)
	return err
}
