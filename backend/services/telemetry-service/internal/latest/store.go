// Package latest keeps the most recent measurement of every device for the
// dashboard endpoints.
package latest

import (
	"context"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

// Store holds one measurement per device. Entries expire after the store's TTL.
type Store interface {
	// Put keeps m unless the device already has a newer live entry.
	Put(ctx context.Context, m models.Measurement) error
	// Get returns nil when the device has no live entry.
	Get(ctx context.Context, deviceID string) (*models.Measurement, error)
	All(ctx context.Context) (map[string]models.Measurement, error)
}

// newer reports whether a was written after b. Rows written in the same
// instant are ordered by id.
func newer(a, b models.Measurement) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.After(b.Time)
	}
	return a.ID > b.ID
}
