package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"greenhouse/backend/services/account-service/internal/models"
)

// PlantRepository reads the plant catalogue.
type PlantRepository struct {
	conn
}

// NewPlantRepository returns repository instance.
func NewPlantRepository(db *sql.DB, timeout time.Duration) *PlantRepository {
	return &PlantRepository{conn: newConn(db, timeout)}
}

// List returns every plant ordered by name.
func (r *PlantRepository) List(ctx context.Context) ([]models.PlantSummary, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM plants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plants := []models.PlantSummary{}
	for rows.Next() {
		var p models.PlantSummary
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// Get fetches one plant with its ranges.
func (r *PlantRepository) Get(ctx context.Context, id int64) (*models.Plant, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT id, name, description,
		       air_temp_min, air_temp_max, air_hum_min, air_hum_max,
		       soil_min, soil_max, light_min, light_max
		FROM plants
		WHERE id = $1
	`
	var (
		p    models.Plant
		desc sql.NullString
		nums [8]sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &desc,
		&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6], &nums[7])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlantNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	targets := []**float64{&p.AirTempMin, &p.AirTempMax, &p.AirHumMin, &p.AirHumMax, &p.SoilMin, &p.SoilMax, &p.LightMin, &p.LightMax}
	for i, n := range nums {
		if n.Valid {
			v := n.Float64
			*targets[i] = &v
		}
	}
	return &p, nil
}
