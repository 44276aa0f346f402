package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/models"
	"greenhouse/backend/services/account-service/internal/repository"
)

var (
	// ErrMissingDeviceUID is returned when a device is registered without an id.
	ErrMissingDeviceUID = errors.New("registry: deviceUid is required")
	// ErrUnknownReference is returned when the user or plant does not exist.
	ErrUnknownReference = errors.New("registry: unknown user or plant")
	// ErrPlantNotFound is returned for missing plants.
	ErrPlantNotFound = errors.New("registry: plant not found")
)

// DeviceRepository stores the device of each user.
type DeviceRepository interface {
	Get(ctx context.Context, userID int64) (*models.DeviceView, error)
	Upsert(ctx context.Context, d *models.UserDevice) error
	Delete(ctx context.Context, userID int64) error
}

// PlantRepository reads plant profiles.
type PlantRepository interface {
	List(ctx context.Context) ([]models.PlantSummary, error)
	Get(ctx context.Context, id int64) (*models.Plant, error)
}

// RegistryService manages user devices and the plant catalogue.
type RegistryService struct {
	devices DeviceRepository
	plants  PlantRepository
	logger  *zap.Logger
}

// NewRegistryService builds RegistryService.
func NewRegistryService(devices DeviceRepository, plants PlantRepository, logger *zap.Logger) *RegistryService {
	return &RegistryService{devices: devices, plants: plants, logger: logger}
}

// Device returns the device of userID or nil.
func (s *RegistryService) Device(ctx context.Context, userID int64) (*models.DeviceView, error) {
	return s.devices.Get(ctx, userID)
}

// SaveDevice registers or replaces the device of userID.
func (s *RegistryService) SaveDevice(ctx context.Context, userID int64, name, uid string, plantID *int64) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return ErrMissingDeviceUID
	}
	d := &models.UserDevice{
		UserID:     userID,
		DeviceName: strings.TrimSpace(name),
		DeviceUID:  uid,
		PlantID:    plantID,
	}
	if err := s.devices.Upsert(ctx, d); err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return ErrUnknownReference
		}
		return err
	}
	s.logger.Info("device saved", zap.Int64("user_id", userID), zap.String("device_uid", uid))
	return nil
}

// RemoveDevice unregisters the device of userID.
func (s *RegistryService) RemoveDevice(ctx context.Context, userID int64) error {
	if err := s.devices.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("device removed", zap.Int64("user_id", userID))
	return nil
}

// Plants lists plants ordered by name.
func (s *RegistryService) Plants(ctx context.Context) ([]models.PlantSummary, error) {
	return s.plants.List(ctx)
}

// Plant returns one plant profile.
func (s *RegistryService) Plant(ctx context.Context, id int64) (*models.Plant, error) {
	p, err := s.plants.Get(ctx, id)
	if errors.Is(err, repository.ErrPlantNotFound) {
		return nil, ErrPlantNotFound
	}
	return p, err
}
