package models

import "time"

// UserDevice links a user to their single greenhouse controller.
type UserDevice struct {
	UserID     int64
	DeviceName string
	DeviceUID  string
	PlantID    *int64
	CreatedAt  time.Time
}

// DeviceView is the registry entry joined with its plant name.
type DeviceView struct {
	DeviceName string  `json:"device_name"`
	DeviceUID  string  `json:"device_uid"`
	PlantID    *int64  `json:"plant_id"`
	PlantName  *string `json:"plant_name"`
}
