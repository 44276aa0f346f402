package models

import "time"

// Readings holds the optional sensor values of one sample. Nil means the
// device did not report the quantity.
type Readings struct {
	AirTemp   *float64 `json:"air_temp"`
	AirHum    *float64 `json:"air_hum"`
	AirPress  *float64 `json:"air_press"`
	Gas       *float64 `json:"gas"`
	WaterTemp *float64 `json:"water_temp"`
	Soil      *float64 `json:"soil"`
	Light     *float64 `json:"light"`
}

// Empty reports whether no quantity was reported.
func (r Readings) Empty() bool {
	return r.AirTemp == nil && r.AirHum == nil && r.AirPress == nil && r.Gas == nil &&
		r.WaterTemp == nil && r.Soil == nil && r.Light == nil
}

// Measurement is one persisted sample. Time is assigned when the row is
// written, never taken from the device.
type Measurement struct {
	ID       int64     `json:"id"`
	DeviceID string    `json:"device_id"`
	Time     time.Time `json:"time"`
	Readings
}
