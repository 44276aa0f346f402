package models

// PlantSummary is a plant list entry.
type PlantSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Plant is a growing profile with the comfortable range of each reading.
// Unset bounds are null.
type Plant struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	AirTempMin  *float64 `json:"air_temp_min"`
	AirTempMax  *float64 `json:"air_temp_max"`
	AirHumMin   *float64 `json:"air_hum_min"`
	AirHumMax   *float64 `json:"air_hum_max"`
	SoilMin     *float64 `json:"soil_min"`
	SoilMax     *float64 `json:"soil_max"`
	LightMin    *float64 `json:"light_min"`
	LightMax    *float64 `json:"light_max"`
}
