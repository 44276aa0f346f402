package models

// Weather is the current weather summary served by /api/weather.
type Weather struct {
	City        string  `json:"city"`
	Temp        float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Wind        float64 `json:"wind"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Time        string  `json:"time"`
}
