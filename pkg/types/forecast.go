package types

import "time"

// Location is where a household's weather is forecast.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// DefaultLocation is central London.
func DefaultLocation() Location {
	return Location{
		Latitude:  51.5085,
		Longitude: -0.1257,
		Timezone:  "Europe/London",
	}
}

// WeatherSample is one hourly slot of the weather forecast the predictions are
// derived from.
type WeatherSample struct {
	TS           time.Time `json:"ts"`
	TemperatureC float64   `json:"temperatureC"`
	RadiationWM2 float64   `json:"radiationWM2"`
}

// Forecast is the predicted consumption and solar generation for the next
// evaluation cycle.
type Forecast struct {
	PredictedConsumptionKWH float64        `json:"predictedConsumptionKWH"`
	PredictedSolarKWH       float64        `json:"predictedSolarKWH"`
	Weather                 *WeatherSample `json:"weather,omitempty"`
}
