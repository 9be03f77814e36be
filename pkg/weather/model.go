package weather

import (
	"math"
	"strconv"

	"github.com/greengrid/greengrid/pkg/types"
)

const (
	// Below this temperature heating raises household consumption.
	comfortTemperatureC = 25.0
	baseConsumptionKWH  = 10.0
	heatingKWHPerDegree = 0.2
	// kWh of solar produced per W/m² of shortwave radiation.
	solarKWHPerWM2 = 0.004
)

// PredictConsumption estimates consumption in kWh from the air temperature.
func PredictConsumption(temperatureC float64) float64 {
	if temperatureC < comfortTemperatureC {
		return round2(baseConsumptionKWH + (comfortTemperatureC-temperatureC)*heatingKWHPerDegree)
	}
	return baseConsumptionKWH
}

// PredictSolar estimates solar generation in kWh from shortwave radiation.
func PredictSolar(radiationWM2 float64) float64 {
	return round2(math.Max(0, radiationWM2) * solarKWHPerWM2)
}

// ForecastFromSample turns one weather sample into a Forecast.
func ForecastFromSample(s types.WeatherSample) types.Forecast {
	return types.Forecast{
		PredictedConsumptionKWH: PredictConsumption(s.TemperatureC),
		PredictedSolarKWH:       PredictSolar(s.RadiationWM2),
		Weather:                 &s,
	}
}

func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
