package sensor

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/greengrid/greengrid/pkg/types"
)

const (
	ProfileFlat    = "flat"
	ProfileDiurnal = "diurnal"

	simulatedConsumptionKWH = 12.5
	simulatedSolarKWH       = 4.2
)

// Simulated is a sensor that reports a fixed household. The flat profile
// always returns 12.5 kWh consumption and 4.2 kWh solar. The diurnal profile
// shapes both around the local hour of day.
type Simulated struct {
	profile string
	loc     *time.Location
	now     func() time.Time
}

// NewSimulated returns a Simulated sensor with the given profile.
func NewSimulated(profile string, loc *time.Location) *Simulated {
	if loc == nil {
		loc = time.UTC
	}
	return &Simulated{profile: profile, loc: loc, now: time.Now}
}

// Read implements Sensor.
func (s *Simulated) Read(ctx context.Context, householdID string) (types.Reading, error) {
	now := s.now().UTC()
	r := types.Reading{
		HouseholdID:    householdID,
		Timestamp:      now,
		ConsumptionKWH: simulatedConsumptionKWH,
		SolarKWH:       simulatedSolarKWH,
		Source:         types.ReadingSourceSimulated,
	}
	if s.profile == ProfileDiurnal {
		r.ConsumptionKWH, r.SolarKWH = DiurnalAt(now.In(s.loc))
	}
	return r, nil
}

// DiurnalAt returns the simulated consumption and solar at t's local hour.
// Consumption follows a sine wave peaking in the early evening and solar a
// bell curve centred on midday that is zero at night.
func DiurnalAt(t time.Time) (consumption, solar float64) {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	load := 1 + 0.3*math.Sin((hour-12)*math.Pi/12)
	consumption = round2(simulatedConsumptionKWH * load)

	if hour >= 6 && hour <= 20 {
		bell := math.Exp(-math.Pow(hour-13, 2) / (2 * 2.5 * 2.5))
		solar = round2(simulatedSolarKWH * 2 * bell)
	}
	return consumption, solar
}

func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
