package weather

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/greengrid/greengrid/pkg/types"
)

// Fallback draws a plausible forecast when the weather service is unavailable.
// Consumption is uniform in [10, 15] kWh and solar uniform in [3, 6] kWh.
type Fallback struct {
	mu          sync.Mutex
	consumption distuv.Uniform
	solar       distuv.Uniform
}

// NewFallback returns a Fallback drawing from src. A nil src uses a randomly
// seeded source.
func NewFallback(src rand.Source) *Fallback {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Fallback{
		consumption: distuv.Uniform{Min: 10, Max: 15, Src: src},
		solar:       distuv.Uniform{Min: 3, Max: 6, Src: src},
	}
}

// Forecast returns a random forecast with both values rounded to 2 decimals.
func (f *Fallback) Forecast() types.Forecast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.Forecast{
		PredictedConsumptionKWH: round2(f.consumption.Rand()),
		PredictedSolarKWH:       round2(f.solar.Rand()),
	}
}
