package utility

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/types"
)

// DefaultFallbackPrice is used when no live price is available.
const DefaultFallbackPrice = 0.18

// Fixed always returns the same price for the current hour.
type Fixed struct {
	pricePerKWH float64
	now         func() time.Time
}

// NewFixed returns a Fixed provider at the given price per kWh.
func NewFixed(pricePerKWH float64) *Fixed {
	return &Fixed{pricePerKWH: pricePerKWH, now: time.Now}
}

func configuredFixed() *Fixed {
	f := NewFixed(DefaultFallbackPrice)
	lflag.JSON(&f.pricePerKWH, "fallback-price", f.pricePerKWH, "Price per kWh used by the fixed provider and when the live price is unavailable")
	lflag.Do(func() {
		if err := f.Validate(); err != nil {
			panic(fmt.Sprintf("fixed price validation failed: %v", err))
		}
	})
	return f
}

// Validate ensures the price is a finite, non-negative number.
func (f *Fixed) Validate() error {
	if math.IsNaN(f.pricePerKWH) || math.IsInf(f.pricePerKWH, 0) || f.pricePerKWH < 0 {
		return fmt.Errorf("fallback-price must be a non-negative number, got %v", f.pricePerKWH)
	}
	return nil
}

// GetCurrentPrice implements Provider.
func (f *Fixed) GetCurrentPrice(ctx context.Context) (types.Price, error) {
	start := f.now().Truncate(time.Hour)
	return types.Price{
		Provider:    ProviderFixed,
		TSStart:     start,
		TSEnd:       start.Add(time.Hour),
		PricePerKWH: f.pricePerKWH,
	}, nil
}
