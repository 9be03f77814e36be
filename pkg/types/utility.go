package types

import "time"

// Price represents the cost of electricity in a time interval.
type Price struct {
	Provider string    `json:"provider"`
	TSStart  time.Time `json:"tsStart"`
	TSEnd    time.Time `json:"tsEnd"`

	// PricePerKWH is in currency units (not pence) per kWh, including VAT.
	PricePerKWH float64 `json:"pricePerKWH"`
}
