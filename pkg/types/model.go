package types

import "time"

const (
	CurrentAdvisoryVersion = 1
	CurrentReadingVersion  = 1

	HouseholdIDDefault = "home"
)

// ReadingSource identifies where a sensor reading came from.
type ReadingSource string

const (
	ReadingSourceSimulated ReadingSource = "simulated"
	ReadingSourceMQTT      ReadingSource = "mqtt"
)

// Reading is a single sensor sample of household consumption and solar
// generation.
type Reading struct {
	HouseholdID    string        `json:"householdID"`
	Timestamp      time.Time     `json:"timestamp"`
	ConsumptionKWH float64       `json:"consumptionKWH"`
	SolarKWH       float64       `json:"solarKWH"`
	Source         ReadingSource `json:"source"`
}

// FallbackComponent names the collaborator whose value was substituted.
type FallbackComponent string

const (
	FallbackComponentSensor   FallbackComponent = "sensor"
	FallbackComponentForecast FallbackComponent = "forecast"
	FallbackComponentPrice    FallbackComponent = "price"
	FallbackComponentReport   FallbackComponent = "report"
)

// Fallback records that a collaborator failed and what replaced it.
type Fallback struct {
	Component FallbackComponent `json:"component"`
	Reason    string            `json:"reason"`
}

// Advisory is the outcome of one pipeline run for a household.
type Advisory struct {
	ID          string         `json:"id"`
	HouseholdID string         `json:"householdID"`
	Timestamp   time.Time      `json:"timestamp"`
	Reading     *Reading       `json:"reading,omitempty"`
	Forecast    Forecast       `json:"forecast"`
	Price       Price          `json:"price"`
	Threshold   float64        `json:"threshold"`
	Result      DispatchResult `json:"result"`
	Report      string         `json:"report"`
	Fallbacks   []Fallback     `json:"fallbacks,omitempty"`
}

// HasFallback returns true if the given component was substituted.
func (a Advisory) HasFallback(c FallbackComponent) bool {
	for _, f := range a.Fallbacks {
		if f.Component == c {
			return true
		}
	}
	return false
}

// ReportInput is what a reporter turns into prose.
type ReportInput struct {
	HouseholdID      string        `json:"householdID"`
	Decision         Decision      `json:"decision"`
	BatteryAction    BatteryAction `json:"batteryAction"`
	ExpectedCost     float64       `json:"expectedCost"`
	NetDemandKWH     float64       `json:"netDemandKWH"`
	BatteryChargeKWH float64       `json:"batteryChargeKWH"`
	PricePerKWH      float64       `json:"pricePerKWH"`
}

// NewReportInput builds the reporter input from a dispatch result.
func NewReportInput(householdID string, res DispatchResult, price Price) ReportInput {
	return ReportInput{
		HouseholdID:      householdID,
		Decision:         res.Decision,
		BatteryAction:    res.BatteryAction,
		ExpectedCost:     res.ExpectedCost,
		NetDemandKWH:     res.NetDemandKWH,
		BatteryChargeKWH: res.BatteryChargeKWH,
		PricePerKWH:      price.PricePerKWH,
	}
}

// WhatIfRequest is a user supplied scenario for the dashboard simulator.
type WhatIfRequest struct {
	HouseholdID    string  `json:"householdID"`
	RadiationWM2   float64 `json:"radiationWM2"`
	ConsumptionKWH float64 `json:"consumptionKWH"`
	// PricePerKWH overrides the current price when set.
	PricePerKWH *float64 `json:"pricePerKWH,omitempty"`
}

// WhatIfResult is the outcome of a simulated scenario. The household's real
// battery is never changed by a what-if run.
type WhatIfResult struct {
	SimulatedSolarKWH  float64        `json:"simulatedSolarKWH"`
	PricePerKWH        float64        `json:"pricePerKWH"`
	Result             DispatchResult `json:"result"`
	CostWithoutBattery float64        `json:"costWithoutBattery"`
	CostWithBattery    float64        `json:"costWithBattery"`
	FeedInEarnings     float64        `json:"feedInEarnings"`
	NetCost            float64        `json:"netCost"`
	Savings            float64        `json:"savings"`
}

// AdvisorySummary aggregates a range of advisories.
type AdvisorySummary struct {
	Count              int                   `json:"count"`
	TotalExpectedCost  float64               `json:"totalExpectedCost"`
	MeanExpectedCost   float64               `json:"meanExpectedCost"`
	StdDevExpectedCost float64               `json:"stdDevExpectedCost"`
	MeanNetDemandKWH   float64               `json:"meanNetDemandKWH"`
	MeanPricePerKWH    float64               `json:"meanPricePerKWH"`
	Decisions          map[Decision]int      `json:"decisions"`
	Actions            map[BatteryAction]int `json:"actions"`
	Fallbacks          int                   `json:"fallbacks"`
}

// HouseholdStatus is the dashboard's view of one household.
type HouseholdStatus struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Battery      BatteryState `json:"battery"`
	LastUpdate   time.Time    `json:"lastUpdate,omitzero"`
	LastDecision Decision     `json:"lastDecision,omitempty"`
	Fallbacks    []Fallback   `json:"fallbacks,omitempty"`
	Paused       bool         `json:"paused"`
}

// SystemStatus represents the current status of the whole service.
type SystemStatus struct {
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Households  []HouseholdStatus `json:"households"`
	LiveClients int               `json:"liveClients"`
}

// Feedback represents feedback submitted by a user.
type Feedback struct {
	ID          string            `json:"id"`
	HouseholdID string            `json:"householdID"`
	Sentiment   string            `json:"sentiment"`
	Comment     string            `json:"comment"`
	UserID      string            `json:"userID"`
	Extra       map[string]string `json:"extra,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}
