package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 2

// Settings represents the per household configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// Pause advisory updates
	Pause bool `json:"pause"`

	// Utility provider name, empty uses the household config
	UtilityProvider string `json:"utilityProvider,omitempty"`

	// Price Settings
	// Discharge the battery when the price is above this amount (per kWh)
	PriceThreshold float64 `json:"priceThreshold"`
	// What exported solar earns (per kWh)
	FeedInTariff float64 `json:"feedInTariff"`

	// Solar panel parameters used by the what-if simulator
	PanelAreaM2     float64 `json:"panelAreaM2"`
	PanelEfficiency float64 `json:"panelEfficiency"`
	SunHours        float64 `json:"sunHours"`
}

// DefaultSettings returns fully migrated settings.
func DefaultSettings() Settings {
	s, _, _ := MigrateSettings(Settings{}, 0)
	return s
}

// Validate checks the settings a user is allowed to submit.
func (s Settings) Validate() error {
	if !finite(s.PriceThreshold) || s.PriceThreshold < 0 {
		return fmt.Errorf("priceThreshold must be non-negative, got %v", s.PriceThreshold)
	}
	if !finite(s.FeedInTariff) || s.FeedInTariff < 0 {
		return fmt.Errorf("feedInTariff must be non-negative, got %v", s.FeedInTariff)
	}
	if !finite(s.PanelAreaM2) || s.PanelAreaM2 < 0 {
		return fmt.Errorf("panelAreaM2 must be non-negative, got %v", s.PanelAreaM2)
	}
	if !finite(s.PanelEfficiency) || s.PanelEfficiency < 0 || s.PanelEfficiency > 1 {
		return fmt.Errorf("panelEfficiency %v outside [0, 1]", s.PanelEfficiency)
	}
	if !finite(s.SunHours) || s.SunHours < 0 || s.SunHours > 24 {
		return fmt.Errorf("sunHours %v outside [0, 24]", s.SunHours)
	}
	return nil
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.PriceThreshold == 0 {
				s.PriceThreshold = 0.15
				migrated = true
			}
			if s.FeedInTariff == 0 {
				s.FeedInTariff = 0.05
				migrated = true
			}
		case 2:
			// version 2: add panel parameters for the what-if simulator
			if s.PanelAreaM2 == 0 {
				s.PanelAreaM2 = 10
				migrated = true
			}
			if s.PanelEfficiency == 0 {
				s.PanelEfficiency = 0.18
				migrated = true
			}
			if s.SunHours == 0 {
				s.SunHours = 5
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
