package household

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/greengrid/greengrid/pkg/types"
)

const envPrefix = "GREENGRID_"

// BatteryConfig describes a household battery and its charge at startup. A
// nil InitialChargeKWH starts empty, unless the capacity also comes from the
// defaults, in which case the default charge is used too.
type BatteryConfig struct {
	CapacityKWH         float64  `json:"capacityKWH"`
	InitialChargeKWH    *float64 `json:"initialChargeKWH,omitempty"`
	ChargeEfficiency    float64  `json:"chargeEfficiency"`
	DischargeEfficiency float64  `json:"dischargeEfficiency"`
}

// State returns the battery state a new session starts with.
func (b BatteryConfig) State() types.BatteryState {
	var charge float64
	if b.InitialChargeKWH != nil {
		charge = *b.InitialChargeKWH
	}
	return types.BatteryState{
		CapacityKWH:         b.CapacityKWH,
		ChargeKWH:           charge,
		ChargeEfficiency:    b.ChargeEfficiency,
		DischargeEfficiency: b.DischargeEfficiency,
	}
}

// HouseholdConfig is one household. Zero fields are taken from the defaults.
type HouseholdConfig struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Location        types.Location `json:"location"`
	UtilityProvider string         `json:"utilityProvider"`
	Battery         BatteryConfig  `json:"battery"`
}

// Config is the households file.
type Config struct {
	Defaults   HouseholdConfig   `json:"defaults"`
	Households []HouseholdConfig `json:"households"`
}

// DefaultHousehold is used when no households are configured.
func DefaultHousehold() HouseholdConfig {
	b := types.DefaultBatteryState()
	return HouseholdConfig{
		ID:              types.HouseholdIDDefault,
		Name:            "Home",
		Location:        types.DefaultLocation(),
		UtilityProvider: "octopus_agile",
		Battery: BatteryConfig{
			CapacityKWH:         b.CapacityKWH,
			InitialChargeKWH:    kwh(b.ChargeKWH),
			ChargeEfficiency:    b.ChargeEfficiency,
			DischargeEfficiency: b.DischargeEfficiency,
		},
	}
}

// Load reads the households file at path, which may be YAML or JSON, then
// applies GREENGRID_ environment overrides (GREENGRID_DEFAULTS__UTILITYPROVIDER
// sets defaults.utilityProvider). An empty path only uses the environment.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return Config{}, fmt.Errorf("unsupported households config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, fmt.Errorf("failed to decode households config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := DefaultHousehold()
	fill(&c.Defaults, d)
	if len(c.Households) == 0 {
		h := c.Defaults
		h.ID = d.ID
		h.Name = d.Name
		c.Households = []HouseholdConfig{h}
		return
	}
	for i := range c.Households {
		fill(&c.Households[i], c.Defaults)
		if c.Households[i].Name == "" {
			c.Households[i].Name = c.Households[i].ID
		}
	}
}

// fill copies every zero field of h from d, except the id and name.
func fill(h *HouseholdConfig, d HouseholdConfig) {
	if h.Location == (types.Location{}) {
		h.Location = d.Location
	} else if h.Location.Timezone == "" {
		h.Location.Timezone = d.Location.Timezone
	}
	if h.UtilityProvider == "" {
		h.UtilityProvider = d.UtilityProvider
	}
	if h.Battery.CapacityKWH == 0 {
		h.Battery.CapacityKWH = d.Battery.CapacityKWH
		if h.Battery.InitialChargeKWH == nil && d.Battery.InitialChargeKWH != nil {
			h.Battery.InitialChargeKWH = kwh(*d.Battery.InitialChargeKWH)
		}
	}
	if h.Battery.ChargeEfficiency == 0 {
		h.Battery.ChargeEfficiency = d.Battery.ChargeEfficiency
	}
	if h.Battery.DischargeEfficiency == 0 {
		h.Battery.DischargeEfficiency = d.Battery.DischargeEfficiency
	}
}

func kwh(v float64) *float64 {
	return &v
}

// Validate rejects missing or duplicate ids, unusable batteries and
// impossible coordinates.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Households))
	for _, h := range c.Households {
		if h.ID == "" {
			return fmt.Errorf("household missing id")
		}
		if strings.ContainsAny(h.ID, "/+#") {
			return fmt.Errorf("household %s: id cannot contain '/', '+' or '#'", h.ID)
		}
		if seen[h.ID] {
			return fmt.Errorf("duplicate household id: %s", h.ID)
		}
		seen[h.ID] = true
		if err := h.Battery.State().Validate(); err != nil {
			return fmt.Errorf("household %s: battery: %w", h.ID, err)
		}
		if h.Location.Latitude < -90 || h.Location.Latitude > 90 || h.Location.Longitude < -180 || h.Location.Longitude > 180 {
			return fmt.Errorf("household %s: invalid location %v,%v", h.ID, h.Location.Latitude, h.Location.Longitude)
		}
	}
	return nil
}
