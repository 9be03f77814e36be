package utility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// ErrNoPrices is returned when the tariff has no unit rates for the period.
var ErrNoPrices = errors.New("no unit rates returned")

// Octopus implements the Provider interface for the Octopus Energy Agile
// tariff. Agile publishes half hourly unit rates in pence per kWh.
type Octopus struct {
	apiURL  string
	product string
	tariff  string
	client  *http.Client
	now     func() time.Time
}

// configuredOctopus sets up flags for Octopus and returns the instance.
func configuredOctopus() *Octopus {
	o := &Octopus{
		client: common.HTTPClient(10 * time.Second),
		now:    time.Now,
	}
	apiURL := lflag.String("octopus-api-url", "https://api.octopus.energy", "URL for the Octopus Energy API")
	product := lflag.String("octopus-product", "AGILE-18-02-21", "Octopus product code")
	tariff := lflag.String("octopus-tariff", "E-1R-AGILE-18-02-21-L", "Octopus electricity tariff code")

	lflag.Do(func() {
		o.apiURL = *apiURL
		o.product = *product
		o.tariff = *tariff
		if err := o.Validate(); err != nil {
			panic(fmt.Sprintf("octopus validation failed: %v", err))
		}
	})

	return o
}

// Validate ensures the configuration is valid.
func (o *Octopus) Validate() error {
	if o.apiURL == "" {
		return fmt.Errorf("octopus-api-url is required")
	}
	if _, err := url.Parse(o.apiURL); err != nil {
		return fmt.Errorf("failed to parse octopus url (%s): %w", o.apiURL, err)
	}
	if o.product == "" || o.tariff == "" {
		return fmt.Errorf("octopus-product and octopus-tariff are required")
	}
	return nil
}

type octopusRate struct {
	ValueExcVAT float64   `json:"value_exc_vat"`
	ValueIncVAT float64   `json:"value_inc_vat"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidTo     time.Time `json:"valid_to"`
}

type octopusResponse struct {
	Count   int           `json:"count"`
	Results []octopusRate `json:"results"`
}

// GetPrices returns the unit rates between start and end in the order the API
// returns them (newest first).
func (o *Octopus) GetPrices(ctx context.Context, start, end time.Time) ([]types.Price, error) {
	u, err := url.Parse(o.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	u = u.JoinPath("v1", "products", o.product, "electricity-tariffs", o.tariff, "standard-unit-rates/")

	params := url.Values{}
	params.Set("period_from", start.UTC().Format(time.RFC3339))
	params.Set("period_to", end.UTC().Format(time.RFC3339))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching prices from octopus", "url", u.String())

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("octopus api returned status: %d", resp.StatusCode)
	}

	var data octopusResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched prices",
		slog.Int("count", len(data.Results)),
		slog.Time("start", start),
		slog.Time("end", end),
	)

	prices := make([]types.Price, 0, len(data.Results))
	for _, r := range data.Results {
		prices = append(prices, types.Price{
			Provider:    ProviderOctopusAgile,
			TSStart:     r.ValidFrom,
			TSEnd:       r.ValidTo,
			PricePerKWH: r.ValueIncVAT / 100, // pence to pounds
		})
	}
	return prices, nil
}

// GetCurrentPrice returns the unit rate covering now. If none of the returned
// rates cover now the first one is used.
func (o *Octopus) GetCurrentPrice(ctx context.Context) (types.Price, error) {
	now := o.now()
	prices, err := o.GetPrices(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		return types.Price{}, err
	}
	if len(prices) == 0 {
		return types.Price{}, ErrNoPrices
	}
	for _, p := range prices {
		if !now.Before(p.TSStart) && now.Before(p.TSEnd) {
			return p, nil
		}
	}
	log.Ctx(ctx).WarnContext(ctx, "no octopus rate covers now, using first", slog.Time("tsStart", prices[0].TSStart))
	return prices[0], nil
}
