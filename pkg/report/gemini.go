package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/greengrid/greengrid/pkg/common"
	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// ErrEmptyReport is returned when the model produced no text.
var ErrEmptyReport = errors.New("empty report")

// GeminiOptions configures a Gemini reporter.
type GeminiOptions struct {
	// APIURL overrides the Gemini endpoint, empty uses the SDK default.
	APIURL   string
	APIKey   string
	Model    string
	Interval time.Duration
}

// Gemini generates reports with the Gemini generateContent API.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// Configured registers the report flags and returns the report Config.
func Configured() *Config {
	c := &Config{}
	apiURL := lflag.String("gemini-api-url", "", "URL for the Gemini API, empty uses the default endpoint")
	apiKey := lflag.String("gemini-api-key", "", "API key for Gemini, empty uses the template reporter")
	model := lflag.String("gemini-model", "gemini-2.0-flash", "Gemini model used for reports")
	interval := lflag.Duration("gemini-min-interval", 5*time.Second, "Minimum time between Gemini requests")

	lflag.Do(func() {
		c.gemini = GeminiOptions{
			APIURL:   *apiURL,
			APIKey:   *apiKey,
			Model:    *model,
			Interval: *interval,
		}
	})
	return c
}

// Config holds the configured reporter options.
type Config struct {
	gemini GeminiOptions
}

// Reporter returns the primary reporter: Gemini when an API key is set,
// otherwise the template reporter.
func (c *Config) Reporter(ctx context.Context) (Reporter, error) {
	if c.gemini.APIKey == "" {
		return NewTemplate(), nil
	}
	return NewGemini(ctx, c.gemini)
}

// NewGemini returns a Gemini reporter allowing one request per interval.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("gemini model is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  common.HTTPClient(30 * time.Second),
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.APIURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		client:  client,
		model:   opts.Model,
		limiter: rate.NewLimiter(rate.Every(opts.Interval), 1),
	}, nil
}

// Prompt builds the instruction sent to the model.
func Prompt(in types.ReportInput) string {
	return fmt.Sprintf(
		"You are an energy advisor for a home with solar panels and a battery. "+
			"Write a clear, concise, user-friendly report for someone who is not an energy expert. "+
			"Explain the decision and the estimated cost in plain language.\n\n"+
			"Decision: %s\nBattery action: %s\nGrid energy needed: %.2f kWh\n"+
			"Electricity price: %.4f per kWh\nEstimated cost: %.2f\nBattery charge: %.2f kWh",
		in.Decision.Description(), in.BatteryAction, in.NetDemandKWH,
		in.PricePerKWH, in.ExpectedCost, in.BatteryChargeKWH,
	)
}

// Report implements Reporter. It waits for the rate limiter before calling
// the API.
func (g *Gemini) Report(ctx context.Context, in types.ReportInput) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(in)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", ErrEmptyReport
	}
	log.Ctx(ctx).DebugContext(ctx, "generated report",
		slog.String("model", g.model),
		slog.Duration("took", time.Since(start)),
		slog.Int("length", len(text)),
	)
	return text, nil
}

// responseText joins the text parts of the first candidate that has any,
// skipping thought parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}
