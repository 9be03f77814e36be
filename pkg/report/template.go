package report

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/greengrid/greengrid/pkg/types"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("£%.2f", v) },
	"kwh":   func(v float64) string { return fmt.Sprintf("%.1f kWh", v) },
}).Parse(`{{define "action"}}{{if eq .BatteryAction "discharge"}}Your battery is covering part of your usage while power is expensive ({{money .PricePerKWH}}/kWh).{{else}}Your battery is charging from solar while power is cheaper ({{money .PricePerKWH}}/kWh).{{end}}{{end -}}
{{if eq .Decision "storeSurplus"}}Your panels are producing more than your home needs, so the extra is being stored in your battery.
{{else if eq .Decision "useBattery"}}Your panels are producing more than your home needs and your battery is helping cover the rest of your usage.
{{else if eq .Decision "useSolarBuyRest"}}Your panels cover part of your usage and the rest comes from the grid.
{{else}}There is no solar right now, so your home is running on grid power.
{{end -}}
{{template "action" .}}
You are expected to draw {{kwh .NetDemandKWH}} from the grid, costing about {{money .ExpectedCost}}. Your battery now holds {{kwh .BatteryChargeKWH}}.`))

// Template renders a fixed report for each decision. It never calls out to
// another service.
type Template struct{}

// NewTemplate returns a Template reporter.
func NewTemplate() *Template {
	return &Template{}
}

// Report implements Reporter.
func (Template) Report(ctx context.Context, in types.ReportInput) (string, error) {
	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, in); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return sb.String(), nil
}
