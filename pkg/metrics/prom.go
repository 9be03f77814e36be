package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/greengrid/greengrid/pkg/types"
)

// Prom records advisories in Prometheus metrics.
type Prom struct {
	advisories *prometheus.CounterVec
	charge     *prometheus.GaugeVec
	cost       *prometheus.GaugeVec
	netDemand  *prometheus.GaugeVec
	price      *prometheus.GaugeVec
	fallbacks  *prometheus.CounterVec
}

// register registers c on reg, reusing an already registered collector of the
// same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewProm registers the advisory metrics on reg. If reg is nil, the default
// registerer is used.
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{}
	var err error
	if p.advisories, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greengrid_advisories_total",
		Help: "Total number of advisories produced",
	}, []string{"household", "decision", "action"})); err != nil {
		return nil, err
	}
	if p.charge, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greengrid_battery_charge_kwh",
		Help: "Battery charge after the latest dispatch",
	}, []string{"household"})); err != nil {
		return nil, err
	}
	if p.cost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greengrid_expected_cost",
		Help: "Expected cost of the latest advisory",
	}, []string{"household"})); err != nil {
		return nil, err
	}
	if p.netDemand, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greengrid_net_demand_kwh",
		Help: "Grid energy needed by the latest advisory",
	}, []string{"household"})); err != nil {
		return nil, err
	}
	if p.price, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greengrid_price_per_kwh",
		Help: "Electricity price used by the latest advisory",
	}, []string{"household", "provider"})); err != nil {
		return nil, err
	}
	if p.fallbacks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greengrid_fallbacks_total",
		Help: "Total number of collaborator values replaced by a fallback",
	}, []string{"household", "component"})); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordAdvisory implements Sink.
func (p *Prom) RecordAdvisory(ctx context.Context, a types.Advisory) error {
	r := a.Result
	p.advisories.WithLabelValues(a.HouseholdID, string(r.Decision), string(r.BatteryAction)).Inc()
	p.charge.WithLabelValues(a.HouseholdID).Set(r.BatteryChargeKWH)
	p.cost.WithLabelValues(a.HouseholdID).Set(r.ExpectedCost)
	p.netDemand.WithLabelValues(a.HouseholdID).Set(r.NetDemandKWH)
	p.price.WithLabelValues(a.HouseholdID, a.Price.Provider).Set(a.Price.PricePerKWH)
	for _, f := range a.Fallbacks {
		p.fallbacks.WithLabelValues(a.HouseholdID, string(f.Component)).Inc()
	}
	return nil
}
