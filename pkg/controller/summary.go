package controller

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/greengrid/greengrid/pkg/types"
)

// Summarize aggregates the cost, demand and decisions of a set of advisories.
func Summarize(advisories []types.Advisory) types.AdvisorySummary {
	sum := types.AdvisorySummary{
		Count:     len(advisories),
		Decisions: map[types.Decision]int{},
		Actions:   map[types.BatteryAction]int{},
	}
	if len(advisories) == 0 {
		return sum
	}

	costs := make([]float64, len(advisories))
	demand := make([]float64, len(advisories))
	prices := make([]float64, len(advisories))
	for i, a := range advisories {
		costs[i] = a.Result.ExpectedCost
		demand[i] = a.Result.NetDemandKWH
		prices[i] = a.Price.PricePerKWH
		sum.TotalExpectedCost += a.Result.ExpectedCost
		sum.Decisions[a.Result.Decision]++
		sum.Actions[a.Result.BatteryAction]++
		sum.Fallbacks += len(a.Fallbacks)
	}

	sum.TotalExpectedCost = round2(sum.TotalExpectedCost)
	mean, std := stat.MeanStdDev(costs, nil)
	sum.MeanExpectedCost = round2(mean)
	if len(costs) > 1 {
		sum.StdDevExpectedCost = round2(std)
	}
	sum.MeanNetDemandKWH = round2(stat.Mean(demand, nil))
	sum.MeanPricePerKWH = math.Round(stat.Mean(prices, nil)*10000) / 10000
	return sum
}

