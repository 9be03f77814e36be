package weather

import (
	"context"

	"github.com/greengrid/greengrid/pkg/types"
)

// Forecaster predicts the next evaluation cycle's consumption and solar
// generation for a location.
type Forecaster interface {
	Forecast(ctx context.Context, loc types.Location) (types.Forecast, error)
}
