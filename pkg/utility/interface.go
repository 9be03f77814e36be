package utility

import (
	"context"

	"github.com/greengrid/greengrid/pkg/types"
)

// Provider defines the interface for fetching energy prices.
type Provider interface {
	// GetCurrentPrice returns the current price of electricity.
	GetCurrentPrice(ctx context.Context) (types.Price, error)
}
