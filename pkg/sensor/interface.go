package sensor

import (
	"context"
	"errors"

	"github.com/greengrid/greengrid/pkg/types"
)

// ErrNoReading is returned when no recent reading is known for a household.
var ErrNoReading = errors.New("no recent reading")

// Sensor returns the latest consumption and solar reading of a household.
type Sensor interface {
	Read(ctx context.Context, householdID string) (types.Reading, error)
}
