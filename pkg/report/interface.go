package report

import (
	"context"

	"github.com/greengrid/greengrid/pkg/types"
)

// Reporter turns a dispatch outcome into a short report for the household.
type Reporter interface {
	Report(ctx context.Context, in types.ReportInput) (string, error)
}
