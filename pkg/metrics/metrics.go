package metrics

import (
	"context"
	"errors"

	"github.com/greengrid/greengrid/pkg/types"
)

// Sink records advisories for observability.
type Sink interface {
	RecordAdvisory(ctx context.Context, a types.Advisory) error
}

// Nop implements Sink and records nothing.
type Nop struct{}

func (Nop) RecordAdvisory(context.Context, types.Advisory) error { return nil }

// Multi fans an advisory out to every sink.
type Multi []Sink

// RecordAdvisory forwards to all sinks and joins their errors.
func (m Multi) RecordAdvisory(ctx context.Context, a types.Advisory) error {
	var errs []error
	for _, s := range m {
		if err := s.RecordAdvisory(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
