package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/types"
)

var (
	ErrEmptyHouseholdID = errors.New("householdID cannot be empty")
)

// docIDFormat is a fixed width UTC timestamp so document ids sort
// chronologically.
const docIDFormat = "2006-01-02T15:04:05.000Z07:00"

func docID(t time.Time) string {
	return t.UTC().Format(docIDFormat)
}

// Database defines the interface for persisting readings, advisories,
// feedback and per household settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context, householdID string) (types.Settings, int, error)
	SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error

	// Readings
	InsertReading(ctx context.Context, householdID string, reading types.Reading) error
	GetReadings(ctx context.Context, householdID string, start, end time.Time) ([]types.Reading, error)

	// Advisories
	InsertAdvisory(ctx context.Context, householdID string, advisory types.Advisory) error
	// GetAdvisories returns at most limit advisories in [start, end), newest
	// first. A limit of 0 returns all of them.
	GetAdvisories(ctx context.Context, householdID string, start, end time.Time, limit int) ([]types.Advisory, error)
	// GetLatestAdvisory returns nil if the household has no advisories.
	GetLatestAdvisory(ctx context.Context, householdID string) (*types.Advisory, error)

	// Feedback
	InsertFeedback(ctx context.Context, feedback types.Feedback) error
	ListFeedback(ctx context.Context, householdID string, limit int) ([]types.Feedback, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "memory", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
