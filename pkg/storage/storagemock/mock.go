package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/greengrid/greengrid/pkg/storage"
	"github.com/greengrid/greengrid/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context, householdID string) (types.Settings, int, error) {
	args := m.Called(ctx, householdID)
	return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
}

func (m *MockDatabase) SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error {
	args := m.Called(ctx, householdID, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) InsertReading(ctx context.Context, householdID string, reading types.Reading) error {
	args := m.Called(ctx, householdID, reading)
	return args.Error(0)
}

func (m *MockDatabase) GetReadings(ctx context.Context, householdID string, start, end time.Time) ([]types.Reading, error) {
	args := m.Called(ctx, householdID, start, end)
	var readings []types.Reading
	if r, ok := args.Get(0).([]types.Reading); ok {
		readings = r
	}
	return readings, args.Error(1)
}

func (m *MockDatabase) InsertAdvisory(ctx context.Context, householdID string, advisory types.Advisory) error {
	args := m.Called(ctx, householdID, advisory)
	return args.Error(0)
}

func (m *MockDatabase) GetAdvisories(ctx context.Context, householdID string, start, end time.Time, limit int) ([]types.Advisory, error) {
	args := m.Called(ctx, householdID, start, end, limit)
	var advisories []types.Advisory
	if a, ok := args.Get(0).([]types.Advisory); ok {
		advisories = a
	}
	return advisories, args.Error(1)
}

func (m *MockDatabase) GetLatestAdvisory(ctx context.Context, householdID string) (*types.Advisory, error) {
	args := m.Called(ctx, householdID)
	var advisory *types.Advisory
	if a, ok := args.Get(0).(*types.Advisory); ok {
		advisory = a
	}
	return advisory, args.Error(1)
}

func (m *MockDatabase) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}

func (m *MockDatabase) ListFeedback(ctx context.Context, householdID string, limit int) ([]types.Feedback, error) {
	args := m.Called(ctx, householdID, limit)
	var feedback []types.Feedback
	if f, ok := args.Get(0).([]types.Feedback); ok {
		feedback = f
	}
	return feedback, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
