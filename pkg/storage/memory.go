package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/greengrid/greengrid/pkg/types"
)

type memoryHousehold struct {
	settings        types.Settings
	settingsVersion int
	readings        []types.Reading
	advisories      []types.Advisory
	feedback        []types.Feedback
}

// Memory implements Database in process memory. Nothing survives a restart.
type Memory struct {
	mu         sync.Mutex
	households map[string]*memoryHousehold
}

// NewMemory returns an empty Memory database.
func NewMemory() *Memory {
	return &Memory{households: make(map[string]*memoryHousehold)}
}

func (m *Memory) household(householdID string) (*memoryHousehold, error) {
	if householdID == "" {
		return nil, ErrEmptyHouseholdID
	}
	h, ok := m.households[householdID]
	if !ok {
		h = &memoryHousehold{}
		m.households[householdID] = h
	}
	return h, nil
}

func (m *Memory) GetSettings(ctx context.Context, householdID string) (types.Settings, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return types.Settings{}, 0, err
	}
	return h.settings, h.settingsVersion, nil
}

func (m *Memory) SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return err
	}
	h.settings = settings
	h.settingsVersion = version
	return nil
}

func (m *Memory) InsertReading(ctx context.Context, householdID string, reading types.Reading) error {
	if reading.Timestamp.IsZero() {
		return fmt.Errorf("reading missing timestamp")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return err
	}
	h.readings = upsertByTime(h.readings, reading, func(r types.Reading) time.Time { return r.Timestamp })
	return nil
}

func (m *Memory) GetReadings(ctx context.Context, householdID string, start, end time.Time) ([]types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return nil, err
	}
	var out []types.Reading
	for _, r := range h.readings {
		if inRange(r.Timestamp, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) InsertAdvisory(ctx context.Context, householdID string, advisory types.Advisory) error {
	if advisory.Timestamp.IsZero() {
		return fmt.Errorf("advisory missing timestamp")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return err
	}
	h.advisories = upsertByTime(h.advisories, advisory, func(a types.Advisory) time.Time { return a.Timestamp })
	return nil
}

func (m *Memory) GetAdvisories(ctx context.Context, householdID string, start, end time.Time, limit int) ([]types.Advisory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return nil, err
	}
	var out []types.Advisory
	for i := len(h.advisories) - 1; i >= 0; i-- {
		a := h.advisories[i]
		if !inRange(a.Timestamp, start, end) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) GetLatestAdvisory(ctx context.Context, householdID string) (*types.Advisory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return nil, err
	}
	if len(h.advisories) == 0 {
		return nil, nil
	}
	a := h.advisories[len(h.advisories)-1]
	return &a, nil
}

func (m *Memory) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	if feedback.ID == "" {
		return fmt.Errorf("feedback missing id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(feedback.HouseholdID)
	if err != nil {
		return err
	}
	for i, f := range h.feedback {
		if f.ID == feedback.ID {
			h.feedback[i] = feedback
			return nil
		}
	}
	h.feedback = append(h.feedback, feedback)
	sort.SliceStable(h.feedback, func(i, j int) bool {
		return h.feedback[i].Timestamp.Before(h.feedback[j].Timestamp)
	})
	return nil
}

func (m *Memory) ListFeedback(ctx context.Context, householdID string, limit int) ([]types.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.household(householdID)
	if err != nil {
		return nil, err
	}
	var out []types.Feedback
	for i := len(h.feedback) - 1; i >= 0; i-- {
		out = append(out, h.feedback[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// upsertByTime keeps s sorted by timestamp, replacing an entry with the same
// timestamp the way a document id keyed by time would.
func upsertByTime[T any](s []T, v T, ts func(T) time.Time) []T {
	t := ts(v)
	i := sort.Search(len(s), func(i int) bool { return !ts(s[i]).Before(t) })
	if i < len(s) && ts(s[i]).Equal(t) {
		s[i] = v
		return s
	}
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
