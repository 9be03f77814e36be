package household

import (
	"context"
	"fmt"
	"sync"

	"github.com/levenlabs/go-lflag"

	"github.com/greengrid/greengrid/pkg/controller"
	"github.com/greengrid/greengrid/pkg/types"
)

// Session owns the battery of one household. Every dispatch for the household
// goes through its Session so the battery is updated by one caller at a time.
type Session struct {
	cfg  HouseholdConfig
	ctrl *controller.Controller

	mu      sync.Mutex
	battery types.BatteryState
}

// NewSession starts a session at the configured initial charge.
func NewSession(cfg HouseholdConfig, ctrl *controller.Controller) *Session {
	return &Session{
		cfg:     cfg,
		ctrl:    ctrl,
		battery: cfg.Battery.State(),
	}
}

func (s *Session) ID() string {
	return s.cfg.ID
}

func (s *Session) Config() HouseholdConfig {
	return s.cfg
}

// Battery returns a snapshot of the current battery state.
func (s *Session) Battery() types.BatteryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.battery
}

// Dispatch runs the engine against the session's battery.
func (s *Session) Dispatch(ctx context.Context, forecast types.Forecast, price types.Price, threshold float64) (types.DispatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Dispatch(ctx, forecast, price, &s.battery, threshold)
}

// WhatIf simulates a scenario against a snapshot of the battery.
func (s *Session) WhatIf(ctx context.Context, req types.WhatIfRequest, price types.Price, settings types.Settings) (types.WhatIfResult, error) {
	return s.ctrl.WhatIf(ctx, req, s.Battery(), price, settings)
}

// Registry holds the session of every configured household.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates a session per household in cfg.
func NewRegistry(cfg Config, ctrl *controller.Controller) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{sessions: make(map[string]*Session, len(cfg.Households))}
	for _, h := range cfg.Households {
		r.sessions[h.ID] = NewSession(h, ctrl)
		r.order = append(r.order, h.ID)
	}
	return r, nil
}

// Configured registers the households flag and builds the registry once flags
// are parsed.
func Configured() *Registry {
	path := lflag.String("households-config", "", "Path to a YAML or JSON households file, empty uses a single default household")

	r := &Registry{sessions: map[string]*Session{}}
	lflag.Do(func() {
		cfg, err := Load(*path)
		if err != nil {
			panic(fmt.Sprintf("failed to load households: %v", err))
		}
		loaded, err := NewRegistry(cfg, controller.NewController())
		if err != nil {
			panic(fmt.Sprintf("invalid households: %v", err))
		}
		r.mu.Lock()
		r.sessions = loaded.sessions
		r.order = loaded.order
		r.mu.Unlock()
	})
	return r
}

// Get returns the session for householdID.
func (r *Registry) Get(householdID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[householdID]
	return s, ok
}

// Sessions returns every session in configuration order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// IDs returns every household id in configuration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
