package utility

import (
	"fmt"
	"sort"
	"sync"
)

const (
	ProviderOctopusAgile = "octopus_agile"
	ProviderFixed        = "fixed"
)

// Configured sets up the utility providers based on flags.
func Configured() *Map {
	m := NewMap()
	m.SetProvider(ProviderOctopusAgile, configuredOctopus())
	fixed := configuredFixed()
	m.SetProvider(ProviderFixed, fixed)
	m.SetFallback(fixed)
	return m
}

// Map manages multiple utility providers.
type Map struct {
	mu        sync.Mutex
	providers map[string]Provider
	fallback  Provider
}

// NewMap creates a new utility Map. Its fallback is a Fixed provider at
// DefaultFallbackPrice until SetFallback is called.
func NewMap() *Map {
	return &Map{
		providers: make(map[string]Provider),
		fallback:  NewFixed(DefaultFallbackPrice),
	}
}

// Provider returns the provider for the given name.
func (m *Map) Provider(name string) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prov, ok := m.providers[name]; ok {
		return prov, nil
	}
	return nil, fmt.Errorf("unknown utility provider: %s", name)
}

// SetProvider sets the provider for the given name. This is primarily used for testing.
func (m *Map) SetProvider(name string, provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = provider
}

// Names returns the registered provider names, sorted.
func (m *Map) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fallback returns the provider used when the household's provider fails.
func (m *Map) Fallback() Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallback
}

// SetFallback replaces the fallback provider.
func (m *Map) SetFallback(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = p
}
