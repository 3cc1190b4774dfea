package inverter

import (
	"context"
	"sync"

	"github.com/pvcast/pvcast/pkg/types"
)

// Factory constructs a System. Construction is where an adapter authenticates
// to its vendor, so it can fail with a configuration or connection error.
type Factory func(ctx context.Context) (System, error)

// Configured sets up the inverter provider Map.
func Configured() *Map {
	m := NewMap()
	m.SetFactory("victron", configuredVictron())
	m.SetFactory("mock", newMockFactory())
	return m
}

// Map manages the available inverter integrations keyed by inverter type.
// New vendors are added by registering a factory here, nothing else changes.
type Map struct {
	mu        sync.Mutex
	factories map[string]Factory
	systems   map[string]System
}

// NewMap creates a new inverter Map.
func NewMap() *Map {
	return &Map{
		factories: make(map[string]Factory),
		systems:   make(map[string]System),
	}
}

// System returns a system for the given inverter type. Adapters are
// constructed per call so their telemetry window is anchored at construction
// time; nothing is cached between requests.
func (m *Map) System(ctx context.Context, name string) (System, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sys, ok := m.systems[name]; ok {
		return sys, nil
	}
	if f, ok := m.factories[name]; ok {
		return f(ctx)
	}
	return nil, types.ValidationErrorf("unknown inverter type: %s", name)
}

// SetFactory registers the factory for an inverter type.
func (m *Map) SetFactory(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
}

// SetSystem sets a fixed system for an inverter type. This is primarily used for testing.
func (m *Map) SetSystem(name string, sys System) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems[name] = sys
}
