package storage

import (
	"context"
	"sync"

	"github.com/homevolt/homevolt/pkg/types"
)

// MemoryProvider implements the Database interface in memory. Estimator
// state does not survive a restart; it exists for local development and
// tests.
type MemoryProvider struct {
	mu              sync.Mutex
	settings        types.Settings
	settingsVersion int
	hasSettings     bool
	estimators      map[string]types.EstimatorState
}

// NewMemoryProvider returns an empty in-memory database.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		estimators: make(map[string]types.EstimatorState),
	}
}

func (m *MemoryProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSettings {
		return types.Settings{}, 0, nil
	}
	return m.settings, m.settingsVersion, nil
}

func (m *MemoryProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.settingsVersion = version
	m.hasSettings = true
	return nil
}

func (m *MemoryProvider) GetEstimatorState(ctx context.Context, entity string) (types.EstimatorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estimators[entity], nil
}

func (m *MemoryProvider) SetEstimatorState(ctx context.Context, entity string, state types.EstimatorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimators[entity] = state
	return nil
}

func (m *MemoryProvider) ListEstimatorStates(ctx context.Context) (map[string]types.EstimatorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make(map[string]types.EstimatorState, len(m.estimators))
	for entity, state := range m.estimators {
		states[entity] = state
	}
	return states, nil
}

func (m *MemoryProvider) Close() error {
	return nil
}
