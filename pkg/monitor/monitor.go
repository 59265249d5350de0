// Package monitor drives the poll cycle: fetch raw documents from the
// gateway, summarize them into a snapshot, feed the capacity estimators, and
// persist their state. One cycle is one atomic step; ticks never overlap.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/homevolt/homevolt/pkg/capacity"
	"github.com/homevolt/homevolt/pkg/gateway"
	"github.com/homevolt/homevolt/pkg/log"
	"github.com/homevolt/homevolt/pkg/processor"
	"github.com/homevolt/homevolt/pkg/storage"
	"github.com/homevolt/homevolt/pkg/types"
)

// Estimate is the published output of one capacity estimator.
type Estimate struct {
	Entity     string   `json:"entity"`
	SOH        *float64 `json:"soh"`
	Baseline   *float64 `json:"baseline"`
	LastSample *float64 `json:"lastSample"`
	SOHStdDev  *float64 `json:"sohStdDev"`
}

// Monitor owns the estimators and the latest snapshot. All mutation happens
// inside Tick while holding the mutex, so a slow tick delays the next one
// instead of racing it.
type Monitor struct {
	gw gateway.Gateway
	db storage.Database

	mu              sync.Mutex
	settings        types.Settings
	settingsVersion int
	snapshot        *types.Snapshot
	lastUpdate      time.Time
	lastErr         error
	estimators      []*capacity.Estimator
	// restored holds persisted estimator state until the first successful
	// snapshot tells us how many packs exist.
	restored map[string]types.EstimatorState
}

// New returns a monitor polling the given gateway and persisting through the
// given database.
func New(gw gateway.Gateway, db storage.Database) *Monitor {
	return &Monitor{gw: gw, db: db}
}

// Init loads settings and persisted estimator state. Settings are migrated
// to the current version and written back when the migration changed them.
func (m *Monitor) Init(ctx context.Context) error {
	settings, version, err := m.db.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settings, migrated, err := types.MigrateSettings(settings, version)
	if err != nil {
		return fmt.Errorf("failed to migrate settings: %w", err)
	}
	if migrated {
		log.Ctx(ctx).InfoContext(ctx, "migrated settings",
			slog.Int("from", version), slog.Int("to", types.CurrentSettingsVersion))
		if err := m.db.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
			return fmt.Errorf("failed to save migrated settings: %w", err)
		}
	}

	restored, err := m.db.ListEstimatorStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load estimator states: %w", err)
	}

	m.mu.Lock()
	m.settings = settings
	m.settingsVersion = types.CurrentSettingsVersion
	m.restored = restored
	m.mu.Unlock()
	return nil
}

// Run polls until the context is canceled. The interval follows the current
// settings, so a settings update takes effect on the next cycle.
func (m *Monitor) Run(ctx context.Context) error {
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("component", "monitor")))
	for {
		if err := m.Tick(ctx); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "tick failed", slog.Any("error", err))
		}

		interval := time.Duration(m.Settings().ScanIntervalOrDefault()) * time.Second
		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "monitor stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// Tick runs one poll cycle. A failed fetch aborts the cycle before anything
// is mutated: the previous snapshot stays published and the estimators are
// untouched. The fetch happens before the lock is taken so readers are never
// blocked behind a slow or hanging gateway; ticks themselves are serialized
// by the Run goroutine.
func (m *Monitor) Tick(ctx context.Context) error {
	payload, err := m.gw.Fetch(ctx)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		return err
	}

	snapshot := processor.Summarize(payload, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.estimators == nil {
		m.buildEstimators(ctx, snapshot)
	}

	for _, est := range m.estimators {
		before := est.State()
		est.Observe(snapshot, m.settings)
		after := est.State()
		if reflect.DeepEqual(before, after) {
			continue
		}
		if err := m.db.SetEstimatorState(ctx, est.Entity(), after); err != nil {
			// Keep going: the in-memory state is still correct, and the next
			// change retries the write.
			log.Ctx(ctx).ErrorContext(ctx, "failed to persist estimator state",
				slog.String("entity", est.Entity()), slog.Any("error", err))
		}
	}

	m.snapshot = &snapshot
	m.lastUpdate = time.Now()
	m.lastErr = nil
	return nil
}

// buildEstimators creates the aggregate estimator plus one per battery pack
// reported in the first successful snapshot, restoring any persisted state.
// Must be called with the mutex held.
func (m *Monitor) buildEstimators(ctx context.Context, snapshot types.Snapshot) {
	moduleCount := len(snapshot.BatteryModules())
	m.estimators = make([]*capacity.Estimator, 0, moduleCount+1)

	total := capacity.NewEstimator()
	m.estimators = append(m.estimators, total)
	for i := 0; i < moduleCount; i++ {
		m.estimators = append(m.estimators, capacity.NewModuleEstimator(i))
	}

	for _, est := range m.estimators {
		if state, ok := m.restored[est.Entity()]; ok {
			est.Restore(state)
		}
	}
	m.restored = nil

	log.Ctx(ctx).InfoContext(ctx, "estimators initialized", slog.Int("modules", moduleCount))
}

// Current returns the latest snapshot, when it was taken, and the error from
// the last failed tick. The snapshot is nil until the first successful tick.
func (m *Monitor) Current() (*types.Snapshot, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.lastUpdate, m.lastErr
}

// Estimates returns the published output of every estimator.
func (m *Monitor) Estimates() []Estimate {
	m.mu.Lock()
	defer m.mu.Unlock()
	estimates := make([]Estimate, 0, len(m.estimators))
	for _, est := range m.estimators {
		estimates = append(estimates, Estimate{
			Entity:     est.Entity(),
			SOH:        est.SOH(),
			Baseline:   est.Baseline(),
			LastSample: est.LastSample(),
			SOHStdDev:  est.SOHStdDev(),
		})
	}
	return estimates
}

// Settings returns the active settings.
func (m *Monitor) Settings() types.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateSettings validates, persists, and activates new settings. The new
// values apply from the next tick.
func (m *Monitor) UpdateSettings(ctx context.Context, settings types.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := m.db.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	m.mu.Lock()
	m.settings = settings
	m.settingsVersion = types.CurrentSettingsVersion
	m.mu.Unlock()
	return nil
}
