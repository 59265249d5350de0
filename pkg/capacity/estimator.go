package capacity

import (
	"github.com/homevolt/homevolt/pkg/types"
)

// Estimator tracks full-charge capacity and state of health for one entity:
// either a single battery pack or the whole-system aggregate. It is not safe
// for concurrent use; the monitor serializes ticks.
type Estimator struct {
	entity string
	// moduleIndex is the pack's position in the gateway module list, -1 for
	// the aggregate entity.
	moduleIndex int
	state       types.EstimatorState
}

// NewEstimator returns an estimator for the whole-system aggregate.
func NewEstimator() *Estimator {
	return &Estimator{entity: types.EntityTotal, moduleIndex: -1}
}

// NewModuleEstimator returns an estimator for the pack at the given position
// in the gateway module list.
func NewModuleEstimator(index int) *Estimator {
	return &Estimator{entity: types.ModuleEntity(index), moduleIndex: index}
}

// Entity returns the estimator's storage key.
func (e *Estimator) Entity() string {
	return e.entity
}

// State returns the persistable estimator state.
func (e *Estimator) State() types.EstimatorState {
	return e.state
}

// Restore rebuilds the estimator from a persisted record. The auto baseline
// is only trusted when it was accumulated under the auto strategy; a record
// persisted under manual carries a stale one. Anything missing in the record
// simply stays at its zero value, so a partial or corrupt record degrades to
// "no prior state" instead of failing.
func (e *Estimator) Restore(state types.EstimatorState) {
	if state.BaselineStrategy != types.BaselineStrategyAuto {
		state.AutoBaseline = nil
	}
	e.state = state
}

// SOH returns the last computed state of health, nil before the first
// baseline exists.
func (e *Estimator) SOH() *float64 {
	return e.state.LastSOH
}

// Baseline returns the baseline the last SOH was computed against.
func (e *Estimator) Baseline() *float64 {
	return e.state.Baseline
}

// LastSample returns the last accepted full-charge sample.
func (e *Estimator) LastSample() *float64 {
	return e.state.LastSample
}

// SOHStdDev returns the smoothed estimate's standard deviation, nil when
// smoothing is off or unseeded.
func (e *Estimator) SOHStdDev() *float64 {
	return VarianceToStd(e.state.KalmanVariance)
}

// Observe feeds one snapshot through the sampler and baseline logic,
// updating the estimator state. Packs that are absent from the snapshot
// (fewer modules than expected) report no SOC and therefore leave the state
// untouched.
func (e *Estimator) Observe(snapshot types.Snapshot, settings types.Settings) {
	threshold := settings.FullSOCThreshold
	if threshold == 0 {
		threshold = types.DefaultFullSOCThreshold
	}

	modules := snapshot.BatteryModules()
	prevFull := e.state.WasFull

	var sample *float64
	var wasFull bool
	moduleCount := 0
	if e.moduleIndex < 0 {
		sample, wasFull = SampleTotalWhenFull(modules, threshold, e.state.LastSample, e.state.WasFull)
	} else {
		moduleCount = len(modules)
		var soc, current *float64
		if e.moduleIndex < len(modules) {
			soc = modules[e.moduleIndex].SOC
			current = modules[e.moduleIndex].EnergyAvailable
		}
		sample, wasFull = SampleWhenFull(current, soc, threshold, e.state.LastSample, e.state.WasFull)
	}
	e.state.LastSample = sample
	e.state.WasFull = wasFull

	// A fresh sample is one accepted on this tick's not-full to full
	// transition.
	var fresh *float64
	if wasFull && !prevFull {
		fresh = sample
	}

	if settings.BaselineStrategy != types.BaselineStrategyManual {
		e.state.AutoBaseline = UpdateAutoMaxBaseline(fresh, e.state.AutoBaseline)
	}
	e.state.BaselineStrategy = settings.BaselineStrategy

	var manual *float64
	if settings.ManualBaselineKWH > 0 {
		manual = &settings.ManualBaselineKWH
	}
	e.state.Baseline = SelectBaseline(settings.BaselineStrategy, manual, e.state.AutoBaseline, moduleCount)

	current := e.state.LastSample
	if settings.SmoothSOH {
		temperature := snapshot.Float(types.MetricBatteryTemperature)
		if e.state.KalmanEstimate == nil {
			// seeding uses the current temperature as a proxy for the one at
			// sample time, which is not persisted
			e.state.KalmanEstimate, e.state.KalmanVariance = SeedKalmanEstimate(
				e.state.LastSample, temperature, settings.SOHMeasurementVariance)
		} else if fresh != nil {
			e.state.KalmanEstimate, e.state.KalmanVariance = KalmanUpdate(
				e.state.KalmanEstimate, e.state.KalmanVariance, fresh,
				TemperatureVariance(temperature, settings.SOHMeasurementVariance))
		}
		if e.state.KalmanEstimate != nil {
			current = e.state.KalmanEstimate
		}
	}

	e.state.LastSOH = CalculateSOH(current, e.state.Baseline)
}
