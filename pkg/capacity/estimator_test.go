package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevolt/homevolt/pkg/types"
)

func snapshotWith(modules []types.BatteryModule, temperature *float64) types.Snapshot {
	snap := types.Snapshot{
		Metrics:    map[string]any{},
		Attributes: map[string]map[string]any{types.AttrBattery: {"modules": modules}},
	}
	if temperature != nil {
		snap.Metrics[types.MetricBatteryTemperature] = *temperature
	}
	return snap
}

func autoSettings() types.Settings {
	return types.Settings{
		FullSOCThreshold: 99.5,
		BaselineStrategy: types.BaselineStrategyAuto,
	}
}

func TestEstimatorObserve(t *testing.T) {
	t.Run("full cycle produces a sample and SOH", func(t *testing.T) {
		est := NewEstimator()
		settings := autoSettings()

		est.Observe(snapshotWith([]types.BatteryModule{
			{SOC: f(50.0), EnergyAvailable: f(5.0)},
			{SOC: f(50.0), EnergyAvailable: f(5.0)},
		}, nil), settings)
		assert.Nil(t, est.SOH())

		est.Observe(snapshotWith([]types.BatteryModule{
			{SOC: f(99.6), EnergyAvailable: f(5.55)},
			{SOC: f(99.7), EnergyAvailable: f(5.45)},
		}, nil), settings)

		require.NotNil(t, est.LastSample())
		assert.Equal(t, 11.0, *est.LastSample())
		require.NotNil(t, est.Baseline())
		assert.Equal(t, 11.0, *est.Baseline())
		require.NotNil(t, est.SOH())
		assert.Equal(t, 100.0, *est.SOH())
	})

	t.Run("degraded second cycle lowers SOH against the max baseline", func(t *testing.T) {
		est := NewEstimator()
		settings := autoSettings()

		full := func(energy float64) types.Snapshot {
			return snapshotWith([]types.BatteryModule{{SOC: f(99.8), EnergyAvailable: f(energy)}}, nil)
		}
		empty := snapshotWith([]types.BatteryModule{{SOC: f(20.0), EnergyAvailable: f(1.0)}}, nil)

		est.Observe(full(10.0), settings)
		est.Observe(empty, settings)
		est.Observe(full(9.0), settings)

		require.NotNil(t, est.Baseline())
		assert.Equal(t, 10.0, *est.Baseline())
		require.NotNil(t, est.SOH())
		assert.Equal(t, 90.0, *est.SOH())
	})

	t.Run("manual baseline divides across packs", func(t *testing.T) {
		est := NewModuleEstimator(0)
		settings := types.Settings{
			FullSOCThreshold:  99.5,
			BaselineStrategy:  types.BaselineStrategyManual,
			ManualBaselineKWH: 12.0,
		}

		est.Observe(snapshotWith([]types.BatteryModule{
			{SOC: f(99.8), EnergyAvailable: f(5.4)},
			{SOC: f(80.0), EnergyAvailable: f(4.0)},
		}, nil), settings)

		require.NotNil(t, est.Baseline())
		assert.Equal(t, 6.0, *est.Baseline())
		require.NotNil(t, est.SOH())
		assert.Equal(t, 90.0, *est.SOH())
	})

	t.Run("missing pack leaves state untouched", func(t *testing.T) {
		est := NewModuleEstimator(3)
		est.Restore(types.EstimatorState{
			LastSample:       f(5.0),
			WasFull:          true,
			BaselineStrategy: types.BaselineStrategyAuto,
			AutoBaseline:     f(5.0),
		})

		est.Observe(snapshotWith([]types.BatteryModule{
			{SOC: f(99.8), EnergyAvailable: f(5.4)},
		}, nil), autoSettings())

		require.NotNil(t, est.LastSample())
		assert.Equal(t, 5.0, *est.LastSample())
		assert.True(t, est.State().WasFull)
	})

	t.Run("smoothing seeds from the first sample", func(t *testing.T) {
		est := NewEstimator()
		settings := autoSettings()
		settings.SmoothSOH = true
		settings.SOHMeasurementVariance = 0.04

		est.Observe(snapshotWith([]types.BatteryModule{
			{SOC: f(99.8), EnergyAvailable: f(10.0)},
		}, f(20.0)), settings)

		state := est.State()
		require.NotNil(t, state.KalmanEstimate)
		assert.Equal(t, 10.0, *state.KalmanEstimate)
		require.NotNil(t, state.KalmanVariance)
		assert.Equal(t, 0.04, *state.KalmanVariance)
		require.NotNil(t, est.SOHStdDev())
		assert.Equal(t, 0.2, *est.SOHStdDev())
		require.NotNil(t, est.SOH())
		assert.Equal(t, 100.0, *est.SOH())
	})

	t.Run("smoothing pulls SOH toward the filtered estimate", func(t *testing.T) {
		est := NewEstimator()
		settings := autoSettings()
		settings.SmoothSOH = true
		settings.SOHMeasurementVariance = 0.04

		full := func(energy float64) types.Snapshot {
			return snapshotWith([]types.BatteryModule{{SOC: f(99.8), EnergyAvailable: f(energy)}}, f(20.0))
		}
		empty := snapshotWith([]types.BatteryModule{{SOC: f(20.0), EnergyAvailable: f(1.0)}}, f(20.0))

		est.Observe(full(10.0), settings)
		est.Observe(empty, settings)
		est.Observe(full(9.0), settings)

		// The filter blends the 9.0 sample with the 10.0 estimate, so SOH
		// lands strictly between the raw outcomes.
		require.NotNil(t, est.SOH())
		assert.Greater(t, *est.SOH(), 90.0)
		assert.Less(t, *est.SOH(), 100.0)
	})
}

func TestEstimatorRestore(t *testing.T) {
	t.Run("round trips state", func(t *testing.T) {
		est := NewEstimator()
		state := types.EstimatorState{
			LastSample:       f(10.0),
			WasFull:          true,
			BaselineStrategy: types.BaselineStrategyAuto,
			Baseline:         f(10.5),
			AutoBaseline:     f(10.5),
			LastSOH:          f(95.2),
		}
		est.Restore(state)
		assert.Equal(t, state, est.State())
	})

	t.Run("drops auto baseline persisted under manual", func(t *testing.T) {
		est := NewEstimator()
		est.Restore(types.EstimatorState{
			BaselineStrategy: types.BaselineStrategyManual,
			AutoBaseline:     f(10.5),
		})
		assert.Nil(t, est.State().AutoBaseline)
	})

	t.Run("empty record degrades to no prior state", func(t *testing.T) {
		est := NewEstimator()
		est.Restore(types.EstimatorState{})
		assert.Nil(t, est.LastSample())
		assert.False(t, est.State().WasFull)
		assert.Nil(t, est.SOH())
	})
}
