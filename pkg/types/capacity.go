package types

import "strconv"

// EntityTotal is the estimator key for the whole-system capacity tracker.
const EntityTotal = "total"

// ModuleEntity returns the estimator key for a battery pack by its position
// in the gateway's module list.
func ModuleEntity(index int) string {
	return "module_" + strconv.Itoa(index+1)
}

// EstimatorState is the persisted state of one capacity estimator. Pointer
// fields are nil until the estimator has seen the corresponding data.
type EstimatorState struct {
	// Last accepted full-charge capacity sample, kWh.
	LastSample *float64 `json:"lastSample"`

	// Whether the pack was at/above the full threshold when last observed.
	// Drives the sampling hysteresis.
	WasFull bool `json:"wasFull"`

	// Strategy the baseline below was computed under. The auto baseline is
	// only trusted across restarts when the strategy still matches.
	BaselineStrategy string `json:"baselineStrategy"`

	// Baseline capacity the last SOH was computed against, kWh.
	Baseline *float64 `json:"baseline"`

	// Maximum full-charge sample ever observed, kWh. Feeds the auto
	// baseline strategy.
	AutoBaseline *float64 `json:"autoBaseline"`

	// Last computed state of health, percent.
	LastSOH *float64 `json:"lastSOH"`

	// Kalman smoother state for the capacity estimate.
	KalmanEstimate *float64 `json:"kalmanEstimate"`
	KalmanVariance *float64 `json:"kalmanVariance"`
}
