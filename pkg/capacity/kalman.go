package capacity

import "math"

// Kalman smoothing of full-charge capacity samples. One-dimensional filter:
// the hidden state is the true pack capacity, assumed to drift slowly, and
// each full-charge sample is a noisy measurement of it.
const (
	// ProcessVariance models the slow real drift of capacity between
	// samples.
	ProcessVariance = 0.0025

	// Comfort band for pack temperature. Samples taken outside the band are
	// noisier, so their measurement variance is scaled up.
	temperatureBandLow  = 15.0
	temperatureBandHigh = 30.0
	variancePerDegree   = 0.1
	maxVarianceFactor   = 5.0
)

// TemperatureVariance scales the base measurement variance by how far the
// pack temperature sits outside the comfort band. An unknown temperature
// doubles the base variance.
func TemperatureVariance(tempC *float64, baseVariance float64) float64 {
	if baseVariance <= 0 {
		return 0
	}
	if tempC == nil {
		return 2 * baseVariance
	}
	penalty := 0.0
	if *tempC < temperatureBandLow {
		penalty = temperatureBandLow - *tempC
	} else if *tempC > temperatureBandHigh {
		penalty = *tempC - temperatureBandHigh
	}
	factor := math.Min(1+penalty*variancePerDegree, maxVarianceFactor)
	return baseVariance * factor
}

// KalmanUpdate folds one measurement into the filter state. A nil
// measurement leaves the state unchanged. A non-positive measurement
// variance means the measurement is exact: snap to it with zero variance.
// With no prior estimate the filter seeds from the measurement.
func KalmanUpdate(estimate, variance, measurement *float64, measurementVariance float64) (*float64, *float64) {
	if measurement == nil {
		return estimate, variance
	}
	if measurementVariance <= 0 {
		m := *measurement
		zero := 0.0
		return &m, &zero
	}
	if estimate == nil || variance == nil {
		m := *measurement
		v := measurementVariance
		return &m, &v
	}

	predictedVariance := *variance + ProcessVariance
	gain := predictedVariance / (predictedVariance + measurementVariance)
	newEstimate := *estimate + gain*(*measurement-*estimate)
	newVariance := math.Max(0, (1-gain)*predictedVariance)
	return &newEstimate, &newVariance
}

// SeedKalmanEstimate initializes the filter from a persisted sample. The
// temperature at the time of that sample is not persisted, so callers pass
// the current pack temperature as a proxy when picking the initial variance.
// A mismatched proxy only inflates the seed variance; the first real
// measurement corrects it.
func SeedKalmanEstimate(lastSample, lastTemperature *float64, baseVariance float64) (*float64, *float64) {
	if lastSample == nil {
		return nil, nil
	}
	s := *lastSample
	v := TemperatureVariance(lastTemperature, baseVariance)
	return &s, &v
}

// VarianceToStd converts the filter variance to a standard deviation rounded
// to three decimals, nil when the variance is nil or negative.
func VarianceToStd(variance *float64) *float64 {
	if variance == nil || *variance < 0 {
		return nil
	}
	std := math.Round(math.Sqrt(*variance)*1000) / 1000
	return &std
}
