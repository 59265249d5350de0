// Package capacity estimates battery capacity and state of health from
// full-charge samples. The sampling helpers are pure; the Estimator wraps
// them with per-entity state that survives restarts through the storage
// layer.
package capacity

import (
	"math"

	"github.com/homevolt/homevolt/pkg/types"
)

// IsFull reports whether the SOC is at or above the full threshold. A nil
// SOC is never full.
func IsFull(soc *float64, threshold float64) bool {
	return soc != nil && *soc >= threshold
}

// SampleWhenFull latches one capacity sample per full-charge cycle. It
// returns the (possibly updated) sample and the new latch state.
//
// A nil SOC carries no information and leaves both outputs unchanged. Below
// the threshold the latch resets but the previous sample is kept. At or
// above the threshold a sample is taken only on the not-full to full
// transition; if the value to sample is nil at that moment the latch stays
// open so the next tick retries.
func SampleWhenFull(current, soc *float64, threshold float64, previous *float64, wasFull bool) (*float64, bool) {
	if soc == nil {
		return previous, wasFull
	}
	if !IsFull(soc, threshold) {
		return previous, false
	}
	if wasFull {
		return previous, true
	}
	if current == nil {
		return previous, false
	}
	return current, true
}

// SampleTotalWhenFull is the aggregate variant of SampleWhenFull: it sums
// the per-module available energy once every module is full. An empty module
// list, or any module missing a numeric SOC or energy value, makes the tick
// not evaluable and resets the latch.
func SampleTotalWhenFull(modules []types.BatteryModule, threshold float64, previous *float64, wasFull bool) (*float64, bool) {
	if len(modules) == 0 {
		return previous, false
	}

	total := 0.0
	allFull := true
	for _, module := range modules {
		if module.SOC == nil || module.EnergyAvailable == nil {
			return previous, false
		}
		total += *module.EnergyAvailable
		if !IsFull(module.SOC, threshold) {
			allFull = false
		}
	}
	if !allFull {
		return previous, false
	}
	if wasFull {
		return previous, true
	}
	rounded := math.Round(total*100) / 100
	return &rounded, true
}

// UpdateAutoMaxBaseline tracks the highest full-charge sample seen. Samples
// that are nil or not positive leave the baseline untouched.
func UpdateAutoMaxBaseline(currentSample, previousBaseline *float64) *float64 {
	if currentSample == nil || *currentSample <= 0 {
		return previousBaseline
	}
	if previousBaseline == nil || *currentSample > *previousBaseline {
		v := *currentSample
		return &v
	}
	return previousBaseline
}

// SelectBaseline picks the SOH denominator for the configured strategy. A
// manual baseline is divided by moduleCount when tracking a single pack out
// of moduleCount packs; moduleCount 0 means the whole-fleet entity. Any
// strategy other than manual falls back to the auto-tracked baseline.
func SelectBaseline(strategy string, manualBaseline, autoBaseline *float64, moduleCount int) *float64 {
	if strategy == types.BaselineStrategyManual {
		if manualBaseline == nil || *manualBaseline <= 0 {
			return nil
		}
		if moduleCount > 0 {
			v := *manualBaseline / float64(moduleCount)
			return &v
		}
		v := *manualBaseline
		return &v
	}
	return autoBaseline
}

// CalculateSOH returns the state of health as a percentage of the baseline,
// rounded to one decimal. Nil or out-of-range operands yield nil.
func CalculateSOH(currentSample, baseline *float64) *float64 {
	if currentSample == nil || baseline == nil {
		return nil
	}
	if *currentSample < 0 || *baseline <= 0 {
		return nil
	}
	soh := math.Round(*currentSample / *baseline * 1000) / 10
	return &soh
}
