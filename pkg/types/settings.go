package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 2

// Baseline strategies for the state-of-health estimate.
const (
	BaselineStrategyAuto   = "auto"
	BaselineStrategyManual = "manual"
)

// Defaults and allowed ranges for the dynamic settings.
const (
	DefaultFullSOCThreshold = 99.0
	MinFullSOCThreshold     = 50.0
	MaxFullSOCThreshold     = 100.0

	DefaultScanIntervalSeconds = 30
	MinScanIntervalSeconds     = 15
	MaxScanIntervalSeconds     = 900
)

// Settings represents the configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// SOC (percent) at/above which a pack counts as full for capacity
	// sampling.
	FullSOCThreshold float64 `json:"fullSOCThreshold"`

	// How the SOH baseline is chosen: auto (track the maximum observed full
	// sample) or manual (operator-entered fleet capacity).
	BaselineStrategy string `json:"baselineStrategy"`

	// Operator-entered fleet capacity in kWh, used only with the manual
	// strategy. Per-pack estimators divide it by the module count.
	ManualBaselineKWH float64 `json:"manualBaselineKWH,omitempty"`

	// Run full-charge samples through the Kalman smoother before computing
	// SOH.
	SmoothSOH bool `json:"smoothSOH"`

	// Base measurement variance for the Kalman smoother, scaled up when the
	// battery temperature leaves its comfort band.
	SOHMeasurementVariance float64 `json:"sohMeasurementVariance,omitempty"`

	// How often to poll the gateway, in seconds.
	ScanIntervalSeconds int `json:"scanIntervalSeconds"`
}

// ScanIntervalOrDefault returns the poll interval, falling back to the
// default when unset.
func (s Settings) ScanIntervalOrDefault() int {
	if s.ScanIntervalSeconds == 0 {
		return DefaultScanIntervalSeconds
	}
	return s.ScanIntervalSeconds
}

// Validate rejects impossible configuration values. Invalid values must be
// caught here, before they reach the estimators; the estimators themselves
// treat out-of-range inputs as "no data" rather than failing.
func (s Settings) Validate() error {
	if s.FullSOCThreshold < MinFullSOCThreshold || s.FullSOCThreshold > MaxFullSOCThreshold {
		return fmt.Errorf("full SOC threshold %.1f outside [%.0f, %.0f]",
			s.FullSOCThreshold, MinFullSOCThreshold, MaxFullSOCThreshold)
	}
	switch s.BaselineStrategy {
	case BaselineStrategyAuto:
	case BaselineStrategyManual:
		if s.ManualBaselineKWH <= 0 {
			return fmt.Errorf("manual baseline %.2f kWh must be > 0", s.ManualBaselineKWH)
		}
	default:
		return fmt.Errorf("unknown baseline strategy: %q", s.BaselineStrategy)
	}
	if s.ScanIntervalSeconds < MinScanIntervalSeconds || s.ScanIntervalSeconds > MaxScanIntervalSeconds {
		return fmt.Errorf("scan interval %ds outside [%d, %d]",
			s.ScanIntervalSeconds, MinScanIntervalSeconds, MaxScanIntervalSeconds)
	}
	if s.SOHMeasurementVariance < 0 {
		return fmt.Errorf("SOH measurement variance %.4f must be >= 0", s.SOHMeasurementVariance)
	}
	return nil
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were
// made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.FullSOCThreshold == 0 {
				s.FullSOCThreshold = DefaultFullSOCThreshold
				migrated = true
			}
			if s.BaselineStrategy == "" {
				s.BaselineStrategy = BaselineStrategyAuto
				migrated = true
			}
			if s.ScanIntervalSeconds == 0 {
				s.ScanIntervalSeconds = DefaultScanIntervalSeconds
				migrated = true
			}
		case 2:
			// version 2: add Kalman smoothing of full-charge samples
			if s.SOHMeasurementVariance == 0 {
				s.SOHMeasurementVariance = 0.04
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
