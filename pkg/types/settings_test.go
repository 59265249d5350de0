package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidate(t *testing.T) {
	valid := Settings{
		FullSOCThreshold:    99,
		BaselineStrategy:    BaselineStrategyAuto,
		ScanIntervalSeconds: 30,
	}
	assert.NoError(t, valid.Validate())

	t.Run("threshold out of range", func(t *testing.T) {
		s := valid
		s.FullSOCThreshold = 49
		assert.Error(t, s.Validate())
		s.FullSOCThreshold = 101
		assert.Error(t, s.Validate())
	})

	t.Run("unknown strategy", func(t *testing.T) {
		s := valid
		s.BaselineStrategy = "guess"
		assert.Error(t, s.Validate())
	})

	t.Run("manual strategy requires a baseline", func(t *testing.T) {
		s := valid
		s.BaselineStrategy = BaselineStrategyManual
		assert.Error(t, s.Validate())
		s.ManualBaselineKWH = 13.2
		assert.NoError(t, s.Validate())
	})

	t.Run("scan interval out of range", func(t *testing.T) {
		s := valid
		s.ScanIntervalSeconds = 14
		assert.Error(t, s.Validate())
		s.ScanIntervalSeconds = 901
		assert.Error(t, s.Validate())
	})

	t.Run("negative measurement variance", func(t *testing.T) {
		s := valid
		s.SOHMeasurementVariance = -0.1
		assert.Error(t, s.Validate())
	})
}

func TestMigrateSettings(t *testing.T) {
	t.Run("empty record gets defaults", func(t *testing.T) {
		s, migrated, err := MigrateSettings(Settings{}, 0)
		require.NoError(t, err)
		assert.True(t, migrated)
		assert.Equal(t, DefaultFullSOCThreshold, s.FullSOCThreshold)
		assert.Equal(t, BaselineStrategyAuto, s.BaselineStrategy)
		assert.Equal(t, DefaultScanIntervalSeconds, s.ScanIntervalSeconds)
		assert.Equal(t, 0.04, s.SOHMeasurementVariance)
		assert.NoError(t, s.Validate())
	})

	t.Run("v1 record only gains the smoothing variance", func(t *testing.T) {
		v1 := Settings{
			FullSOCThreshold:    98,
			BaselineStrategy:    BaselineStrategyManual,
			ManualBaselineKWH:   13.2,
			ScanIntervalSeconds: 60,
		}
		s, migrated, err := MigrateSettings(v1, 1)
		require.NoError(t, err)
		assert.True(t, migrated)
		assert.Equal(t, 98.0, s.FullSOCThreshold)
		assert.Equal(t, 0.04, s.SOHMeasurementVariance)
	})

	t.Run("current version is a no-op", func(t *testing.T) {
		current := Settings{FullSOCThreshold: 99}
		s, migrated, err := MigrateSettings(current, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, migrated)
		assert.Equal(t, current, s)
	})
}

func TestScanIntervalOrDefault(t *testing.T) {
	assert.Equal(t, DefaultScanIntervalSeconds, Settings{}.ScanIntervalOrDefault())
	assert.Equal(t, 60, Settings{ScanIntervalSeconds: 60}.ScanIntervalOrDefault())
}
