package types

// Metric keys published in every snapshot. Every key is present in
// Snapshot.Metrics on every poll; a nil value means the gateway did not
// report it.
const (
	MetricSystemState        = "system_state"
	MetricWifiStatus         = "wifi_status"
	MetricLTEStatus          = "lte_status"
	MetricBatterySOC         = "battery_soc"
	MetricBatteryTemperature = "battery_temperature"
	MetricBatteryPower       = "battery_power"
	MetricGridPower          = "grid_power"
	MetricSolarPower         = "solar_power"
	MetricLoadPower          = "load_power"
	MetricGridEnergyImported = "grid_energy_imported"
	MetricGridEnergyExported = "grid_energy_exported"
	MetricSolarEnergyUsed    = "solar_energy_consumed"
	MetricSolarEnergyMade    = "solar_energy_produced"
	MetricBatteryEnergyIn    = "battery_energy_imported"
	MetricBatteryEnergyOut   = "battery_energy_exported"
	MetricFrequency          = "frequency"
	MetricVoltageL1          = "voltage_l1"
	MetricVoltageL2          = "voltage_l2"
	MetricVoltageL3          = "voltage_l3"
	MetricScheduleState      = "schedule_state"
	MetricScheduleSetpoint   = "schedule_setpoint"
	MetricNextChargeStart    = "next_charge_start"
	MetricNextDischargeStart = "next_discharge_start"
	MetricNextNonIdleStart   = "next_non_idle_start"
	MetricNextNonIdleState   = "next_non_idle_state"
	MetricHealthState        = "health_state"
	MetricWarningCount       = "warning_count"
	MetricErrorCount         = "error_count"
	MetricSubsystemStatus    = "subsystem_status"
)

// MetricKeys lists every metric key a snapshot carries.
var MetricKeys = []string{
	MetricSystemState,
	MetricWifiStatus,
	MetricLTEStatus,
	MetricBatterySOC,
	MetricBatteryTemperature,
	MetricBatteryPower,
	MetricGridPower,
	MetricSolarPower,
	MetricLoadPower,
	MetricGridEnergyImported,
	MetricGridEnergyExported,
	MetricSolarEnergyUsed,
	MetricSolarEnergyMade,
	MetricBatteryEnergyIn,
	MetricBatteryEnergyOut,
	MetricFrequency,
	MetricVoltageL1,
	MetricVoltageL2,
	MetricVoltageL3,
	MetricScheduleState,
	MetricScheduleSetpoint,
	MetricNextChargeStart,
	MetricNextDischargeStart,
	MetricNextNonIdleStart,
	MetricNextNonIdleState,
	MetricHealthState,
	MetricWarningCount,
	MetricErrorCount,
	MetricSubsystemStatus,
}

// Attribute categories present in every snapshot.
const (
	AttrSystem   = "system"
	AttrBattery  = "battery"
	AttrGrid     = "grid"
	AttrSolar    = "solar"
	AttrLoad     = "load"
	AttrSchedule = "schedule"
	AttrErrors   = "errors"
)

// AttributeCategories lists every attribute category a snapshot carries.
var AttributeCategories = []string{
	AttrSystem,
	AttrBattery,
	AttrGrid,
	AttrSolar,
	AttrLoad,
	AttrSchedule,
	AttrErrors,
}

// BatteryModule is the per-pack summary derived from the gateway's bms_data
// list. Pointer fields are nil when the pack did not report the value.
type BatteryModule struct {
	SOC             *float64 `json:"soc"`
	CycleCount      any      `json:"cycle_count"`
	EnergyAvailable *float64 `json:"energy_available"`
	TemperatureMin  *float64 `json:"temperature_min"`
	TemperatureMax  *float64 `json:"temperature_max"`
	State           any      `json:"state"`
	StateStr        any      `json:"state_str"`
	Alarm           any      `json:"alarm"`
	AlarmFlags      []any    `json:"alarm_flags"`
}

// Snapshot is one normalized view of the gateway, produced by the processor
// from a raw Payload. Metrics holds the flat scalar values keyed by the
// Metric* constants; Attributes holds the richer per-category detail keyed by
// the Attr* constants. Both always contain every declared key.
type Snapshot struct {
	Metrics    map[string]any            `json:"metrics"`
	Attributes map[string]map[string]any `json:"attributes"`
}

// Float returns the metric as a float pointer, nil when it is absent or not
// a float.
func (s Snapshot) Float(key string) *float64 {
	switch v := s.Metrics[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// String returns the metric as a string, empty when it is absent or not a
// string.
func (s Snapshot) String(key string) string {
	if v, ok := s.Metrics[key].(string); ok {
		return v
	}
	return ""
}

// BatteryModules returns the per-pack summaries from the battery attributes.
func (s Snapshot) BatteryModules() []BatteryModule {
	mods, _ := s.Attributes[AttrBattery]["modules"].([]BatteryModule)
	return mods
}
